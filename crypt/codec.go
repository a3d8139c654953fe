package crypt

import (
	"encoding/base64"
	"fmt"

	"github.com/cloudmirror/synccache/record"
)

// rootEncoding is the binary/text codec used for root handles before
// encryption. Unpadded URL-safe base64 keeps the encoded text free of
// separator characters.
var rootEncoding = base64.RawURLEncoding

// Codec is the record codec the encrypted store consumes: payload
// encryption plus handle blinding. It carries no state beyond its keys.
type Codec struct {
	cipher  *PaddedCipher
	blinder *Blinder
}

// NewCodec builds a codec from a session key set.
func NewCodec(ks *KeySet) (*Codec, error) {
	cipher, err := NewPaddedCipher(ks.Cipher[:])
	if err != nil {
		return nil, err
	}

	blinder, err := NewBlinder(ks.Own[:], ks.Parent[:])
	if err != nil {
		return nil, err
	}

	return &Codec{cipher: cipher, blinder: blinder}, nil
}

// EncryptPayload wraps a serialized record for storage.
func (c *Codec) EncryptPayload(plain []byte) []byte {
	return c.cipher.Encrypt(plain)
}

// DecryptPayload unwraps a stored payload, failing on corruption or a
// wrong key.
func (c *Codec) DecryptPayload(blob []byte) ([]byte, error) {
	return c.cipher.Decrypt(blob)
}

// Blind masks a handle into a storage lookup key.
func (c *Codec) Blind(h record.Handle, role KeyRole) []byte {
	return c.blinder.Blind(h, role)
}

// Unblind recovers a handle from a storage lookup key.
func (c *Codec) Unblind(blinded []byte, role KeyRole) (record.Handle, error) {
	return c.blinder.Unblind(blinded, role)
}

// EncodeRootHandle prepares a root handle for storage: the raw handle
// bytes are text-encoded, then the text is encrypted. Root handles live
// outside the id-keyed path, as standalone blobs.
func (c *Codec) EncodeRootHandle(h record.Handle) []byte {
	raw := h.Bytes()
	text := rootEncoding.EncodeToString(raw[:])
	return c.cipher.Encrypt([]byte(text))
}

// DecodeRootHandle reverses EncodeRootHandle. On any failure the returned
// handle is record.Undef; callers must check the error rather than trust
// the handle value.
func (c *Codec) DecodeRootHandle(blob []byte) (record.Handle, error) {
	text, err := c.cipher.Decrypt(blob)
	if err != nil {
		return record.Undef, err
	}

	raw, err := rootEncoding.DecodeString(string(text))
	if err != nil {
		return record.Undef, fmt.Errorf("crypt: decode root handle: %w", err)
	}

	return record.HandleFromBytes(raw)
}
