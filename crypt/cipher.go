// Package crypt implements the record codec: padded payload encryption,
// handle blinding, the root-handle encode path, and session key derivation.
//
// Every payload the cache writes has been through PaddedCipher, and every
// lookup key derived from a handle has been through Blinder, so the backing
// store never sees a plaintext record or a real handle.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"
)

// CipherKeyLen is the AES-256 key length in bytes.
const CipherKeyLen = 32

// PaddedCipher is a deterministic AES-256-CBC cipher with explicit padding.
//
// Plaintext is padded with a single 0x80 byte followed by zeros up to the
// block boundary; Decrypt validates the padding, so corruption or a wrong
// key surfaces as ErrDecryptFailed rather than garbage plaintext.
//
// The cipher is deterministic on purpose: equal plaintexts produce equal
// blobs, which lets encrypted file fingerprints double as lookup keys.
type PaddedCipher struct {
	block cipher.Block
}

// NewPaddedCipher creates a cipher from a 32-byte key.
func NewPaddedCipher(key []byte) (*PaddedCipher, error) {
	if len(key) != CipherKeyLen {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKeyLen, len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("crypt: create AES cipher: %w", err)
	}

	return &PaddedCipher{block: block}, nil
}

// Encrypt pads and encrypts plain. The input slice is not modified.
func (c *PaddedCipher) Encrypt(plain []byte) []byte {
	bs := c.block.BlockSize()

	// 0x80 marker plus zeros to the next block boundary.
	padded := make([]byte, (len(plain)/bs+1)*bs)
	copy(padded, plain)
	padded[len(plain)] = 0x80

	iv := make([]byte, bs)
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(padded, padded)

	return padded
}

// Decrypt decrypts blob and strips the padding. It fails if the blob is not
// a whole number of blocks or the padding marker is missing, which is the
// signal for corruption or a wrong key.
func (c *PaddedCipher) Decrypt(blob []byte) ([]byte, error) {
	bs := c.block.BlockSize()
	if len(blob) == 0 || len(blob)%bs != 0 {
		return nil, fmt.Errorf("%w: %d bytes", ErrBadBlobSize, len(blob))
	}

	plain := make([]byte, len(blob))
	iv := make([]byte, bs)
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, blob)

	// Walk back over the zero padding to the 0x80 marker. The marker must
	// sit within the final block.
	i := len(plain) - 1
	for i >= len(plain)-bs && plain[i] == 0 {
		i--
	}
	if i < len(plain)-bs || plain[i] != 0x80 {
		return nil, ErrDecryptFailed
	}

	return plain[:i], nil
}
