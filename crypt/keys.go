package crypt

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/hkdf"
)

const (
	// Argon2id parameters for deriving the master key from a password.
	Argon2Time        = 3
	Argon2Memory      = 64 * 1024 // 64 MB
	Argon2Parallelism = 4
	Argon2KeyLen      = 32

	// SaltLen is the master-key salt length.
	SaltLen = 16
)

// KeySet is the per-session key material: one payload cipher key and the
// two handle blinding keys.
type KeySet struct {
	Cipher [CipherKeyLen]byte
	Own    [HandleKeyLen]byte
	Parent [HandleKeyLen]byte
}

// NewSalt generates a random master-key salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("crypt: generate salt: %w", err)
	}
	return salt, nil
}

// MasterKeyFromPassword derives the 32-byte master key with argon2id.
func MasterKeyFromPassword(password string, salt []byte) ([]byte, error) {
	if len(salt) != SaltLen {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidSaltLen, len(salt))
	}

	key := argon2.IDKey(
		[]byte(password),
		salt,
		Argon2Time,
		Argon2Memory,
		Argon2Parallelism,
		Argon2KeyLen,
	)
	return key, nil
}

// SessionKeys expands a master key into the session key set with
// HKDF-SHA256. Each subkey uses a distinct info string, so the payload
// cipher key and the two blinding keys are independent.
func SessionKeys(master []byte) (*KeySet, error) {
	if len(master) == 0 {
		return nil, ErrEmptyMasterKey
	}

	ks := &KeySet{}
	subkeys := []struct {
		info string
		out  []byte
	}{
		{"synccache payload", ks.Cipher[:]},
		{"synccache own handle", ks.Own[:]},
		{"synccache parent handle", ks.Parent[:]},
	}

	for _, sk := range subkeys {
		r := hkdf.New(sha256.New, master, nil, []byte(sk.info))
		if _, err := io.ReadFull(r, sk.out); err != nil {
			return nil, fmt.Errorf("crypt: derive %q key: %w", sk.info, err)
		}
	}

	return ks, nil
}
