package crypt

import "errors"

var (
	// ErrInvalidKeyLen indicates the cipher key is not 32 bytes.
	ErrInvalidKeyLen = errors.New("crypt: cipher key must be 32 bytes")

	// ErrInvalidBlindKeyLen indicates a blinding key or blinded handle is
	// not exactly 8 bytes.
	ErrInvalidBlindKeyLen = errors.New("crypt: blinding keys and blinded handles must be 8 bytes")

	// ErrInvalidSaltLen indicates the master-key salt has the wrong length.
	ErrInvalidSaltLen = errors.New("crypt: salt must be 16 bytes")

	// ErrEmptyMasterKey indicates an empty master key was supplied.
	ErrEmptyMasterKey = errors.New("crypt: master key must not be empty")

	// ErrBadBlobSize indicates a ciphertext blob is empty or not a whole
	// number of cipher blocks.
	ErrBadBlobSize = errors.New("crypt: ciphertext is not a whole number of blocks")

	// ErrDecryptFailed indicates padding validation failed after
	// decryption: the blob is corrupt or was encrypted under another key.
	ErrDecryptFailed = errors.New("crypt: decryption failed")
)
