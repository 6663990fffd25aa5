// Package blockcipher exposes single-block AES encrypt/decrypt for the
// 128/192/256-bit key sizes DUKPT and HKDS derive. It is the sole
// block-cipher primitive consumed by pkg/ecb and, through it, by
// pkg/dukpt's derivation routines.
//
// Mathematical Foundation:
//
// AES (FIPS-197):
//   - Substitution-permutation network, 128-bit block size
//   - Key sizes: 128/192/256 bits -> 10/12/14 rounds
//   - No mode of operation is implemented here: callers supply exactly one
//     16-byte block and receive exactly one 16-byte block back.
package blockcipher

import (
	"crypto/aes"

	hkdserrors "github.com/dfd-labs/hkds-go/internal/errors"
)

// BlockSize is the AES block size in bytes, fixed regardless of key size.
const BlockSize = aes.BlockSize

// Cipher is a keyed single-block AES cipher. A Cipher is safe for concurrent
// use: crypto/aes.Block implementations hold no mutable state.
type Cipher struct {
	block cipherBlock
}

// cipherBlock narrows the crypto/cipher.Block interface to what Cipher uses,
// keeping this package's public surface independent of crypto/cipher.
type cipherBlock interface {
	Encrypt(dst, src []byte)
	Decrypt(dst, src []byte)
}

// New constructs a Cipher for a 16/24/32-byte AES key. Any other length
// returns ErrInvalidKey.
func New(key []byte) (*Cipher, error) {
	switch len(key) {
	case 16, 24, 32:
	default:
		return nil, hkdserrors.NewKeyError("blockcipher.New", hkdserrors.ErrInvalidKey)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, hkdserrors.NewKeyError("blockcipher.New", err)
	}
	return &Cipher{block: block}, nil
}

// EncryptBlock encrypts exactly one 16-byte block.
func (c *Cipher) EncryptBlock(dst, src []byte) error {
	if len(src) != BlockSize || len(dst) != BlockSize {
		return hkdserrors.NewKeyError("Cipher.EncryptBlock", hkdserrors.ErrInvalidSize)
	}
	c.block.Encrypt(dst, src)
	return nil
}

// DecryptBlock decrypts exactly one 16-byte block.
func (c *Cipher) DecryptBlock(dst, src []byte) error {
	if len(src) != BlockSize || len(dst) != BlockSize {
		return hkdserrors.NewKeyError("Cipher.DecryptBlock", hkdserrors.ErrInvalidSize)
	}
	c.block.Decrypt(dst, src)
	return nil
}

// EncryptBlockInto is a convenience wrapper that allocates the output block.
func EncryptBlockInto(key, src []byte) ([]byte, error) {
	c, err := New(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, BlockSize)
	if err := c.EncryptBlock(dst, src); err != nil {
		return nil, err
	}
	return dst, nil
}

// DecryptBlockInto is a convenience wrapper that allocates the output block.
func DecryptBlockInto(key, src []byte) ([]byte, error) {
	c, err := New(key)
	if err != nil {
		return nil, err
	}
	dst := make([]byte, BlockSize)
	if err := c.DecryptBlock(dst, src); err != nil {
		return nil, err
	}
	return dst, nil
}
