// Package ecb wraps pkg/blockcipher in the stateless single-block mode that
// DUKPT derivation and DUKPT PIN-block encryption both require: no chaining,
// no padding, exactly one 16-byte block in, one 16-byte block out.
package ecb

import (
	"github.com/dfd-labs/hkds-go/pkg/blockcipher"
)

// Encrypt encrypts a single 16-byte block under key using raw AES-ECB.
func Encrypt(key, block []byte) ([]byte, error) {
	return blockcipher.EncryptBlockInto(key, block)
}

// Decrypt decrypts a single 16-byte block under key using raw AES-ECB.
func Decrypt(key, block []byte) ([]byte, error) {
	return blockcipher.DecryptBlockInto(key, block)
}

// Cipher is a keyed single-block ECB cipher, useful when many blocks are
// encrypted under the same key (DUKPT's DeriveKey loop, for instance) since
// it avoids re-expanding the AES key schedule on every call.
type Cipher struct {
	inner *blockcipher.Cipher
}

// New constructs an ECB Cipher for a 16/24/32-byte AES key.
func New(key []byte) (*Cipher, error) {
	inner, err := blockcipher.New(key)
	if err != nil {
		return nil, err
	}
	return &Cipher{inner: inner}, nil
}

// Encrypt encrypts a single 16-byte block in place of the output buffer.
func (c *Cipher) Encrypt(dst, src []byte) error {
	return c.inner.EncryptBlock(dst, src)
}

// Decrypt decrypts a single 16-byte block in place of the output buffer.
func (c *Cipher) Decrypt(dst, src []byte) error {
	return c.inner.DecryptBlock(dst, src)
}
