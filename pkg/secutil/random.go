// Package secutil provides the random-source abstraction and constant-time
// memory helpers shared by the DUKPT-AES and HKDS key-distribution
// subsystems. It does not provide an encryption primitive itself; see
// pkg/blockcipher, pkg/keccak, and pkg/sha2 for those.
//
// Security Note: the default RandomSource uses crypto/rand, which sources
// entropy from the operating system's CSPRNG.
package secutil

import (
	"crypto/rand"
	"crypto/subtle"
	"io"

	hkdserrors "github.com/dfd-labs/hkds-go/internal/errors"
)

// RandomSource fills buf with cryptographically secure random bytes. It is
// consumed only where spec-level operations call for fresh randomness: MDK/
// STK generation and self-test harnesses, never per-transaction derivation.
type RandomSource interface {
	Fill(buf []byte) error
}

// systemRandomSource is the default RandomSource, backed by crypto/rand.
type systemRandomSource struct{}

func (systemRandomSource) Fill(buf []byte) error {
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return hkdserrors.NewKeyError("RandomSource.Fill", err)
	}
	return nil
}

// DefaultRandomSource is the package-wide default, backed by the OS CSPRNG.
var DefaultRandomSource RandomSource = systemRandomSource{}

// SecureRandom reads cryptographically secure random bytes into b using the
// default RandomSource.
func SecureRandom(b []byte) error {
	return DefaultRandomSource.Fill(b)
}

// SecureRandomBytes returns n cryptographically secure random bytes.
func SecureRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := SecureRandom(b); err != nil {
		return nil, err
	}
	return b, nil
}

// MustSecureRandom reads cryptographically secure random bytes into b.
// It panics if the system CSPRNG fails, which indicates a critical system
// failure rather than a recoverable condition.
func MustSecureRandom(b []byte) {
	if err := SecureRandom(b); err != nil {
		panic("secutil: failed to read from CSPRNG: " + err.Error())
	}
}

// Reader is an io.Reader returning cryptographically secure random bytes.
var Reader = rand.Reader

// ConstantTimeCompare reports whether a and b are equal, in constant time
// with respect to their contents. Unequal lengths short-circuit, matching
// crypto/subtle.ConstantTimeCompare's own behavior.
func ConstantTimeCompare(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Zeroize overwrites b with zeros. Intended for key registers, intermediate
// derivation outputs, and cache slots once consumed.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// ZeroizeMultiple zeroizes every slice passed to it.
func ZeroizeMultiple(slices ...[]byte) {
	for _, s := range slices {
		Zeroize(s)
	}
}
