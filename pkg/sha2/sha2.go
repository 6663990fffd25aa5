// Package sha2 wraps the FIPS-180-4 SHA-256/SHA-512 digests and the RFC 2104
// HMAC-SHA-256 construction DUKPT's authenticated mode uses as its MAC
// baseline. Verification uses a fixed-time comparison so that a MAC mismatch
// never leaks timing information about how many leading bytes matched.
package sha2

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"

	hkdserrors "github.com/dfd-labs/hkds-go/internal/errors"
	"github.com/dfd-labs/hkds-go/pkg/secutil"
)

// Sum256 returns the SHA-256 digest of msg.
func Sum256(msg []byte) [32]byte {
	return sha256.Sum256(msg)
}

// Sum512 returns the SHA-512 digest of msg.
func Sum512(msg []byte) [64]byte {
	return sha512.Sum512(msg)
}

// HMACSHA256 computes HMAC-SHA-256(key, msg). key may be any length; RFC
// 2104 recommends no more than 64 bytes (the SHA-256 block size) but longer
// keys are accepted and hashed down by the underlying implementation.
func HMACSHA256(key, msg []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(msg)
	return mac.Sum(nil)
}

// VerifyHMACSHA256 recomputes HMAC-SHA-256(key, msg) and compares it against
// tag in constant time, returning ErrAuthenticationFailed on mismatch.
func VerifyHMACSHA256(key, msg, tag []byte) error {
	want := HMACSHA256(key, msg)
	if !secutil.ConstantTimeCompare(want, tag) {
		return hkdserrors.NewKeyError("VerifyHMACSHA256", hkdserrors.ErrAuthenticationFailed)
	}
	return nil
}
