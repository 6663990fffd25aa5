// Package errors defines the error kinds shared by the DUKPT-AES and HKDS
// key-distribution subsystems. Sentinel values allow callers to match with
// errors.Is; the wrapping types attach the operation and key/device context
// without ever embedding secret key material in an error string.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for primitive-level operations (AES, Keccak, SHA-2)
var (
	// ErrInvalidSize indicates an input or key buffer has an unsupported length.
	ErrInvalidSize = errors.New("hkds: invalid size")

	// ErrInvalidKey indicates a key is malformed, zero, or otherwise rejected.
	ErrInvalidKey = errors.New("hkds: invalid key")

	// ErrUnsupportedMode indicates a PrfMode/KeyType value outside the closed set.
	ErrUnsupportedMode = errors.New("hkds: unsupported mode")
)

// Sentinel errors for DUKPT/HKDS protocol operations
var (
	// ErrKeyExhausted indicates the transaction counter or key cache has been fully consumed.
	ErrKeyExhausted = errors.New("hkds: key exhausted")

	// ErrAuthenticationFailed indicates a MAC/KMAC tag did not verify.
	ErrAuthenticationFailed = errors.New("hkds: authentication failed")

	// ErrInvalidState indicates an operation was attempted from an invalid client/server state.
	ErrInvalidState = errors.New("hkds: invalid state")

	// ErrInvalidKSN indicates a key-serial-number is malformed or does not match the expected device.
	ErrInvalidKSN = errors.New("hkds: invalid KSN")

	// ErrCounterOverflow indicates the DUKPT transaction counter reached its
	// ANSI X9.24-3 ceiling. It wraps ErrKeyExhausted so callers matching on
	// the more general sentinel (per spec's "counter overflow -> KeyExhausted"
	// failure model) still match, while callers that care can distinguish
	// a spent counter from an emptied HKDS cache (ErrCacheExhausted).
	ErrCounterOverflow = fmt.Errorf("hkds: transaction counter overflow: %w", ErrKeyExhausted)

	// ErrCacheExhausted indicates an HKDS transaction-key cache has no remaining unused keys.
	ErrCacheExhausted = errors.New("hkds: key cache exhausted")

	// ErrInvalidToken indicates a server-issued token failed to decrypt or validate.
	ErrInvalidToken = errors.New("hkds: invalid token")
)

// KeyError wraps a primitive- or key-level failure with the operation that
// produced it. It never carries the key bytes themselves.
type KeyError struct {
	Op  string // operation that failed, e.g. "DeriveWorkingKey"
	Err error  // underlying sentinel error
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *KeyError) Unwrap() error {
	return e.Err
}

// NewKeyError creates a new KeyError.
func NewKeyError(op string, err error) *KeyError {
	return &KeyError{Op: op, Err: err}
}

// ProtocolError wraps a DUKPT/HKDS protocol failure with the device or key
// identity involved, for logging and metrics without leaking key material.
type ProtocolError struct {
	Phase string // protocol phase, e.g. "DecryptVerify"
	KSN   string // hex-encoded KSN or device identity, safe to log
	Err   error  // underlying sentinel error
}

func (e *ProtocolError) Error() string {
	if e.KSN == "" {
		return fmt.Sprintf("%s: %v", e.Phase, e.Err)
	}
	return fmt.Sprintf("%s[%s]: %v", e.Phase, e.KSN, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// NewProtocolError creates a new ProtocolError.
func NewProtocolError(phase, ksn string, err error) *ProtocolError {
	return &ProtocolError{Phase: phase, KSN: ksn, Err: err}
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
