package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestKeyError(t *testing.T) {
	baseErr := errors.New("base error")
	kerr := NewKeyError("derive-working-key", baseErr)

	errStr := kerr.Error()
	if !strings.Contains(errStr, "derive-working-key") {
		t.Errorf("Error string should contain operation: %q", errStr)
	}
	if !strings.Contains(errStr, "base error") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}

	unwrapped := kerr.Unwrap()
	if unwrapped != baseErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, baseErr)
	}

	if kerr.Op != "derive-working-key" {
		t.Errorf("Op = %q, want %q", kerr.Op, "derive-working-key")
	}
	if kerr.Err != baseErr {
		t.Errorf("Err = %v, want %v", kerr.Err, baseErr)
	}
}

func TestProtocolError(t *testing.T) {
	baseErr := errors.New("tag mismatch")
	perr := NewProtocolError("DecryptVerify", "ab01cd02ef030405", baseErr)

	errStr := perr.Error()
	if !strings.Contains(errStr, "DecryptVerify") {
		t.Errorf("Error string should contain phase: %q", errStr)
	}
	if !strings.Contains(errStr, "ab01cd02ef030405") {
		t.Errorf("Error string should contain KSN: %q", errStr)
	}
	if !strings.Contains(errStr, "tag mismatch") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}

	unwrapped := perr.Unwrap()
	if unwrapped != baseErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, baseErr)
	}
}

func TestProtocolErrorWithoutKSN(t *testing.T) {
	perr := NewProtocolError("GenerateKeyCache", "", ErrInvalidState)
	errStr := perr.Error()
	if strings.Contains(errStr, "[]") {
		t.Errorf("Error string should not render an empty KSN bracket: %q", errStr)
	}
	if !strings.Contains(errStr, "GenerateKeyCache") {
		t.Errorf("Error string should contain phase: %q", errStr)
	}
}

func TestIsFunction(t *testing.T) {
	err := ErrInvalidKey
	if !Is(err, ErrInvalidKey) {
		t.Error("Is() should return true for matching sentinel error")
	}

	wrappedErr := NewKeyError("operation", ErrKeyExhausted)
	if !Is(wrappedErr, ErrKeyExhausted) {
		t.Error("Is() should return true for wrapped sentinel error")
	}

	if Is(err, ErrInvalidSize) {
		t.Error("Is() should return false for non-matching error")
	}
}

func TestAsFunction(t *testing.T) {
	kerr := NewKeyError("test-op", ErrKeyExhausted)

	var target *KeyError
	if !As(kerr, &target) {
		t.Error("As() should return true for matching type")
	}
	if target.Op != "test-op" {
		t.Errorf("As() extracted Op = %q, want %q", target.Op, "test-op")
	}

	var protocolErr *ProtocolError
	if As(kerr, &protocolErr) {
		t.Error("As() should return false for non-matching type")
	}
}

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrInvalidSize", ErrInvalidSize},
		{"ErrInvalidKey", ErrInvalidKey},
		{"ErrUnsupportedMode", ErrUnsupportedMode},
		{"ErrKeyExhausted", ErrKeyExhausted},
		{"ErrAuthenticationFailed", ErrAuthenticationFailed},
		{"ErrInvalidState", ErrInvalidState},
		{"ErrInvalidKSN", ErrInvalidKSN},
		{"ErrCounterOverflow", ErrCounterOverflow},
		{"ErrCacheExhausted", ErrCacheExhausted},
		{"ErrInvalidToken", ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err == nil {
				t.Errorf("%s is nil", tt.name)
			}
			if tt.err.Error() == "" {
				t.Errorf("%s.Error() returned empty string", tt.name)
			}
		})
	}
}

func TestKeyErrorWrapping(t *testing.T) {
	baseErr := ErrInvalidKey
	wrapped := NewKeyError("load-initial-key", baseErr)

	if !errors.Is(wrapped, baseErr) {
		t.Error("Wrapped error should match base error with errors.Is")
	}

	doubleWrapped := NewKeyError("outer-op", wrapped)
	if !errors.Is(doubleWrapped, baseErr) {
		t.Error("Double-wrapped error should still match base error")
	}

	var keyErr *KeyError
	if !errors.As(doubleWrapped, &keyErr) {
		t.Error("Should be able to extract KeyError from double-wrapped")
	}
	if keyErr.Op != "outer-op" {
		t.Errorf("Extracted Op = %q, want %q", keyErr.Op, "outer-op")
	}
}

func TestProtocolErrorWrapping(t *testing.T) {
	baseErr := ErrAuthenticationFailed
	wrapped := NewProtocolError("DecryptVerify", "deadbeef", baseErr)

	if !errors.Is(wrapped, baseErr) {
		t.Error("Wrapped error should match base error with errors.Is")
	}

	var protocolErr *ProtocolError
	if !errors.As(wrapped, &protocolErr) {
		t.Error("Should be able to extract ProtocolError")
	}
	if protocolErr.Phase != "DecryptVerify" {
		t.Errorf("Extracted Phase = %q, want %q", protocolErr.Phase, "DecryptVerify")
	}
}

func TestMixedErrorTypes(t *testing.T) {
	keyErr := NewKeyError("derive-key", ErrKeyExhausted)
	protocolErr := NewProtocolError("Encrypt", "01020304", keyErr)

	var ke *KeyError
	if !errors.As(protocolErr, &ke) {
		t.Error("Should be able to extract KeyError from ProtocolError wrapper")
	}

	var pe *ProtocolError
	if !errors.As(protocolErr, &pe) {
		t.Error("Should be able to extract ProtocolError")
	}

	if !errors.Is(protocolErr, ErrKeyExhausted) {
		t.Error("Should match base sentinel error through multiple wrappers")
	}
}

func TestErrorContextPreservation(t *testing.T) {
	err := NewKeyError("operation-1", ErrKeyExhausted)
	wrapped := NewProtocolError("phase-1", "", err)

	errStr := wrapped.Error()
	if !strings.Contains(errStr, "phase-1") {
		t.Errorf("Error string missing protocol phase: %q", errStr)
	}
	if !strings.Contains(errStr, "operation-1") {
		t.Errorf("Error string missing key operation: %q", errStr)
	}
	if !strings.Contains(errStr, "key exhausted") {
		t.Errorf("Error string missing base error: %q", errStr)
	}
}

func TestNilErrorHandling(t *testing.T) {
	if Is(nil, ErrInvalidKey) {
		t.Error("Is(nil, target) should return false")
	}

	var target *KeyError
	if As(nil, &target) {
		t.Error("As(nil, target) should return false")
	}
}
