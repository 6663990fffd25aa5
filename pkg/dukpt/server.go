package dukpt

import (
	"context"
	"encoding/binary"
	"encoding/hex"

	"github.com/dfd-labs/hkds-go/internal/constants"
	hkdserrors "github.com/dfd-labs/hkds-go/internal/errors"
	"github.com/dfd-labs/hkds-go/pkg/ecb"
	"github.com/dfd-labs/hkds-go/pkg/metrics"
	"github.com/dfd-labs/hkds-go/pkg/secutil"
	"github.com/dfd-labs/hkds-go/pkg/selftest"
	"github.com/dfd-labs/hkds-go/pkg/sha2"
)

// Server is the stateless counterpart to Client: it holds no per-device
// state and recomputes any requested working key directly from the Base
// Derivation Key and a KSN on every call.
type Server struct {
	bdk     []byte
	keyType constants.DukptKeyType

	observer *metrics.TransactionObserver
}

// NewServer binds a Server to one Base Derivation Key. Metrics and logging
// go through the package-global Collector/Logger (see pkg/metrics.Global,
// pkg/metrics.SetLogger) unless the caller has configured its own.
func NewServer(bdk []byte, keyType constants.DukptKeyType) (*Server, error) {
	if len(bdk) != keyType.Bytes() {
		return nil, hkdserrors.NewKeyError("NewServer", hkdserrors.ErrInvalidKey)
	}
	observer := metrics.NewTransactionObserver(metrics.TransactionObserverConfig{Role: "server"})
	return &Server{bdk: append([]byte(nil), bdk...), keyType: keyType, observer: observer}, nil
}

// DeriveWorkingKey recomputes the working key for usage/keyType at the
// given InitialKeyId/counter, re-deriving the Initial Key and then walking
// the counter's set bits from MSB to LSB (ANSI X9.24-3 §B.6.2). Each
// intermediate re-key uses the accumulator of bits folded in so far — only
// the final derivation (for the caller's requested usage) uses the full
// counter value unmodified.
func (s *Server) DeriveWorkingKey(initialKeyID []byte, counter uint32, usage constants.DukptKeyUsage, keyType constants.DukptKeyType) ([]byte, error) {
	s.observer.OnTransactionStart()

	wk, err := s.deriveWorkingKey(initialKeyID, counter, usage, keyType)
	if err != nil {
		s.observer.OnTransactionFailed(err)
		return nil, err
	}

	if err := selftest.RunDerivationConsistencyTest(func() ([]byte, error) {
		return s.deriveWorkingKey(initialKeyID, counter, usage, keyType)
	}); err != nil {
		secutil.Zeroize(wk)
		wrapped := hkdserrors.NewKeyError("DeriveWorkingKey", err)
		s.observer.OnTransactionFailed(wrapped)
		return nil, wrapped
	}
	s.observer.OnTransactionEnd()
	return wk, nil
}

// deriveWorkingKey is the unexported derivation core, called directly by
// DeriveWorkingKey and a second time (with identical inputs) by the optional
// consistency check above, so the check never recurses into itself.
func (s *Server) deriveWorkingKey(initialKeyID []byte, counter uint32, usage constants.DukptKeyUsage, keyType constants.DukptKeyType) ([]byte, error) {
	if len(initialKeyID) != constants.DukptInitialKeyIDSize {
		return nil, hkdserrors.NewKeyError("DeriveWorkingKey", hkdserrors.ErrInvalidSize)
	}

	key, err := DeriveInitialKey(s.bdk, s.keyType, initialKeyID)
	if err != nil {
		return nil, err
	}
	defer secutil.Zeroize(key)

	var mask uint32 = 0x80000000
	var wctr uint32
	for mask > 0 {
		if mask&counter != 0 {
			wctr |= mask
			data, err := CreateDerivationData(constants.DukptPurposeDerivationOrWorkingKey, constants.DukptUsageKeyDerivation, s.keyType, initialKeyID, wctr)
			if err != nil {
				return nil, err
			}
			nextKey, err := DeriveKey(key, s.keyType, data)
			if err != nil {
				return nil, err
			}
			secutil.Zeroize(key)
			key = nextKey
		}
		mask >>= 1
	}

	data, err := CreateDerivationData(constants.DukptPurposeDerivationOrWorkingKey, usage, keyType, initialKeyID, counter)
	if err != nil {
		return nil, err
	}
	return DeriveKey(key, keyType, data)
}

// parseKSN splits a 12-byte KSN into its 8-byte InitialKeyId and 4-byte
// big-endian transaction counter (spec §4.2).
func parseKSN(ksn []byte) (initialKeyID []byte, counter uint32, err error) {
	if len(ksn) != constants.DukptKSNSize {
		return nil, 0, hkdserrors.NewKeyError("parseKSN", hkdserrors.ErrInvalidKSN)
	}
	return ksn[:constants.DukptInitialKeyIDSize], binary.BigEndian.Uint32(ksn[constants.DukptInitialKeyIDSize:]), nil
}

// Decrypt derives the PIN Encryption key at the KSN's counter and decrypts
// a single 16-byte ciphertext block.
func (s *Server) Decrypt(ksn, ciphertext []byte) ([]byte, error) {
	_, done := s.observer.OnDecrypt(context.Background(), len(ciphertext))
	var err error
	defer func() { done(err) }()

	var initialKeyID []byte
	var counter uint32
	initialKeyID, counter, err = parseKSN(ksn)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) != constants.DukptMessageSize {
		err = hkdserrors.NewKeyError("Decrypt", hkdserrors.ErrInvalidSize)
		return nil, err
	}

	wk, derr := s.DeriveWorkingKey(initialKeyID, counter, constants.DukptUsagePINEncryption, s.keyType)
	if derr != nil {
		err = derr
		return nil, err
	}
	defer secutil.Zeroize(wk)

	pt, derr := ecb.Decrypt(wk, ciphertext)
	if derr != nil {
		err = hkdserrors.NewKeyError("Decrypt", derr)
		return nil, err
	}
	return pt, nil
}

// DecryptVerify verifies the trailing 32-byte HMAC-SHA-256 tag (computed
// with the MAC key at counter+1, over additionalData||ciphertext) before
// decrypting the leading 16-byte ciphertext block with the PIN key at the
// KSN's original counter. A tag mismatch leaves the ciphertext undecrypted.
func (s *Server) DecryptVerify(ksn, ciphertext, additionalData []byte) ([]byte, error) {
	initialKeyID, counter, err := parseKSN(ksn)
	if err != nil {
		return nil, err
	}
	if len(ciphertext) != constants.DukptMessageSize+constants.DukptHMACTagSize {
		return nil, hkdserrors.NewKeyError("DecryptVerify", hkdserrors.ErrInvalidSize)
	}
	ct := ciphertext[:constants.DukptMessageSize]
	tag := ciphertext[constants.DukptMessageSize:]

	macKey, err := s.DeriveWorkingKey(initialKeyID, counter+1, constants.DukptUsageMACBothWays, s.keyType)
	if err != nil {
		return nil, err
	}
	defer secutil.Zeroize(macKey)

	expected := sha2.HMACSHA256(macKey, append(append([]byte(nil), additionalData...), ct...))
	if !secutil.ConstantTimeCompare(expected, tag) {
		s.observer.OnAuthFailure()
		return nil, hkdserrors.NewProtocolError("DecryptVerify", hex.EncodeToString(ksn), hkdserrors.ErrAuthenticationFailed)
	}

	return s.Decrypt(ksn, ct)
}
