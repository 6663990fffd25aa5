package hkds

import (
	"context"
	"encoding/hex"

	"github.com/dfd-labs/hkds-go/internal/constants"
	hkdserrors "github.com/dfd-labs/hkds-go/internal/errors"
	"github.com/dfd-labs/hkds-go/pkg/keccak"
	"github.com/dfd-labs/hkds-go/pkg/metrics"
	"github.com/dfd-labs/hkds-go/pkg/secutil"
	"github.com/dfd-labs/hkds-go/pkg/selftest"
)

func hkdsKSNHex(ksn []byte) string {
	return hex.EncodeToString(ksn)
}

// Server is the stateless counterpart to Client: every call recomputes the
// EDK, token, and transaction-key cache directly from the MasterKey and a
// KSN, retaining nothing between calls beyond the KSN it was given.
type Server struct {
	mdk       *MasterKey
	ksn       []byte
	cacheSize int

	observer *metrics.TransactionObserver
}

// NewServer binds a Server to one MasterKey and client KSN. cacheMultiplier
// must match the value the corresponding Client was constructed with; 0
// selects the default (spec.md §9: multiplier 4, cache size 8). Metrics and
// logging go through the package-global Collector/Logger unless the caller
// has configured its own.
func NewServer(mdk *MasterKey, ksn []byte, cacheMultiplier int) (*Server, error) {
	if _, _, err := ParseKSN(ksn); err != nil {
		return nil, err
	}
	if cacheMultiplier == 0 {
		cacheMultiplier = constants.HKDSDefaultCacheMultiplier
	}
	cacheSize, err := cacheSizeFromMultiplier(cacheMultiplier)
	if err != nil {
		return nil, err
	}
	observer := metrics.NewTransactionObserver(metrics.TransactionObserverConfig{Role: "server"})
	return &Server{mdk: mdk, ksn: append([]byte(nil), ksn...), cacheSize: cacheSize, observer: observer}, nil
}

// KSN returns the server's current view of the client's key serial number.
// Callers update it as the client's counter advances.
func (s *Server) KSN() []byte {
	return s.ksn
}

// SetKSN updates the server's view of the client's KSN, tracking the
// client's counter as transactions proceed.
func (s *Server) SetKSN(ksn []byte) error {
	if _, _, err := ParseKSN(ksn); err != nil {
		return err
	}
	s.ksn = append([]byte(nil), ksn...)
	return nil
}

// EncryptToken derives the epoch token from STK and encrypts it under the
// device's EDK-derived keystream, ready to send to the client.
func (s *Server) EncryptToken() ([]byte, error) {
	_, done := s.observer.OnTokenExchangeStart(context.Background())
	var err error
	defer func() { done(err) }()

	var deviceID []byte
	var counter uint32
	deviceID, counter, err = ParseKSN(s.ksn)
	if err != nil {
		return nil, err
	}
	var token []byte
	token, err = generateToken(s.mdk.STK, s.mdk.KID, deviceID, counter, s.cacheSize)
	if err != nil {
		return nil, err
	}
	defer secutil.Zeroize(token)

	var edk []byte
	edk, err = GenerateEDK(s.mdk.BDK, deviceID)
	if err != nil {
		return nil, err
	}
	defer secutil.Zeroize(edk)

	var ctok []byte
	ctok, err = tokenKeystream(edk, deviceID, counter, s.cacheSize, token)
	return ctok, err
}

// recomputeCache derives EDK, token, and the full transaction-key cache for
// the server's current KSN directly from the MasterKey.
func (s *Server) recomputeCache() (deviceID []byte, counter uint32, cache [][]byte, err error) {
	_, done := s.observer.OnCacheRefillStart(context.Background())
	defer func() { done(err) }()

	deviceID, counter, err = ParseKSN(s.ksn)
	if err != nil {
		return nil, 0, nil, err
	}
	token, terr := generateToken(s.mdk.STK, s.mdk.KID, deviceID, counter, s.cacheSize)
	if terr != nil {
		err = terr
		return nil, 0, nil, err
	}
	defer secutil.Zeroize(token)

	edk, eerr := GenerateEDK(s.mdk.BDK, deviceID)
	if eerr != nil {
		err = eerr
		return nil, 0, nil, err
	}
	defer secutil.Zeroize(edk)

	cache, err = generateCache(edk, deviceID, counter, s.cacheSize, token)
	if err != nil {
		return nil, 0, nil, err
	}

	if cErr := selftest.RunDerivationConsistencyTest(func() ([]byte, error) {
		again, err := generateCache(edk, deviceID, counter, s.cacheSize, token)
		if err != nil {
			return nil, err
		}
		flat := make([]byte, 0, len(again)*constants.HKDSMessageSize)
		for _, slot := range again {
			flat = append(flat, slot...)
		}
		return flat, nil
	}); cErr != nil {
		zeroizeAll(cache)
		err = hkdserrors.NewKeyError("recomputeCache", cErr)
		return nil, 0, nil, err
	}

	return deviceID, counter, cache, nil
}

// Decrypt recomputes the transaction key for the server's current KSN and
// decrypts a 16-byte ciphertext block.
func (s *Server) Decrypt(ciphertext []byte) ([]byte, error) {
	_, done := s.observer.OnDecrypt(context.Background(), len(ciphertext))
	var err error
	defer func() { done(err) }()

	if len(ciphertext) != constants.HKDSMessageSize {
		err = hkdserrors.NewKeyError("Decrypt", hkdserrors.ErrInvalidSize)
		return nil, err
	}
	var counter uint32
	var cache [][]byte
	_, counter, cache, err = s.recomputeCache()
	if err != nil {
		return nil, err
	}
	defer zeroizeAll(cache)

	tk := cache[int(counter)%s.cacheSize]
	pt := make([]byte, constants.HKDSMessageSize)
	for i := range pt {
		pt[i] = ciphertext[i] ^ tk[i]
	}
	return pt, nil
}

// DecryptVerify verifies the trailing KMAC tag over ciphertext||additionalData
// with the epoch's second key of the pair before decrypting with the first.
// A tag mismatch leaves the ciphertext undecrypted.
func (s *Server) DecryptVerify(ciphertext, additionalData []byte) ([]byte, error) {
	if len(ciphertext) != constants.HKDSMessageSize+constants.HKDSTagSize {
		return nil, hkdserrors.NewKeyError("DecryptVerify", hkdserrors.ErrInvalidSize)
	}
	ct := ciphertext[:constants.HKDSMessageSize]
	tag := ciphertext[constants.HKDSMessageSize:]

	deviceID, counter, cache, err := s.recomputeCache()
	if err != nil {
		return nil, err
	}
	defer zeroizeAll(cache)

	idx := int(counter) % s.cacheSize
	if idx+1 >= s.cacheSize {
		return nil, hkdserrors.NewKeyError("DecryptVerify", hkdserrors.ErrInvalidKSN)
	}
	tkE, tkM := cache[idx], cache[idx+1]

	mode, err := ModeFromDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	rate, err := rateFor(mode)
	if err != nil {
		return nil, err
	}
	expected := keccak.KMAC(rate, tkM, []byte(constants.HKDSCustomizationString), append(append([]byte(nil), ct...), additionalData...), constants.HKDSTagSize)
	if !secutil.ConstantTimeCompare(expected, tag) {
		s.observer.OnAuthFailure()
		return nil, hkdserrors.NewProtocolError("DecryptVerify", hkdsKSNHex(s.ksn), hkdserrors.ErrAuthenticationFailed)
	}

	pt := make([]byte, constants.HKDSMessageSize)
	for i := range pt {
		pt[i] = ct[i] ^ tkE[i]
	}
	return pt, nil
}

func zeroizeAll(cache [][]byte) {
	for _, slot := range cache {
		secutil.Zeroize(slot)
	}
}
