package hkds

import (
	"encoding/binary"

	"github.com/dfd-labs/hkds-go/internal/constants"
	hkdserrors "github.com/dfd-labs/hkds-go/internal/errors"
	"github.com/dfd-labs/hkds-go/pkg/keccak"
)

// deviceIDModeOffset is the PrfMode byte position within a DeviceId
// (spec.md §3: BdkId(4) || ProtocolId(1) || PrfMode(1) || ManufacturerId(2) || DeviceIdTail(4)).
const deviceIDModeOffset = 5

// ModeFromDeviceID reads the PrfMode byte embedded in a DeviceId.
func ModeFromDeviceID(deviceID []byte) (constants.PrfMode, error) {
	if len(deviceID) != constants.HKDSDeviceIDSize {
		return 0, hkdserrors.NewKeyError("ModeFromDeviceID", hkdserrors.ErrInvalidSize)
	}
	mode := constants.PrfMode(deviceID[deviceIDModeOffset])
	if !mode.IsSupported() {
		return 0, hkdserrors.NewKeyError("ModeFromDeviceID", hkdserrors.ErrUnsupportedMode)
	}
	return mode, nil
}

// rateFor resolves a PrfMode straight to its Keccak rate.
func rateFor(mode constants.PrfMode) (int, error) {
	rate, ok := keccak.RateForKeySize(mode.KeySize())
	if !ok {
		return 0, hkdserrors.NewKeyError("rateFor", hkdserrors.ErrUnsupportedMode)
	}
	return rate, nil
}

// BuildKSN assembles a 16-byte KSN: DeviceId(12) || Counter(4 little-endian).
func BuildKSN(deviceID []byte, counter uint32) ([]byte, error) {
	if len(deviceID) != constants.HKDSDeviceIDSize {
		return nil, hkdserrors.NewKeyError("BuildKSN", hkdserrors.ErrInvalidSize)
	}
	ksn := make([]byte, constants.HKDSKSNSize)
	copy(ksn, deviceID)
	putUint32LE(ksn[constants.HKDSDeviceIDSize:], counter)
	return ksn, nil
}

// ParseKSN splits a 16-byte KSN into DeviceId and counter.
func ParseKSN(ksn []byte) (deviceID []byte, counter uint32, err error) {
	if len(ksn) != constants.HKDSKSNSize {
		return nil, 0, hkdserrors.NewKeyError("ParseKSN", hkdserrors.ErrInvalidKSN)
	}
	return ksn[:constants.HKDSDeviceIDSize], binary.LittleEndian.Uint32(ksn[constants.HKDSDeviceIDSize:]), nil
}

// epochKSN is the 16-byte value both sides derive to identify a cache
// epoch: DeviceId(12) || floor(Counter/CacheSize) as 4-byte little-endian.
// It stands in for the "KSN_epoch_prefix" named informally in the protocol
// description, and is used identically as the nonce-like input to both
// token encryption and cache derivation so client and server always agree.
func epochKSN(deviceID []byte, counter uint32, cacheSize int) []byte {
	out := make([]byte, constants.HKDSDeviceIDSize+4)
	copy(out, deviceID)
	putUint32LE(out[constants.HKDSDeviceIDSize:], counter/uint32(cacheSize))
	return out
}

// GenerateEDK derives a device's Embedded Device Key from the BDK at device
// personalization: edk = SHAKE-mode(BDK || DeviceId, mode.KeySize()).
func GenerateEDK(bdk, deviceID []byte) ([]byte, error) {
	mode, err := ModeFromDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	if len(bdk) != mode.KeySize() {
		return nil, hkdserrors.NewKeyError("GenerateEDK", hkdserrors.ErrInvalidKey)
	}
	rate, err := rateFor(mode)
	if err != nil {
		return nil, err
	}
	return keccak.XOF(rate, append(append([]byte(nil), bdk...), deviceID...), mode.KeySize()), nil
}

// generateToken derives the server's epoch token:
// token = SHAKE-mode(STK || KID || DeviceId || LE32(epoch), mode.KeySize()).
func generateToken(stk []byte, kid [constants.HKDSKIDSize]byte, deviceID []byte, counter uint32, cacheSize int) ([]byte, error) {
	mode, err := ModeFromDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	if len(stk) != mode.KeySize() {
		return nil, hkdserrors.NewKeyError("generateToken", hkdserrors.ErrInvalidKey)
	}
	rate, err := rateFor(mode)
	if err != nil {
		return nil, err
	}

	epoch := make([]byte, 4)
	putUint32LE(epoch, counter/uint32(cacheSize))

	input := make([]byte, 0, len(stk)+len(kid)+len(deviceID)+len(epoch))
	input = append(input, stk...)
	input = append(input, kid[:]...)
	input = append(input, deviceID...)
	input = append(input, epoch...)
	return keccak.XOF(rate, input, mode.KeySize()), nil
}

// tokenKeystream encrypts or decrypts a token in place (XOR is its own
// inverse): ctok = token XOR SHAKE-mode(EDK || epochKSN, |token|).
func tokenKeystream(edk, deviceID []byte, counter uint32, cacheSize int, token []byte) ([]byte, error) {
	mode, err := ModeFromDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	rate, err := rateFor(mode)
	if err != nil {
		return nil, err
	}

	stream := keccak.XOF(rate, append(append([]byte(nil), edk...), epochKSN(deviceID, counter, cacheSize)...), len(token))
	out := make([]byte, len(token))
	for i := range out {
		out[i] = token[i] ^ stream[i]
	}
	return out, nil
}

// generateCache derives the CacheSize transaction keys for one epoch:
// squeeze(SHAKE-mode, EDK || token || epochKSN, cacheSize*16), split into
// 16-byte slices.
func generateCache(edk, deviceID []byte, counter uint32, cacheSize int, token []byte) ([][]byte, error) {
	mode, err := ModeFromDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	rate, err := rateFor(mode)
	if err != nil {
		return nil, err
	}

	input := make([]byte, 0, len(edk)+len(token)+constants.HKDSDeviceIDSize+4)
	input = append(input, edk...)
	input = append(input, token...)
	input = append(input, epochKSN(deviceID, counter, cacheSize)...)

	stream := keccak.XOF(rate, input, cacheSize*constants.HKDSMessageSize)
	cache := make([][]byte, cacheSize)
	for i := range cache {
		off := i * constants.HKDSMessageSize
		cache[i] = append([]byte(nil), stream[off:off+constants.HKDSMessageSize]...)
	}
	return cache, nil
}

// cacheSizeFromMultiplier applies spec.md §3's N = CacheMultiplier*2 rule,
// rejecting a multiplier outside [1, HKDSMaxCacheMultiplier].
func cacheSizeFromMultiplier(multiplier int) (int, error) {
	if multiplier < 1 || multiplier > constants.HKDSMaxCacheMultiplier {
		return 0, hkdserrors.NewKeyError("cacheSizeFromMultiplier", hkdserrors.ErrInvalidSize)
	}
	return multiplier * 2, nil
}
