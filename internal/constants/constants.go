// Package constants defines wire sizes and protocol constants shared by the
// DUKPT-AES and HKDS key-distribution subsystems.
package constants

// HKDS protocol identification (DeviceId.ProtocolId, spec.md §3)
const (
	// HKDSProtocolUnauthenticated marks a DeviceId that uses plain XOR-keystream encryption.
	HKDSProtocolUnauthenticated byte = 0x10
	// HKDSProtocolAuthenticated marks a DeviceId that uses the KMAC-authenticated mode.
	HKDSProtocolAuthenticated byte = 0x11
)

// PrfMode selects the Keccak rate used by a device for cache/token derivation.
// Encoded in DeviceId[5], the PrfMode byte of the DeviceId layout.
type PrfMode byte

const (
	// PrfShake128 selects the standard FIPS-202 SHAKE-128 sponge (rate 168 bytes).
	PrfShake128 PrfMode = 0x09
	// PrfShake256 selects the standard FIPS-202 SHAKE-256 sponge (rate 136 bytes).
	PrfShake256 PrfMode = 0x0A
	// PrfShake512 selects the non-standard 576-bit-capacity sponge (rate 72 bytes).
	// This is NOT the FIPS-202 SHA3-512/SHAKE construction; see pkg/keccak.
	PrfShake512 PrfMode = 0x0B
)

// String returns a human-readable name for the PRF mode.
func (p PrfMode) String() string {
	switch p {
	case PrfShake128:
		return "SHAKE-128"
	case PrfShake256:
		return "SHAKE-256"
	case PrfShake512:
		return "SHAKE-512 (non-standard)"
	default:
		return "Unknown"
	}
}

// KeySize returns the BDK/STK/EDK/token key size associated with a PRF mode.
func (p PrfMode) KeySize() int {
	switch p {
	case PrfShake128:
		return 16
	case PrfShake256:
		return 32
	case PrfShake512:
		return 64
	default:
		return 0
	}
}

// IsSupported reports whether p is one of the three defined PRF modes.
func (p PrfMode) IsSupported() bool {
	switch p {
	case PrfShake128, PrfShake256, PrfShake512:
		return true
	default:
		return false
	}
}

// HKDS sizes (spec.md §3, §4.8)
const (
	// HKDSDeviceIDSize is the size of the HKDS DeviceId in bytes.
	HKDSDeviceIDSize = 12
	// HKDSKSNSize is the size of the HKDS KSN (DeviceId || 4-byte LE counter).
	HKDSKSNSize = 16
	// HKDSKIDSize is the size of the HKDS master-key identity in bytes.
	HKDSKIDSize = 4
	// HKDSMessageSize is the fixed message/ciphertext block size.
	HKDSMessageSize = 16
	// HKDSTagSize is the KMAC authentication tag size in authenticated mode.
	HKDSTagSize = 16
	// HKDSMinMasterKeySize is the minimum allowed BDK/STK size.
	HKDSMinMasterKeySize = 16
	// HKDSDefaultCacheMultiplier is the recommended cache-size multiplier.
	HKDSDefaultCacheMultiplier = 4
	// HKDSMaxCacheMultiplier is the hard upper limit on the cache-size multiplier (spec.md §3: hard limit 12 keys).
	HKDSMaxCacheMultiplier = 6
	// HKDSCustomizationString is the cSHAKE customization string used by KMAC.
	HKDSCustomizationString = "HKDS"
)

// DUKPT sizes (spec.md §3, §4.5-§4.7, ANSI X9.24-3 2017)
const (
	// DukptInitialKeyIDSize is the size of the DUKPT InitialKeyId in bytes.
	DukptInitialKeyIDSize = 8
	// DukptCounterSize is the size of the DUKPT transaction counter in bytes.
	DukptCounterSize = 4
	// DukptKSNSize is the size of the DUKPT KSN (InitialKeyId || 4-byte BE counter).
	DukptKSNSize = DukptInitialKeyIDSize + DukptCounterSize
	// DukptDerivationDataSize is the size of one AES-block derivation-data structure.
	DukptDerivationDataSize = 16
	// DukptMessageSize is the fixed PIN-block message/ciphertext size.
	DukptMessageSize = 16
	// DukptHMACTagSize is the size of the full HMAC-SHA-256 authentication tag.
	DukptHMACTagSize = 32
	// DukptIntermediateKeyRegisters is the number of shift-register slots (one per counter bit).
	DukptIntermediateKeyRegisters = 32
	// DukptMaxWorkingCounter is the ANSI X9.24-3 transaction-counter ceiling (2^32 - 2^16).
	DukptMaxWorkingCounter uint32 = 0xFFFF0000
)

// DukptKeyType is the closed set of AES key sizes DUKPT can derive.
type DukptKeyType byte

const (
	DukptKeyTypeNone   DukptKeyType = 0x00
	DukptKeyTypeAES128 DukptKeyType = 0x02
	DukptKeyTypeAES192 DukptKeyType = 0x03
	DukptKeyTypeAES256 DukptKeyType = 0x04
)

// Bytes returns the AES key length in bytes for the key type.
func (k DukptKeyType) Bytes() int {
	switch k {
	case DukptKeyTypeAES128:
		return 16
	case DukptKeyTypeAES192:
		return 24
	case DukptKeyTypeAES256:
		return 32
	default:
		return 0
	}
}

// Bits returns the AES key length in bits for the key type.
func (k DukptKeyType) Bits() int {
	return k.Bytes() * 8
}

// DukptKeyTypeFromKeySize maps an AES key length in bytes back to its DukptKeyType.
func DukptKeyTypeFromKeySize(n int) DukptKeyType {
	switch n {
	case 16:
		return DukptKeyTypeAES128
	case 24:
		return DukptKeyTypeAES192
	case 32:
		return DukptKeyTypeAES256
	default:
		return DukptKeyTypeNone
	}
}

// DukptDerivationPurpose distinguishes initial-key derivation from
// working/intermediate-key derivation (ANSI X9.24-3 §B.3.1).
type DukptDerivationPurpose byte

const (
	DukptPurposeInitialKey             DukptDerivationPurpose = 0x00
	DukptPurposeDerivationOrWorkingKey DukptDerivationPurpose = 0x01
)

// DukptKeyUsage is the closed set of key-usage tags from ANSI X9.24-3 §B.3.1.
type DukptKeyUsage uint16

const (
	DukptUsageNone                  DukptKeyUsage = 0x0000
	DukptUsageKeyEncryptionKey      DukptKeyUsage = 0x0002
	DukptUsageKeyDerivationInitial  DukptKeyUsage = 0x0009
	DukptUsagePINEncryption         DukptKeyUsage = 0x1000
	DukptUsageMACGeneration         DukptKeyUsage = 0x2000
	DukptUsageMACVerification       DukptKeyUsage = 0x2001
	DukptUsageMACBothWays           DukptKeyUsage = 0x2002
	DukptUsageDataEncryptionEncrypt DukptKeyUsage = 0x3000
	DukptUsageDataEncryptionDecrypt DukptKeyUsage = 0x3001
	DukptUsageDataEncryptionBoth    DukptKeyUsage = 0x3002
	DukptUsageKeyDerivation         DukptKeyUsage = 0x8000
)
