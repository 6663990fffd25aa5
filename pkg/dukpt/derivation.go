// Package dukpt implements the ANSI X9.24-3 2017 DUKPT-AES key-derivation
// state machine: the per-device client that maintains a shift register of
// intermediate keys, and the stateless server that recomputes any working
// key directly from the Base Derivation Key and a KSN.
//
// Mathematical Foundation:
//
// Every derived key is produced by one or more single-block AES-ECB
// encryptions of a fixed 16-byte "derivation data" structure under a
// 128/192/256-bit derivation key (pkg/ecb). The structure differs only in
// its KeyUsage tag and its trailing 8-byte context, so the whole protocol
// reduces to disciplined re-use of one primitive: DeriveKey.
package dukpt

import (
	"encoding/binary"

	"github.com/dfd-labs/hkds-go/internal/constants"
	hkdserrors "github.com/dfd-labs/hkds-go/internal/errors"
	"github.com/dfd-labs/hkds-go/pkg/ecb"
)

// DerivationDataSize is the fixed size of one derivation-data block.
const DerivationDataSize = constants.DukptDerivationDataSize

// algorithmIndicator returns the 2-byte AlgorithmIndicator field for a key
// type (spec §4.5): numerically identical to the DukptKeyType tag itself.
func algorithmIndicator(kt constants.DukptKeyType) uint16 {
	return uint16(kt)
}

// CreateDerivationData builds the 16-byte ANSI X9.24-3 §B.4.3 derivation-data
// structure. initialKeyID must be 8 bytes.
//
// Layout:
//
//	[0]    Version, always 0x01
//	[1]    Format, always 0x01 (overwritten per-block by DeriveKey)
//	[2:4]  KeyUsage tag, big-endian
//	[4:6]  AlgorithmIndicator, big-endian
//	[6:8]  KeyLengthBits, big-endian
//	[8:16] Context: full InitialKeyId for DukptPurposeInitialKey, else the
//	       last 4 bytes of InitialKeyId followed by the 4-byte big-endian
//	       transaction counter.
func CreateDerivationData(purpose constants.DukptDerivationPurpose, usage constants.DukptKeyUsage, keyType constants.DukptKeyType, initialKeyID []byte, counter uint32) ([DerivationDataSize]byte, error) {
	var data [DerivationDataSize]byte
	if len(initialKeyID) != constants.DukptInitialKeyIDSize {
		return data, hkdserrors.NewKeyError("CreateDerivationData", hkdserrors.ErrInvalidSize)
	}

	data[0] = 0x01
	data[1] = 0x01
	binary.BigEndian.PutUint16(data[2:4], uint16(usage))
	binary.BigEndian.PutUint16(data[4:6], algorithmIndicator(keyType))
	binary.BigEndian.PutUint16(data[6:8], uint16(keyType.Bits()))

	if purpose == constants.DukptPurposeInitialKey {
		copy(data[8:16], initialKeyID)
	} else {
		copy(data[8:12], initialKeyID[4:8])
		binary.BigEndian.PutUint32(data[12:16], counter)
	}
	return data, nil
}

// DeriveKey derives a keyType-shaped key from derivationKey using the
// template in data. The template's block-index byte (offset 1) is
// overwritten once per AES block; data itself is left unmodified.
func DeriveKey(derivationKey []byte, keyType constants.DukptKeyType, data [DerivationDataSize]byte) ([]byte, error) {
	wantBytes := keyType.Bytes()
	if wantBytes == 0 {
		return nil, hkdserrors.NewKeyError("DeriveKey", hkdserrors.ErrUnsupportedMode)
	}

	cipher, err := ecb.New(derivationKey)
	if err != nil {
		return nil, hkdserrors.NewKeyError("DeriveKey", err)
	}

	blocks := (wantBytes + DerivationDataSize - 1) / DerivationDataSize
	out := make([]byte, 0, blocks*DerivationDataSize)
	block := data
	for i := 1; i <= blocks; i++ {
		block[1] = byte(i)
		dst := make([]byte, DerivationDataSize)
		if err := cipher.Encrypt(dst, block[:]); err != nil {
			return nil, hkdserrors.NewKeyError("DeriveKey", err)
		}
		out = append(out, dst...)
	}
	return out[:wantBytes], nil
}

// DeriveInitialKey derives the per-device Initial Key from the BDK
// (ANSI X9.24-3 §B.4.1).
func DeriveInitialKey(bdk []byte, keyType constants.DukptKeyType, initialKeyID []byte) ([]byte, error) {
	data, err := CreateDerivationData(constants.DukptPurposeInitialKey, constants.DukptUsageKeyDerivationInitial, keyType, initialKeyID, 0)
	if err != nil {
		return nil, err
	}
	return DeriveKey(bdk, keyType, data)
}
