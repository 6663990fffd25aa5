// Package hkds implements the Hierarchal Key Distribution System: a
// two-key alternative to DUKPT-AES in which a device holds a fixed
// Embedded Device Key and a periodically refreshed, server-issued token,
// combined through Keccak/SHAKE to derive a cache of one-time transaction
// keys.
//
// Mathematical Foundation:
//
// Every secret the protocol produces — EDK, token, and the transaction-key
// cache itself — is an extendable-output-function squeeze over a fixed
// absorb sequence (pkg/keccak). Message confidentiality is a one-time pad:
// ciphertext is plaintext XORed with one never-reused 16-byte cache slot,
// not an AES-keyed block cipher. Authentication, where enabled, is KMAC
// over the ciphertext and associated data using a second cache slot as key.
package hkds

import (
	"encoding/binary"

	"github.com/dfd-labs/hkds-go/internal/constants"
	hkdserrors "github.com/dfd-labs/hkds-go/internal/errors"
	"github.com/dfd-labs/hkds-go/pkg/secutil"
)

// MasterKey is the server's root secret pair: BDK derives per-device EDKs,
// STK derives per-epoch tokens, KID names the key ecosystem.
type MasterKey struct {
	BDK []byte
	STK []byte
	KID [constants.HKDSKIDSize]byte
}

// GenerateMasterKey creates a fresh MasterKey sized for mode, using rng for
// both root secrets.
func GenerateMasterKey(mode constants.PrfMode, kid []byte, rng secutil.RandomSource) (*MasterKey, error) {
	if !mode.IsSupported() {
		return nil, hkdserrors.NewKeyError("GenerateMasterKey", hkdserrors.ErrUnsupportedMode)
	}
	if len(kid) != constants.HKDSKIDSize {
		return nil, hkdserrors.NewKeyError("GenerateMasterKey", hkdserrors.ErrInvalidSize)
	}
	if rng == nil {
		rng = secutil.DefaultRandomSource
	}

	size := mode.KeySize()
	mk := &MasterKey{BDK: make([]byte, size), STK: make([]byte, size)}
	copy(mk.KID[:], kid)

	if err := rng.Fill(mk.BDK); err != nil {
		return nil, hkdserrors.NewKeyError("GenerateMasterKey", err)
	}
	if err := rng.Fill(mk.STK); err != nil {
		return nil, hkdserrors.NewKeyError("GenerateMasterKey", err)
	}
	return mk, nil
}

// Serialize encodes the MasterKey as KID || BDK || STK.
func (m *MasterKey) Serialize() []byte {
	out := make([]byte, 0, len(m.KID)+len(m.BDK)+len(m.STK))
	out = append(out, m.KID[:]...)
	out = append(out, m.BDK...)
	out = append(out, m.STK...)
	return out
}

// DeserializeMasterKey decodes the KID || BDK || STK layout produced by
// Serialize. BDK and STK are assumed equal length, split evenly from the
// remainder after KID.
func DeserializeMasterKey(data []byte) (*MasterKey, error) {
	if len(data) <= constants.HKDSKIDSize {
		return nil, hkdserrors.NewKeyError("DeserializeMasterKey", hkdserrors.ErrInvalidSize)
	}
	rest := len(data) - constants.HKDSKIDSize
	if rest%2 != 0 {
		return nil, hkdserrors.NewKeyError("DeserializeMasterKey", hkdserrors.ErrInvalidSize)
	}
	keySize := rest / 2
	if _, ok := keySizeToMode(keySize); !ok {
		return nil, hkdserrors.NewKeyError("DeserializeMasterKey", hkdserrors.ErrInvalidSize)
	}

	mk := &MasterKey{
		BDK: append([]byte(nil), data[constants.HKDSKIDSize:constants.HKDSKIDSize+keySize]...),
		STK: append([]byte(nil), data[constants.HKDSKIDSize+keySize:]...),
	}
	copy(mk.KID[:], data[:constants.HKDSKIDSize])
	return mk, nil
}

func keySizeToMode(n int) (constants.PrfMode, bool) {
	switch n {
	case 16:
		return constants.PrfShake128, true
	case 32:
		return constants.PrfShake256, true
	case 64:
		return constants.PrfShake512, true
	default:
		return 0, false
	}
}

// Zeroize clears both root secrets.
func (m *MasterKey) Zeroize() {
	secutil.Zeroize(m.BDK)
	secutil.Zeroize(m.STK)
}

// little-endian encoding helper shared by core.go for the HKDS counter and
// cache-epoch fields (spec.md §3: HKDS KSN encodes its counter little-endian,
// the opposite of DUKPT's big-endian KSN).
func putUint32LE(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}
