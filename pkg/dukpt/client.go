package dukpt

import (
	"math/bits"

	"github.com/dfd-labs/hkds-go/internal/constants"
	hkdserrors "github.com/dfd-labs/hkds-go/internal/errors"
	"github.com/dfd-labs/hkds-go/pkg/ecb"
	"github.com/dfd-labs/hkds-go/pkg/secutil"
	"github.com/dfd-labs/hkds-go/pkg/sha2"
)

// maxSetBits is the ANSI X9.24-3 working-counter limit: a transaction
// counter is only valid while it has at most this many bits set, bounding
// the number of re-keying steps DeriveWorkingKey ever performs.
const maxSetBits = 16

// counterOverflowThreshold bounds nextValidCounter's search: once the
// candidate counter reaches this value the device is exhausted. It lies above
// the ANSI X9.24-3 ceiling of 2^32-2^16 (0xFFFF0000); every value between that
// ceiling and this threshold has more than maxSetBits bits set, so the last
// counter a device issues is 0xFFFF0000 itself.
const counterOverflowThreshold uint32 = 0xFFFFE000

// Client is a single device's DUKPT-AES state machine. It is NOT safe for
// concurrent use: a device owns one serialized stream of transactions.
type Client struct {
	initialKey   []byte
	keyType      constants.DukptKeyType
	initialKeyID []byte
	counter      uint32
	loaded       bool

	// registers caches the per-bit intermediate derivation key produced the
	// last time that bit was folded into the working-key chain, keyed by
	// bit position (31 = first folded, 0 = last). It mirrors the 32-slot
	// Key Registers named in the data model; advancing a transaction
	// recomputes the full chain from the Initial Key (identical to the
	// server's stateless recompute) and refreshes this cache, which keeps
	// Client's output identical to DukptServer.DeriveWorkingKey by
	// construction while still exposing the register shape the protocol
	// describes.
	registers [32][]byte

	currentDerivationKey []byte
}

// NewClient returns an unloaded Client. LoadInitialKey must be called before
// any other operation.
func NewClient() *Client {
	return &Client{}
}

// LoadInitialKey installs a fresh Initial Key, resetting the counter and
// clearing all cached registers.
func (c *Client) LoadInitialKey(initialKey []byte, keyType constants.DukptKeyType, initialKeyID []byte) error {
	if len(initialKey) != keyType.Bytes() {
		return hkdserrors.NewKeyError("LoadInitialKey", hkdserrors.ErrInvalidKey)
	}
	if len(initialKeyID) != constants.DukptInitialKeyIDSize {
		return hkdserrors.NewKeyError("LoadInitialKey", hkdserrors.ErrInvalidSize)
	}

	c.clearRegisters()
	secutil.Zeroize(c.initialKey)
	secutil.Zeroize(c.currentDerivationKey)

	c.initialKey = append([]byte(nil), initialKey...)
	c.keyType = keyType
	c.initialKeyID = append([]byte(nil), initialKeyID...)
	c.counter = 0
	c.currentDerivationKey = nil
	c.loaded = true
	return nil
}

func (c *Client) clearRegisters() {
	for i := range c.registers {
		secutil.Zeroize(c.registers[i])
		c.registers[i] = nil
	}
}

// Counter returns the last-issued transaction counter (0 before the first
// transaction).
func (c *Client) Counter() uint32 {
	return c.counter
}

// nextValidCounter returns the smallest counter strictly greater than
// current whose popcount does not exceed maxSetBits.
func nextValidCounter(current uint32) (uint32, error) {
	next := current + 1
	for {
		if next >= counterOverflowThreshold {
			return 0, hkdserrors.NewKeyError("nextValidCounter", hkdserrors.ErrCounterOverflow)
		}
		if bits.OnesCount32(next) <= maxSetBits {
			return next, nil
		}
		next++
	}
}

// updateStateForNextTransaction advances the counter to the next valid
// value and rebuilds the derivation-key chain for it, caching each bit's
// intermediate key into registers.
func (c *Client) updateStateForNextTransaction() error {
	if !c.loaded {
		return hkdserrors.NewKeyError("updateStateForNextTransaction", hkdserrors.ErrInvalidState)
	}

	next, err := nextValidCounter(c.counter)
	if err != nil {
		return err
	}

	key := append([]byte(nil), c.initialKey...)
	var mask uint32 = 0x80000000
	var partial uint32
	for bit := 31; mask > 0; bit, mask = bit-1, mask>>1 {
		if mask&next == 0 {
			continue
		}
		partial |= mask
		data, err := CreateDerivationData(constants.DukptPurposeDerivationOrWorkingKey, constants.DukptUsageKeyDerivation, c.keyType, c.initialKeyID, partial)
		if err != nil {
			secutil.Zeroize(key)
			return err
		}
		newKey, err := DeriveKey(key, c.keyType, data)
		if err != nil {
			secutil.Zeroize(key)
			return err
		}
		secutil.Zeroize(key)
		key = newKey
		secutil.Zeroize(c.registers[bit])
		c.registers[bit] = append([]byte(nil), key...)
	}

	secutil.Zeroize(c.currentDerivationKey)
	c.currentDerivationKey = key
	c.counter = next
	return nil
}

// GenerateWorkingKeys advances the device state and derives the working key
// for usage/keyType at the new counter value (ANSI X9.24-3 §B.6.3).
func (c *Client) GenerateWorkingKeys(usage constants.DukptKeyUsage, keyType constants.DukptKeyType) ([]byte, error) {
	if err := c.updateStateForNextTransaction(); err != nil {
		return nil, err
	}
	data, err := CreateDerivationData(constants.DukptPurposeDerivationOrWorkingKey, usage, keyType, c.initialKeyID, c.counter)
	if err != nil {
		return nil, err
	}
	return DeriveKey(c.currentDerivationKey, keyType, data)
}

// Encrypt encrypts a 16-byte PIN block, advancing the counter by one.
func (c *Client) Encrypt(msg []byte) ([]byte, error) {
	if len(msg) != constants.DukptMessageSize {
		return nil, hkdserrors.NewKeyError("Encrypt", hkdserrors.ErrInvalidSize)
	}
	wk, err := c.GenerateWorkingKeys(constants.DukptUsagePINEncryption, c.keyType)
	if err != nil {
		return nil, err
	}
	defer secutil.Zeroize(wk)

	ct, err := ecb.Encrypt(wk, msg)
	if err != nil {
		return nil, hkdserrors.NewKeyError("Encrypt", err)
	}
	return ct, nil
}

// EncryptAuthenticate encrypts a 16-byte PIN block and appends a full
// HMAC-SHA-256 tag over additionalData||ciphertext, advancing the counter
// by two (spec §6: the authenticated DUKPT tag is the full 32-byte
// HMAC-SHA-256 output, not truncated).
func (c *Client) EncryptAuthenticate(msg, additionalData []byte) ([]byte, error) {
	ct, err := c.Encrypt(msg)
	if err != nil {
		return nil, err
	}

	macKey, err := c.GenerateWorkingKeys(constants.DukptUsageMACBothWays, c.keyType)
	if err != nil {
		return nil, err
	}
	defer secutil.Zeroize(macKey)

	tag := sha2.HMACSHA256(macKey, append(append([]byte(nil), additionalData...), ct...))

	out := make([]byte, 0, len(ct)+len(tag))
	out = append(out, ct...)
	out = append(out, tag...)
	return out, nil
}

// UpdateInitialKey installs a new Initial Key delivered encrypted under the
// current Initial Key, followed by a 16-byte key-check value (the first 16
// bytes of SHA-256 of the new key in the clear). Any decryption or
// check-value mismatch leaves the device's existing key untouched and
// returns ErrInvalidKey.
func (c *Client) UpdateInitialKey(encryptedNewKey []byte, keyType constants.DukptKeyType, newInitialKeyID []byte) error {
	if !c.loaded {
		return hkdserrors.NewKeyError("UpdateInitialKey", hkdserrors.ErrInvalidState)
	}
	keyBytes := keyType.Bytes()
	if keyBytes == 0 || len(encryptedNewKey) != keyBytes+16 {
		return hkdserrors.NewKeyError("UpdateInitialKey", hkdserrors.ErrInvalidSize)
	}
	if len(newInitialKeyID) != constants.DukptInitialKeyIDSize {
		return hkdserrors.NewKeyError("UpdateInitialKey", hkdserrors.ErrInvalidSize)
	}

	wrapped := encryptedNewKey[:keyBytes]
	checkValue := encryptedNewKey[keyBytes:]

	newKey := make([]byte, keyBytes)
	blocks := keyBytes / constants.DukptDerivationDataSize
	for i := 0; i < blocks; i++ {
		off := i * constants.DukptDerivationDataSize
		pt, err := ecb.Decrypt(c.initialKey, wrapped[off:off+constants.DukptDerivationDataSize])
		if err != nil {
			return hkdserrors.NewKeyError("UpdateInitialKey", hkdserrors.ErrInvalidKey)
		}
		copy(newKey[off:], pt)
	}

	sum := sha2.Sum256(newKey)
	if !secutil.ConstantTimeCompare(sum[:16], checkValue) {
		secutil.Zeroize(newKey)
		return hkdserrors.NewKeyError("UpdateInitialKey", hkdserrors.ErrInvalidKey)
	}

	return c.LoadInitialKey(newKey, keyType, newInitialKeyID)
}
