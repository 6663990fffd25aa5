package hkds

import (
	"github.com/dfd-labs/hkds-go/internal/constants"
	hkdserrors "github.com/dfd-labs/hkds-go/internal/errors"
	"github.com/dfd-labs/hkds-go/pkg/keccak"
	"github.com/dfd-labs/hkds-go/pkg/secutil"
)

// Client is a single device's HKDS state: its fixed Embedded Device Key,
// its DeviceId, the running transaction counter, and the current
// transaction-key cache. Not safe for concurrent use.
type Client struct {
	edk       []byte
	deviceID  []byte
	mode      constants.PrfMode
	protocol  byte
	counter   uint32
	cacheSize int
	cache     [][]byte
	used      int
}

// NewClient constructs a Client bound to one EDK/DeviceId pair. A
// cacheMultiplier of 0 selects the default (spec.md §9: multiplier 4, cache
// size 8).
func NewClient(edk, deviceID []byte, cacheMultiplier int) (*Client, error) {
	mode, err := ModeFromDeviceID(deviceID)
	if err != nil {
		return nil, err
	}
	if len(edk) != mode.KeySize() {
		return nil, hkdserrors.NewKeyError("NewClient", hkdserrors.ErrInvalidKey)
	}
	if cacheMultiplier == 0 {
		cacheMultiplier = constants.HKDSDefaultCacheMultiplier
	}
	cacheSize, err := cacheSizeFromMultiplier(cacheMultiplier)
	if err != nil {
		return nil, err
	}

	return &Client{
		edk:       append([]byte(nil), edk...),
		deviceID:  append([]byte(nil), deviceID...),
		mode:      mode,
		protocol:  deviceID[4],
		cacheSize: cacheSize,
		used:      cacheSize, // empty until GenerateKeyCache populates it
	}, nil
}

// KSN returns the device's current 16-byte key serial number.
func (c *Client) KSN() ([]byte, error) {
	return BuildKSN(c.deviceID, c.counter)
}

// KeyCount returns the number of unconsumed transaction keys remaining in
// the cache.
func (c *Client) KeyCount() int {
	return c.cacheSize - c.used
}

// KeyCacheSize returns the total number of slots in a full cache.
func (c *Client) KeyCacheSize() int {
	return c.cacheSize
}

// Protocol returns the device's ProtocolId byte (0x10 unauthenticated,
// 0x11 KMAC-authenticated).
func (c *Client) Protocol() byte {
	return c.protocol
}

// DecryptToken recovers the plaintext token from the server's encrypted
// token, using the keystream derived from the device's current epoch.
func (c *Client) DecryptToken(ctok []byte) ([]byte, error) {
	if len(ctok) != c.mode.KeySize() {
		return nil, hkdserrors.NewKeyError("DecryptToken", hkdserrors.ErrInvalidSize)
	}
	return tokenKeystream(c.edk, c.deviceID, c.counter, c.cacheSize, ctok)
}

// GenerateKeyCache derives a fresh transaction-key cache from the plain
// token and resets consumption to zero.
func (c *Client) GenerateKeyCache(token []byte) error {
	if len(token) != c.mode.KeySize() {
		return hkdserrors.NewKeyError("GenerateKeyCache", hkdserrors.ErrInvalidSize)
	}
	// The token's embedded epoch is derived from Counter by the server
	// (see epochKSN in core.go); a refill away from an epoch boundary would
	// derive a cache the server's counter%cacheSize indexing can never agree
	// with, since the server recomputes per-transaction from Counter alone.
	if c.counter%uint32(c.cacheSize) != 0 {
		return hkdserrors.NewKeyError("GenerateKeyCache", hkdserrors.ErrInvalidToken)
	}
	cache, err := generateCache(c.edk, c.deviceID, c.counter, c.cacheSize, token)
	if err != nil {
		return err
	}
	for _, slot := range c.cache {
		secutil.Zeroize(slot)
	}
	c.cache = cache
	c.used = 0
	return nil
}

// Encrypt XORs a 16-byte message against the next unconsumed cache slot,
// advancing the counter by one.
func (c *Client) Encrypt(msg []byte) ([]byte, error) {
	if len(msg) != constants.HKDSMessageSize {
		return nil, hkdserrors.NewKeyError("Encrypt", hkdserrors.ErrInvalidSize)
	}
	if c.used >= c.cacheSize {
		return nil, hkdserrors.NewKeyError("Encrypt", hkdserrors.ErrCacheExhausted)
	}

	tk := c.cache[c.used]
	ct := make([]byte, constants.HKDSMessageSize)
	for i := range ct {
		ct[i] = msg[i] ^ tk[i]
	}
	secutil.Zeroize(tk)
	c.used++
	c.counter++
	return ct, nil
}

// EncryptAuthenticate encrypts a 16-byte message with one cache slot and
// authenticates ciphertext||additionalData with KMAC keyed by a second,
// consuming two slots and advancing the counter by two.
func (c *Client) EncryptAuthenticate(msg, additionalData []byte) ([]byte, error) {
	if len(msg) != constants.HKDSMessageSize {
		return nil, hkdserrors.NewKeyError("EncryptAuthenticate", hkdserrors.ErrInvalidSize)
	}
	if c.used+2 > c.cacheSize {
		return nil, hkdserrors.NewKeyError("EncryptAuthenticate", hkdserrors.ErrCacheExhausted)
	}

	tkE := c.cache[c.used]
	tkM := c.cache[c.used+1]

	ct := make([]byte, constants.HKDSMessageSize)
	for i := range ct {
		ct[i] = msg[i] ^ tkE[i]
	}

	rate, err := rateFor(c.mode)
	if err != nil {
		return nil, err
	}
	tag := keccak.KMAC(rate, tkM, []byte(constants.HKDSCustomizationString), append(append([]byte(nil), ct...), additionalData...), constants.HKDSTagSize)

	secutil.Zeroize(tkE)
	secutil.Zeroize(tkM)
	c.used += 2
	c.counter += 2

	out := make([]byte, 0, len(ct)+len(tag))
	out = append(out, ct...)
	out = append(out, tag...)
	return out, nil
}
