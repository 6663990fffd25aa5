package hkds

import (
	"bytes"
	"testing"

	"github.com/dfd-labs/hkds-go/internal/constants"
	"github.com/dfd-labs/hkds-go/pkg/secutil"
)

func testDeviceID(t *testing.T, protocolID byte, mode constants.PrfMode) []byte {
	t.Helper()
	return []byte{0x01, 0x00, 0x00, 0x00, protocolID, byte(mode), 0x01, 0x00, 0x01, 0x00, 0x00, 0x00}
}

func newRoundTripPair(t *testing.T, protocolID byte, mode constants.PrfMode) (*Client, *Server, *MasterKey) {
	t.Helper()
	deviceID := testDeviceID(t, protocolID, mode)
	key := make([]byte, mode.KeySize())
	for i := range key {
		key[i] = byte(i)
	}
	mdk := &MasterKey{BDK: append([]byte(nil), key...), STK: append([]byte(nil), key...), KID: [4]byte{1, 2, 3, 4}}

	edk, err := GenerateEDK(mdk.BDK, deviceID)
	if err != nil {
		t.Fatalf("GenerateEDK: %v", err)
	}

	client, err := NewClient(edk, deviceID, 0)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	ksn, err := client.KSN()
	if err != nil {
		t.Fatalf("KSN: %v", err)
	}
	server, err := NewServer(mdk, ksn, 0)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}

	etok, err := server.EncryptToken()
	if err != nil {
		t.Fatalf("EncryptToken: %v", err)
	}
	dtok, err := client.DecryptToken(etok)
	if err != nil {
		t.Fatalf("DecryptToken: %v", err)
	}
	if err := client.GenerateKeyCache(dtok); err != nil {
		t.Fatalf("GenerateKeyCache: %v", err)
	}

	return client, server, mdk
}

func TestUnauthenticatedRoundTripSHAKE128(t *testing.T) {
	client, server, _ := newRoundTripPair(t, constants.HKDSProtocolUnauthenticated, constants.PrfShake128)

	msg := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F}
	ct, err := client.Encrypt(msg)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	pt, err := server.Decrypt(ct)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(pt, msg) {
		t.Errorf("round trip plaintext = %X, want %X", pt, msg)
	}
}

func TestUnauthenticatedRoundTripAllModes(t *testing.T) {
	for _, mode := range []constants.PrfMode{constants.PrfShake128, constants.PrfShake256, constants.PrfShake512} {
		client, server, _ := newRoundTripPair(t, constants.HKDSProtocolUnauthenticated, mode)
		msg := bytes.Repeat([]byte{0xAB}, 16)

		ct, err := client.Encrypt(msg)
		if err != nil {
			t.Fatalf("[%s] Encrypt: %v", mode, err)
		}
		pt, err := server.Decrypt(ct)
		if err != nil {
			t.Fatalf("[%s] Decrypt: %v", mode, err)
		}
		if !bytes.Equal(pt, msg) {
			t.Errorf("[%s] round trip plaintext = %X, want %X", mode, pt, msg)
		}
	}
}

func TestAuthenticatedRoundTrip(t *testing.T) {
	client, server, _ := newRoundTripPair(t, constants.HKDSProtocolAuthenticated, constants.PrfShake128)

	msg := []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F}
	ad := []byte{0xC0, 0xA8, 0x00, 0x01}

	ct, err := client.EncryptAuthenticate(msg, ad)
	if err != nil {
		t.Fatalf("EncryptAuthenticate: %v", err)
	}
	if len(ct) != constants.HKDSMessageSize+constants.HKDSTagSize {
		t.Fatalf("ciphertext length = %d, want %d", len(ct), constants.HKDSMessageSize+constants.HKDSTagSize)
	}

	pt, err := server.DecryptVerify(ct, ad)
	if err != nil {
		t.Fatalf("DecryptVerify: %v", err)
	}
	if !bytes.Equal(pt, msg) {
		t.Errorf("authenticated round trip plaintext = %X, want %X", pt, msg)
	}
}

func TestAuthenticatedRejectsTamperedTag(t *testing.T) {
	client, server, _ := newRoundTripPair(t, constants.HKDSProtocolAuthenticated, constants.PrfShake128)

	ct, err := client.EncryptAuthenticate(bytes.Repeat([]byte{0x11}, 16), nil)
	if err != nil {
		t.Fatalf("EncryptAuthenticate: %v", err)
	}
	ct[len(ct)-1] ^= 0xFF

	if _, err := server.DecryptVerify(ct, nil); err == nil {
		t.Error("expected authentication failure for tampered tag")
	}
}

func TestAuthenticatedRejectsTamperedCiphertext(t *testing.T) {
	client, server, _ := newRoundTripPair(t, constants.HKDSProtocolAuthenticated, constants.PrfShake128)

	ct, err := client.EncryptAuthenticate(bytes.Repeat([]byte{0x11}, 16), nil)
	if err != nil {
		t.Fatalf("EncryptAuthenticate: %v", err)
	}
	ct[0] ^= 0xFF

	if _, err := server.DecryptVerify(ct, nil); err == nil {
		t.Error("expected authentication failure for tampered ciphertext")
	}
}

func TestAuthenticatedRejectsTamperedAdditionalData(t *testing.T) {
	client, server, _ := newRoundTripPair(t, constants.HKDSProtocolAuthenticated, constants.PrfShake128)

	ad := []byte{1, 2, 3, 4}
	ct, err := client.EncryptAuthenticate(bytes.Repeat([]byte{0x11}, 16), ad)
	if err != nil {
		t.Fatalf("EncryptAuthenticate: %v", err)
	}

	if _, err := server.DecryptVerify(ct, []byte{1, 2, 3, 5}); err == nil {
		t.Error("expected authentication failure for tampered additional data")
	}
}

func TestCounterMonotonicityAndKeyCount(t *testing.T) {
	client, _, _ := newRoundTripPair(t, constants.HKDSProtocolUnauthenticated, constants.PrfShake128)

	full := client.KeyCacheSize()
	if client.KeyCount() != full {
		t.Fatalf("KeyCount before use = %d, want %d", client.KeyCount(), full)
	}

	prevKSN, _ := client.KSN()
	for i := 0; i < full; i++ {
		if _, err := client.Encrypt(bytes.Repeat([]byte{0x01}, 16)); err != nil {
			t.Fatalf("Encrypt[%d]: %v", i, err)
		}
		curKSN, _ := client.KSN()
		_, prevCounter, _ := ParseKSN(prevKSN)
		_, curCounter, _ := ParseKSN(curKSN)
		if curCounter <= prevCounter {
			t.Fatalf("counter did not advance: prev=%d cur=%d", prevCounter, curCounter)
		}
		prevKSN = curKSN
	}

	if client.KeyCount() != 0 {
		t.Errorf("KeyCount after exhausting cache = %d, want 0", client.KeyCount())
	}
	if _, err := client.Encrypt(bytes.Repeat([]byte{0x01}, 16)); err == nil {
		t.Error("expected ErrCacheExhausted once the cache is empty")
	}
}

func TestZeroizationOnConsumption(t *testing.T) {
	client, _, _ := newRoundTripPair(t, constants.HKDSProtocolUnauthenticated, constants.PrfShake128)

	slot := client.cache[0]
	if _, err := client.Encrypt(bytes.Repeat([]byte{0x22}, 16)); err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	for _, b := range slot {
		if b != 0 {
			t.Fatalf("consumed cache slot not zeroized: %X", slot)
			break
		}
	}
}

func TestKeyUniquenessAcrossDeviceAndCounter(t *testing.T) {
	seen := make(map[string]bool)
	collisions := 0
	const samples = 2000

	mdk := &MasterKey{BDK: make([]byte, 16), STK: make([]byte, 16), KID: [4]byte{1, 2, 3, 4}}
	for i := range mdk.BDK {
		mdk.BDK[i] = byte(i * 7)
		mdk.STK[i] = byte(i * 11)
	}

	for d := 0; d < samples; d++ {
		deviceID := testDeviceID(t, constants.HKDSProtocolUnauthenticated, constants.PrfShake128)
		deviceID[8] = byte(d)
		deviceID[9] = byte(d >> 8)

		edk, err := GenerateEDK(mdk.BDK, deviceID)
		if err != nil {
			t.Fatalf("GenerateEDK: %v", err)
		}
		token, err := generateToken(mdk.STK, mdk.KID, deviceID, 0, 8)
		if err != nil {
			t.Fatalf("generateToken: %v", err)
		}
		cache, err := generateCache(edk, deviceID, 0, 8, token)
		if err != nil {
			t.Fatalf("generateCache: %v", err)
		}

		// cache[i] is the transaction key for counter i of epoch 0.
		for _, slot := range cache {
			key := string(slot)
			if seen[key] {
				collisions++
			}
			seen[key] = true
		}
	}

	if collisions > 0 {
		t.Errorf("found %d transaction-key collisions across %d distinct devices x 8 counters", collisions, samples)
	}
}

func TestMasterKeySerializeRoundTrip(t *testing.T) {
	mdk, err := GenerateMasterKey(constants.PrfShake256, []byte{9, 8, 7, 6}, secutil.DefaultRandomSource)
	if err != nil {
		t.Fatalf("GenerateMasterKey: %v", err)
	}
	blob := mdk.Serialize()

	got, err := DeserializeMasterKey(blob)
	if err != nil {
		t.Fatalf("DeserializeMasterKey: %v", err)
	}
	if !bytes.Equal(got.BDK, mdk.BDK) || !bytes.Equal(got.STK, mdk.STK) || got.KID != mdk.KID {
		t.Error("deserialized MasterKey does not match original")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	client, server, _ := newRoundTripPair(t, constants.HKDSProtocolUnauthenticated, constants.PrfShake128)

	etok, err := server.EncryptToken()
	if err != nil {
		t.Fatalf("EncryptToken: %v", err)
	}
	dtok, err := client.DecryptToken(etok)
	if err != nil {
		t.Fatalf("DecryptToken: %v", err)
	}

	deviceID, counter, _ := ParseKSN(server.KSN())
	edk, _ := GenerateEDK(server.mdk.BDK, deviceID)
	wantToken, err := generateToken(server.mdk.STK, server.mdk.KID, deviceID, counter, server.cacheSize)
	if err != nil {
		t.Fatalf("generateToken: %v", err)
	}
	if !bytes.Equal(dtok, wantToken) {
		t.Errorf("decrypted token = %X, want %X", dtok, wantToken)
	}
	_ = edk
}
