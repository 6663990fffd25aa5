package blockcipher

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func mustHex(t *testing.T, s string) []byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	if err != nil {
		t.Fatalf("invalid hex literal %q: %v", s, err)
	}
	return b
}

// FIPS-197 Appendix B known-answer test for AES-128.
func TestAES128KnownAnswer(t *testing.T) {
	key := mustHex(t, "000102030405060708090a0b0c0d0e0f")
	plaintext := mustHex(t, "00112233445566778899aabbccddeeff")
	wantCiphertext := mustHex(t, "69c4e0d86a7b0430d8cdb78070b4c55a")

	c, err := New(key)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ct := make([]byte, BlockSize)
	if err := c.EncryptBlock(ct, plaintext); err != nil {
		t.Fatalf("EncryptBlock() error = %v", err)
	}
	if !bytes.Equal(ct, wantCiphertext) {
		t.Errorf("EncryptBlock() = %x, want %x", ct, wantCiphertext)
	}

	pt := make([]byte, BlockSize)
	if err := c.DecryptBlock(pt, ct); err != nil {
		t.Fatalf("DecryptBlock() error = %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Errorf("DecryptBlock() = %x, want %x", pt, plaintext)
	}
}

func TestNewRejectsBadKeySizes(t *testing.T) {
	for _, n := range []int{0, 1, 15, 17, 23, 25, 31, 33, 64} {
		if _, err := New(make([]byte, n)); err == nil {
			t.Errorf("New() with %d-byte key should fail", n)
		}
	}
}

func TestNewAcceptsAllKeySizes(t *testing.T) {
	for _, n := range []int{16, 24, 32} {
		if _, err := New(make([]byte, n)); err != nil {
			t.Errorf("New() with %d-byte key failed: %v", n, err)
		}
	}
}

func TestEncryptBlockRejectsBadLength(t *testing.T) {
	c, _ := New(make([]byte, 16))
	if err := c.EncryptBlock(make([]byte, 16), make([]byte, 15)); err == nil {
		t.Error("EncryptBlock() with short src should fail")
	}
	if err := c.EncryptBlock(make([]byte, 15), make([]byte, 16)); err == nil {
		t.Error("EncryptBlock() with short dst should fail")
	}
}

func TestEncryptDecryptBlockInto(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	plaintext := make([]byte, BlockSize)
	for i := range plaintext {
		plaintext[i] = byte(0xFF - i)
	}

	ct, err := EncryptBlockInto(key, plaintext)
	if err != nil {
		t.Fatalf("EncryptBlockInto() error = %v", err)
	}
	pt, err := DecryptBlockInto(key, ct)
	if err != nil {
		t.Fatalf("DecryptBlockInto() error = %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Errorf("round trip = %x, want %x", pt, plaintext)
	}
}
