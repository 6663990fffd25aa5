package ecb

import (
	"bytes"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := make([]byte, 16)
	for i := range key {
		key[i] = byte(i * 7)
	}
	plaintext := make([]byte, 16)
	for i := range plaintext {
		plaintext[i] = byte(i)
	}

	ct, err := Encrypt(key, plaintext)
	if err != nil {
		t.Fatalf("Encrypt() error = %v", err)
	}
	pt, err := Decrypt(key, ct)
	if err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	if !bytes.Equal(pt, plaintext) {
		t.Errorf("round trip = %x, want %x", pt, plaintext)
	}
}

func TestCipherReuseAcrossBlocks(t *testing.T) {
	key := make([]byte, 24)
	c, err := New(key)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	block1 := bytes.Repeat([]byte{0x01}, 16)
	block2 := bytes.Repeat([]byte{0x02}, 16)

	ct1 := make([]byte, 16)
	ct2 := make([]byte, 16)
	if err := c.Encrypt(ct1, block1); err != nil {
		t.Fatalf("Encrypt(block1) error = %v", err)
	}
	if err := c.Encrypt(ct2, block2); err != nil {
		t.Fatalf("Encrypt(block2) error = %v", err)
	}
	if bytes.Equal(ct1, ct2) {
		t.Error("distinct plaintext blocks produced identical ciphertext under the same key")
	}

	pt1 := make([]byte, 16)
	if err := c.Decrypt(pt1, ct1); err != nil {
		t.Fatalf("Decrypt(ct1) error = %v", err)
	}
	if !bytes.Equal(pt1, block1) {
		t.Errorf("Decrypt(Encrypt(block1)) = %x, want %x", pt1, block1)
	}
}

func TestEncryptPropagatesKeyError(t *testing.T) {
	if _, err := Encrypt(make([]byte, 15), make([]byte, 16)); err == nil {
		t.Error("Encrypt() with a bad key size should fail")
	}
}
