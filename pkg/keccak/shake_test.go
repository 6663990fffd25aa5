package keccak

import (
	"bytes"
	"encoding/hex"
	"testing"
)

// Keccak team reference vectors for the empty message.
func TestShake128EmptyMessageKnownAnswer(t *testing.T) {
	want, _ := hex.DecodeString("7f9c2ba4e88f827d616045507605853ed73b8093f6efbc88eb1a6eacfa66ef26")
	got := Shake128(nil, 32)
	if !bytes.Equal(got, want) {
		t.Errorf("Shake128(\"\", 32) = %x, want %x", got, want)
	}
}

func TestShake256EmptyMessageKnownAnswer(t *testing.T) {
	want, _ := hex.DecodeString("46b9dd2b0ba88d13233b3feb743eeb243fcd52ea62b81b82b50c27646ed5762fd75dc4ddd8c0f200cb05019d67b592f6fc821c49479ab48640292eacb3b7c4be")
	got := Shake256(nil, 64)
	if !bytes.Equal(got, want) {
		t.Errorf("Shake256(\"\", 64) = %x, want %x", got, want)
	}
}

func TestShakeOutputIsDeterministic(t *testing.T) {
	msg := []byte("transaction key derivation input")
	a := Shake256(msg, 48)
	b := Shake256(msg, 48)
	if !bytes.Equal(a, b) {
		t.Error("two Shake256 calls on identical input produced different output")
	}
}

func TestShakeRatesProduceDistinctOutput(t *testing.T) {
	msg := []byte("same input, different rate")
	a := Shake128(msg, 32)
	b := Shake256(msg, 32)
	c := Shake512NonStandard(msg, 32)
	if bytes.Equal(a, b) || bytes.Equal(b, c) || bytes.Equal(a, c) {
		t.Error("distinct SHAKE rates produced identical output for the same input")
	}
}

func TestShakeSqueezeIsAStablePrefix(t *testing.T) {
	msg := []byte("streamed squeeze")

	full := Shake128(msg, 64)

	sh := NewShake128()
	sh.Absorb(msg)
	first := sh.Squeeze(16)
	second := sh.Squeeze(48)

	if !bytes.Equal(full[:16], first) {
		t.Errorf("first 16 squeezed bytes = %x, want %x", first, full[:16])
	}
	if !bytes.Equal(full[16:], second) {
		t.Errorf("next 48 squeezed bytes = %x, want %x", second, full[16:])
	}
}

func TestShakeIncrementalAbsorbMatchesSingleCall(t *testing.T) {
	part1 := []byte("first half of the ")
	part2 := []byte("input message")

	sh := NewShake256()
	sh.Absorb(part1)
	sh.Absorb(part2)
	incremental := sh.Squeeze(32)

	oneShot := Shake256(append(append([]byte{}, part1...), part2...), 32)

	if !bytes.Equal(incremental, oneShot) {
		t.Errorf("incremental absorb = %x, want %x", incremental, oneShot)
	}
}

func TestShakeAbsorbAfterSqueezePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Absorb() after Squeeze() should panic")
		}
	}()
	sh := NewShake128()
	sh.Absorb([]byte("x"))
	sh.Squeeze(8)
	sh.Absorb([]byte("y"))
}

func TestRateForKeySize(t *testing.T) {
	tests := []struct {
		size     int
		wantRate int
		wantOK   bool
	}{
		{16, RateShake128, true},
		{32, RateShake256, true},
		{64, RateShake512NonStandard, true},
		{20, 0, false},
	}
	for _, tt := range tests {
		rate, ok := RateForKeySize(tt.size)
		if ok != tt.wantOK || (ok && rate != tt.wantRate) {
			t.Errorf("RateForKeySize(%d) = (%d, %v), want (%d, %v)", tt.size, rate, ok, tt.wantRate, tt.wantOK)
		}
	}
}
