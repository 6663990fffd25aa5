package keccak

import "encoding/binary"

// rightEncode implements NIST SP800-185's right_encode: x encoded as a
// minimal big-endian byte string, suffixed by its own byte length.
func rightEncode(x uint64) []byte {
	if x == 0 {
		return []byte{0, 1}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], x)
	i := 0
	for i < 8 && buf[i] == 0 {
		i++
	}
	n := 8 - i
	out := make([]byte, 0, n+1)
	out = append(out, buf[i:]...)
	out = append(out, byte(n))
	return out
}

// Kmac is a stateful KMAC instance (SP800-185 §4) built on a cSHAKE-domain
// sponge. Construct with NewKmac, Update any number of times, then Finalize
// once to obtain the tag — Finalize is destructive, mirroring the
// absorb-then-squeeze shape of the underlying sponge.
type Kmac struct {
	s   *sponge
	buf []byte // accumulated message, so right_encode(L) can be appended at Finalize
}

// NewKmac constructs a KMAC instance over the given rate (selected by the
// caller's PrfMode) with customization string s, keyed by key. The "KMAC"
// function-name string is fixed by SP800-185 and always makes the cSHAKE
// domain byte 0x04, never the plain-SHAKE 0x1F.
func NewKmac(rate int, key []byte, s []byte) *Kmac {
	sp := newSponge(rate, domainCShake)
	prefix := bytepad(append(encodeString([]byte("KMAC")), encodeString(s)...), rate)
	sp.absorb(prefix)
	sp.absorb(bytepad(encodeString(key), rate))
	return &Kmac{s: sp}
}

// Update absorbs more message bytes.
func (k *Kmac) Update(p []byte) {
	k.buf = append(k.buf, p...)
}

// Finalize returns a tagLen-byte KMAC tag over everything absorbed via
// Update. The instance must not be reused after Finalize.
func (k *Kmac) Finalize(tagLen int) []byte {
	k.s.absorb(k.buf)
	k.s.absorb(rightEncode(uint64(tagLen) * 8))
	return k.s.squeeze(tagLen)
}

// KMAC is the one-shot form: NewKmac(rate, key, customization), Update(msg),
// Finalize(tagLen).
func KMAC(rate int, key, customization, msg []byte, tagLen int) []byte {
	k := NewKmac(rate, key, customization)
	k.Update(msg)
	return k.Finalize(tagLen)
}
