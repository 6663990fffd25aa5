package keccak

import "encoding/binary"

// stateBytes is the full Keccak-f[1600] state width in bytes (25 lanes of 8
// bytes each), regardless of the rate/capacity split chosen by a sponge.
const stateBytes = 200

// sponge is a generic duplex-free Keccak sponge: absorb arbitrary input with
// multi-rate padding, then squeeze an arbitrary-length output stream. rate
// and domain are fixed at construction, letting one permutation driver serve
// SHAKE-128, SHAKE-256, the non-standard SHAKE-512 rate, and KMAC's cSHAKE
// domain byte.
type sponge struct {
	lanes     [25]uint64
	rate      int // bytes absorbed/squeezed per permutation call
	domain    byte
	pos       int  // read/write offset within the current rate-sized window
	squeezing bool
}

func newSponge(rate int, domain byte) *sponge {
	return &sponge{rate: rate, domain: domain}
}

// laneByte returns the byte at state offset i, where the state is viewed as
// 25 little-endian 64-bit lanes.
func (s *sponge) laneByte(i int) byte {
	lane := i / 8
	shift := uint(i%8) * 8
	return byte(s.lanes[lane] >> shift)
}

func (s *sponge) xorLaneByte(i int, v byte) {
	lane := i / 8
	shift := uint(i%8) * 8
	s.lanes[lane] ^= uint64(v) << shift
}

// absorb mixes p into the sponge. It may be called multiple times before the
// first squeeze; calling it after squeezing has begun is a programming
// error and panics, since the sponge construction does not support it.
func (s *sponge) absorb(p []byte) {
	if s.squeezing {
		panic("keccak: absorb called after squeeze has begun")
	}
	for len(p) > 0 {
		n := s.rate - s.pos
		if n > len(p) {
			n = len(p)
		}
		for i := 0; i < n; i++ {
			s.xorLaneByte(s.pos+i, p[i])
		}
		s.pos += n
		p = p[n:]
		if s.pos == s.rate {
			permute(&s.lanes)
			s.pos = 0
		}
	}
}

// finalize applies multi-rate padding (domain suffix then pad10*1) and
// performs the permutation that transitions the sponge into squeezing mode.
// It is not idempotent: a second call would pad again. squeeze calls it only
// while squeezing is false, and absorb panics once squeezing has begun.
func (s *sponge) finalize() {
	s.xorLaneByte(s.pos, s.domain)
	s.xorLaneByte(s.rate-1, 0x80)
	permute(&s.lanes)
	s.pos = 0
	s.squeezing = true
}

// squeeze returns n bytes of output, finalizing the sponge on first call.
func (s *sponge) squeeze(n int) []byte {
	if !s.squeezing {
		s.finalize()
	}
	out := make([]byte, n)
	written := 0
	for written < n {
		avail := s.rate - s.pos
		take := n - written
		if take > avail {
			take = avail
		}
		for i := 0; i < take; i++ {
			out[written+i] = s.laneByte(s.pos + i)
		}
		written += take
		s.pos += take
		if s.pos == s.rate {
			permute(&s.lanes)
			s.pos = 0
		}
	}
	return out
}

// leftEncode implements NIST SP800-185's left_encode: the length x, encoded
// as a minimal big-endian byte string, prefixed by its own byte length.
func leftEncode(x uint64) []byte {
	if x == 0 {
		return []byte{1, 0}
	}
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], x)
	i := 0
	for i < 8 && buf[i] == 0 {
		i++
	}
	n := 8 - i
	out := make([]byte, 0, n+1)
	out = append(out, byte(n))
	out = append(out, buf[i:]...)
	return out
}

// encodeString implements SP800-185's encode_string: left_encode(bitlen(s))
// followed by s itself.
func encodeString(s []byte) []byte {
	out := leftEncode(uint64(len(s)) * 8)
	out = append(out, s...)
	return out
}

// bytepad implements SP800-185's bytepad: prefix x with left_encode(w), then
// pad with zero bytes until the total length is a multiple of w.
func bytepad(x []byte, w int) []byte {
	prefix := leftEncode(uint64(w))
	out := make([]byte, 0, len(prefix)+len(x)+w)
	out = append(out, prefix...)
	out = append(out, x...)
	for len(out)%w != 0 {
		out = append(out, 0)
	}
	return out
}
