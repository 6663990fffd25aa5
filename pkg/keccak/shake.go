package keccak

// Rate/capacity table (spec §4.2). SHAKE-128 and SHAKE-256 are the FIPS-202
// standard XOFs. The 72-byte-rate/1024-bit-capacity instance is NOT a
// FIPS-202 construction — it shares the same Keccak-f[1600] permutation and
// SHAKE domain byte but at a rate no standard mode defines. It exists only
// because HKDS's DeviceId.PrfMode selects it as a third option alongside the
// two standard rates; callers must not confuse it with SHA3-512 or any
// standardized "SHAKE-512".
const (
	RateShake128           = 168
	RateShake256           = 136
	RateShake512NonStandard = 72

	domainShake  byte = 0x1F
	domainCShake byte = 0x04
)

// Shake is a stateful SHAKE-family extendable-output function. Absorb may be
// called any number of times; the first Squeeze call finalizes the input and
// begins producing output. Squeeze may then be called repeatedly to draw an
// arbitrarily long stream, matching the sponge's absorb/squeeze contract.
type Shake struct {
	s *sponge
}

func newShake(rate int) *Shake {
	return &Shake{s: newSponge(rate, domainShake)}
}

// NewShake128 returns a SHAKE-128 instance (rate 168 bytes, 256-bit capacity).
func NewShake128() *Shake { return newShake(RateShake128) }

// NewShake256 returns a SHAKE-256 instance (rate 136 bytes, 512-bit capacity).
func NewShake256() *Shake { return newShake(RateShake256) }

// NewShake512NonStandard returns the non-standard 576-bit-capacity sponge
// HKDS selects via PrfMode SHAKE-512. This is not FIPS-202 SHA3-512.
func NewShake512NonStandard() *Shake { return newShake(RateShake512NonStandard) }

// Absorb mixes p into the sponge's input.
func (sh *Shake) Absorb(p []byte) { sh.s.absorb(p) }

// Squeeze returns the next n bytes of output.
func (sh *Shake) Squeeze(n int) []byte { return sh.s.squeeze(n) }

// Shake128 is the one-shot form: absorb input, squeeze outLen bytes.
func Shake128(input []byte, outLen int) []byte {
	sh := NewShake128()
	sh.Absorb(input)
	return sh.Squeeze(outLen)
}

// Shake256 is the one-shot form: absorb input, squeeze outLen bytes.
func Shake256(input []byte, outLen int) []byte {
	sh := NewShake256()
	sh.Absorb(input)
	return sh.Squeeze(outLen)
}

// Shake512NonStandard is the one-shot form of NewShake512NonStandard.
func Shake512NonStandard(input []byte, outLen int) []byte {
	sh := NewShake512NonStandard()
	sh.Absorb(input)
	return sh.Squeeze(outLen)
}

// RateForKeySize returns the SHAKE rate matching a BDK/STK/EDK/token key
// size of 16, 32, or 64 bytes (spec §9: PrfMode is exposed by key-size
// class, with SHAKE-128 for 16-byte keys, SHAKE-256 for 32-byte keys, and
// the non-standard 72-byte-rate sponge for 64-byte keys).
func RateForKeySize(n int) (rate int, ok bool) {
	switch n {
	case 16:
		return RateShake128, true
	case 32:
		return RateShake256, true
	case 64:
		return RateShake512NonStandard, true
	default:
		return 0, false
	}
}

// newShakeForRate builds a Shake instance from a rate value, used internally
// by callers that have already resolved a PrfMode to a rate.
func newShakeForRate(rate int) *Shake {
	return newShake(rate)
}

// XOF runs the SHAKE instance selected by rate as a one-shot function.
func XOF(rate int, input []byte, outLen int) []byte {
	sh := newShakeForRate(rate)
	sh.Absorb(input)
	return sh.Squeeze(outLen)
}
