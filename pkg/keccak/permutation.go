// Package keccak implements the Keccak-f[1600] permutation and the sponge
// constructions built on it: SHAKE-128, SHAKE-256, a non-standard
// 576-bit-capacity "SHAKE-512" HKDS requires, and KMAC (NIST SP800-185).
//
// Mathematical Foundation:
//
// Keccak-f[1600] operates on a 1600-bit state, viewed as 25 64-bit lanes
// arranged in a 5x5 array. Each of the 24 rounds applies five steps in
// sequence: theta (column parity diffusion), rho (per-lane rotation), pi
// (lane permutation), chi (nonlinear row mixing), and iota (round-constant
// injection breaking round symmetry). The lane count and round count are
// fixed by FIPS 202 for the 1600-bit width; nothing here depends on a
// particular rate/capacity split, which is chosen by the sponge built on
// top (see sponge.go).
package keccak

// roundConstants are the 24 Keccak-f[1600] round constants (FIPS 202 §3.2.5).
var roundConstants = [24]uint64{
	0x0000000000000001, 0x0000000000008082, 0x800000000000808A, 0x8000000080008000,
	0x000000000000808B, 0x0000000080000001, 0x8000000080008081, 0x8000000000008009,
	0x000000000000008A, 0x0000000000000088, 0x0000000080008009, 0x000000008000000A,
	0x000000008000808B, 0x800000000000008B, 0x8000000000008089, 0x8000000000008003,
	0x8000000000008002, 0x8000000000000080, 0x000000000000800A, 0x800000008000000A,
	0x8000000080008081, 0x8000000000008080, 0x0000000080000001, 0x8000000080008008,
}

// rotationOffsets are the per-lane rotation amounts indexed by x+5*y
// (FIPS 202 §3.2.2, the rho step), reused below to fold rho and pi into a
// single pass over the state.
var rotationOffsets = [25]uint{
	0, 1, 62, 28, 27,
	36, 44, 6, 55, 20,
	3, 10, 43, 25, 39,
	41, 45, 15, 21, 8,
	18, 2, 61, 56, 14,
}

func rotl64(x uint64, n uint) uint64 {
	return (x << n) | (x >> (64 - n))
}

// permute applies the 24-round Keccak-f[1600] permutation to a, given as 25
// lanes indexed lane = x + 5*y.
func permute(a *[25]uint64) {
	var c, d [5]uint64
	var b [25]uint64

	for round := 0; round < 24; round++ {
		// theta
		for x := 0; x < 5; x++ {
			c[x] = a[x] ^ a[x+5] ^ a[x+10] ^ a[x+15] ^ a[x+20]
		}
		for x := 0; x < 5; x++ {
			d[x] = c[(x+4)%5] ^ rotl64(c[(x+1)%5], 1)
		}
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				a[x+5*y] ^= d[x]
			}
		}

		// rho + pi, combined: B[y][(2x+3y) mod 5] = rotl(A[x][y], r[x][y])
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				lane := x + 5*y
				target := y + 5*((2*x+3*y)%5)
				b[target] = rotl64(a[lane], rotationOffsets[lane])
			}
		}

		// chi
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				a[x+5*y] = b[x+5*y] ^ (^b[(x+1)%5+5*y] & b[(x+2)%5+5*y])
			}
		}

		// iota
		a[0] ^= roundConstants[round]
	}
}
