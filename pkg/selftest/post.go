// Package selftest implements Power-On Self-Tests (POST) and Conditional
// Self-Tests (CST) for the symmetric primitives underlying the DUKPT-AES
// and HKDS key-distribution subsystems.
//
// POST is production code, not test code: it runs automatically when this
// package is loaded, before any derivation or encryption takes place. It
// verifies AES against a known answer and checks SHAKE, HMAC-SHA-256 and
// KMAC for self-consistency. CST runs during operation: random buffers read
// through SecureRandomWithCST are checked for repeats and degenerate output,
// and RunDerivationConsistencyTest checks that repeated derivations of the
// same working key agree with each other.
//
// In FIPS mode, POST/CST failures panic to prevent use of a potentially
// compromised build. In standard mode, failures are reported but do not
// block operation.
package selftest

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/dfd-labs/hkds-go/pkg/blockcipher"
	"github.com/dfd-labs/hkds-go/pkg/keccak"
	"github.com/dfd-labs/hkds-go/pkg/sha2"
)

// Known-answer values for the AES-128 single-block KAT, from FIPS-197
// Appendix B.
var (
	postKATAESKey, _        = hex.DecodeString("000102030405060708090a0b0c0d0e0f")
	postKATAESPlaintext, _  = hex.DecodeString("00112233445566778899aabbccddeeff")
	postKATAESCiphertext, _ = hex.DecodeString("69c4e0d86a7b0430d8cdb78070b4c55a")
)

// PostResult contains the results of Power-On Self-Tests.
type PostResult struct {
	Passed      bool
	AESPassed   bool
	ShakePassed bool
	HMACPassed  bool
	KMACPassed  bool
	Errors      []string
}

var (
	postResult     *PostResult
	postResultOnce sync.Once
	postRan        bool
)

// RunPOST executes the Power-On Self-Tests and returns the results. Safe to
// call multiple times; the tests only run once.
func RunPOST() *PostResult {
	postResultOnce.Do(func() {
		postResult = &PostResult{Passed: true}

		if err := runAESKAT(); err != nil {
			postResult.Passed = false
			postResult.Errors = append(postResult.Errors, fmt.Sprintf("AES KAT failed: %v", err))
		} else {
			postResult.AESPassed = true
		}

		if err := runShakeKAT(); err != nil {
			postResult.Passed = false
			postResult.Errors = append(postResult.Errors, fmt.Sprintf("SHAKE KAT failed: %v", err))
		} else {
			postResult.ShakePassed = true
		}

		if err := runHMACKAT(); err != nil {
			postResult.Passed = false
			postResult.Errors = append(postResult.Errors, fmt.Sprintf("HMAC-SHA256 KAT failed: %v", err))
		} else {
			postResult.HMACPassed = true
		}

		if err := runKMACKAT(); err != nil {
			postResult.Passed = false
			postResult.Errors = append(postResult.Errors, fmt.Sprintf("KMAC KAT failed: %v", err))
		} else {
			postResult.KMACPassed = true
		}

		postRan = true

		if FIPSMode() && !postResult.Passed {
			panic(fmt.Sprintf("FIPS POST failed: %v", postResult.Errors))
		}
	})

	return postResult
}

// POSTRan reports whether POST has been executed.
func POSTRan() bool {
	return postRan
}

// POSTPassed reports whether POST has run and all tests passed.
func POSTPassed() bool {
	if postResult == nil {
		return false
	}
	return postResult.Passed
}

// runAESKAT verifies single-block AES-128 encryption and decryption against
// the FIPS-197 Appendix B known answer.
func runAESKAT() error {
	ct, err := blockcipher.EncryptBlockInto(postKATAESKey, postKATAESPlaintext)
	if err != nil {
		return fmt.Errorf("EncryptBlockInto failed: %w", err)
	}
	if !bytes.Equal(ct, postKATAESCiphertext) {
		return fmt.Errorf("AES encrypt mismatch: got %x, want %x", ct, postKATAESCiphertext)
	}

	pt, err := blockcipher.DecryptBlockInto(postKATAESKey, ct)
	if err != nil {
		return fmt.Errorf("DecryptBlockInto failed: %w", err)
	}
	if !bytes.Equal(pt, postKATAESPlaintext) {
		return fmt.Errorf("AES decrypt mismatch: got %x, want %x", pt, postKATAESPlaintext)
	}
	return nil
}

// runShakeKAT is a self-consistency check rather than a literal known-answer
// test: the module has no externally published SHAKE vector it can cite
// with confidence, so it instead verifies the two invariants that would
// catch a broken permutation or a broken rate/domain-byte wiring — equal
// inputs squeeze equal output, and the output is not the degenerate
// all-zero or fixed-repeating pattern a stuck sponge state would produce.
func runShakeKAT() error {
	input := []byte("hkds-go self-test input")

	out1 := keccak.Shake128(input, 32)
	out2 := keccak.Shake128(input, 32)
	if !bytes.Equal(out1, out2) {
		return fmt.Errorf("SHAKE-128 not deterministic: %x != %x", out1, out2)
	}
	if isDegenerate(out1) {
		return fmt.Errorf("SHAKE-128 output degenerate: %x", out1)
	}

	out3 := keccak.Shake256(input, 64)
	if isDegenerate(out3) {
		return fmt.Errorf("SHAKE-256 output degenerate: %x", out3)
	}
	if bytes.Equal(out3[:32], out1) {
		return fmt.Errorf("SHAKE-256 and SHAKE-128 produced identical prefixes, rate likely misconfigured")
	}

	out4 := keccak.Shake512NonStandard(input, 64)
	if isDegenerate(out4) {
		return fmt.Errorf("SHAKE-512 output degenerate: %x", out4)
	}
	if bytes.Equal(out4, out3) {
		return fmt.Errorf("SHAKE-512 and SHAKE-256 produced identical output, rate likely misconfigured")
	}

	return nil
}

// runHMACKAT is likewise a self-consistency check: it confirms HMAC-SHA-256
// is deterministic, rejects a wrong key, and produces a verifiable tag
// through the package's own VerifyHMACSHA256 path.
func runHMACKAT() error {
	key := []byte("hkds-go self-test key")
	msg := []byte("hkds-go self-test message")

	tag1 := sha2.HMACSHA256(key, msg)
	tag2 := sha2.HMACSHA256(key, msg)
	if !bytes.Equal(tag1, tag2) {
		return fmt.Errorf("HMAC-SHA256 not deterministic")
	}
	if err := sha2.VerifyHMACSHA256(key, msg, tag1); err != nil {
		return fmt.Errorf("VerifyHMACSHA256 rejected its own tag: %w", err)
	}

	wrongKey := []byte("hkds-go self-test KEY")
	if err := sha2.VerifyHMACSHA256(wrongKey, msg, tag1); err == nil {
		return fmt.Errorf("VerifyHMACSHA256 accepted a tag under the wrong key")
	}
	return nil
}

// runKMACKAT confirms KMAC is deterministic for fixed inputs and that
// varying the customization string changes the tag, exercising the
// cSHAKE domain-separation path distinct from plain SHAKE.
func runKMACKAT() error {
	key := []byte("hkds-go self-test KMAC key 16by")
	msg := []byte("hkds-go self-test KMAC message")

	tag1 := keccak.KMAC(keccak.RateShake128, key, []byte("HKDS"), msg, 16)
	tag2 := keccak.KMAC(keccak.RateShake128, key, []byte("HKDS"), msg, 16)
	if !bytes.Equal(tag1, tag2) {
		return fmt.Errorf("KMAC not deterministic")
	}
	if isDegenerate(tag1) {
		return fmt.Errorf("KMAC output degenerate: %x", tag1)
	}

	tag3 := keccak.KMAC(keccak.RateShake128, key, []byte("OTHR"), msg, 16)
	if bytes.Equal(tag1, tag3) {
		return fmt.Errorf("KMAC ignored customization string")
	}
	return nil
}

func isDegenerate(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	allZero, allSame := true, true
	for _, v := range b {
		if v != 0 {
			allZero = false
		}
		if v != b[0] {
			allSame = false
		}
	}
	return allZero || allSame
}

func init() {
	RunPOST()
}
