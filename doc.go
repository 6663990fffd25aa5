// Package hkdsgo provides symmetric key-distribution schemes for payment
// and transaction devices: a Hierarchal Key Distribution System (HKDS) and
// ANSI X9.24-3 2017 DUKPT-AES.
//
// Both schemes let a device derive a fresh, unique transaction key for
// every message from an initial key it was loaded with at manufacture
// time, without ever communicating with the issuing host again — the
// host independently recomputes the same key from a master key and the
// device's key serial number (KSN).
//
// # Quick Start
//
// HKDS, unauthenticated mode:
//
//	import "github.com/dfd-labs/hkds-go/pkg/hkds"
//
//	mdk, _ := hkds.GenerateMasterKey(constants.PrfShake256, kid, nil)
//	edk, _ := hkds.GenerateEDK(mdk.BDK, deviceID)
//	client, _ := hkds.NewClient(edk, deviceID, 0)
//
//	ksn, _ := client.KSN()
//	server, _ := hkds.NewServer(mdk, ksn, 0)
//
//	token, _ := server.EncryptToken()
//	pt, _ := client.DecryptToken(token)
//	client.GenerateKeyCache(pt)
//
//	ciphertext, _ := client.Encrypt(plaintext)
//	plaintext, _ := server.Decrypt(ciphertext)
//
// DUKPT-AES:
//
//	import "github.com/dfd-labs/hkds-go/pkg/dukpt"
//
//	client := dukpt.NewClient()
//	client.LoadInitialKey(ik, constants.DukptKeyTypeAES128, ikId)
//	ciphertext, _ := client.Encrypt(plaintext)
//
//	server, _ := dukpt.NewServer(bdk, constants.DukptKeyTypeAES128)
//	plaintext, _ := server.Decrypt(ksn, ciphertext)
//
// # Package Structure
//
//   - pkg/hkds: Hierarchal Key Distribution System client and server
//   - pkg/dukpt: ANSI X9.24-3 2017 DUKPT-AES client and server
//   - pkg/keccak: Keccak-f[1600] sponge, SHAKE-128/256, a non-standard
//     rate-72 SHAKE-512 variant, and KMAC (SP800-185)
//   - pkg/blockcipher, pkg/ecb: AES single-block primitive used by DUKPT
//     key derivation and PIN-block encryption
//   - pkg/sha2: HMAC-SHA-256 for DUKPT's authenticated mode
//   - pkg/secutil: CSPRNG abstraction, constant-time comparison, secret
//     zeroization
//   - pkg/selftest: power-on self-tests and pairwise consistency checks
//   - pkg/metrics: counters, structured logging, tracing, and a
//     Prometheus exporter for device-transaction observability
//   - internal/constants: protocol constants and security parameters
//   - internal/errors: structured error types for key and protocol failures
//
// # Security Properties
//
//   - Forward secrecy within a device: a past transaction key cannot be
//     recomputed from a later device state, since HKDS derives its cache
//     from a one-way SHAKE expansion and DUKPT's shift register only ever
//     moves forward.
//   - Host compromise does not retroactively expose other devices: each
//     device's keys are derived from its own device ID or initial-key ID,
//     never shared in cleartext between devices.
//   - Authenticated modes (HKDS's KMAC tag, DUKPT's HMAC-SHA-256 tag) bind
//     ciphertext and additional data together and are checked with a
//     constant-time comparison.
//   - Self-test: derivation is re-verified pairwise on every server-side
//     recompute in FIPS builds (see pkg/selftest).
//
// # References
//
//   - ANSI X9.24-3 2017: Derived Unique Key Per Transaction (AES)
//   - NIST FIPS 202: SHA-3 Standard (SHAKE-128/256)
//   - NIST SP 800-185: SHA-3 Derived Functions (cSHAKE, KMAC)
//   - NIST FIPS 197: Advanced Encryption Standard
package hkdsgo
