package selftest

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/dfd-labs/hkds-go/pkg/secutil"
)

// CSTConfig configures Conditional Self-Test behavior.
type CSTConfig struct {
	// EnableDerivationConsistency enables the key-derivation pairwise
	// consistency test: deriving the same working key twice from the same
	// inputs must agree.
	EnableDerivationConsistency bool

	// EnableRNGHealthCheck enables periodic health checks on RNG output.
	EnableRNGHealthCheck bool

	// RNGHealthCheckInterval is how often to run a full RNG health check
	// (number of SecureRandom-backed calls between checks).
	RNGHealthCheckInterval uint64
}

// DefaultCSTConfig returns the default CST configuration. In FIPS mode all
// tests are enabled; in standard mode they are disabled by default.
func DefaultCSTConfig() CSTConfig {
	return CSTConfig{
		EnableDerivationConsistency: FIPSMode(),
		EnableRNGHealthCheck:        FIPSMode(),
		RNGHealthCheckInterval:      1000,
	}
}

var (
	cstConfig     CSTConfig
	cstConfigOnce sync.Once
	rngCallCount  atomic.Uint64
	lastRNGOutput []byte
	lastRNGMutex  sync.Mutex
)

// InitCST initializes Conditional Self-Tests with the given configuration.
// If never called, DefaultCSTConfig is used.
func InitCST(config CSTConfig) {
	cstConfigOnce.Do(func() {
		cstConfig = config
	})
}

func getConfig() CSTConfig {
	cstConfigOnce.Do(func() {
		cstConfig = DefaultCSTConfig()
	})
	return cstConfig
}

// CSTResult contains the results of a Conditional Self-Test.
type CSTResult struct {
	Passed bool
	Error  error
}

// DerivationConsistencyTest verifies that two independent invocations of a
// key-derivation function with identical inputs produce identical, non-zero
// output. derive is called twice; callers pass a closure bound to their own
// derivation (e.g. DUKPT's DeriveWorkingKey or HKDS's transaction-key
// derivation) so this package never imports those higher-level packages.
func DerivationConsistencyTest(derive func() ([]byte, error)) *CSTResult {
	out1, err := derive()
	if err != nil {
		return &CSTResult{Passed: false, Error: fmt.Errorf("first derivation failed: %w", err)}
	}
	out2, err := derive()
	if err != nil {
		return &CSTResult{Passed: false, Error: fmt.Errorf("second derivation failed: %w", err)}
	}

	if !secutil.ConstantTimeCompare(out1, out2) {
		return &CSTResult{Passed: false, Error: fmt.Errorf("derivation is not repeatable from identical inputs")}
	}
	if isDegenerate(out1) {
		return &CSTResult{Passed: false, Error: fmt.Errorf("derived key is degenerate")}
	}
	return &CSTResult{Passed: true}
}

// runDerivationConsistencyTest runs DerivationConsistencyTest if enabled and
// applies FIPS panic-on-failure behavior.
func runDerivationConsistencyTest(derive func() ([]byte, error)) error {
	config := getConfig()
	if !config.EnableDerivationConsistency {
		return nil
	}

	result := DerivationConsistencyTest(derive)
	if !result.Passed {
		if FIPSMode() {
			panic(fmt.Sprintf("FIPS CST failed: key derivation consistency test: %v", result.Error))
		}
		return result.Error
	}
	return nil
}

// --- DRBG Health Check ---

// RNGHealthCheck verifies that the random source produces non-zero,
// non-repeating, non-constant output across two independent samples.
func RNGHealthCheck() *CSTResult {
	sample1 := make([]byte, 32)
	sample2 := make([]byte, 32)

	if err := secutil.SecureRandom(sample1); err != nil {
		return &CSTResult{Passed: false, Error: fmt.Errorf("RNG read 1 failed: %w", err)}
	}
	if err := secutil.SecureRandom(sample2); err != nil {
		return &CSTResult{Passed: false, Error: fmt.Errorf("RNG read 2 failed: %w", err)}
	}

	if isDegenerate(sample1) {
		return &CSTResult{Passed: false, Error: fmt.Errorf("RNG sample 1 is degenerate")}
	}
	if isDegenerate(sample2) {
		return &CSTResult{Passed: false, Error: fmt.Errorf("RNG sample 2 is degenerate")}
	}
	if bytes.Equal(sample1, sample2) {
		return &CSTResult{Passed: false, Error: fmt.Errorf("RNG produced identical consecutive samples")}
	}
	return &CSTResult{Passed: true}
}

// ContinuousRNGTest implements the continuous RNG test: it compares output
// against the previous call and fails if they match. Call after each
// SecureRandom read in FIPS mode.
func ContinuousRNGTest(output []byte) *CSTResult {
	lastRNGMutex.Lock()
	defer lastRNGMutex.Unlock()

	if lastRNGOutput == nil {
		lastRNGOutput = append([]byte(nil), output...)
		return &CSTResult{Passed: true}
	}

	if len(output) == len(lastRNGOutput) && bytes.Equal(output, lastRNGOutput) {
		return &CSTResult{Passed: false, Error: fmt.Errorf("RNG produced repeated output")}
	}

	if len(lastRNGOutput) != len(output) {
		lastRNGOutput = make([]byte, len(output))
	}
	copy(lastRNGOutput, output)
	return &CSTResult{Passed: true}
}

func runRNGHealthCheck() error {
	config := getConfig()
	if !config.EnableRNGHealthCheck {
		return nil
	}

	count := rngCallCount.Add(1)
	if count%config.RNGHealthCheckInterval == 0 {
		result := RNGHealthCheck()
		if !result.Passed {
			if FIPSMode() {
				panic(fmt.Sprintf("FIPS CST failed: RNG health check: %v", result.Error))
			}
			return result.Error
		}
	}
	return nil
}

// SecureRandomWithCST reads cryptographically secure random bytes and runs
// the continuous RNG test in FIPS mode, plus a periodic health check.
func SecureRandomWithCST(b []byte) error {
	if err := secutil.SecureRandom(b); err != nil {
		return err
	}

	if FIPSMode() {
		result := ContinuousRNGTest(b)
		if !result.Passed {
			panic(fmt.Sprintf("FIPS CST failed: continuous RNG test: %v", result.Error))
		}
	}
	return runRNGHealthCheck()
}

// CSTEnabled reports whether any Conditional Self-Test is enabled.
func CSTEnabled() bool {
	config := getConfig()
	return config.EnableDerivationConsistency || config.EnableRNGHealthCheck
}

// GetCSTConfig returns the current CST configuration.
func GetCSTConfig() CSTConfig {
	return getConfig()
}

// RunDerivationConsistencyTest is the exported entry point the DUKPT and HKDS
// servers call after deriving a fresh working key or transaction-key cache,
// so the check stays optional and does not force an import cycle between
// this package and pkg/dukpt/pkg/hkds.
func RunDerivationConsistencyTest(derive func() ([]byte, error)) error {
	return runDerivationConsistencyTest(derive)
}
