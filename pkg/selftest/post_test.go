package selftest_test

import (
	"testing"

	"github.com/dfd-labs/hkds-go/pkg/selftest"
)

func TestPOSTRan(t *testing.T) {
	if !selftest.POSTRan() {
		t.Error("POST should have run on package initialization")
	}
}

func TestPOSTPassed(t *testing.T) {
	if !selftest.POSTPassed() {
		t.Error("POST should have passed")
	}
}

func TestRunPOST(t *testing.T) {
	result := selftest.RunPOST()
	if result == nil {
		t.Fatal("RunPOST() returned nil")
	}
	if !result.Passed {
		t.Errorf("POST failed with errors: %v", result.Errors)
	}
	if !result.AESPassed {
		t.Error("AES KAT should have passed")
	}
	if !result.ShakePassed {
		t.Error("SHAKE self-consistency check should have passed")
	}
	if !result.HMACPassed {
		t.Error("HMAC-SHA256 self-consistency check should have passed")
	}
	if !result.KMACPassed {
		t.Error("KMAC self-consistency check should have passed")
	}
	if len(result.Errors) > 0 {
		t.Errorf("POST reported errors: %v", result.Errors)
	}
}

func TestRunPOSTIdempotent(t *testing.T) {
	result1 := selftest.RunPOST()
	result2 := selftest.RunPOST()
	if result1 != result2 {
		t.Error("RunPOST() should return the same result object on subsequent calls")
	}
}
