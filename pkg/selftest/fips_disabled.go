//go:build !fips
// +build !fips

// Package selftest implements self-test infrastructure for the HKDS/DUKPT
// symmetric primitives.
//
// This file is compiled when the "fips" build tag is NOT specified. In
// standard mode, self-test failures are reported but do not block operation.
package selftest

// FIPSMode reports whether the binary was built in FIPS mode.
func FIPSMode() bool { return false }
