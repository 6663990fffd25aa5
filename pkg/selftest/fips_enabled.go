//go:build fips
// +build fips

// Package selftest implements self-test infrastructure for the HKDS/DUKPT
// symmetric primitives.
//
// This file is compiled when the "fips" build tag is specified. In FIPS
// mode, self-test failures panic rather than merely report.
package selftest

// FIPSMode reports whether the binary was built in FIPS mode.
func FIPSMode() bool { return true }
