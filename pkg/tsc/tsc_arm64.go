//go:build arm64

package tsc

// Cycles returns the current CNTVCT_EL0 reading.
//
//go:noescape
func Cycles() uint64
