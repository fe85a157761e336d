//go:build amd64

package tsc

// Cycles returns the current RDTSC reading.
//
//go:noescape
func Cycles() uint64
