//go:build !amd64 && !arm64

package tsc

import "time"

var start = time.Now()

// Cycles falls back to monotonic nanoseconds since process start.
func Cycles() uint64 {
	return uint64(time.Since(start))
}
