// Package tsc reads the platform cycle counter for latency measurement:
// the time-stamp counter on x86-64, the virtual counter on arm64, and a
// monotonic clock elsewhere. Readings are raw ticks, comparable only
// within one run on one machine.
package tsc
