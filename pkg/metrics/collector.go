// Package metrics records order/trade counts and per-order latency samples
// for the matching engine, and mirrors the counters into Prometheus.
package metrics

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

// MaxSamples is the retained latency sample capacity. The backing array is
// reserved up front so the hot path never allocates; samples past the cap
// are dropped.
const MaxSamples = 1_000_000

// LatencyStats summarises the recorded cycle deltas.
type LatencyStats struct {
	P50  uint64
	P99  uint64
	P999 uint64
	Max  uint64
	Mean float64
}

// Collector is written by the engine thread only. Counters use relaxed
// atomic increments; the sample count is published atomically so readers
// on other goroutines (the monitor) see a consistent prefix.
type Collector struct {
	orderCount atomic.Uint64
	tradeCount atomic.Uint64

	samples     []uint64
	sampleCount atomic.Uint64

	ordersTotal  prometheus.Counter
	tradesTotal  prometheus.Counter
	matchLatency prometheus.Histogram
}

// NewCollector builds a collector and registers its Prometheus collectors
// with reg when non-nil.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		samples: make([]uint64, MaxSamples),
		ordersTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fixmatch",
			Name:      "orders_processed_total",
			Help:      "Total number of orders processed",
		}),
		tradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fixmatch",
			Name:      "trades_executed_total",
			Help:      "Total number of trades executed",
		}),
		matchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "fixmatch",
			Name:      "match_latency_cycles",
			Help:      "Per-order insert+match latency in cycle-counter ticks",
			Buckets:   []float64{100, 250, 500, 1000, 2500, 5000, 10000, 25000, 50000, 100000, 1000000},
		}),
	}
	if reg != nil {
		reg.MustRegister(c.ordersTotal, c.tradesTotal, c.matchLatency)
	}
	return c
}

// RecordLatency appends one cycle-delta sample. No allocation; drops the
// sample once MaxSamples have been retained.
func (c *Collector) RecordLatency(cycles uint64) {
	n := c.sampleCount.Load()
	if n < MaxSamples {
		c.samples[n] = cycles
		c.sampleCount.Store(n + 1)
	}
	c.matchLatency.Observe(float64(cycles))
}

// IncrementOrders counts one processed order.
func (c *Collector) IncrementOrders() {
	c.orderCount.Add(1)
	c.ordersTotal.Inc()
}

// IncrementTrades counts n executed trades.
func (c *Collector) IncrementTrades(n uint64) {
	if n == 0 {
		return
	}
	c.tradeCount.Add(n)
	c.tradesTotal.Add(float64(n))
}

// OrderCount returns the processed-order total.
func (c *Collector) OrderCount() uint64 { return c.orderCount.Load() }

// TradeCount returns the executed-trade total.
func (c *Collector) TradeCount() uint64 { return c.tradeCount.Load() }

// SampleCount returns the number of retained latency samples.
func (c *Collector) SampleCount() uint64 { return c.sampleCount.Load() }

// Stats computes percentiles over a sorted copy of the samples. Percentile
// index is floor(size * q).
func (c *Collector) Stats() LatencyStats {
	n := c.sampleCount.Load()
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]uint64, n)
	copy(sorted, c.samples[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum float64
	for _, s := range sorted {
		sum += float64(s)
	}

	return LatencyStats{
		P50:  sorted[percentileIndex(n, 0.50)],
		P99:  sorted[percentileIndex(n, 0.99)],
		P999: sorted[percentileIndex(n, 0.999)],
		Max:  sorted[n-1],
		Mean: sum / float64(n),
	}
}

func percentileIndex(n uint64, q float64) uint64 {
	idx := uint64(float64(n) * q)
	if idx >= n {
		idx = n - 1
	}
	return idx
}

// ExportCSV writes one sample per line under a latency_cycles header.
func (c *Collector) ExportCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("metrics: create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if _, err := w.WriteString("latency_cycles\n"); err != nil {
		return err
	}
	n := c.sampleCount.Load()
	for _, s := range c.samples[:n] {
		if _, err := w.WriteString(strconv.FormatUint(s, 10)); err != nil {
			return err
		}
		if err := w.WriteByte('\n'); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
