// fixmatchd is the matching benchmark server: FIX 4.2 ingress over TCP,
// one SPSC queue, one matching engine goroutine, and a monitor endpoint.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/fixmatch/fixmatch/pkg/engine"
	"github.com/fixmatch/fixmatch/pkg/gateway"
	"github.com/fixmatch/fixmatch/pkg/hft"
	"github.com/fixmatch/fixmatch/pkg/metrics"
	"github.com/fixmatch/fixmatch/pkg/monitor"
	"github.com/fixmatch/fixmatch/pkg/spsc"
)

func main() {
	var (
		port        = flag.Int("port", 12345, "TCP ingress port")
		bookKind    = flag.String("book", "map", "order book variant: map, vector, array, hybrid")
		queueCap    = flag.Int("queue", 1024, "SPSC queue capacity (power of two)")
		monitorAddr = flag.String("monitor", ":9090", "monitor listen address (empty disables)")
		csvPath     = flag.String("csv", "", "write latency samples to this file on exit")
		hotLevels   = flag.Int("hot-levels", hft.DefaultMaxHotLevels, "hybrid book hot tier size")
		minPrice    = flag.Uint64("min-price", 1, "array book minimum price, in ticks")
		maxPrice    = flag.Uint64("max-price", 200000, "array book maximum price, in ticks")
		tickSize    = flag.Uint64("tick", 1, "array book tick size")
		tickValue   = flag.String("tick-value", "0.01", "display value of one tick")
	)
	flag.Parse()

	logger := log.Root().New("module", "fixmatchd")

	tv, err := decimal.NewFromString(*tickValue)
	if err != nil {
		logger.Warn("invalid tick-value, using default", "tickValue", *tickValue)
		tv = hft.DefaultTickValue
	}

	book, err := buildBook(*bookKind, *hotLevels, *minPrice, *maxPrice, *tickSize)
	if err != nil {
		logger.Error("order book configuration invalid", "err", err)
		os.Exit(1)
	}

	queue, err := spsc.New[hft.Order](*queueCap)
	if err != nil {
		logger.Error("queue configuration invalid", "err", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)
	eng := engine.New(queue, book, collector, log.Root().New("module", "engine"))
	gw := gateway.New(*port, queue, log.Root().New("module", "gateway"))

	var running atomic.Bool
	running.Store(true)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, stopping", "signal", sig.String())
		running.Store(false)
	}()

	if err := gw.Start(); err != nil {
		logger.Error("gateway start failed", "err", err)
		os.Exit(1)
	}

	var mon *monitor.Server
	if *monitorAddr != "" {
		mon = monitor.NewServer(collector, eng, registry, tv, log.Root().New("module", "monitor"))
		mon.Start(*monitorAddr)
	}

	logger.Info("serving", "port", *port, "book", *bookKind)
	eng.Run(&running)

	gw.Stop()
	if mon != nil {
		mon.Stop()
	}

	stats := collector.Stats()
	bid, ask := eng.TopOfBook()
	logger.Info("final statistics",
		"orders", collector.OrderCount(),
		"trades", collector.TradeCount(),
		"p50Cycles", stats.P50,
		"p99Cycles", stats.P99,
		"p999Cycles", stats.P999,
		"maxCycles", stats.Max,
		"meanCycles", fmt.Sprintf("%.1f", stats.Mean),
		"bestBid", hft.DisplayPrice(bid, tv),
		"bestAsk", hft.DisplayPrice(ask, tv),
	)

	if *csvPath != "" {
		if err := collector.ExportCSV(*csvPath); err != nil {
			logger.Error("latency export failed", "err", err)
			os.Exit(1)
		}
		logger.Info("latency samples written", "path", *csvPath, "samples", collector.SampleCount())
	}
}

func buildBook(kind string, hotLevels int, minPrice, maxPrice, tickSize uint64) (hft.Book, error) {
	switch kind {
	case "map":
		return hft.NewTreeBook(), nil
	case "vector":
		return hft.NewVectorBook(), nil
	case "array":
		return hft.NewArrayBook(minPrice, maxPrice, tickSize)
	case "hybrid":
		return hft.NewHybridBook(hotLevels), nil
	default:
		return nil, fmt.Errorf("unknown book variant %q", kind)
	}
}
