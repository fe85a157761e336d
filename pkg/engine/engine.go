// Package engine drains decoded orders from the ingress queue into an
// order book and measures each insert+match round trip in cycles.
package engine

import (
	"sync/atomic"

	"github.com/luxfi/log"

	"github.com/fixmatch/fixmatch/pkg/hft"
	"github.com/fixmatch/fixmatch/pkg/metrics"
	"github.com/fixmatch/fixmatch/pkg/spsc"
	"github.com/fixmatch/fixmatch/pkg/tsc"
)

// Engine is the consumer side of the SPSC queue. The order book is owned
// exclusively by the goroutine inside Run; the only state other goroutines
// may touch is the atomic top-of-book mirror.
type Engine struct {
	queue     *spsc.Queue[hft.Order]
	book      hft.Book
	collector *metrics.Collector
	logger    log.Logger

	bestBid atomic.Uint64
	bestAsk atomic.Uint64
}

// New wires the engine to its queue, book and metrics sink.
func New(queue *spsc.Queue[hft.Order], book hft.Book, collector *metrics.Collector, logger log.Logger) *Engine {
	e := &Engine{
		queue:     queue,
		book:      book,
		collector: collector,
		logger:    logger,
	}
	e.bestAsk.Store(hft.NoAsk)
	return e
}

// Run spins until running goes false, draining the queue. It never yields;
// pinning the goroutine's thread is the caller's concern. Orders still
// queued when the flag flips may go unprocessed.
func (e *Engine) Run(running *atomic.Bool) {
	e.logger.Info("matching engine loop started", "book", bookName(e.book), "queueCap", e.queue.Cap())

	var order hft.Order
	for running.Load() {
		processed := false
		for e.queue.Pop(&order) {
			e.processOrder(order)
			processed = true
		}
		if processed {
			e.publishTopOfBook()
		}
	}

	e.logger.Info("matching engine loop stopped",
		"orders", e.collector.OrderCount(), "trades", e.collector.TradeCount())
}

// processOrder is the measured hot path: insert, match, record.
func (e *Engine) processOrder(order hft.Order) {
	t0 := tsc.Cycles()
	e.book.AddOrder(order)
	trades := e.book.Match()
	t1 := tsc.Cycles()

	e.collector.RecordLatency(t1 - t0)
	e.collector.IncrementOrders()
	e.collector.IncrementTrades(uint64(len(trades)))
}

func (e *Engine) publishTopOfBook() {
	e.bestBid.Store(e.book.BestBid())
	e.bestAsk.Store(e.book.BestAsk())
}

// TopOfBook returns the last published best bid and ask. Safe from any
// goroutine.
func (e *Engine) TopOfBook() (bid, ask hft.Price) {
	return e.bestBid.Load(), e.bestAsk.Load()
}

// QueueDepth reports current ingress queue occupancy.
func (e *Engine) QueueDepth() int { return e.queue.Len() }

func bookName(b hft.Book) string {
	switch b.(type) {
	case *hft.TreeBook:
		return "map"
	case *hft.VectorBook:
		return "vector"
	case *hft.ArrayBook:
		return "array"
	case *hft.HybridBook:
		return "hybrid"
	default:
		return "custom"
	}
}
