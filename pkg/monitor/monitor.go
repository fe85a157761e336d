// Package monitor serves the observability surface: Prometheus metrics,
// a health probe, and a websocket stream of live engine statistics. It
// reads only the metrics collector and the engine's atomic top-of-book
// mirror, never the book itself.
package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/fixmatch/fixmatch/pkg/hft"
	"github.com/fixmatch/fixmatch/pkg/metrics"
)

// EngineView is the read-only slice of the engine the monitor needs.
type EngineView interface {
	TopOfBook() (bid, ask hft.Price)
	QueueDepth() int
}

// Snapshot is one stats frame pushed over the websocket.
type Snapshot struct {
	Timestamp  time.Time `json:"timestamp"`
	Orders     uint64    `json:"orders"`
	Trades     uint64    `json:"trades"`
	P50Cycles  uint64    `json:"p50_cycles"`
	P99Cycles  uint64    `json:"p99_cycles"`
	P999Cycles uint64    `json:"p999_cycles"`
	MaxCycles  uint64    `json:"max_cycles"`
	MeanCycles float64   `json:"mean_cycles"`
	QueueDepth int       `json:"queue_depth"`
	BestBid    string    `json:"best_bid"`
	BestAsk    string    `json:"best_ask"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server is the monitor HTTP server.
type Server struct {
	collector *metrics.Collector
	engine    EngineView
	gatherer  prometheus.Gatherer
	tickValue decimal.Decimal
	logger    log.Logger

	httpServer *http.Server
}

// NewServer builds a monitor over the given collector, engine view and
// Prometheus gatherer.
func NewServer(collector *metrics.Collector, engine EngineView, gatherer prometheus.Gatherer, tickValue decimal.Decimal, logger log.Logger) *Server {
	return &Server{
		collector: collector,
		engine:    engine,
		gatherer:  gatherer,
		tickValue: tickValue,
		logger:    logger,
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start serves on addr in a background goroutine.
func (s *Server) Start(addr string) {
	mux := s.routes()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	s.logger.Info("monitor listening", "addr", addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("monitor server error", "err", err)
		}
	}()
}

// Stop shuts the HTTP server down. Websocket connections are hijacked from
// the server, so Shutdown does not close them; each stream keeps running
// until a write to its client fails.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// handleWS pushes one Snapshot per second until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	s.logger.Info("stats subscriber connected", "remote", conn.RemoteAddr().String())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		payload, err := json.Marshal(s.snapshot())
		if err != nil {
			return
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (s *Server) snapshot() Snapshot {
	stats := s.collector.Stats()
	bid, ask := s.engine.TopOfBook()
	return Snapshot{
		Timestamp:  time.Now(),
		Orders:     s.collector.OrderCount(),
		Trades:     s.collector.TradeCount(),
		P50Cycles:  stats.P50,
		P99Cycles:  stats.P99,
		P999Cycles: stats.P999,
		MaxCycles:  stats.Max,
		MeanCycles: stats.Mean,
		QueueDepth: s.engine.QueueDepth(),
		BestBid:    hft.DisplayPrice(bid, s.tickValue),
		BestAsk:    hft.DisplayPrice(ask, s.tickValue),
	}
}
