// Package gateway accepts FIX byte streams over TCP and feeds decoded
// orders into the SPSC queue.
package gateway

import (
	"fmt"
	"net"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/luxfi/log"

	"github.com/fixmatch/fixmatch/pkg/fix"
	"github.com/fixmatch/fixmatch/pkg/hft"
	"github.com/fixmatch/fixmatch/pkg/spsc"
)

const readBufferSize = 4096

// Gateway binds a TCP listener and runs one handler goroutine per accepted
// connection. The queue contract is single-producer: with the typical
// single benchmark client this holds; concurrent clients would race on the
// producer cursor and are not supported (restrict to one client at a
// time).
type Gateway struct {
	port   int
	queue  *spsc.Queue[hft.Order]
	logger log.Logger

	running  atomic.Bool
	listener net.Listener

	connMu sync.Mutex
	conns  map[net.Conn]struct{}

	wg sync.WaitGroup
}

// New creates a gateway that pushes onto queue.
func New(port int, queue *spsc.Queue[hft.Order], logger log.Logger) *Gateway {
	return &Gateway{
		port:   port,
		queue:  queue,
		logger: logger,
		conns:  make(map[net.Conn]struct{}),
	}
}

// Start binds 0.0.0.0:port and launches the accept loop. Socket lifecycle
// failures are returned to the caller; the gateway is not running after an
// error.
func (g *Gateway) Start() error {
	ln, err := net.Listen("tcp4", fmt.Sprintf("0.0.0.0:%d", g.port))
	if err != nil {
		return fmt.Errorf("gateway: listen on port %d: %w", g.port, err)
	}
	g.listener = ln
	g.running.Store(true)

	g.wg.Add(1)
	go g.acceptLoop()

	g.logger.Info("gateway listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address, valid after Start.
func (g *Gateway) Addr() net.Addr {
	return g.listener.Addr()
}

// Stop closes the listener and all live connections, then joins every
// goroutine the gateway started.
func (g *Gateway) Stop() {
	if !g.running.Swap(false) {
		return
	}
	g.listener.Close()

	g.connMu.Lock()
	for c := range g.conns {
		c.Close()
	}
	g.connMu.Unlock()

	g.wg.Wait()
	g.logger.Info("gateway stopped")
}

func (g *Gateway) acceptLoop() {
	defer g.wg.Done()

	for g.running.Load() {
		conn, err := g.listener.Accept()
		if err != nil {
			if g.running.Load() {
				g.logger.Warn("accept failed", "err", err)
				continue
			}
			return
		}

		g.connMu.Lock()
		g.conns[conn] = struct{}{}
		g.connMu.Unlock()

		g.logger.Info("client connected", "remote", conn.RemoteAddr().String())
		g.wg.Add(1)
		go g.handleClient(conn)
	}
}

// handleClient reads the FIX stream into a rolling buffer, decoding every
// complete frame and carrying partial frames across reads.
func (g *Gateway) handleClient(conn net.Conn) {
	defer g.wg.Done()
	defer func() {
		conn.Close()
		g.connMu.Lock()
		delete(g.conns, conn)
		g.connMu.Unlock()
	}()

	buf := make([]byte, readBufferSize)
	offset := 0

	for g.running.Load() {
		if offset == len(buf) {
			// A single frame exceeds the buffer: grow and keep reading.
			buf = append(buf, make([]byte, len(buf))...)
		}

		n, err := conn.Read(buf[offset:])
		if n <= 0 || err != nil {
			g.logger.Info("client disconnected", "remote", conn.RemoteAddr().String())
			return
		}

		total := offset + n
		processed := 0
		for processed < total {
			order, consumed, ok := fix.Parse(buf[processed:total])
			if consumed == 0 {
				break // incomplete frame, need more bytes
			}
			if ok {
				if !g.push(order) {
					return
				}
			}
			processed += consumed
		}

		if processed < total {
			copy(buf, buf[processed:total])
			offset = total - processed
		} else {
			offset = 0
		}
	}
}

// push publishes one order, spinning with a CPU yield while the queue is
// full. Orders are never dropped; the retry only ends on shutdown.
func (g *Gateway) push(order hft.Order) bool {
	for !g.queue.Push(order) {
		if !g.running.Load() {
			return false
		}
		runtime.Gosched()
	}
	return true
}
