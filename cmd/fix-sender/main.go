// fix-sender is the benchmark client: it pre-generates FIX 4.2
// NewOrderSingle messages in memory, then streams them to the server so
// the measurement covers network and matching, not message construction.
//
// Usage: fix-sender [flags] [orderCount]   (default 1,000,000 orders)
package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/luxfi/log"

	"github.com/fixmatch/fixmatch/pkg/fix"
	"github.com/fixmatch/fixmatch/pkg/hft"
)

const defaultOrderCount = 1_000_000

func main() {
	var (
		host = flag.String("host", "127.0.0.1", "server host")
		port = flag.Int("port", 12345, "server port")
		seed = flag.Int64("seed", 42, "order generation seed")
	)
	flag.Parse()

	logger := log.Root().New("module", "fix-sender")

	orderCount := defaultOrderCount
	if flag.NArg() > 0 {
		n, err := strconv.Atoi(flag.Arg(0))
		if err != nil || n <= 0 {
			logger.Warn("invalid order count, using default", "arg", flag.Arg(0))
			n = defaultOrderCount
		}
		orderCount = n
	}

	logger.Info("preparing orders in memory", "count", orderCount)

	rng := rand.New(rand.NewSource(*seed))
	messages := make([][]byte, 0, orderCount)
	totalBytes := 0
	for i := 0; i < orderCount; i++ {
		side := hft.Sell
		if rng.Intn(2) == 0 {
			side = hft.Buy
		}
		msg := fix.BuildNewOrderSingle(
			uint64(i),
			uint64(90+rng.Intn(21)), // price 90..110
			uint64(1+rng.Intn(100)), // quantity 1..100
			side,
			hft.Limit,
		)
		messages = append(messages, msg)
		totalBytes += len(msg)
	}

	addr := fmt.Sprintf("%s:%d", *host, *port)
	logger.Info("connecting", "addr", addr)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		logger.Error("connect failed", "addr", addr, "err", err)
		os.Exit(1)
	}
	defer conn.Close()

	w := bufio.NewWriterSize(conn, 1<<16)
	start := time.Now()
	for _, msg := range messages {
		if _, err := w.Write(msg); err != nil {
			logger.Error("send failed", "err", err)
			os.Exit(1)
		}
	}
	if err := w.Flush(); err != nil {
		logger.Error("send failed", "err", err)
		os.Exit(1)
	}
	elapsed := time.Since(start)

	logger.Info("done",
		"orders", orderCount,
		"bytes", totalBytes,
		"elapsed", elapsed.String(),
		"ordersPerSec", fmt.Sprintf("%.0f", float64(orderCount)/elapsed.Seconds()),
	)
}
