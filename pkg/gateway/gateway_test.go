package gateway

import (
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"

	"github.com/fixmatch/fixmatch/pkg/fix"
	"github.com/fixmatch/fixmatch/pkg/hft"
	"github.com/fixmatch/fixmatch/pkg/spsc"
)

func startGateway(t *testing.T) (*Gateway, *spsc.Queue[hft.Order]) {
	t.Helper()
	queue, err := spsc.New[hft.Order](1024)
	require.NoError(t, err)

	gw := New(0, queue, log.Root().New("module", "gateway-test"))
	require.NoError(t, gw.Start())
	t.Cleanup(gw.Stop)
	return gw, queue
}

// dialAddr targets loopback at the gateway's bound port.
func dialAddr(t *testing.T, gw *Gateway) string {
	t.Helper()
	addr, ok := gw.Addr().(*net.TCPAddr)
	require.True(t, ok)
	return fmt.Sprintf("127.0.0.1:%d", addr.Port)
}

func drain(t *testing.T, queue *spsc.Queue[hft.Order], n int) []hft.Order {
	t.Helper()
	orders := make([]hft.Order, 0, n)
	deadline := time.After(5 * time.Second)
	var o hft.Order
	for len(orders) < n {
		if queue.Pop(&o) {
			orders = append(orders, o)
			continue
		}
		select {
		case <-deadline:
			t.Fatalf("drained %d orders, want %d", len(orders), n)
		default:
			time.Sleep(time.Millisecond)
		}
	}
	return orders
}

func TestGatewayDecodesStream(t *testing.T) {
	gw, queue := startGateway(t)

	conn, err := net.Dial("tcp", dialAddr(t, gw))
	require.NoError(t, err)
	defer conn.Close()

	var payload []byte
	for i := 1; i <= 50; i++ {
		payload = append(payload, fix.BuildNewOrderSingle(
			hft.OrderID(i), hft.Price(100+i%5), hft.Quantity(i), hft.Buy, hft.Limit)...)
	}
	_, err = conn.Write(payload)
	require.NoError(t, err)

	orders := drain(t, queue, 50)
	for i, o := range orders {
		require.Equal(t, hft.OrderID(i+1), o.ID, "FIFO order broken")
		require.Equal(t, hft.Quantity(i+1), o.Quantity)
	}
}

func TestGatewayReassemblesSplitFrames(t *testing.T) {
	gw, queue := startGateway(t)

	conn, err := net.Dial("tcp", dialAddr(t, gw))
	require.NoError(t, err)
	defer conn.Close()

	msgA := fix.BuildNewOrderSingle(1, 100, 10, hft.Buy, hft.Limit)
	msgB := fix.BuildNewOrderSingle(2, 101, 20, hft.Sell, hft.Limit)
	stream := append(append([]byte{}, msgA...), msgB...)

	// Dribble the stream one byte at a time across reads.
	for _, b := range stream {
		_, err := conn.Write([]byte{b})
		require.NoError(t, err)
	}

	orders := drain(t, queue, 2)
	require.Equal(t, hft.OrderID(1), orders[0].ID)
	require.Equal(t, hft.OrderID(2), orders[1].ID)
	require.Equal(t, hft.Sell, orders[1].Side)
}

func TestGatewaySkipsForeignFrames(t *testing.T) {
	gw, queue := startGateway(t)

	conn, err := net.Dial("tcp", dialAddr(t, gw))
	require.NoError(t, err)
	defer conn.Close()

	heartbeat := []byte("8=FIX.4.2\x019=5\x0135=0\x0110=123\x01")
	order := fix.BuildNewOrderSingle(7, 100, 1, hft.Buy, hft.Limit)

	_, err = conn.Write(append(append([]byte{}, heartbeat...), order...))
	require.NoError(t, err)

	orders := drain(t, queue, 1)
	require.Equal(t, hft.OrderID(7), orders[0].ID)
}

func TestGatewaySurvivesClientDisconnect(t *testing.T) {
	gw, queue := startGateway(t)

	first, err := net.Dial("tcp", dialAddr(t, gw))
	require.NoError(t, err)
	_, err = first.Write(fix.BuildNewOrderSingle(1, 100, 1, hft.Buy, hft.Limit))
	require.NoError(t, err)
	drain(t, queue, 1)
	require.NoError(t, first.Close())

	// The next client must still be served.
	second, err := net.Dial("tcp", dialAddr(t, gw))
	require.NoError(t, err)
	defer second.Close()
	_, err = second.Write(fix.BuildNewOrderSingle(2, 101, 2, hft.Sell, hft.Limit))
	require.NoError(t, err)

	orders := drain(t, queue, 1)
	require.Equal(t, hft.OrderID(2), orders[0].ID)
}

func TestGatewayStopUnblocksEverything(t *testing.T) {
	queue, err := spsc.New[hft.Order](1024)
	require.NoError(t, err)
	gw := New(0, queue, log.Root().New("module", "gateway-test"))
	require.NoError(t, gw.Start())

	conn, err := net.Dial("tcp", dialAddr(t, gw))
	require.NoError(t, err)
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		gw.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not join gateway goroutines")
	}

	// Idempotent.
	gw.Stop()
}
