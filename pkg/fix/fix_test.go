package fix

import (
	"bytes"
	"strconv"
	"testing"

	"github.com/fixmatch/fixmatch/pkg/hft"
)

// soh builds a message from pipe-separated fields for readable tests.
func soh(msg string) []byte {
	return bytes.ReplaceAll([]byte(msg), []byte("|"), []byte{SOH})
}

func TestRoundTrip(t *testing.T) {
	cases := []struct {
		id    hft.OrderID
		price hft.Price
		qty   hft.Quantity
		side  hft.Side
		typ   hft.OrderType
	}{
		{1, 100, 10, hft.Buy, hft.Limit},
		{42, 99, 1, hft.Sell, hft.Limit},
		{18446744073709551615, 1, 18446744073709551615, hft.Buy, hft.Limit},
		{7, 105, 3, hft.Sell, hft.Market},
	}

	for _, tc := range cases {
		msg := BuildNewOrderSingle(tc.id, tc.price, tc.qty, tc.side, tc.typ)
		order, consumed, ok := Parse(msg)
		if !ok {
			t.Fatalf("parse of built message failed: %q", msg)
		}
		if consumed != len(msg) {
			t.Errorf("consumed = %d, want %d", consumed, len(msg))
		}
		if order.ID != tc.id || order.Price != tc.price || order.Quantity != tc.qty ||
			order.Side != tc.side || order.Type != tc.typ {
			t.Errorf("decoded %+v, want %+v", order, tc)
		}
	}
}

func TestParseConcatenatedMessages(t *testing.T) {
	const k = 10
	var buf []byte
	for i := 0; i < k; i++ {
		buf = append(buf, BuildNewOrderSingle(hft.OrderID(i), 100, 5, hft.Buy, hft.Limit)...)
	}

	var orders []hft.Order
	processed := 0
	for processed < len(buf) {
		order, consumed, ok := Parse(buf[processed:])
		if consumed == 0 {
			break
		}
		if ok {
			orders = append(orders, order)
		}
		processed += consumed
	}

	if len(orders) != k {
		t.Fatalf("decoded %d orders, want %d", len(orders), k)
	}
	if processed != len(buf) {
		t.Fatalf("processed = %d, want %d", processed, len(buf))
	}
	for i, o := range orders {
		if o.ID != hft.OrderID(i) {
			t.Errorf("order %d has id %d (out of order)", i, o.ID)
		}
	}
}

func TestParseIncompleteFrames(t *testing.T) {
	msg := BuildNewOrderSingle(1, 100, 5, hft.Buy, hft.Limit)

	// Any prefix that cuts the trailer is incomplete with consumed == 0.
	for cut := 1; cut < len(msg); cut++ {
		_, consumed, ok := Parse(msg[:cut])
		if consumed != 0 || ok {
			t.Fatalf("prefix of %d bytes: consumed=%d ok=%v, want incomplete", cut, consumed, ok)
		}
	}

	if _, consumed, ok := Parse(nil); consumed != 0 || ok {
		t.Fatal("empty buffer not reported incomplete")
	}
}

func TestParseSkipsNonNewOrderSingle(t *testing.T) {
	heartbeat := soh("8=FIX.4.2|9=5|35=0|10=123|")
	order := BuildNewOrderSingle(9, 101, 2, hft.Sell, hft.Limit)
	buf := append(append([]byte{}, heartbeat...), order...)

	_, consumed, ok := Parse(buf)
	if ok {
		t.Fatal("heartbeat produced an order")
	}
	if consumed != len(heartbeat) {
		t.Fatalf("consumed = %d, want %d (frame skipped)", consumed, len(heartbeat))
	}

	got, consumed2, ok := Parse(buf[consumed:])
	if !ok || got.ID != 9 {
		t.Fatalf("second frame: ok=%v order=%+v", ok, got)
	}
	if consumed+consumed2 != len(buf) {
		t.Fatalf("total consumed = %d, want %d", consumed+consumed2, len(buf))
	}
}

func TestParseMalformedNumericsBestEffort(t *testing.T) {
	msg := soh("8=FIX.4.2|9=30|35=D|11=12x9|54=1|38=abc|44=10.5|40=2|10=000|")

	order, consumed, ok := Parse(msg)
	if !ok {
		t.Fatal("lenient parse rejected the frame")
	}
	if consumed != len(msg) {
		t.Errorf("consumed = %d, want %d", consumed, len(msg))
	}
	if order.ID != 12 {
		t.Errorf("id = %d, want prefix-parsed 12", order.ID)
	}
	if order.Quantity != 0 {
		t.Errorf("quantity = %d, want 0", order.Quantity)
	}
	if order.Price != 10 {
		t.Errorf("price = %d, want prefix-parsed 10", order.Price)
	}
}

func TestParseSideAndTypeMapping(t *testing.T) {
	// Side: "1" is buy, anything else sells. Type: "1" is market,
	// anything else is a limit.
	msg := soh("8=FIX.4.2|9=28|35=D|11=5|54=2|38=1|44=100|40=1|10=000|")
	order, _, ok := Parse(msg)
	if !ok {
		t.Fatal("parse failed")
	}
	if order.Side != hft.Sell || order.Type != hft.Market {
		t.Errorf("side=%v type=%v, want sell/market", order.Side, order.Type)
	}

	msg = soh("8=FIX.4.2|9=28|35=D|11=5|54=9|38=1|44=100|40=7|10=000|")
	order, _, _ = Parse(msg)
	if order.Side != hft.Sell || order.Type != hft.Limit {
		t.Errorf("side=%v type=%v, want sell/limit", order.Side, order.Type)
	}
}

func TestBuildChecksumAndBodyLength(t *testing.T) {
	msg := BuildNewOrderSingle(123, 100, 10, hft.Buy, hft.Limit)

	fields := bytes.Split(bytes.TrimSuffix(msg, []byte{SOH}), []byte{SOH})
	last := fields[len(fields)-1]
	if !bytes.HasPrefix(last, []byte("10=")) || len(last) != 6 {
		t.Fatalf("trailer = %q, want 10=NNN", last)
	}

	var sum uint32
	trailerStart := bytes.LastIndex(msg, []byte("10="))
	for _, c := range msg[:trailerStart] {
		sum += uint32(c)
	}
	want := sum % 256
	got := uint32(last[3]-'0')*100 + uint32(last[4]-'0')*10 + uint32(last[5]-'0')
	if got != want {
		t.Errorf("checksum = %03d, want %03d", got, want)
	}

	// 9= declares the byte count from the start of 35= up to the trailer.
	declared, err := strconv.Atoi(string(bytes.TrimPrefix(fields[1], []byte("9="))))
	if err != nil {
		t.Fatalf("body length field = %q", fields[1])
	}
	bodyStart := bytes.Index(msg, []byte("\x0135=")) + 1
	if actual := trailerStart - bodyStart; declared != actual {
		t.Errorf("body length = %d, want %d", declared, actual)
	}
}
