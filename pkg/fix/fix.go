// Package fix frames and decodes FIX 4.2 NewOrderSingle messages and
// builds them for the benchmark sender.
//
// The decoder is deliberately lenient: tag 10 is used only to locate the
// frame terminator (the checksum value is not verified), body length is not
// validated, and malformed numeric fields decode to their parsed digit
// prefix. Raw byte scanning is used instead of a structured FIX library;
// per-tag searches on a bounded frame beat field-map construction on the
// hot path.
package fix

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/fixmatch/fixmatch/pkg/hft"
)

// SOH separates FIX fields on the wire.
const SOH = '\x01'

var (
	tagChecksum = []byte("\x0110=")
	tagMsgType  = []byte("\x0135=")
	tagClOrdID  = []byte("\x0111=")
	tagSide     = []byte("\x0154=")
	tagOrderQty = []byte("\x0138=")
	tagPrice    = []byte("\x0144=")
	tagOrdType  = []byte("\x0140=")
)

// Parse scans buf for one complete FIX message.
//
// It returns (order, consumed, true) for a NewOrderSingle, and
// (zero, consumed, false) for any other complete frame, which is skipped.
// consumed == 0 means the frame is incomplete: refill the buffer and retry.
func Parse(buf []byte) (hft.Order, int, bool) {
	var order hft.Order

	// A full message ends with 10=XXX<SOH>. Everything before that is
	// framing we do not validate.
	checksumPos := bytes.Index(buf, tagChecksum)
	if checksumPos < 0 {
		return order, 0, false
	}
	end := bytes.IndexByte(buf[checksumPos+1:], SOH)
	if end < 0 {
		return order, 0, false
	}
	consumed := checksumPos + 1 + end + 1
	msg := buf[:consumed]

	// MsgType(35) must be D (NewOrderSingle); other frames are consumed
	// and dropped.
	if string(tagValue(msg, tagMsgType)) != "D" {
		return order, consumed, false
	}

	order.ID = parseUintPrefix(tagValue(msg, tagClOrdID))
	if string(tagValue(msg, tagSide)) == "1" {
		order.Side = hft.Buy
	} else {
		order.Side = hft.Sell
	}
	order.Price = parseUintPrefix(tagValue(msg, tagPrice))
	order.Quantity = parseUintPrefix(tagValue(msg, tagOrderQty))
	if string(tagValue(msg, tagOrdType)) == "1" {
		order.Type = hft.Market
	} else {
		order.Type = hft.Limit
	}

	return order, consumed, true
}

// tagValue returns the value bytes of <SOH>tag= within msg, or nil. The
// leading 8= at offset 0 is not SOH-prefixed, but the decoder never needs
// it.
func tagValue(msg, pattern []byte) []byte {
	pos := bytes.Index(msg, pattern)
	if pos < 0 {
		return nil
	}
	start := pos + len(pattern)
	end := bytes.IndexByte(msg[start:], SOH)
	if end < 0 {
		return nil
	}
	return msg[start : start+end]
}

// parseUintPrefix decodes the leading decimal digits of b, stopping at the
// first non-digit. Empty or non-numeric input yields 0.
func parseUintPrefix(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		if c < '0' || c > '9' {
			break
		}
		v = v*10 + uint64(c-'0')
	}
	return v
}

// BuildNewOrderSingle encodes one order as
// 8=FIX.4.2|9=len|35=D|11=id|54=side|38=qty|44=price|40=type|10=cks| with a
// correct mod-256 checksum over header and body.
func BuildNewOrderSingle(id hft.OrderID, price hft.Price, qty hft.Quantity, side hft.Side, typ hft.OrderType) []byte {
	sideCh := byte('2')
	if side == hft.Buy {
		sideCh = '1'
	}
	typeCh := byte('2')
	if typ == hft.Market {
		typeCh = '1'
	}

	body := make([]byte, 0, 64)
	body = append(body, "35=D"...)
	body = append(body, SOH)
	body = append(body, "11="...)
	body = strconv.AppendUint(body, id, 10)
	body = append(body, SOH)
	body = append(body, "54="...)
	body = append(body, sideCh, SOH)
	body = append(body, "38="...)
	body = strconv.AppendUint(body, qty, 10)
	body = append(body, SOH)
	body = append(body, "44="...)
	body = strconv.AppendUint(body, price, 10)
	body = append(body, SOH)
	body = append(body, "40="...)
	body = append(body, typeCh, SOH)

	msg := make([]byte, 0, len(body)+32)
	msg = append(msg, "8=FIX.4.2"...)
	msg = append(msg, SOH)
	msg = append(msg, "9="...)
	msg = strconv.AppendInt(msg, int64(len(body)), 10)
	msg = append(msg, SOH)
	msg = append(msg, body...)

	var checksum uint32
	for _, c := range msg {
		checksum += uint32(c)
	}
	msg = append(msg, fmt.Sprintf("10=%03d", checksum%256)...)
	msg = append(msg, SOH)

	return msg
}
