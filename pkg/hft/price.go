package hft

import "github.com/shopspring/decimal"

// DefaultTickValue is the monetary value of one price tick.
var DefaultTickValue = decimal.NewFromFloat(0.01)

// DisplayPrice renders an integer tick price as a decimal amount given the
// value of one tick. The empty-side sentinels render as "-" so log lines
// and the stats dump stay readable.
func DisplayPrice(p Price, tickValue decimal.Decimal) string {
	if p == NoBid || p == NoAsk {
		return "-"
	}
	return decimal.NewFromUint64(p).Mul(tickValue).String()
}
