package hft

// Book is the contract every order-book representation satisfies.
//
// AddOrder inserts at the back of the (side, price) queue without matching.
// Adding an id that is already live overwrites the index entry: last insert
// wins, and the earlier order can still trade from its queue but is no
// longer reachable by id.
//
// CancelOrder and ModifyOrder are silent no-ops for unknown ids. A modify to
// zero quantity cancels; any other modify updates quantity in place and
// keeps queue position, even on size-up.
//
// Match runs price-time priority matching to quiescence and returns the
// trades in production order. After Match the book is never crossed.
type Book interface {
	AddOrder(order Order)
	CancelOrder(id OrderID)
	ModifyOrder(id OrderID, newQty Quantity)
	Match() []Trade
	OrderCount() int
	BestBid() Price
	BestAsk() Price
}

var (
	_ Book = (*TreeBook)(nil)
	_ Book = (*VectorBook)(nil)
	_ Book = (*ArrayBook)(nil)
	_ Book = (*HybridBook)(nil)
)

// matchLevelPair crosses the front orders of the best bid and ask queues
// until one queue drains. Fills execute at the resting ask price. Orders
// that reach the front with zero quantity are dropped without a trade.
// onFilled releases a fully consumed order id from the caller's index.
func matchLevelPair(bidQ, askQ *orderQueue, askPrice Price, trades []Trade, onFilled func(OrderID)) []Trade {
	for !bidQ.empty() && !askQ.empty() {
		bid := bidQ.front()
		ask := askQ.front()

		if bid.order.Quantity == 0 {
			onFilled(bid.order.ID)
			bidQ.popFront()
			continue
		}
		if ask.order.Quantity == 0 {
			onFilled(ask.order.ID)
			askQ.popFront()
			continue
		}

		qty := bid.order.Quantity
		if ask.order.Quantity < qty {
			qty = ask.order.Quantity
		}

		trades = append(trades, Trade{
			BuyOrderID:  bid.order.ID,
			SellOrderID: ask.order.ID,
			Price:       askPrice,
			Quantity:    qty,
		})

		bid.order.Quantity -= qty
		ask.order.Quantity -= qty

		if bid.order.Quantity == 0 {
			onFilled(bid.order.ID)
			bidQ.popFront()
		}
		if ask.order.Quantity == 0 {
			onFilled(ask.order.ID)
			askQ.popFront()
		}
	}
	return trades
}
