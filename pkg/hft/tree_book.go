package hft

// TreeBook keeps each side in a red-black tree of price levels. Locating or
// creating a level is O(log L); cancel and modify reach their order in O(1)
// through the index and pay O(log L) only when a level empties.
type TreeBook struct {
	bids  *levelTree
	asks  *levelTree
	index map[OrderID]treeLocation
}

type treeLocation struct {
	side  Side
	level *priceLevel
	node  *orderNode
}

// NewTreeBook creates an empty tree-ordered book.
func NewTreeBook() *TreeBook {
	return &TreeBook{
		bids:  newLevelTree(),
		asks:  newLevelTree(),
		index: make(map[OrderID]treeLocation),
	}
}

func (b *TreeBook) sideTree(s Side) *levelTree {
	if s == Buy {
		return b.bids
	}
	return b.asks
}

// AddOrder appends to the back of the (side, price) queue, creating the
// level if absent. No matching happens here.
func (b *TreeBook) AddOrder(order Order) {
	lvl := b.sideTree(order.Side).upsert(order.Price)
	node := lvl.orders.pushBack(order)
	b.index[order.ID] = treeLocation{side: order.Side, level: lvl, node: node}
}

// CancelOrder removes the order if present. Removing the last order of a
// level removes the level, which also refreshes top-of-book.
func (b *TreeBook) CancelOrder(id OrderID) {
	loc, ok := b.index[id]
	if !ok {
		return
	}
	loc.level.orders.remove(loc.node)
	if loc.level.orders.empty() {
		b.sideTree(loc.side).delete(loc.level.price)
	}
	delete(b.index, id)
}

// ModifyOrder replaces quantity in place, keeping queue position. Zero
// quantity cancels.
func (b *TreeBook) ModifyOrder(id OrderID, newQty Quantity) {
	loc, ok := b.index[id]
	if !ok {
		return
	}
	if newQty == 0 {
		b.CancelOrder(id)
		return
	}
	loc.node.order.Quantity = newQty
}

// Match crosses the book to quiescence.
func (b *TreeBook) Match() []Trade {
	var trades []Trade
	release := func(id OrderID) { delete(b.index, id) }

	for {
		bidLvl := b.bids.max()
		askLvl := b.asks.min()
		if bidLvl == nil || askLvl == nil {
			break
		}
		if bidLvl.price < askLvl.price {
			break
		}

		trades = matchLevelPair(&bidLvl.orders, &askLvl.orders, askLvl.price, trades, release)

		if bidLvl.orders.empty() {
			b.bids.delete(bidLvl.price)
		}
		if askLvl.orders.empty() {
			b.asks.delete(askLvl.price)
		}
	}
	return trades
}

func (b *TreeBook) OrderCount() int { return len(b.index) }

func (b *TreeBook) BestBid() Price {
	if lvl := b.bids.max(); lvl != nil {
		return lvl.price
	}
	return NoBid
}

func (b *TreeBook) BestAsk() Price {
	if lvl := b.asks.min(); lvl != nil {
		return lvl.price
	}
	return NoAsk
}
