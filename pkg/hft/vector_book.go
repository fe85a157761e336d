package hft

import "sort"

// VectorBook keeps each side as a contiguous slice of price levels held in
// book order (bids descending, asks ascending), with binary search on
// insert. Erasing or inserting an interior level shifts later levels, so
// every stored slice index past the edit point is remapped — an O(N) walk
// over the order index, traded for cache locality during matching.
type VectorBook struct {
	bids  []*priceLevel
	asks  []*priceLevel
	index map[OrderID]vecLocation
}

type vecLocation struct {
	side     Side
	levelIdx int
	node     *orderNode
}

// NewVectorBook creates an empty sorted-slice book.
func NewVectorBook() *VectorBook {
	return &VectorBook{index: make(map[OrderID]vecLocation)}
}

// bidInsertPos is the lower bound for price in the descending bid slice.
func bidInsertPos(levels []*priceLevel, price Price) int {
	return sort.Search(len(levels), func(i int) bool { return levels[i].price <= price })
}

// askInsertPos is the lower bound for price in the ascending ask slice.
func askInsertPos(levels []*priceLevel, price Price) int {
	return sort.Search(len(levels), func(i int) bool { return levels[i].price >= price })
}

func (b *VectorBook) AddOrder(order Order) {
	var levels *[]*priceLevel
	var pos int
	if order.Side == Buy {
		levels = &b.bids
		pos = bidInsertPos(b.bids, order.Price)
	} else {
		levels = &b.asks
		pos = askInsertPos(b.asks, order.Price)
	}

	if pos < len(*levels) && (*levels)[pos].price == order.Price {
		node := (*levels)[pos].orders.pushBack(order)
		b.index[order.ID] = vecLocation{side: order.Side, levelIdx: pos, node: node}
		return
	}

	lvl := &priceLevel{price: order.Price}
	*levels = append(*levels, nil)
	copy((*levels)[pos+1:], (*levels)[pos:])
	(*levels)[pos] = lvl
	b.shiftIndexes(order.Side, pos, +1)

	node := lvl.orders.pushBack(order)
	b.index[order.ID] = vecLocation{side: order.Side, levelIdx: pos, node: node}
}

// shiftIndexes remaps stored slice positions after an insert (+1) at pos or
// an erase (-1) of pos on one side.
func (b *VectorBook) shiftIndexes(side Side, pos, delta int) {
	for id, loc := range b.index {
		if loc.side != side {
			continue
		}
		if (delta > 0 && loc.levelIdx >= pos) || (delta < 0 && loc.levelIdx > pos) {
			loc.levelIdx += delta
			b.index[id] = loc
		}
	}
}

func (b *VectorBook) eraseLevel(side Side, pos int) {
	if side == Buy {
		b.bids = append(b.bids[:pos], b.bids[pos+1:]...)
	} else {
		b.asks = append(b.asks[:pos], b.asks[pos+1:]...)
	}
	b.shiftIndexes(side, pos, -1)
}

func (b *VectorBook) CancelOrder(id OrderID) {
	loc, ok := b.index[id]
	if !ok {
		return
	}
	var lvl *priceLevel
	if loc.side == Buy {
		lvl = b.bids[loc.levelIdx]
	} else {
		lvl = b.asks[loc.levelIdx]
	}
	lvl.orders.remove(loc.node)
	delete(b.index, id)
	if lvl.orders.empty() {
		b.eraseLevel(loc.side, loc.levelIdx)
	}
}

func (b *VectorBook) ModifyOrder(id OrderID, newQty Quantity) {
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

func (b *VectorBook) Match() []Trade {
	var trades []Trade
	release := func(id OrderID) { delete(b.index, id) }

	for len(b.bids) > 0 && len(b.asks) > 0 {
		bidLvl := b.bids[0]
		askLvl := b.asks[0]
		if bidLvl.price < askLvl.price {
			break
		}

		trades = matchLevelPair(&bidLvl.orders, &askLvl.orders, askLvl.price, trades, release)

		if bidLvl.orders.empty() {
			b.eraseLevel(Buy, 0)
		}
		if askLvl.orders.empty() {
			b.eraseLevel(Sell, 0)
		}
	}
	return trades
}

func (b *VectorBook) OrderCount() int { return len(b.index) }

func (b *VectorBook) BestBid() Price {
	if len(b.bids) == 0 {
		return NoBid
	}
	return b.bids[0].price
}

func (b *VectorBook) BestAsk() Price {
	if len(b.asks) == 0 {
		return NoAsk
	}
	return b.asks[0].price
}
