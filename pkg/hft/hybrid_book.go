package hft

// DefaultMaxHotLevels bounds the hot tier when no size is given.
const DefaultMaxHotLevels = 20

// HybridBook splits each side into a hot tier, a sorted slice holding at
// most maxHotLevels of the best-ranked levels, and a cold tree for the
// rest. New prices near the spread land hot; deep-book prices land cold.
// A cold level moves up only when matching needs it or when an erased hot
// level leaves room. Promotions and demotions rewrite the hot/cold flag
// and position key of every affected order in the index.
type HybridBook struct {
	hotBids  []*priceLevel
	hotAsks  []*priceLevel
	coldBids *levelTree
	coldAsks *levelTree

	maxHotLevels int

	index map[OrderID]hybridLocation
}

type hybridLocation struct {
	side     Side
	hot      bool
	levelIdx int         // position in the hot slice, when hot
	level    *priceLevel // owning level, when cold
	node     *orderNode
}

// NewHybridBook creates a hybrid book. maxHotLevels == 0 selects
// DefaultMaxHotLevels.
func NewHybridBook(maxHotLevels int) *HybridBook {
	if maxHotLevels <= 0 {
		maxHotLevels = DefaultMaxHotLevels
	}
	return &HybridBook{
		coldBids:     newLevelTree(),
		coldAsks:     newLevelTree(),
		maxHotLevels: maxHotLevels,
		index:        make(map[OrderID]hybridLocation),
	}
}

func (b *HybridBook) hotSide(s Side) *[]*priceLevel {
	if s == Buy {
		return &b.hotBids
	}
	return &b.hotAsks
}

func (b *HybridBook) coldSide(s Side) *levelTree {
	if s == Buy {
		return b.coldBids
	}
	return b.coldAsks
}

// hotPos is the lower bound for price in a hot slice (bids descending,
// asks ascending).
func hotPos(side Side, levels []*priceLevel, price Price) int {
	if side == Buy {
		return bidInsertPos(levels, price)
	}
	return askInsertPos(levels, price)
}

func (b *HybridBook) AddOrder(order Order) {
	hot := b.hotSide(order.Side)
	pos := hotPos(order.Side, *hot, order.Price)

	// Existing hot level.
	if pos < len(*hot) && (*hot)[pos].price == order.Price {
		node := (*hot)[pos].orders.pushBack(order)
		b.index[order.ID] = hybridLocation{side: order.Side, hot: true, levelIdx: pos, node: node}
		return
	}

	// Existing cold level: append there, no eager promotion.
	if lvl := b.coldSide(order.Side).find(order.Price); lvl != nil {
		node := lvl.orders.pushBack(order)
		b.index[order.ID] = hybridLocation{side: order.Side, level: lvl, node: node}
		return
	}

	// New price level: hot when close to the spread, else cold.
	if b.closeToSpread(order.Side, order.Price) {
		if len(*hot) >= b.maxHotLevels {
			b.demoteTail(order.Side)
		}
		b.addToHot(order)
		return
	}
	b.addToCold(order)
}

// closeToSpread reports whether a new price ranks inside the hot tier:
// hot not yet full, or strictly better than the worst hot level.
func (b *HybridBook) closeToSpread(side Side, price Price) bool {
	hot := *b.hotSide(side)
	if len(hot) < b.maxHotLevels {
		return true
	}
	worst := hot[len(hot)-1].price
	if side == Buy {
		return price > worst
	}
	return price < worst
}

func (b *HybridBook) addToHot(order Order) {
	hot := b.hotSide(order.Side)
	pos := hotPos(order.Side, *hot, order.Price)

	if pos < len(*hot) && (*hot)[pos].price == order.Price {
		node := (*hot)[pos].orders.pushBack(order)
		b.index[order.ID] = hybridLocation{side: order.Side, hot: true, levelIdx: pos, node: node}
		return
	}

	lvl := &priceLevel{price: order.Price}
	*hot = append(*hot, nil)
	copy((*hot)[pos+1:], (*hot)[pos:])
	(*hot)[pos] = lvl
	b.shiftHotIndexes(order.Side, pos, +1)

	node := lvl.orders.pushBack(order)
	b.index[order.ID] = hybridLocation{side: order.Side, hot: true, levelIdx: pos, node: node}
}

func (b *HybridBook) addToCold(order Order) {
	lvl := &priceLevel{price: order.Price}
	b.coldSide(order.Side).attach(lvl)
	node := lvl.orders.pushBack(order)
	b.index[order.ID] = hybridLocation{side: order.Side, level: lvl, node: node}
}

// shiftHotIndexes remaps stored hot positions after an insert (+1) at pos
// or an erase (-1) of pos on one side.
func (b *HybridBook) shiftHotIndexes(side Side, pos, delta int) {
	for id, loc := range b.index {
		if !loc.hot || loc.side != side {
			continue
		}
		if (delta > 0 && loc.levelIdx >= pos) || (delta < 0 && loc.levelIdx > pos) {
			loc.levelIdx += delta
			b.index[id] = loc
		}
	}
}

// retagLevel points every order of lvl at its new tier location.
func (b *HybridBook) retagLevel(lvl *priceLevel, hot bool, hotIdx int) {
	for n := lvl.orders.front(); n != nil; n = n.next {
		loc := b.index[n.order.ID]
		loc.hot = hot
		loc.levelIdx = hotIdx
		if hot {
			loc.level = nil
		} else {
			loc.level = lvl
		}
		b.index[n.order.ID] = loc
	}
}

// demoteTail moves the worst hot level to cold storage.
func (b *HybridBook) demoteTail(side Side) {
	hot := b.hotSide(side)
	if len(*hot) == 0 {
		return
	}
	lvl := (*hot)[len(*hot)-1]
	*hot = (*hot)[:len(*hot)-1]
	b.coldSide(side).attach(lvl)
	b.retagLevel(lvl, false, 0)
}

// promote moves the best cold level into the hot tier at its sorted
// position, demoting the hot tail first when full.
func (b *HybridBook) promote(side Side) *priceLevel {
	cold := b.coldSide(side)
	var lvl *priceLevel
	if side == Buy {
		lvl = cold.max()
	} else {
		lvl = cold.min()
	}
	if lvl == nil {
		return nil
	}
	cold.delete(lvl.price)

	hot := b.hotSide(side)
	if len(*hot) >= b.maxHotLevels {
		b.demoteTail(side)
	}
	pos := hotPos(side, *hot, lvl.price)
	*hot = append(*hot, nil)
	copy((*hot)[pos+1:], (*hot)[pos:])
	(*hot)[pos] = lvl
	b.shiftHotIndexes(side, pos, +1)
	b.retagLevel(lvl, true, pos)
	return lvl
}

func (b *HybridBook) CancelOrder(id OrderID) {
	loc, ok := b.index[id]
	if !ok {
		return
	}
	delete(b.index, id)

	if loc.hot {
		hot := b.hotSide(loc.side)
		lvl := (*hot)[loc.levelIdx]
		lvl.orders.remove(loc.node)
		if lvl.orders.empty() {
			b.eraseHot(loc.side, loc.levelIdx)
		}
		return
	}

	loc.level.orders.remove(loc.node)
	if loc.level.orders.empty() {
		b.coldSide(loc.side).delete(loc.level.price)
	}
}

// eraseHot drops an emptied hot level and backfills from cold so the hot
// tier always holds the best-ranked levels of its side. Without the
// backfill a later add could slot a worse price into the underfull hot
// tier above a better price stranded in cold, breaking price priority.
func (b *HybridBook) eraseHot(side Side, pos int) {
	hot := b.hotSide(side)
	*hot = append((*hot)[:pos], (*hot)[pos+1:]...)
	b.shiftHotIndexes(side, pos, -1)
	if len(*hot) < b.maxHotLevels && !b.coldSide(side).empty() {
		b.promote(side)
	}
}

func (b *HybridBook) ModifyOrder(id OrderID, newQty Quantity) {
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

func (b *HybridBook) Match() []Trade {
	var trades []Trade
	release := func(id OrderID) { delete(b.index, id) }

	for {
		// Best bid: hot front, else lazily promote the best cold level.
		if len(b.hotBids) == 0 && b.promote(Buy) == nil {
			break
		}
		if len(b.hotAsks) == 0 && b.promote(Sell) == nil {
			break
		}

		bidLvl := b.hotBids[0]
		askLvl := b.hotAsks[0]
		if bidLvl.price < askLvl.price {
			break
		}

		trades = matchLevelPair(&bidLvl.orders, &askLvl.orders, askLvl.price, trades, release)

		if bidLvl.orders.empty() {
			b.eraseHot(Buy, 0)
		}
		if askLvl.orders.empty() {
			b.eraseHot(Sell, 0)
		}
	}
	return trades
}

func (b *HybridBook) OrderCount() int { return len(b.index) }

func (b *HybridBook) BestBid() Price {
	if len(b.hotBids) > 0 {
		return b.hotBids[0].price
	}
	if lvl := b.coldBids.max(); lvl != nil {
		return lvl.price
	}
	return NoBid
}

func (b *HybridBook) BestAsk() Price {
	if len(b.hotAsks) > 0 {
		return b.hotAsks[0].price
	}
	if lvl := b.coldAsks.min(); lvl != nil {
		return lvl.price
	}
	return NoAsk
}
