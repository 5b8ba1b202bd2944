package matching

import (
	"sync"

	"github.com/google/btree"
	"github.com/shopspring/decimal"
)

// level is one btree node: a price and its FIFO queue of resting
// orders. Grounded on AKJUS-bsc-erigon's btree.New(16) +
// AscendGreaterOrEqual usage in core/state/history_reader_v3.go,
// generalized from that file's storageItem to a price level.
type level struct {
	isBid bool // governs Less ordering: bids sort best-first descending, asks ascending
	price decimal.Decimal
	orders []*Order
}

// Less makes the bid tree's Min() the best (highest) bid and the ask
// tree's Min() the best (lowest) ask, so both sides use the same O(log
// N) Min() lookup despite opposite price ordering.
func (l *level) Less(than btree.Item) bool {
	o := than.(*level)
	if l.isBid {
		return l.price.GreaterThan(o.price)
	}
	return l.price.LessThan(o.price)
}

func newLevel(isBid bool, price decimal.Decimal) *level {
	return &level{isBid: isBid, price: price}
}

// indexEntry locates a resting order for O(log N) cancellation (§4.3.1).
type indexEntry struct {
	side  Side
	price decimal.Decimal
}

// Book is one trading pair's central limit order book: a bid btree, an
// ask btree, and an order index, all guarded by a single mutex per the
// §5 single-writer-multi-reader convention.
type Book struct {
	mu   sync.Mutex
	pair TradingPair
	bids *btree.BTree
	asks *btree.BTree
	index map[string]*indexEntry
	nextSeq uint64
}

func newBook(pair TradingPair) *Book {
	return &Book{
		pair:  pair,
		bids:  btree.New(16),
		asks:  btree.New(16),
		index: map[string]*indexEntry{},
	}
}

func (b *Book) tree(side Side) *btree.BTree {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func oppositeSide(side Side) Side {
	if side == Buy {
		return Sell
	}
	return Buy
}

// bestLevel returns the best opposing level for an incoming order of
// the given side, or nil if that side of the book is empty.
func (b *Book) bestLevel(oppSide Side) *level {
	item := b.tree(oppSide).Min()
	if item == nil {
		return nil
	}
	return item.(*level)
}

// crosses reports whether an incoming order at price p, placed on
// side, crosses the opposing level lvl (§4.3.2: "Buy: ask <= o.price;
// Sell: bid >= o.price").
func crosses(side Side, price decimal.Decimal, lvl *level) bool {
	if side == Buy {
		return !lvl.price.GreaterThan(price)
	}
	return !lvl.price.LessThan(price)
}

// insertResting adds a still-active order to its side of the book,
// creating the price level if needed, and records it in the index.
func (b *Book) insertResting(o *Order) {
	tree := b.tree(o.Side)
	probe := newLevel(o.Side == Buy, o.Price)
	existing := tree.Get(probe)
	var lvl *level
	if existing == nil {
		lvl = probe
		tree.ReplaceOrInsert(lvl)
	} else {
		lvl = existing.(*level)
	}
	lvl.orders = append(lvl.orders, o)
	b.index[o.ID] = &indexEntry{side: o.Side, price: o.Price}
}

// removeFromLevel splices an order out of its level's FIFO queue,
// deleting the level from the tree entirely if it becomes empty.
func (b *Book) removeFromLevel(side Side, price decimal.Decimal, orderID string) {
	tree := b.tree(side)
	probe := newLevel(side == Buy, price)
	item := tree.Get(probe)
	if item == nil {
		return
	}
	lvl := item.(*level)
	for i, ord := range lvl.orders {
		if ord.ID == orderID {
			lvl.orders = append(lvl.orders[:i], lvl.orders[i+1:]...)
			break
		}
	}
	if len(lvl.orders) == 0 {
		tree.Delete(probe)
	}
	delete(b.index, orderID)
}
