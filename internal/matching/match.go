package matching

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/btree"
	"github.com/shopspring/decimal"

	"github.com/klingon-exchange/ledgercore/pkg/logging"
)

// Engine owns one Book per trading pair (§4.3) plus the pair registry.
// Per-pair locking lives on Book; Engine's own mutex only guards the
// pair map, following the same narrow-critical-section convention the
// teacher's Storage uses for its table map.
type Engine struct {
	mu    sync.RWMutex
	books map[TradingPair]*Book
	log   *logging.Logger
}

func NewEngine() *Engine {
	return &Engine{
		books: map[TradingPair]*Book{},
		log:   logging.Default().Component("matching"),
	}
}

// AddPair registers a new trading pair with an empty book.
func (e *Engine) AddPair(pair TradingPair) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.books[pair]; ok {
		return fmt.Errorf("%w: %s", ErrPairAlreadyExists, pair)
	}
	e.books[pair] = newBook(pair)
	return nil
}

func (e *Engine) book(pair TradingPair) (*Book, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	b, ok := e.books[pair]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPairNotFound, pair)
	}
	return b, nil
}

// planStep is one hypothetical fill produced by planMatch: fill the
// taker against maker for qty, at maker's resting price.
type planStep struct {
	maker *Order
	qty   decimal.Decimal
}

// planMatch walks the opposing side best-price-first, exactly as
// §4.3.2 describes, but only READS the book: it does not mutate any
// order or level. This lets PlaceOrder detect a self-trade and abort
// with the book untouched, instead of discovering it mid-mutation and
// leaving earlier fills applied with no corresponding Fill returned to
// the caller.
func (b *Book) planMatch(o *Order) ([]planStep, error) {
	oppSide := oppositeSide(o.Side)
	remaining := o.Remaining()
	var plan []planStep
	var stopErr error

	b.tree(oppSide).Ascend(func(item btree.Item) bool {
		lvl := item.(*level)
		if !crosses(o.Side, o.Price, lvl) {
			return false
		}
		for _, maker := range lvl.orders {
			if !remaining.IsPositive() {
				break
			}
			if maker.UserID == o.UserID {
				stopErr = fmt.Errorf("%w: order %s would trade against own resting order %s", ErrSelfTradeNotAllowed, o.ID, maker.ID)
				return false
			}
			fillQty := decimal.Min(remaining, maker.Remaining())
			plan = append(plan, planStep{maker: maker, qty: fillQty})
			remaining = remaining.Sub(fillQty)
		}
		return remaining.IsPositive()
	})

	if stopErr != nil {
		return nil, stopErr
	}
	return plan, nil
}

// PlaceOrder runs the §4.3.2 match algorithm: plan fills against the
// opposing side's best levels outward while price still crosses,
// aborting with no book mutation on self-trade, then applies the plan
// at the maker's price and rests any unfilled remainder.
func (e *Engine) PlaceOrder(o *Order) (MatchResult, error) {
	if !o.Price.IsPositive() {
		return MatchResult{}, fmt.Errorf("%w: price must be positive", ErrInvalidPrice)
	}
	if !o.Quantity.IsPositive() {
		return MatchResult{}, fmt.Errorf("%w: quantity must be positive", ErrInvalidQuantity)
	}

	b, err := e.book(o.Pair)
	if err != nil {
		return MatchResult{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	plan, err := b.planMatch(o)
	if err != nil {
		return MatchResult{}, err
	}

	b.nextSeq++
	o.seq = b.nextSeq
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.Status = OrderStatusOpen

	oppSide := oppositeSide(o.Side)
	now := time.Now().UTC()
	fills := make([]Fill, 0, len(plan))
	for _, step := range plan {
		fills = append(fills, Fill{
			TakerOrderID: o.ID,
			MakerOrderID: step.maker.ID,
			Pair:         o.Pair,
			Price:        step.maker.Price,
			Quantity:     step.qty,
			TakerUserID:  o.UserID,
			MakerUserID:  step.maker.UserID,
			Timestamp:    now,
		})
		o.Filled = o.Filled.Add(step.qty)
		step.maker.Filled = step.maker.Filled.Add(step.qty)
		if !step.maker.Remaining().IsPositive() {
			step.maker.Status = OrderStatusFilled
			b.removeFromLevel(oppSide, step.maker.Price, step.maker.ID)
		}
	}

	if o.Remaining().IsPositive() {
		b.insertResting(o)
	} else {
		o.Status = OrderStatusFilled
	}

	return MatchResult{Order: o, Fills: fills}, nil
}

// CancelOrder removes a resting order from its book (§4.3.3).
func (e *Engine) CancelOrder(pair TradingPair, orderID string) (*Order, error) {
	b, err := e.book(pair)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	entry, ok := b.index[orderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}

	tree := b.tree(entry.side)
	item := tree.Get(newLevel(entry.side == Buy, entry.price))
	if item == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	lvl := item.(*level)

	var cancelled *Order
	for i, ord := range lvl.orders {
		if ord.ID == orderID {
			cancelled = ord
			lvl.orders = append(lvl.orders[:i], lvl.orders[i+1:]...)
			break
		}
	}
	if cancelled == nil {
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	delete(b.index, orderID)
	if len(lvl.orders) == 0 {
		tree.Delete(lvl)
	}

	cancelled.Status = OrderStatusCancelled
	return cancelled, nil
}

// aggregateQuantity sums the FIFO queue's remaining quantity at one level.
func aggregateQuantity(lvl *level) decimal.Decimal {
	total := decimal.Zero
	for _, o := range lvl.orders {
		total = total.Add(o.Remaining())
	}
	return total
}

// GetDepth returns the top n price levels of each side (§4.3.4). Both
// trees are walked with Ascend starting from Min() so best-price-first
// ordering holds regardless of the bid/ask Less-reversal trick in
// level.Less.
func (e *Engine) GetDepth(pair TradingPair, n int) (OrderBookDepth, error) {
	b, err := e.book(pair)
	if err != nil {
		return OrderBookDepth{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	depth := OrderBookDepth{}
	b.bids.Ascend(func(item btree.Item) bool {
		if len(depth.Bids) >= n {
			return false
		}
		lvl := item.(*level)
		depth.Bids = append(depth.Bids, PriceLevel{Price: lvl.price, Quantity: aggregateQuantity(lvl)})
		return true
	})
	b.asks.Ascend(func(item btree.Item) bool {
		if len(depth.Asks) >= n {
			return false
		}
		lvl := item.(*level)
		depth.Asks = append(depth.Asks, PriceLevel{Price: lvl.price, Quantity: aggregateQuantity(lvl)})
		return true
	})
	return depth, nil
}

// BestBid returns the highest resting bid price, or false if the bid
// side is empty.
func (e *Engine) BestBid(pair TradingPair) (decimal.Decimal, bool) {
	b, err := e.book(pair)
	if err != nil {
		return decimal.Zero, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	lvl := b.bestLevel(Buy)
	if lvl == nil {
		return decimal.Zero, false
	}
	return lvl.price, true
}

// BestAsk returns the lowest resting ask price, or false if the ask
// side is empty.
func (e *Engine) BestAsk(pair TradingPair) (decimal.Decimal, bool) {
	b, err := e.book(pair)
	if err != nil {
		return decimal.Zero, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	lvl := b.bestLevel(Sell)
	if lvl == nil {
		return decimal.Zero, false
	}
	return lvl.price, true
}

// Spread is best ask minus best bid; ok is false if either side is empty.
func (e *Engine) Spread(pair TradingPair) (decimal.Decimal, bool) {
	bid, ok1 := e.BestBid(pair)
	ask, ok2 := e.BestAsk(pair)
	if !ok1 || !ok2 {
		return decimal.Zero, false
	}
	return ask.Sub(bid), true
}

// MidPrice is the arithmetic mean of best bid and best ask.
func (e *Engine) MidPrice(pair TradingPair) (decimal.Decimal, bool) {
	bid, ok1 := e.BestBid(pair)
	ask, ok2 := e.BestAsk(pair)
	if !ok1 || !ok2 {
		return decimal.Zero, false
	}
	return bid.Add(ask).Div(decimal.NewFromInt(2)), true
}
