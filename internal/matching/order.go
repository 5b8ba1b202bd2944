package matching

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is which side of the book an order rests on or crosses.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// OrderStatus tracks an order's lifecycle within the book, generalized
// off the teacher's OrderStatus shape in storage/orders.go (there tied
// to swap settlement; here tied purely to matching state).
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "open"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// TradingPair identifies one order book, e.g. {Base: "BTC", Quote: "USDT"}.
type TradingPair struct {
	Base  string
	Quote string
}

func (p TradingPair) String() string { return p.Base + "/" + p.Quote }

// Order is one resting or incoming limit order (§4.3.1).
type Order struct {
	ID        string
	Pair      TradingPair
	Side      Side
	UserID    string
	Price     decimal.Decimal
	Quantity  decimal.Decimal // original quantity
	Filled    decimal.Decimal
	Status    OrderStatus
	CreatedAt time.Time
	seq       uint64 // arrival number assigned by the book; FIFO order within a level comes from the level's queue order
}

// Remaining is the unfilled portion of the order's quantity.
func (o *Order) Remaining() decimal.Decimal {
	return o.Quantity.Sub(o.Filled)
}

// Fill is one execution produced by matching, priced at the maker's
// price per §4.3.2 ("execution price is the maker's price").
type Fill struct {
	TakerOrderID string
	MakerOrderID string
	Pair         TradingPair
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	TakerUserID  string
	MakerUserID  string
	Timestamp    time.Time
}

// MatchResult is what place_order returns: the (possibly partially
// filled, possibly resting) taker order plus every fill it produced.
type MatchResult struct {
	Order *Order
	Fills []Fill
}

// PriceLevel aggregates quantity at one price for get_depth (§4.3.4).
type PriceLevel struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
}

// OrderBookDepth is the top-N-per-side snapshot returned by get_depth.
type OrderBookDepth struct {
	Bids []PriceLevel
	Asks []PriceLevel
}
