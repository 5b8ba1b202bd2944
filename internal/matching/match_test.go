package matching

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func newTestEngine(t *testing.T) (*Engine, TradingPair) {
	t.Helper()
	e := NewEngine()
	pair := TradingPair{Base: "BTC", Quote: "USDT"}
	if err := e.AddPair(pair); err != nil {
		t.Fatalf("AddPair: %v", err)
	}
	return e, pair
}

func mkOrder(pair TradingPair, id string, side Side, user, price, qty string) *Order {
	return &Order{
		ID:       id,
		Pair:     pair,
		Side:     side,
		UserID:   user,
		Price:    dec(price),
		Quantity: dec(qty),
	}
}

// Seed scenario 4: incoming taker crosses a single resting maker;
// execution happens at the maker's price, not the taker's.
func TestPlaceOrderExecutesAtMakerPrice(t *testing.T) {
	e, pair := newTestEngine(t)

	maker := mkOrder(pair, "maker-1", Sell, "alice", "100.00", "1.0")
	if _, err := e.PlaceOrder(maker); err != nil {
		t.Fatalf("place maker: %v", err)
	}

	taker := mkOrder(pair, "taker-1", Buy, "bob", "105.00", "1.0")
	result, err := e.PlaceOrder(taker)
	if err != nil {
		t.Fatalf("place taker: %v", err)
	}
	if len(result.Fills) != 1 {
		t.Fatalf("got %d fills, want 1", len(result.Fills))
	}
	fill := result.Fills[0]
	if !fill.Price.Equal(dec("100.00")) {
		t.Errorf("got fill price %s, want maker price 100.00", fill.Price)
	}
	if !result.Order.Remaining().IsZero() {
		t.Errorf("expected taker fully filled, remaining=%s", result.Order.Remaining())
	}
}

// Seed scenario 5: two makers at the same price, first-in-first-out;
// a third maker at a better price executes first regardless of time.
func TestPlaceOrderPriceTimePriority(t *testing.T) {
	e, pair := newTestEngine(t)

	first := mkOrder(pair, "maker-1", Sell, "alice", "100.00", "1.0")
	second := mkOrder(pair, "maker-2", Sell, "carol", "100.00", "1.0")
	better := mkOrder(pair, "maker-3", Sell, "dave", "99.00", "1.0")
	for _, m := range []*Order{first, second, better} {
		if _, err := e.PlaceOrder(m); err != nil {
			t.Fatalf("place %s: %v", m.ID, err)
		}
	}

	taker := mkOrder(pair, "taker-1", Buy, "bob", "100.00", "2.0")
	result, err := e.PlaceOrder(taker)
	if err != nil {
		t.Fatalf("place taker: %v", err)
	}
	if len(result.Fills) != 2 {
		t.Fatalf("got %d fills, want 2", len(result.Fills))
	}
	if result.Fills[0].MakerOrderID != "maker-3" {
		t.Errorf("got first fill maker %s, want maker-3 (better price first)", result.Fills[0].MakerOrderID)
	}
	if result.Fills[1].MakerOrderID != "maker-1" {
		t.Errorf("got second fill maker %s, want maker-1 (earlier of the two equal-price makers)", result.Fills[1].MakerOrderID)
	}
}

func TestPlaceOrderRestsWhenNoCross(t *testing.T) {
	e, pair := newTestEngine(t)
	maker := mkOrder(pair, "maker-1", Sell, "alice", "100.00", "1.0")
	if _, err := e.PlaceOrder(maker); err != nil {
		t.Fatalf("place maker: %v", err)
	}

	taker := mkOrder(pair, "taker-1", Buy, "bob", "90.00", "1.0")
	result, err := e.PlaceOrder(taker)
	if err != nil {
		t.Fatalf("place taker: %v", err)
	}
	if len(result.Fills) != 0 {
		t.Errorf("expected no fills, got %d", len(result.Fills))
	}
	if result.Order.Status != OrderStatusOpen {
		t.Errorf("got status %v, want Open (resting)", result.Order.Status)
	}

	bid, ok := e.BestBid(pair)
	if !ok || !bid.Equal(dec("90.00")) {
		t.Errorf("got best bid %v ok=%v, want 90.00", bid, ok)
	}
}

func TestPlaceOrderSelfTradeAborts(t *testing.T) {
	e, pair := newTestEngine(t)
	maker := mkOrder(pair, "maker-1", Sell, "alice", "100.00", "1.0")
	if _, err := e.PlaceOrder(maker); err != nil {
		t.Fatalf("place maker: %v", err)
	}

	taker := mkOrder(pair, "taker-1", Buy, "alice", "100.00", "1.0")
	if _, err := e.PlaceOrder(taker); !errors.Is(err, ErrSelfTradeNotAllowed) {
		t.Errorf("got %v, want ErrSelfTradeNotAllowed", err)
	}
}

func TestCancelOrderRemovesFromBookAndIndex(t *testing.T) {
	e, pair := newTestEngine(t)
	o := mkOrder(pair, "order-1", Buy, "alice", "100.00", "1.0")
	if _, err := e.PlaceOrder(o); err != nil {
		t.Fatalf("place: %v", err)
	}

	cancelled, err := e.CancelOrder(pair, "order-1")
	if err != nil {
		t.Fatalf("CancelOrder: %v", err)
	}
	if cancelled.Status != OrderStatusCancelled {
		t.Errorf("got status %v, want Cancelled", cancelled.Status)
	}

	if _, ok := e.BestBid(pair); ok {
		t.Error("expected empty bid side after cancelling the only resting order")
	}

	if _, err := e.CancelOrder(pair, "order-1"); err == nil {
		t.Error("expected second cancel of the same order to fail")
	}
}

func TestGetDepthAggregatesMultipleOrdersPerLevel(t *testing.T) {
	e, pair := newTestEngine(t)
	for i, id := range []string{"a", "b"} {
		o := mkOrder(pair, "bid-"+id, Buy, "user-"+id, "100.00", "1.0")
		_ = i
		if _, err := e.PlaceOrder(o); err != nil {
			t.Fatalf("place: %v", err)
		}
	}
	higher := mkOrder(pair, "bid-c", Buy, "user-c", "101.00", "1.0")
	if _, err := e.PlaceOrder(higher); err != nil {
		t.Fatalf("place: %v", err)
	}

	depth, err := e.GetDepth(pair, 10)
	if err != nil {
		t.Fatalf("GetDepth: %v", err)
	}
	if len(depth.Bids) != 2 {
		t.Fatalf("got %d bid levels, want 2", len(depth.Bids))
	}
	if !depth.Bids[0].Price.Equal(dec("101.00")) {
		t.Errorf("got best bid level %s, want 101.00 first", depth.Bids[0].Price)
	}
	if !depth.Bids[1].Quantity.Equal(dec("2.0")) {
		t.Errorf("got aggregated quantity %s at 100.00, want 2.0", depth.Bids[1].Quantity)
	}
}

func TestPlaceOrderPartialFillRestsResidual(t *testing.T) {
	e, pair := newTestEngine(t)
	maker := mkOrder(pair, "maker-1", Sell, "alice", "100.00", "0.5")
	if _, err := e.PlaceOrder(maker); err != nil {
		t.Fatalf("place maker: %v", err)
	}

	taker := mkOrder(pair, "taker-1", Buy, "bob", "100.00", "1.0")
	result, err := e.PlaceOrder(taker)
	if err != nil {
		t.Fatalf("place taker: %v", err)
	}
	if !result.Order.Remaining().Equal(dec("0.5")) {
		t.Errorf("got remaining %s, want 0.5", result.Order.Remaining())
	}
	if result.Order.Status != OrderStatusOpen {
		t.Errorf("got status %v, want Open (residual resting)", result.Order.Status)
	}

	bid, ok := e.BestBid(pair)
	if !ok || !bid.Equal(dec("100.00")) {
		t.Errorf("expected residual to rest at 100.00, got %v ok=%v", bid, ok)
	}
}
