package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	dir := t.TempDir()
	e, err := Open(dir, NewMemoryStore(), DefaultConfig())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func largeTxRules() []Rule {
	return []Rule{
		{
			ID:      "LARGE_TX_ALERT",
			Type:    RuleFlag,
			Enabled: true,
			Condition: AmountGte(decimal.NewFromInt(10000)),
			Action:  FlagAction(RiskMedium, L1, "transaction exceeds large-tx threshold"),
		},
		{
			ID:      "NEW_ACCOUNT_LARGE_TX",
			Type:    RuleFlag,
			Enabled: true,
			Condition: All(
				AmountGte(decimal.NewFromInt(10000)),
				AccountAgeLt(60*24*7), // newer than 7 days
			),
			Action: FlagAction(RiskHigh, L2, "large transaction from a newly opened account"),
		},
	}
}

// Seed scenario 6: a 15000 USDT deposit trips LARGE_TX_ALERT alone
// (Flagged{L1}); the same amount from a 2-day-old account additionally
// trips NEW_ACCOUNT_LARGE_TX and the aggregate escalates to L2.
func TestCheckTransactionFlagsLargeTx(t *testing.T) {
	e := openTestEngine(t)
	if err := e.SetRules(largeTxRules()); err != nil {
		t.Fatalf("SetRules: %v", err)
	}

	txn := &TransactionContext{
		CorrelationID:     "corr-1",
		UserID:            "alice",
		Asset:             "USDT",
		Amount:            decimal.NewFromInt(15000),
		AccountAgeMinutes: 60 * 24 * 30, // 30 days, not new
		Now:               time.Now(),
	}
	result, err := e.CheckTransaction(context.Background(), txn)
	if err != nil {
		t.Fatalf("CheckTransaction: %v", err)
	}
	if result.Decision.Kind != KindFlagged || result.Decision.Level != L1 {
		t.Errorf("got %v, want Flagged{L1}", result.Decision)
	}
	found := false
	for _, id := range result.RulesTriggered {
		if id == "LARGE_TX_ALERT" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected LARGE_TX_ALERT in triggered rules, got %v", result.RulesTriggered)
	}
}

func TestCheckTransactionEscalatesNewAccount(t *testing.T) {
	e := openTestEngine(t)
	if err := e.SetRules(largeTxRules()); err != nil {
		t.Fatalf("SetRules: %v", err)
	}

	txn := &TransactionContext{
		CorrelationID:     "corr-2",
		UserID:            "bob",
		Asset:             "USDT",
		Amount:            decimal.NewFromInt(15000),
		AccountAgeMinutes: 60 * 24 * 2, // 2 days old
		Now:               time.Now(),
	}
	result, err := e.CheckTransaction(context.Background(), txn)
	if err != nil {
		t.Fatalf("CheckTransaction: %v", err)
	}
	if result.Decision.Kind != KindFlagged || result.Decision.Level != L2 {
		t.Errorf("got %v, want Flagged{L2} (aggregated max)", result.Decision)
	}
	if len(result.RulesTriggered) != 2 {
		t.Errorf("expected both rules to trigger, got %v", result.RulesTriggered)
	}
}

func TestCheckTransactionBlockRuleShortCircuits(t *testing.T) {
	e := openTestEngine(t)
	rules := append(largeTxRules(), Rule{
		ID:        "WATCHLIST_BLOCK",
		Type:      RuleBlock,
		Enabled:   true,
		Condition: IsWatchlisted(),
		Action:    BlockAction("WATCHLISTED", "sender is on the sanctions watchlist"),
	})
	if err := e.SetRules(rules); err != nil {
		t.Fatalf("SetRules: %v", err)
	}

	txn := &TransactionContext{
		CorrelationID: "corr-3",
		UserID:        "carol",
		Asset:         "USDT",
		Amount:        decimal.NewFromInt(15000),
		IsWatchlisted: true,
		Now:           time.Now(),
	}
	result, err := e.CheckTransaction(context.Background(), txn)
	if err != nil {
		t.Fatalf("CheckTransaction: %v", err)
	}
	if result.Decision.Kind != KindBlocked || result.Decision.Code != "WATCHLISTED" {
		t.Errorf("got %v, want Blocked{WATCHLISTED}", result.Decision)
	}
	// Block rules short-circuit: Flag rules placed before it in the
	// slice still ran this iteration's Block pass only, so only the
	// matching Block rule appears.
	if len(result.RulesTriggered) != 1 {
		t.Errorf("expected only the block rule triggered, got %v", result.RulesTriggered)
	}
}

type stubChecker struct {
	ok  bool
	err error
	delay time.Duration
}

func (s stubChecker) Check(ctx context.Context, txn *TransactionContext) (bool, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return false, ctx.Err()
		}
	}
	return s.ok, s.err
}

func TestCheckTransactionFailClosedBlocksOnExternalFailure(t *testing.T) {
	e := openTestEngine(t)
	e.SetChecker(stubChecker{err: errors.New("kyc provider unreachable")})

	txn := &TransactionContext{CorrelationID: "corr-4", UserID: "dave", Asset: "USDT", Amount: decimal.NewFromInt(100), Now: time.Now()}
	result, err := e.CheckTransaction(context.Background(), txn)
	if err != nil {
		t.Fatalf("CheckTransaction: %v", err)
	}
	if result.Decision.Kind != KindBlocked {
		t.Errorf("got %v, want Blocked under fail-closed policy", result.Decision)
	}
	if !result.ExternalFailed {
		t.Error("expected ExternalFailed to be true")
	}
}

func TestCheckTransactionFailOpenContinuesOnExternalFailure(t *testing.T) {
	e := openTestEngine(t)
	cfg := DefaultConfig()
	cfg.ExternalFailPolicy = FailOpen
	dir := t.TempDir()
	var err error
	e, err = Open(dir, NewMemoryStore(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()
	e.SetChecker(stubChecker{err: errors.New("kyc provider unreachable")})

	txn := &TransactionContext{CorrelationID: "corr-5", UserID: "erin", Asset: "USDT", Amount: decimal.NewFromInt(100), Now: time.Now()}
	result, err := e.CheckTransaction(context.Background(), txn)
	if err != nil {
		t.Fatalf("CheckTransaction: %v", err)
	}
	if result.Decision.Kind != KindApproved {
		t.Errorf("got %v, want Approved: fail-open should continue past external failure", result.Decision)
	}
	if !result.ExternalFailed {
		t.Error("expected ExternalFailed to be true even though the check was not fatal")
	}
}

func TestCheckTransactionExternalCheckTimesOut(t *testing.T) {
	e := openTestEngine(t)
	cfg := DefaultConfig()
	cfg.ExternalCheckTimeout = 20 * time.Millisecond
	dir := t.TempDir()
	var err error
	e, err = Open(dir, NewMemoryStore(), cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer e.Close()
	e.SetChecker(stubChecker{ok: true, delay: 200 * time.Millisecond})

	txn := &TransactionContext{CorrelationID: "corr-6", UserID: "frank", Asset: "USDT", Amount: decimal.NewFromInt(100), Now: time.Now()}
	result, err := e.CheckTransaction(context.Background(), txn)
	if err != nil {
		t.Fatalf("CheckTransaction: %v", err)
	}
	if result.Decision.Kind != KindBlocked {
		t.Errorf("got %v, want Blocked: default policy is fail-closed on timeout", result.Decision)
	}
}
