package compliance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionContext is the input to check_transaction (§6.4). It
// carries exactly the facts the condition primitives in §4.2.1
// consult; everything else about the underlying entry is opaque to
// Compliance (it does not parse ledger postings itself).
type TransactionContext struct {
	CorrelationID    string
	UserID           string
	Asset            string
	Amount           decimal.Decimal
	AccountAgeMinutes int
	IsWatchlisted    bool
	IsPep            bool
	Now              time.Time
}

// CheckResult is the outcome of check_transaction: the aggregated
// decision plus which rules fired, for the CheckPerformed event.
type CheckResult struct {
	Decision       Decision
	RulesTriggered []string
	ExternalFailed bool
}

// ExternalFailPolicy governs behavior when an external KYC/watchlist
// check cannot be completed within its deadline (§4.2.2 step 6, §5
// "Cancellation", §7 "external-check failures are not in category 3").
type ExternalFailPolicy string

const (
	FailClosed ExternalFailPolicy = "closed" // default: treat as blocked
	FailOpen   ExternalFailPolicy = "open"   // continue, logging a warning
)

// Config holds Compliance Engine policy knobs.
type Config struct {
	ExternalFailPolicy  ExternalFailPolicy
	ExternalCheckTimeout time.Duration
	FlagExpiry          time.Duration // default 72h, §4.2.2 step 5
}

func DefaultConfig() Config {
	return Config{
		ExternalFailPolicy:   FailClosed,
		ExternalCheckTimeout: 500 * time.Millisecond,
		FlagExpiry:           72 * time.Hour,
	}
}

// ExternalChecker performs an out-of-process KYC/watchlist lookup. A
// nil Checker means no external check is configured and step 6 of
// §4.2.2 never triggers. Implementations must respect ctx's deadline;
// the engine also enforces Config.ExternalCheckTimeout independently.
type ExternalChecker interface {
	Check(ctx context.Context, txn *TransactionContext) (bool, error)
}
