package compliance

import "time"

// EventKind is the tagged-variant discriminant for ComplianceEvent
// (§6.2).
type EventKind string

const (
	EventCheckPerformed    EventKind = "CheckPerformed"
	EventTransactionFlagged EventKind = "TransactionFlagged"
	EventReviewCompleted   EventKind = "ReviewCompleted"
	EventRuleSetChanged    EventKind = "RuleSetChanged"
	EventWatchlistUpdated  EventKind = "WatchlistUpdated"
)

// Event is one line of the compliance ledger. Only the fields
// relevant to Kind are populated, mirroring entry.go's Posting/Intent
// tagged-struct shape in internal/ledger.
type Event struct {
	ID        string    `json:"id"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`

	// CheckPerformed
	CorrelationID  string   `json:"correlation_id,omitempty"`
	RulesTriggered []string `json:"rules_triggered,omitempty"`
	DecisionKind   string   `json:"decision_kind,omitempty"`
	DecisionLevel  string   `json:"decision_level,omitempty"`
	DecisionCode   string   `json:"decision_code,omitempty"`

	// TransactionFlagged (also uses CorrelationID above)
	RequiredApproval string    `json:"required_approval,omitempty"`
	ExpiresAt        time.Time `json:"expires_at,omitempty"`

	// ReviewCompleted (§6.4 record_review) — supplemented per
	// SPEC_FULL.md: closes a flag with a human decision, distinct from
	// the M-of-N Approval signature workflow.
	FlagID     string `json:"flag_id,omitempty"`
	ReviewDecision string `json:"review_decision,omitempty"`
	ReviewerID string `json:"reviewer_id,omitempty"`
	Notes      string `json:"notes,omitempty"`

	// RuleSetChanged
	RuleIDs []string `json:"rule_ids,omitempty"`

	// WatchlistUpdated
	WatchlistEntries []string `json:"watchlist_entries,omitempty"`
}
