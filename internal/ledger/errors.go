package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel errors, matched with errors.Is. Structured variants below
// carry the detail the wire taxonomy (spec §6.5) requires via Code()
// and Detail().
var (
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidAssetCode  = errors.New("invalid_asset_code")
	ErrInvalidCategory   = errors.New("invalid_category")
	ErrInvalidAccountKey = errors.New("invalid_account_key")
	ErrEmptyPostings     = errors.New("postings must be non-empty")
	ErrDuplicateCorrelationID = errors.New("duplicate_correlation_id")
	ErrChainBroken            = errors.New("chain_broken")
	ErrSignatureVerification  = errors.New("signature_verification_failed")
	ErrInsufficientSignatures = errors.New("insufficient_signatures")
	ErrLedgerHalted           = errors.New("ledger halted after a system failure")
)

// WireError is implemented by every structured ledger error, exposing
// the stable snake_case code and optional detail object from §6.5.
type WireError interface {
	error
	Code() string
	Detail() map[string]any
}

// ZeroSumViolation reports that an asset's debits and credits did not
// balance within one entry.
type ZeroSumViolation struct {
	Asset  AssetCode
	Debit  string
	Credit string
}

func (e *ZeroSumViolation) Error() string {
	return fmt.Sprintf("zero_sum_violation: asset %s debits=%s credits=%s", e.Asset, e.Debit, e.Credit)
}
func (e *ZeroSumViolation) Code() string { return "zero_sum_violation" }
func (e *ZeroSumViolation) Detail() map[string]any {
	return map[string]any{"asset": string(e.Asset), "debit": e.Debit, "credit": e.Credit}
}

// IntentViolation reports that an entry's postings do not satisfy the
// shape required by its intent (§4.1.2).
type IntentViolation struct {
	Intent Intent
	Reason string
}

func (e *IntentViolation) Error() string {
	return fmt.Sprintf("intent_violation: %s: %s", e.Intent, e.Reason)
}
func (e *IntentViolation) Code() string { return "intent_violation" }
func (e *IntentViolation) Detail() map[string]any {
	return map[string]any{"intent": string(e.Intent), "reason": e.Reason}
}

// InsufficientBalance is raised by Commit (via checkSufficientBalance)
// before an entry would drive an ASSET or LIABILITY account negative —
// the overdraft check behind seed scenario 2 (§8) and the
// `insufficient_balance` wire code (§6.5, §7 category-2 policy
// failures).
// Needed/Available are plain decimals, not Amount: a zero available
// balance is a legitimate value here, and Amount's constructors reject
// zero (§3.1 amounts are strictly positive; balances are not amounts).
type InsufficientBalance struct {
	Account   AccountKey
	Needed    decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientBalance) Error() string {
	return fmt.Sprintf("insufficient_balance: account %s needed=%s available=%s",
		e.Account, e.Needed, e.Available)
}
func (e *InsufficientBalance) Code() string { return "insufficient_balance" }
func (e *InsufficientBalance) Detail() map[string]any {
	return map[string]any{
		"account":   e.Account.String(),
		"needed":    e.Needed.String(),
		"available": e.Available.String(),
	}
}

// ChainBrokenError identifies the first bad sequence number found
// during replay or verification.
type ChainBrokenError struct {
	AtSequence uint64
	Reason     string
}

func (e *ChainBrokenError) Error() string {
	return fmt.Sprintf("chain_broken: at sequence %d: %s", e.AtSequence, e.Reason)
}
func (e *ChainBrokenError) Code() string { return "chain_broken" }
func (e *ChainBrokenError) Detail() map[string]any {
	return map[string]any{"at_seq": e.AtSequence, "reason": e.Reason}
}
func (e *ChainBrokenError) Unwrap() error { return ErrChainBroken }

// InsufficientSignaturesError reports an M-of-N shortfall.
type InsufficientSignaturesError struct {
	Have, Need int
}

func (e *InsufficientSignaturesError) Error() string {
	return fmt.Sprintf("insufficient_signatures: have %d need %d", e.Have, e.Need)
}
func (e *InsufficientSignaturesError) Code() string { return "insufficient_signatures" }
func (e *InsufficientSignaturesError) Detail() map[string]any {
	return map[string]any{"have": e.Have, "need": e.Need}
}
func (e *InsufficientSignaturesError) Unwrap() error { return ErrInsufficientSignatures }
