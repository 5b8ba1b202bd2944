package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Side is which leg of a double-entry posting this is.
type Side string

const (
	Debit  Side = "debit"
	Credit Side = "credit"
)

// Intent is the business meaning of a journal entry, governing which
// account categories may participate (§4.1.2).
type Intent string

const (
	IntentGenesis     Intent = "genesis"
	IntentDeposit     Intent = "deposit"
	IntentWithdrawal  Intent = "withdrawal"
	IntentTransfer    Intent = "transfer"
	IntentTrade       Intent = "trade"
	IntentFee         Intent = "fee"
	IntentAdjustment  Intent = "adjustment"
	IntentInterest    Intent = "interest"
	IntentBorrow      Intent = "borrow"
	IntentRepay       Intent = "repay"
	IntentLiquidation Intent = "liquidation"
)

func (i Intent) valid() bool {
	switch i {
	case IntentGenesis, IntentDeposit, IntentWithdrawal, IntentTransfer, IntentTrade,
		IntentFee, IntentAdjustment, IntentInterest, IntentBorrow, IntentRepay, IntentLiquidation:
		return true
	}
	return false
}

// Posting is one leg of a journal entry.
type Posting struct {
	Account AccountKey
	Amount  Amount
	Side    Side
}

// EntrySignature is one signature over an entry's signable payload
// (§4.1.4).
type EntrySignature struct {
	SignerID     string    `json:"signer_id"`
	Algorithm    string    `json:"algorithm"`
	PublicKeyHex string    `json:"public_key_hex"`
	SignatureHex string    `json:"signature_hex"`
	SignedAt     time.Time `json:"signed_at"`
}

// SystemSignerID is the distinguished signer id for the ledger's own
// signing key.
const SystemSignerID = "SYSTEM"

// GenesisPrevHash is the literal prev_hash value for sequence 1.
const GenesisPrevHash = "GENESIS"

// UnsignedEntry is the builder input to Commit. Sequence, PrevHash,
// Hash, Timestamp, and the system Signature are assigned by the
// Ledger during commit.
type UnsignedEntry struct {
	Intent        Intent
	CorrelationID string
	CausalityID   *string
	Postings      []Posting
	Metadata      map[string]string

	// ExternalSignatures are signatures collected out of band (e.g. the
	// M-of-N operator signatures gathered by the Approval subsystem for
	// Adjustment entries, §4.1.4) to be included alongside the system
	// signature.
	ExternalSignatures []EntrySignature
}

// JournalEntry is the indivisible, immutable unit of financial truth
// once appended (§3.2).
type JournalEntry struct {
	Sequence      uint64            `json:"sequence"`
	PrevHash      string            `json:"prev_hash"`
	Hash          string            `json:"hash"`
	Timestamp     time.Time         `json:"timestamp"`
	Intent        Intent            `json:"intent"`
	CorrelationID string            `json:"correlation_id"`
	CausalityID   *string           `json:"causality_id,omitempty"`
	Postings      []Posting         `json:"postings"`
	Metadata      map[string]string `json:"metadata"`
	Signatures    []EntrySignature  `json:"signatures"`
}

// validatePostings checks §4.1.3 steps 1-3: non-empty, strictly
// positive (guaranteed by the Amount type itself), per-asset zero-sum,
// and intent-specific shape.
func validatePostings(intent Intent, postings []Posting) error {
	if len(postings) == 0 {
		return ErrEmptyPostings
	}
	if !intent.valid() {
		return &IntentViolation{Intent: intent, Reason: "unknown intent"}
	}

	sums := map[AssetCode]struct{ debit, credit decimal.Decimal }{}
	for _, p := range postings {
		s := sums[p.Account.Asset]
		switch p.Side {
		case Debit:
			s.debit = s.debit.Add(p.Amount.Decimal())
		case Credit:
			s.credit = s.credit.Add(p.Amount.Decimal())
		default:
			return &IntentViolation{Intent: intent, Reason: fmt.Sprintf("unknown side %q", p.Side)}
		}
		sums[p.Account.Asset] = s
	}
	for asset, s := range sums {
		if !s.debit.Equal(s.credit) {
			return &ZeroSumViolation{Asset: asset, Debit: s.debit.String(), Credit: s.credit.String()}
		}
	}

	return validateIntentShape(intent, postings)
}

func validateIntentShape(intent Intent, postings []Posting) error {
	distinctAssets := map[AssetCode]bool{}
	for _, p := range postings {
		distinctAssets[p.Account.Asset] = true
	}

	hasCategorySide := func(cat Category, side Side) bool {
		for _, p := range postings {
			if p.Account.Category == cat && p.Side == side {
				return true
			}
		}
		return false
	}
	allCategory := func(cat Category) bool {
		for _, p := range postings {
			if p.Account.Category != cat {
				return false
			}
		}
		return true
	}
	allCategoryIn := func(cats ...Category) bool {
		set := map[Category]bool{}
		for _, c := range cats {
			set[c] = true
		}
		for _, p := range postings {
			if !set[p.Account.Category] {
				return false
			}
		}
		return true
	}

	switch intent {
	case IntentGenesis:
		if !allCategoryIn(Asset, Equity) {
			return &IntentViolation{Intent: intent, Reason: "genesis postings must be ASSET or EQUITY only"}
		}
	case IntentDeposit:
		if !hasCategorySide(Asset, Debit) || !hasCategorySide(Liability, Credit) {
			return &IntentViolation{Intent: intent, Reason: "deposit requires >=1 ASSET debit and >=1 LIABILITY credit"}
		}
	case IntentWithdrawal:
		if !hasCategorySide(Asset, Credit) || !hasCategorySide(Liability, Debit) {
			return &IntentViolation{Intent: intent, Reason: "withdrawal requires >=1 ASSET credit and >=1 LIABILITY debit"}
		}
	case IntentTransfer:
		if !allCategory(Liability) {
			return &IntentViolation{Intent: intent, Reason: "transfer postings must all be LIABILITY"}
		}
	case IntentTrade:
		if len(postings) < 4 {
			return &IntentViolation{Intent: intent, Reason: "trade requires at least 4 postings"}
		}
		if !allCategory(Liability) {
			return &IntentViolation{Intent: intent, Reason: "trade postings must all be LIABILITY"}
		}
		if len(distinctAssets) != 2 {
			return &IntentViolation{Intent: intent, Reason: fmt.Sprintf("trade requires exactly 2 distinct assets, got %d", len(distinctAssets))}
		}
	case IntentFee:
		if !allCategoryIn(Liability, Revenue) {
			return &IntentViolation{Intent: intent, Reason: "fee postings must be LIABILITY or REVENUE only"}
		}
		if !hasCategorySide(Liability, Debit) || !hasCategorySide(Revenue, Credit) {
			return &IntentViolation{Intent: intent, Reason: "fee requires a LIABILITY debit and a REVENUE credit"}
		}
	case IntentInterest:
		if !allCategoryIn(Asset, Revenue) {
			return &IntentViolation{Intent: intent, Reason: "interest postings must be ASSET or REVENUE only"}
		}
		if !hasCategorySide(Asset, Debit) || !hasCategorySide(Revenue, Credit) {
			return &IntentViolation{Intent: intent, Reason: "interest requires an ASSET-loan debit and a REVENUE credit"}
		}
	case IntentAdjustment, IntentBorrow, IntentRepay, IntentLiquidation:
		// Any categories permitted (Adjustment), or domain-specific shapes
		// defined by the risk module (Borrow/Repay/Liquidation) — zero-sum
		// has already been checked above, which is the only invariant the
		// spec fixes for these intents.
	}
	return nil
}

// applyDelta adds the balance delta these postings contribute, keyed by
// account string form, per category sign convention (§3.1): assets and
// expenses increase on debit, liabilities/equity/revenue increase on
// credit.
func applyDelta(postings []Posting, into map[string]decimal.Decimal) {
	for _, p := range postings {
		key := p.Account.String()
		sign := decimal.NewFromInt(1)
		debitIncreases := p.Account.Category.increasesOnDebit()
		if (p.Side == Debit && !debitIncreases) || (p.Side == Credit && debitIncreases) {
			sign = decimal.NewFromInt(-1)
		}
		into[key] = into[key].Add(p.Amount.Decimal().Mul(sign))
	}
}

// checkSufficientBalance rejects an entry that would drive an ASSET or
// LIABILITY account negative (§8 seed scenario 2 — overdraft rejected).
// EQUITY/REVENUE/EXPENSE accounts are internal book accounts, not
// user-held float, and are not subject to this check (e.g. a Fee
// entry's REVENUE credit has no "available balance" to overdraw).
func checkSufficientBalance(postings []Posting, balances map[string]decimal.Decimal) error {
	type accountDelta struct {
		account AccountKey
		amount  decimal.Decimal
	}
	deltas := map[string]*accountDelta{}
	for _, p := range postings {
		if p.Account.Category != Asset && p.Account.Category != Liability {
			continue
		}
		key := p.Account.String()
		sign := decimal.NewFromInt(1)
		debitIncreases := p.Account.Category.increasesOnDebit()
		if (p.Side == Debit && !debitIncreases) || (p.Side == Credit && debitIncreases) {
			sign = decimal.NewFromInt(-1)
		}
		d, ok := deltas[key]
		if !ok {
			d = &accountDelta{account: p.Account}
			deltas[key] = d
		}
		d.amount = d.amount.Add(p.Amount.Decimal().Mul(sign))
	}
	for key, d := range deltas {
		if !d.amount.IsNegative() {
			continue
		}
		available := balances[key]
		if available.Add(d.amount).IsNegative() {
			return &InsufficientBalance{
				Account:   d.account,
				Needed:    d.amount.Abs(),
				Available: available,
			}
		}
	}
	return nil
}
