package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a strictly positive fixed-point decimal. Direction is
// carried by a Posting's Side, never by the Amount's sign.
type Amount struct {
	d decimal.Decimal
}

// NewAmount parses a decimal string and validates it is strictly
// positive. Zero and negative amounts are rejected at construction
// per §3.1.
func NewAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal wraps a decimal.Decimal, validating positivity.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if !d.IsPositive() {
		return Amount{}, fmt.Errorf("%w: %s is not strictly positive", ErrInvalidAmount, d.String())
	}
	return Amount{d: d}, nil
}

// MustAmount is NewAmount that panics on error; for tests and constants.
func MustAmount(s string) Amount {
	a, err := NewAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Decimal returns the underlying value.
func (a Amount) Decimal() decimal.Decimal { return a.d }

func (a Amount) String() string { return a.d.String() }

func (a Amount) Add(b Amount) Amount  { return Amount{d: a.d.Add(b.d)} }
func (a Amount) Sub(b Amount) Amount  { return Amount{d: a.d.Sub(b.d)} }
func (a Amount) Equal(b Amount) bool  { return a.d.Equal(b.d) }
func (a Amount) Cmp(b Amount) int     { return a.d.Cmp(b.d) }
func (a Amount) GreaterThan(b Amount) bool { return a.d.GreaterThan(b.d) }
func (a Amount) LessThan(b Amount) bool    { return a.d.LessThan(b.d) }

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.d.String())
}

func (a *Amount) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	a.d = d
	return nil
}

// zeroDecimal is the additive identity; it is never a valid standalone
// Amount (Amounts must be positive), so it is unexported to keep the
// invariant enforced at the type's boundary.
var zeroDecimal = decimal.Zero
