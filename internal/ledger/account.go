package ledger

import (
	"fmt"
	"strings"
)

// Category is one of the five account categories that determine
// debit/credit sign semantics.
type Category string

const (
	Asset     Category = "ASSET"
	Liability Category = "LIABILITY"
	Equity    Category = "EQUITY"
	Revenue   Category = "REVENUE"
	Expense   Category = "EXPENSE"
)

func (c Category) valid() bool {
	switch c {
	case Asset, Liability, Equity, Revenue, Expense:
		return true
	}
	return false
}

// increasesOnDebit reports whether a debit posting to this category
// increases the account's balance.
func (c Category) increasesOnDebit() bool {
	switch c {
	case Asset, Expense:
		return true
	default:
		return false
	}
}

// Asset in the accounting sense (a category) is distinct from the
// currency/asset code below. To avoid the name collision we call the
// currency code "AssetCode" throughout this package.

// AssetCode is an interned, uppercase alphanumeric currency/asset
// identifier of length <= 10 (e.g. "USDT", "BTC").
type AssetCode string

// NewAssetCode validates and normalizes a currency/asset code.
func NewAssetCode(s string) (AssetCode, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || len(s) > 10 {
		return "", fmt.Errorf("%w: asset code %q", ErrInvalidAssetCode, s)
	}
	for _, r := range s {
		if !(r >= 'A' && r <= 'Z') && !(r >= '0' && r <= '9') {
			return "", fmt.Errorf("%w: asset code %q", ErrInvalidAssetCode, s)
		}
	}
	return AssetCode(s), nil
}

// AccountKey uniquely identifies an account. Its canonical string form
// feeds the entry's hash input (§4.1.1) and is used for display.
type AccountKey struct {
	Category Category
	Segment  string
	ID       string
	Asset    AssetCode
	Sub      string
}

// NewAccountKey validates and constructs an AccountKey.
func NewAccountKey(category Category, segment, id string, asset AssetCode, sub string) (AccountKey, error) {
	if !category.valid() {
		return AccountKey{}, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	if segment == "" || id == "" {
		return AccountKey{}, fmt.Errorf("%w: segment and id are required", ErrInvalidAccountKey)
	}
	if asset == "" {
		return AccountKey{}, fmt.Errorf("%w: asset is required", ErrInvalidAccountKey)
	}
	return AccountKey{Category: category, Segment: segment, ID: id, Asset: asset, Sub: sub}, nil
}

// String returns the canonical, hash-stable representation.
func (k AccountKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", k.Category, k.Segment, k.ID, k.Asset, k.Sub)
}
