package compliance

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// RuleType distinguishes the two rule families in the evaluation
// pipeline (§4.2.2): Block rules run first and short-circuit, Flag
// rules all run and their decisions are aggregated.
type RuleType string

const (
	RuleBlock RuleType = "Block"
	RuleFlag  RuleType = "Flag"
)

// PredicateKind is the closed set of condition primitives from §4.2.1.
// Modeled as a tagged enum (struct with a Kind discriminant) rather
// than an interface, per the "prefer enum-of-concrete-cases" note —
// the same tagged-string-enum shape the teacher uses for SwapMethod.
type PredicateKind string

const (
	PredicateAll           PredicateKind = "All"
	PredicateAny           PredicateKind = "Any"
	PredicateAmountGte     PredicateKind = "AmountGte"
	PredicateAmountLt      PredicateKind = "AmountLt"
	PredicateAmountInRange PredicateKind = "AmountInRange"
	PredicateAccountAgeLt  PredicateKind = "AccountAgeLt"
	PredicateAccountAgeGte PredicateKind = "AccountAgeGte"
	PredicateIsWatchlisted PredicateKind = "IsWatchlisted"
	PredicateIsPep         PredicateKind = "IsPep"
	PredicateTxCountGte    PredicateKind = "TxCountGte"
	PredicateVolumeGte     PredicateKind = "VolumeGte"
	PredicateCustom        PredicateKind = "Custom"
)

// Condition is a predicate tree node. Only the fields relevant to Kind
// are populated; this mirrors a sum type within Go's struct-of-fields
// idiom instead of introducing N concrete condition types behind an
// interface.
type Condition struct {
	Kind PredicateKind

	// All / Any
	Children []Condition

	// AmountGte / AmountLt
	Threshold decimal.Decimal

	// AmountInRange
	Min, Max decimal.Decimal

	// AccountAgeLt / AccountAgeGte: age in minutes
	AgeMinutes int

	// TxCountGte / VolumeGte
	Count         int
	WindowMinutes int

	// Custom
	CustomName string
}

func All(children ...Condition) Condition { return Condition{Kind: PredicateAll, Children: children} }
func Any(children ...Condition) Condition { return Condition{Kind: PredicateAny, Children: children} }

func AmountGte(threshold decimal.Decimal) Condition {
	return Condition{Kind: PredicateAmountGte, Threshold: threshold}
}
func AmountLt(threshold decimal.Decimal) Condition {
	return Condition{Kind: PredicateAmountLt, Threshold: threshold}
}
func AmountInRange(min, max decimal.Decimal) Condition {
	return Condition{Kind: PredicateAmountInRange, Min: min, Max: max}
}
func AccountAgeLt(minutes int) Condition {
	return Condition{Kind: PredicateAccountAgeLt, AgeMinutes: minutes}
}
func AccountAgeGte(minutes int) Condition {
	return Condition{Kind: PredicateAccountAgeGte, AgeMinutes: minutes}
}
func IsWatchlisted() Condition { return Condition{Kind: PredicateIsWatchlisted} }
func IsPep() Condition         { return Condition{Kind: PredicateIsPep} }
func TxCountGte(count, windowMinutes int) Condition {
	return Condition{Kind: PredicateTxCountGte, Count: count, WindowMinutes: windowMinutes}
}
func VolumeGte(threshold decimal.Decimal, windowMinutes int) Condition {
	return Condition{Kind: PredicateVolumeGte, Threshold: threshold, WindowMinutes: windowMinutes}
}
func Custom(name string) Condition { return Condition{Kind: PredicateCustom, CustomName: name} }

// ActionKind mirrors §4.2.1's Action set.
type ActionKind string

const (
	ActionBlock   ActionKind = "Block"
	ActionFlag    ActionKind = "Flag"
	ActionApprove ActionKind = "Approve"
)

// Action is what a matched rule produces.
type Action struct {
	Kind     ActionKind
	Code     string        // Block
	Reason   string        // Block / Flag
	Risk     RiskScore     // Flag
	Required ApprovalLevel // Flag
}

func BlockAction(code, reason string) Action {
	return Action{Kind: ActionBlock, Code: code, Reason: reason}
}
func FlagAction(risk RiskScore, required ApprovalLevel, reason string) Action {
	return Action{Kind: ActionFlag, Risk: risk, Required: required, Reason: reason}
}
func ApproveAction() Action { return Action{Kind: ActionApprove} }

// Rule binds a condition to an action under ascending-priority
// ordering (§4.2.1: "priority is ascending, lower runs first").
type Rule struct {
	ID        string
	Type      RuleType
	Condition Condition
	Action    Action
	Priority  int
	Enabled   bool
}

// CustomPredicate is a named predicate looked up by Condition.Custom's
// CustomName, per §4.2.1 "a named predicate looked up in an extension
// table".
type CustomPredicate func(ctx *TransactionContext) bool

// evaluateCondition walks a Condition tree against a transaction
// context and the caller-supplied sliding-window/account facts.
func evaluateCondition(c Condition, ctx *TransactionContext, window *Window, customs map[string]CustomPredicate) (bool, error) {
	switch c.Kind {
	case PredicateAll:
		for _, child := range c.Children {
			ok, err := evaluateCondition(child, ctx, window, customs)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
		return true, nil
	case PredicateAny:
		for _, child := range c.Children {
			ok, err := evaluateCondition(child, ctx, window, customs)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	case PredicateAmountGte:
		return ctx.Amount.GreaterThanOrEqual(c.Threshold), nil
	case PredicateAmountLt:
		return ctx.Amount.LessThan(c.Threshold), nil
	case PredicateAmountInRange:
		return !ctx.Amount.LessThan(c.Min) && !ctx.Amount.GreaterThan(c.Max), nil
	case PredicateAccountAgeLt:
		return ctx.AccountAgeMinutes < c.AgeMinutes, nil
	case PredicateAccountAgeGte:
		return ctx.AccountAgeMinutes >= c.AgeMinutes, nil
	case PredicateIsWatchlisted:
		return ctx.IsWatchlisted, nil
	case PredicateIsPep:
		return ctx.IsPep, nil
	case PredicateTxCountGte:
		count, _ := window.Summarize(ctx.UserID, ctx.Asset, c.WindowMinutes)
		return count >= c.Count, nil
	case PredicateVolumeGte:
		_, volume := window.Summarize(ctx.UserID, ctx.Asset, c.WindowMinutes)
		return !volume.LessThan(c.Threshold), nil
	case PredicateCustom:
		fn, ok := customs[c.CustomName]
		if !ok {
			return false, fmt.Errorf("%w: unknown custom predicate %q", ErrInvalidRuleCondition, c.CustomName)
		}
		return fn(ctx), nil
	default:
		return false, fmt.Errorf("%w: unknown predicate kind %q", ErrInvalidRuleCondition, c.Kind)
	}
}
