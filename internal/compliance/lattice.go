package compliance

import "fmt"

// ApprovalLevel is the escalation tier attached to a Flagged decision.
type ApprovalLevel string

const (
	L1 ApprovalLevel = "L1"
	L2 ApprovalLevel = "L2"
	L3 ApprovalLevel = "L3"
	L4 ApprovalLevel = "L4"
)

func (l ApprovalLevel) rank() int {
	switch l {
	case L1:
		return 1
	case L2:
		return 2
	case L3:
		return 3
	case L4:
		return 4
	default:
		return 0
	}
}

// RiskScore is carried by a Flag action for observability; it does not
// itself participate in lattice ordering (ApprovalLevel does).
type RiskScore string

const (
	RiskLow      RiskScore = "Low"
	RiskMedium   RiskScore = "Medium"
	RiskHigh     RiskScore = "High"
	RiskCritical RiskScore = "Critical"
)

// DecisionKind is the closed set of ranks in the AML decision lattice
// (§3.6): Approved < Flagged{level} < Blocked.
type DecisionKind int

const (
	KindApproved DecisionKind = iota
	KindFlagged
	KindBlocked
)

// Decision is one point in the lattice. For KindFlagged, Level is
// meaningful and orders Flagged decisions against each other.
type Decision struct {
	Kind   DecisionKind
	Level  ApprovalLevel // only set when Kind == KindFlagged
	Code   string        // Block code, or the name of the triggering rule
	Reason string
}

func Approved() Decision { return Decision{Kind: KindApproved} }

func Flagged(level ApprovalLevel, code, reason string) Decision {
	return Decision{Kind: KindFlagged, Level: level, Code: code, Reason: reason}
}

func Blocked(code, reason string) Decision {
	return Decision{Kind: KindBlocked, Code: code, Reason: reason}
}

func (d Decision) String() string {
	switch d.Kind {
	case KindApproved:
		return "Approved"
	case KindFlagged:
		return fmt.Sprintf("Flagged{%s}", d.Level)
	case KindBlocked:
		return fmt.Sprintf("Blocked{%s}", d.Code)
	default:
		return "Unknown"
	}
}

// rank gives a total order across all decisions: Approved(0) < any
// Flagged(10+level) < Blocked(100).
func (d Decision) rank() int {
	switch d.Kind {
	case KindApproved:
		return 0
	case KindFlagged:
		return 10 + d.Level.rank()
	case KindBlocked:
		return 100
	default:
		return 0
	}
}

// Aggregate combines a set of decisions by lattice maximum (§3.6); the
// empty set aggregates to Approved.
func Aggregate(decisions []Decision) Decision {
	best := Approved()
	for _, d := range decisions {
		if d.rank() > best.rank() {
			best = d
		}
	}
	return best
}
