package compliance

import "testing"

func TestAggregateEmptyIsApproved(t *testing.T) {
	got := Aggregate(nil)
	if got.Kind != KindApproved {
		t.Errorf("got %v, want Approved", got)
	}
}

func TestAggregateTakesMax(t *testing.T) {
	decisions := []Decision{
		Flagged(L1, "RULE_A", "minor"),
		Blocked("RULE_B", "sanctioned"),
		Flagged(L3, "RULE_C", "major"),
	}
	got := Aggregate(decisions)
	if got.Kind != KindBlocked {
		t.Errorf("got %v, want Blocked (most restrictive)", got)
	}
}

func TestAggregateFlaggedLevelsOrder(t *testing.T) {
	decisions := []Decision{
		Flagged(L1, "A", ""),
		Flagged(L2, "B", ""),
	}
	got := Aggregate(decisions)
	if got.Kind != KindFlagged || got.Level != L2 {
		t.Errorf("got %v, want Flagged{L2}", got)
	}
}
