package compliance

import "time"

// ApprovalStatus is the lifecycle state of a PendingApproval (§4.2.4).
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalExpired  ApprovalStatus = "expired"
)

// PendingApproval is the M-of-N approval record backing an
// Adjustment-intent entry (§4.1.4, §4.2.4).
type PendingApproval struct {
	ID                 string
	UnsignedEntryJSON  string
	UnsignedEntryHash  string
	RequiredSignatures int
	Collected          int
	SignerIDs          []string // signers who have already signed, for add_signature dedup
	RequiredLevel      ApprovalLevel
	CreatedAt          time.Time
	ExpiresAt          time.Time
	Status             ApprovalStatus
	RejectionReason    string
}

// Remaining reports how many more signatures are needed (§8 seed
// scenario 7: "add one signature -> still Pending, remaining == 1").
func (p *PendingApproval) Remaining() int {
	r := p.RequiredSignatures - p.Collected
	if r < 0 {
		return 0
	}
	return r
}

// ApprovalStats is the §6.4 get_stats() aggregate, grouped by required
// approval level — supplemented per SPEC_FULL.md, grounded on the
// teacher's CountOrders-style aggregate helper in
// internal/storage/orders.go.
type ApprovalStats struct {
	PendingByLevel  map[ApprovalLevel]int
	ApprovedByLevel map[ApprovalLevel]int
	RejectedByLevel map[ApprovalLevel]int
	ExpiredByLevel  map[ApprovalLevel]int
}
