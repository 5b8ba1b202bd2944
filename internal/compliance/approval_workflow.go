package compliance

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// CreateApproval opens a new PendingApproval for an Adjustment entry
// awaiting M-of-N operator signatures (§4.1.4, §4.2.4).
func (e *Engine) CreateApproval(unsignedEntryJSON, unsignedEntryHash string, required int, level ApprovalLevel, expiry time.Duration) (*PendingApproval, error) {
	now := time.Now().UTC()
	a := &PendingApproval{
		ID:                 uuid.New().String(),
		UnsignedEntryJSON:  unsignedEntryJSON,
		UnsignedEntryHash:  unsignedEntryHash,
		RequiredSignatures: required,
		RequiredLevel:      level,
		CreatedAt:          now,
		ExpiresAt:          now.Add(expiry),
		Status:             ApprovalPending,
	}
	if err := e.store.Create(a); err != nil {
		return nil, err
	}
	return a, nil
}

// resolveStatus applies expiry-on-access (§4.2.4: "when now >=
// expires_at, status moves to Expired on next access").
func resolveStatus(a *PendingApproval, now time.Time) {
	if a.Status == ApprovalPending && !now.Before(a.ExpiresAt) {
		a.Status = ApprovalExpired
	}
}

// GetApproval fetches one approval, applying expiry-on-access.
func (e *Engine) GetApproval(id string) (*PendingApproval, error) {
	a, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	resolveStatus(a, time.Now().UTC())
	return a, nil
}

// AddSignature records one operator signature. Rejected if the signer
// already signed or the approval has left Pending (§4.2.4).
func (e *Engine) AddSignature(id, signerID string) (*PendingApproval, error) {
	a, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	resolveStatus(a, time.Now().UTC())

	if a.Status != ApprovalPending {
		return nil, ErrAlreadyProcessed
	}
	if slices.Contains(a.SignerIDs, signerID) {
		return nil, ErrDuplicateSignature
	}

	a.SignerIDs = append(a.SignerIDs, signerID)
	a.Collected++
	if a.Collected >= a.RequiredSignatures {
		a.Status = ApprovalApproved
	}
	if err := e.store.Update(a); err != nil {
		return nil, err
	}
	return a, nil
}

// RejectApproval transitions a Pending approval to Rejected. Terminal:
// once Rejected, further signatures or rejections error.
func (e *Engine) RejectApproval(id, reason string) (*PendingApproval, error) {
	a, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}
	resolveStatus(a, time.Now().UTC())
	if a.Status != ApprovalPending {
		return nil, ErrAlreadyProcessed
	}
	a.Status = ApprovalRejected
	a.RejectionReason = reason
	if err := e.store.Update(a); err != nil {
		return nil, err
	}
	return a, nil
}

// ListPending returns every approval currently Pending, resolving
// expiry-on-access for each.
func (e *Engine) ListPending() ([]*PendingApproval, error) {
	all, err := e.store.ListByStatus(ApprovalPending)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var pending []*PendingApproval
	for _, a := range all {
		resolveStatus(a, now)
		if a.Status == ApprovalPending {
			pending = append(pending, a)
		} else {
			// Persist the now-resolved Expired status so subsequent reads
			// don't have to recompute it.
			_ = e.store.Update(a)
		}
	}
	return pending, nil
}

// GetStats computes ApprovalStats across all approvals, grouped by
// required approval level (§6.4 get_stats — supplemented per
// SPEC_FULL.md).
func (e *Engine) GetStats() (ApprovalStats, error) {
	all, err := e.store.ListAll()
	if err != nil {
		return ApprovalStats{}, err
	}
	stats := ApprovalStats{
		PendingByLevel:  map[ApprovalLevel]int{},
		ApprovedByLevel: map[ApprovalLevel]int{},
		RejectedByLevel: map[ApprovalLevel]int{},
		ExpiredByLevel:  map[ApprovalLevel]int{},
	}
	now := time.Now().UTC()
	for _, a := range all {
		resolveStatus(a, now)
		switch a.Status {
		case ApprovalPending:
			stats.PendingByLevel[a.RequiredLevel]++
		case ApprovalApproved:
			stats.ApprovedByLevel[a.RequiredLevel]++
		case ApprovalRejected:
			stats.RejectedByLevel[a.RequiredLevel]++
		case ApprovalExpired:
			stats.ExpiredByLevel[a.RequiredLevel]++
		}
	}
	return stats, nil
}
