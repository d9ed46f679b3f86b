package entity

import "time"

// SideApproval holds one party's decision on a dual-approved record
type SideApproval struct {
	Status    ApprovalStatus `json:"status"`
	DecidedBy string         `json:"decided_by,omitempty"`
	DecidedAt *time.Time     `json:"decided_at,omitempty"`
	Comment   string         `json:"comment,omitempty"`
}

// Approvals pairs the independent host and lender decisions
type Approvals struct {
	Host   SideApproval `json:"host"`
	Lender SideApproval `json:"lender"`
}

// PendingApprovals returns both sides in pending state
func PendingApprovals() Approvals {
	return Approvals{
		Host:   SideApproval{Status: ApprovalPending},
		Lender: SideApproval{Status: ApprovalPending},
	}
}

// Get returns the decision for a side
func (a Approvals) Get(side Side) SideApproval {
	if side == SideHost {
		return a.Host
	}
	return a.Lender
}

// Authoritative returns the lender status, last in the chain
func (a Approvals) Authoritative() ApprovalStatus {
	return a.Lender.Status
}

// FullyPending returns true while neither side has decided
func (a Approvals) FullyPending() bool {
	return a.Host.Status == ApprovalPending && a.Lender.Status == ApprovalPending
}

// TimeEntry is an actual working-time declaration
type TimeEntry struct {
	ID        string    `json:"id"`
	StaffID   string    `json:"staff_id"`
	Date      time.Time `json:"date"`
	StartTime TimeOfDay `json:"start_time"`
	EndTime   TimeOfDay `json:"end_time"`
	SiteID    string    `json:"site_id"`
	Comment   string    `json:"comment,omitempty"`
	Approvals Approvals `json:"approvals"`
	// Variance is actual minus planned hours; 0 without an approved plan.
	Variance  float64   `json:"variance_vs_plan"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
