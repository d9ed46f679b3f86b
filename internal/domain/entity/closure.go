package entity

import "time"

// ClosureStatus is the status of a monthly closure
type ClosureStatus string

const (
	ClosureAwaitingStaff  ClosureStatus = "awaiting_staff"
	ClosureAwaitingHost   ClosureStatus = "awaiting_host"
	ClosureAwaitingLender ClosureStatus = "awaiting_lender"
	ClosureClosed         ClosureStatus = "closed"
)

// Signatures holds the three write-once closure flags
type Signatures struct {
	Staff  bool `json:"staff"`
	Host   bool `json:"host"`
	Lender bool `json:"lender"`
}

// MonthlyClosure is the monthly sign-off record for one staff member
type MonthlyClosure struct {
	ID         string        `json:"id"`
	Month      Month         `json:"month"`
	StaffID    string        `json:"staff_id"`
	Signatures Signatures    `json:"signatures"`
	Status     ClosureStatus `json:"status"`
	ClosedAt   *time.Time    `json:"closed_at,omitempty"`
	ReportRef  string        `json:"report_ref,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
