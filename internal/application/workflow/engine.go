// Package workflow exposes the read side of the workflow: what awaits whom,
// and what a staff member's month adds up to.
package workflow

import (
	"context"

	"github.com/garyjia/shared-staff/internal/domain/derive"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// Engine serves the workflow views. Every call recomputes from the store.
type Engine interface {
	// Pending returns the items of type t awaiting a decision by the actor's role
	Pending(ctx context.Context, actor entity.Actor, t entity.Type) (*PendingItems, error)

	// MonthSummary aggregates the staff member's month
	MonthSummary(ctx context.Context, actor entity.Actor, staffID string, month entity.Month) (*MonthSummary, error)

	// ClosuresAwaiting returns closures waiting for the actor's signature
	ClosuresAwaiting(ctx context.Context, actor entity.Actor) ([]*entity.MonthlyClosure, error)

	// ProposalsAwaiting returns schedule proposals waiting for validation
	ProposalsAwaiting(ctx context.Context, actor entity.Actor) ([]*entity.ScheduleProposal, error)
}

// PendingItems holds the records of one type awaiting a role.
// Only the slice matching Type is populated.
type PendingItems struct {
	Type          entity.Type                `json:"type"`
	Role          entity.Role                `json:"role"`
	Proposals     []*entity.ScheduleProposal `json:"schedule_proposals,omitempty"`
	TimeEntries   []*entity.TimeEntry        `json:"time_entries,omitempty"`
	Expenses      []*entity.Expense          `json:"expenses,omitempty"`
	WeeklyReports []*entity.WeeklyReport     `json:"weekly_reports,omitempty"`
	Closures      []*entity.MonthlyClosure   `json:"monthly_closures,omitempty"`
}

// Count returns the number of pending items
func (p *PendingItems) Count() int {
	return len(p.Proposals) + len(p.TimeEntries) + len(p.Expenses) + len(p.WeeklyReports) + len(p.Closures)
}

// ReportHours sums the hours declared in weekly reports
type ReportHours struct {
	Host   float64 `json:"host_hours"`
	Lender float64 `json:"lender_hours"`
}

// MonthSummary is the aggregated view of one staff member's month
type MonthSummary struct {
	StaffID       string                 `json:"staff_id"`
	Month         entity.Month           `json:"month"`
	Totals        derive.Totals          `json:"totals"`
	ReportHours   ReportHours            `json:"report_hours"`
	WeeklyReports []*entity.WeeklyReport `json:"weekly_reports"`
	Closure       *entity.MonthlyClosure `json:"closure,omitempty"`
}
