package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// engineImpl is the concrete implementation of Engine
type engineImpl struct {
	proposals port.ScheduleProposalRepository
	entries   port.TimeEntryRepository
	expenses  port.ExpenseRepository
	reports   port.WeeklyReportRepository
	closures  port.ClosureRepository
	loader    *service.MonthLoader
	policy    *authz.Policy
	logger    service.Logger
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithPolicy replaces the default role table
func WithPolicy(p *authz.Policy) EngineOption {
	return func(e *engineImpl) {
		e.policy = p
	}
}

// WithLogger sets the engine logger
func WithLogger(l service.Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	proposals port.ScheduleProposalRepository,
	entries port.TimeEntryRepository,
	expenses port.ExpenseRepository,
	reports port.WeeklyReportRepository,
	closures port.ClosureRepository,
	opts ...EngineOption,
) Engine {
	e := &engineImpl{
		proposals: proposals,
		entries:   entries,
		expenses:  expenses,
		reports:   reports,
		closures:  closures,
		loader:    service.NewMonthLoader(entries, expenses, reports),
		policy:    authz.NewPolicy(nil),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// sideFilter selects records whose side answered by the role is still pending.
// The sides are independent, so the other side's status does not matter.
func sideFilter(role entity.Role) (port.EntryFilter, bool) {
	side, ok := entity.SideForRole(role)
	if !ok {
		return port.EntryFilter{}, false
	}
	if side == entity.SideHost {
		return port.EntryFilter{HostStatus: entity.ApprovalPending}, true
	}
	return port.EntryFilter{LenderStatus: entity.ApprovalPending}, true
}

// Pending returns the items of type t awaiting the actor's role.
// Roles with nothing to decide on t get an empty result.
func (e *engineImpl) Pending(ctx context.Context, actor entity.Actor, t entity.Type) (*PendingItems, error) {
	const op = "pending"

	if !t.IsValid() {
		return nil, apperror.Validation(op, "unknown entity type %q", t)
	}
	if err := e.policy.Require(op, actor, t, authz.ActionView); err != nil {
		return nil, err
	}

	items := &PendingItems{Type: t, Role: actor.Role}
	var err error

	switch t {
	case entity.TypeScheduleProposal:
		items.Proposals, err = e.ProposalsAwaiting(ctx, actor)
	case entity.TypeMonthlyClosure:
		items.Closures, err = e.ClosuresAwaiting(ctx, actor)
	case entity.TypeTimeEntry:
		if filter, ok := sideFilter(actor.Role); ok {
			items.TimeEntries, err = e.entries.List(ctx, filter)
		}
	case entity.TypeExpense:
		if filter, ok := sideFilter(actor.Role); ok {
			items.Expenses, err = e.expenses.List(ctx, filter)
		}
	case entity.TypeWeeklyReport:
		if filter, ok := sideFilter(actor.Role); ok {
			var reports []*entity.WeeklyReport
			reports, err = e.reports.List(ctx, filter)
			for _, r := range reports {
				if !r.Locked {
					items.WeeklyReports = append(items.WeeklyReports, r)
				}
			}
		}
	}
	if err != nil {
		e.logError("Failed to list pending items", "error", err, "type", t, "role", actor.Role)
		return nil, fmt.Errorf("list pending %s: %w", t, err)
	}

	return items, nil
}

// ClosuresAwaiting returns closures whose next signature belongs to the actor's role.
// Staff only see their own.
func (e *engineImpl) ClosuresAwaiting(ctx context.Context, actor entity.Actor) ([]*entity.MonthlyClosure, error) {
	if err := e.policy.Require("closures_awaiting", actor, entity.TypeMonthlyClosure, authz.ActionView); err != nil {
		return nil, err
	}

	filter := port.ClosureFilter{}
	switch actor.Role {
	case entity.RoleStaff:
		filter.Status = entity.ClosureAwaitingStaff
		filter.StaffID = actor.ID
	case entity.RoleHost:
		filter.Status = entity.ClosureAwaitingHost
	case entity.RoleLender:
		filter.Status = entity.ClosureAwaitingLender
	default:
		return nil, nil
	}
	return e.closures.List(ctx, filter)
}

// ProposalsAwaiting returns proposed slots to a role allowed to validate them
func (e *engineImpl) ProposalsAwaiting(ctx context.Context, actor entity.Actor) ([]*entity.ScheduleProposal, error) {
	if err := e.policy.Require("proposals_awaiting", actor, entity.TypeScheduleProposal, authz.ActionView); err != nil {
		return nil, err
	}
	if !e.policy.CanTransition(entity.TypeScheduleProposal, authz.ActionApprove, actor.Role) {
		return nil, nil
	}
	return e.proposals.List(ctx, port.ProposalFilter{Status: entity.ProposalProposed})
}

// MonthSummary totals the approved time entries and expenses dated in the month
// and sums the hours declared in weekly reports intersecting it
func (e *engineImpl) MonthSummary(ctx context.Context, actor entity.Actor, staffID string, month entity.Month) (*MonthSummary, error) {
	const op = "month_summary"

	if actor.Role == entity.RoleStaff && staffID == "" {
		staffID = actor.ID
	}
	if err := e.policy.Require(op, actor, entity.TypeMonthlyClosure, authz.ActionView); err != nil {
		return nil, err
	}
	if staffID == "" {
		return nil, apperror.Validation(op, "staff_id is required")
	}
	if month.IsZero() {
		return nil, apperror.Validation(op, "month is required")
	}
	if err := authz.RequireOwner(op, actor, staffID); err != nil {
		return nil, err
	}

	data, err := e.loader.Load(ctx, staffID, month)
	if err != nil {
		e.logError("Failed to load month", "error", err, "staff_id", staffID, "month", month.String())
		return nil, err
	}

	summary := &MonthSummary{
		StaffID:       staffID,
		Month:         month,
		Totals:        data.Totals,
		WeeklyReports: data.Reports,
	}
	for _, r := range data.Reports {
		summary.ReportHours.Host += r.HostHours
		summary.ReportHours.Lender += r.LenderHours
	}

	closures, err := e.closures.List(ctx, port.ClosureFilter{StaffID: staffID, Month: month})
	if err != nil {
		return nil, fmt.Errorf("list closures: %w", err)
	}
	if len(closures) > 0 {
		summary.Closure = closures[0]
	}

	return summary, nil
}

func (e *engineImpl) logError(msg string, keysAndValues ...interface{}) {
	if e.logger != nil {
		e.logger.Error(msg, keysAndValues...)
	}
}
