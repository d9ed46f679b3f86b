package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/shared-staff/internal/application/dispatcher"
	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/domain/derive"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/event"
	"github.com/garyjia/shared-staff/internal/domain/workflow"
)

// DeclareTimeInput describes an actual working-time declaration
type DeclareTimeInput struct {
	StaffID   string
	Date      time.Time
	StartTime entity.TimeOfDay
	EndTime   entity.TimeOfDay
	SiteID    string
	Comment   string
}

// DeclareExpenseInput describes an expense declaration
type DeclareExpenseInput struct {
	StaffID       string
	Date          time.Time
	Category      string
	Description   string
	Amount        decimal.Decimal
	AttachmentRef string
	Allocation    entity.Allocation
	Ratio         decimal.Decimal
}

// ApprovalService manages the dual-approved records: time entries and expenses
type ApprovalService interface {
	DeclareTime(ctx context.Context, actor entity.Actor, in DeclareTimeInput) (*entity.TimeEntry, error)
	DeclareExpense(ctx context.Context, actor entity.Actor, in DeclareExpenseInput) (*entity.Expense, error)

	GetTimeEntry(ctx context.Context, actor entity.Actor, id string) (*entity.TimeEntry, error)
	GetExpense(ctx context.Context, actor entity.Actor, id string) (*entity.Expense, error)
	ListTimeEntries(ctx context.Context, actor entity.Actor, filter port.EntryFilter) ([]*entity.TimeEntry, error)
	ListExpenses(ctx context.Context, actor entity.Actor, filter port.EntryFilter) ([]*entity.Expense, error)

	// DecideTimeEntry and DecideExpense decide one side. Sides are independent.
	DecideTimeEntry(ctx context.Context, actor entity.Actor, id string, side entity.Side, decision entity.Decision, comment string) (*entity.TimeEntry, error)
	DecideExpense(ctx context.Context, actor entity.Actor, id string, side entity.Side, decision entity.Decision, comment string) (*entity.Expense, error)

	DeleteTimeEntry(ctx context.Context, actor entity.Actor, id string) error
	DeleteExpense(ctx context.Context, actor entity.Actor, id string) error
}

type approvalServiceImpl struct {
	entries   port.TimeEntryRepository
	expenses  port.ExpenseRepository
	schedules port.ScheduleProposalRepository
	sites     port.SiteRepository
	txManager port.TransactionManager
	audit     auditor
	policy    *authz.Policy
	publisher dispatcher.Publisher
	now       Clock
	logger    Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(
	entries port.TimeEntryRepository,
	expenses port.ExpenseRepository,
	schedules port.ScheduleProposalRepository,
	sites port.SiteRepository,
	auditRepo port.AuditRepository,
	txManager port.TransactionManager,
	policy *authz.Policy,
	publisher dispatcher.Publisher,
	now Clock,
	logger Logger,
) ApprovalService {
	return &approvalServiceImpl{
		entries:   entries,
		expenses:  expenses,
		schedules: schedules,
		sites:     sites,
		txManager: txManager,
		audit:     auditor{repo: auditRepo, now: now},
		policy:    policy,
		publisher: publisher,
		now:       now,
		logger:    logger,
	}
}

// initialApprovals returns the starting approvals of a declaration.
// Records the lender declares on behalf of a staff member start approved on both sides.
func (s *approvalServiceImpl) initialApprovals(actor entity.Actor, staffID string) entity.Approvals {
	if actor.Role != entity.RoleLender || actor.Is(staffID) {
		return entity.PendingApprovals()
	}
	at := s.now()
	side := entity.SideApproval{Status: entity.ApprovalApproved, DecidedBy: actor.ID, DecidedAt: &at}
	return entity.Approvals{Host: side, Lender: side}
}

func (s *approvalServiceImpl) authorizeDeclaration(op string, actor entity.Actor, t entity.Type, staffID string) error {
	if err := s.policy.Require(op, actor, t, authz.ActionCreate); err != nil {
		return err
	}
	if staffID == "" {
		return apperror.Validation(op, "staff_id is required")
	}
	return authz.RequireOwner(op, actor, staffID)
}

// DeclareTime records a time entry and its variance against the approved plan of the day
func (s *approvalServiceImpl) DeclareTime(ctx context.Context, actor entity.Actor, in DeclareTimeInput) (*entity.TimeEntry, error) {
	const op = "declare_time"

	staffID := ownStaffID(actor, in.StaffID)
	if err := s.authorizeDeclaration(op, actor, entity.TypeTimeEntry, staffID); err != nil {
		return nil, err
	}
	if err := requireDate(op, "date", in.Date); err != nil {
		return nil, err
	}
	actual, err := normalizeInterval(in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}

	e := &entity.TimeEntry{
		StaffID:   staffID,
		Date:      entity.DateOnly(in.Date),
		StartTime: actual.Start,
		EndTime:   actual.End,
		SiteID:    in.SiteID,
		Comment:   in.Comment,
		Approvals: s.initialApprovals(actor, staffID),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := requireSite(txCtx, op, s.sites, e.SiteID); err != nil {
			return err
		}
		plan, err := s.schedules.FindApproved(txCtx, staffID, e.Date)
		if err != nil {
			return fmt.Errorf("find approved plan: %w", err)
		}
		if e.Variance, err = derive.VarianceVsPlan(actual, planInterval(plan)); err != nil {
			return err
		}
		if e.SiteID == "" && plan != nil {
			e.SiteID = plan.SiteID
		}

		if err := s.entries.Create(txCtx, e); err != nil {
			return fmt.Errorf("create time entry: %w", err)
		}
		return s.audit.record(txCtx, actor, entity.TypeTimeEntry, e.ID, auditCreate, nil, e)
	})
	if err != nil {
		s.logger.Error("Failed to declare time", "error", err, "staff_id", staffID, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Time declared", "id", e.ID, "staff_id", staffID, "variance", e.Variance, "actor", actor.ID)
	return e, nil
}

// DeclareExpense records an expense with its lender and host shares
func (s *approvalServiceImpl) DeclareExpense(ctx context.Context, actor entity.Actor, in DeclareExpenseInput) (*entity.Expense, error) {
	const op = "declare_expense"

	staffID := ownStaffID(actor, in.StaffID)
	if err := s.authorizeDeclaration(op, actor, entity.TypeExpense, staffID); err != nil {
		return nil, err
	}
	if err := requireDate(op, "date", in.Date); err != nil {
		return nil, err
	}
	category := strings.ToUpper(strings.TrimSpace(in.Category))
	if category == "" {
		return nil, apperror.Validation(op, "category is required")
	}

	ratio := derive.EffectiveRatio(in.Allocation, in.Ratio)
	lender, host, err := derive.Ventilate(in.Amount, in.Allocation, ratio)
	if err != nil {
		return nil, err
	}

	x := &entity.Expense{
		StaffID:       staffID,
		Date:          entity.DateOnly(in.Date),
		Category:      category,
		Description:   in.Description,
		Amount:        in.Amount,
		AttachmentRef: in.AttachmentRef,
		Allocation:    in.Allocation,
		Ratio:         ratio,
		LenderShare:   lender,
		HostShare:     host,
		Approvals:     s.initialApprovals(actor, staffID),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.expenses.Create(txCtx, x); err != nil {
			return fmt.Errorf("create expense: %w", err)
		}
		return s.audit.record(txCtx, actor, entity.TypeExpense, x.ID, auditCreate, nil, x)
	})
	if err != nil {
		s.logger.Error("Failed to declare expense", "error", err, "staff_id", staffID, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Expense declared", "id", x.ID, "staff_id", staffID, "amount", x.Amount.String(), "actor", actor.ID)
	return x, nil
}

// GetTimeEntry returns one time entry
func (s *approvalServiceImpl) GetTimeEntry(ctx context.Context, actor entity.Actor, id string) (*entity.TimeEntry, error) {
	const op = "get_time_entry"

	if err := s.policy.Require(op, actor, entity.TypeTimeEntry, authz.ActionView); err != nil {
		return nil, err
	}
	e, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(op, actor, e.StaffID); err != nil {
		return nil, err
	}
	return e, nil
}

// GetExpense returns one expense
func (s *approvalServiceImpl) GetExpense(ctx context.Context, actor entity.Actor, id string) (*entity.Expense, error) {
	const op = "get_expense"

	if err := s.policy.Require(op, actor, entity.TypeExpense, authz.ActionView); err != nil {
		return nil, err
	}
	x, err := s.expenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(op, actor, x.StaffID); err != nil {
		return nil, err
	}
	return x, nil
}

// ListTimeEntries returns time entries; staff only see their own
func (s *approvalServiceImpl) ListTimeEntries(ctx context.Context, actor entity.Actor, filter port.EntryFilter) ([]*entity.TimeEntry, error) {
	if err := s.policy.Require("list_time_entries", actor, entity.TypeTimeEntry, authz.ActionView); err != nil {
		return nil, err
	}
	if actor.Role == entity.RoleStaff {
		filter.StaffID = actor.ID
	}
	return s.entries.List(ctx, filter)
}

// ListExpenses returns expenses; staff only see their own
func (s *approvalServiceImpl) ListExpenses(ctx context.Context, actor entity.Actor, filter port.EntryFilter) ([]*entity.Expense, error) {
	if err := s.policy.Require("list_expenses", actor, entity.TypeExpense, authz.ActionView); err != nil {
		return nil, err
	}
	if actor.Role == entity.RoleStaff {
		filter.StaffID = actor.ID
	}
	return s.expenses.List(ctx, filter)
}

// DecideTimeEntry decides one side of a time entry
func (s *approvalServiceImpl) DecideTimeEntry(ctx context.Context, actor entity.Actor, id string, side entity.Side, decision entity.Decision, comment string) (*entity.TimeEntry, error) {
	const op = "decide_time_entry"

	if err := s.policy.Require(op, actor, entity.TypeTimeEntry, authz.SideAction(side, decision)); err != nil {
		return nil, err
	}

	var updated *entity.TimeEntry
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		e, err := s.entries.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		d, err := workflow.DecideSide(txCtx, e.Approvals, side, decision, actor.ID, comment, s.now())
		if err != nil {
			return err
		}
		if err := s.entries.ApplySideDecision(txCtx, id, d); err != nil {
			return err
		}

		before := *e
		e.Approvals = d.Apply(e.Approvals)
		e.UpdatedAt = d.DecidedAt
		updated = e
		return s.audit.record(txCtx, actor, entity.TypeTimeEntry, id, string(authz.SideAction(side, decision)), before, e)
	})
	if err != nil {
		s.logger.Error("Failed to decide time entry", "error", err, "id", id, "side", side, "decision", decision, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Time entry decided", "id", id, "side", side, "status", updated.Approvals.Get(side).Status, "actor", actor.ID)
	s.publishDecision(ctx, entity.TypeTimeEntry, id, updated.StaffID, actor, side, decision, comment)
	return updated, nil
}

// DecideExpense decides one side of an expense
func (s *approvalServiceImpl) DecideExpense(ctx context.Context, actor entity.Actor, id string, side entity.Side, decision entity.Decision, comment string) (*entity.Expense, error) {
	const op = "decide_expense"

	if err := s.policy.Require(op, actor, entity.TypeExpense, authz.SideAction(side, decision)); err != nil {
		return nil, err
	}

	var updated *entity.Expense
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		x, err := s.expenses.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		d, err := workflow.DecideSide(txCtx, x.Approvals, side, decision, actor.ID, comment, s.now())
		if err != nil {
			return err
		}
		if err := s.expenses.ApplySideDecision(txCtx, id, d); err != nil {
			return err
		}

		before := *x
		x.Approvals = d.Apply(x.Approvals)
		x.UpdatedAt = d.DecidedAt
		updated = x
		return s.audit.record(txCtx, actor, entity.TypeExpense, id, string(authz.SideAction(side, decision)), before, x)
	})
	if err != nil {
		s.logger.Error("Failed to decide expense", "error", err, "id", id, "side", side, "decision", decision, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Expense decided", "id", id, "side", side, "status", updated.Approvals.Get(side).Status, "actor", actor.ID)
	s.publishDecision(ctx, entity.TypeExpense, id, updated.StaffID, actor, side, decision, comment)
	return updated, nil
}

func (s *approvalServiceImpl) publishDecision(ctx context.Context, t entity.Type, id, staffID string, actor entity.Actor, side entity.Side, decision entity.Decision, comment string) {
	publish(ctx, s.publisher, event.NewEvent(event.TypeEntryDecided, id, staffID, actor.ID, map[string]interface{}{
		event.KeyEntityType: string(t),
		event.KeySide:       string(side),
		event.KeyDecision:   string(decision),
		event.KeyComment:    comment,
	}))
}

// DeleteTimeEntry removes a time entry nobody has decided yet
func (s *approvalServiceImpl) DeleteTimeEntry(ctx context.Context, actor entity.Actor, id string) error {
	const op = "delete_time_entry"

	if err := s.policy.Require(op, actor, entity.TypeTimeEntry, authz.ActionDelete); err != nil {
		return err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		e, err := s.entries.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := authz.RequireOwner(op, actor, e.StaffID); err != nil {
			return err
		}
		if err := s.entries.Delete(txCtx, id); err != nil {
			return err
		}
		return s.audit.record(txCtx, actor, entity.TypeTimeEntry, id, auditDelete, e, nil)
	})
	if err != nil {
		s.logger.Error("Failed to delete time entry", "error", err, "id", id, "actor", actor.ID)
		return err
	}

	s.logger.Info("Time entry deleted", "id", id, "actor", actor.ID)
	return nil
}

// DeleteExpense removes an expense nobody has decided yet
func (s *approvalServiceImpl) DeleteExpense(ctx context.Context, actor entity.Actor, id string) error {
	const op = "delete_expense"

	if err := s.policy.Require(op, actor, entity.TypeExpense, authz.ActionDelete); err != nil {
		return err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		x, err := s.expenses.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := authz.RequireOwner(op, actor, x.StaffID); err != nil {
			return err
		}
		if err := s.expenses.Delete(txCtx, id); err != nil {
			return err
		}
		return s.audit.record(txCtx, actor, entity.TypeExpense, id, auditDelete, x, nil)
	})
	if err != nil {
		s.logger.Error("Failed to delete expense", "error", err, "id", id, "actor", actor.ID)
		return err
	}

	s.logger.Info("Expense deleted", "id", id, "actor", actor.ID)
	return nil
}
