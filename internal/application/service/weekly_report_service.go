package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/shared-staff/internal/application/dispatcher"
	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/event"
	"github.com/garyjia/shared-staff/internal/domain/workflow"
)

// ReportContent is the editable part of a weekly report
type ReportContent struct {
	HostContent   string
	HostHours     float64
	LenderContent string
	LenderHours   float64
	Comment       string
}

// SubmitReportInput describes a weekly report submission.
// A zero WeekEnd is derived from WeekStart.
type SubmitReportInput struct {
	StaffID   string
	WeekStart time.Time
	WeekEnd   time.Time
	ReportContent
}

// WeeklyReportService manages weekly reports
type WeeklyReportService interface {
	Submit(ctx context.Context, actor entity.Actor, in SubmitReportInput) (*entity.WeeklyReport, error)
	Update(ctx context.Context, actor entity.Actor, id string, content ReportContent) (*entity.WeeklyReport, error)
	Delete(ctx context.Context, actor entity.Actor, id string) error
	Decide(ctx context.Context, actor entity.Actor, id string, side entity.Side, decision entity.Decision, comment string) (*entity.WeeklyReport, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.WeeklyReport, error)
	List(ctx context.Context, actor entity.Actor, filter port.EntryFilter) ([]*entity.WeeklyReport, error)
	Alerts(ctx context.Context, actor entity.Actor, id string) ([]*entity.ConsistencyAlert, error)
}

type weeklyReportServiceImpl struct {
	reports   port.WeeklyReportRepository
	alerts    port.AlertRepository
	txManager port.TransactionManager
	audit     auditor
	policy    *authz.Policy
	publisher dispatcher.Publisher
	now       Clock
	logger    Logger
}

// NewWeeklyReportService creates a new WeeklyReportService
func NewWeeklyReportService(
	reports port.WeeklyReportRepository,
	alerts port.AlertRepository,
	auditRepo port.AuditRepository,
	txManager port.TransactionManager,
	policy *authz.Policy,
	publisher dispatcher.Publisher,
	now Clock,
	logger Logger,
) WeeklyReportService {
	return &weeklyReportServiceImpl{
		reports:   reports,
		alerts:    alerts,
		txManager: txManager,
		audit:     auditor{repo: auditRepo, now: now},
		policy:    policy,
		publisher: publisher,
		now:       now,
		logger:    logger,
	}
}

func validateContent(op string, c ReportContent) error {
	if c.HostHours < 0 || c.LenderHours < 0 {
		return apperror.Validation(op, "declared hours must not be negative")
	}
	return nil
}

// Submit creates a report for a Monday-to-Sunday week
func (s *weeklyReportServiceImpl) Submit(ctx context.Context, actor entity.Actor, in SubmitReportInput) (*entity.WeeklyReport, error) {
	const op = "submit_report"

	staffID := ownStaffID(actor, in.StaffID)
	if err := s.policy.Require(op, actor, entity.TypeWeeklyReport, authz.ActionSubmit); err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(op, actor, staffID); err != nil {
		return nil, err
	}
	if err := requireDate(op, "week_start", in.WeekStart); err != nil {
		return nil, err
	}

	start := entity.DateOnly(in.WeekStart)
	if start.Weekday() != time.Monday {
		return nil, apperror.Validation(op, "week_start %s is not a Monday", start.Format(entity.DateLayout))
	}
	end := entity.WeekEndFor(start)
	if !in.WeekEnd.IsZero() && !entity.DateOnly(in.WeekEnd).Equal(end) {
		return nil, apperror.Validation(op, "week_end must be %s", end.Format(entity.DateLayout))
	}
	if err := validateContent(op, in.ReportContent); err != nil {
		return nil, err
	}

	rep := &entity.WeeklyReport{
		StaffID:       staffID,
		WeekStart:     start,
		WeekEnd:       end,
		HostContent:   in.HostContent,
		HostHours:     in.HostHours,
		LenderContent: in.LenderContent,
		LenderHours:   in.LenderHours,
		Comment:       in.Comment,
		Approvals:     entity.PendingApprovals(),
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.reports.Create(txCtx, rep); err != nil {
			return err
		}
		return s.audit.record(txCtx, actor, entity.TypeWeeklyReport, rep.ID, auditCreate, nil, rep)
	})
	if err != nil {
		s.logger.Error("Failed to submit weekly report", "error", err, "staff_id", staffID, "week_start", start.Format(entity.DateLayout))
		return nil, err
	}

	s.logger.Info("Weekly report submitted", "id", rep.ID, "staff_id", staffID, "week_start", start.Format(entity.DateLayout))
	publish(ctx, s.publisher, event.NewEvent(event.TypeReportSubmitted, rep.ID, staffID, actor.ID, map[string]interface{}{
		event.KeyWeek: start.Format(entity.DateLayout),
	}))
	return rep, nil
}

// loadOwned fetches a report the actor owns
func (s *weeklyReportServiceImpl) loadOwned(ctx context.Context, op string, actor entity.Actor, id string) (*entity.WeeklyReport, error) {
	rep, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(op, actor, rep.StaffID); err != nil {
		return nil, err
	}
	return rep, nil
}

// Update rewrites the content while the report is unlocked and undecided
func (s *weeklyReportServiceImpl) Update(ctx context.Context, actor entity.Actor, id string, content ReportContent) (*entity.WeeklyReport, error) {
	const op = "update_report"

	if err := s.policy.Require(op, actor, entity.TypeWeeklyReport, authz.ActionUpdate); err != nil {
		return nil, err
	}
	if err := validateContent(op, content); err != nil {
		return nil, err
	}

	var updated *entity.WeeklyReport
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		rep, err := s.loadOwned(txCtx, op, actor, id)
		if err != nil {
			return err
		}
		if !rep.Editable() {
			return apperror.Conflict(op, "weekly report %s is locked or already decided", id)
		}

		before := *rep
		rep.HostContent = content.HostContent
		rep.HostHours = content.HostHours
		rep.LenderContent = content.LenderContent
		rep.LenderHours = content.LenderHours
		rep.Comment = content.Comment
		if err := s.reports.Update(txCtx, rep); err != nil {
			return err
		}
		updated = rep
		return s.audit.record(txCtx, actor, entity.TypeWeeklyReport, id, auditUpdate, before, rep)
	})
	if err != nil {
		s.logger.Error("Failed to update weekly report", "error", err, "id", id, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Weekly report updated", "id", id, "actor", actor.ID)
	return updated, nil
}

// Delete removes a report while it is unlocked and undecided
func (s *weeklyReportServiceImpl) Delete(ctx context.Context, actor entity.Actor, id string) error {
	const op = "delete_report"

	if err := s.policy.Require(op, actor, entity.TypeWeeklyReport, authz.ActionDelete); err != nil {
		return err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		rep, err := s.loadOwned(txCtx, op, actor, id)
		if err != nil {
			return err
		}
		if err := s.reports.Delete(txCtx, id); err != nil {
			return err
		}
		return s.audit.record(txCtx, actor, entity.TypeWeeklyReport, id, auditDelete, rep, nil)
	})
	if err != nil {
		s.logger.Error("Failed to delete weekly report", "error", err, "id", id, "actor", actor.ID)
		return err
	}

	s.logger.Info("Weekly report deleted", "id", id, "actor", actor.ID)
	return nil
}

// Decide records the host or lender decision on a report
func (s *weeklyReportServiceImpl) Decide(ctx context.Context, actor entity.Actor, id string, side entity.Side, decision entity.Decision, comment string) (*entity.WeeklyReport, error) {
	const op = "decide_report"

	if side != entity.SideHost && side != entity.SideLender {
		return nil, apperror.Validation(op, "unknown side %q", side)
	}
	if err := s.policy.Require(op, actor, entity.TypeWeeklyReport, authz.DecideAction(side)); err != nil {
		return nil, err
	}

	var updated *entity.WeeklyReport
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		rep, err := s.reports.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if rep.Locked {
			return apperror.Conflict(op, "weekly report %s is locked", id)
		}
		d, err := workflow.DecideSide(txCtx, rep.Approvals, side, decision, actor.ID, comment, s.now())
		if err != nil {
			return err
		}
		if err := s.reports.ApplySideDecision(txCtx, id, d); err != nil {
			return err
		}

		before := *rep
		rep.Approvals = d.Apply(rep.Approvals)
		rep.UpdatedAt = d.DecidedAt
		updated = rep
		return s.audit.record(txCtx, actor, entity.TypeWeeklyReport, id, string(authz.DecideAction(side)), before, rep)
	})
	if err != nil {
		s.logger.Error("Failed to decide weekly report", "error", err, "id", id, "side", side, "actor", actor.ID)
		return nil, err
	}

	status := updated.Approvals.Get(side).Status
	s.logger.Info("Weekly report decided", "id", id, "side", side, "status", status, "actor", actor.ID)
	publish(ctx, s.publisher, event.NewEvent(event.TypeReportDecided, id, updated.StaffID, actor.ID, map[string]interface{}{
		event.KeySide:     string(side),
		event.KeyDecision: string(decision),
		event.KeyStatus:   string(status),
		event.KeyComment:  comment,
		event.KeyWeek:     updated.WeekStart.Format(entity.DateLayout),
	}))
	return updated, nil
}

// Get returns one report
func (s *weeklyReportServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.WeeklyReport, error) {
	const op = "get_report"

	if err := s.policy.Require(op, actor, entity.TypeWeeklyReport, authz.ActionView); err != nil {
		return nil, err
	}
	return s.loadOwned(ctx, op, actor, id)
}

// List returns reports whose week intersects the filter range; staff only see their own
func (s *weeklyReportServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.EntryFilter) ([]*entity.WeeklyReport, error) {
	if err := s.policy.Require("list_reports", actor, entity.TypeWeeklyReport, authz.ActionView); err != nil {
		return nil, err
	}
	if actor.Role == entity.RoleStaff {
		filter.StaffID = actor.ID
	}
	return s.reports.List(ctx, filter)
}

// Alerts lists the consistency alerts raised against a report
func (s *weeklyReportServiceImpl) Alerts(ctx context.Context, actor entity.Actor, id string) ([]*entity.ConsistencyAlert, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	alerts, err := s.alerts.ListByReport(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	return alerts, nil
}
