package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/shared-staff/internal/application/dispatcher"
	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/domain/derive"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/event"
	"github.com/garyjia/shared-staff/internal/domain/workflow"
)

// ProposeInput describes a planned slot
type ProposeInput struct {
	StaffID   string
	Date      time.Time
	StartTime entity.TimeOfDay
	EndTime   entity.TimeOfDay
	SiteID    string
}

// ScheduleService manages schedule proposals
type ScheduleService interface {
	Propose(ctx context.Context, actor entity.Actor, in ProposeInput) (*entity.ScheduleProposal, error)
	Decide(ctx context.Context, actor entity.Actor, id string, decision entity.Decision, comment string) (*entity.ScheduleProposal, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.ScheduleProposal, error)
	List(ctx context.Context, actor entity.Actor, filter port.ProposalFilter) ([]*entity.ScheduleProposal, error)

	// ApprovedFor returns the approved plan of a staff member on a date, or nil
	ApprovedFor(ctx context.Context, staffID string, date time.Time) (*entity.ScheduleProposal, error)

	// ExportCalendar renders the approved slots of a staff member in [from, to]
	ExportCalendar(ctx context.Context, actor entity.Actor, staffID string, from, to time.Time) ([]byte, error)
}

type scheduleServiceImpl struct {
	proposals port.ScheduleProposalRepository
	profiles  port.ProfileRepository
	sites     port.SiteRepository
	calendar  port.CalendarExporter
	txManager port.TransactionManager
	audit     auditor
	policy    *authz.Policy
	publisher dispatcher.Publisher
	now       Clock
	logger    Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	proposals port.ScheduleProposalRepository,
	profiles port.ProfileRepository,
	sites port.SiteRepository,
	auditRepo port.AuditRepository,
	calendar port.CalendarExporter,
	txManager port.TransactionManager,
	policy *authz.Policy,
	publisher dispatcher.Publisher,
	now Clock,
	logger Logger,
) ScheduleService {
	return &scheduleServiceImpl{
		proposals: proposals,
		profiles:  profiles,
		sites:     sites,
		calendar:  calendar,
		txManager: txManager,
		audit:     auditor{repo: auditRepo, now: now},
		policy:    policy,
		publisher: publisher,
		now:       now,
		logger:    logger,
	}
}

// Propose creates a slot in the proposed state
func (s *scheduleServiceImpl) Propose(ctx context.Context, actor entity.Actor, in ProposeInput) (*entity.ScheduleProposal, error) {
	const op = "propose_schedule"

	if err := s.policy.Require(op, actor, entity.TypeScheduleProposal, authz.ActionCreate); err != nil {
		return nil, err
	}
	if in.StaffID == "" {
		return nil, apperror.Validation(op, "staff_id is required")
	}
	if err := requireDate(op, "date", in.Date); err != nil {
		return nil, err
	}
	interval, err := normalizeInterval(in.StartTime, in.EndTime)
	if err != nil {
		return nil, err
	}

	now := s.now()
	p := &entity.ScheduleProposal{
		StaffID:    in.StaffID,
		Date:       entity.DateOnly(in.Date),
		StartTime:  interval.Start,
		EndTime:    interval.End,
		SiteID:     in.SiteID,
		Status:     entity.ProposalProposed,
		ProposedBy: actor.ID,
		History: entity.NewScheduleHistory(entity.ScheduleEvent{
			Kind:    entity.ScheduleEventProposed,
			ActorID: actor.ID,
			At:      now,
		}),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := requireSite(txCtx, op, s.sites, p.SiteID); err != nil {
			return err
		}
		if err := s.proposals.Create(txCtx, p); err != nil {
			return fmt.Errorf("create proposal: %w", err)
		}
		return s.audit.record(txCtx, actor, entity.TypeScheduleProposal, p.ID, auditCreate, nil, p)
	})
	if err != nil {
		s.logger.Error("Failed to propose schedule", "error", err, "staff_id", in.StaffID, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Schedule proposed", "id", p.ID, "staff_id", p.StaffID, "date", p.Date.Format(entity.DateLayout), "actor", actor.ID)
	return p, nil
}

// Decide approves or rejects a proposed slot and appends the decision to its history
func (s *scheduleServiceImpl) Decide(ctx context.Context, actor entity.Actor, id string, decision entity.Decision, comment string) (*entity.ScheduleProposal, error) {
	const op = "decide_schedule"

	action := authz.ActionApprove
	if decision == entity.DecisionReject {
		action = authz.ActionReject
	}
	if err := s.policy.Require(op, actor, entity.TypeScheduleProposal, action); err != nil {
		return nil, err
	}

	var updated *entity.ScheduleProposal
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		p, err := s.proposals.GetByID(txCtx, id)
		if err != nil {
			return err
		}

		d, err := workflow.DecideProposal(txCtx, p, decision, actor.ID, comment, s.now())
		if err != nil {
			return err
		}

		history := p.History.Append(d.Event)
		if err := s.proposals.ApplyDecision(txCtx, id, d, history); err != nil {
			return err
		}

		before := *p
		validatedAt := d.ValidatedAt
		p.Status = d.Status
		p.ValidatedBy = d.ValidatedBy
		p.ValidatedAt = &validatedAt
		p.Comment = d.Comment
		p.History = history
		updated = p

		return s.audit.record(txCtx, actor, entity.TypeScheduleProposal, id, string(decision), before, p)
	})
	if err != nil {
		s.logger.Error("Failed to decide schedule", "error", err, "id", id, "decision", decision, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Schedule decided", "id", id, "status", updated.Status, "actor", actor.ID)
	publish(ctx, s.publisher, event.NewEvent(event.TypeProposalDecided, id, updated.StaffID, actor.ID, map[string]interface{}{
		event.KeyDecision: string(decision),
		event.KeyStatus:   string(updated.Status),
		event.KeyComment:  comment,
	}))
	return updated, nil
}

// Get returns one proposal
func (s *scheduleServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.ScheduleProposal, error) {
	const op = "get_schedule"

	if err := s.policy.Require(op, actor, entity.TypeScheduleProposal, authz.ActionView); err != nil {
		return nil, err
	}
	p, err := s.proposals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(op, actor, p.StaffID); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns proposals; staff only see their own
func (s *scheduleServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.ProposalFilter) ([]*entity.ScheduleProposal, error) {
	if err := s.policy.Require("list_schedule", actor, entity.TypeScheduleProposal, authz.ActionView); err != nil {
		return nil, err
	}
	if actor.Role == entity.RoleStaff {
		filter.StaffID = actor.ID
	}
	proposals, err := s.proposals.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list proposals", "error", err)
		return nil, err
	}
	return proposals, nil
}

// ApprovedFor returns the approved plan for the staff member on the date
func (s *scheduleServiceImpl) ApprovedFor(ctx context.Context, staffID string, date time.Time) (*entity.ScheduleProposal, error) {
	return s.proposals.FindApproved(ctx, staffID, entity.DateOnly(date))
}

// ExportCalendar renders the approved slots as a calendar document
func (s *scheduleServiceImpl) ExportCalendar(ctx context.Context, actor entity.Actor, staffID string, from, to time.Time) ([]byte, error) {
	const op = "export_calendar"

	if s.calendar == nil {
		return nil, apperror.Validation(op, "calendar export is not configured")
	}
	staffID = ownStaffID(actor, staffID)
	if err := s.policy.Require(op, actor, entity.TypeScheduleProposal, authz.ActionView); err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(op, actor, staffID); err != nil {
		return nil, err
	}

	staff, err := s.profiles.GetByID(ctx, staffID)
	if err != nil {
		return nil, err
	}
	slots, err := s.proposals.List(ctx, port.ProposalFilter{
		StaffID: staffID,
		Status:  entity.ProposalApproved,
		From:    from,
		To:      to,
	})
	if err != nil {
		return nil, err
	}

	data, err := s.calendar.Export(staff, slots)
	if err != nil {
		s.logger.Error("Failed to export calendar", "error", err, "staff_id", staffID)
		return nil, fmt.Errorf("export calendar: %w", err)
	}
	s.logger.Info("Calendar exported", "staff_id", staffID, "slots", len(slots))
	return data, nil
}

// planInterval converts an approved slot into an interval, nil when absent
func planInterval(p *entity.ScheduleProposal) *derive.Interval {
	if p == nil {
		return nil
	}
	return &derive.Interval{Start: p.StartTime, End: p.EndTime}
}
