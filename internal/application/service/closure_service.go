package service

import (
	"context"
	"fmt"
	"path"

	"github.com/garyjia/shared-staff/internal/application/dispatcher"
	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/event"
	"github.com/garyjia/shared-staff/internal/domain/workflow"
)

// ClosureService manages monthly closures
type ClosureService interface {
	// GetOrCreate returns the closure of (month, staffID), opening it if absent
	GetOrCreate(ctx context.Context, actor entity.Actor, staffID string, month entity.Month) (*entity.MonthlyClosure, error)

	// Sign applies the actor's signature according to its role
	Sign(ctx context.Context, actor entity.Actor, id string) (*entity.MonthlyClosure, error)

	Get(ctx context.Context, actor entity.Actor, id string) (*entity.MonthlyClosure, error)
	List(ctx context.Context, actor entity.Actor, filter port.ClosureFilter) ([]*entity.MonthlyClosure, error)

	// Report returns the exported workbook of a closed month and its file name
	Report(ctx context.Context, actor entity.Actor, id string) ([]byte, string, error)
}

type closureServiceImpl struct {
	closures  port.ClosureRepository
	reports   port.WeeklyReportRepository
	profiles  port.ProfileRepository
	loader    *MonthLoader
	generator port.ReportGenerator
	storage   port.FileStorage
	txManager port.TransactionManager
	audit     auditor
	policy    *authz.Policy
	publisher dispatcher.Publisher
	now       Clock
	logger    Logger
}

// NewClosureService creates a new ClosureService.
// generator and storage may be nil, in which case no workbook is produced.
func NewClosureService(
	closures port.ClosureRepository,
	reports port.WeeklyReportRepository,
	profiles port.ProfileRepository,
	loader *MonthLoader,
	generator port.ReportGenerator,
	storage port.FileStorage,
	auditRepo port.AuditRepository,
	txManager port.TransactionManager,
	policy *authz.Policy,
	publisher dispatcher.Publisher,
	now Clock,
	logger Logger,
) ClosureService {
	return &closureServiceImpl{
		closures:  closures,
		reports:   reports,
		profiles:  profiles,
		loader:    loader,
		generator: generator,
		storage:   storage,
		txManager: txManager,
		audit:     auditor{repo: auditRepo, now: now},
		policy:    policy,
		publisher: publisher,
		now:       now,
		logger:    logger,
	}
}

// GetOrCreate opens the closure atomically; concurrent callers share one row
func (s *closureServiceImpl) GetOrCreate(ctx context.Context, actor entity.Actor, staffID string, month entity.Month) (*entity.MonthlyClosure, error) {
	const op = "open_closure"

	staffID = ownStaffID(actor, staffID)
	if err := s.policy.Require(op, actor, entity.TypeMonthlyClosure, authz.ActionOpen); err != nil {
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

	var (
		closure *entity.MonthlyClosure
		created bool
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		closure, created, err = s.closures.GetOrCreate(txCtx, month, staffID)
		if err != nil || !created {
			return err
		}
		return s.audit.record(txCtx, actor, entity.TypeMonthlyClosure, closure.ID, auditCreate, nil, closure)
	})
	if err != nil {
		s.logger.Error("Failed to open closure", "error", err, "staff_id", staffID, "month", month.String())
		return nil, err
	}

	if created {
		s.logger.Info("Closure opened", "id", closure.ID, "staff_id", staffID, "month", month.String(), "actor", actor.ID)
	}
	return closure, nil
}

// Sign sets the actor's flag. The closing signature also locks the staff
// member's weekly reports intersecting the month.
func (s *closureServiceImpl) Sign(ctx context.Context, actor entity.Actor, id string) (*entity.MonthlyClosure, error) {
	const op = "sign_closure"

	action := authz.SignAction(actor.Role)
	if action == "" {
		return nil, apperror.Authorization(op, "role %q does not sign closures", actor.Role)
	}
	if err := s.policy.Require(op, actor, entity.TypeMonthlyClosure, action); err != nil {
		return nil, err
	}

	var (
		updated *entity.MonthlyClosure
		locked  int64
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		c, err := s.closures.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := authz.RequireOwner(op, actor, c.StaffID); err != nil {
			return err
		}

		sig, err := workflow.Sign(txCtx, c, actor.Role, s.now())
		if err != nil {
			return err
		}
		if err := s.closures.ApplySignature(txCtx, id, sig); err != nil {
			return err
		}

		before := *c
		c.Signatures = sig.Signatures
		c.Status = sig.Status
		if sig.Closes() {
			c.ClosedAt = sig.ClosedAt
			locked, err = s.reports.LockIntersecting(txCtx, c.StaffID, c.Month.Start(), c.Month.End())
			if err != nil {
				return fmt.Errorf("lock weekly reports: %w", err)
			}
		}
		updated = c
		return s.audit.record(txCtx, actor, entity.TypeMonthlyClosure, id, string(action), before, c)
	})
	if err != nil {
		s.logger.Error("Failed to sign closure", "error", err, "id", id, "role", actor.Role, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Closure signed", "id", id, "role", actor.Role, "status", updated.Status, "actor", actor.ID)
	publish(ctx, s.publisher, event.NewEvent(event.TypeClosureSigned, id, updated.StaffID, actor.ID, map[string]interface{}{
		event.KeyRole:   string(actor.Role),
		event.KeyStatus: string(updated.Status),
		event.KeyMonth:  updated.Month.String(),
	}))

	if updated.Status != entity.ClosureClosed {
		return updated, nil
	}

	s.logger.Info("Closure closed", "id", id, "month", updated.Month.String(), "locked_reports", locked)
	if ref, err := s.export(ctx, updated); err != nil {
		// The closure stands; the workbook can be produced again on download.
		s.logger.Error("Failed to export closed month", "error", err, "id", id)
	} else if ref != "" {
		updated.ReportRef = ref
	}
	publish(ctx, s.publisher, event.NewEvent(event.TypeClosureClosed, id, updated.StaffID, actor.ID, map[string]interface{}{
		event.KeyMonth:     updated.Month.String(),
		event.KeyReportRef: updated.ReportRef,
	}))
	return updated, nil
}

// export renders the month workbook, stores it and records its reference
func (s *closureServiceImpl) export(ctx context.Context, c *entity.MonthlyClosure) (string, error) {
	if s.generator == nil || s.storage == nil {
		return "", nil
	}

	data, err := s.loader.Load(ctx, c.StaffID, c.Month)
	if err != nil {
		return "", err
	}
	data.Closure = c
	if staff, err := s.profiles.GetByID(ctx, c.StaffID); err == nil {
		data.Staff = staff
	} else if !apperror.IsNotFound(err) {
		return "", err
	}

	content, err := s.generator.Generate(ctx, data)
	if err != nil {
		return "", fmt.Errorf("generate report: %w", err)
	}

	ref := path.Join("closures", c.Month.String(), c.StaffID+s.generator.Extension())
	if err := s.storage.Save(ctx, ref, content); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	if err := s.closures.SetReportRef(ctx, c.ID, ref); err != nil {
		return "", err
	}

	s.logger.Info("Closure report stored", "id", c.ID, "ref", ref, "size", len(content))
	return ref, nil
}

// Get returns one closure
func (s *closureServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.MonthlyClosure, error) {
	const op = "get_closure"

	if err := s.policy.Require(op, actor, entity.TypeMonthlyClosure, authz.ActionView); err != nil {
		return nil, err
	}
	c, err := s.closures.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireOwner(op, actor, c.StaffID); err != nil {
		return nil, err
	}
	return c, nil
}

// List returns closures; staff only see their own
func (s *closureServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.ClosureFilter) ([]*entity.MonthlyClosure, error) {
	if err := s.policy.Require("list_closures", actor, entity.TypeMonthlyClosure, authz.ActionView); err != nil {
		return nil, err
	}
	if actor.Role == entity.RoleStaff {
		filter.StaffID = actor.ID
	}
	return s.closures.List(ctx, filter)
}

// Report reads the stored workbook, producing it first if a previous export failed
func (s *closureServiceImpl) Report(ctx context.Context, actor entity.Actor, id string) ([]byte, string, error) {
	const op = "closure_report"

	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, "", err
	}
	if c.Status != entity.ClosureClosed {
		return nil, "", apperror.Conflict(op, "closure %s is not closed", id)
	}
	if s.generator == nil || s.storage == nil {
		return nil, "", apperror.NotFound(op, "report export is not configured")
	}

	ref := c.ReportRef
	if ref == "" || !s.storage.Exists(ctx, ref) {
		if ref, err = s.export(ctx, c); err != nil {
			s.logger.Error("Failed to export closed month", "error", err, "id", id)
			return nil, "", err
		}
	}

	content, err := s.storage.Read(ctx, ref)
	if err != nil {
		return nil, "", fmt.Errorf("read report: %w", err)
	}
	return content, path.Base(ref), nil
}
