package service

import (
	"context"
	"strings"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/pkg/utils"
)

// ProfileService manages the staff directory. The lender administers it.
type ProfileService interface {
	Create(ctx context.Context, actor entity.Actor, p *entity.Profile) (*entity.Profile, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.Profile, error)
	List(ctx context.Context, actor entity.Actor, role entity.Role) ([]*entity.Profile, error)
}

type profileServiceImpl struct {
	repo      port.ProfileRepository
	sites     port.SiteRepository
	audit     auditor
	txManager port.TransactionManager
	logger    Logger
}

// NewProfileService creates a new ProfileService
func NewProfileService(repo port.ProfileRepository, sites port.SiteRepository, auditRepo port.AuditRepository, txManager port.TransactionManager, now Clock, logger Logger) ProfileService {
	return &profileServiceImpl{
		repo:      repo,
		sites:     sites,
		audit:     auditor{repo: auditRepo, now: now},
		txManager: txManager,
		logger:    logger,
	}
}

// Create adds a profile
func (s *profileServiceImpl) Create(ctx context.Context, actor entity.Actor, p *entity.Profile) (*entity.Profile, error) {
	const op = "create_profile"

	if actor.ID == "" || actor.Role != entity.RoleLender {
		return nil, apperror.Authorization(op, "only the lender manages profiles")
	}
	p.Email = strings.ToLower(strings.TrimSpace(p.Email))
	if err := utils.ValidateEmail(p.Email); err != nil {
		return nil, apperror.Validation(op, "%v", err)
	}
	if !p.Role.IsValid() {
		return nil, apperror.Validation(op, "invalid role %q", p.Role)
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := requireSite(txCtx, op, s.sites, p.SiteID); err != nil {
			return err
		}
		if err := s.repo.Create(txCtx, p); err != nil {
			return err
		}
		return s.audit.record(txCtx, actor, entity.TypeProfile, p.ID, auditCreate, nil, p)
	})
	if err != nil {
		s.logger.Error("Failed to create profile", "error", err, "email", p.Email)
		return nil, err
	}

	s.logger.Info("Profile created", "id", p.ID, "role", p.Role, "actor", actor.ID)
	return p, nil
}

// Get returns a profile; staff may only read their own
func (s *profileServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.Profile, error) {
	if actor.ID == "" {
		return nil, apperror.Authorization("get_profile", "missing actor identity")
	}
	if actor.Role == entity.RoleStaff && !actor.Is(id) {
		return nil, apperror.Authorization("get_profile", "staff may only read their own profile")
	}
	return s.repo.GetByID(ctx, id)
}

// List returns profiles of a role, or all when role is empty. Staff may not list.
func (s *profileServiceImpl) List(ctx context.Context, actor entity.Actor, role entity.Role) ([]*entity.Profile, error) {
	if actor.ID == "" || actor.Role == entity.RoleStaff {
		return nil, apperror.Authorization("list_profiles", "role %q may not list profiles", actor.Role)
	}
	return s.repo.List(ctx, role)
}
