package service

import (
	"context"
	"strings"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/pkg/utils"
)

// SiteService manages the directory of host sites
type SiteService interface {
	Create(ctx context.Context, actor entity.Actor, site *entity.Site) (*entity.Site, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.Site, error)
	List(ctx context.Context, actor entity.Actor) ([]*entity.Site, error)
	Update(ctx context.Context, actor entity.Actor, site *entity.Site) (*entity.Site, error)

	// Delete fails with a ConflictError while any record refers to the site
	Delete(ctx context.Context, actor entity.Actor, id string) error
}

type siteServiceImpl struct {
	repo      port.SiteRepository
	audit     auditor
	txManager port.TransactionManager
	policy    *authz.Policy
	logger    Logger
}

// NewSiteService creates a new SiteService
func NewSiteService(repo port.SiteRepository, auditRepo port.AuditRepository, txManager port.TransactionManager, policy *authz.Policy, now Clock, logger Logger) SiteService {
	return &siteServiceImpl{
		repo:      repo,
		audit:     auditor{repo: auditRepo, now: now},
		txManager: txManager,
		policy:    policy,
		logger:    logger,
	}
}

// normalizeSite trims the fields and checks the name and contact email
func normalizeSite(op string, site *entity.Site) error {
	site.Name = strings.TrimSpace(utils.SanitizeString(site.Name))
	site.Address = strings.TrimSpace(site.Address)
	site.ContactName = strings.TrimSpace(site.ContactName)
	site.ContactEmail = strings.ToLower(strings.TrimSpace(site.ContactEmail))
	site.ContactPhone = strings.TrimSpace(site.ContactPhone)

	if site.Name == "" {
		return apperror.Validation(op, "name is required")
	}
	if site.ContactEmail != "" {
		if err := utils.ValidateEmail(site.ContactEmail); err != nil {
			return apperror.Validation(op, "%v", err)
		}
	}
	return nil
}

// Create adds a site
func (s *siteServiceImpl) Create(ctx context.Context, actor entity.Actor, site *entity.Site) (*entity.Site, error) {
	const op = "create_site"

	if err := s.policy.Require(op, actor, entity.TypeSite, authz.ActionCreate); err != nil {
		return nil, err
	}
	if err := normalizeSite(op, site); err != nil {
		return nil, err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.repo.Create(txCtx, site); err != nil {
			return err
		}
		return s.audit.record(txCtx, actor, entity.TypeSite, site.ID, auditCreate, nil, site)
	})
	if err != nil {
		s.logger.Error("Failed to create site", "error", err, "name", site.Name)
		return nil, err
	}

	s.logger.Info("Site created", "id", site.ID, "name", site.Name, "actor", actor.ID)
	return site, nil
}

// Get returns one site
func (s *siteServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.Site, error) {
	if err := s.policy.Require("get_site", actor, entity.TypeSite, authz.ActionView); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// List returns every site ordered by name
func (s *siteServiceImpl) List(ctx context.Context, actor entity.Actor) ([]*entity.Site, error) {
	if err := s.policy.Require("list_sites", actor, entity.TypeSite, authz.ActionView); err != nil {
		return nil, err
	}
	return s.repo.List(ctx)
}

// Update rewrites the site fields
func (s *siteServiceImpl) Update(ctx context.Context, actor entity.Actor, site *entity.Site) (*entity.Site, error) {
	const op = "update_site"

	if err := s.policy.Require(op, actor, entity.TypeSite, authz.ActionUpdate); err != nil {
		return nil, err
	}
	if err := normalizeSite(op, site); err != nil {
		return nil, err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		before, err := s.repo.GetByID(txCtx, site.ID)
		if err != nil {
			return err
		}
		site.CreatedAt = before.CreatedAt
		if err := s.repo.Update(txCtx, site); err != nil {
			return err
		}
		return s.audit.record(txCtx, actor, entity.TypeSite, site.ID, auditUpdate, before, site)
	})
	if err != nil {
		s.logger.Error("Failed to update site", "error", err, "id", site.ID)
		return nil, err
	}

	s.logger.Info("Site updated", "id", site.ID, "actor", actor.ID)
	return site, nil
}

// Delete removes a site no record refers to
func (s *siteServiceImpl) Delete(ctx context.Context, actor entity.Actor, id string) error {
	const op = "delete_site"

	if err := s.policy.Require(op, actor, entity.TypeSite, authz.ActionDelete); err != nil {
		return err
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		before, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.repo.Delete(txCtx, id); err != nil {
			return err
		}
		return s.audit.record(txCtx, actor, entity.TypeSite, id, auditDelete, before, nil)
	})
	if err != nil {
		s.logger.Error("Failed to delete site", "error", err, "id", id)
		return err
	}

	s.logger.Info("Site deleted", "id", id, "actor", actor.ID)
	return nil
}
