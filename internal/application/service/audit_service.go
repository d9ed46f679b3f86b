package service

import (
	"context"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

const defaultAuditLimit = 100

// AuditService exposes the audit log
type AuditService interface {
	List(ctx context.Context, actor entity.Actor, filter port.AuditFilter) ([]*entity.AuditEntry, error)
}

type auditServiceImpl struct {
	repo   port.AuditRepository
	logger Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo port.AuditRepository, logger Logger) AuditService {
	return &auditServiceImpl{repo: repo, logger: logger}
}

// List returns audit entries, newest first. Only the lender and accounting read the log.
func (s *auditServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.AuditFilter) ([]*entity.AuditEntry, error) {
	if actor.ID == "" || (actor.Role != entity.RoleLender && actor.Role != entity.RoleAccounting) {
		return nil, apperror.Authorization("list_audit", "role %q may not read the audit log", actor.Role)
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultAuditLimit
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list audit entries", "error", err)
		return nil, err
	}
	return entries, nil
}
