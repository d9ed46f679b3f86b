package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/sqlite"
)

// SiteRepository implements port.SiteRepository
type SiteRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSiteRepository creates a new site repository
func NewSiteRepository(db *sql.DB, logger *zap.Logger) port.SiteRepository {
	return &SiteRepository{
		db:     db,
		logger: logger,
	}
}

const siteColumns = `id, name, address, contact_name, contact_email, contact_phone, created_at, updated_at`

// Create inserts a site; a duplicate name is a ConflictError
func (r *SiteRepository) Create(ctx context.Context, s *entity.Site) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	stamp(&s.CreatedAt, &s.UpdatedAt)

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO sites (`+siteColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Name, s.Address, s.ContactName, s.ContactEmail, s.ContactPhone, s.CreatedAt, s.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperror.Conflict("sites", "site %q already exists", s.Name)
	}
	if err != nil {
		r.logger.Error("Failed to create site", zap.String("name", s.Name), zap.Error(err))
		return fmt.Errorf("failed to create site: %w", err)
	}
	return nil
}

// GetByID retrieves a site by ID
func (r *SiteRepository) GetByID(ctx context.Context, id string) (*entity.Site, error) {
	row := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+siteColumns+` FROM sites WHERE id = ?`, id)
	s, err := scanSite(row)
	if err != nil {
		return nil, notFound(err, "sites", id)
	}
	return s, nil
}

// List returns all sites ordered by name
func (r *SiteRepository) List(ctx context.Context) ([]*entity.Site, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+siteColumns+` FROM sites ORDER BY name`)
	if err != nil {
		r.logger.Error("Failed to list sites", zap.Error(err))
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []*entity.Site
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, s)
	}
	return sites, rows.Err()
}

// Update rewrites the site fields
func (r *SiteRepository) Update(ctx context.Context, s *entity.Site) error {
	stamp(&s.CreatedAt, &s.UpdatedAt)

	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE sites
		SET name = ?, address = ?, contact_name = ?, contact_email = ?, contact_phone = ?, updated_at = ?
		WHERE id = ?
	`, s.Name, s.Address, s.ContactName, s.ContactEmail, s.ContactPhone, s.UpdatedAt, s.ID)
	if isUniqueViolation(err) {
		return apperror.Conflict("sites", "site %q already exists", s.Name)
	}
	if err != nil {
		r.logger.Error("Failed to update site", zap.String("id", s.ID), zap.Error(err))
		return fmt.Errorf("failed to update site: %w", err)
	}
	return checkAffected(ctx, exec, result, "sites", s.ID, "site %s not updated", s.ID)
}

// Delete removes the site unless a profile, proposal or time entry refers to it.
// A referenced site is a ConflictError.
func (r *SiteRepository) Delete(ctx context.Context, id string) error {
	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		DELETE FROM sites
		WHERE id = ?
		  AND NOT EXISTS (SELECT 1 FROM profiles WHERE site_id = ?)
		  AND NOT EXISTS (SELECT 1 FROM schedule_proposals WHERE site_id = ?)
		  AND NOT EXISTS (SELECT 1 FROM time_entries WHERE site_id = ?)
	`, id, id, id, id)
	if err != nil {
		r.logger.Error("Failed to delete site", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete site: %w", err)
	}
	return checkAffected(ctx, exec, result, "sites", id, "site %s is still referenced", id)
}

func scanSite(row rowScanner) (*entity.Site, error) {
	var s entity.Site
	if err := row.Scan(&s.ID, &s.Name, &s.Address, &s.ContactName, &s.ContactEmail, &s.ContactPhone, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}

var _ port.SiteRepository = (*SiteRepository)(nil)
