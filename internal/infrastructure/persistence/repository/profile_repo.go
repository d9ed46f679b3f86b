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

// ProfileRepository implements port.ProfileRepository
type ProfileRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(db *sql.DB, logger *zap.Logger) port.ProfileRepository {
	return &ProfileRepository{
		db:     db,
		logger: logger,
	}
}

const profileColumns = `id, email, first_name, last_name, role, site_id, created_at, updated_at`

// Create inserts a profile; a duplicate email is a ConflictError
func (r *ProfileRepository) Create(ctx context.Context, p *entity.Profile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	stamp(&p.CreatedAt, &p.UpdatedAt)

	query := `INSERT INTO profiles (` + profileColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.Email, p.FirstName, p.LastName, p.Role, p.SiteID, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperror.Conflict("profiles", "profile with email %s already exists", p.Email)
	}
	if err != nil {
		r.logger.Error("Failed to create profile", zap.String("email", p.Email), zap.Error(err))
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*entity.Profile, error) {
	row := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if err != nil {
		return nil, notFound(err, "profiles", id)
	}
	return p, nil
}

// GetByEmail retrieves a profile by email
func (r *ProfileRepository) GetByEmail(ctx context.Context, email string) (*entity.Profile, error) {
	row := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE email = ?`, email)
	p, err := scanProfile(row)
	if err != nil {
		return nil, notFound(err, "profiles", email)
	}
	return p, nil
}

// List returns profiles ordered by name
func (r *ProfileRepository) List(ctx context.Context, role entity.Role) ([]*entity.Profile, error) {
	w := &where{}
	if role != "" {
		w.add("role = ?", role)
	}

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+profileColumns+` FROM profiles`+w.String()+` ORDER BY last_name, first_name`, w.args...)
	if err != nil {
		r.logger.Error("Failed to list profiles", zap.Error(err))
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows)
}

// Update rewrites the mutable profile fields
func (r *ProfileRepository) Update(ctx context.Context, p *entity.Profile) error {
	stamp(&p.CreatedAt, &p.UpdatedAt)

	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE profiles
		SET email = ?, first_name = ?, last_name = ?, role = ?, site_id = ?, updated_at = ?
		WHERE id = ?
	`, p.Email, p.FirstName, p.LastName, p.Role, p.SiteID, p.UpdatedAt, p.ID)
	if isUniqueViolation(err) {
		return apperror.Conflict("profiles", "profile with email %s already exists", p.Email)
	}
	if err != nil {
		r.logger.Error("Failed to update profile", zap.String("id", p.ID), zap.Error(err))
		return fmt.Errorf("failed to update profile: %w", err)
	}
	return checkAffected(ctx, exec, result, "profiles", p.ID, "profile %s not updated", p.ID)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProfile(row rowScanner) (*entity.Profile, error) {
	var p entity.Profile
	if err := row.Scan(&p.ID, &p.Email, &p.FirstName, &p.LastName, &p.Role, &p.SiteID, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProfiles(rows *sql.Rows) ([]*entity.Profile, error) {
	var profiles []*entity.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

var _ port.ProfileRepository = (*ProfileRepository)(nil)
