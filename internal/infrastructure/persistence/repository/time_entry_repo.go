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
	"github.com/garyjia/shared-staff/internal/domain/workflow"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/sqlite"
)

// TimeEntryRepository implements port.TimeEntryRepository
type TimeEntryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewTimeEntryRepository creates a new time entry repository
func NewTimeEntryRepository(db *sql.DB, logger *zap.Logger) port.TimeEntryRepository {
	return &TimeEntryRepository{
		db:     db,
		logger: logger,
	}
}

const timeEntryColumns = `id, staff_id, date, start_time, end_time, site_id, comment, ` +
	approvalColumns + `, variance, created_at, updated_at`

// Create inserts a time entry
func (r *TimeEntryRepository) Create(ctx context.Context, e *entity.TimeEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	stamp(&e.CreatedAt, &e.UpdatedAt)

	args := []interface{}{e.ID, e.StaffID, dateArg(e.Date), e.StartTime, e.EndTime, e.SiteID, e.Comment}
	args = append(args, approvalArgs(e.Approvals)...)
	args = append(args, e.Variance, e.CreatedAt, e.UpdatedAt)

	query := `INSERT INTO time_entries (` + timeEntryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if isConstraintViolation(err) {
		return apperror.Validation("time_entries", "invalid time entry: %v", err)
	}
	if err != nil {
		r.logger.Error("Failed to create time entry", zap.String("staff_id", e.StaffID), zap.Error(err))
		return fmt.Errorf("failed to create time entry: %w", err)
	}
	return nil
}

// GetByID retrieves a time entry by ID
func (r *TimeEntryRepository) GetByID(ctx context.Context, id string) (*entity.TimeEntry, error) {
	row := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+timeEntryColumns+` FROM time_entries WHERE id = ?`, id)
	e, err := scanTimeEntry(row)
	if err != nil {
		return nil, notFound(err, "time_entries", id)
	}
	return e, nil
}

// List returns time entries ordered by date
func (r *TimeEntryRepository) List(ctx context.Context, f port.EntryFilter) ([]*entity.TimeEntry, error) {
	w := entryWhere(f, "date")
	query := paginate(`SELECT `+timeEntryColumns+` FROM time_entries`+w.String()+` ORDER BY date, start_time`, f.Limit, f.Offset)

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, w.args...)
	if err != nil {
		r.logger.Error("Failed to list time entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list time entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan time entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ApplySideDecision conditionally updates one approval side
func (r *TimeEntryRepository) ApplySideDecision(ctx context.Context, id string, d workflow.SideDecision) error {
	return applySideDecision(ctx, sqlite.Conn(ctx, r.db), "time_entries", id, d, "")
}

// Delete removes an entry that no side has decided yet
func (r *TimeEntryRepository) Delete(ctx context.Context, id string) error {
	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`DELETE FROM time_entries WHERE id = ? AND host_status = 'pending' AND lender_status = 'pending'`, id)
	if err != nil {
		r.logger.Error("Failed to delete time entry", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	return checkAffected(ctx, exec, result, "time_entries", id, "time entry %s already has a decision", id)
}

func scanTimeEntry(row rowScanner) (*entity.TimeEntry, error) {
	var (
		e entity.TimeEntry
		a approvalRow
	)
	dest := []interface{}{&e.ID, &e.StaffID, &e.Date, &e.StartTime, &e.EndTime, &e.SiteID, &e.Comment}
	dest = append(dest, a.targets()...)
	dest = append(dest, &e.Variance, &e.CreatedAt, &e.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.Approvals = a.approvals()
	return &e, nil
}

var _ port.TimeEntryRepository = (*TimeEntryRepository)(nil)
