package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/workflow"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/sqlite"
)

// WeeklyReportRepository implements port.WeeklyReportRepository
type WeeklyReportRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWeeklyReportRepository creates a new weekly report repository
func NewWeeklyReportRepository(db *sql.DB, logger *zap.Logger) port.WeeklyReportRepository {
	return &WeeklyReportRepository{
		db:     db,
		logger: logger,
	}
}

const weeklyReportColumns = `id, staff_id, week_start, week_end, host_content, host_hours,
	lender_content, lender_hours, comment, ` + approvalColumns + `, locked, created_at, updated_at`

// editableGuard restricts writes to unlocked reports no side has decided
const editableGuard = ` AND locked = 0 AND host_status = 'pending' AND lender_status = 'pending'`

// Create inserts a report; a second report for the same staff and week is a ConflictError
func (r *WeeklyReportRepository) Create(ctx context.Context, rep *entity.WeeklyReport) error {
	if rep.ID == "" {
		rep.ID = uuid.NewString()
	}
	stamp(&rep.CreatedAt, &rep.UpdatedAt)

	args := []interface{}{
		rep.ID, rep.StaffID, dateArg(rep.WeekStart), dateArg(rep.WeekEnd), rep.HostContent, rep.HostHours,
		rep.LenderContent, rep.LenderHours, rep.Comment,
	}
	args = append(args, approvalArgs(rep.Approvals)...)
	args = append(args, rep.Locked, rep.CreatedAt, rep.UpdatedAt)

	query := `INSERT INTO weekly_reports (` + weeklyReportColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	switch {
	case isUniqueViolation(err):
		return apperror.Conflict("weekly_reports", "a report already exists for week %s", dateArg(rep.WeekStart))
	case isConstraintViolation(err):
		return apperror.Validation("weekly_reports", "invalid weekly report: %v", err)
	case err != nil:
		r.logger.Error("Failed to create weekly report", zap.String("staff_id", rep.StaffID), zap.Error(err))
		return fmt.Errorf("failed to create weekly report: %w", err)
	}
	return nil
}

// GetByID retrieves a report by ID
func (r *WeeklyReportRepository) GetByID(ctx context.Context, id string) (*entity.WeeklyReport, error) {
	row := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+weeklyReportColumns+` FROM weekly_reports WHERE id = ?`, id)
	rep, err := scanWeeklyReport(row)
	if err != nil {
		return nil, notFound(err, "weekly_reports", id)
	}
	return rep, nil
}

// List returns reports whose week intersects [From, To], ordered by week
func (r *WeeklyReportRepository) List(ctx context.Context, f port.EntryFilter) ([]*entity.WeeklyReport, error) {
	w := &where{}
	if f.StaffID != "" {
		w.add("staff_id = ?", f.StaffID)
	}
	if !f.From.IsZero() {
		w.add("week_end >= ?", dateArg(f.From))
	}
	if !f.To.IsZero() {
		w.add("week_start <= ?", dateArg(f.To))
	}
	if f.HostStatus != "" {
		w.add("host_status = ?", f.HostStatus)
	}
	if f.LenderStatus != "" {
		w.add("lender_status = ?", f.LenderStatus)
	}

	query := paginate(`SELECT `+weeklyReportColumns+` FROM weekly_reports`+w.String()+` ORDER BY week_start, staff_id`, f.Limit, f.Offset)
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, w.args...)
	if err != nil {
		r.logger.Error("Failed to list weekly reports", zap.Error(err))
		return nil, fmt.Errorf("failed to list weekly reports: %w", err)
	}
	defer rows.Close()

	var reports []*entity.WeeklyReport
	for rows.Next() {
		rep, err := scanWeeklyReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weekly report: %w", err)
		}
		reports = append(reports, rep)
	}
	return reports, rows.Err()
}

// Update rewrites the free-text and hours fields of an editable report
func (r *WeeklyReportRepository) Update(ctx context.Context, rep *entity.WeeklyReport) error {
	rep.UpdatedAt = time.Now().UTC()

	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE weekly_reports
		SET host_content = ?, host_hours = ?, lender_content = ?, lender_hours = ?, comment = ?, updated_at = ?
		WHERE id = ?`+editableGuard,
		rep.HostContent, rep.HostHours, rep.LenderContent, rep.LenderHours, rep.Comment, rep.UpdatedAt, rep.ID)
	if err != nil {
		r.logger.Error("Failed to update weekly report", zap.String("id", rep.ID), zap.Error(err))
		return fmt.Errorf("failed to update weekly report: %w", err)
	}
	return checkAffected(ctx, exec, result, "weekly_reports", rep.ID, "weekly report %s is locked or already decided", rep.ID)
}

// Delete removes an editable report
func (r *WeeklyReportRepository) Delete(ctx context.Context, id string) error {
	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM weekly_reports WHERE id = ?`+editableGuard, id)
	if err != nil {
		r.logger.Error("Failed to delete weekly report", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete weekly report: %w", err)
	}
	return checkAffected(ctx, exec, result, "weekly_reports", id, "weekly report %s is locked or already decided", id)
}

// ApplySideDecision conditionally updates one side of an unlocked report
func (r *WeeklyReportRepository) ApplySideDecision(ctx context.Context, id string, d workflow.SideDecision) error {
	return applySideDecision(ctx, sqlite.Conn(ctx, r.db), "weekly_reports", id, d, " AND locked = 0")
}

// LockIntersecting locks the staff member's reports whose week overlaps [from, to)
func (r *WeeklyReportRepository) LockIntersecting(ctx context.Context, staffID string, from, to time.Time) (int64, error) {
	result, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `
		UPDATE weekly_reports
		SET locked = 1, updated_at = ?
		WHERE staff_id = ? AND locked = 0 AND week_end >= ? AND week_start < ?
	`, time.Now().UTC(), staffID, dateArg(from), dateArg(to))
	if err != nil {
		r.logger.Error("Failed to lock weekly reports", zap.String("staff_id", staffID), zap.Error(err))
		return 0, fmt.Errorf("failed to lock weekly reports: %w", err)
	}
	return result.RowsAffected()
}

// StaffWithoutReport lists staff profiles that have no report for the week
func (r *WeeklyReportRepository) StaffWithoutReport(ctx context.Context, weekStart time.Time) ([]*entity.Profile, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT `+profileColumns+`
		FROM profiles p
		WHERE p.role = ? AND NOT EXISTS (
			SELECT 1 FROM weekly_reports w WHERE w.staff_id = p.id AND w.week_start = ?
		)
		ORDER BY p.last_name, p.first_name
	`, entity.RoleStaff, dateArg(weekStart))
	if err != nil {
		r.logger.Error("Failed to list staff without report", zap.Error(err))
		return nil, fmt.Errorf("failed to list staff without report: %w", err)
	}
	defer rows.Close()

	return collectProfiles(rows)
}

func scanWeeklyReport(row rowScanner) (*entity.WeeklyReport, error) {
	var (
		rep entity.WeeklyReport
		a   approvalRow
	)
	dest := []interface{}{
		&rep.ID, &rep.StaffID, &rep.WeekStart, &rep.WeekEnd, &rep.HostContent, &rep.HostHours,
		&rep.LenderContent, &rep.LenderHours, &rep.Comment,
	}
	dest = append(dest, a.targets()...)
	dest = append(dest, &rep.Locked, &rep.CreatedAt, &rep.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	rep.Approvals = a.approvals()
	return &rep, nil
}

var _ port.WeeklyReportRepository = (*WeeklyReportRepository)(nil)
