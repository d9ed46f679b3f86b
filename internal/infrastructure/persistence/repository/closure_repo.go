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

// ClosureRepository implements port.ClosureRepository
type ClosureRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewClosureRepository creates a new monthly closure repository
func NewClosureRepository(db *sql.DB, logger *zap.Logger) port.ClosureRepository {
	return &ClosureRepository{
		db:     db,
		logger: logger,
	}
}

const closureColumns = `id, month, staff_id, signature_staff, signature_host, signature_lender,
	status, closed_at, report_ref, created_at, updated_at`

// GetOrCreate inserts the (month, staff) row unless it exists, then reads it back.
// The UNIQUE(month, staff_id) constraint makes concurrent callers converge on one row.
func (r *ClosureRepository) GetOrCreate(ctx context.Context, month entity.Month, staffID string) (*entity.MonthlyClosure, bool, error) {
	exec := sqlite.Conn(ctx, r.db)
	now := time.Now().UTC()

	result, err := exec.ExecContext(ctx, `
		INSERT INTO monthly_closures (id, month, staff_id, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (month, staff_id) DO NOTHING
	`, uuid.NewString(), month.String(), staffID, entity.ClosureAwaitingStaff, now, now)
	if err != nil {
		r.logger.Error("Failed to insert closure",
			zap.String("month", month.String()),
			zap.String("staff_id", staffID),
			zap.Error(err))
		return nil, false, fmt.Errorf("failed to insert closure: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read affected rows: %w", err)
	}

	row := exec.QueryRowContext(ctx,
		`SELECT `+closureColumns+` FROM monthly_closures WHERE month = ? AND staff_id = ?`,
		month.String(), staffID)
	c, err := scanClosure(row)
	if err != nil {
		return nil, false, notFound(err, "monthly_closures", month.String()+"/"+staffID)
	}

	return c, inserted > 0, nil
}

// GetByID retrieves a closure by ID
func (r *ClosureRepository) GetByID(ctx context.Context, id string) (*entity.MonthlyClosure, error) {
	row := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+closureColumns+` FROM monthly_closures WHERE id = ?`, id)
	c, err := scanClosure(row)
	if err != nil {
		return nil, notFound(err, "monthly_closures", id)
	}
	return c, nil
}

// List returns closures ordered by month then staff
func (r *ClosureRepository) List(ctx context.Context, f port.ClosureFilter) ([]*entity.MonthlyClosure, error) {
	w := &where{}
	if f.StaffID != "" {
		w.add("staff_id = ?", f.StaffID)
	}
	if !f.Month.IsZero() {
		w.add("month = ?", f.Month.String())
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+closureColumns+` FROM monthly_closures`+w.String()+` ORDER BY month, staff_id`, w.args...)
	if err != nil {
		r.logger.Error("Failed to list closures", zap.Error(err))
		return nil, fmt.Errorf("failed to list closures: %w", err)
	}
	defer rows.Close()

	var closures []*entity.MonthlyClosure
	for rows.Next() {
		c, err := scanClosure(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan closure: %w", err)
		}
		closures = append(closures, c)
	}
	return closures, rows.Err()
}

// ApplySignature writes the signature if the status is still s.Expected.
// Flags are OR-ed in so a stored true is never reset.
func (r *ClosureRepository) ApplySignature(ctx context.Context, id string, s workflow.ClosureSignature) error {
	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE monthly_closures
		SET signature_staff = MAX(signature_staff, ?),
			signature_host = MAX(signature_host, ?),
			signature_lender = MAX(signature_lender, ?),
			status = ?,
			closed_at = COALESCE(closed_at, ?),
			updated_at = ?
		WHERE id = ? AND status = ?
	`, s.Signatures.Staff, s.Signatures.Host, s.Signatures.Lender, s.Status,
		nullTime(s.ClosedAt), time.Now().UTC(), id, s.Expected)
	if err != nil {
		r.logger.Error("Failed to apply closure signature", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to apply closure signature: %w", err)
	}

	return checkAffected(ctx, exec, result, "monthly_closures", id, "closure %s is no longer %s", id, s.Expected)
}

// SetReportRef stores the generated report location
func (r *ClosureRepository) SetReportRef(ctx context.Context, id, ref string) error {
	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`UPDATE monthly_closures SET report_ref = ?, updated_at = ? WHERE id = ?`,
		ref, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to set report reference: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("monthly_closures", "%s not found", id)
	}
	return nil
}

func scanClosure(row rowScanner) (*entity.MonthlyClosure, error) {
	var (
		c        entity.MonthlyClosure
		month    string
		closedAt sql.NullTime
	)
	err := row.Scan(&c.ID, &month, &c.StaffID,
		&c.Signatures.Staff, &c.Signatures.Host, &c.Signatures.Lender,
		&c.Status, &closedAt, &c.ReportRef, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	m, err := entity.ParseMonth(month)
	if err != nil {
		return nil, fmt.Errorf("closure %s: %w", c.ID, err)
	}
	c.Month = m
	c.ClosedAt = timePtr(closedAt)
	return &c, nil
}

var _ port.ClosureRepository = (*ClosureRepository)(nil)
