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

// ExpenseRepository implements port.ExpenseRepository.
// Amounts are stored as decimal strings.
type ExpenseRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewExpenseRepository creates a new expense repository
func NewExpenseRepository(db *sql.DB, logger *zap.Logger) port.ExpenseRepository {
	return &ExpenseRepository{
		db:     db,
		logger: logger,
	}
}

const expenseColumns = `id, staff_id, date, category, description, amount, attachment_ref,
	allocation, ventilation_ratio, lender_share, host_share, ` +
	approvalColumns + `, created_at, updated_at`

// Create inserts an expense
func (r *ExpenseRepository) Create(ctx context.Context, e *entity.Expense) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	stamp(&e.CreatedAt, &e.UpdatedAt)

	args := []interface{}{
		e.ID, e.StaffID, dateArg(e.Date), e.Category, e.Description, e.Amount.String(), e.AttachmentRef,
		e.Allocation, e.Ratio.String(), e.LenderShare.String(), e.HostShare.String(),
	}
	args = append(args, approvalArgs(e.Approvals)...)
	args = append(args, e.CreatedAt, e.UpdatedAt)

	query := `INSERT INTO expenses (` + expenseColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if isConstraintViolation(err) {
		return apperror.Validation("expenses", "invalid expense: %v", err)
	}
	if err != nil {
		r.logger.Error("Failed to create expense", zap.String("staff_id", e.StaffID), zap.Error(err))
		return fmt.Errorf("failed to create expense: %w", err)
	}
	return nil
}

// GetByID retrieves an expense by ID
func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*entity.Expense, error) {
	row := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id)
	e, err := scanExpense(row)
	if err != nil {
		return nil, notFound(err, "expenses", id)
	}
	return e, nil
}

// List returns expenses ordered by date
func (r *ExpenseRepository) List(ctx context.Context, f port.EntryFilter) ([]*entity.Expense, error) {
	w := entryWhere(f, "date")
	query := paginate(`SELECT `+expenseColumns+` FROM expenses`+w.String()+` ORDER BY date, created_at`, f.Limit, f.Offset)

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, w.args...)
	if err != nil {
		r.logger.Error("Failed to list expenses", zap.Error(err))
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []*entity.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// ApplySideDecision conditionally updates one approval side
func (r *ExpenseRepository) ApplySideDecision(ctx context.Context, id string, d workflow.SideDecision) error {
	return applySideDecision(ctx, sqlite.Conn(ctx, r.db), "expenses", id, d, "")
}

// Delete removes an expense that no side has decided yet
func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND host_status = 'pending' AND lender_status = 'pending'`, id)
	if err != nil {
		r.logger.Error("Failed to delete expense", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete expense: %w", err)
	}
	return checkAffected(ctx, exec, result, "expenses", id, "expense %s already has a decision", id)
}

func scanExpense(row rowScanner) (*entity.Expense, error) {
	var (
		e entity.Expense
		a approvalRow
	)
	dest := []interface{}{
		&e.ID, &e.StaffID, &e.Date, &e.Category, &e.Description, &e.Amount, &e.AttachmentRef,
		&e.Allocation, &e.Ratio, &e.LenderShare, &e.HostShare,
	}
	dest = append(dest, a.targets()...)
	dest = append(dest, &e.CreatedAt, &e.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.Approvals = a.approvals()
	return &e, nil
}

var _ port.ExpenseRepository = (*ExpenseRepository)(nil)
