// Package repository implements the SQLite persistence ports.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/workflow"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/sqlite"
)

// approvalColumns are the per-side columns shared by dual-approved tables
const approvalColumns = `host_status, host_decided_by, host_decided_at, host_comment,
	lender_status, lender_decided_by, lender_decided_at, lender_comment`

// approvalRow scans the approval columns
type approvalRow struct {
	hostStatus, hostBy, hostComment       string
	lenderStatus, lenderBy, lenderComment string
	hostAt, lenderAt                      sql.NullTime
}

func (a *approvalRow) targets() []interface{} {
	return []interface{}{
		&a.hostStatus, &a.hostBy, &a.hostAt, &a.hostComment,
		&a.lenderStatus, &a.lenderBy, &a.lenderAt, &a.lenderComment,
	}
}

func (a *approvalRow) approvals() entity.Approvals {
	return entity.Approvals{
		Host: entity.SideApproval{
			Status:    entity.ApprovalStatus(a.hostStatus),
			DecidedBy: a.hostBy,
			DecidedAt: timePtr(a.hostAt),
			Comment:   a.hostComment,
		},
		Lender: entity.SideApproval{
			Status:    entity.ApprovalStatus(a.lenderStatus),
			DecidedBy: a.lenderBy,
			DecidedAt: timePtr(a.lenderAt),
			Comment:   a.lenderComment,
		},
	}
}

// approvalArgs returns the insert arguments matching approvalColumns
func approvalArgs(a entity.Approvals) []interface{} {
	return []interface{}{
		statusOrPending(a.Host.Status), a.Host.DecidedBy, nullTime(a.Host.DecidedAt), a.Host.Comment,
		statusOrPending(a.Lender.Status), a.Lender.DecidedBy, nullTime(a.Lender.DecidedAt), a.Lender.Comment,
	}
}

func statusOrPending(s entity.ApprovalStatus) entity.ApprovalStatus {
	if s == "" {
		return entity.ApprovalPending
	}
	return s
}

// sidePrefix maps a side to its column prefix
func sidePrefix(side entity.Side) (string, error) {
	switch side {
	case entity.SideHost:
		return "host", nil
	case entity.SideLender:
		return "lender", nil
	}
	return "", apperror.Validation("side", "unknown side %q", side)
}

// applySideDecision performs the conditional update of one approval side.
// extra is an additional guard appended to the WHERE clause.
func applySideDecision(ctx context.Context, exec sqlite.Executor, table, id string, d workflow.SideDecision, extra string) error {
	prefix, err := sidePrefix(d.Side)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE %[1]s
		SET %[2]s_status = ?, %[2]s_decided_by = ?, %[2]s_decided_at = ?, %[2]s_comment = ?, updated_at = ?
		WHERE id = ? AND %[2]s_status = ?%[3]s
	`, table, prefix, extra)

	result, err := exec.ExecContext(ctx, query,
		d.Status, d.DecidedBy, d.DecidedAt.UTC(), d.Comment, time.Now().UTC(),
		id, d.Expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update %s %s side: %w", table, prefix, err)
	}

	return checkAffected(ctx, exec, result, table, id, "%s side of %s is no longer %s", prefix, id, d.Expected)
}

// checkAffected turns a conditional update that touched no row into
// NotFound (row missing) or Conflict (row present, guard failed)
func checkAffected(ctx context.Context, exec sqlite.Executor, result sql.Result, table, id, format string, args ...interface{}) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	exists, err := rowExists(ctx, exec, table, id)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NotFound(table, "%s not found", id)
	}
	return apperror.Conflict(table, format, args...)
}

func rowExists(ctx context.Context, exec sqlite.Executor, table, id string) (bool, error) {
	var one int
	err := exec.QueryRowContext(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s existence: %w", table, err)
	}
	return true, nil
}

// notFound maps sql.ErrNoRows to a NotFoundError
func notFound(err error, table, id string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperror.NotFound(table, "%s not found", id)
	}
	return fmt.Errorf("failed to get %s %s: %w", table, id, err)
}

// isUniqueViolation reports a UNIQUE constraint failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// isConstraintViolation reports a CHECK or other constraint failure
func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	return false
}

// where accumulates AND-ed filter clauses
type where struct {
	clauses []string
	args    []interface{}
}

func (w *where) add(clause string, args ...interface{}) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// entryWhere builds the filter shared by dual-approved tables
func entryWhere(f port.EntryFilter, dateColumn string) *where {
	w := &where{}
	if f.StaffID != "" {
		w.add("staff_id = ?", f.StaffID)
	}
	if !f.From.IsZero() {
		w.add(dateColumn+" >= ?", dateArg(f.From))
	}
	if !f.To.IsZero() {
		w.add(dateColumn+" <= ?", dateArg(f.To))
	}
	if f.HostStatus != "" {
		w.add("host_status = ?", f.HostStatus)
	}
	if f.LenderStatus != "" {
		w.add("lender_status = ?", f.LenderStatus)
	}
	return w
}

// paginate appends LIMIT/OFFSET when a limit is set
func paginate(query string, limit, offset int) string {
	if limit <= 0 {
		return query
	}
	return query + fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
}

// dateArg formats a calendar date for DATE columns
func dateArg(t time.Time) string {
	return t.Format(entity.DateLayout)
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// stamp fills creation and update times
func stamp(created, updated *time.Time) {
	now := time.Now().UTC()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
