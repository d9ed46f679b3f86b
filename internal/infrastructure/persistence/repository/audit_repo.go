package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/sqlite"
)

// AuditRepository implements port.AuditRepository. Rows are never updated.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new audit log repository
func NewAuditRepository(db *sql.DB, logger *zap.Logger) port.AuditRepository {
	return &AuditRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends an audit entry
func (r *AuditRepository) Create(ctx context.Context, e *entity.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO audit_log (id, actor_id, table_name, record_id, action, before_data, after_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.ActorID, e.Table, e.RecordID, e.Action, e.Before, e.After, e.At.UTC())
	if err != nil {
		r.logger.Error("Failed to write audit entry",
			zap.String("table", e.Table),
			zap.String("record_id", e.RecordID),
			zap.Error(err))
		return fmt.Errorf("failed to write audit entry: %w", err)
	}
	return nil
}

// List returns audit entries, newest first
func (r *AuditRepository) List(ctx context.Context, f port.AuditFilter) ([]*entity.AuditEntry, error) {
	w := &where{}
	if f.Table != "" {
		w.add("table_name = ?", f.Table)
	}
	if f.RecordID != "" {
		w.add("record_id = ?", f.RecordID)
	}
	if f.ActorID != "" {
		w.add("actor_id = ?", f.ActorID)
	}

	query := paginate(`
		SELECT id, actor_id, table_name, record_id, action, before_data, after_data, created_at
		FROM audit_log`+w.String()+` ORDER BY created_at DESC, rowid DESC`, f.Limit, f.Offset)

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, query, w.args...)
	if err != nil {
		r.logger.Error("Failed to list audit entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		if err := rows.Scan(&e.ID, &e.ActorID, &e.Table, &e.RecordID, &e.Action, &e.Before, &e.After, &e.At); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

var _ port.AuditRepository = (*AuditRepository)(nil)
