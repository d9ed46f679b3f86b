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

// AlertRepository implements port.AlertRepository
type AlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlertRepository creates a new consistency alert repository
func NewAlertRepository(db *sql.DB, logger *zap.Logger) port.AlertRepository {
	return &AlertRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an alert raised against a weekly report
func (r *AlertRepository) Create(ctx context.Context, a *entity.ConsistencyAlert) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx, `
		INSERT INTO consistency_alerts (id, report_id, category, message, resolved, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.ReportID, a.Category, a.Message, a.Resolved, a.CreatedAt)
	if err != nil {
		r.logger.Error("Failed to create alert", zap.String("report_id", a.ReportID), zap.Error(err))
		return fmt.Errorf("failed to create alert: %w", err)
	}
	return nil
}

// ListByReport returns the alerts of a report, oldest first
func (r *AlertRepository) ListByReport(ctx context.Context, reportID string) ([]*entity.ConsistencyAlert, error) {
	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx, `
		SELECT id, report_id, category, message, resolved, created_at
		FROM consistency_alerts
		WHERE report_id = ?
		ORDER BY created_at
	`, reportID)
	if err != nil {
		r.logger.Error("Failed to list alerts", zap.String("report_id", reportID), zap.Error(err))
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*entity.ConsistencyAlert
	for rows.Next() {
		var a entity.ConsistencyAlert
		if err := rows.Scan(&a.ID, &a.ReportID, &a.Category, &a.Message, &a.Resolved, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &a)
	}
	return alerts, rows.Err()
}

var _ port.AlertRepository = (*AlertRepository)(nil)
