package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
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

// ScheduleProposalRepository implements port.ScheduleProposalRepository
type ScheduleProposalRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewScheduleProposalRepository creates a new schedule proposal repository
func NewScheduleProposalRepository(db *sql.DB, logger *zap.Logger) port.ScheduleProposalRepository {
	return &ScheduleProposalRepository{
		db:     db,
		logger: logger,
	}
}

const proposalColumns = `id, staff_id, date, start_time, end_time, site_id, status, proposed_by,
	validation_comment, validated_by, validated_at, history, created_at, updated_at`

// Create inserts a proposal together with its initial history
func (r *ScheduleProposalRepository) Create(ctx context.Context, p *entity.ScheduleProposal) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = entity.ProposalProposed
	}
	stamp(&p.CreatedAt, &p.UpdatedAt)

	history, err := json.Marshal(p.History)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	query := `INSERT INTO schedule_proposals (` + proposalColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = sqlite.Conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.StaffID, dateArg(p.Date), p.StartTime, p.EndTime, p.SiteID, p.Status, p.ProposedBy,
		p.Comment, p.ValidatedBy, nullTime(p.ValidatedAt), string(history), p.CreatedAt, p.UpdatedAt,
	)
	if isConstraintViolation(err) {
		return apperror.Validation("schedule_proposals", "invalid proposal: %v", err)
	}
	if err != nil {
		r.logger.Error("Failed to create schedule proposal", zap.String("staff_id", p.StaffID), zap.Error(err))
		return fmt.Errorf("failed to create schedule proposal: %w", err)
	}
	return nil
}

// GetByID retrieves a proposal by ID
func (r *ScheduleProposalRepository) GetByID(ctx context.Context, id string) (*entity.ScheduleProposal, error) {
	row := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+proposalColumns+` FROM schedule_proposals WHERE id = ?`, id)
	p, err := scanProposal(row)
	if err != nil {
		return nil, notFound(err, "schedule_proposals", id)
	}
	return p, nil
}

// List returns proposals ordered by date and start time
func (r *ScheduleProposalRepository) List(ctx context.Context, f port.ProposalFilter) ([]*entity.ScheduleProposal, error) {
	w := &where{}
	if f.StaffID != "" {
		w.add("staff_id = ?", f.StaffID)
	}
	if f.Status != "" {
		w.add("status = ?", f.Status)
	}
	if !f.From.IsZero() {
		w.add("date >= ?", dateArg(f.From))
	}
	if !f.To.IsZero() {
		w.add("date <= ?", dateArg(f.To))
	}

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+proposalColumns+` FROM schedule_proposals`+w.String()+` ORDER BY date, start_time`, w.args...)
	if err != nil {
		r.logger.Error("Failed to list schedule proposals", zap.Error(err))
		return nil, fmt.Errorf("failed to list schedule proposals: %w", err)
	}
	defer rows.Close()

	var proposals []*entity.ScheduleProposal
	for rows.Next() {
		p, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan schedule proposal: %w", err)
		}
		proposals = append(proposals, p)
	}
	return proposals, rows.Err()
}

// FindApproved returns the latest approved slot for staff on date, or nil
func (r *ScheduleProposalRepository) FindApproved(ctx context.Context, staffID string, date time.Time) (*entity.ScheduleProposal, error) {
	row := sqlite.Conn(ctx, r.db).QueryRowContext(ctx, `
		SELECT `+proposalColumns+`
		FROM schedule_proposals
		WHERE staff_id = ? AND date = ? AND status = ?
		ORDER BY validated_at DESC
		LIMIT 1
	`, staffID, dateArg(date), entity.ProposalApproved)

	p, err := scanProposal(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find approved plan: %w", err)
	}
	return p, nil
}

// ApplyDecision writes the decision if the proposal is still in d.Expected
func (r *ScheduleProposalRepository) ApplyDecision(ctx context.Context, id string, d workflow.ProposalDecision, history entity.ScheduleHistory) error {
	encoded, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("failed to encode history: %w", err)
	}

	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx, `
		UPDATE schedule_proposals
		SET status = ?, validated_by = ?, validated_at = ?, validation_comment = ?, history = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`, d.Status, d.ValidatedBy, d.ValidatedAt.UTC(), d.Comment, string(encoded), time.Now().UTC(), id, d.Expected)
	if err != nil {
		r.logger.Error("Failed to apply proposal decision", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to apply proposal decision: %w", err)
	}

	return checkAffected(ctx, exec, result, "schedule_proposals", id, "proposal %s is no longer %s", id, d.Expected)
}

func scanProposal(row rowScanner) (*entity.ScheduleProposal, error) {
	var (
		p           entity.ScheduleProposal
		validatedAt sql.NullTime
		history     string
	)
	err := row.Scan(
		&p.ID, &p.StaffID, &p.Date, &p.StartTime, &p.EndTime, &p.SiteID, &p.Status, &p.ProposedBy,
		&p.Comment, &p.ValidatedBy, &validatedAt, &history, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	var events []entity.ScheduleEvent
	if err := json.Unmarshal([]byte(history), &events); err != nil {
		return nil, fmt.Errorf("failed to decode history of %s: %w", p.ID, err)
	}
	p.History = entity.NewScheduleHistory(events...)
	p.ValidatedAt = timePtr(validatedAt)
	return &p, nil
}

var _ port.ScheduleProposalRepository = (*ScheduleProposalRepository)(nil)
