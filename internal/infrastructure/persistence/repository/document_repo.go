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
	"github.com/garyjia/shared-staff/internal/infrastructure/persistence/sqlite"
)

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document register repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

const documentColumns = `id, type, title, staff_id, month, url, storage_ref, content_type, size, uploaded_by, uploaded_at`

// Create registers a document
func (r *DocumentRepository) Create(ctx context.Context, d *entity.Document) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if d.UploadedAt.IsZero() {
		d.UploadedAt = time.Now().UTC()
	}

	_, err := sqlite.Conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Type, d.Title, d.StaffID, monthArg(d.Month), d.URL, d.StorageRef, d.ContentType, d.Size,
		d.UploadedBy, d.UploadedAt,
	)
	if isConstraintViolation(err) {
		return apperror.Validation("documents", "invalid document: %v", err)
	}
	if err != nil {
		r.logger.Error("Failed to create document", zap.String("type", string(d.Type)), zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	row := sqlite.Conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if err != nil {
		return nil, notFound(err, "documents", id)
	}
	return d, nil
}

// List returns the matching documents, newest first
func (r *DocumentRepository) List(ctx context.Context, f port.DocumentFilter) ([]*entity.Document, error) {
	w := &where{}
	switch {
	case f.StaffID != "" && f.IncludeGeneral:
		w.add("(staff_id = ? OR staff_id = '')", f.StaffID)
	case f.StaffID != "":
		w.add("staff_id = ?", f.StaffID)
	}
	if f.Type != "" {
		w.add("type = ?", f.Type)
	}
	if !f.Month.IsZero() {
		w.add("month = ?", f.Month.String())
	}

	rows, err := sqlite.Conn(ctx, r.db).QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents`+w.String()+` ORDER BY uploaded_at DESC, id`, w.args...)
	if err != nil {
		r.logger.Error("Failed to list documents", zap.Error(err))
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// Delete removes a document from the register
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	exec := sqlite.Conn(ctx, r.db)
	result, err := exec.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete document", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return checkAffected(ctx, exec, result, "documents", id, "document %s not deleted", id)
}

func scanDocument(row rowScanner) (*entity.Document, error) {
	var (
		d     entity.Document
		month string
	)
	if err := row.Scan(&d.ID, &d.Type, &d.Title, &d.StaffID, &month, &d.URL, &d.StorageRef,
		&d.ContentType, &d.Size, &d.UploadedBy, &d.UploadedAt); err != nil {
		return nil, err
	}
	if month != "" {
		m, err := entity.ParseMonth(month)
		if err != nil {
			return nil, err
		}
		d.Month = &m
	}
	return &d, nil
}

// monthArg stores an optional month as YYYY-MM or empty
func monthArg(m *entity.Month) string {
	if m == nil || m.IsZero() {
		return ""
	}
	return m.String()
}

var _ port.DocumentRepository = (*DocumentRepository)(nil)
