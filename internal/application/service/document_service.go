package service

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/apperror"
	"github.com/garyjia/shared-staff/internal/domain/authz"
	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/pkg/utils"
)

// MaxDocumentSize bounds uploaded document content
const MaxDocumentSize = 10 << 20

// RegisterDocumentInput describes a register entry. Exactly one of URL and
// Content is set.
type RegisterDocumentInput struct {
	Type        entity.DocumentType
	Title       string
	StaffID     string
	Month       *entity.Month
	URL         string
	Content     []byte
	FileName    string
	ContentType string
}

// DocumentService manages the document register. The lender registers and
// removes documents; staff read their own and the general ones.
type DocumentService interface {
	Register(ctx context.Context, actor entity.Actor, in RegisterDocumentInput) (*entity.Document, error)
	Get(ctx context.Context, actor entity.Actor, id string) (*entity.Document, error)
	List(ctx context.Context, actor entity.Actor, filter port.DocumentFilter) ([]*entity.Document, error)

	// Content returns an uploaded document with its stored file
	Content(ctx context.Context, actor entity.Actor, id string) (*entity.Document, []byte, error)

	Delete(ctx context.Context, actor entity.Actor, id string) error
}

type documentServiceImpl struct {
	documents port.DocumentRepository
	profiles  port.ProfileRepository
	storage   port.FileStorage
	audit     auditor
	txManager port.TransactionManager
	policy    *authz.Policy
	now       Clock
	logger    Logger
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	documents port.DocumentRepository,
	profiles port.ProfileRepository,
	storage port.FileStorage,
	auditRepo port.AuditRepository,
	txManager port.TransactionManager,
	policy *authz.Policy,
	now Clock,
	logger Logger,
) DocumentService {
	return &documentServiceImpl{
		documents: documents,
		profiles:  profiles,
		storage:   storage,
		audit:     auditor{repo: auditRepo, now: now},
		txManager: txManager,
		policy:    policy,
		now:       now,
		logger:    logger,
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// storedFileName keeps the base name of an upload with a safe character set
func storedFileName(name string) string {
	name = unsafeFileChars.ReplaceAllString(path.Base(strings.ReplaceAll(name, `\`, "/")), "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "document"
	}
	return name
}

// Register validates the entry, stores uploaded content and records the document
func (s *documentServiceImpl) Register(ctx context.Context, actor entity.Actor, in RegisterDocumentInput) (*entity.Document, error) {
	const op = "register_document"

	if err := s.policy.Require(op, actor, entity.TypeDocument, authz.ActionCreate); err != nil {
		return nil, err
	}
	if !in.Type.IsValid() {
		return nil, apperror.Validation(op, "invalid document type %q", in.Type)
	}
	hasURL, hasContent := strings.TrimSpace(in.URL) != "", len(in.Content) > 0
	if hasURL == hasContent {
		return nil, apperror.Validation(op, "exactly one of url and file is required")
	}
	if hasURL {
		if err := utils.ValidateURL(strings.TrimSpace(in.URL)); err != nil {
			return nil, apperror.Validation(op, "%v", err)
		}
	}
	if len(in.Content) > MaxDocumentSize {
		return nil, apperror.Validation(op, "file exceeds %d bytes", MaxDocumentSize)
	}
	if hasContent && s.storage == nil {
		return nil, apperror.Validation(op, "file storage is not configured")
	}
	if in.Month != nil && in.Month.IsZero() {
		in.Month = nil
	}

	d := &entity.Document{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Title:       strings.TrimSpace(utils.SanitizeString(in.Title)),
		StaffID:     in.StaffID,
		Month:       in.Month,
		URL:         strings.TrimSpace(in.URL),
		ContentType: in.ContentType,
		Size:        int64(len(in.Content)),
		UploadedBy:  actor.ID,
		UploadedAt:  s.now(),
	}
	if d.Title == "" {
		d.Title = storedFileName(in.FileName)
	}
	if hasContent {
		d.StorageRef = path.Join("documents", d.ID, storedFileName(in.FileName))
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if d.StaffID != "" {
			staff, err := s.profiles.GetByID(txCtx, d.StaffID)
			if apperror.IsNotFound(err) {
				return apperror.Validation(op, "unknown staff member %q", d.StaffID)
			}
			if err != nil {
				return err
			}
			if staff.Role != entity.RoleStaff {
				return apperror.Validation(op, "%s is not a staff member", d.StaffID)
			}
		}
		if err := s.documents.Create(txCtx, d); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		if err := s.audit.record(txCtx, actor, entity.TypeDocument, d.ID, auditCreate, nil, d); err != nil {
			return err
		}
		// The file is written last so a failed save rolls the row back
		if hasContent {
			if err := s.storage.Save(txCtx, d.StorageRef, in.Content); err != nil {
				return fmt.Errorf("save document: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to register document", "error", err, "type", in.Type, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Document registered", "id", d.ID, "type", d.Type, "staff_id", d.StaffID, "size", d.Size, "actor", actor.ID)
	return d, nil
}

// Get returns one document; staff see their own and the general ones
func (s *documentServiceImpl) Get(ctx context.Context, actor entity.Actor, id string) (*entity.Document, error) {
	const op = "get_document"

	if err := s.policy.Require(op, actor, entity.TypeDocument, authz.ActionView); err != nil {
		return nil, err
	}
	d, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if d.StaffID != "" {
		if err := authz.RequireOwner(op, actor, d.StaffID); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// List returns documents newest first. Staff only see their own and the general ones.
func (s *documentServiceImpl) List(ctx context.Context, actor entity.Actor, filter port.DocumentFilter) ([]*entity.Document, error) {
	if err := s.policy.Require("list_documents", actor, entity.TypeDocument, authz.ActionView); err != nil {
		return nil, err
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, apperror.Validation("list_documents", "invalid document type %q", filter.Type)
	}
	if actor.Role == entity.RoleStaff {
		filter.StaffID = actor.ID
		filter.IncludeGeneral = true
	}
	return s.documents.List(ctx, filter)
}

// Content reads the stored file of an uploaded document
func (s *documentServiceImpl) Content(ctx context.Context, actor entity.Actor, id string) (*entity.Document, []byte, error) {
	const op = "document_content"

	d, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, nil, err
	}
	if !d.HasContent() || s.storage == nil {
		return nil, nil, apperror.NotFound(op, "document %s has no stored file", id)
	}

	content, err := s.storage.Read(ctx, d.StorageRef)
	if err != nil {
		return nil, nil, fmt.Errorf("read document: %w", err)
	}
	return d, content, nil
}

// Delete removes the register entry and then its stored file
func (s *documentServiceImpl) Delete(ctx context.Context, actor entity.Actor, id string) error {
	const op = "delete_document"

	if err := s.policy.Require(op, actor, entity.TypeDocument, authz.ActionDelete); err != nil {
		return err
	}

	var removed *entity.Document
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		d, err := s.documents.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		if err := s.documents.Delete(txCtx, id); err != nil {
			return err
		}
		removed = d
		return s.audit.record(txCtx, actor, entity.TypeDocument, id, auditDelete, d, nil)
	})
	if err != nil {
		s.logger.Error("Failed to delete document", "error", err, "id", id)
		return err
	}

	if removed.HasContent() && s.storage != nil {
		if err := s.storage.Delete(ctx, removed.StorageRef); err != nil {
			// the register entry is gone; an orphaned file is only logged
			s.logger.Error("Failed to delete document file", "error", err, "ref", removed.StorageRef)
		}
	}

	s.logger.Info("Document deleted", "id", id, "actor", actor.ID)
	return nil
}
