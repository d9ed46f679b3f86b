package http

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// DocumentRequest is the body of POST /documents. A multipart request
// carries the content in its "file" part instead of a URL.
type DocumentRequest struct {
	Type    string `json:"type" form:"type" binding:"required,oneof=contract amendment closure receipt report other"`
	Title   string `json:"title" form:"title" binding:"max=200"`
	StaffID string `json:"staff_id" form:"staff_id"`
	Month   string `json:"month" form:"month" binding:"omitempty,yearmonth"`
	URL     string `json:"url" form:"url"`
}

type documentQuery struct {
	Type    string `form:"type" binding:"omitempty,oneof=contract amendment closure receipt report other"`
	Month   string `form:"month" binding:"omitempty,yearmonth"`
	StaffID string `form:"staff_id"`
	General bool   `form:"include_general"`
}

// CreateDocument handles POST /api/v1/documents, as JSON or multipart/form-data
func (h *Handlers) CreateDocument(c *gin.Context) {
	var req DocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	in := service.RegisterDocumentInput{
		Type:    entity.DocumentType(req.Type),
		Title:   req.Title,
		StaffID: req.StaffID,
		URL:     req.URL,
	}
	if req.Month != "" {
		month, err := entity.ParseMonth(req.Month)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		in.Month = &month
	}

	if c.ContentType() == gin.MIMEMultipartPOSTForm {
		file, err := c.FormFile("file")
		if err != nil {
			h.badRequest(c, fmt.Errorf("file part is required: %w", err))
			return
		}
		if file.Size > service.MaxDocumentSize {
			h.badRequest(c, fmt.Errorf("file exceeds %d bytes", service.MaxDocumentSize))
			return
		}
		f, err := file.Open()
		if err != nil {
			h.badRequest(c, err)
			return
		}
		defer f.Close()

		in.Content, err = io.ReadAll(io.LimitReader(f, service.MaxDocumentSize+1))
		if err != nil {
			h.fail(c, "create_document", err)
			return
		}
		in.FileName = file.Filename
		in.ContentType = file.Header.Get("Content-Type")
	}

	doc, err := h.Document.Register(c.Request.Context(), actorFrom(c), in)
	if err != nil {
		h.fail(c, "create_document", err)
		return
	}
	ok(c, http.StatusCreated, doc)
}

// ListDocuments handles GET /api/v1/documents?type=&month=&staff_id=&include_general=
func (h *Handlers) ListDocuments(c *gin.Context) {
	var q documentQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}
	filter := port.DocumentFilter{
		StaffID:        q.StaffID,
		IncludeGeneral: q.General,
		Type:           entity.DocumentType(q.Type),
	}
	if q.Month != "" {
		month, err := entity.ParseMonth(q.Month)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		filter.Month = month
	}

	list, err := h.Document.List(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.fail(c, "list_documents", err)
		return
	}
	ok(c, http.StatusOK, list)
}

// GetDocument handles GET /api/v1/documents/:id
func (h *Handlers) GetDocument(c *gin.Context) {
	doc, err := h.Document.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get_document", err)
		return
	}
	ok(c, http.StatusOK, doc)
}

// DownloadDocument handles GET /api/v1/documents/:id/file
func (h *Handlers) DownloadDocument(c *gin.Context) {
	doc, data, err := h.Document.Content(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "document_content", err)
		return
	}
	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Disposition", `attachment; filename="`+doc.FileName()+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// DeleteDocument handles DELETE /api/v1/documents/:id
func (h *Handlers) DeleteDocument(c *gin.Context) {
	if err := h.Document.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.fail(c, "delete_document", err)
		return
	}
	c.Status(http.StatusNoContent)
}
