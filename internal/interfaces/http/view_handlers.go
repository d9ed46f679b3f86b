package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// ProfileRequest is the body of POST /profiles
type ProfileRequest struct {
	Email     string `json:"email" binding:"required,email"`
	FirstName string `json:"first_name" binding:"max=200"`
	LastName  string `json:"last_name" binding:"max=200"`
	Role      string `json:"role" binding:"required,oneof=staff host lender accounting"`
	SiteID    string `json:"site_id"`
}

type auditQuery struct {
	Table    string `form:"table"`
	RecordID string `form:"record_id"`
	ActorID  string `form:"actor_id"`
	Limit    int    `form:"limit" binding:"omitempty,min=0,max=500"`
	Offset   int    `form:"offset" binding:"omitempty,min=0"`
}

// Pending handles GET /api/v1/pending/:type
func (h *Handlers) Pending(c *gin.Context) {
	items, err := h.Engine.Pending(c.Request.Context(), actorFrom(c), entity.Type(c.Param("type")))
	if err != nil {
		h.fail(c, "pending", err)
		return
	}
	ok(c, http.StatusOK, items)
}

// MonthSummary handles GET /api/v1/summary/:month?staff_id=
func (h *Handlers) MonthSummary(c *gin.Context) {
	month, err := entity.ParseMonth(c.Param("month"))
	if err != nil {
		h.badRequest(c, err)
		return
	}

	summary, err := h.Engine.MonthSummary(c.Request.Context(), actorFrom(c), c.Query("staff_id"), month)
	if err != nil {
		h.fail(c, "month_summary", err)
		return
	}
	ok(c, http.StatusOK, summary)
}

// ListAudit handles GET /api/v1/audit
func (h *Handlers) ListAudit(c *gin.Context) {
	var q auditQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}

	entries, err := h.Audit.List(c.Request.Context(), actorFrom(c), port.AuditFilter{
		Table:    q.Table,
		RecordID: q.RecordID,
		ActorID:  q.ActorID,
		Limit:    q.Limit,
		Offset:   q.Offset,
	})
	if err != nil {
		h.fail(c, "list_audit", err)
		return
	}
	ok(c, http.StatusOK, entries)
}

// CreateProfile handles POST /api/v1/profiles
func (h *Handlers) CreateProfile(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	p, err := h.Profile.Create(c.Request.Context(), actorFrom(c), &entity.Profile{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      entity.Role(req.Role),
		SiteID:    req.SiteID,
	})
	if err != nil {
		h.fail(c, "create_profile", err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListProfiles handles GET /api/v1/profiles?role=
func (h *Handlers) ListProfiles(c *gin.Context) {
	list, err := h.Profile.List(c.Request.Context(), actorFrom(c), entity.Role(c.Query("role")))
	if err != nil {
		h.fail(c, "list_profiles", err)
		return
	}
	ok(c, http.StatusOK, list)
}

// GetProfile handles GET /api/v1/profiles/:id
func (h *Handlers) GetProfile(c *gin.Context) {
	p, err := h.Profile.Get(c.Request.Context(), actorFrom(c), staffParam(c, "id"))
	if err != nil {
		h.fail(c, "get_profile", err)
		return
	}
	ok(c, http.StatusOK, p)
}
