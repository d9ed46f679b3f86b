package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// SiteRequest is the body of POST and PUT /sites
type SiteRequest struct {
	Name         string `json:"name" binding:"required,max=200"`
	Address      string `json:"address" binding:"max=500"`
	ContactName  string `json:"contact_name" binding:"max=200"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	ContactPhone string `json:"contact_phone" binding:"max=50"`
}

func (r SiteRequest) site(id string) *entity.Site {
	return &entity.Site{
		ID:           id,
		Name:         r.Name,
		Address:      r.Address,
		ContactName:  r.ContactName,
		ContactEmail: r.ContactEmail,
		ContactPhone: r.ContactPhone,
	}
}

// CreateSite handles POST /api/v1/sites
func (h *Handlers) CreateSite(c *gin.Context) {
	var req SiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	site, err := h.Site.Create(c.Request.Context(), actorFrom(c), req.site(""))
	if err != nil {
		h.fail(c, "create_site", err)
		return
	}
	ok(c, http.StatusCreated, site)
}

// ListSites handles GET /api/v1/sites
func (h *Handlers) ListSites(c *gin.Context) {
	list, err := h.Site.List(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.fail(c, "list_sites", err)
		return
	}
	ok(c, http.StatusOK, list)
}

// GetSite handles GET /api/v1/sites/:id
func (h *Handlers) GetSite(c *gin.Context) {
	site, err := h.Site.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get_site", err)
		return
	}
	ok(c, http.StatusOK, site)
}

// UpdateSite handles PUT /api/v1/sites/:id
func (h *Handlers) UpdateSite(c *gin.Context) {
	var req SiteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	site, err := h.Site.Update(c.Request.Context(), actorFrom(c), req.site(c.Param("id")))
	if err != nil {
		h.fail(c, "update_site", err)
		return
	}
	ok(c, http.StatusOK, site)
}

// DeleteSite handles DELETE /api/v1/sites/:id
func (h *Handlers) DeleteSite(c *gin.Context) {
	if err := h.Site.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.fail(c, "delete_site", err)
		return
	}
	c.Status(http.StatusNoContent)
}
