package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// ProposalRequest is the body of POST /proposals
type ProposalRequest struct {
	StaffID   string `json:"staff_id" binding:"required"`
	Date      string `json:"date" binding:"required,date"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time" binding:"required,hhmm"`
	SiteID    string `json:"site_id"`
}

// DecisionRequest is the body of every /decision endpoint.
// Side defaults to the side of the actor's role.
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Side     string `json:"side" binding:"omitempty,oneof=host lender"`
	Comment  string `json:"comment" binding:"max=2000"`
}

func (r DecisionRequest) side(actor entity.Actor) entity.Side {
	if r.Side != "" {
		return entity.Side(r.Side)
	}
	side, _ := entity.SideForRole(actor.Role)
	return side
}

type proposalQuery struct {
	StaffID string `form:"staff_id"`
	Status  string `form:"status" binding:"omitempty,oneof=proposed approved rejected"`
	From    string `form:"from" binding:"omitempty,date"`
	To      string `form:"to" binding:"omitempty,date"`
}

// CreateProposal handles POST /api/v1/proposals
func (h *Handlers) CreateProposal(c *gin.Context) {
	var req ProposalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	date, err := entity.ParseDate(req.Date)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	p, err := h.Schedule.Propose(c.Request.Context(), actorFrom(c), service.ProposeInput{
		StaffID:   req.StaffID,
		Date:      date,
		StartTime: entity.TimeOfDay(req.StartTime),
		EndTime:   entity.TimeOfDay(req.EndTime),
		SiteID:    req.SiteID,
	})
	if err != nil {
		h.fail(c, "create_proposal", err)
		return
	}
	ok(c, http.StatusCreated, p)
}

// ListProposals handles GET /api/v1/proposals
func (h *Handlers) ListProposals(c *gin.Context) {
	var q proposalQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}
	from, to, err := dateRange(q.From, q.To)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	list, err := h.Schedule.List(c.Request.Context(), actorFrom(c), port.ProposalFilter{
		StaffID: q.StaffID,
		Status:  entity.ProposalStatus(q.Status),
		From:    from,
		To:      to,
	})
	if err != nil {
		h.fail(c, "list_proposals", err)
		return
	}
	ok(c, http.StatusOK, list)
}

// GetProposal handles GET /api/v1/proposals/:id
func (h *Handlers) GetProposal(c *gin.Context) {
	p, err := h.Schedule.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get_proposal", err)
		return
	}
	ok(c, http.StatusOK, p)
}

// DecideProposal handles POST /api/v1/proposals/:id/decision
func (h *Handlers) DecideProposal(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	p, err := h.Schedule.Decide(c.Request.Context(), actorFrom(c), c.Param("id"), entity.Decision(req.Decision), req.Comment)
	if err != nil {
		h.fail(c, "decide_proposal", err)
		return
	}
	ok(c, http.StatusOK, p)
}

// ExportCalendar handles GET /api/v1/staff/:staffId/calendar.ics
func (h *Handlers) ExportCalendar(c *gin.Context) {
	from, to, err := dateRange(c.Query("from"), c.Query("to"))
	if err != nil {
		h.badRequest(c, err)
		return
	}

	data, err := h.Schedule.ExportCalendar(c.Request.Context(), actorFrom(c), staffParam(c, "staffId"), from, to)
	if err != nil {
		h.fail(c, "export_calendar", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="planning.ics"`)
	c.Data(http.StatusOK, contentTypeCalendar, data)
}
