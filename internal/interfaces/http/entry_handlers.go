package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// TimeEntryRequest is the body of POST /time-entries.
// StaffID is only read when the lender declares on behalf of a staff member.
type TimeEntryRequest struct {
	StaffID   string `json:"staff_id"`
	Date      string `json:"date" binding:"required,date"`
	StartTime string `json:"start_time" binding:"required,hhmm"`
	EndTime   string `json:"end_time" binding:"required,hhmm"`
	SiteID    string `json:"site_id"`
	Comment   string `json:"comment" binding:"max=2000"`
}

// ExpenseRequest is the body of POST /expenses
type ExpenseRequest struct {
	StaffID       string          `json:"staff_id"`
	Date          string          `json:"date" binding:"required,date"`
	Category      string          `json:"category" binding:"required"`
	Description   string          `json:"description" binding:"max=2000"`
	Amount        decimal.Decimal `json:"amount"`
	AttachmentRef string          `json:"attachment_ref"`
	Allocation    string          `json:"allocation" binding:"required,oneof=lender host mixed"`
	Ratio         decimal.Decimal `json:"ratio"`
}

type entryQuery struct {
	StaffID      string `form:"staff_id"`
	From         string `form:"from" binding:"omitempty,date"`
	To           string `form:"to" binding:"omitempty,date"`
	HostStatus   string `form:"host_status" binding:"omitempty,oneof=pending approved rejected"`
	LenderStatus string `form:"lender_status" binding:"omitempty,oneof=pending approved rejected"`
	Limit        int    `form:"limit" binding:"omitempty,min=0,max=500"`
	Offset       int    `form:"offset" binding:"omitempty,min=0"`
}

// bindEntryFilter parses the shared list query of entries, expenses and reports
func (h *Handlers) bindEntryFilter(c *gin.Context) (port.EntryFilter, bool) {
	var q entryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return port.EntryFilter{}, false
	}
	from, to, err := dateRange(q.From, q.To)
	if err != nil {
		h.badRequest(c, err)
		return port.EntryFilter{}, false
	}
	return port.EntryFilter{
		StaffID:      q.StaffID,
		From:         from,
		To:           to,
		HostStatus:   entity.ApprovalStatus(q.HostStatus),
		LenderStatus: entity.ApprovalStatus(q.LenderStatus),
		Limit:        q.Limit,
		Offset:       q.Offset,
	}, true
}

// DeclareTime handles POST /api/v1/time-entries
func (h *Handlers) DeclareTime(c *gin.Context) {
	var req TimeEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	date, err := entity.ParseDate(req.Date)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	e, err := h.Approval.DeclareTime(c.Request.Context(), actorFrom(c), service.DeclareTimeInput{
		StaffID:   req.StaffID,
		Date:      date,
		StartTime: entity.TimeOfDay(req.StartTime),
		EndTime:   entity.TimeOfDay(req.EndTime),
		SiteID:    req.SiteID,
		Comment:   req.Comment,
	})
	if err != nil {
		h.fail(c, "declare_time", err)
		return
	}
	ok(c, http.StatusCreated, e)
}

// ListTimeEntries handles GET /api/v1/time-entries
func (h *Handlers) ListTimeEntries(c *gin.Context) {
	filter, valid := h.bindEntryFilter(c)
	if !valid {
		return
	}
	list, err := h.Approval.ListTimeEntries(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.fail(c, "list_time_entries", err)
		return
	}
	ok(c, http.StatusOK, list)
}

// GetTimeEntry handles GET /api/v1/time-entries/:id
func (h *Handlers) GetTimeEntry(c *gin.Context) {
	e, err := h.Approval.GetTimeEntry(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get_time_entry", err)
		return
	}
	ok(c, http.StatusOK, e)
}

// DecideTimeEntry handles POST /api/v1/time-entries/:id/decision
func (h *Handlers) DecideTimeEntry(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	actor := actorFrom(c)

	e, err := h.Approval.DecideTimeEntry(c.Request.Context(), actor, c.Param("id"), req.side(actor), entity.Decision(req.Decision), req.Comment)
	if err != nil {
		h.fail(c, "decide_time_entry", err)
		return
	}
	ok(c, http.StatusOK, e)
}

// DeleteTimeEntry handles DELETE /api/v1/time-entries/:id
func (h *Handlers) DeleteTimeEntry(c *gin.Context) {
	if err := h.Approval.DeleteTimeEntry(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.fail(c, "delete_time_entry", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeclareExpense handles POST /api/v1/expenses
func (h *Handlers) DeclareExpense(c *gin.Context) {
	var req ExpenseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	date, err := entity.ParseDate(req.Date)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	x, err := h.Approval.DeclareExpense(c.Request.Context(), actorFrom(c), service.DeclareExpenseInput{
		StaffID:       req.StaffID,
		Date:          date,
		Category:      req.Category,
		Description:   req.Description,
		Amount:        req.Amount,
		AttachmentRef: req.AttachmentRef,
		Allocation:    entity.Allocation(req.Allocation),
		Ratio:         req.Ratio,
	})
	if err != nil {
		h.fail(c, "declare_expense", err)
		return
	}
	ok(c, http.StatusCreated, x)
}

// ListExpenses handles GET /api/v1/expenses
func (h *Handlers) ListExpenses(c *gin.Context) {
	filter, valid := h.bindEntryFilter(c)
	if !valid {
		return
	}
	list, err := h.Approval.ListExpenses(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.fail(c, "list_expenses", err)
		return
	}
	ok(c, http.StatusOK, list)
}

// GetExpense handles GET /api/v1/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	x, err := h.Approval.GetExpense(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get_expense", err)
		return
	}
	ok(c, http.StatusOK, x)
}

// DecideExpense handles POST /api/v1/expenses/:id/decision
func (h *Handlers) DecideExpense(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	actor := actorFrom(c)

	x, err := h.Approval.DecideExpense(c.Request.Context(), actor, c.Param("id"), req.side(actor), entity.Decision(req.Decision), req.Comment)
	if err != nil {
		h.fail(c, "decide_expense", err)
		return
	}
	ok(c, http.StatusOK, x)
}

// DeleteExpense handles DELETE /api/v1/expenses/:id
func (h *Handlers) DeleteExpense(c *gin.Context) {
	if err := h.Approval.DeleteExpense(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.fail(c, "delete_expense", err)
		return
	}
	c.Status(http.StatusNoContent)
}
