package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/application/service"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// ReportContentRequest holds the editable part of a weekly report
type ReportContentRequest struct {
	HostContent   string  `json:"host_content"`
	HostHours     float64 `json:"host_hours" binding:"gte=0"`
	LenderContent string  `json:"lender_content"`
	LenderHours   float64 `json:"lender_hours" binding:"gte=0"`
	Comment       string  `json:"comment" binding:"max=2000"`
}

func (r ReportContentRequest) content() service.ReportContent {
	return service.ReportContent{
		HostContent:   r.HostContent,
		HostHours:     r.HostHours,
		LenderContent: r.LenderContent,
		LenderHours:   r.LenderHours,
		Comment:       r.Comment,
	}
}

// WeeklyReportRequest is the body of POST /weekly-reports
type WeeklyReportRequest struct {
	StaffID   string `json:"staff_id"`
	WeekStart string `json:"week_start" binding:"required,date"`
	WeekEnd   string `json:"week_end" binding:"omitempty,date"`
	ReportContentRequest
}

// ClosureRequest is the body of POST /closures
type ClosureRequest struct {
	StaffID string `json:"staff_id"`
	Month   string `json:"month" binding:"required,yearmonth"`
}

type closureQuery struct {
	StaffID string `form:"staff_id"`
	Month   string `form:"month" binding:"omitempty,yearmonth"`
	Status  string `form:"status" binding:"omitempty,oneof=awaiting_staff awaiting_host awaiting_lender closed"`
}

// SubmitReport handles POST /api/v1/weekly-reports
func (h *Handlers) SubmitReport(c *gin.Context) {
	var req WeeklyReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	start, end, err := dateRange(req.WeekStart, req.WeekEnd)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	rep, err := h.Weekly.Submit(c.Request.Context(), actorFrom(c), service.SubmitReportInput{
		StaffID:       req.StaffID,
		WeekStart:     start,
		WeekEnd:       end,
		ReportContent: req.content(),
	})
	if err != nil {
		h.fail(c, "submit_report", err)
		return
	}
	ok(c, http.StatusCreated, rep)
}

// ListReports handles GET /api/v1/weekly-reports
func (h *Handlers) ListReports(c *gin.Context) {
	filter, valid := h.bindEntryFilter(c)
	if !valid {
		return
	}
	list, err := h.Weekly.List(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.fail(c, "list_reports", err)
		return
	}
	ok(c, http.StatusOK, list)
}

// GetReport handles GET /api/v1/weekly-reports/:id
func (h *Handlers) GetReport(c *gin.Context) {
	rep, err := h.Weekly.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get_report", err)
		return
	}
	ok(c, http.StatusOK, rep)
}

// UpdateReport handles PUT /api/v1/weekly-reports/:id
func (h *Handlers) UpdateReport(c *gin.Context) {
	var req ReportContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}

	rep, err := h.Weekly.Update(c.Request.Context(), actorFrom(c), c.Param("id"), req.content())
	if err != nil {
		h.fail(c, "update_report", err)
		return
	}
	ok(c, http.StatusOK, rep)
}

// DeleteReport handles DELETE /api/v1/weekly-reports/:id
func (h *Handlers) DeleteReport(c *gin.Context) {
	if err := h.Weekly.Delete(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.fail(c, "delete_report", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DecideReport handles POST /api/v1/weekly-reports/:id/decision
func (h *Handlers) DecideReport(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	actor := actorFrom(c)

	rep, err := h.Weekly.Decide(c.Request.Context(), actor, c.Param("id"), req.side(actor), entity.Decision(req.Decision), req.Comment)
	if err != nil {
		h.fail(c, "decide_report", err)
		return
	}
	ok(c, http.StatusOK, rep)
}

// ReportAlerts handles GET /api/v1/weekly-reports/:id/alerts
func (h *Handlers) ReportAlerts(c *gin.Context) {
	alerts, err := h.Weekly.Alerts(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "report_alerts", err)
		return
	}
	ok(c, http.StatusOK, alerts)
}

// OpenClosure handles POST /api/v1/closures.
// It returns the existing closure of the month when there is one.
func (h *Handlers) OpenClosure(c *gin.Context) {
	var req ClosureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	month, err := entity.ParseMonth(req.Month)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	closure, err := h.Closure.GetOrCreate(c.Request.Context(), actorFrom(c), req.StaffID, month)
	if err != nil {
		h.fail(c, "open_closure", err)
		return
	}
	ok(c, http.StatusOK, closure)
}

// ListClosures handles GET /api/v1/closures
func (h *Handlers) ListClosures(c *gin.Context) {
	var q closureQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.badRequest(c, err)
		return
	}
	filter := port.ClosureFilter{StaffID: q.StaffID, Status: entity.ClosureStatus(q.Status)}
	if q.Month != "" {
		month, err := entity.ParseMonth(q.Month)
		if err != nil {
			h.badRequest(c, err)
			return
		}
		filter.Month = month
	}

	list, err := h.Closure.List(c.Request.Context(), actorFrom(c), filter)
	if err != nil {
		h.fail(c, "list_closures", err)
		return
	}
	ok(c, http.StatusOK, list)
}

// GetClosure handles GET /api/v1/closures/:id
func (h *Handlers) GetClosure(c *gin.Context) {
	closure, err := h.Closure.Get(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "get_closure", err)
		return
	}
	ok(c, http.StatusOK, closure)
}

// SignClosure handles POST /api/v1/closures/:id/sign.
// The flag signed is the one of the actor's role.
func (h *Handlers) SignClosure(c *gin.Context) {
	closure, err := h.Closure.Sign(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "sign_closure", err)
		return
	}
	ok(c, http.StatusOK, closure)
}

// DownloadClosureReport handles GET /api/v1/closures/:id/report
func (h *Handlers) DownloadClosureReport(c *gin.Context) {
	data, name, err := h.Closure.Report(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.fail(c, "closure_report", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	c.Data(http.StatusOK, contentTypeXLSX, data)
}
