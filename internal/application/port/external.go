package port

import (
	"context"

	"github.com/garyjia/shared-staff/internal/domain/derive"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// Notification template names
const (
	TemplateReportSubmitted = "report_submitted"
	TemplateReportApproved  = "report_approved"
	TemplateReportRejected  = "report_rejected"
	TemplateWeeklyReminder  = "weekly_reminder"
	TemplateClosureClosed   = "closure_closed"
)

// Template parameter names
const (
	ParamStaffName = "staff_name"
	ParamWeekStart = "week_start"
	ParamWeekEnd   = "week_end"
	ParamDecidedBy = "decided_by"
	ParamComment   = "comment"
	ParamMonth     = "month"
	ParamReportRef = "report_ref"
)

// Notifier delivers a templated message to one recipient address
type Notifier interface {
	Notify(ctx context.Context, recipient, template string, params map[string]interface{}) error
	Channel() string
}

// MonthlyReport is the aggregated data of one staff member's month.
// Closure and Staff are set when the report backs a closure export.
type MonthlyReport struct {
	Month       entity.Month
	Closure     *entity.MonthlyClosure
	Staff       *entity.Profile
	Totals      derive.Totals
	TimeEntries []*entity.TimeEntry
	Expenses    []*entity.Expense
	Reports     []*entity.WeeklyReport
}

// ReportGenerator renders a monthly report into a document
type ReportGenerator interface {
	Generate(ctx context.Context, report *MonthlyReport) ([]byte, error)
	Extension() string
}

// CalendarExporter renders approved schedule slots as a calendar file
type CalendarExporter interface {
	Export(staff *entity.Profile, slots []*entity.ScheduleProposal) ([]byte, error)
	ContentType() string
}
