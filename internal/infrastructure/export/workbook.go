// Package export renders workflow data into documents: the monthly closure
// workbook and the iCalendar feed of approved schedules.
package export

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/derive"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// Sheet names of the monthly workbook
const (
	SheetSummary       = "Summary"
	SheetTimeEntries   = "Time entries"
	SheetExpenses      = "Expenses"
	SheetWeeklyReports = "Weekly reports"
)

// WorkbookGenerator implements port.ReportGenerator with an xlsx workbook
type WorkbookGenerator struct {
	logger *zap.Logger
}

// NewWorkbookGenerator creates a new WorkbookGenerator
func NewWorkbookGenerator(logger *zap.Logger) *WorkbookGenerator {
	return &WorkbookGenerator{logger: logger}
}

// Extension returns the file extension of generated documents
func (g *WorkbookGenerator) Extension() string {
	return ".xlsx"
}

// Generate writes one summary sheet and one sheet per record kind
func (g *WorkbookGenerator) Generate(ctx context.Context, report *port.MonthlyReport) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	header, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{SheetTimeEntries, SheetExpenses, SheetWeeklyReports} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("failed to add sheet %s: %w", name, err)
		}
	}

	w := &sheetWriter{file: f, header: header}
	w.summary(report)
	w.timeEntries(report.TimeEntries)
	w.expenses(report.Expenses)
	w.weeklyReports(report.Reports)
	if w.err != nil {
		g.logger.Error("Failed to fill workbook", zap.String("month", report.Month.String()), zap.Error(w.err))
		return nil, w.err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	g.logger.Info("Monthly workbook generated",
		zap.String("month", report.Month.String()),
		zap.Int("time_entries", len(report.TimeEntries)),
		zap.Int("expenses", len(report.Expenses)),
		zap.Int("size", buf.Len()))
	return buf.Bytes(), nil
}

// sheetWriter keeps the first error so rows can be written without checks at each call
type sheetWriter struct {
	file   *excelize.File
	header int
	err    error
}

func (w *sheetWriter) row(sheet string, row int, values ...interface{}) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		w.err = err
		return
	}
	if err := w.file.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
}

func (w *sheetWriter) headerRow(sheet string, columns ...interface{}) {
	w.row(sheet, 1, columns...)
	if w.err != nil {
		return
	}
	if err := w.file.SetRowStyle(sheet, 1, 1, w.header); err != nil {
		w.err = fmt.Errorf("failed to style %s header: %w", sheet, err)
		return
	}
	last, _ := excelize.ColumnNumberToName(len(columns))
	if err := w.file.SetColWidth(sheet, "A", last, 18); err != nil {
		w.err = fmt.Errorf("failed to size %s columns: %w", sheet, err)
	}
}

func (w *sheetWriter) summary(r *port.MonthlyReport) {
	staff := ""
	if r.Staff != nil {
		staff = r.Staff.FullName()
	} else if r.Closure != nil {
		staff = r.Closure.StaffID
	}

	t := r.Totals
	w.headerRow(SheetSummary, "Field", "Value")
	rows := [][]interface{}{
		{"Month", r.Month.String()},
		{"Staff", staff},
		{"Approved hours", t.Hours},
		{"Approved time entries", t.TimeEntries},
		{"Approved expenses", t.Expenses},
		{"Total amount", money(t.Amount)},
		{"Lender share", money(t.LenderAmount)},
		{"Host share", money(t.HostAmount)},
	}
	if r.Closure != nil {
		rows = append(rows, []interface{}{"Closure status", string(r.Closure.Status)})
		if r.Closure.ClosedAt != nil {
			rows = append(rows, []interface{}{"Closed at", r.Closure.ClosedAt.Format("2006-01-02 15:04")})
		}
	}
	for i, values := range rows {
		w.row(SheetSummary, i+2, values...)
	}
}

func (w *sheetWriter) timeEntries(entries []*entity.TimeEntry) {
	w.headerRow(SheetTimeEntries, "Date", "Start", "End", "Hours", "Variance", "Site", "Host", "Lender", "Comment")
	for i, e := range entries {
		hours, _ := derive.DurationHours(e.StartTime, e.EndTime)
		w.row(SheetTimeEntries, i+2,
			e.Date.Format(entity.DateLayout), string(e.StartTime), string(e.EndTime), hours, e.Variance,
			e.SiteID, string(e.Approvals.Host.Status), string(e.Approvals.Lender.Status), e.Comment)
	}
}

func (w *sheetWriter) expenses(expenses []*entity.Expense) {
	w.headerRow(SheetExpenses, "Date", "Category", "Description", "Amount", "Allocation", "Ratio", "Lender share", "Host share", "Host", "Lender")
	for i, x := range expenses {
		w.row(SheetExpenses, i+2,
			x.Date.Format(entity.DateLayout), x.Category, x.Description, money(x.Amount), string(x.Allocation),
			x.Ratio.InexactFloat64(), money(x.LenderShare), money(x.HostShare),
			string(x.Approvals.Host.Status), string(x.Approvals.Lender.Status))
	}
}

func (w *sheetWriter) weeklyReports(reports []*entity.WeeklyReport) {
	w.headerRow(SheetWeeklyReports, "Week start", "Week end", "Host hours", "Host activity", "Lender hours", "Lender activity", "Host", "Lender", "Locked")
	for i, r := range reports {
		w.row(SheetWeeklyReports, i+2,
			r.WeekStart.Format(entity.DateLayout), r.WeekEnd.Format(entity.DateLayout),
			r.HostHours, r.HostContent, r.LenderHours, r.LenderContent,
			string(r.Approvals.Host.Status), string(r.Approvals.Lender.Status), r.Locked)
	}
}

// money renders an amount rounded to the cent for spreadsheet cells
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
