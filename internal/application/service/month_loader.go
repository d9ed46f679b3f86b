package service

import (
	"context"
	"fmt"

	"github.com/garyjia/shared-staff/internal/application/port"
	"github.com/garyjia/shared-staff/internal/domain/derive"
	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// MonthLoader gathers every record of one staff member touching a month
type MonthLoader struct {
	entries  port.TimeEntryRepository
	expenses port.ExpenseRepository
	reports  port.WeeklyReportRepository
}

// NewMonthLoader creates a new MonthLoader
func NewMonthLoader(entries port.TimeEntryRepository, expenses port.ExpenseRepository, reports port.WeeklyReportRepository) *MonthLoader {
	return &MonthLoader{entries: entries, expenses: expenses, reports: reports}
}

// Load reads time entries and expenses dated in the month and weekly reports
// whose week intersects it, then computes the approved totals.
// Nothing is cached; each call reads the current state.
func (l *MonthLoader) Load(ctx context.Context, staffID string, month entity.Month) (*port.MonthlyReport, error) {
	last := month.End().AddDate(0, 0, -1)
	filter := port.EntryFilter{StaffID: staffID, From: month.Start(), To: last}

	entries, err := l.entries.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list time entries: %w", err)
	}
	expenses, err := l.expenses.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	reports, err := l.reports.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list weekly reports: %w", err)
	}

	return &port.MonthlyReport{
		Month:       month,
		Totals:      derive.MonthlyTotals(month, entries, expenses),
		TimeEntries: entries,
		Expenses:    expenses,
		Reports:     reports,
	}, nil
}
