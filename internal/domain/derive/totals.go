package derive

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/shared-staff/internal/domain/entity"
)

// Totals aggregates approved activity over one calendar month
type Totals struct {
	Hours        float64         `json:"total_hours"`
	Amount       decimal.Decimal `json:"total_amount"`
	LenderAmount decimal.Decimal `json:"lender_amount"`
	HostAmount   decimal.Decimal `json:"host_amount"`
	TimeEntries  int             `json:"time_entries"`
	Expenses     int             `json:"expenses"`
}

// MonthlyTotals sums hours and amounts of records whose authoritative
// (lender) status is approved and whose date falls inside the month.
// Entries with an unreadable interval are skipped.
func MonthlyTotals(month entity.Month, entries []*entity.TimeEntry, expenses []*entity.Expense) Totals {
	totals := Totals{
		Amount:       decimal.Zero,
		LenderAmount: decimal.Zero,
		HostAmount:   decimal.Zero,
	}

	for _, e := range entries {
		if e == nil || e.Approvals.Authoritative() != entity.ApprovalApproved || !month.Contains(e.Date) {
			continue
		}
		h, err := DurationHours(e.StartTime, e.EndTime)
		if err != nil {
			continue
		}
		totals.Hours += h
		totals.TimeEntries++
	}
	totals.Hours = roundHours(totals.Hours)

	for _, x := range expenses {
		if x == nil || x.Approvals.Authoritative() != entity.ApprovalApproved || !month.Contains(x.Date) {
			continue
		}
		totals.Amount = totals.Amount.Add(x.Amount)
		totals.LenderAmount = totals.LenderAmount.Add(x.LenderShare)
		totals.HostAmount = totals.HostAmount.Add(x.HostShare)
		totals.Expenses++
	}

	return totals
}
