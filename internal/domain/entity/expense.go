package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Expense is a cost declaration split between lender and host
type Expense struct {
	ID            string          `json:"id"`
	StaffID       string          `json:"staff_id"`
	Date          time.Time       `json:"date"`
	Category      string          `json:"category"`
	Description   string          `json:"description,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	AttachmentRef string          `json:"attachment_ref,omitempty"`
	Allocation    Allocation      `json:"allocation"`
	Ratio         decimal.Decimal `json:"ventilation_ratio"`
	LenderShare   decimal.Decimal `json:"lender_share"`
	HostShare     decimal.Decimal `json:"host_share"`
	Approvals     Approvals       `json:"approvals"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
