package entity

import "time"

// WeeklyReport is a staff member's weekly activity report.
// Once Locked is set no field may change.
type WeeklyReport struct {
	ID            string    `json:"id"`
	StaffID       string    `json:"staff_id"`
	WeekStart     time.Time `json:"week_start"`
	WeekEnd       time.Time `json:"week_end"`
	HostContent   string    `json:"host_content"`
	HostHours     float64   `json:"host_hours"`
	LenderContent string    `json:"lender_content"`
	LenderHours   float64   `json:"lender_hours"`
	Comment       string    `json:"comment,omitempty"`
	Approvals     Approvals `json:"approvals"`
	Locked        bool      `json:"locked"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WeekEndFor returns the Sunday closing the week that starts on weekStart
func WeekEndFor(weekStart time.Time) time.Time {
	return DateOnly(weekStart).AddDate(0, 0, 6)
}

// WeekStartOf returns the Monday of the week containing t
func WeekStartOf(t time.Time) time.Time {
	d := DateOnly(t)
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// Editable returns true while the report may be updated or deleted
func (r *WeeklyReport) Editable() bool {
	return !r.Locked && r.Approvals.FullyPending()
}

// ConsistencyAlert is raised by external validation against a weekly report.
// The workflow only reads alerts.
type ConsistencyAlert struct {
	ID        string    `json:"id"`
	ReportID  string    `json:"report_id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}
