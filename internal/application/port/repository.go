package port

import (
	"context"
	"time"

	"github.com/garyjia/shared-staff/internal/domain/entity"
	"github.com/garyjia/shared-staff/internal/domain/workflow"
)

// EntryFilter selects dual-approved records (time entries, expenses, weekly reports).
// Zero values mean "no constraint". From/To bound the record date inclusively;
// for weekly reports they select weeks intersecting the range.
type EntryFilter struct {
	StaffID      string
	From         time.Time
	To           time.Time
	HostStatus   entity.ApprovalStatus
	LenderStatus entity.ApprovalStatus
	Limit        int
	Offset       int
}

// ProposalFilter selects schedule proposals
type ProposalFilter struct {
	StaffID string
	Status  entity.ProposalStatus
	From    time.Time
	To      time.Time
}

// ClosureFilter selects monthly closures
type ClosureFilter struct {
	StaffID string
	Month   entity.Month
	Status  entity.ClosureStatus
}

// AuditFilter selects audit entries, newest first
type AuditFilter struct {
	Table    string
	RecordID string
	ActorID  string
	Limit    int
	Offset   int
}

// DocumentFilter selects register documents. With IncludeGeneral, a StaffID
// filter also matches documents that concern every staff member.
type DocumentFilter struct {
	StaffID        string
	IncludeGeneral bool
	Type           entity.DocumentType
	Month          entity.Month
}

// ProfileRepository defines persistence operations for the staff directory
type ProfileRepository interface {
	Create(ctx context.Context, p *entity.Profile) error
	GetByID(ctx context.Context, id string) (*entity.Profile, error)
	GetByEmail(ctx context.Context, email string) (*entity.Profile, error)
	// List returns profiles with the given role, or all profiles when role is empty
	List(ctx context.Context, role entity.Role) ([]*entity.Profile, error)
	Update(ctx context.Context, p *entity.Profile) error
}

// SiteRepository defines persistence operations for the host site directory
type SiteRepository interface {
	Create(ctx context.Context, s *entity.Site) error
	GetByID(ctx context.Context, id string) (*entity.Site, error)
	// List returns sites ordered by name
	List(ctx context.Context) ([]*entity.Site, error)
	Update(ctx context.Context, s *entity.Site) error
	// Delete removes a site no profile, proposal or time entry refers to
	Delete(ctx context.Context, id string) error
}

// DocumentRepository defines persistence operations for the document register
type DocumentRepository interface {
	Create(ctx context.Context, d *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	// List returns documents newest first
	List(ctx context.Context, filter DocumentFilter) ([]*entity.Document, error)
	Delete(ctx context.Context, id string) error
}

// ScheduleProposalRepository defines persistence operations for ScheduleProposal
type ScheduleProposalRepository interface {
	Create(ctx context.Context, p *entity.ScheduleProposal) error
	GetByID(ctx context.Context, id string) (*entity.ScheduleProposal, error)
	List(ctx context.Context, filter ProposalFilter) ([]*entity.ScheduleProposal, error)

	// FindApproved returns the approved slot of a staff member on a date, or nil
	FindApproved(ctx context.Context, staffID string, date time.Time) (*entity.ScheduleProposal, error)

	// ApplyDecision updates status and history only if the status is still d.Expected
	ApplyDecision(ctx context.Context, id string, d workflow.ProposalDecision, history entity.ScheduleHistory) error
}

// TimeEntryRepository defines persistence operations for TimeEntry
type TimeEntryRepository interface {
	Create(ctx context.Context, e *entity.TimeEntry) error
	GetByID(ctx context.Context, id string) (*entity.TimeEntry, error)
	List(ctx context.Context, filter EntryFilter) ([]*entity.TimeEntry, error)

	// ApplySideDecision updates one side only if it still holds d.Expected
	ApplySideDecision(ctx context.Context, id string, d workflow.SideDecision) error

	// Delete removes the entry only while both sides are pending
	Delete(ctx context.Context, id string) error
}

// ExpenseRepository defines persistence operations for Expense
type ExpenseRepository interface {
	Create(ctx context.Context, e *entity.Expense) error
	GetByID(ctx context.Context, id string) (*entity.Expense, error)
	List(ctx context.Context, filter EntryFilter) ([]*entity.Expense, error)
	ApplySideDecision(ctx context.Context, id string, d workflow.SideDecision) error
	Delete(ctx context.Context, id string) error
}

// WeeklyReportRepository defines persistence operations for WeeklyReport
type WeeklyReportRepository interface {
	Create(ctx context.Context, r *entity.WeeklyReport) error
	GetByID(ctx context.Context, id string) (*entity.WeeklyReport, error)
	List(ctx context.Context, filter EntryFilter) ([]*entity.WeeklyReport, error)

	// Update rewrites the content fields only while the report is editable
	Update(ctx context.Context, r *entity.WeeklyReport) error

	// Delete removes the report only while it is editable
	Delete(ctx context.Context, id string) error

	// ApplySideDecision updates one side only if unlocked and still d.Expected
	ApplySideDecision(ctx context.Context, id string, d workflow.SideDecision) error

	// LockIntersecting locks every report of the staff member whose week
	// intersects [from, to) and returns the number of reports locked
	LockIntersecting(ctx context.Context, staffID string, from, to time.Time) (int64, error)

	// StaffWithoutReport returns staff profiles with no report for the week
	StaffWithoutReport(ctx context.Context, weekStart time.Time) ([]*entity.Profile, error)
}

// AlertRepository defines persistence operations for ConsistencyAlert
type AlertRepository interface {
	Create(ctx context.Context, a *entity.ConsistencyAlert) error
	ListByReport(ctx context.Context, reportID string) ([]*entity.ConsistencyAlert, error)
}

// ClosureRepository defines persistence operations for MonthlyClosure
type ClosureRepository interface {
	// GetOrCreate returns the closure for (month, staffID), creating it in
	// awaiting_staff if absent. Concurrent callers observe a single row.
	GetOrCreate(ctx context.Context, month entity.Month, staffID string) (*entity.MonthlyClosure, bool, error)

	GetByID(ctx context.Context, id string) (*entity.MonthlyClosure, error)
	List(ctx context.Context, filter ClosureFilter) ([]*entity.MonthlyClosure, error)

	// ApplySignature sets the flags and status only if the status is still s.Expected
	ApplySignature(ctx context.Context, id string, s workflow.ClosureSignature) error

	SetReportRef(ctx context.Context, id, ref string) error
}

// AuditRepository defines persistence operations for the append-only audit log
type AuditRepository interface {
	Create(ctx context.Context, e *entity.AuditEntry) error
	List(ctx context.Context, filter AuditFilter) ([]*entity.AuditEntry, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
