package entity

// Role identifies the responsibility of an acting user
type Role string

const (
	RoleStaff      Role = "staff"      // shared staff member (salarié)
	RoleHost       Role = "host"       // host organization approver (école d'accueil)
	RoleLender     Role = "lender"     // lending organization approver (structure prêteuse)
	RoleAccounting Role = "accounting" // read-only accounting access
)

// IsValid returns true if the role is one of the defined roles
func (r Role) IsValid() bool {
	switch r {
	case RoleStaff, RoleHost, RoleLender, RoleAccounting:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Type identifies a workflow entity type
type Type string

const (
	TypeScheduleProposal Type = "schedule_proposal"
	TypeTimeEntry        Type = "time_entry"
	TypeExpense          Type = "expense"
	TypeWeeklyReport     Type = "weekly_report"
	TypeMonthlyClosure   Type = "monthly_closure"

	// Directory and register types are audited but carry no workflow
	TypeProfile  Type = "profile"
	TypeSite     Type = "site"
	TypeDocument Type = "document"
)

// IsValid returns true if the entity type is known
func (t Type) IsValid() bool {
	switch t {
	case TypeScheduleProposal, TypeTimeEntry, TypeExpense, TypeWeeklyReport, TypeMonthlyClosure:
		return true
	}
	return false
}

// Table returns the persistence table backing the entity type
func (t Type) Table() string {
	switch t {
	case TypeScheduleProposal:
		return "schedule_proposals"
	case TypeTimeEntry:
		return "time_entries"
	case TypeExpense:
		return "expenses"
	case TypeWeeklyReport:
		return "weekly_reports"
	case TypeMonthlyClosure:
		return "monthly_closures"
	case TypeProfile:
		return "profiles"
	case TypeSite:
		return "sites"
	case TypeDocument:
		return "documents"
	}
	return ""
}

// ApprovalStatus is the per-side decision status of a dual-approved record
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// IsValid returns true if the status is a known approval status
func (s ApprovalStatus) IsValid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	}
	return false
}

// IsDecided returns true once a side has left pending
func (s ApprovalStatus) IsDecided() bool {
	return s == ApprovalApproved || s == ApprovalRejected
}

// Side names one of the two approving parties
type Side string

const (
	SideHost   Side = "host"
	SideLender Side = "lender"
)

// Role returns the role responsible for deciding the side
func (s Side) Role() Role {
	if s == SideHost {
		return RoleHost
	}
	return RoleLender
}

// SideForRole returns the side an approver role acts on
func SideForRole(r Role) (Side, bool) {
	switch r {
	case RoleHost:
		return SideHost, true
	case RoleLender:
		return SideLender, true
	}
	return "", false
}

// Decision is an approver's verdict on one side
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// IsValid returns true if the decision is approve or reject
func (d Decision) IsValid() bool {
	return d == DecisionApprove || d == DecisionReject
}

// Status returns the approval status a decision leads to
func (d Decision) Status() ApprovalStatus {
	if d == DecisionApprove {
		return ApprovalApproved
	}
	return ApprovalRejected
}

// Allocation says which party bears an expense
type Allocation string

const (
	AllocationLender Allocation = "lender"
	AllocationHost   Allocation = "host"
	AllocationMixed  Allocation = "mixed"
)

// IsValid returns true if the allocation is known
func (a Allocation) IsValid() bool {
	switch a {
	case AllocationLender, AllocationHost, AllocationMixed:
		return true
	}
	return false
}

// Expense category constants
const (
	ExpenseCategoryTravel        = "TRAVEL"
	ExpenseCategoryMeal          = "MEAL"
	ExpenseCategoryAccommodation = "ACCOMMODATION"
	ExpenseCategorySupplies      = "SUPPLIES"
	ExpenseCategoryTraining      = "TRAINING"
	ExpenseCategoryOther         = "OTHER"
)

// DateLayout is the wire and storage layout of calendar dates
const DateLayout = "2006-01-02"
