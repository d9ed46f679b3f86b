package event

// Type identifies the type of domain event
type Type string

const (
	TypeProposalDecided Type = "proposal.decided"
	TypeEntryDecided    Type = "entry.decided"
	TypeReportSubmitted Type = "report.submitted"
	TypeReportDecided   Type = "report.decided"
	TypeClosureSigned   Type = "closure.signed"
	TypeClosureClosed   Type = "closure.closed"
	TypeWeeklyReminder  Type = "reminder.weekly"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeProposalDecided,
		TypeEntryDecided,
		TypeReportSubmitted,
		TypeReportDecided,
		TypeClosureSigned,
		TypeClosureClosed,
		TypeWeeklyReminder:
		return true
	default:
		return false
	}
}
