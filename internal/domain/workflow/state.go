package workflow

import "github.com/garyjia/shared-staff/internal/domain/entity"

// State represents a state of one of the workflow machines
type State string

const (
	// per-side approval and schedule proposal
	StatePending  State = "pending"
	StateProposed State = "proposed"
	StateApproved State = "approved"
	StateRejected State = "rejected"

	// monthly closure signature chain
	StateAwaitingStaff  State = "awaiting_staff"
	StateAwaitingHost   State = "awaiting_host"
	StateAwaitingLender State = "awaiting_lender"
	StateClosed         State = "closed"
)

var validStates = map[State]bool{
	StatePending:        true,
	StateProposed:       true,
	StateApproved:       true,
	StateRejected:       true,
	StateAwaitingStaff:  true,
	StateAwaitingHost:   true,
	StateAwaitingLender: true,
	StateClosed:         true,
}

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
	StateClosed:   true,
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}

// FromApproval maps a side approval status onto a machine state
func FromApproval(s entity.ApprovalStatus) State {
	return State(s)
}

// FromProposal maps a proposal status onto a machine state
func FromProposal(s entity.ProposalStatus) State {
	return State(s)
}

// FromClosure maps a closure status onto a machine state
func FromClosure(s entity.ClosureStatus) State {
	return State(s)
}
