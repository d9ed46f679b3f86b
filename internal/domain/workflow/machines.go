package workflow

// NewSideMachine builds the per-side approval machine: pending -> approved | rejected
func NewSideMachine(current State) StateMachine {
	b := NewBuilder()
	b.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateApproved)
	b.Configure(StateRejected)
	return b.Build(current)
}

// NewProposalMachine builds the schedule proposal machine: proposed -> approved | rejected
func NewProposalMachine(current State) StateMachine {
	b := NewBuilder()
	b.Configure(StateProposed).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)
	b.Configure(StateApproved)
	b.Configure(StateRejected)
	return b.Build(current)
}

// NewClosureMachine builds the sequential signature chain:
// awaiting_staff -> awaiting_host -> awaiting_lender -> closed
func NewClosureMachine(current State) StateMachine {
	b := NewBuilder()
	b.Configure(StateAwaitingStaff).
		Permit(TriggerSignStaff, StateAwaitingHost)
	b.Configure(StateAwaitingHost).
		Permit(TriggerSignHost, StateAwaitingLender)
	b.Configure(StateAwaitingLender).
		Permit(TriggerSignLender, StateClosed)
	b.Configure(StateClosed)
	return b.Build(current)
}
