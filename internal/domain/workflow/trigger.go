package workflow

// Trigger represents an event that can cause a state transition
type Trigger string

const (
	TriggerApprove    Trigger = "approve"
	TriggerReject     Trigger = "reject"
	TriggerSignStaff  Trigger = "sign_staff"
	TriggerSignHost   Trigger = "sign_host"
	TriggerSignLender Trigger = "sign_lender"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
