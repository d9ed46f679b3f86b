package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StatePending, false},
		{StateProposed, false},
		{StateAwaitingStaff, false},
		{StateAwaitingHost, false},
		{StateAwaitingLender, false},
		{StateApproved, true},
		{StateRejected, true},
		{StateClosed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"valid state", StatePending, true},
		{"valid state", StateClosed, true},
		{"invalid state", State("refused"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTrigger_String(t *testing.T) {
	if got := TriggerSignHost.String(); got != "sign_host" {
		t.Errorf("Trigger.String() = %v, want %v", got, "sign_host")
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StatePending)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	if config2 := builder.Configure(StatePending); config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(State("INVALID"))
}

func TestStateConfiguration_PermitPanicsOnDuplicateTrigger(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic when a trigger already has a target")
		}
	}()

	builder.Configure(StatePending).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerApprove, StateRejected)
}

func TestBuilder_BuildCopiesTable(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePending).Permit(TriggerApprove, StateApproved)
	machine := builder.Build(StatePending)

	builder.Configure(StatePending).Permit(TriggerReject, StateRejected)

	if machine.CanFire(TriggerReject) {
		t.Error("built machine should not see transitions configured after Build()")
	}
	if !machine.CanFire(TriggerApprove) {
		t.Error("built machine should keep its transitions")
	}
}

func TestStateConfiguration_PermitPanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	builder.Configure(StatePending).Permit(TriggerApprove, State("INVALID"))
}

func TestSideMachine(t *testing.T) {
	machine := NewSideMachine(StatePending)

	if !machine.CanFire(TriggerApprove) || !machine.CanFire(TriggerReject) {
		t.Error("pending side should accept approve and reject")
	}
	if machine.CanFire(TriggerSignStaff) {
		t.Error("side machine should not accept closure triggers")
	}

	if err := machine.Fire(context.Background(), TriggerReject); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}
	if machine.State() != StateRejected {
		t.Errorf("State = %v, want %v", machine.State(), StateRejected)
	}

	err := machine.Fire(context.Background(), TriggerApprove)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() on decided side error = %v, want %v", err, ErrInvalidTransition)
	}
	if machine.CanFire(TriggerApprove) || machine.CanFire(TriggerReject) {
		t.Error("decided side should accept no trigger")
	}
}

func TestClosureMachine_Chain(t *testing.T) {
	machine := NewClosureMachine(StateAwaitingStaff)

	steps := []struct {
		trigger       Trigger
		expectedState State
	}{
		{TriggerSignStaff, StateAwaitingHost},
		{TriggerSignHost, StateAwaitingLender},
		{TriggerSignLender, StateClosed},
	}

	for i, step := range steps {
		if err := machine.Fire(context.Background(), step.trigger); err != nil {
			t.Fatalf("Step %d: Fire(%v) failed: %v", i, step.trigger, err)
		}
		if machine.State() != step.expectedState {
			t.Errorf("Step %d: State = %v, want %v", i, machine.State(), step.expectedState)
		}
	}

	if !machine.State().IsTerminal() {
		t.Error("closed should be terminal")
	}
}

func TestClosureMachine_OutOfOrder(t *testing.T) {
	machine := NewClosureMachine(StateAwaitingStaff)

	for _, trigger := range []Trigger{TriggerSignHost, TriggerSignLender} {
		if err := machine.Fire(context.Background(), trigger); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Fire(%v) error = %v, want %v", trigger, err, ErrInvalidTransition)
		}
	}
	if machine.State() != StateAwaitingStaff {
		t.Errorf("State = %v, want %v", machine.State(), StateAwaitingStaff)
	}
}

func TestStateMachine_Immutability(t *testing.T) {
	machine1 := NewProposalMachine(StateProposed)
	machine2 := NewProposalMachine(StateProposed)

	if err := machine1.Fire(context.Background(), TriggerApprove); err != nil {
		t.Fatalf("Fire() failed: %v", err)
	}

	if machine2.State() != StateProposed {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), StateProposed)
	}
	if machine1.State() != StateApproved {
		t.Errorf("machine1 state = %v, want %v", machine1.State(), StateApproved)
	}
}
