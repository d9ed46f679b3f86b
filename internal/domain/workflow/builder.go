package workflow

import (
	"context"
	"fmt"
)

// StateMachineBuilder collects the transition table of a machine
type StateMachineBuilder interface {
	// Configure returns the configuration of the given source state
	Configure(state State) StateConfiguration

	// Build creates a machine positioned on the initial state
	Build(initialState State) StateMachine
}

// StateConfiguration declares the triggers accepted by one source state
type StateConfiguration interface {
	// Permit lets trigger move the machine to toState
	Permit(trigger Trigger, toState State) StateConfiguration
}

// table maps a source state and a trigger to the target state
type table map[State]map[Trigger]State

type stateConfig struct {
	targets map[Trigger]State
}

type stateMachineBuilder struct {
	table table
}

type stateMachine struct {
	current State
	table   table
}

// NewBuilder creates an empty builder
func NewBuilder() StateMachineBuilder {
	return &stateMachineBuilder{table: make(table)}
}

func (b *stateMachineBuilder) Configure(state State) StateConfiguration {
	if !state.IsValid() {
		panic(fmt.Sprintf("invalid state: %s", state))
	}
	targets, ok := b.table[state]
	if !ok {
		targets = make(map[Trigger]State)
		b.table[state] = targets
	}
	return &stateConfig{targets: targets}
}

// Build copies the table so later Configure calls do not leak into built machines
func (b *stateMachineBuilder) Build(initialState State) StateMachine {
	if !initialState.IsValid() {
		panic(fmt.Sprintf("invalid initial state: %s", initialState))
	}

	copied := make(table, len(b.table))
	for state, targets := range b.table {
		t := make(map[Trigger]State, len(targets))
		for trigger, to := range targets {
			t[trigger] = to
		}
		copied[state] = t
	}
	return &stateMachine{current: initialState, table: copied}
}

// Permit panics when the trigger already has a target: a trigger leads to one state
func (c *stateConfig) Permit(trigger Trigger, toState State) StateConfiguration {
	if !toState.IsValid() {
		panic(fmt.Sprintf("invalid target state: %s", toState))
	}
	if prev, dup := c.targets[trigger]; dup {
		panic(fmt.Sprintf("trigger %s already leads to %s", trigger, prev))
	}
	c.targets[trigger] = toState
	return c
}

func (m *stateMachine) State() State {
	return m.current
}

func (m *stateMachine) CanFire(trigger Trigger) bool {
	_, ok := m.table[m.current][trigger]
	return ok
}

func (m *stateMachine) Fire(_ context.Context, trigger Trigger) error {
	to, ok := m.table[m.current][trigger]
	if !ok {
		return fmt.Errorf("%w: cannot fire %s from %s", ErrInvalidTransition, trigger, m.current)
	}
	m.current = to
	return nil
}
