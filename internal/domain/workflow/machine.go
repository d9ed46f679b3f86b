package workflow

import (
	"context"
	"errors"
)

// ErrInvalidTransition is returned when a trigger is not permitted in the current state
var ErrInvalidTransition = errors.New("invalid state transition")

// StateMachine tracks the current state of one record and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire reports whether the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire moves to the target state of the trigger, or returns ErrInvalidTransition
	Fire(ctx context.Context, trigger Trigger) error
}
