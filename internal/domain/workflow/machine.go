package workflow

import "context"

// StateMachine tracks the current state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is permitted in the current state
	CanFire(trigger Trigger) bool

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the triggers configured for the current state, sorted
	PermittedTriggers() []Trigger
}

// Transition describes one applied state change
type Transition struct {
	From    State
	To      State
	Trigger Trigger
}

// Observer is notified after every successful transition.
// Observers run synchronously on the firing goroutine and must not call back into the machine.
type Observer func(ctx context.Context, t Transition)
