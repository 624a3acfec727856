package workflow

import "context"

// StateMachine tracks the current state of one request and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger has at least one configured transition
	CanFire(trigger Trigger) bool

	// Target returns the state the trigger would move to, evaluating guards
	Target(ctx context.Context, trigger Trigger) (State, error)

	// Fire executes the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger) error

	// PermittedTriggers returns the configured triggers for the current state, sorted
	PermittedTriggers() []Trigger
}
