package statemachine

import (
	"context"
)

// State represents a state in the state machine.
type State interface {
	Name() string
}

// Event represents an event that can trigger a state transition.
type Event interface {
	Name() string
}

// Action executes side effects during a transition. Returning an error rejects it.
type Action func(ctx context.Context, from, to State, event Event, data any) error

// Guard evaluates whether a transition is allowed for the given data.
type Guard func(ctx context.Context, from State, event Event, data any) bool

// Transition defines a state change triggered by an event.
type Transition struct {
	From    State
	To      State
	Event   Event
	Guards  []Guard  // All must pass for transition to proceed
	Actions []Action // Executed in order once guards pass
}

// Machine is a transition table that does not hold a current state.
// Callers derive the current state themselves (for example by projecting an
// event log) and ask the machine where an event leads.
type Machine interface {
	Fire(ctx context.Context, from State, event Event, data any) (State, error)
	CanFire(ctx context.Context, from State, event Event, data any) bool
	Events(from State) []Event
}

// StringState provides a simple string-based state implementation.
type StringState string

func (s StringState) Name() string {
	return string(s)
}

// StringEvent provides a simple string-based event implementation.
type StringEvent string

func (e StringEvent) Name() string {
	return string(e)
}
