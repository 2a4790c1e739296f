package statemachine

import (
	"fmt"
)

// Option configures a Table during construction.
type Option func(*Table) error

// TransitionOption configures guards and actions of a single transition.
type TransitionOption func(*Transition)

// New builds a transition table from options.
func New(opts ...Option) (*Table, error) {
	t := newTable()
	for _, opt := range opts {
		if err := opt(t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// MustNew is like New but panics when an option fails.
func MustNew(opts ...Option) *Table {
	t, err := New(opts...)
	if err != nil {
		panic(fmt.Sprintf("statemachine: %v", err))
	}
	return t
}

// WithTransition registers a transition.
func WithTransition(from, to State, event Event, opts ...TransitionOption) Option {
	return func(t *Table) error {
		tr := Transition{From: from, To: to, Event: event}
		for _, opt := range opts {
			opt(&tr)
		}
		return t.AddTransition(tr)
	}
}

// WithGuard adds a guard to a transition.
func WithGuard(guard Guard) TransitionOption {
	return func(tr *Transition) {
		if guard != nil {
			tr.Guards = append(tr.Guards, guard)
		}
	}
}

// WithAction adds an action to a transition.
func WithAction(action Action) TransitionOption {
	return func(tr *Transition) {
		if action != nil {
			tr.Actions = append(tr.Actions, action)
		}
	}
}
