package statemachine

import (
	"context"
	"errors"
	"sync"
)

// Table is a concurrency-safe Machine keyed by [from][event].
type Table struct {
	mu          sync.RWMutex
	transitions map[string]map[string][]Transition
	order       map[string][]Event
}

var _ Machine = (*Table)(nil)

func newTable() *Table {
	return &Table{
		transitions: make(map[string]map[string][]Transition),
		order:       make(map[string][]Event),
	}
}

// AddTransition registers a transition. Several transitions may share the
// same from/event pair; the first one whose guards pass wins.
func (t *Table) AddTransition(tr Transition) error {
	if tr.From == nil || tr.To == nil || tr.Event == nil {
		return ErrInvalidTransition
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	from, event := tr.From.Name(), tr.Event.Name()
	if _, ok := t.transitions[from]; !ok {
		t.transitions[from] = make(map[string][]Transition)
	}
	if len(t.transitions[from][event]) == 0 {
		t.order[from] = append(t.order[from], tr.Event)
	}
	t.transitions[from][event] = append(t.transitions[from][event], tr)
	return nil
}

// Fire returns the state event leads to from the given state.
func (t *Table) Fire(ctx context.Context, from State, event Event, data any) (State, error) {
	if from == nil {
		return nil, ErrInvalidState
	}
	if event == nil {
		return nil, ErrInvalidEvent
	}

	tr, err := t.match(ctx, from, event, data)
	if err != nil {
		return nil, err
	}

	for _, action := range tr.Actions {
		if action == nil {
			continue
		}
		if err := action(ctx, from, tr.To, event, data); err != nil {
			return nil, errors.Join(NewErrTransitionRejected(from.Name(), event.Name()), err)
		}
	}
	return tr.To, nil
}

// CanFire reports whether Fire would find a transition, without running actions.
func (t *Table) CanFire(ctx context.Context, from State, event Event, data any) bool {
	if from == nil || event == nil {
		return false
	}
	_, err := t.match(ctx, from, event, data)
	return err == nil
}

// Events lists the events registered for a state in registration order.
func (t *Table) Events(from State) []Event {
	if from == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]Event(nil), t.order[from.Name()]...)
}

func (t *Table) match(ctx context.Context, from State, event Event, data any) (Transition, error) {
	t.mu.RLock()
	candidates := t.transitions[from.Name()][event.Name()]
	t.mu.RUnlock()

	if len(candidates) == 0 {
		return Transition{}, NewErrNoTransitionAvailable(from.Name(), event.Name())
	}

	for _, tr := range candidates {
		if guardsPass(ctx, tr, from, event, data) {
			return tr, nil
		}
	}
	return Transition{}, NewErrTransitionRejected(from.Name(), event.Name())
}

func guardsPass(ctx context.Context, tr Transition, from State, event Event, data any) bool {
	for _, guard := range tr.Guards {
		if guard != nil && !guard(ctx, from, event, data) {
			return false
		}
	}
	return true
}
