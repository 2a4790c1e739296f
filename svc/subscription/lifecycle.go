package subscription

import (
	"context"
	"errors"

	"github.com/dmitrymomot/sublife/pkg/statemachine"
)

// Lifecycle events fired against the projected status.
const (
	EventCreate     = statemachine.StringEvent("create")
	EventChange     = statemachine.StringEvent("change")
	EventCancel     = statemachine.StringEvent("cancel")
	EventUncancel   = statemachine.StringEvent("uncancel")
	EventReactivate = statemachine.StringEvent("reactivate")
)

// NewLifecycle returns the transition table of subscription statuses.
// Actions run on every accepted transition; an action error rejects it.
//
//	NOT_STARTED          --create-->     ACTIVE
//	ACTIVE               --change-->     ACTIVE
//	ACTIVE               --cancel-->     CANCELLED
//	PENDING_CANCELLATION --uncancel-->   ACTIVE
//	CANCELLED            --reactivate--> ACTIVE
func NewLifecycle(actions ...statemachine.Action) statemachine.Machine {
	opts := make([]statemachine.TransitionOption, 0, len(actions))
	for _, a := range actions {
		opts = append(opts, statemachine.WithAction(a))
	}
	return statemachine.MustNew(
		statemachine.WithTransition(StatusNotStarted, StatusActive, EventCreate, opts...),
		statemachine.WithTransition(StatusActive, StatusActive, EventChange, opts...),
		statemachine.WithTransition(StatusActive, StatusCancelled, EventCancel, opts...),
		statemachine.WithTransition(StatusPendingCancellation, StatusActive, EventUncancel, opts...),
		statemachine.WithTransition(StatusCancelled, StatusActive, EventReactivate, opts...),
	)
}

// checkTransition fires event from the projected status and maps a refusal
// to ErrInvalidTransition.
func checkTransition(ctx context.Context, m statemachine.Machine, from Status, event statemachine.Event) error {
	if _, err := m.Fire(ctx, from, event, nil); err != nil {
		return errors.Join(ErrInvalidTransition, err)
	}
	return nil
}
