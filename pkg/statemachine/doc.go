// Package statemachine provides a stateless finite state machine: a table of
// transitions guarded by predicates and followed by actions.
//
// The table never stores a current state. Callers pass the state they derived
// and receive the target state or a typed error, which makes the machine safe
// to share between goroutines and suitable for event-sourced entities whose
// state is recomputed on every call.
//
//	const (
//		Active    = statemachine.StringState("active")
//		Cancelled = statemachine.StringState("cancelled")
//		Cancel    = statemachine.StringEvent("cancel")
//	)
//
//	sm := statemachine.MustNew(
//		statemachine.WithTransition(Active, Cancelled, Cancel,
//			statemachine.WithGuard(notInPast),
//		),
//	)
//
//	next, err := sm.Fire(ctx, Active, Cancel, req)
//	switch {
//	case statemachine.IsNoTransitionAvailableError(err):
//		// the event is not allowed in this state
//	case statemachine.IsTransitionRejectedError(err):
//		// a guard or action refused it
//	}
package statemachine
