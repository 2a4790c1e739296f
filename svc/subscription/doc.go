// Package subscription applies lifecycle mutations to event-sourced
// subscriptions and projects their state as of any instant.
//
// State is never stored. Project folds the active events of a subscription in
// effective-date order, so the same event log always yields the same answer
// for the same instant. Mutations (ChangePlan, Cancel, Uncancel, Reactivate)
// are validated against the state projected at their own effective date, then
// written as a new version that supersedes the remaining future timeline.
//
// CREATE is never claimed by the scheduler. A service built WithPublisher
// publishes it once the first version is committed.
//
// Concurrent mutations of one subscription race on the store's version check:
// the loser gets eventstore.ErrVersionConflict and must re-read and retry.
//
//	svc := subscription.NewService(store, cat)
//	res, err := svc.Cancel(ctx, subscription.CancelParams{
//		SubscriptionID: id,
//		EffectiveDate:  effective,
//	})
//
// The service never reads the wall clock for business decisions; every
// operation takes an explicit business timestamp.
package subscription
