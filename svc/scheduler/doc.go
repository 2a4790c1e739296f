// Package scheduler delivers due subscription transitions.
//
// Scheduler.Tick lists subscriptions with active, unprocessed events effective
// at or before asOf, claims those events in the store (processed false to
// true) and publishes one notification per claimed event in effective-date
// order. The claim is the only coordination point, so any number of
// schedulers may tick the same store concurrently: each event is claimed by
// exactly one of them.
//
// Notifications of one subscription are published in effective-date order
// within a claim, and claims of one subscription never overlap. Across
// workers, order holds as long as a subscription's due backlog fits in one
// claim: with more than WithClaimLimit due events, a second worker may claim
// the remainder while the first is still publishing. Deployments that need
// strict per-subscription order under such backlogs run a single worker or
// raise the claim limit.
//
// Delivery is at-most-once from the scheduler's side. A publish failure after
// a successful claim is logged and counted but never retried or rolled back;
// wrap the publisher with notify.WithRetry to retry before the failure is final.
//
// Worker runs Tick on an interval with the wall clock and fits errgroup:
//
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(scheduler.NewWorker(s).Run(ctx))
package scheduler
