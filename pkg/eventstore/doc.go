// Package eventstore persists the versioned, append-only event log of
// subscriptions.
//
// Every subscription owns an ordered sequence of events (CREATE, PHASE,
// CHANGE, CANCEL, UNCANCEL, REACTIVATE). Events are never updated in place or
// deleted. A mutation appends a new version: every active event effective at
// or after the mutation date is marked inactive and the freshly computed
// timeline is inserted in one atomic step. The subscription's active version
// acts as a compare-and-swap token, so concurrent writers of the same
// subscription cannot both succeed.
//
// The scheduler consumes due events through ClaimDueEvents, which flips the
// processed flag from false to true and returns only the rows the caller
// flipped. That conditional update is the single point of truth for "already
// notified".
//
// Two implementations are provided: MemoryStore for tests and local runs, and
// PostgresStore backed by a pgx pool. Schema migrations for the latter are
// embedded in Migrations and applied with pg.Migrate.
package eventstore
