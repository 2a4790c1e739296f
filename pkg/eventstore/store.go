package eventstore

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store is the durable event log of subscriptions.
type Store interface {
	// AppendVersion atomically supersedes the timeline from a.AsOf and inserts
	// a.Events at a.Version. It returns the inserted events with their
	// store-assigned IDs and created dates.
	AppendVersion(ctx context.Context, a Append) ([]Event, error)

	GetSubscription(ctx context.Context, id uuid.UUID) (Subscription, error)

	// GetEvents returns every event, active or superseded, in effective-date order.
	GetEvents(ctx context.Context, id uuid.UUID) ([]Event, error)
	// GetActiveEvents returns only active events in effective-date order.
	GetActiveEvents(ctx context.Context, id uuid.UUID) ([]Event, error)
	// GetPendingEvents returns active, unprocessed events effective after asOf.
	GetPendingEvents(ctx context.Context, id uuid.UUID, asOf time.Time) ([]Event, error)

	// DueSubscriptions lists up to limit subscriptions with active,
	// unprocessed events effective at or before asOf.
	DueSubscriptions(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error)
	// ClaimDueEvents marks up to limit due events of one subscription as
	// processed and returns exactly the events this call flipped, in
	// effective-date order. Concurrent claims on the same subscription are
	// serialised. A store may skip a subscription another claim holds and
	// return nothing for it.
	ClaimDueEvents(ctx context.Context, id uuid.UUID, asOf time.Time, limit int) ([]Event, error)
}

// validateAppend checks the shape of an append request before touching storage.
func validateAppend(a Append) error {
	if a.SubscriptionID == uuid.Nil {
		return fmt.Errorf("%w: subscription id is required", ErrInvalidAppend)
	}
	if a.Version < InitialVersion {
		return fmt.Errorf("%w: version must be >= %d", ErrInvalidAppend, InitialVersion)
	}
	if len(a.Events) == 0 {
		return fmt.Errorf("%w: no events", ErrInvalidAppend)
	}

	asOf := normalize(a.AsOf)
	for i, e := range a.Events {
		if !e.Kind.Valid() {
			return fmt.Errorf("%w: unknown kind %q", ErrInvalidAppend, e.Kind)
		}
		if e.EffectiveDate.IsZero() {
			return fmt.Errorf("%w: event %d has no effective date", ErrInvalidAppend, i)
		}
		if normalize(e.EffectiveDate).Before(asOf) {
			return fmt.Errorf("%w: event %d is effective before %s", ErrInvalidAppend, i, asOf.Format(time.RFC3339))
		}
		if i > 0 && !normalize(e.EffectiveDate).After(normalize(a.Events[i-1].EffectiveDate)) {
			return fmt.Errorf("%w: effective dates must be strictly increasing", ErrInvalidAppend)
		}
		if e.Kind == KindCreate && (a.Version != InitialVersion || i != 0) {
			return fmt.Errorf("%w: CREATE must be the first event of version %d", ErrInvalidAppend, InitialVersion)
		}
	}

	if a.Version == InitialVersion && a.Events[0].Kind != KindCreate {
		return fmt.Errorf("%w: version %d must start with CREATE", ErrInvalidAppend, InitialVersion)
	}
	return nil
}

// prepareEvents stamps the new events with identity, version and audit fields.
// CREATE is applied and announced by the creating call itself, so it is
// born processed and never claimed.
func prepareEvents(a Append, createdAt time.Time) []Event {
	out := make([]Event, len(a.Events))
	for i, e := range a.Events {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		e.SubscriptionID = a.SubscriptionID
		e.Version = a.Version
		e.EffectiveDate = normalize(e.EffectiveDate)
		e.CreatedDate = createdAt
		e.IsActive = true
		e.Processed = false
		e.ProcessedDate = nil
		if e.Kind == KindCreate {
			e.Processed = true
			processedAt := createdAt
			e.ProcessedDate = &processedAt
		}
		out[i] = e
	}
	return out
}

// Clock returns the current system time. Stores use it only for audit fields.
type Clock func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// normalize brings instants to UTC at the microsecond precision of the
// durable store so that both implementations compare dates identically.
func normalize(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
