package eventstore

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in memory for tests and local development.
// A single mutex serialises writers, which gives AppendVersion and
// ClaimDueEvents the same atomicity a database transaction would.
type MemoryStore struct {
	mu          sync.RWMutex
	subs        map[uuid.UUID]*Subscription
	events      map[uuid.UUID][]*Event // insertion order
	lastCreated map[uuid.UUID]time.Time
	clock       Clock
}

var _ Store = (*MemoryStore)(nil)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the clock used for created and processed dates.
func WithMemoryClock(c Clock) MemoryOption {
	return func(s *MemoryStore) {
		if c != nil {
			s.clock = c
		}
	}
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		subs:        make(map[uuid.UUID]*Subscription),
		events:      make(map[uuid.UUID][]*Event),
		lastCreated: make(map[uuid.UUID]time.Time),
		clock:       utcNow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AppendVersion implements Store.
func (s *MemoryStore) AppendVersion(ctx context.Context, a Append) ([]Event, error) {
	if err := validateAppend(a); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, exists := s.subs[a.SubscriptionID]
	current := 0
	if exists {
		current = sub.ActiveVersion
	}
	if current != a.Version-1 {
		return nil, fmt.Errorf("%w: expected version %d, found %d", ErrVersionConflict, a.Version-1, current)
	}

	asOf := normalize(a.AsOf)
	var (
		superseded []*Event
		latest     time.Time
	)
	for _, e := range s.events[a.SubscriptionID] {
		if !e.IsActive {
			continue
		}
		if e.Kind != KindCreate && !e.EffectiveDate.Before(asOf) {
			if e.Processed {
				return nil, fmt.Errorf("%w: %s event %s at %s", ErrHistoryRewrite, e.Kind, e.ID, e.EffectiveDate.Format(time.RFC3339))
			}
			superseded = append(superseded, e)
			continue
		}
		if e.EffectiveDate.After(latest) {
			latest = e.EffectiveDate
		}
	}
	if exists && !normalize(a.Events[0].EffectiveDate).After(latest) {
		return nil, fmt.Errorf("%w: first event must be after %s", ErrInvalidAppend, latest.Format(time.RFC3339))
	}

	createdAt := normalize(s.clock())
	if last := s.lastCreated[a.SubscriptionID]; createdAt.Before(last) {
		createdAt = last
	}
	inserted := prepareEvents(a, createdAt)

	for _, e := range superseded {
		e.IsActive = false
	}
	for i := range inserted {
		e := inserted[i]
		s.events[a.SubscriptionID] = append(s.events[a.SubscriptionID], &e)
	}
	s.lastCreated[a.SubscriptionID] = createdAt

	if exists {
		sub.ActiveVersion = a.Version
	} else {
		s.subs[a.SubscriptionID] = &Subscription{
			ID:            a.SubscriptionID,
			BundleID:      a.BundleID,
			StartDate:     inserted[0].EffectiveDate,
			ActiveVersion: a.Version,
			CreatedDate:   createdAt,
		}
	}

	return cloneEvents(inserted), nil
}

// GetSubscription implements Store.
func (s *MemoryStore) GetSubscription(ctx context.Context, id uuid.UUID) (Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subs[id]
	if !ok {
		return Subscription{}, ErrSubscriptionNotFound
	}
	return *sub, nil
}

// GetEvents implements Store.
func (s *MemoryStore) GetEvents(ctx context.Context, id uuid.UUID) ([]Event, error) {
	return s.filter(id, func(*Event) bool { return true })
}

// GetActiveEvents implements Store.
func (s *MemoryStore) GetActiveEvents(ctx context.Context, id uuid.UUID) ([]Event, error) {
	return s.filter(id, func(e *Event) bool { return e.IsActive })
}

// GetPendingEvents implements Store.
func (s *MemoryStore) GetPendingEvents(ctx context.Context, id uuid.UUID, asOf time.Time) ([]Event, error) {
	asOf = normalize(asOf)
	return s.filter(id, func(e *Event) bool {
		return e.IsActive && !e.Processed && e.EffectiveDate.After(asOf)
	})
}

// DueSubscriptions implements Store. Subscriptions are ordered by their
// earliest due event.
func (s *MemoryStore) DueSubscriptions(ctx context.Context, asOf time.Time, limit int) ([]uuid.UUID, error) {
	if limit <= 0 {
		return nil, nil
	}
	asOf = normalize(asOf)

	s.mu.RLock()
	defer s.mu.RUnlock()

	type due struct {
		id    uuid.UUID
		first time.Time
	}
	var candidates []due
	for id, events := range s.events {
		var first time.Time
		for _, e := range events {
			if isDue(e, asOf) && (first.IsZero() || e.EffectiveDate.Before(first)) {
				first = e.EffectiveDate
			}
		}
		if !first.IsZero() {
			candidates = append(candidates, due{id: id, first: first})
		}
	}

	slices.SortFunc(candidates, func(a, b due) int {
		if c := a.first.Compare(b.first); c != 0 {
			return c
		}
		return slices.Compare(a.id[:], b.id[:])
	})
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	ids := make([]uuid.UUID, len(candidates))
	for i, c := range candidates {
		ids[i] = c.id
	}
	return ids, nil
}

// ClaimDueEvents implements Store.
func (s *MemoryStore) ClaimDueEvents(ctx context.Context, id uuid.UUID, asOf time.Time, limit int) ([]Event, error) {
	if limit <= 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	asOf = normalize(asOf)

	s.mu.Lock()
	defer s.mu.Unlock()

	due := make([]*Event, 0)
	for _, e := range s.events[id] {
		if isDue(e, asOf) {
			due = append(due, e)
		}
	}
	slices.SortStableFunc(due, func(a, b *Event) int {
		return a.EffectiveDate.Compare(b.EffectiveDate)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	processedAt := normalize(s.clock())
	claimed := make([]Event, len(due))
	for i, e := range due {
		e.Processed = true
		at := processedAt
		e.ProcessedDate = &at
		claimed[i] = cloneEvent(*e)
	}
	return claimed, nil
}

func (s *MemoryStore) filter(id uuid.UUID, keep func(*Event) bool) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.subs[id]; !ok {
		return nil, ErrSubscriptionNotFound
	}

	out := make([]Event, 0, len(s.events[id]))
	for _, e := range s.events[id] {
		if keep(e) {
			out = append(out, cloneEvent(*e))
		}
	}
	slices.SortStableFunc(out, func(a, b Event) int {
		return a.EffectiveDate.Compare(b.EffectiveDate)
	})
	return out, nil
}

func isDue(e *Event, asOf time.Time) bool {
	return e.IsActive && !e.Processed && !e.EffectiveDate.After(asOf)
}

func cloneEvent(e Event) Event {
	if e.ProcessedDate != nil {
		at := *e.ProcessedDate
		e.ProcessedDate = &at
	}
	return e
}

func cloneEvents(events []Event) []Event {
	out := make([]Event, len(events))
	for i, e := range events {
		out[i] = cloneEvent(e)
	}
	return out
}
