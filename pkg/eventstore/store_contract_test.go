package eventstore_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
)

type storeFactory func(t *testing.T, clock eventstore.Clock) eventstore.Store

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func day(n int) time.Time {
	return t0.AddDate(0, 0, n)
}

func createAppend(id uuid.UUID) eventstore.Append {
	return eventstore.Append{
		SubscriptionID: id,
		BundleID:       uuid.New(),
		Version:        eventstore.InitialVersion,
		AsOf:           t0,
		Events: []eventstore.Event{
			{Kind: eventstore.KindCreate, EffectiveDate: t0, PlanName: "shotgun-monthly", PhaseType: catalog.PhaseTrial},
			{Kind: eventstore.KindPhase, EffectiveDate: day(30), PlanName: "shotgun-monthly", PhaseType: catalog.PhaseEvergreen},
		},
	}
}

func cancelAppend(id uuid.UUID, version int, at time.Time) eventstore.Append {
	return eventstore.Append{
		SubscriptionID: id,
		Version:        version,
		AsOf:           at,
		Events: []eventstore.Event{
			{Kind: eventstore.KindCancel, EffectiveDate: at, PlanName: "shotgun-monthly", PhaseType: catalog.PhaseTrial},
		},
	}
}

func kinds(events []eventstore.Event) []eventstore.Kind {
	out := make([]eventstore.Kind, len(events))
	for i, e := range events {
		out[i] = e.Kind
	}
	return out
}

func runStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	t.Run("create and read back", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		id := uuid.New()
		a := createAppend(id)

		inserted, err := store.AppendVersion(ctx, a)
		require.NoError(t, err)
		require.Len(t, inserted, 2)
		for _, e := range inserted {
			assert.NotEqual(t, uuid.Nil, e.ID)
			assert.Equal(t, id, e.SubscriptionID)
			assert.Equal(t, 1, e.Version)
			assert.True(t, e.IsActive)
			assert.False(t, e.CreatedDate.IsZero())
		}
		assert.True(t, inserted[0].Processed, "CREATE is applied by the creating call")
		assert.False(t, inserted[1].Processed)

		sub, err := store.GetSubscription(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, sub.ActiveVersion)
		assert.Equal(t, a.BundleID, sub.BundleID)
		assert.True(t, sub.StartDate.Equal(t0))

		active, err := store.GetActiveEvents(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []eventstore.Kind{eventstore.KindCreate, eventstore.KindPhase}, kinds(active))
		assert.Equal(t, inserted[1].ID, active[1].ID)
		assert.True(t, active[1].EffectiveDate.Equal(day(30)))
		assert.Equal(t, catalog.PhaseEvergreen, active[1].PhaseType)
	})

	t.Run("unknown subscription", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		_, err := store.GetSubscription(ctx, uuid.New())
		assert.ErrorIs(t, err, eventstore.ErrSubscriptionNotFound)
		_, err = store.GetEvents(ctx, uuid.New())
		assert.ErrorIs(t, err, eventstore.ErrSubscriptionNotFound)
	})

	t.Run("version conflicts", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		id := uuid.New()
		_, err := store.AppendVersion(ctx, createAppend(id))
		require.NoError(t, err)

		_, err = store.AppendVersion(ctx, createAppend(id))
		assert.ErrorIs(t, err, eventstore.ErrVersionConflict)

		_, err = store.AppendVersion(ctx, cancelAppend(id, 3, day(10)))
		assert.ErrorIs(t, err, eventstore.ErrVersionConflict)

		sub, err := store.GetSubscription(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, sub.ActiveVersion)
	})

	t.Run("append supersedes the future", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		id := uuid.New()
		_, err := store.AppendVersion(ctx, createAppend(id))
		require.NoError(t, err)

		_, err = store.AppendVersion(ctx, cancelAppend(id, 2, day(10)))
		require.NoError(t, err)

		active, err := store.GetActiveEvents(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []eventstore.Kind{eventstore.KindCreate, eventstore.KindCancel}, kinds(active))
		assert.Equal(t, 2, active[1].Version)

		all, err := store.GetEvents(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []eventstore.Kind{eventstore.KindCreate, eventstore.KindCancel, eventstore.KindPhase}, kinds(all))
		assert.False(t, all[2].IsActive)

		sub, err := store.GetSubscription(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 2, sub.ActiveVersion)
	})

	t.Run("pending events", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		id := uuid.New()
		_, err := store.AppendVersion(ctx, createAppend(id))
		require.NoError(t, err)

		pending, err := store.GetPendingEvents(ctx, id, t0)
		require.NoError(t, err)
		assert.Equal(t, []eventstore.Kind{eventstore.KindPhase}, kinds(pending))

		pending, err = store.GetPendingEvents(ctx, id, day(30))
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("claim is exactly once", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		id := uuid.New()
		_, err := store.AppendVersion(ctx, createAppend(id))
		require.NoError(t, err)

		due, err := store.DueSubscriptions(ctx, day(29), 1000)
		require.NoError(t, err)
		assert.NotContains(t, due, id)

		due, err = store.DueSubscriptions(ctx, day(31), 1000)
		require.NoError(t, err)
		assert.Contains(t, due, id)

		claimed, err := store.ClaimDueEvents(ctx, id, day(31), 10)
		require.NoError(t, err)
		require.Len(t, claimed, 1)
		assert.Equal(t, eventstore.KindPhase, claimed[0].Kind)
		assert.True(t, claimed[0].Processed)
		require.NotNil(t, claimed[0].ProcessedDate)

		again, err := store.ClaimDueEvents(ctx, id, day(31), 10)
		require.NoError(t, err)
		assert.Empty(t, again)

		due, err = store.DueSubscriptions(ctx, day(31), 1000)
		require.NoError(t, err)
		assert.NotContains(t, due, id)
	})

	t.Run("claim respects limit and order", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		id := uuid.New()
		_, err := store.AppendVersion(ctx, eventstore.Append{
			SubscriptionID: id,
			BundleID:       uuid.New(),
			Version:        1,
			AsOf:           t0,
			Events: []eventstore.Event{
				{Kind: eventstore.KindCreate, EffectiveDate: t0, PlanName: "pistol", PhaseType: catalog.PhaseTrial},
				{Kind: eventstore.KindPhase, EffectiveDate: day(30), PlanName: "pistol", PhaseType: catalog.PhaseDiscount},
				{Kind: eventstore.KindPhase, EffectiveDate: day(395), PlanName: "pistol", PhaseType: catalog.PhaseEvergreen},
			},
		})
		require.NoError(t, err)

		first, err := store.ClaimDueEvents(ctx, id, day(400), 1)
		require.NoError(t, err)
		require.Len(t, first, 1)
		assert.Equal(t, catalog.PhaseDiscount, first[0].PhaseType)

		second, err := store.ClaimDueEvents(ctx, id, day(400), 1)
		require.NoError(t, err)
		require.Len(t, second, 1)
		assert.Equal(t, catalog.PhaseEvergreen, second[0].PhaseType)
	})

	t.Run("processed events cannot be superseded", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		id := uuid.New()
		_, err := store.AppendVersion(ctx, createAppend(id))
		require.NoError(t, err)
		_, err = store.ClaimDueEvents(ctx, id, day(31), 10)
		require.NoError(t, err)

		_, err = store.AppendVersion(ctx, cancelAppend(id, 2, day(20)))
		assert.ErrorIs(t, err, eventstore.ErrHistoryRewrite)

		active, err := store.GetActiveEvents(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, []eventstore.Kind{eventstore.KindCreate, eventstore.KindPhase}, kinds(active))

		_, err = store.AppendVersion(ctx, cancelAppend(id, 2, day(40)))
		assert.NoError(t, err)
	})

	t.Run("invalid appends", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		id := uuid.New()
		_, err := store.AppendVersion(ctx, createAppend(id))
		require.NoError(t, err)

		// Collides with CREATE, which is never superseded.
		_, err = store.AppendVersion(ctx, cancelAppend(id, 2, t0))
		assert.ErrorIs(t, err, eventstore.ErrInvalidAppend)

		before := cancelAppend(id, 2, day(10))
		before.Events[0].EffectiveDate = day(5)
		_, err = store.AppendVersion(ctx, before)
		assert.ErrorIs(t, err, eventstore.ErrInvalidAppend)

		unordered := cancelAppend(id, 2, day(10))
		unordered.Events = append(unordered.Events, eventstore.Event{Kind: eventstore.KindUncancel, EffectiveDate: day(10)})
		_, err = store.AppendVersion(ctx, unordered)
		assert.ErrorIs(t, err, eventstore.ErrInvalidAppend)

		noCreate := createAppend(uuid.New())
		noCreate.Events = noCreate.Events[1:]
		_, err = store.AppendVersion(ctx, noCreate)
		assert.ErrorIs(t, err, eventstore.ErrInvalidAppend)

		secondCreate := cancelAppend(id, 2, day(10))
		secondCreate.Events[0].Kind = eventstore.KindCreate
		_, err = store.AppendVersion(ctx, secondCreate)
		assert.ErrorIs(t, err, eventstore.ErrInvalidAppend)

		sub, err := store.GetSubscription(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, 1, sub.ActiveVersion)
	})

	t.Run("created date is non-decreasing", func(t *testing.T) {
		t.Parallel()
		var calls atomic.Int64
		// The clock runs backwards; the store must not.
		clock := func() time.Time {
			return time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(calls.Add(1)) * time.Hour)
		}
		store := newStore(t, clock)
		id := uuid.New()
		first, err := store.AppendVersion(ctx, createAppend(id))
		require.NoError(t, err)
		second, err := store.AppendVersion(ctx, cancelAppend(id, 2, day(10)))
		require.NoError(t, err)
		assert.False(t, second[0].CreatedDate.Before(first[0].CreatedDate))
	})

	t.Run("concurrent appends serialise on version", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		id := uuid.New()
		_, err := store.AppendVersion(ctx, createAppend(id))
		require.NoError(t, err)

		const writers = 8
		var (
			wg        sync.WaitGroup
			succeeded atomic.Int32
			conflicts atomic.Int32
		)
		for i := range writers {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := store.AppendVersion(ctx, cancelAppend(id, 2, day(5+i)))
				switch {
				case err == nil:
					succeeded.Add(1)
				case assert.ErrorIs(t, err, eventstore.ErrVersionConflict):
					conflicts.Add(1)
				}
			}(i)
		}
		wg.Wait()

		assert.Equal(t, int32(1), succeeded.Load())
		assert.Equal(t, int32(writers-1), conflicts.Load())

		active, err := store.GetActiveEvents(ctx, id)
		require.NoError(t, err)
		assert.Len(t, active, 2)
	})

	t.Run("concurrent claims never share an event", func(t *testing.T) {
		t.Parallel()
		store := newStore(t, nil)
		id := uuid.New()
		_, err := store.AppendVersion(ctx, eventstore.Append{
			SubscriptionID: id,
			BundleID:       uuid.New(),
			Version:        1,
			AsOf:           t0,
			Events: []eventstore.Event{
				{Kind: eventstore.KindCreate, EffectiveDate: t0, PlanName: "p", PhaseType: catalog.PhaseTrial},
				{Kind: eventstore.KindPhase, EffectiveDate: day(1), PlanName: "p", PhaseType: catalog.PhaseDiscount},
				{Kind: eventstore.KindPhase, EffectiveDate: day(2), PlanName: "p", PhaseType: catalog.PhaseFixedTerm},
				{Kind: eventstore.KindPhase, EffectiveDate: day(3), PlanName: "p", PhaseType: catalog.PhaseEvergreen},
			},
		})
		require.NoError(t, err)

		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			seen = map[uuid.UUID]int{}
		)
		for range 6 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				claimed, err := store.ClaimDueEvents(ctx, id, day(10), 1)
				if !assert.NoError(t, err) {
					return
				}
				mu.Lock()
				defer mu.Unlock()
				for _, e := range claimed {
					seen[e.ID]++
				}
			}()
		}
		wg.Wait()

		// SKIP LOCKED may hand a claimer nothing while rows are still due; drain the rest.
		for {
			claimed, err := store.ClaimDueEvents(ctx, id, day(10), 1)
			require.NoError(t, err)
			if len(claimed) == 0 {
				break
			}
			seen[claimed[0].ID]++
		}

		assert.Len(t, seen, 3)
		for eventID, n := range seen {
			assert.Equal(t, 1, n, "event %s claimed more than once", eventID)
		}
	})
}
