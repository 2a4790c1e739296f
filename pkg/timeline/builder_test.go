package timeline_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
	"github.com/dmitrymomot/sublife/pkg/timeline"
)

func testCatalog(t *testing.T) *catalog.StaticCatalog {
	t.Helper()
	cat, err := catalog.LoadFile("../catalog/testdata/catalog.yaml")
	require.NoError(t, err)
	return cat
}

var (
	shotgunMonthly = catalog.PlanSpecifier{Product: "Shotgun", BillingPeriod: catalog.Monthly, PriceList: "default"}
	pistolAnnual   = catalog.PlanSpecifier{Product: "Pistol", BillingPeriod: catalog.Annual, PriceList: "gunclubDiscount"}
)

func TestBuilder_Build(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := timeline.NewBuilder(testCatalog(t))
	start := date(2024, time.January, 10)

	t.Run("trial then evergreen", func(t *testing.T) {
		t.Parallel()
		entries, err := b.Build(ctx, eventstore.KindCreate, shotgunMonthly, start)
		require.NoError(t, err)
		assert.Equal(t, []timeline.Entry{
			{EffectiveDate: start, Kind: eventstore.KindCreate, PlanName: "shotgun-monthly", PhaseType: catalog.PhaseTrial},
			{EffectiveDate: start.AddDate(0, 0, 30), Kind: eventstore.KindPhase, PlanName: "shotgun-monthly", PhaseType: catalog.PhaseEvergreen},
		}, entries)
	})

	t.Run("trial discount evergreen", func(t *testing.T) {
		t.Parallel()
		entries, err := b.Build(ctx, eventstore.KindCreate, pistolAnnual, start)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, catalog.PhaseTrial, entries[0].PhaseType)
		assert.Equal(t, date(2024, time.February, 9), entries[1].EffectiveDate)
		assert.Equal(t, catalog.PhaseDiscount, entries[1].PhaseType)
		assert.Equal(t, date(2025, time.February, 9), entries[2].EffectiveDate)
		assert.Equal(t, catalog.PhaseEvergreen, entries[2].PhaseType)
	})

	t.Run("initial phase override", func(t *testing.T) {
		t.Parallel()
		spec := shotgunMonthly
		spec.PhaseType = catalog.PhaseEvergreen
		entries, err := b.Build(ctx, eventstore.KindCreate, spec, start)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, catalog.PhaseEvergreen, entries[0].PhaseType)
	})

	t.Run("change lead", func(t *testing.T) {
		t.Parallel()
		entries, err := b.Build(ctx, eventstore.KindChange, pistolAnnual, start)
		require.NoError(t, err)
		assert.Equal(t, eventstore.KindChange, entries[0].Kind)
		for _, e := range entries[1:] {
			assert.Equal(t, eventstore.KindPhase, e.Kind)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		first, err := b.Build(ctx, eventstore.KindCreate, pistolAnnual, start)
		require.NoError(t, err)
		second, err := b.Build(ctx, eventstore.KindCreate, pistolAnnual, start)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("unknown plan", func(t *testing.T) {
		t.Parallel()
		_, err := b.Build(ctx, eventstore.KindCreate, catalog.PlanSpecifier{Product: "Bazooka", BillingPeriod: catalog.Monthly}, start)
		assert.ErrorIs(t, err, catalog.ErrUnknownPlan)
		assert.ErrorIs(t, err, timeline.ErrFailedToBuild)
	})

	t.Run("invalid lead", func(t *testing.T) {
		t.Parallel()
		_, err := b.Build(ctx, eventstore.KindPhase, shotgunMonthly, start)
		assert.ErrorIs(t, err, timeline.ErrInvalidLeadKind)
	})

	t.Run("zero start", func(t *testing.T) {
		t.Parallel()
		_, err := b.Build(ctx, eventstore.KindCreate, shotgunMonthly, time.Time{})
		assert.ErrorIs(t, err, timeline.ErrZeroStartDate)
	})
}

func TestBuilder_MaxLength(t *testing.T) {
	t.Parallel()

	b := timeline.NewBuilder(testCatalog(t), timeline.WithMaxLength(2))
	entries, err := b.Build(context.Background(), eventstore.KindCreate, pistolAnnual, date(2024, time.January, 10))
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestBuilder_Continue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := timeline.NewBuilder(testCatalog(t))
	trialStart := date(2024, time.January, 10)

	entries, err := b.Continue(ctx, "pistol-annual-gunclub-discount", catalog.PhaseTrial, trialStart)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, date(2024, time.February, 9), entries[0].EffectiveDate)
	assert.Equal(t, catalog.PhaseDiscount, entries[0].PhaseType)
	assert.Equal(t, catalog.PhaseEvergreen, entries[1].PhaseType)

	entries, err = b.Continue(ctx, "pistol-annual-gunclub-discount", catalog.PhaseEvergreen, trialStart)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = b.Continue(ctx, "shotgun-monthly", catalog.PhaseDiscount, trialStart)
	assert.ErrorIs(t, err, catalog.ErrUnknownPhase)
}

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) ResolvePhase(ctx context.Context, spec catalog.PlanSpecifier, at time.Time) (catalog.ResolvedPhase, error) {
	args := m.Called(ctx, spec, at)
	return args.Get(0).(catalog.ResolvedPhase), args.Error(1)
}

func (m *mockCatalog) NextPhase(ctx context.Context, planName string, current catalog.PhaseType) (catalog.ResolvedPhase, bool, error) {
	args := m.Called(ctx, planName, current)
	return args.Get(0).(catalog.ResolvedPhase), args.Bool(1), args.Error(2)
}

func (m *mockCatalog) PlanPhase(ctx context.Context, planName string, phase catalog.PhaseType) (catalog.ResolvedPhase, error) {
	args := m.Called(ctx, planName, phase)
	return args.Get(0).(catalog.ResolvedPhase), args.Error(1)
}

func (m *mockCatalog) Plan(ctx context.Context, planName string) (catalog.Plan, error) {
	args := m.Called(ctx, planName)
	return args.Get(0).(catalog.Plan), args.Error(1)
}

func TestBuilder_CatalogFailures(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	start := date(2024, time.January, 10)

	t.Run("next phase lookup fails", func(t *testing.T) {
		t.Parallel()
		cat := &mockCatalog{}
		cat.On("ResolvePhase", ctx, shotgunMonthly, start).
			Return(catalog.ResolvedPhase{PlanName: "p", PhaseType: catalog.PhaseTrial, Duration: catalog.DaysOf(7)}, nil)
		cat.On("NextPhase", ctx, "p", catalog.PhaseTrial).
			Return(catalog.ResolvedPhase{}, false, errors.New("catalog offline"))

		_, err := timeline.NewBuilder(cat).Build(ctx, eventstore.KindCreate, shotgunMonthly, start)
		assert.ErrorIs(t, err, timeline.ErrFailedToBuild)
		cat.AssertExpectations(t)
	})

	t.Run("zero length phase", func(t *testing.T) {
		t.Parallel()
		cat := &mockCatalog{}
		cat.On("ResolvePhase", ctx, shotgunMonthly, start).
			Return(catalog.ResolvedPhase{PlanName: "p", PhaseType: catalog.PhaseTrial, Duration: catalog.DaysOf(0)}, nil)

		_, err := timeline.NewBuilder(cat).Build(ctx, eventstore.KindCreate, shotgunMonthly, start)
		assert.ErrorIs(t, err, catalog.ErrInvalidDuration)
	})

	t.Run("bounded last phase", func(t *testing.T) {
		t.Parallel()
		cat := &mockCatalog{}
		cat.On("ResolvePhase", ctx, shotgunMonthly, start).
			Return(catalog.ResolvedPhase{PlanName: "p", PhaseType: catalog.PhaseFixedTerm, Duration: catalog.YearsOf(1)}, nil)
		cat.On("NextPhase", ctx, "p", catalog.PhaseFixedTerm).
			Return(catalog.ResolvedPhase{}, false, nil)

		entries, err := timeline.NewBuilder(cat).Build(ctx, eventstore.KindCreate, shotgunMonthly, start)
		require.NoError(t, err)
		assert.Len(t, entries, 1)
	})

	assert.Panics(t, func() { timeline.NewBuilder(nil) })
}
