package timeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
)

// MaxRecipeLength bounds the number of entries a single build emits.
const MaxRecipeLength = 10

// Entry is one dated transition of a computed timeline.
type Entry struct {
	EffectiveDate time.Time
	Kind          eventstore.Kind
	PlanName      string
	PhaseType     catalog.PhaseType
}

// Event converts the entry into an unsaved store event.
func (e Entry) Event() eventstore.Event {
	return eventstore.Event{
		Kind:          e.Kind,
		EffectiveDate: e.EffectiveDate,
		PlanName:      e.PlanName,
		PhaseType:     e.PhaseType,
	}
}

// Events converts entries into unsaved store events.
func Events(entries []Entry) []eventstore.Event {
	out := make([]eventstore.Event, len(entries))
	for i, e := range entries {
		out[i] = e.Event()
	}
	return out
}

// Builder expands plan recipes into timelines.
type Builder struct {
	catalog   catalog.Catalog
	maxLength int
}

// Option configures a Builder.
type Option func(*Builder)

// WithMaxLength overrides MaxRecipeLength.
func WithMaxLength(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.maxLength = n
		}
	}
}

// NewBuilder creates a Builder. Panics if cat is nil.
func NewBuilder(cat catalog.Catalog, opts ...Option) *Builder {
	if cat == nil {
		panic("timeline: catalog is required")
	}
	b := &Builder{catalog: cat, maxLength: MaxRecipeLength}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build computes the timeline of spec starting at start. The first entry is
// the lead transition (CREATE, CHANGE or REACTIVATE) effective at start; the
// following entries are PHASE transitions at each phase boundary.
func (b *Builder) Build(ctx context.Context, lead eventstore.Kind, spec catalog.PlanSpecifier, start time.Time) ([]Entry, error) {
	switch lead {
	case eventstore.KindCreate, eventstore.KindChange, eventstore.KindReactivate:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidLeadKind, lead)
	}
	if start.IsZero() {
		return nil, ErrZeroStartDate
	}

	initial, err := b.catalog.ResolvePhase(ctx, spec, start)
	if err != nil {
		return nil, errors.Join(ErrFailedToBuild, err)
	}

	entries := []Entry{{
		EffectiveDate: start.UTC(),
		Kind:          lead,
		PlanName:      initial.PlanName,
		PhaseType:     initial.PhaseType,
	}}
	return b.walk(ctx, entries, initial, start.UTC())
}

// Continue computes the PHASE entries that follow an in-flight phase which
// started at phaseStart. The phase itself is not emitted.
func (b *Builder) Continue(ctx context.Context, planName string, phase catalog.PhaseType, phaseStart time.Time) ([]Entry, error) {
	if phaseStart.IsZero() {
		return nil, ErrZeroStartDate
	}

	current, err := b.catalog.PlanPhase(ctx, planName, phase)
	if err != nil {
		return nil, errors.Join(ErrFailedToBuild, err)
	}
	return b.walk(ctx, nil, current, phaseStart.UTC())
}

// walk appends one entry per phase boundary after current.
func (b *Builder) walk(ctx context.Context, entries []Entry, current catalog.ResolvedPhase, phaseStart time.Time) ([]Entry, error) {
	for len(entries) < b.maxLength {
		if err := current.Duration.Validate(); err != nil {
			return nil, errors.Join(ErrFailedToBuild, err)
		}
		end, bounded := NextDate(phaseStart, current.Duration)
		if !bounded {
			break
		}

		next, ok, err := b.catalog.NextPhase(ctx, current.PlanName, current.PhaseType)
		if err != nil {
			return nil, errors.Join(ErrFailedToBuild, err)
		}
		if !ok {
			// A bounded last phase simply runs out; nothing follows it.
			break
		}

		entries = append(entries, Entry{
			EffectiveDate: end,
			Kind:          eventstore.KindPhase,
			PlanName:      next.PlanName,
			PhaseType:     next.PhaseType,
		})
		current, phaseStart = next, end
	}
	return entries, nil
}
