package subscription

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
	"github.com/dmitrymomot/sublife/pkg/logger"
	"github.com/dmitrymomot/sublife/pkg/notify"
	"github.com/dmitrymomot/sublife/pkg/statemachine"
	"github.com/dmitrymomot/sublife/pkg/timeline"
)

// Service is the public API of the lifecycle engine.
type Service interface {
	CreateSubscription(ctx context.Context, p CreateParams) (MutationResult, error)
	ChangePlan(ctx context.Context, p ChangeParams) (MutationResult, error)
	Cancel(ctx context.Context, p CancelParams) (MutationResult, error)
	Uncancel(ctx context.Context, p UncancelParams) (MutationResult, error)
	Reactivate(ctx context.Context, p ReactivateParams) (MutationResult, error)

	GetSubscriptionState(ctx context.Context, id uuid.UUID, asOf time.Time) (State, error)
	GetEvents(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error)
	GetPendingEvents(ctx context.Context, id uuid.UUID, asOf time.Time) ([]eventstore.Event, error)
}

type service struct {
	store        eventstore.Store
	catalog      catalog.Catalog
	builder      *timeline.Builder
	lifecycle    statemachine.Machine
	changePolicy catalog.ChangePolicy
	publisher    notify.Publisher
	log          *slog.Logger
}

// NewService creates a Service. Panics if store or cat is nil.
func NewService(store eventstore.Store, cat catalog.Catalog, opts ...ServiceOption) Service {
	if store == nil {
		panic("subscription: event store is required")
	}
	if cat == nil {
		panic("subscription: catalog is required")
	}

	s := &service{
		store:        store,
		catalog:      cat,
		builder:      timeline.NewBuilder(cat),
		changePolicy: catalog.DefaultChangePolicy,
		publisher:    notify.Discard,
		log:          logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.lifecycle == nil {
		s.lifecycle = NewLifecycle(s.logTransition)
	}
	return s
}

// logTransition records every status transition the lifecycle accepts.
func (s *service) logTransition(ctx context.Context, from, to statemachine.State, event statemachine.Event, _ any) error {
	s.log.DebugContext(ctx, "lifecycle transition",
		slog.String("from", from.Name()),
		slog.String("to", to.Name()),
		slog.String("event", event.Name()),
	)
	return nil
}

// loaded is a subscription read at the start of a mutation.
type loaded struct {
	sub   eventstore.Subscription
	state State
	baseV int
}

// load reads the subscription, pins the CAS base and projects at date.
// Dates at or before the CREATE date are rejected.
func (s *service) load(ctx context.Context, id uuid.UUID, expectedVersion int, date time.Time) (loaded, error) {
	if id == uuid.Nil {
		return loaded{}, fmt.Errorf("%w: subscription id is required", ErrInvalidParams)
	}
	if date.IsZero() {
		return loaded{}, fmt.Errorf("%w: effective date is required", ErrInvalidEffectiveDate)
	}

	sub, err := s.store.GetSubscription(ctx, id)
	if err != nil {
		return loaded{}, err
	}

	base := sub.ActiveVersion
	if expectedVersion > 0 {
		if expectedVersion != sub.ActiveVersion {
			return loaded{}, fmt.Errorf("%w: expected version %d, found %d", eventstore.ErrVersionConflict, expectedVersion, sub.ActiveVersion)
		}
		base = expectedVersion
	}

	date = businessDate(date)
	if !date.After(sub.StartDate) {
		return loaded{}, fmt.Errorf("%w: %s is not after the subscription start %s",
			ErrInvalidEffectiveDate, date.Format(time.RFC3339), sub.StartDate.Format(time.RFC3339))
	}

	events, err := s.store.GetActiveEvents(ctx, id)
	if err != nil {
		return loaded{}, err
	}

	return loaded{sub: sub, state: Project(events, date), baseV: base}, nil
}

// write appends entries as the next version superseding the timeline from asOf.
func (s *service) write(ctx context.Context, op string, sub eventstore.Subscription, base int, asOf time.Time, entries []timeline.Entry) (MutationResult, error) {
	inserted, err := s.store.AppendVersion(ctx, eventstore.Append{
		SubscriptionID: sub.ID,
		BundleID:       sub.BundleID,
		Version:        base + 1,
		AsOf:           asOf,
		Events:         timeline.Events(entries),
	})
	if err != nil {
		s.log.WarnContext(ctx, "subscription mutation rejected",
			logger.Operation(op),
			logger.SubscriptionID(sub.ID),
			logger.Version(base+1),
			logger.Error(err),
		)
		return MutationResult{}, err
	}

	s.log.InfoContext(ctx, "subscription mutated",
		logger.Operation(op),
		logger.SubscriptionID(sub.ID),
		logger.Version(base+1),
		logger.Count(len(inserted)),
	)
	return MutationResult{SubscriptionID: sub.ID, Version: base + 1, Events: inserted}, nil
}

// CreateSubscription builds the initial timeline and writes it as version 1.
func (s *service) CreateSubscription(ctx context.Context, p CreateParams) (MutationResult, error) {
	if p.StartDate.IsZero() {
		return MutationResult{}, fmt.Errorf("%w: start date is required", ErrInvalidEffectiveDate)
	}
	if p.SubscriptionID == uuid.Nil {
		p.SubscriptionID = uuid.New()
	} else if _, err := s.store.GetSubscription(ctx, p.SubscriptionID); err == nil {
		return MutationResult{}, ErrSubscriptionAlreadyExists
	} else if !errors.Is(err, eventstore.ErrSubscriptionNotFound) {
		return MutationResult{}, err
	}
	if p.BundleID == uuid.Nil {
		p.BundleID = p.SubscriptionID
	}

	if err := checkTransition(ctx, s.lifecycle, StatusNotStarted, EventCreate); err != nil {
		return MutationResult{}, err
	}

	start := businessDate(p.StartDate)
	entries, err := s.builder.Build(ctx, eventstore.KindCreate, p.Plan, start)
	if err != nil {
		return MutationResult{}, err
	}

	res, err := s.write(ctx, "create", eventstore.Subscription{ID: p.SubscriptionID, BundleID: p.BundleID}, 0, start, entries)
	if errors.Is(err, eventstore.ErrVersionConflict) {
		// Someone else created the same id between the check and the append.
		return MutationResult{}, errors.Join(ErrSubscriptionAlreadyExists, err)
	}
	if err != nil {
		return MutationResult{}, err
	}

	s.announceCreate(ctx, res)
	return res, nil
}

// announceCreate publishes the CREATE written by a committed create call.
// CREATE is stored processed, so the scheduler never claims it; a publish
// failure is logged and does not undo the committed version.
func (s *service) announceCreate(ctx context.Context, res MutationResult) {
	for _, ev := range res.Events {
		if ev.Kind != eventstore.KindCreate {
			continue
		}
		if err := s.publisher.Publish(ctx, notify.FromEvent(ev)); err != nil {
			s.log.ErrorContext(ctx, "failed to publish create notification",
				logger.SubscriptionID(ev.SubscriptionID),
				logger.EventID(ev.ID),
				logger.Error(err),
			)
		}
		return
	}
}

// ChangePlan replaces the remaining timeline with the new plan's recipe.
func (s *service) ChangePlan(ctx context.Context, p ChangeParams) (MutationResult, error) {
	l, err := s.load(ctx, p.SubscriptionID, p.ExpectedVersion, p.EffectiveDate)
	if err != nil {
		return MutationResult{}, err
	}
	if err := checkTransition(ctx, s.lifecycle, l.state.Status, EventChange); err != nil {
		return MutationResult{}, err
	}

	spec := p.Plan
	if spec.PhaseType == "" {
		if spec.PhaseType, err = s.policyPhase(ctx, l.state.PlanName, spec); err != nil {
			return MutationResult{}, err
		}
	}

	date := businessDate(p.EffectiveDate)
	entries, err := s.builder.Build(ctx, eventstore.KindChange, spec, date)
	if err != nil {
		return MutationResult{}, err
	}
	return s.write(ctx, "change", l.sub, l.baseV, date, entries)
}

// policyPhase asks the change policy for the first phase of the target plan.
func (s *service) policyPhase(ctx context.Context, fromName string, to catalog.PlanSpecifier) (catalog.PhaseType, error) {
	target, err := s.catalog.ResolvePhase(ctx, to, time.Time{})
	if err != nil {
		return "", err
	}
	toPlan, err := s.catalog.Plan(ctx, target.PlanName)
	if err != nil {
		return "", err
	}
	fromPlan, err := s.catalog.Plan(ctx, fromName)
	if err != nil {
		return "", err
	}
	return s.changePolicy(fromPlan, toPlan), nil
}

// Cancel writes a single CANCEL that supersedes every later transition.
func (s *service) Cancel(ctx context.Context, p CancelParams) (MutationResult, error) {
	l, err := s.load(ctx, p.SubscriptionID, p.ExpectedVersion, p.EffectiveDate)
	if err != nil {
		return MutationResult{}, err
	}
	if err := checkTransition(ctx, s.lifecycle, l.state.Status, EventCancel); err != nil {
		return MutationResult{}, err
	}

	date := businessDate(p.EffectiveDate)
	entries := []timeline.Entry{{
		EffectiveDate: date,
		Kind:          eventstore.KindCancel,
		PlanName:      l.state.PlanName,
		PhaseType:     l.state.PhaseType,
	}}
	return s.write(ctx, "cancel", l.sub, l.baseV, date, entries)
}

// Uncancel revokes a pending cancellation and restores the phase boundaries
// the cancellation had superseded.
func (s *service) Uncancel(ctx context.Context, p UncancelParams) (MutationResult, error) {
	l, err := s.load(ctx, p.SubscriptionID, p.ExpectedVersion, p.RequestedDate)
	if err != nil {
		return MutationResult{}, err
	}
	if err := checkTransition(ctx, s.lifecycle, l.state.Status, EventUncancel); err != nil {
		return MutationResult{}, err
	}

	date := businessDate(p.RequestedDate)
	rest, err := s.builder.Continue(ctx, l.state.PlanName, l.state.PhaseType, l.state.PhaseStartDate)
	if err != nil {
		return MutationResult{}, err
	}

	entries := []timeline.Entry{{
		EffectiveDate: date,
		Kind:          eventstore.KindUncancel,
		PlanName:      l.state.PlanName,
		PhaseType:     l.state.PhaseType,
	}}
	for _, e := range rest {
		if e.EffectiveDate.After(date) {
			entries = append(entries, e)
		}
	}
	return s.write(ctx, "uncancel", l.sub, l.baseV, date, entries)
}

// Reactivate starts a new epoch on a cancelled subscription.
func (s *service) Reactivate(ctx context.Context, p ReactivateParams) (MutationResult, error) {
	l, err := s.load(ctx, p.SubscriptionID, p.ExpectedVersion, p.EffectiveDate)
	if err != nil {
		return MutationResult{}, err
	}
	if err := checkTransition(ctx, s.lifecycle, l.state.Status, EventReactivate); err != nil {
		return MutationResult{}, err
	}

	date := businessDate(p.EffectiveDate)
	if l.state.CancelDate != nil && !date.After(*l.state.CancelDate) {
		return MutationResult{}, fmt.Errorf("%w: reactivation must follow the cancellation at %s",
			ErrInvalidEffectiveDate, l.state.CancelDate.Format(time.RFC3339))
	}

	var spec catalog.PlanSpecifier
	if p.Plan != nil {
		spec = *p.Plan
	} else {
		last, err := s.catalog.Plan(ctx, l.state.PlanName)
		if err != nil {
			return MutationResult{}, err
		}
		spec = last.Specifier()
	}

	entries, err := s.builder.Build(ctx, eventstore.KindReactivate, spec, date)
	if err != nil {
		return MutationResult{}, err
	}
	return s.write(ctx, "reactivate", l.sub, l.baseV, date, entries)
}

// GetSubscriptionState projects the subscription as of asOf.
func (s *service) GetSubscriptionState(ctx context.Context, id uuid.UUID, asOf time.Time) (State, error) {
	sub, err := s.store.GetSubscription(ctx, id)
	if err != nil {
		return State{}, err
	}
	events, err := s.store.GetActiveEvents(ctx, id)
	if err != nil {
		return State{}, errors.Join(ErrFailedToProject, err)
	}
	st := Project(events, asOf)
	st.SubscriptionID = sub.ID
	st.StartDate = sub.StartDate
	return st, nil
}

// GetEvents returns the full audit log, superseded events included.
func (s *service) GetEvents(ctx context.Context, id uuid.UUID) ([]eventstore.Event, error) {
	if _, err := s.store.GetSubscription(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetEvents(ctx, id)
}

// GetPendingEvents returns future transitions the scheduler has not applied yet.
func (s *service) GetPendingEvents(ctx context.Context, id uuid.UUID, asOf time.Time) ([]eventstore.Event, error) {
	if _, err := s.store.GetSubscription(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetPendingEvents(ctx, id, asOf)
}

// businessDate brings t to the precision the event store keeps.
func businessDate(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
