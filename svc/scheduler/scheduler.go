package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/sublife/pkg/eventstore"
	"github.com/dmitrymomot/sublife/pkg/logger"
	"github.com/dmitrymomot/sublife/pkg/notify"
)

const (
	DefaultBatchSize  = 100
	DefaultClaimLimit = 50
)

// TickResult summarises one tick.
type TickResult struct {
	AsOf          time.Time
	Subscriptions int
	Claimed       int
	Published     int
	Failed        int
	// More is set when the batch was full and due events may remain.
	More bool
}

// Scheduler claims due events and publishes their notifications.
type Scheduler struct {
	store      eventstore.Store
	publisher  notify.Publisher
	batchSize  int
	claimLimit int
	log        *slog.Logger
	metrics    *Metrics
}

// New creates a Scheduler. Panics if store or publisher is nil.
func New(store eventstore.Store, publisher notify.Publisher, opts ...Option) *Scheduler {
	if store == nil {
		panic("scheduler: event store is required")
	}
	if publisher == nil {
		panic("scheduler: publisher is required")
	}
	s := &Scheduler{
		store:      store,
		publisher:  publisher,
		batchSize:  DefaultBatchSize,
		claimLimit: DefaultClaimLimit,
		log:        logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tick applies every transition due at asOf, up to the batch limits.
// Store errors on one subscription do not stop the others; they are joined
// into the returned error together with ErrTickFailed. Publish failures are
// reported only through the result, logs and metrics.
func (s *Scheduler) Tick(ctx context.Context, asOf time.Time) (TickResult, error) {
	started := time.Now()
	asOf = asOf.UTC()
	res := TickResult{AsOf: asOf}

	ids, err := s.store.DueSubscriptions(ctx, asOf, s.batchSize)
	if err != nil {
		s.metrics.observeClaimFailed()
		return res, errors.Join(ErrTickFailed, err)
	}
	res.Subscriptions = len(ids)
	res.More = len(ids) == s.batchSize

	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		claimed, err := s.store.ClaimDueEvents(ctx, id, asOf, s.claimLimit)
		if err != nil {
			s.metrics.observeClaimFailed()
			s.log.ErrorContext(ctx, "failed to claim due events",
				logger.SubscriptionID(id),
				logger.AsOf(asOf),
				logger.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		if len(claimed) == s.claimLimit {
			res.More = true
		}

		for _, ev := range claimed {
			res.Claimed++
			s.metrics.observeClaimed(ev.Kind.String())
			s.publish(ctx, ev, &res)
		}
	}

	s.metrics.observeTick(asOf, time.Since(started))
	if len(errs) > 0 {
		return res, errors.Join(append([]error{ErrTickFailed}, errs...)...)
	}
	return res, nil
}

func (s *Scheduler) publish(ctx context.Context, ev eventstore.Event, res *TickResult) {
	if err := s.publisher.Publish(ctx, notify.FromEvent(ev)); err != nil {
		res.Failed++
		s.metrics.observePublishFailed(ev.Kind.String())
		s.log.ErrorContext(ctx, "transition notification lost",
			logger.SubscriptionID(ev.SubscriptionID),
			logger.EventID(ev.ID),
			logger.Kind(ev.Kind.String()),
			logger.Version(ev.Version),
			logger.Error(err),
		)
		return
	}
	res.Published++
	s.metrics.observePublished(ev.Kind.String())
	s.log.DebugContext(ctx, "transition notified",
		logger.SubscriptionID(ev.SubscriptionID),
		logger.EventID(ev.ID),
		logger.Kind(ev.Kind.String()),
	)
}
