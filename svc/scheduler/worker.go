package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sublife/pkg/logger"
)

// Worker calls Scheduler.Tick on an interval using the wall clock.
// When a tick reports a full batch the next one starts immediately.
type Worker struct {
	scheduler *Scheduler
	interval  time.Duration
	clock     func() time.Time
	id        string
	log       *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker creates a Worker. Panics if s is nil.
func NewWorker(s *Scheduler, opts ...WorkerOption) *Worker {
	if s == nil {
		panic("scheduler: scheduler is required")
	}
	w := &Worker{
		scheduler: s,
		interval:  time.Second,
		clock:     time.Now,
		id:        uuid.NewString(),
		log:       logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ID identifies the worker in logs.
func (w *Worker) ID() string { return w.id }

// Start begins ticking in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return ErrWorkerStarted
	}

	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	go w.run(ctx, w.done)

	w.log.InfoContext(ctx, "scheduler worker started",
		logger.WorkerID(w.id),
		logger.Duration(w.interval),
	)
	return nil
}

// Stop cancels the loop and waits for the tick in progress to finish.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	cancel()
	<-done

	w.log.Info("scheduler worker stopped", logger.WorkerID(w.id))
	return nil
}

// Run starts the worker and returns a function suitable for errgroup.
// The function blocks until ctx is done, then stops the worker.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()
		return w.Stop()
	}
}

func (w *Worker) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// A started tick runs to completion so claimed events are not
		// abandoned between the claim and the publish.
		tickCtx := logger.WithAttrs(context.WithoutCancel(ctx), logger.WorkerID(w.id))
		res, err := w.scheduler.Tick(tickCtx, w.clock())
		if err != nil {
			w.log.ErrorContext(tickCtx, "scheduler tick failed", logger.Error(err))
		} else if res.Claimed > 0 {
			w.log.InfoContext(tickCtx, "scheduler tick",
				logger.AsOf(res.AsOf),
				logger.Count(res.Claimed),
				slog.Int("published", res.Published),
				slog.Int("failed", res.Failed),
			)
		}

		next := w.interval
		if err == nil && res.More {
			next = 0
		}
		timer.Reset(next)
	}
}
