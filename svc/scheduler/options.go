package scheduler

import (
	"log/slog"
	"time"
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithBatchSize bounds the subscriptions handled per tick.
func WithBatchSize(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithClaimLimit bounds the events claimed per subscription per tick.
func WithClaimLimit(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.claimLimit = n
		}
	}
}

// WithLogger sets the logger for tick summaries and publish failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics records tick outcomes in m. A nil m disables metrics.
func WithMetrics(m *Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker)

// WithInterval sets the pause between ticks when there is no backlog.
func WithInterval(d time.Duration) WorkerOption {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

// WithClock sets the source of the asOf instant passed to Tick.
func WithClock(clock func() time.Time) WorkerOption {
	return func(w *Worker) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithWorkerID names the worker in logs. Defaults to a random UUID.
func WithWorkerID(id string) WorkerOption {
	return func(w *Worker) {
		if id != "" {
			w.id = id
		}
	}
}

// WithWorkerLogger sets the logger for tick errors and claimed counts.
func WithWorkerLogger(l *slog.Logger) WorkerOption {
	return func(w *Worker) {
		if l != nil {
			w.log = l
		}
	}
}
