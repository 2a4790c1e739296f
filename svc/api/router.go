package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/sublife/pkg/binder"
	"github.com/dmitrymomot/sublife/pkg/httpserver"
	"github.com/dmitrymomot/sublife/pkg/logger"
	"github.com/dmitrymomot/sublife/pkg/requestid"
	"github.com/dmitrymomot/sublife/svc/subscription"
)

const defaultMaxBodyBytes = binder.DefaultMaxJSONSize

type api struct {
	svc          subscription.Service
	log          *slog.Logger
	checks       []httpserver.Check
	checkTimeout time.Duration
	metrics      http.Handler
	maxBodyBytes int64
	timeout      time.Duration
	bind         func(r *http.Request, v any) error
}

// Option configures the router.
type Option func(*api)

func WithLogger(l *slog.Logger) Option {
	return func(a *api) {
		if l != nil {
			a.log = l
		}
	}
}

// WithHealthChecks adds readiness probes to GET /healthz.
func WithHealthChecks(checks ...httpserver.Check) Option {
	return func(a *api) { a.checks = append(a.checks, checks...) }
}

// WithMetricsHandler mounts h at GET /metrics, typically promhttp.HandlerFor.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *api) { a.metrics = h }
}

// WithMaxBodyBytes limits request bodies. Defaults to 1 MiB.
func WithMaxBodyBytes(n int64) Option {
	return func(a *api) {
		if n > 0 {
			a.maxBodyBytes = n
		}
	}
}

// WithRequestTimeout cancels the request context after d.
func WithRequestTimeout(d time.Duration) Option {
	return func(a *api) { a.timeout = d }
}

// NewRouter returns the HTTP handler of the subscription API.
// Panics if svc is nil.
func NewRouter(svc subscription.Service, opts ...Option) http.Handler {
	if svc == nil {
		panic("api: subscription service is required")
	}
	a := &api{
		svc:          svc,
		log:          logger.Discard(),
		checkTimeout: 2 * time.Second,
		maxBodyBytes: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.bind = binder.JSON(binder.WithMaxSize(a.maxBodyBytes))

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(a.logRequests)
	r.Use(middleware.Recoverer)
	if a.timeout > 0 {
		r.Use(middleware.Timeout(a.timeout))
	}

	r.Get("/healthz", httpserver.HealthCheckHandler(a.log, a.checkTimeout, a.checks...))
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics)
	}

	r.Route("/subscriptions", func(r chi.Router) {
		r.With(a.limitBody).Post("/", a.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(a.limitBody)
				r.Post("/change", a.change)
				r.Post("/cancel", a.cancel)
				r.Post("/uncancel", a.uncancel)
				r.Post("/reactivate", a.reactivate)
			})
			r.Get("/state", a.state)
			r.Get("/events", a.events)
			r.Get("/pending", a.pending)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		a.fail(w, r, ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		a.fail(w, r, HTTPError{Code: http.StatusMethodNotAllowed, Key: "method_not_allowed"})
	})

	return r
}
