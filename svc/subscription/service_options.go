package subscription

import (
	"log/slog"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/notify"
	"github.com/dmitrymomot/sublife/pkg/statemachine"
	"github.com/dmitrymomot/sublife/pkg/timeline"
)

// ServiceOption configures optional service dependencies.
type ServiceOption func(*service)

// WithChangePolicy sets the policy choosing the first phase of a new plan.
func WithChangePolicy(policy catalog.ChangePolicy) ServiceOption {
	return func(s *service) {
		if policy != nil {
			s.changePolicy = policy
		}
	}
}

// WithPublisher sets the sink notified when a subscription is created.
// Later transitions are published by the scheduler.
func WithPublisher(p notify.Publisher) ServiceOption {
	return func(s *service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithLogger sets the logger used for mutation audit records.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithBuilder replaces the timeline builder, e.g. to change the recipe length.
func WithBuilder(b *timeline.Builder) ServiceOption {
	return func(s *service) {
		if b != nil {
			s.builder = b
		}
	}
}

// WithLifecycle replaces the status transition table.
func WithLifecycle(m statemachine.Machine) ServiceOption {
	return func(s *service) {
		if m != nil {
			s.lifecycle = m
		}
	}
}
