package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
)

// Notification is the payload emitted once per applied transition.
type Notification struct {
	EventID        uuid.UUID         `json:"event_id"`
	SubscriptionID uuid.UUID         `json:"subscription_id"`
	Version        int               `json:"version"`
	Kind           eventstore.Kind   `json:"kind"`
	EffectiveDate  time.Time         `json:"effective_date"`
	PlanName       string            `json:"plan_name"`
	PhaseType      catalog.PhaseType `json:"phase_type"`
}

// FromEvent builds the notification for a claimed event.
func FromEvent(ev eventstore.Event) Notification {
	return Notification{
		EventID:        ev.ID,
		SubscriptionID: ev.SubscriptionID,
		Version:        ev.Version,
		Kind:           ev.Kind,
		EffectiveDate:  ev.EffectiveDate,
		PlanName:       ev.PlanName,
		PhaseType:      ev.PhaseType,
	}
}

func (n Notification) marshal() ([]byte, error) {
	payload, err := json.Marshal(n)
	if err != nil {
		return nil, Permanent(err)
	}
	return payload, nil
}

// Publisher receives transition notifications.
type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, n Notification) error

func (f PublisherFunc) Publish(ctx context.Context, n Notification) error {
	return f(ctx, n)
}

// Fanout publishes to every publisher in order and joins their errors.
// A failing publisher does not stop the others.
func Fanout(publishers ...Publisher) Publisher {
	return PublisherFunc(func(ctx context.Context, n Notification) error {
		var errs []error
		for _, p := range publishers {
			if p == nil {
				continue
			}
			if err := p.Publish(ctx, n); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) == 0 {
			return nil
		}
		return errors.Join(append([]error{ErrPublishFailed}, errs...)...)
	})
}

// Discard drops every notification.
var Discard Publisher = PublisherFunc(func(context.Context, Notification) error { return nil })
