package subscription

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
)

// Status is the lifecycle status of a subscription at an instant.
type Status string

const (
	// StatusNotStarted is reported before the CREATE effective date.
	StatusNotStarted          Status = "NOT_STARTED"
	StatusActive              Status = "ACTIVE"
	StatusPendingCancellation Status = "PENDING_CANCELLATION"
	StatusCancelled           Status = "CANCELLED"
)

// Name implements statemachine.State.
func (s Status) Name() string { return string(s) }

func (s Status) String() string { return string(s) }

// State is the projection of a subscription as of an instant.
type State struct {
	SubscriptionID uuid.UUID         `json:"subscription_id"`
	AsOf           time.Time         `json:"as_of"`
	Status         Status            `json:"status"`
	PlanName       string            `json:"plan_name,omitempty"`
	PhaseType      catalog.PhaseType `json:"phase_type,omitempty"`
	StartDate      time.Time         `json:"start_date"`
	PhaseStartDate time.Time         `json:"phase_start_date"`
	ActiveVersion  int               `json:"active_version"`
	// CancelDate is the effective date of the cancellation that is pending or
	// already in effect.
	CancelDate         *time.Time        `json:"cancel_date,omitempty"`
	LastEvent          *eventstore.Event `json:"last_event,omitempty"`
	PreviousTransition *Transition       `json:"previous_transition,omitempty"`
	NextTransition     *Transition       `json:"next_transition,omitempty"`
}

// Transition pairs two adjacent active events. The previous side is empty
// when the next event is the first one of the subscription.
type Transition struct {
	Kind          eventstore.Kind `json:"kind"`
	EffectiveDate time.Time       `json:"effective_date"`

	PreviousEventID          uuid.UUID         `json:"previous_event_id"`
	PreviousEventCreatedDate time.Time         `json:"previous_event_created_date"`
	PreviousStatus           Status            `json:"previous_status"`
	PreviousPlanName         string            `json:"previous_plan_name,omitempty"`
	PreviousPhaseType        catalog.PhaseType `json:"previous_phase_type,omitempty"`

	NextEventID          uuid.UUID         `json:"next_event_id"`
	NextEventCreatedDate time.Time         `json:"next_event_created_date"`
	NextStatus           Status            `json:"next_status"`
	NextPlanName         string            `json:"next_plan_name,omitempty"`
	NextPhaseType        catalog.PhaseType `json:"next_phase_type,omitempty"`
}

// CreateParams creates a subscription. A nil SubscriptionID gets a new one.
// Plan.PhaseType, when set, starts the subscription at that phase.
type CreateParams struct {
	SubscriptionID uuid.UUID
	BundleID       uuid.UUID
	Plan           catalog.PlanSpecifier
	StartDate      time.Time
}

// ChangeParams moves an active subscription to another plan at EffectiveDate.
// Plan.PhaseType overrides the configured change policy.
type ChangeParams struct {
	SubscriptionID  uuid.UUID
	ExpectedVersion int
	EffectiveDate   time.Time
	Plan            catalog.PlanSpecifier
}

// CancelParams schedules or applies a cancellation at EffectiveDate.
type CancelParams struct {
	SubscriptionID  uuid.UUID
	ExpectedVersion int
	EffectiveDate   time.Time
}

// UncancelParams revokes a cancellation that has not taken effect at RequestedDate.
type UncancelParams struct {
	SubscriptionID  uuid.UUID
	ExpectedVersion int
	RequestedDate   time.Time
}

// ReactivateParams restarts a cancelled subscription. A nil Plan reuses the
// product, billing period and price list of the cancelled plan.
type ReactivateParams struct {
	SubscriptionID  uuid.UUID
	ExpectedVersion int
	EffectiveDate   time.Time
	Plan            *catalog.PlanSpecifier
}

// MutationResult describes the version written by a mutation.
type MutationResult struct {
	SubscriptionID uuid.UUID          `json:"subscription_id"`
	Version        int                `json:"version"`
	Events         []eventstore.Event `json:"events"`
}
