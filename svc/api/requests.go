package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
)

type createRequest struct {
	SubscriptionID uuid.UUID             `json:"subscription_id"`
	BundleID       uuid.UUID             `json:"bundle_id"`
	Plan           catalog.PlanSpecifier `json:"plan"`
	StartDate      time.Time             `json:"start_date"`
}

type changeRequest struct {
	ExpectedVersion int                   `json:"expected_version"`
	EffectiveDate   time.Time             `json:"effective_date"`
	Plan            catalog.PlanSpecifier `json:"plan"`
}

type cancelRequest struct {
	ExpectedVersion int       `json:"expected_version"`
	EffectiveDate   time.Time `json:"effective_date"`
}

type uncancelRequest struct {
	ExpectedVersion int       `json:"expected_version"`
	RequestedDate   time.Time `json:"requested_date"`
}

type reactivateRequest struct {
	ExpectedVersion int                    `json:"expected_version"`
	EffectiveDate   time.Time              `json:"effective_date"`
	Plan            *catalog.PlanSpecifier `json:"plan,omitempty"`
}

type eventsResponse struct {
	SubscriptionID uuid.UUID          `json:"subscription_id"`
	Events         []eventstore.Event `json:"events"`
}
