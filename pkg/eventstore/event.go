package eventstore

import (
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/sublife/pkg/catalog"
)

// Kind tags the transition an event represents.
type Kind string

const (
	KindCreate     Kind = "CREATE"
	KindPhase      Kind = "PHASE"
	KindChange     Kind = "CHANGE"
	KindCancel     Kind = "CANCEL"
	KindUncancel   Kind = "UNCANCEL"
	KindReactivate Kind = "REACTIVATE"
)

// Valid reports whether k is a known event kind.
func (k Kind) Valid() bool {
	switch k {
	case KindCreate, KindPhase, KindChange, KindCancel, KindUncancel, KindReactivate:
		return true
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}

// Event is a single dated transition of a subscription.
// PlanName and PhaseType describe the state the event transitions into;
// a CANCEL event carries the plan and phase being cancelled.
type Event struct {
	ID             uuid.UUID         `json:"id"`
	SubscriptionID uuid.UUID         `json:"subscription_id"`
	Version        int               `json:"version"`
	Kind           Kind              `json:"kind"`
	EffectiveDate  time.Time         `json:"effective_date"`
	CreatedDate    time.Time         `json:"created_date"`
	PlanName       string            `json:"plan_name"`
	PhaseType      catalog.PhaseType `json:"phase_type"`
	IsActive       bool              `json:"is_active"`
	Processed      bool              `json:"processed"`
	ProcessedDate  *time.Time        `json:"processed_date,omitempty"`
}

// Subscription is the metadata row of a subscription. Plan and phase are
// never stored here; they are projected from the event log.
type Subscription struct {
	ID            uuid.UUID `json:"id"`
	BundleID      uuid.UUID `json:"bundle_id"`
	StartDate     time.Time `json:"start_date"`
	ActiveVersion int       `json:"active_version"`
	CreatedDate   time.Time `json:"created_date"`
}

// InitialVersion is the version of the CREATE event.
const InitialVersion = 1

// Append describes one atomic version bump of a subscription.
// Version is the new version; the store's active version must equal Version-1.
// Every active non-CREATE event effective at or after AsOf is superseded.
type Append struct {
	SubscriptionID uuid.UUID
	BundleID       uuid.UUID
	Version        int
	AsOf           time.Time
	Events         []Event
}
