package catalog

import (
	"fmt"
	"strings"
)

// BillingPeriod is the recurring billing term of a plan.
type BillingPeriod string

const (
	Monthly         BillingPeriod = "MONTHLY"
	Quarterly       BillingPeriod = "QUARTERLY"
	Annual          BillingPeriod = "ANNUAL"
	NoBillingPeriod BillingPeriod = "NO_BILLING_PERIOD"
)

// Valid reports whether p is a known billing period.
func (p BillingPeriod) Valid() bool {
	switch p {
	case Monthly, Quarterly, Annual, NoBillingPeriod:
		return true
	}
	return false
}

// PhaseType identifies a phase within a plan recipe.
type PhaseType string

const (
	PhaseTrial     PhaseType = "TRIAL"
	PhaseDiscount  PhaseType = "DISCOUNT"
	PhaseFixedTerm PhaseType = "FIXEDTERM"
	PhaseEvergreen PhaseType = "EVERGREEN"
)

// Valid reports whether t is a known phase type.
func (t PhaseType) Valid() bool {
	switch t {
	case PhaseTrial, PhaseDiscount, PhaseFixedTerm, PhaseEvergreen:
		return true
	}
	return false
}

// TimeUnit is the calendar unit of a Duration.
type TimeUnit string

const (
	Days      TimeUnit = "DAYS"
	Weeks     TimeUnit = "WEEKS"
	Months    TimeUnit = "MONTHS"
	Years     TimeUnit = "YEARS"
	Unlimited TimeUnit = "UNLIMITED"
)

// DefaultPriceList is used when a specifier does not name a price list.
const DefaultPriceList = "DEFAULT"

// Duration is a calendar-aware length of a phase.
type Duration struct {
	Unit  TimeUnit `yaml:"unit" json:"unit"`
	Count int      `yaml:"count,omitempty" json:"count,omitempty"`
}

// DaysOf, MonthsOf and friends build bounded durations.
func DaysOf(n int) Duration   { return Duration{Unit: Days, Count: n} }
func WeeksOf(n int) Duration  { return Duration{Unit: Weeks, Count: n} }
func MonthsOf(n int) Duration { return Duration{Unit: Months, Count: n} }
func YearsOf(n int) Duration  { return Duration{Unit: Years, Count: n} }

// Forever is the open-ended duration of a terminal phase.
func Forever() Duration { return Duration{Unit: Unlimited} }

// IsUnlimited reports whether the duration has no end.
func (d Duration) IsUnlimited() bool {
	return d.Unit == Unlimited
}

// Validate checks that bounded durations have a positive count.
func (d Duration) Validate() error {
	switch d.Unit {
	case Unlimited:
		return nil
	case Days, Weeks, Months, Years:
		if d.Count <= 0 {
			return fmt.Errorf("%w: %d %s", ErrInvalidDuration, d.Count, strings.ToLower(string(d.Unit)))
		}
		return nil
	default:
		return fmt.Errorf("%w: %w %q", ErrInvalidDuration, ErrUnknownTimeUnit, d.Unit)
	}
}

func (d Duration) String() string {
	if d.IsUnlimited() {
		return "unlimited"
	}
	return fmt.Sprintf("%d %s", d.Count, strings.ToLower(string(d.Unit)))
}

// Phase is a single step of a plan recipe.
type Phase struct {
	Type     PhaseType `yaml:"type" json:"type"`
	Duration Duration  `yaml:"duration" json:"duration"`
}

// Plan is an ordered recipe of phases sold under a product, billing period
// and price list.
type Plan struct {
	Name          string        `yaml:"name" json:"name"`
	Product       string        `yaml:"product" json:"product"`
	BillingPeriod BillingPeriod `yaml:"billing_period" json:"billing_period"`
	PriceList     string        `yaml:"price_list" json:"price_list"`
	Phases        []Phase       `yaml:"phases" json:"phases"`
}

// Phase returns the phase of the given type and its index in the recipe.
func (p Plan) Phase(t PhaseType) (Phase, int, bool) {
	for i, ph := range p.Phases {
		if ph.Type == t {
			return ph, i, true
		}
	}
	return Phase{}, -1, false
}

// Specifier returns the specifier addressing this plan.
func (p Plan) Specifier() PlanSpecifier {
	return PlanSpecifier{
		Product:       p.Product,
		BillingPeriod: p.BillingPeriod,
		PriceList:     p.PriceList,
	}
}

// PlanSpecifier addresses a plan. PhaseType optionally overrides the phase
// the timeline starts at.
type PlanSpecifier struct {
	Product       string        `json:"product"`
	BillingPeriod BillingPeriod `json:"billing_period"`
	PriceList     string        `json:"price_list,omitempty"`
	PhaseType     PhaseType     `json:"phase_type,omitempty"`
}

func (s PlanSpecifier) String() string {
	str := s.Product + "/" + string(s.BillingPeriod) + "/" + s.priceList()
	if s.PhaseType != "" {
		str += "/" + string(s.PhaseType)
	}
	return str
}

func (s PlanSpecifier) priceList() string {
	if s.PriceList == "" {
		return DefaultPriceList
	}
	return s.PriceList
}

// ResolvedPhase is a phase bound to the plan it belongs to.
type ResolvedPhase struct {
	PlanName  string
	PhaseType PhaseType
	Duration  Duration
}
