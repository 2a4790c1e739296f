package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Catalog resolves plan and phase definitions.
// Implementations must be safe for concurrent use.
type Catalog interface {
	// ResolvePhase returns the initial phase for spec as of the given date.
	// When spec.PhaseType is set, that phase is returned instead of the first one.
	ResolvePhase(ctx context.Context, spec PlanSpecifier, at time.Time) (ResolvedPhase, error)
	// NextPhase returns the phase following current in the plan recipe.
	// The boolean is false when current is the last phase.
	NextPhase(ctx context.Context, planName string, current PhaseType) (ResolvedPhase, bool, error)
	// PlanPhase returns a specific phase of a plan.
	PlanPhase(ctx context.Context, planName string, phase PhaseType) (ResolvedPhase, error)
	// Plan returns the full plan definition.
	Plan(ctx context.Context, planName string) (Plan, error)
}

type planKey struct {
	product   string
	period    BillingPeriod
	priceList string
}

func keyOf(product string, period BillingPeriod, priceList string) planKey {
	if priceList == "" {
		priceList = DefaultPriceList
	}
	return planKey{
		product:   strings.ToLower(product),
		period:    period,
		priceList: strings.ToLower(priceList),
	}
}

// StaticCatalog is an immutable in-memory Catalog.
// The catalog is not versioned by date: the at argument of ResolvePhase is ignored.
type StaticCatalog struct {
	plans map[string]Plan
	index map[planKey]string
}

var _ Catalog = (*StaticCatalog)(nil)

// New builds a StaticCatalog from the given plans.
// Every plan is validated; plan names and specifiers must be unique.
func New(plans ...Plan) (*StaticCatalog, error) {
	c := &StaticCatalog{
		plans: make(map[string]Plan, len(plans)),
		index: make(map[planKey]string, len(plans)),
	}

	for _, p := range plans {
		if err := validatePlan(p); err != nil {
			return nil, err
		}
		if _, exists := c.plans[p.Name]; exists {
			return nil, fmt.Errorf("%w: plan %q", ErrDuplicatePlan, p.Name)
		}
		key := keyOf(p.Product, p.BillingPeriod, p.PriceList)
		if other, exists := c.index[key]; exists {
			return nil, fmt.Errorf("%w: plans %q and %q share %s", ErrDuplicatePlan, other, p.Name, p.Specifier())
		}

		p.Phases = append([]Phase(nil), p.Phases...)
		if p.PriceList == "" {
			p.PriceList = DefaultPriceList
		}
		c.plans[p.Name] = p
		c.index[key] = p.Name
	}

	return c, nil
}

// MustNew is like New but panics on invalid input.
func MustNew(plans ...Plan) *StaticCatalog {
	c, err := New(plans...)
	if err != nil {
		panic(fmt.Sprintf("catalog: %v", err))
	}
	return c
}

func validatePlan(p Plan) error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPlan)
	}
	if p.Product == "" {
		return fmt.Errorf("%w: plan %q has no product", ErrInvalidPlan, p.Name)
	}
	if !p.BillingPeriod.Valid() {
		return fmt.Errorf("%w: plan %q: %w %q", ErrInvalidPlan, p.Name, ErrUnknownBillingTerm, p.BillingPeriod)
	}
	if len(p.Phases) == 0 {
		return fmt.Errorf("%w: plan %q: %w", ErrInvalidPlan, p.Name, ErrEmptyPhaseRecipe)
	}

	seen := make(map[PhaseType]struct{}, len(p.Phases))
	for _, ph := range p.Phases {
		if !ph.Type.Valid() {
			return fmt.Errorf("%w: plan %q: %w %q", ErrInvalidPlan, p.Name, ErrUnknownPhaseType, ph.Type)
		}
		if _, dup := seen[ph.Type]; dup {
			return fmt.Errorf("%w: plan %q repeats phase %s", ErrInvalidPlan, p.Name, ph.Type)
		}
		seen[ph.Type] = struct{}{}
		if err := ph.Duration.Validate(); err != nil {
			return errors.Join(fmt.Errorf("%w: plan %q phase %s", ErrInvalidPlan, p.Name, ph.Type), err)
		}
	}
	return nil
}

// ResolvePhase implements Catalog.
func (c *StaticCatalog) ResolvePhase(ctx context.Context, spec PlanSpecifier, _ time.Time) (ResolvedPhase, error) {
	if err := ctx.Err(); err != nil {
		return ResolvedPhase{}, errors.Join(ErrCatalogCancelled, err)
	}
	if spec.Product == "" || spec.BillingPeriod == "" {
		return ResolvedPhase{}, fmt.Errorf("%w: product and billing period are required", ErrInvalidSpecifier)
	}

	name, ok := c.index[keyOf(spec.Product, spec.BillingPeriod, spec.PriceList)]
	if !ok {
		return ResolvedPhase{}, fmt.Errorf("%w: %s", ErrUnknownPlan, spec)
	}
	plan := c.plans[name]

	if spec.PhaseType == "" {
		return resolved(plan, plan.Phases[0]), nil
	}
	ph, _, ok := plan.Phase(spec.PhaseType)
	if !ok {
		return ResolvedPhase{}, fmt.Errorf("%w: %s has no %s phase", ErrUnknownPhase, name, spec.PhaseType)
	}
	return resolved(plan, ph), nil
}

// NextPhase implements Catalog.
func (c *StaticCatalog) NextPhase(ctx context.Context, planName string, current PhaseType) (ResolvedPhase, bool, error) {
	plan, err := c.Plan(ctx, planName)
	if err != nil {
		return ResolvedPhase{}, false, err
	}
	_, idx, ok := plan.Phase(current)
	if !ok {
		return ResolvedPhase{}, false, fmt.Errorf("%w: %s has no %s phase", ErrUnknownPhase, planName, current)
	}
	if idx+1 >= len(plan.Phases) {
		return ResolvedPhase{}, false, nil
	}
	return resolved(plan, plan.Phases[idx+1]), true, nil
}

// PlanPhase implements Catalog.
func (c *StaticCatalog) PlanPhase(ctx context.Context, planName string, phase PhaseType) (ResolvedPhase, error) {
	plan, err := c.Plan(ctx, planName)
	if err != nil {
		return ResolvedPhase{}, err
	}
	ph, _, ok := plan.Phase(phase)
	if !ok {
		return ResolvedPhase{}, fmt.Errorf("%w: %s has no %s phase", ErrUnknownPhase, planName, phase)
	}
	return resolved(plan, ph), nil
}

// Plan implements Catalog.
func (c *StaticCatalog) Plan(ctx context.Context, planName string) (Plan, error) {
	if err := ctx.Err(); err != nil {
		return Plan{}, errors.Join(ErrCatalogCancelled, err)
	}
	plan, ok := c.plans[planName]
	if !ok {
		return Plan{}, fmt.Errorf("%w: %q", ErrUnknownPlan, planName)
	}
	plan.Phases = append([]Phase(nil), plan.Phases...)
	return plan, nil
}

// Plans returns every plan name known to the catalog.
func (c *StaticCatalog) Plans() []string {
	names := make([]string, 0, len(c.plans))
	for name := range c.plans {
		names = append(names, name)
	}
	return names
}

func resolved(p Plan, ph Phase) ResolvedPhase {
	return ResolvedPhase{
		PlanName:  p.Name,
		PhaseType: ph.Type,
		Duration:  ph.Duration,
	}
}
