package catalog

import "errors"

var (
	ErrUnknownPlan        = errors.New("unknown plan")
	ErrUnknownPhase       = errors.New("unknown plan phase")
	ErrInvalidDuration    = errors.New("invalid phase duration")
	ErrInvalidPlan        = errors.New("invalid plan definition")
	ErrDuplicatePlan      = errors.New("duplicate plan definition")
	ErrFailedToLoad       = errors.New("failed to load catalog")
	ErrInvalidSpecifier   = errors.New("invalid plan specifier")
	ErrCatalogCancelled   = errors.New("catalog lookup cancelled")
	ErrEmptyPhaseRecipe   = errors.New("plan has no phases")
	ErrUnknownTimeUnit    = errors.New("unknown time unit")
	ErrUnknownPhaseType   = errors.New("unknown phase type")
	ErrUnknownBillingTerm = errors.New("unknown billing period")
)
