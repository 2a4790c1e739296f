package subscription

import "errors"

var (
	ErrInvalidTransition         = errors.New("transition is not allowed in the current subscription state")
	ErrInvalidEffectiveDate      = errors.New("invalid effective date")
	ErrSubscriptionAlreadyExists = errors.New("subscription already exists")
	ErrInvalidParams             = errors.New("invalid subscription parameters")
	ErrFailedToProject           = errors.New("failed to project subscription state")
)
