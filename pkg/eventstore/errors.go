package eventstore

import "errors"

var (
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrVersionConflict      = errors.New("subscription version conflict")
	ErrHistoryRewrite       = errors.New("cannot supersede already processed events")
	ErrInvalidAppend        = errors.New("invalid append request")
	ErrFailedToAppend       = errors.New("failed to append subscription events")
	ErrFailedToLoad         = errors.New("failed to load subscription events")
	ErrFailedToClaim        = errors.New("failed to claim due events")
)
