package api

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/sublife/pkg/binder"
	"github.com/dmitrymomot/sublife/pkg/catalog"
	"github.com/dmitrymomot/sublife/pkg/eventstore"
	"github.com/dmitrymomot/sublife/svc/subscription"
)

// HTTPError is an error with a status code and a stable machine-readable key.
type HTTPError struct {
	Code int
	Key  string
}

func (e HTTPError) Error() string { return e.Key }

var (
	ErrBadRequest           = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnsupportedMediaType = HTTPError{Code: http.StatusUnsupportedMediaType, Key: "unsupported_media_type"}
	ErrRequestTooLarge      = HTTPError{Code: http.StatusRequestEntityTooLarge, Key: "request_too_large"}
	ErrInvalidParams        = HTTPError{Code: http.StatusBadRequest, Key: "invalid_params"}
	ErrInvalidDate          = HTTPError{Code: http.StatusBadRequest, Key: "invalid_effective_date"}
	ErrUnknownPlan          = HTTPError{Code: http.StatusBadRequest, Key: "unknown_plan"}
	ErrNotFound             = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrVersionConflict      = HTTPError{Code: http.StatusConflict, Key: "version_conflict"}
	ErrInvalidTransition    = HTTPError{Code: http.StatusConflict, Key: "invalid_transition"}
	ErrHistoryRewrite       = HTTPError{Code: http.StatusConflict, Key: "history_rewrite"}
	ErrAlreadyExists        = HTTPError{Code: http.StatusConflict, Key: "already_exists"}
	ErrTimelineConflict     = HTTPError{Code: http.StatusConflict, Key: "timeline_conflict"}
	ErrInternal             = HTTPError{Code: http.StatusInternalServerError, Key: "internal_error"}
)

// toHTTPError maps domain errors onto HTTP errors. The order matters:
// service errors wrap store and catalog errors.
func toHTTPError(err error) HTTPError {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, binder.ErrMissingContentType),
		errors.Is(err, binder.ErrUnsupportedMediaType):
		return ErrUnsupportedMediaType
	case errors.Is(err, binder.ErrRequestTooLarge):
		return ErrRequestTooLarge
	case errors.Is(err, binder.ErrFailedToParseJSON):
		return ErrBadRequest
	case errors.Is(err, eventstore.ErrSubscriptionNotFound):
		return ErrNotFound
	case errors.Is(err, subscription.ErrSubscriptionAlreadyExists):
		return ErrAlreadyExists
	case errors.Is(err, eventstore.ErrVersionConflict):
		return ErrVersionConflict
	case errors.Is(err, eventstore.ErrHistoryRewrite):
		return ErrHistoryRewrite
	case errors.Is(err, subscription.ErrInvalidTransition):
		return ErrInvalidTransition
	case errors.Is(err, eventstore.ErrInvalidAppend):
		return ErrTimelineConflict
	case errors.Is(err, subscription.ErrInvalidEffectiveDate):
		return ErrInvalidDate
	case errors.Is(err, subscription.ErrInvalidParams):
		return ErrInvalidParams
	case errors.Is(err, catalog.ErrUnknownPlan),
		errors.Is(err, catalog.ErrUnknownPhase),
		errors.Is(err, catalog.ErrInvalidSpecifier),
		errors.Is(err, catalog.ErrInvalidDuration):
		return ErrUnknownPlan
	default:
		return ErrInternal
	}
}
