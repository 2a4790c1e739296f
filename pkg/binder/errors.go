package binder

import "errors"

// Common binding errors
var (
	ErrMissingContentType   = errors.New("missing content type")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrRequestTooLarge      = errors.New("request body too large")
	ErrFailedToParseJSON    = errors.New("failed to parse JSON request body")
)
