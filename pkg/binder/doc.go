// Package binder decodes HTTP request bodies into Go structs.
//
// JSON returns a binder function that accepts only application/json bodies,
// rejects unknown fields and trailing data, and caps the body size:
//
//	bind := binder.JSON(binder.WithMaxSize(64 << 10))
//
//	var req CreateRequest
//	if err := bind(r, &req); err != nil {
//	    // errors.Is(err, binder.ErrUnsupportedMediaType) and friends
//	}
//
// # Error Handling
//
//   - ErrMissingContentType: no Content-Type header
//   - ErrUnsupportedMediaType: Content-Type is not application/json
//   - ErrRequestTooLarge: body exceeds the configured limit
//   - ErrFailedToParseJSON: malformed, empty or non-strict JSON
package binder
