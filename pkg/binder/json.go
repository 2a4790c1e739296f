package binder

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// DefaultMaxJSONSize is the default maximum size for JSON request bodies (1MB).
const DefaultMaxJSONSize = 1 << 20 // 1 MB

type jsonBinder struct {
	maxSize int64
}

// JSONOption configures the JSON binder.
type JSONOption func(*jsonBinder)

// WithMaxSize caps the request body at n bytes. Non-positive values are ignored.
func WithMaxSize(n int64) JSONOption {
	return func(b *jsonBinder) {
		if n > 0 {
			b.maxSize = n
		}
	}
}

// JSON creates a JSON binder function.
//
// Example:
//
//	bind := binder.JSON()
//	var req ChangeRequest
//	if err := bind(r, &req); err != nil {
//		return err
//	}
func JSON(opts ...JSONOption) func(r *http.Request, v any) error {
	b := &jsonBinder{maxSize: DefaultMaxJSONSize}
	for _, opt := range opts {
		opt(b)
	}

	return func(r *http.Request, v any) error {
		if err := r.Context().Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}

		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			return fmt.Errorf("%w: expected application/json", ErrMissingContentType)
		}
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil || mediaType != "application/json" {
			return fmt.Errorf("%w: got %q, expected application/json", ErrUnsupportedMediaType, contentType)
		}

		// Read one byte past the limit to tell "exactly max" from "too large".
		body, err := io.ReadAll(io.LimitReader(r.Body, b.maxSize+1))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return fmt.Errorf("%w: max %d bytes", ErrRequestTooLarge, tooLarge.Limit)
			}
			return fmt.Errorf("%w: failed to read request body: %v", ErrFailedToParseJSON, err)
		}
		if int64(len(body)) > b.maxSize {
			return fmt.Errorf("%w: max %d bytes", ErrRequestTooLarge, b.maxSize)
		}

		decoder := json.NewDecoder(bytes.NewReader(body))
		decoder.DisallowUnknownFields()

		if err := decoder.Decode(v); err != nil {
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: empty body", ErrFailedToParseJSON)
			}
			return fmt.Errorf("%w: %v", ErrFailedToParseJSON, err)
		}

		var extra json.RawMessage
		if err := decoder.Decode(&extra); !errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: unexpected data after JSON object", ErrFailedToParseJSON)
		}

		return nil
	}
}
