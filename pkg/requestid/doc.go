// Package requestid correlates API requests with their log records.
//
// Middleware attaches an id to every request, reusing a client-supplied
// X-Request-ID when it is at most 128 characters of [a-zA-Z0-9_-].
// LoggerExtractor lets the logger pick it up from the request context:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LoggerExtractor()))
//	r.Use(requestid.Middleware)
package requestid
