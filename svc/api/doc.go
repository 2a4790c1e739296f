// Package api exposes subscription.Service over HTTP with chi.
//
// Every endpoint takes explicit business timestamps; the server clock is never
// used as the effective date of a mutation or the instant of a projection.
//
//	POST /subscriptions                      create
//	POST /subscriptions/{id}/change          change plan
//	POST /subscriptions/{id}/cancel          cancel
//	POST /subscriptions/{id}/uncancel        uncancel
//	POST /subscriptions/{id}/reactivate      reactivate
//	GET  /subscriptions/{id}/state?as_of=    projected state
//	GET  /subscriptions/{id}/events          full event log
//	GET  /subscriptions/{id}/pending?as_of=  future unprocessed events
//	GET  /healthz                            readiness
//	GET  /metrics                            Prometheus, when configured
//
// Responses use a {"data": ...} envelope; failures use
// {"error": {"code": ..., "message": ...}} with 400 for invalid input or
// unknown plans, 404 for unknown subscriptions and 409 for version conflicts
// and lifecycle violations.
package api
