// Package httpserver runs the HTTP API with context-driven graceful shutdown
// and serves health probes.
//
// Server.ListenAndServe blocks until its context is cancelled and then calls
// http.Server.Shutdown bounded by the shutdown timeout. Run adapts it to
// errgroup so the API can share a lifetime with the scheduler workers:
//
//	srv := httpserver.NewFromConfig(router, cfg.HTTP, httpserver.WithLogger(log))
//	g, ctx := errgroup.WithContext(ctx)
//	g.Go(srv.Run(ctx))
//
// HealthCheckHandler turns a list of named probes into a JSON readiness
// endpoint; without probes it answers as a liveness endpoint.
//
// Listen failures are wrapped with ErrStart and shutdown failures with
// ErrShutdown.
package httpserver
