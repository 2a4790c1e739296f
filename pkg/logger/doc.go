// Package logger builds context-aware *slog.Logger instances from functional
// options and provides attribute constructors with consistent key names for
// the subscription engine (SubscriptionID, EventID, Kind, Version, AsOf).
//
// New picks slog.NewJSONHandler or slog.NewTextHandler based on the configured
// Format and wraps it in LogHandlerDecorator. The decorator adds attributes
// attached to a context with WithAttrs and runs every registered
// ContextExtractor on each record.
//
// # Usage
//
//	log := logger.New(logger.WithEnvironment("development", "sublife"))
//	ctx = logger.WithAttrs(ctx, logger.SubscriptionID(id))
//	log.InfoContext(ctx, "plan changed", logger.Version(3))
//
// Error and Errors return an empty attribute for nil errors, so
//
//	log.Info("tick finished", logger.Error(err))
//
// needs no additional nil check.
package logger
