// Package logging configures structured logging for the engine.
//
// # Overview
//
// The package builds *slog.Logger values from configuration and provides:
//   - JSON, text and console output formats
//   - Context helpers carrying request, run and condition identifiers
//   - An Observer that turns condition log entries into log lines
//
// # Usage
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "debug",
//	    Format: "json",
//	})
//
//	ctx = logging.WithRunID(ctx, rc.ID())
//	logger.InfoContext(ctx, "evaluation finished", logging.ExtractContextFields(ctx)...)
//
//	rc := condition.NewRunContext(condition.WithObserver(logging.NewObserver(logger)))
package logging
