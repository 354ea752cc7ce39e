/*
Package log provides structured logging for promptrelay using zerolog.

The log package wraps zerolog to provide JSON or console structured logging
with component-specific child loggers, a configurable level, and helper
functions for the handful of logging patterns every core component needs.

# Component Loggers

Every core component builds its own child logger once, at construction:

	log.WithComponent("scheduler")
	log.WithComponent("store")
	log.WithComponent("dispatch")
	log.WithComponent("broadcaster")

WithMessageID and WithThreadID further scope an existing logger to a single
message or thread for call sites that log several related entries:

	logger := log.WithMessageID(w.logger, id)
	logger.Info().Msg("processing started")
	...
	logger.Info().Msg("processing completed")

# Invariant violations

A desync between the message store and its thread index is a bug, not a
runtime failure, and must be logged and cause the process to exit. zerolog's
Fatal level does exactly that (os.Exit(1) after writing the event), so
invariant checks in pkg/store call Logger.Fatal() directly rather than
implementing their own exit path.
*/
package log
