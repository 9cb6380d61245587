// Package logging configures slog-based structured logging for the daemon
// and CLI. It provides a console handler for interactive use, a JSON handler
// for machine consumption, component loggers, and context helpers that stamp
// job and recording identifiers onto records.
package logging
