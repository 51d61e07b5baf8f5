// Package logging configures structured logging for the inventory CLI.
//
// It wraps log/slog with a JSON handler on stderr, a level taken from the
// --log-level flag or the LOG_LEVEL environment variable, and module and
// version attributes on every record. Debug level also records the source
// location.
//
// # Usage
//
//	logging.SetDefaultStructuredLoggerWithLevel("cmdbinv", version, "debug")
//	slog.Info("discovery complete", slog.Int("targets", len(targets)))
//
// Components never construct their own handlers; they log through the slog
// default so the CLI controls verbosity in one place.
//
// # Levels
//
// debug, info (default), warn or warning, error. Matching is
// case-insensitive and unknown values fall back to info.
package logging
