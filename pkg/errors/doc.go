// Package errors provides structured error types used across the inventory
// pipeline for observability and programmatic handling.
//
// Source failures (a discovery adapter or backend collector failing) are
// wrapped and logged, then mapped to an empty contribution by the caller.
// Configuration failures carry ErrCodeInvalidRequest and abort the run.
// Pagination failures carry ErrCodeRateLimitExceeded or ErrCodeServiceUnavailable.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeTimeout,
//	    "ssh collection failed",
//	    ctx.Err(),
//	    map[string]any{
//	        "host": host,
//	    },
//	)
package errors
