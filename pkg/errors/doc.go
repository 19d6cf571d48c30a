// Package errors provides structured error types for better observability
// and programmatic error handling across the boot stages.
//
// The codes mirror how the engine reacts to a failure: NOT_FOUND means a
// data source candidate is simply not present and the next one is probed,
// DATASOURCE_NOT_FOUND is fatal to the calling stage, LOCK_NOT_ACQUIRED
// fails a guarded action without running it, HANDLER_FAILURE is recorded
// while execution continues, and DECODE_FAILURE degrades to best-effort
// single-part user data.
//
// Example usage:
//
//	err := errors.WrapWithContext(
//	    errors.ErrCodeNotFound,
//	    "not a config drive",
//	    cause,
//	    map[string]any{
//	        "device": "/dev/vdb",
//	    },
//	)
//
//	if errors.IsCode(err, errors.ErrCodeNotFound) {
//	    // probe the next candidate
//	}
package errors
