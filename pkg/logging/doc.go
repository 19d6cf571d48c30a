// Package logging provides structured logging utilities for condense boot stages.
//
// # Overview
//
// This package wraps the standard library slog package with condense defaults
// so every stage logs the same way: JSON records on stderr carrying the module
// and version, optionally duplicated into a per-stage log file under /var/log.
//
// # Log Levels
//
// Supported log levels (case-insensitive):
//   - DEBUG: Probe and semaphore detail, with source location
//   - INFO: Stage progress (default)
//   - WARN/WARNING: Recovered failures (candidate errors, handler failures)
//   - ERROR: Failures that change the exit code
//
// # Usage
//
// Installing the default logger for a stage:
//
//	w, closer, err := logging.OpenLogFile(fmt.Sprintf(defaults.LogFileTemplate, "start"))
//	defer closer.Close()
//	logging.SetDefaultStructuredLoggerWithOutput("condense", version, level, w)
//	if err != nil {
//	    slog.Warn("log file unavailable, logging to stderr only", "error", err)
//	}
//
// Creating a scoped logger for a config module:
//
//	logger := slog.Default().With("module", "set-hostname")
//	logger.Info("setting hostname", "hostname", "node-1")
//
// # Environment Configuration
//
// The LOG_LEVEL environment variable controls logging verbosity:
//
//	LOG_LEVEL=debug condense start-local
//
// If LOG_LEVEL is not set, defaults to INFO level.
//
// # Output Format
//
//	{
//	    "time": "2025-01-15T10:30:00.123Z",
//	    "level": "INFO",
//	    "msg": "found data source",
//	    "module": "condense",
//	    "version": "v1.0.0",
//	    "datasource": "ConfigDrive[local] [seed=/dev/vdb]"
//	}
package logging
