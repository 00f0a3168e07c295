// Package log provides the structured logging seam for modelflow pipeline
// operations.
//
// The package defines a small slog-compatible Logger interface plus a
// provider registry, so that splitting, resampling and tuning code can emit
// structured records without binding to a concrete backend. A zerolog-backed
// provider ships with the package; tests use the in-memory TestLogger.
// When no provider is installed, logging is a no-op, which keeps the library
// silent by default.
//
// Attribute keys for the pipeline domain (fold indices, grid assignments,
// data shapes) are predefined in attributes.go so that records stay
// consistent across packages:
//
//	logger := log.GetLoggerWithName("tune")
//	logger.Info("grid search finished",
//	    log.CandidatesKey, 12,
//	    log.FoldCountKey, 5,
//	    log.DurationMsKey, 843,
//	)
package log

import (
	"context"
)

// Logger is the logging interface used throughout modelflow. The field
// arguments follow slog conventions: alternating key-value pairs, where
// keys are strings.
//
// Implementations must be safe for concurrent use; the tuner logs from
// multiple evaluation workers at once.
type Logger interface {
	// Debug logs fine-grained diagnostic detail, such as per-fold row
	// counts or per-iteration loss. Disabled in normal operation.
	Debug(msg string, fields ...any)

	// Info logs the normal operational flow: splits performed, recipes
	// fitted, tuning runs started and finished.
	//
	//	logger.Info("split complete",
	//	    log.TrainRowsKey, 120,
	//	    log.TestRowsKey, 30,
	//	)
	Info(msg string, fields ...any)

	// Warn logs recoverable oddities that deserve attention, for example
	// a stratum too small to appear in every fold, or an undefined metric
	// that was given a fallback value.
	Warn(msg string, fields ...any)

	// Error logs failures. When an error value is passed as a field the
	// backend may extract and attach its stack trace.
	//
	//	logger.Error("assignment evaluation failed",
	//	    err,
	//	    log.AssignmentKey, 3,
	//	    log.FoldIndexKey, 1,
	//	)
	Error(msg string, fields ...any)

	// With returns a Logger that includes the given fields on every
	// subsequent record. Used to scope a logger to one fold or one grid
	// assignment before entering a loop.
	With(fields ...any) Logger

	// Enabled reports whether records at the given level would be
	// emitted. Guards expensive field construction:
	//
	//	if logger.Enabled(ctx, log.LevelDebug) {
	//	    logger.Debug("fold detail", "rows", expensiveSummary(fold))
	//	}
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level. The numeric values match slog.Level so the
// two can be converted without a mapping table.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the conventional upper-case name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// LoggerProvider creates configured Logger instances. Install one with
// SetProvider; passing nil restores the silent default.
type LoggerProvider interface {
	// GetLogger returns the provider's default logger.
	GetLogger() Logger

	// GetLoggerWithName returns a logger tagged with a component name,
	// e.g. "split", "recipe" or "tune".
	GetLoggerWithName(name string) Logger

	// SetLevel sets the minimum level for loggers from this provider.
	SetLevel(level Level)
}
