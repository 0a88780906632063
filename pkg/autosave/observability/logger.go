// Package observability provides structured logging, metrics, and
// tracing for the autosave core.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds chapter context to a logger.
// Returns a new logger with book_id and chapter_id fields.
func EnrichLogger(logger *slog.Logger, bookID, chapterID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("book_id", bookID),
		slog.String("chapter_id", chapterID),
	)
}

// LogRetryAttempt logs a silently retried failure.
func LogRetryAttempt(logger *slog.Logger, attempt int, delay time.Duration, err error) {
	if logger == nil {
		return
	}
	logger.Debug("retrying after failure",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
		slog.String("error", err.Error()),
	)
}

// LogSaveFailure logs a terminal save failure.
func LogSaveFailure(logger *slog.Logger, correlationID string, attempts int, err error) {
	if logger == nil {
		return
	}
	logger.Error("save failed after retries",
		slog.String("correlation_id", correlationID),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// LogBackupSaved logs a local backup write.
func LogBackupSaved(logger *slog.Logger, key string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Info("content backed up locally",
		slog.String("key", key),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogBackupRestored logs a user-approved restore.
func LogBackupRestored(logger *slog.Logger, key string, age time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("backup restored",
		slog.String("key", key),
		slog.Duration("age", age),
	)
}

// LogBackupDismissed logs a user-dismissed recovery prompt.
func LogBackupDismissed(logger *slog.Logger, key string) {
	if logger == nil {
		return
	}
	logger.Info("backup dismissed",
		slog.String("key", key),
	)
}

// LogCleanupSweep logs the outcome of a backup cleanup pass.
func LogCleanupSweep(logger *slog.Logger, removed, errs int) {
	if logger == nil {
		return
	}
	logger.Debug("backup cleanup sweep finished",
		slog.Int("removed", removed),
		slog.Int("errors", errs),
	)
}
