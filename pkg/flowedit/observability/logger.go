// Package observability provides structured logging, metrics, and
// tracing for the flow editor: structured logging via slog, metrics and
// tracing via OpenTelemetry. All features are opt-in and have no-op
// implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds editor session context to a logger. Returns a new
// logger carrying bot_id and flow_name fields.
func EnrichLogger(logger *slog.Logger, botID, flowName string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("bot_id", botID),
		slog.String("flow_name", flowName),
	)
}

// LogFlowLoaded logs a successful flow load, noting where it came from.
func LogFlowLoaded(logger *slog.Logger, botID, source string, nodeCount int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("flow loaded",
		slog.String("bot_id", botID),
		slog.String("source", source),
		slog.Int("node_count", nodeCount),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogLoadFallback logs a store load failure that fell back to cache.
func LogLoadFallback(logger *slog.Logger, botID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("flow service unreachable, using cached draft",
		slog.String("bot_id", botID),
		slog.String("error", err.Error()),
	)
}

// LogStaleLoadDiscarded logs a load result dropped because the session
// moved to a different bot while it was in flight.
func LogStaleLoadDiscarded(logger *slog.Logger, loadedBotID, currentBotID string) {
	if logger == nil {
		return
	}
	logger.Debug("stale load discarded",
		slog.String("loaded_bot_id", loadedBotID),
		slog.String("current_bot_id", currentBotID),
	)
}

// LogFlowSaved logs a successful save.
func LogFlowSaved(logger *slog.Logger, botID string, nodeCount int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("flow saved",
		slog.String("bot_id", botID),
		slog.Int("node_count", nodeCount),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSaveError logs a save failure.
func LogSaveError(logger *slog.Logger, botID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("flow save failed",
		slog.String("bot_id", botID),
		slog.String("error", err.Error()),
	)
}

// LogCompaction logs a flow compaction for publishing or export.
func LogCompaction(logger *slog.Logger, botID string, nodesIn, nodesOut int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("flow compacted",
		slog.String("bot_id", botID),
		slog.Int("nodes_in", nodesIn),
		slog.Int("nodes_out", nodesOut),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogStatusChange logs a publish or unpublish.
func LogStatusChange(logger *slog.Logger, botID, status string) {
	if logger == nil {
		return
	}
	logger.Info("flow status changed",
		slog.String("bot_id", botID),
		slog.String("status", status),
	)
}

// TimedOperation measures the duration of an operation. Returns a
// function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Milliseconds())
	}
}
