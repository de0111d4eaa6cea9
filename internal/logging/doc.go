// Package logging provides structured logging with per-module log levels.
//
// Loggers are plain *slog.Logger values tagged with a "module" attribute.
// Output is routed automatically:
//   - stdout (text or json) when a terminal, pipe or file is attached
//   - the systemd journal when journald is reachable
//   - an in-memory ring buffer that backs the /api/logs endpoint
//
// Initialize once at startup, then ask for a logger per module:
//
//	logging.Initialize(logging.Config{
//		Level:  "info",
//		Format: "text",
//		Modules: map[string]string{
//			"supervisor": "debug",
//			"ffmpeg":     "warn",
//		},
//	})
//
//	logger := logging.GetLogger("supervisor")
//	logger.Info("Segment started", "segment_id", id)
//
// Loggers handed out before Initialize keep working; their level and handler
// chain are updated in place when Initialize runs.
//
// On hosts with journald the output can be filtered by field:
//
//	journalctl -t restreamer MODULE=supervisor
//	journalctl -t restreamer -p err
package logging
