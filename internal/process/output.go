package process

import "log/slog"

// LogParser parses a log line and returns the log level and message.
// Used to extract structured log info from process output.
type LogParser func(line string) (level, msg string)

// LogLine writes one line of child output to logger at the level the parser
// reports. A nil parser logs everything at info.
func LogLine(logger *slog.Logger, parser LogParser, line string) {
	level, msg := "info", line
	if parser != nil {
		level, msg = parser(line)
	}

	switch level {
	case "panic", "fatal", "error":
		logger.Error(msg)
	case "warning":
		logger.Warn(msg)
	case "verbose", "debug", "trace":
		logger.Debug(msg)
	case "quiet":
	default:
		logger.Info(msg)
	}
}
