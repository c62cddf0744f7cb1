package task

import "log/slog"

// Critical logs a terminal task failure. slog has no level above Error,
// so critical records are error records carrying a marker attribute.
func Critical(logger *slog.Logger, msg string, args ...any) {
	logger.Error(msg, append(args, "critical", true)...)
}
