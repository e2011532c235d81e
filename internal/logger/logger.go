// Package logger provides the application's structured slog logger. All
// logs are written in JSON format, either to stdout or to a size-rotated
// log file.
package logger

import (
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New creates a JSON slog.Logger at the given level. When logFile is empty
// logs go to stdout; otherwise they are written to logFile with rotation
// (10 MB per file, 5 backups, 30 days retention).
func New(logFile string, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	if logFile == "" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}

	w := &lumberjack.Logger{
		Filename:   logFile,
		MaxSize:    10,
		MaxBackups: 5,
		MaxAge:     30,
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}
