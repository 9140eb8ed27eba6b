package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// SetupLogger returns a text logger on stdout. When logFile is set, records
// are also written as JSON to that file. The returned cleanup closes the file.
func SetupLogger(debug bool, logFile string) (*slog.Logger, func() error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	if logFile == "" {
		return newLogger(os.Stdout, nil, level), func() error { return nil }
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		logger := newLogger(os.Stdout, nil, level)
		logger.Error("failed to open log file, using stdout only", "error", err, "file", logFile)
		return logger, func() error { return nil }
	}
	return newLogger(os.Stdout, file, level), file.Close
}

// newLogger writes text records to text and, when jsonOut is non-nil, the
// same records as JSON to jsonOut.
func newLogger(text, jsonOut io.Writer, level slog.Level) *slog.Logger {
	textHandler := slog.NewTextHandler(text, &slog.HandlerOptions{Level: level})
	if jsonOut == nil {
		return slog.New(textHandler)
	}
	return slog.New(slogmulti.Fanout(
		textHandler,
		slog.NewJSONHandler(jsonOut, &slog.HandlerOptions{Level: level}),
	))
}
