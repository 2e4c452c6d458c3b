package app

import (
	"io"
	"log"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logMaxSizeMB  = 50
	logMaxBackups = 5
	logMaxAgeDays = 14
)

// NewLogWriter returns console, additionally teeing into a rotated log file
// when path is set. The returned closer releases the file.
func NewLogWriter(console io.Writer, path string) (io.Writer, io.Closer) {
	if path == "" {
		return console, io.NopCloser(nil)
	}

	file := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    logMaxSizeMB,
		MaxBackups: logMaxBackups,
		MaxAge:     logMaxAgeDays,
		Compress:   true,
	}

	return io.MultiWriter(console, file), file
}

// NewLogger creates a text logger whose level is controlled by level
func NewLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// RedirectStdLog sends output of the standard log package, which some
// libraries write to directly, through logger at debug level
func RedirectStdLog(logger *slog.Logger) {
	log.SetFlags(0)
	log.SetOutput(slog.NewLogLogger(logger.Handler(), slog.LevelDebug).Writer())
}
