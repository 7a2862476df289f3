package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/skypro1111/speech-prep-service/internal/config"
)

// New creates the structured logger described by cfg. File outputs are
// rotated by size and age. The returned closer flushes and releases the
// log file and is a no-op for stdout and stderr.
func New(cfg config.LoggingConfig) (*slog.Logger, io.Closer) {
	level := ParseLevel(cfg.Level)

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	}

	output, closer := openOutput(cfg)

	var handler slog.Handler
	switch cfg.Format {
	case "json":
		handler = slog.NewJSONHandler(output, opts)
	default:
		handler = slog.NewTextHandler(output, opts)
	}

	return slog.New(handler), closer
}

// ParseLevel maps a config level name to a slog level, defaulting to info
func ParseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openOutput(cfg config.LoggingConfig) (io.Writer, io.Closer) {
	switch cfg.Output {
	case "stderr":
		return os.Stderr, nopCloser{}
	case "stdout", "":
		return os.Stdout, nopCloser{}
	}

	writer := &lumberjack.Logger{
		Filename:   cfg.Output,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return writer, writer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
