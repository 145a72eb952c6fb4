// Package logging builds the structured slog loggers used by the engine and
// the command line, with optional rotated file output.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config defines logger output.
type Config struct {
	Level  string `mapstructure:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" validate:"omitempty,oneof=json text"`

	// File enables rotated file output. Empty logs to stderr.
	File string `mapstructure:"file" yaml:"file"`

	// MaxSize is in megabytes and MaxAge in days.
	MaxSize    int  `mapstructure:"max_size" yaml:"max_size" validate:"gte=0"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups" validate:"gte=0"`
	MaxAge     int  `mapstructure:"max_age" yaml:"max_age" validate:"gte=0"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a logger from cfg. When cfg.File is set, output goes to a
// lumberjack rotated file.
func New(cfg Config) *slog.Logger {
	var w io.Writer = os.Stderr
	if cfg.File != "" {
		w = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
	}
	return NewWithWriter(cfg, w)
}

// NewWithWriter creates a logger writing to w.
func NewWithWriter(cfg Config, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
