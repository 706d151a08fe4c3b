// Package logging builds the process logger.
package logging

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"wip/internal/config"
)

// Rotation limits for the log file.
const (
	MaxSizeMB  = 5
	MaxBackups = 3
	MaxAgeDays = 28
)

// New returns a text logger writing to the rotating log file in cfg.Dir.
// With cfg.Debug set, records at debug level and above are also written
// to stderr. The returned closer releases the log file.
func New(cfg *config.Config, stderr io.Writer) (*slog.Logger, io.Closer) {
	file := &lumberjack.Logger{
		Filename:   cfg.LogPath(),
		MaxSize:    MaxSizeMB,
		MaxBackups: MaxBackups,
		MaxAge:     MaxAgeDays,
	}

	level := slog.LevelInfo
	var w io.Writer = file
	if cfg.Debug {
		level = slog.LevelDebug
		if stderr != nil {
			w = io.MultiWriter(file, stderr)
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler), file
}
