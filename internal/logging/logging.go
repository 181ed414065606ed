// SPDX-License-Identifier: MPL-2.0

// Package logging builds the application logger from configuration.
package logging

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/valleymod/valleymod/internal/config"
)

// Logger is a charm logger that may own a rotating log file.
type Logger struct {
	*log.Logger
	closer io.Closer
}

// New creates a logger writing to console and, when cfg.File is set, to a
// size-rotated file as well.
func New(cfg config.LogConfig, console io.Writer) (*Logger, error) {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	formatter, err := parseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}

	w := console
	var closer io.Closer
	if cfg.File != "" {
		lj := newLumberjack(cfg)
		w = io.MultiWriter(console, lj)
		closer = lj
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		Prefix:          config.AppName,
		ReportTimestamp: cfg.File != "" || formatter != log.TextFormatter,
		TimeFormat:      time.RFC3339,
	})
	return &Logger{Logger: logger, closer: closer}, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{Logger: log.New(io.Discard)}
}

// Close closes the log file, if any.
func (l *Logger) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

func parseFormat(format string) (log.Formatter, error) {
	switch format {
	case config.LogFormatText, "":
		return log.TextFormatter, nil
	case config.LogFormatJSON:
		return log.JSONFormatter, nil
	case config.LogFormatLogfmt:
		return log.LogfmtFormatter, nil
	default:
		return 0, errors.New("unknown log format: " + format)
	}
}

func newLumberjack(cfg config.LogConfig) *lumberjack.Logger {
	maxSize := cfg.MaxSizeMB
	if maxSize <= 0 {
		maxSize = 10
	}
	maxBackups := cfg.MaxBackups
	if maxBackups < 0 {
		maxBackups = 0
	}
	return &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    maxSize,
		MaxBackups: maxBackups,
		MaxAge:     28,
		Compress:   true,
	}
}
