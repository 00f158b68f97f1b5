package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"github.com/aminemaliki7/NEWS/internal/config"
)

// setupLog points the default logger at the right place. The TUI owns the
// terminal, so it only ever logs to a file, and only when debugging or when
// a log file was configured. Other commands log warnings to stderr.
func setupLog(cfg config.Config, interactive bool) (func() error, error) {
	level := log.WarnLevel
	if cfg.Debug {
		level = log.DebugLevel
	}

	if !interactive && !cfg.Debug && cfg.LogFile == "" {
		log.SetDefault(log.NewWithOptions(os.Stderr, log.Options{Level: level}))
		return func() error { return nil }, nil
	}
	if interactive && !cfg.Debug && cfg.LogFile == "" {
		log.SetOutput(io.Discard)
		return func() error { return nil }, nil
	}

	path, err := config.LogPath(cfg.LogFile)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("unable to open log file: %w", err)
	}

	log.SetDefault(log.NewWithOptions(f, log.Options{
		Level:           level,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          config.AppName,
	}))
	log.Debug("Logging to file", "path", path)
	return f.Close, nil
}
