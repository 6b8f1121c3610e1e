// Package logging builds the zerolog logger shared by every component of a
// run.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config describes where and how to log.
type Config struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File, when set, receives JSON logs in addition to the main output.
	File string `yaml:"file"`
	// Output defaults to os.Stderr.
	Output io.Writer `yaml:"-"`
}

// New creates a logger from cfg. An empty level means info and an empty
// format means console.
func New(cfg Config) (zerolog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	switch strings.ToLower(cfg.Format) {
	case "", FormatConsole:
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: "15:04:05",
			NoColor:    !isTerminal(out),
		}
	case FormatJSON:
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format: %s", cfg.Format)
	}

	if cfg.File != "" {
		file, err := openLogFile(cfg.File)
		if err != nil {
			return zerolog.Nop(), err
		}
		out = zerolog.MultiLevelWriter(out, file)
	}

	zerolog.TimeFieldFormat = time.RFC3339

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("app", "issuewatch").
		Logger(), nil
}

// ParseLevel converts a level name to a zerolog.Level.
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level: %s", level)
	}
}

func openLogFile(path string) (io.Writer, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	return file, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
