// Package logging builds the process logger. Records go to a file as JSON,
// or to stderr in the compact one-line format unless another format is
// chosen.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrUnknownLevel is returned by ParseLevel for names other than DEBUG,
// INFO, WARN/WARNING and ERROR.
var ErrUnknownLevel = errors.New("logging: unknown level")

// ErrUnknownFormat is returned by ParseFormat for names other than compact,
// text and json.
var ErrUnknownFormat = errors.New("logging: unknown format")

// Options configures New.
type Options struct {
	// Level is a level name, case-insensitive. Empty means WARN.
	Level string

	// File, when set, receives JSON records (appended).
	File string

	// Format applies to Stderr: compact (default), text or json.
	Format string

	// Colors enables ANSI level colours in the compact format.
	Colors bool

	// Stderr is the destination when File is empty. Default: os.Stderr.
	Stderr io.Writer
}

// ParseLevel maps a level name to its slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "DEBUG":
		return slog.LevelDebug, nil
	case "INFO":
		return slog.LevelInfo, nil
	case "", "WARN", "WARNING":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownLevel, name)
	}
}

// New returns the logger and a close function that releases the log file,
// if any. The close function is never nil.
func New(options Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(options.Level)
	if err != nil {
		return nil, nil, err
	}
	format, err := ParseFormat(options.Format)
	if err != nil {
		return nil, nil, err
	}
	handlerOptions := &slog.HandlerOptions{Level: level}

	if options.File != "" {
		file, err := os.OpenFile(options.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("logging: open %s: %w", options.File, err)
		}
		return slog.New(slog.NewJSONHandler(file, handlerOptions)), file.Close, nil
	}

	w := options.Stderr
	if w == nil {
		w = os.Stderr
	}
	noClose := func() error { return nil }

	switch format {
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, handlerOptions)), noClose, nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, handlerOptions)), noClose, nil
	default:
		return slog.New(newCompactHandler(w, level, options.Colors)), noClose, nil
	}
}
