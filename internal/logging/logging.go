// Package logging builds the process logger. The terminal belongs to the
// TUI, so logs only ever go to a rotated file.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

type Options struct {
	Path      string
	Level     string
	SessionID string
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger and the closer for its sink. An empty path disables
// logging entirely.
func New(opts Options) (zerolog.Logger, io.Closer, error) {
	if strings.TrimSpace(opts.Path) == "" {
		return zerolog.Nop(), nopCloser{}, nil
	}

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return zerolog.Nop(), nopCloser{}, err
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return zerolog.Nop(), nopCloser{}, fmt.Errorf("create log dir: %w", err)
	}

	sink := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    5,
		MaxBackups: 3,
		MaxAge:     28,
	}
	return NewWithWriter(sink, level, opts.SessionID), sink, nil
}

func NewWithWriter(w io.Writer, level zerolog.Level, sessionID string) zerolog.Logger {
	ctx := zerolog.New(w).Level(level).With().Timestamp()
	if sessionID != "" {
		ctx = ctx.Str("session_id", sessionID)
	}
	return ctx.Logger()
}

// ParseLevel accepts zerolog level names; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level %q: %w", s, err)
	}
	return level, nil
}
