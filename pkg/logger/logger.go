// Package logger builds the *slog.Logger used across council: plain text by
// default, colorized through charmbracelet/log for interactive use, or JSON
// for machine consumption.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Format selects the handler behind a logger.
type Format int

const (
	FormatText Format = iota
	FormatPretty
	FormatJSON
)

func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatPretty:
		return "pretty"
	case FormatJSON:
		return "json"
	default:
		return fmt.Sprintf("format(%d)", int(f))
	}
}

type settings struct {
	level  slog.Level
	format Format
	prefix string
	w      io.Writer
}

// New returns a logger configured by opts. Without options it writes text
// at Info level to os.Stderr, keeping stdout free for command output.
func New(opts ...Option) *slog.Logger {
	s := &settings{
		level: slog.LevelInfo,
		w:     os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}

	var l *slog.Logger
	switch s.format {
	case FormatPretty:
		return slog.New(charmlog.NewWithOptions(s.w, charmlog.Options{
			Level:           charmlog.Level(s.level),
			ReportTimestamp: true,
			Prefix:          s.prefix,
		}))
	case FormatJSON:
		l = slog.New(slog.NewJSONHandler(s.w, &slog.HandlerOptions{Level: s.level}))
	default:
		l = slog.New(slog.NewTextHandler(s.w, &slog.HandlerOptions{Level: s.level}))
	}
	if s.prefix != "" {
		l = l.With("component", s.prefix)
	}
	return l
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
