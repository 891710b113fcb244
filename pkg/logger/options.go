package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger created with New.
type Option func(*settings)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		if debug {
			s.level = slog.LevelDebug
		} else {
			s.level = slog.LevelInfo
		}
	}
}

// WithFormat picks the output format. The last call wins.
func WithFormat(f Format) Option {
	return func(s *settings) {
		s.format = f
	}
}

// WithPrefix names the emitting component. Pretty output shows it as the
// line prefix; text and JSON output carry it as a "component" attribute.
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		s.prefix = prefix
	}
}

// WithWriter sets the destination. A nil writer is ignored.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		if w != nil {
			s.w = w
		}
	}
}
