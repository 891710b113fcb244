package sse

import (
	"io"
	"log/slog"

	"github.com/papercomputeco/council/pkg/logger"
)

// DefaultMaxLineBytes bounds a single line of the event stream.
const DefaultMaxLineBytes = 1024 * 1024

// Option configures a Reader or LineReader.
type Option func(*config)

type config struct {
	maxLineBytes int
	tee          io.Writer
	logger       *slog.Logger
}

func newConfig(opts []Option) config {
	c := config{
		maxLineBytes: DefaultMaxLineBytes,
		logger:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithMaxLineBytes caps the length of a line, terminator excluded. Longer
// lines are skipped. Values below 1 keep the default.
func WithMaxLineBytes(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxLineBytes = n
		}
	}
}

// WithTee copies every raw byte read from the source to w before it is
// decoded, e.g. to record a session.
func WithTee(w io.Writer) Option {
	return func(c *config) {
		c.tee = w
	}
}

// WithLogger sets the logger used for dropped-line diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
