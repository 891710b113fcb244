package logger

import (
	"context"
	"errors"
	"log/slog"
)

// Tee returns a logger that writes every record to each of loggers, so the
// chat command can keep its terminal output while a --log-file receives
// the full debug trail. Nil loggers are skipped.
func Tee(loggers ...*slog.Logger) *slog.Logger {
	var hs fanout
	for _, l := range loggers {
		if l != nil {
			hs = append(hs, l.Handler())
		}
	}
	return slog.New(hs)
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to every handler that accepts its level, even when an
// earlier handler fails.
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) derive(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
