// Package sse reads the council backend's text event stream: "data: "
// prefixed lines, each carrying a JSON event object or the "[DONE]"
// sentinel.
//
// Only the single-line data form used by the backend is understood; this
// is not a general Server-Sent Events parser.
package sse

import (
	"errors"
	"io"
	"log/slog"

	"github.com/papercomputeco/council/pkg/council"
)

// Reader is a pull based iterator over the events of a stream.
type Reader struct {
	lines  *LineReader
	dec    *Decoder
	logger *slog.Logger
	done   bool
}

// NewReader returns a Reader decoding events from src.
func NewReader(src io.Reader, opts ...Option) *Reader {
	c := newConfig(opts)
	return &Reader{
		lines:  newLineReader(src, c),
		dec:    NewDecoder(c.logger),
		logger: c.logger,
	}
}

// Next blocks until the next event is available.
//
// After the sentinel has been returned as a complete event, or the source
// is exhausted, Next returns io.EOF. A read error from the source is
// returned as is and ends the stream as well. Malformed and overlong lines
// are skipped.
func (r *Reader) Next() (council.Event, error) {
	if r.done {
		return council.Event{}, io.EOF
	}

	for {
		line, err := r.lines.Next()
		if errors.Is(err, ErrLineTooLong) {
			r.logger.Warn("dropping overlong line", "max_bytes", r.lines.max)
			continue
		}
		if err != nil {
			r.done = true
			return council.Event{}, err
		}

		ev, ok, done := r.dec.Decode(line)
		if !ok {
			continue
		}
		if done {
			r.done = true
		}
		return ev, nil
	}
}
