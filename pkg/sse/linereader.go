package sse

import (
	"bufio"
	"bytes"
	"errors"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrLineTooLong is returned by LineReader.Next for a line longer than the
// configured maximum. The line is skipped and reading can continue.
var ErrLineTooLong = errors.New("sse: line too long")

// LineReader turns a byte stream into newline terminated text lines.
//
//	┌──────────────────┐
//	│ source io.Reader │──▶ optional tee
//	└──────────────────┘
//	         │
//	         ▼
//	┌──────────────────┐
//	│   UTF-8 decode   │  runes split across reads are held back
//	└──────────────────┘
//	         │
//	         ▼
//	┌──────────────────┐
//	│ split on "\n"    │  unterminated tail kept in partial
//	└──────────────────┘
//
// The bytes after the last "\n" are never returned: when the source ends
// they are discarded. A LineReader is not safe for concurrent use.
type LineReader struct {
	br  *bufio.Reader
	max int

	// partial holds the unterminated tail of a line longer than br's
	// buffer.
	partial    []byte
	discarding bool
	err        error
}

// NewLineReader returns a LineReader reading from src.
func NewLineReader(src io.Reader, opts ...Option) *LineReader {
	return newLineReader(src, newConfig(opts))
}

func newLineReader(src io.Reader, c config) *LineReader {
	if c.tee != nil {
		src = io.TeeReader(src, c.tee)
	}
	decoded := transform.NewReader(src, unicode.UTF8BOM.NewDecoder())

	return &LineReader{
		br:  bufio.NewReaderSize(decoded, min(c.maxLineBytes+2, 64*1024)),
		max: c.maxLineBytes,
	}
}

// Next blocks until a complete line is available and returns it without
// its "\n" or "\r\n" terminator. At the end of the source it returns io.EOF;
// any other read error is returned as is. Both are sticky.
func (r *LineReader) Next() (string, error) {
	if r.err != nil {
		return "", r.err
	}

	for {
		chunk, err := r.br.ReadSlice('\n')
		switch {
		case err == nil:
			if r.discarding {
				r.discarding = false
				return "", ErrLineTooLong
			}

			line := chunk
			if len(r.partial) > 0 {
				r.partial = append(r.partial, chunk...)
				line = r.partial
			}
			line = trimEOL(line)
			r.partial = r.partial[:0]

			if len(line) > r.max {
				return "", ErrLineTooLong
			}
			return string(line), nil

		case errors.Is(err, bufio.ErrBufferFull):
			if r.discarding {
				continue
			}
			if len(r.partial)+len(chunk) > r.max+1 {
				r.partial = r.partial[:0]
				r.discarding = true
				continue
			}
			r.partial = append(r.partial, chunk...)

		default:
			r.partial = nil
			r.err = err
			return "", err
		}
	}
}

func trimEOL(line []byte) []byte {
	line = bytes.TrimSuffix(line, []byte{'\n'})
	return bytes.TrimSuffix(line, []byte{'\r'})
}
