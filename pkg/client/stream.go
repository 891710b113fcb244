package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/sse"
)

// Stream is an open event stream for one posted message.
//
// Next is not safe for concurrent use; Close may be called from any
// goroutine to abort a blocked Next.
type Stream struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	body   io.ReadCloser
	events *sse.Reader
	timer  *time.Timer

	closeOnce sync.Once
}

// StreamMessage posts content and opens the stream of stage events that
// answers it. Connection and status failures are returned before any event
// is read. The caller must Close the stream.
//
// opts are passed to the event reader, after the client's own line limit
// and logger.
func (c *Client) StreamMessage(ctx context.Context, id, content string, opts ...sse.Option) (*Stream, error) {
	ctx, cancel := context.WithCancelCause(ctx)

	var timer *time.Timer
	if c.streamIdleTimeout > 0 {
		timer = time.AfterFunc(c.streamIdleTimeout, func() { cancel(ErrStreamIdle) })
	}

	body := map[string]string{"content": content}
	resp, err := c.do(ctx, http.MethodPost, conversationPath(id)+"/message/stream", body, "text/event-stream")
	if err != nil {
		if timer != nil {
			timer.Stop()
		}
		cancel(nil)
		return nil, fmt.Errorf("streaming message: %w", err)
	}

	var src io.Reader = resp.Body
	if timer != nil {
		timer.Reset(c.streamIdleTimeout)
		src = &idleReader{r: resp.Body, timer: timer, d: c.streamIdleTimeout}
	}

	readerOpts := append([]sse.Option{
		sse.WithMaxLineBytes(c.maxLineBytes),
		sse.WithLogger(c.logger),
	}, opts...)

	return &Stream{
		ctx:    ctx,
		cancel: cancel,
		body:   resp.Body,
		events: sse.NewReader(src, readerOpts...),
		timer:  timer,
	}, nil
}

// Next blocks until the next event. It returns io.EOF once the stream has
// ended normally, by sentinel or by the backend closing the body. When the
// stream was aborted the error is the cause: ErrStreamIdle, or the
// context's error.
func (s *Stream) Next() (council.Event, error) {
	ev, err := s.events.Next()
	if err == nil || errors.Is(err, io.EOF) {
		return ev, err
	}
	if cause := context.Cause(s.ctx); cause != nil {
		return council.Event{}, cause
	}
	return council.Event{}, err
}

// Close aborts the request and releases the connection. It is safe to call
// more than once.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.timer != nil {
			s.timer.Stop()
		}
		s.cancel(context.Canceled)
		err = s.body.Close()
	})
	return err
}

// idleReader pushes the idle deadline back on every read that returns data.
type idleReader struct {
	r     io.Reader
	timer *time.Timer
	d     time.Duration
}

func (r *idleReader) Read(p []byte) (int, error) {
	n, err := r.r.Read(p)
	if n > 0 {
		r.timer.Reset(r.d)
	}
	return n, err
}
