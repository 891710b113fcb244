// Package chat drives one conversation: it posts prompts, streams the
// council's answer and folds every event into the conversation store.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/papercomputeco/council/pkg/client"
	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/logger"
	"github.com/papercomputeco/council/pkg/sse"
	"github.com/papercomputeco/council/pkg/store"
)

// ErrBusy is returned by Send while another Send of the same session is in
// flight.
var ErrBusy = errors.New("a message is already streaming")

// Streamer opens the event stream answering a posted message.
// *client.Client implements it.
type Streamer interface {
	StreamMessage(ctx context.Context, id, content string, opts ...sse.Option) (*client.Stream, error)
}

// Loader fetches a conversation. *client.Client implements it.
type Loader interface {
	GetConversation(ctx context.Context, id string) (council.Conversation, error)
}

// Backend is what a Session needs from the council backend.
type Backend interface {
	Streamer
	Loader
}

// Session sends prompts in one conversation. At most one Send runs at a
// time.
type Session struct {
	backend Backend
	convID  string
	store   *store.Store

	streamOpts []sse.Option
	logger     *slog.Logger

	busy atomic.Bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the session logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStreamOptions passes opts to every event reader the session opens.
func WithStreamOptions(opts ...sse.Option) Option {
	return func(s *Session) {
		s.streamOpts = append(s.streamOpts, opts...)
	}
}

// NewSession returns a session posting to conversation convID and
// recording into st.
func NewSession(backend Backend, convID string, st *store.Store, opts ...Option) *Session {
	s := &Session{
		backend: backend,
		convID:  convID,
		store:   st,
		logger:  logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ConversationID returns the id of the session's conversation.
func (s *Session) ConversationID() string {
	return s.convID
}

// Store returns the store the session records into.
func (s *Session) Store() *store.Store {
	return s.store
}

// Load replaces the store contents with the conversation as stored by the
// backend.
func (s *Session) Load(ctx context.Context) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	conv, err := s.backend.GetConversation(ctx, s.convID)
	if err != nil {
		return err
	}
	return s.store.Replace(conv)
}

// Send appends content as a user message followed by an open assistant
// message, then streams the council's answer into that message.
//
// When the stream ends, by sentinel or by the backend closing it, the
// message is completed and Send returns nil. When opening or reading the
// stream fails the message is completed with whatever arrived and the
// error is returned. When ctx is canceled Send returns its error without
// touching the store again; the abandoned message is frozen by the next
// append.
func (s *Session) Send(ctx context.Context, content string) error {
	if !s.busy.CompareAndSwap(false, true) {
		return ErrBusy
	}
	defer s.busy.Store(false)

	if err := s.store.AppendMessage(council.NewUserMessage(content)); err != nil {
		return err
	}
	if err := s.store.AppendMessage(council.NewAssistantMessage()); err != nil {
		return err
	}

	stream, err := s.backend.StreamMessage(ctx, s.convID, content, s.streamOpts...)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.finish()
		s.logger.Error("opening stream", "conversation", s.convID, "error", err)
		return err
	}
	defer stream.Close()

	for {
		ev, err := stream.Next()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			s.finish()
			s.logger.Error("reading stream", "conversation", s.convID, "error", err)
			return fmt.Errorf("reading stream: %w", err)
		}

		if s.store.ApplyEvent(ev) {
			s.logger.Debug("applied event", "conversation", s.convID, "type", ev.Type)
		}
	}

	s.finish()
	return nil
}

// finish completes the open assistant message, if any.
func (s *Session) finish() {
	s.store.ApplyEvent(council.CompleteEvent())
}
