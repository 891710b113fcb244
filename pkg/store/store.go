// Package store holds the in-memory message list of the open conversation
// and drives the stage state machine against its open assistant message.
package store

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/logger"
)

// ErrClosed is returned for mutations after Close.
var ErrClosed = errors.New("store is closed")

// Observer is notified after every mutation of the store.
//
// Notify receives a deep copy of the conversation and is called
// synchronously, once per mutation, in mutation order. It must not call
// back into the store.
type Observer interface {
	Notify(conv council.Conversation)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(conv council.Conversation)

// Notify calls f(conv).
func (f ObserverFunc) Notify(conv council.Conversation) {
	f(conv)
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used to report dropped events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver subscribes o at construction time.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observers = append(s.observers, o)
	}
}

// Store owns the mutable message list of one conversation. It is safe for
// concurrent use.
type Store struct {
	// notifyMu serializes a mutation together with its notification so
	// observers see snapshots in mutation order.
	notifyMu sync.Mutex

	mu        sync.Mutex
	conv      council.Conversation
	observers []Observer
	closed    bool

	logger *slog.Logger
}

// New returns a store seeded with a deep copy of conv.
func New(conv council.Conversation, opts ...Option) *Store {
	s := &Store{
		conv:   conv.Clone(),
		logger: logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe adds o to the observers notified after each mutation.
func (s *Store) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// Snapshot returns a deep copy of the conversation.
func (s *Store) Snapshot() council.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv.Clone()
}

// AppendMessage adds msg to the end of the conversation. An appended open
// assistant message becomes the target of ApplyEvent. An assistant message
// still open before the append, such as an abandoned answer, is frozen as
// it is so that only the last message can ever be open.
func (s *Store) AppendMessage(msg council.Message) error {
	_, err := s.mutate(func(conv *council.Conversation) (bool, error) {
		for i := range conv.Messages {
			if conv.Messages[i].Open() {
				_, _ = council.Apply(&conv.Messages[i], council.CompleteEvent())
			}
		}
		conv.Messages = append(conv.Messages, msg.Clone())
		return true, nil
	})
	return err
}

// ApplyEvent folds ev into the last message when it is an open assistant
// message, and reports whether the conversation changed. Events for a
// finished message, duplicates, unknown types and malformed payloads
// change nothing; malformed payloads are logged.
func (s *Store) ApplyEvent(ev council.Event) bool {
	changed, _ := s.mutate(func(conv *council.Conversation) (bool, error) {
		if len(conv.Messages) == 0 {
			return false, nil
		}
		last := &conv.Messages[len(conv.Messages)-1]
		if !last.Open() {
			s.logger.Debug("ignoring event without an open message", "type", ev.Type)
			return false, nil
		}

		changed, err := council.Apply(last, ev)
		if err != nil {
			s.logger.Warn("dropping event",
				"conversation", conv.ID,
				"type", ev.Type,
				"error", err,
			)
			return false, nil
		}
		return changed, nil
	})
	return changed
}

// Replace swaps the whole conversation, e.g. after reloading it from the
// backend.
func (s *Store) Replace(conv council.Conversation) error {
	conv = conv.Clone()
	_, err := s.mutate(func(c *council.Conversation) (bool, error) {
		*c = conv
		return true, nil
	})
	return err
}

// Close detaches the store: later events are ignored, later appends and
// replaces fail with ErrClosed and observers are no longer notified.
func (s *Store) Close() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// mutate runs fn under the lock and, if it changed the conversation,
// notifies every observer exactly once.
func (s *Store) mutate(fn func(conv *council.Conversation) (bool, error)) (bool, error) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	changed, err := fn(&s.conv)
	if err != nil || !changed {
		s.mu.Unlock()
		return false, err
	}
	snapshot := s.conv.Clone()
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o.Notify(snapshot.Clone())
	}
	return true, nil
}
