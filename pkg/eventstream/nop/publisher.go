package nop

import (
	"context"

	"github.com/papercomputeco/council/pkg/eventstream"
)

// Publisher is a no-op eventstream publisher used when no event stream is
// configured.
type Publisher struct{}

// NewPublisher creates a new no-op eventstream publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishAnswer validates input and otherwise does nothing.
func (p *Publisher) PublishAnswer(_ context.Context, event *eventstream.AnswerCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilAnswerEvent
	}

	return nil
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}
