// Package eventstream publishes council activity to an event stream so other
// systems can consume finished answers.
package eventstream

import "context"

// Publisher publishes answer events to an event stream backend.
type Publisher interface {
	PublishAnswer(ctx context.Context, event *AnswerCompletedEvent) error
	Close() error
}
