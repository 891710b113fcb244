package eventstream

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/logger"
)

const publishTimeout = 5 * time.Second

// Observer publishes an AnswerCompletedEvent each time the open assistant
// message of a conversation finishes. Messages that are already finished
// when first seen are never published. It implements store.Observer.
type Observer struct {
	pub    Publisher
	src    EventSource
	logger *slog.Logger

	mu    sync.Mutex
	index int
	open  bool
}

// NewObserver returns an Observer publishing to pub. A nil logger discards
// publish failures.
func NewObserver(pub Publisher, src EventSource, l *slog.Logger) *Observer {
	if l == nil {
		l = logger.Nop()
	}
	return &Observer{
		pub:    pub,
		src:    src,
		logger: l,
		index:  -1,
	}
}

// Notify implements store.Observer.
func (o *Observer) Notify(conv council.Conversation) {
	o.mu.Lock()
	defer o.mu.Unlock()

	idx := len(conv.Messages) - 1
	if idx < 0 || conv.Messages[idx].Role != council.RoleAssistant {
		return
	}
	answer := conv.Messages[idx]

	if idx != o.index {
		o.index = idx
		o.open = answer.Open()
		return
	}
	if !o.open || answer.Open() {
		return
	}
	o.open = false

	var prompt string
	if idx > 0 && conv.Messages[idx-1].Role == council.RoleUser {
		prompt = conv.Messages[idx-1].Content
	}
	ev := NewAnswerCompletedEvent(o.src, conv.ID, prompt, answer)

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	if err := o.pub.PublishAnswer(ctx, ev); err != nil {
		o.logger.Warn("publishing answer event failed",
			"conversation", conv.ID,
			"event_id", ev.EventID,
			"error", err,
		)
		return
	}
	o.logger.Debug("published answer event", "conversation", conv.ID, "event_id", ev.EventID)
}
