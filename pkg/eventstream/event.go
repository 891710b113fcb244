package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/council/pkg/council"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeAnswerCompleted is emitted once a council answer is finished.
	EventTypeAnswerCompleted = "council.answer.completed"
)

// AnswerCompletedEvent is a transport-neutral event payload for a finished
// council answer.
type AnswerCompletedEvent struct {
	SchemaVersion  int             `json:"schema_version"`
	EventType      string          `json:"event_type"`
	EventID        string          `json:"event_id"`
	EmittedAt      time.Time       `json:"emitted_at"`
	Source         EventSource     `json:"source"`
	ConversationID string          `json:"conversation_id"`
	Prompt         string          `json:"prompt"`
	Answer         council.Message `json:"answer"`
}

// EventSource identifies where the answer was received.
type EventSource struct {
	DeviceID string `json:"device_id,omitempty"`
	Backend  string `json:"backend"`
}

// NewAnswerCompletedEvent builds the event for answer, given in reply to
// prompt in conversation convID.
func NewAnswerCompletedEvent(src EventSource, convID, prompt string, answer council.Message) *AnswerCompletedEvent {
	return &AnswerCompletedEvent{
		SchemaVersion:  SchemaVersionV1,
		EventType:      EventTypeAnswerCompleted,
		EventID:        "evt_" + uuid.NewString(),
		EmittedAt:      time.Now().UTC(),
		Source:         src,
		ConversationID: convID,
		Prompt:         prompt,
		Answer:         answer.Clone(),
	}
}
