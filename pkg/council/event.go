package council

import (
	"encoding/json"
	"errors"
)

// EventType discriminates the events of a council response stream.
type EventType string

const (
	EventStage1   EventType = "stage1"
	EventStage2   EventType = "stage2"
	EventStage3   EventType = "stage3"
	EventComplete EventType = "complete"
)

// Event is one typed event of a council response stream.
//
// Payload is the event's JSON object exactly as the backend sent it,
// including the "type" field. Which fields are meaningful depends on Type;
// the payload is only interpreted when the event is applied to a message.
type Event struct {
	Type    EventType
	Payload json.RawMessage
}

// CompleteEvent is the event synthesized for the end of a stream.
func CompleteEvent() Event {
	return Event{Type: EventComplete}
}

var (
	// ErrPayload indicates a stage event whose payload does not have the
	// shape its type requires.
	ErrPayload = errors.New("malformed stage payload")

	// ErrMessageClosed indicates an event applied to a message that is not
	// an open assistant message.
	ErrMessageClosed = errors.New("message is not open")
)
