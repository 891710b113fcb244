package council

import (
	"encoding/json"
	"fmt"
)

// StageState is the position of an assistant message in the three stage
// pipeline.
type StageState int

const (
	StateAwaitingStage1 StageState = iota
	StateAwaitingStage2
	StateAwaitingStage3
	StateDone
)

func (s StageState) String() string {
	switch s {
	case StateAwaitingStage1:
		return "awaiting_stage1"
	case StateAwaitingStage2:
		return "awaiting_stage2"
	case StateAwaitingStage3:
		return "awaiting_stage3"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name.
func (s StageState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a state name produced by MarshalText.
func (s *StageState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "awaiting_stage1":
		*s = StateAwaitingStage1
	case "awaiting_stage2":
		*s = StateAwaitingStage2
	case "awaiting_stage3":
		*s = StateAwaitingStage3
	case "done":
		*s = StateDone
	default:
		return fmt.Errorf("unknown stage state %q", text)
	}
	return nil
}

// stateFor derives the state from the stages still loading: a message waits
// for the earliest stage whose slot is still empty.
func stateFor(l Loading) StageState {
	switch {
	case l.Stage1:
		return StateAwaitingStage1
	case l.Stage2:
		return StateAwaitingStage2
	case l.Stage3:
		return StateAwaitingStage3
	default:
		return StateDone
	}
}

// Apply folds ev into the open assistant message m and reports whether m
// changed.
//
// A stage event fills its slot only while the slot's loading flag is set,
// whatever stage the message is currently waiting for. Events for filled
// slots and unknown event types are dropped, so replays and out-of-order
// delivery never overwrite data. A complete event clears every loading flag
// and freezes the message.
//
// A stage payload of the wrong shape leaves m untouched and returns an
// error wrapping ErrPayload.
func Apply(m *Message, ev Event) (bool, error) {
	if !m.Open() {
		return false, ErrMessageClosed
	}

	switch ev.Type {
	case EventComplete:
		m.Loading = Loading{}
		m.State = StateDone
		return true, nil

	case EventStage1:
		if !m.Loading.Stage1 {
			return false, nil
		}
		responses, err := decodeStage1(ev.Payload)
		if err != nil {
			return false, err
		}
		m.Stage1 = responses
		m.Loading.Stage1 = false

	case EventStage2:
		if !m.Loading.Stage2 {
			return false, nil
		}
		rankings, md, err := decodeStage2(ev.Payload)
		if err != nil {
			return false, err
		}
		m.Stage2 = rankings
		m.Metadata = md
		m.Loading.Stage2 = false

	case EventStage3:
		if !m.Loading.Stage3 {
			return false, nil
		}
		text, chairman, err := decodeStage3(ev.Payload)
		if err != nil {
			return false, err
		}
		m.Stage3 = &text
		m.Content = text
		m.Chairman = chairman
		m.Loading.Stage3 = false

	default:
		return false, nil
	}

	m.State = stateFor(m.Loading)
	return true, nil
}

// decodeStage1 reads every field other than "type" as model -> answer.
func decodeStage1(payload json.RawMessage) (map[string]string, error) {
	fields, err := decodeFields(payload)
	if err != nil {
		return nil, err
	}

	responses := make(map[string]string, len(fields))
	for model, raw := range fields {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil || isNull(raw) {
			return nil, fmt.Errorf("%w: stage1 answer for %q is not text", ErrPayload, model)
		}
		responses[model] = text
	}
	return responses, nil
}

// decodeStage2 splits the stage 2 payload into reviewer rankings and the
// label_to_model / aggregate_rankings metadata.
func decodeStage2(payload json.RawMessage) (map[string]Ranking, *Metadata, error) {
	fields, err := decodeFields(payload)
	if err != nil {
		return nil, nil, err
	}

	md := &Metadata{}
	if raw, ok := fields["label_to_model"]; ok {
		delete(fields, "label_to_model")
		if err := json.Unmarshal(raw, &md.LabelToModel); err != nil {
			return nil, nil, fmt.Errorf("%w: label_to_model: %w", ErrPayload, err)
		}
	}
	if raw, ok := fields["aggregate_rankings"]; ok {
		delete(fields, "aggregate_rankings")
		if err := json.Unmarshal(raw, &md.AggregateRankings); err != nil {
			return nil, nil, fmt.Errorf("%w: aggregate_rankings: %w", ErrPayload, err)
		}
	}

	rankings := make(map[string]Ranking, len(fields))
	for reviewer, raw := range fields {
		var r Ranking
		if err := json.Unmarshal(raw, &r); err != nil {
			return nil, nil, fmt.Errorf("%w: stage2 ranking from %q: %w", ErrPayload, reviewer, err)
		}
		rankings[reviewer] = r
	}
	return rankings, md, nil
}

// decodeStage3 returns the synthesized text and the chairman model, if named.
// "response" is preferred; "content" is accepted as a fallback.
func decodeStage3(payload json.RawMessage) (string, string, error) {
	var body struct {
		Model    string  `json:"model"`
		Response *string `json:"response"`
		Content  *string `json:"content"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", "", fmt.Errorf("%w: %w", ErrPayload, err)
	}

	switch {
	case body.Response != nil:
		return *body.Response, body.Model, nil
	case body.Content != nil:
		return *body.Content, body.Model, nil
	default:
		return "", "", fmt.Errorf("%w: stage3 event has no response", ErrPayload)
	}
}

// decodeFields decodes a JSON object into its fields, minus the "type"
// discriminator.
func decodeFields(payload json.RawMessage) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPayload, err)
	}
	if fields == nil {
		return nil, fmt.Errorf("%w: payload is null", ErrPayload)
	}
	delete(fields, "type")
	return fields, nil
}
