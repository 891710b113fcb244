package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/papercomputeco/council/pkg/council"
)

// wireTime accepts RFC 3339 timestamps as well as the zone-less ISO 8601
// timestamps the backend produces, which are taken as UTC.
type wireTime struct {
	time.Time
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func (t *wireTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp %q: unsupported format", s)
}

type wireConversationMeta struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	CreatedAt    wireTime `json:"created_at"`
	MessageCount int      `json:"message_count"`
}

func (w wireConversationMeta) toMeta() council.ConversationMeta {
	return council.ConversationMeta{
		ID:           w.ID,
		Title:        w.Title,
		CreatedAt:    w.CreatedAt.Time,
		MessageCount: w.MessageCount,
	}
}

type wireConversation struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	CreatedAt wireTime      `json:"created_at"`
	Messages  []wireMessage `json:"messages"`
}

func (w wireConversation) toConversation() council.Conversation {
	conv := council.Conversation{
		ID:        w.ID,
		Title:     w.Title,
		CreatedAt: w.CreatedAt.Time,
		Messages:  make([]council.Message, 0, len(w.Messages)),
	}
	for _, m := range w.Messages {
		conv.Messages = append(conv.Messages, m.toMessage())
	}
	return conv
}

// wireMessage is a stored message. Assistant messages carry the three
// stage results and no content.
type wireMessage struct {
	Role     council.Role      `json:"role"`
	Content  string            `json:"content"`
	Stage1   wireStage1        `json:"stage1"`
	Stage2   wireStage2        `json:"stage2"`
	Stage3   *wireStage3       `json:"stage3"`
	Metadata *council.Metadata `json:"metadata"`
}

func (w wireMessage) toMessage() council.Message {
	if w.Role != council.RoleAssistant {
		return council.NewUserMessage(w.Content)
	}

	msg := council.Message{
		Role:     council.RoleAssistant,
		Content:  w.Content,
		State:    council.StateDone,
		Stage1:   w.Stage1,
		Stage2:   w.Stage2,
		Metadata: w.Metadata,
	}
	if w.Stage3 != nil {
		text := w.Stage3.Response
		msg.Stage3 = &text
		msg.Content = text
		msg.Chairman = w.Stage3.Model
	}
	return msg
}

// wireSendResult is the body of a non-streaming message post.
type wireSendResult struct {
	Stage1   wireStage1        `json:"stage1"`
	Stage2   wireStage2        `json:"stage2"`
	Stage3   *wireStage3       `json:"stage3"`
	Metadata *council.Metadata `json:"metadata"`
}

func (w wireSendResult) toMessage() council.Message {
	return wireMessage{
		Role:     council.RoleAssistant,
		Stage1:   w.Stage1,
		Stage2:   w.Stage2,
		Stage3:   w.Stage3,
		Metadata: w.Metadata,
	}.toMessage()
}

// wireStage1 decodes either a list of {model, response} or a mapping of
// model to response.
type wireStage1 map[string]string

func (s *wireStage1) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*s = nil
		return nil
	}
	if data[0] == '[' {
		var list []struct {
			Model    string `json:"model"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("stage1: %w", err)
		}
		out := make(wireStage1, len(list))
		for _, r := range list {
			out[r.Model] = r.Response
		}
		*s = out
		return nil
	}

	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("stage1: %w", err)
	}
	*s = m
	return nil
}

// wireStage2 decodes either a list of {model, ranking, parsed_ranking} or
// a mapping of reviewer to ranking.
type wireStage2 map[string]council.Ranking

func (s *wireStage2) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*s = nil
		return nil
	}
	if data[0] == '[' {
		var list []struct {
			Model  string   `json:"model"`
			Text   string   `json:"ranking"`
			Parsed []string `json:"parsed_ranking"`
		}
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("stage2: %w", err)
		}
		out := make(wireStage2, len(list))
		for _, r := range list {
			out[r.Model] = council.Ranking{Text: r.Text, Parsed: r.Parsed}
		}
		*s = out
		return nil
	}

	var m map[string]council.Ranking
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("stage2: %w", err)
	}
	*s = m
	return nil
}

// wireStage3 decodes either {model, response} or a bare string.
type wireStage3 struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

func (s *wireStage3) UnmarshalJSON(data []byte) error {
	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*s = wireStage3{Response: text}
		return nil
	}

	type plain wireStage3
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("stage3: %w", err)
	}
	*s = wireStage3(p)
	return nil
}

func isNull(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) == 0 || bytes.Equal(data, []byte("null"))
}
