// Package council holds the conversation model shared by the council client:
// conversations, messages, the typed stream events pushed by the backend and
// the per-message stage state machine that folds those events into an
// in-progress assistant message.
//
// A council answer is produced in three stages:
//
//	stage 1: every council model answers the prompt independently
//	stage 2: every model ranks the anonymized answers of its peers
//	stage 3: a chairman model synthesizes the final answer
package council

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
	"slices"
	"time"
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Loading reports which stages of an assistant message are still in flight.
// All flags are false once their stage has arrived or the message is done.
type Loading struct {
	Stage1 bool `json:"stage1"`
	Stage2 bool `json:"stage2"`
	Stage3 bool `json:"stage3"`
}

// Any reports whether any stage is still loading.
func (l Loading) Any() bool {
	return l.Stage1 || l.Stage2 || l.Stage3
}

// Ranking is one reviewer's stage 2 evaluation of its peers.
type Ranking struct {
	// Text is the raw ranking text produced by the reviewer.
	Text string `json:"ranking"`

	// Parsed is the ordered list of response labels extracted from Text,
	// best first. It is empty when the backend did not parse the ranking.
	Parsed []string `json:"parsed_ranking,omitempty"`
}

// UnmarshalJSON accepts either a bare ranking string or an object with
// "ranking" and "parsed_ranking" fields.
func (r *Ranking) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		return errors.New("ranking is null")
	}

	var text string
	if err := json.Unmarshal(data, &text); err == nil {
		*r = Ranking{Text: text}
		return nil
	}

	type plain Ranking
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = Ranking(p)
	return nil
}

// AggregateRanking is a model's average position across all peer rankings.
type AggregateRanking struct {
	Model         string  `json:"model"`
	AverageRank   float64 `json:"average_rank"`
	RankingsCount int     `json:"rankings_count"`
}

// Metadata accompanies the stage 2 results.
type Metadata struct {
	// LabelToModel de-anonymizes the response labels ("Response A") used
	// during peer review.
	LabelToModel map[string]string `json:"label_to_model,omitempty"`

	// AggregateRankings is ordered best first.
	AggregateRankings []AggregateRanking `json:"aggregate_rankings,omitempty"`
}

// Message is a single entry in a conversation.
//
// User messages carry only Content. Assistant messages are created open,
// with every loading flag set, and are filled in stage by stage through
// Apply until they reach StateDone. Stage payload fields stay nil until
// their stage arrives.
type Message struct {
	Role    Role       `json:"role"`
	Content string     `json:"content,omitempty"`
	Loading Loading    `json:"loading"`
	State   StageState `json:"state"`

	// Stage1 maps a model identifier to its independent answer.
	Stage1 map[string]string `json:"stage1,omitempty"`

	// Stage2 maps a reviewer model identifier to its ranking.
	Stage2 map[string]Ranking `json:"stage2,omitempty"`

	// Stage3 is the synthesized final answer.
	Stage3 *string `json:"stage3,omitempty"`

	// Chairman is the model that produced Stage3, when the backend names it.
	Chairman string `json:"chairman,omitempty"`

	Metadata *Metadata `json:"metadata,omitempty"`
}

// NewUserMessage returns a finished user message.
func NewUserMessage(content string) Message {
	return Message{
		Role:    RoleUser,
		Content: content,
		State:   StateDone,
	}
}

// NewAssistantMessage returns an empty, open assistant message waiting for
// stage 1.
func NewAssistantMessage() Message {
	return Message{
		Role:    RoleAssistant,
		Loading: Loading{Stage1: true, Stage2: true, Stage3: true},
		State:   StateAwaitingStage1,
	}
}

// Open reports whether m is an assistant message that can still change.
func (m Message) Open() bool {
	return m.Role == RoleAssistant && m.State != StateDone
}

// Clone returns a deep copy of m.
func (m Message) Clone() Message {
	out := m
	out.Stage1 = maps.Clone(m.Stage1)
	if m.Stage2 != nil {
		out.Stage2 = make(map[string]Ranking, len(m.Stage2))
		for k, r := range m.Stage2 {
			r.Parsed = slices.Clone(r.Parsed)
			out.Stage2[k] = r
		}
	}
	if m.Stage3 != nil {
		s := *m.Stage3
		out.Stage3 = &s
	}
	if m.Metadata != nil {
		md := Metadata{
			LabelToModel:      maps.Clone(m.Metadata.LabelToModel),
			AggregateRankings: slices.Clone(m.Metadata.AggregateRankings),
		}
		out.Metadata = &md
	}
	return out
}

// Conversation is an ordered, append-only list of messages.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Messages  []Message `json:"messages"`
}

// Clone returns a deep copy of c.
func (c Conversation) Clone() Conversation {
	out := c
	if c.Messages != nil {
		out.Messages = make([]Message, len(c.Messages))
		for i, m := range c.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	return out
}

// Last returns the most recent message, if any.
func (c Conversation) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// ConversationMeta is the listing view of a conversation.
type ConversationMeta struct {
	ID           string    `json:"id"`
	Title        string    `json:"title,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	MessageCount int       `json:"message_count"`
}

func isNull(data []byte) bool {
	return bytes.Equal(bytes.TrimSpace(data), []byte("null"))
}
