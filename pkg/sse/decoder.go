package sse

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/papercomputeco/council/pkg/council"
	"github.com/papercomputeco/council/pkg/logger"
	"github.com/papercomputeco/council/pkg/utils"
)

const (
	// DataPrefix starts every line that carries a payload.
	DataPrefix = "data: "

	// DoneSentinel is the payload that ends a stream.
	DoneSentinel = "[DONE]"
)

// Decoder turns single lines of a council event stream into events.
// It never fails: lines it cannot use are dropped and logged.
type Decoder struct {
	logger *slog.Logger
}

// NewDecoder returns a Decoder logging dropped lines to l.
func NewDecoder(l *slog.Logger) *Decoder {
	if l == nil {
		l = logger.Nop()
	}
	return &Decoder{logger: l}
}

// Decode returns the event carried by line. ok is false when the line
// carries none. done is true for the sentinel, which decodes to a complete
// event; no further lines should be read after it.
//
// The payload is returned verbatim. Only the "type" field is inspected, so
// events of types this package does not know are still returned.
func (d *Decoder) Decode(line string) (ev council.Event, ok bool, done bool) {
	data, found := strings.CutPrefix(line, DataPrefix)
	if !found {
		return council.Event{}, false, false
	}

	if data == DoneSentinel {
		return council.CompleteEvent(), true, true
	}

	var head struct {
		Type council.EventType `json:"type"`
	}
	if err := json.Unmarshal([]byte(data), &head); err != nil {
		d.logger.Warn("dropping malformed event",
			"error", err,
			"line", utils.Truncate(line, 120),
		)
		return council.Event{}, false, false
	}
	if head.Type == "" {
		d.logger.Warn("dropping event without type",
			"line", utils.Truncate(line, 120),
		)
		return council.Event{}, false, false
	}

	switch head.Type {
	case council.EventStage1, council.EventStage2, council.EventStage3, council.EventComplete:
	default:
		d.logger.Debug("passing through unknown event type", "type", head.Type)
	}

	return council.Event{
		Type:    head.Type,
		Payload: json.RawMessage(data),
	}, true, false
}
