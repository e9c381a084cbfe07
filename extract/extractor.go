// Package extract normalizes the provider's nested event envelope into a
// flat sequence of inbound message records.
//
// Extraction degrades by omission, never by erroring: a malformed message or
// an empty intermediate level skips that branch and keeps its well-formed
// siblings, because a provider batch routinely mixes both.
package extract

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-ingest/core"
)

// Extractor flattens envelopes. Now is injectable so the missing-timestamp
// fallback stays deterministic in tests; nil means time.Now.
type Extractor struct {
	Now func() time.Time
}

func NewExtractor() Extractor {
	return Extractor{
		Now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Decode parses a raw webhook body into an Envelope. Unknown fields are
// ignored; only a body that is not JSON at all fails.
func Decode(body []byte) (Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return Envelope{}, err
	}
	return envelope, nil
}

// Extract walks entry -> changes -> value -> messages and emits one record
// per parseable message, carrying the channel id down from the value
// metadata. Record order follows envelope order.
func (e Extractor) Extract(envelope Envelope) []core.InboundMessage {
	var records []core.InboundMessage
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			channelID := strings.TrimSpace(change.Value.Metadata.PhoneNumberID)
			for _, raw := range change.Value.Messages {
				record, ok := e.extractMessage(raw, channelID)
				if !ok {
					continue
				}
				records = append(records, record)
			}
		}
	}
	return records
}

func (e Extractor) extractMessage(raw json.RawMessage, channelID string) (core.InboundMessage, bool) {
	var msg wireMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return core.InboundMessage{}, false
	}

	kind := core.NormalizeMessageKind(msg.Type)
	record := core.InboundMessage{
		ExternalID:  strings.TrimSpace(msg.ID),
		ChannelID:   channelID,
		SenderPhone: strings.TrimSpace(msg.From),
		Kind:        kind,
		Text:        messageText(kind, msg),
		OccurredAt:  e.occurredAt(msg.Timestamp),
		Raw:         append(json.RawMessage(nil), raw...),
	}
	return record, true
}

// messageText is the single place kind-specific field extraction lives; the
// default arm makes unknown kinds explicit instead of silently falling
// through chained conditionals.
func messageText(kind core.MessageKind, msg wireMessage) string {
	switch kind {
	case core.MessageKindText:
		return msg.Text.Body
	case core.MessageKindButton:
		return msg.Button.Text
	case core.MessageKindInteractive:
		// The interactive sub-type name is stored as the text, not the
		// selected option payload.
		return msg.Interactive.Type
	default:
		return ""
	}
}

// Clock returns the extractor's notion of now.
func (e Extractor) Clock() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e Extractor) occurredAt(timestamp string) time.Time {
	timestamp = strings.TrimSpace(timestamp)
	if timestamp != "" {
		if seconds, err := strconv.ParseInt(timestamp, 10, 64); err == nil {
			return time.Unix(seconds, 0).UTC()
		}
	}
	// Best-effort fallback: events without a parseable timestamp take the
	// ingestion clock, which drifts from provider time for malformed events.
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}
