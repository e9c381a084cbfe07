package core

import (
	"encoding/json"
	"strings"
	"time"
)

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

func (d Direction) Valid() bool {
	switch d {
	case DirectionInbound, DirectionOutbound:
		return true
	default:
		return false
	}
}

// MessageKind is an open set: providers add kinds faster than we ship, so
// unknown values pass through verbatim instead of failing extraction.
type MessageKind string

const (
	MessageKindText        MessageKind = "text"
	MessageKindButton      MessageKind = "button"
	MessageKindInteractive MessageKind = "interactive"
)

func NormalizeMessageKind(kind string) MessageKind {
	return MessageKind(strings.TrimSpace(strings.ToLower(kind)))
}

// InboundMessage is the transient unit of extraction. SenderPhone exists only
// between extraction and hashing; it is never persisted.
type InboundMessage struct {
	ExternalID  string
	ChannelID   string
	SenderPhone string
	Kind        MessageKind
	Text        string
	OccurredAt  time.Time
	Raw         json.RawMessage
}

// StoredMessage is the durable record. ExternalID is the sole idempotency
// key; re-delivery must never alter the fields of an existing row.
type StoredMessage struct {
	ID         string
	ExternalID string
	ChannelID  string
	SenderHash string
	Direction  Direction
	Kind       MessageKind
	Text       string
	OccurredAt time.Time
	Raw        json.RawMessage
	CreatedAt  time.Time
}

// OutboundMessage describes a reply recorded after a send succeeded upstream.
// RecipientPhone is hashed before persistence, same as inbound senders.
type OutboundMessage struct {
	ExternalID     string
	ChannelID      string
	RecipientPhone string
	Kind           MessageKind
	Text           string
	OccurredAt     time.Time
	Raw            json.RawMessage
}

type CreateMessageInput struct {
	ExternalID string
	ChannelID  string
	SenderHash string
	Direction  Direction
	Kind       MessageKind
	Text       string
	OccurredAt time.Time
	Raw        json.RawMessage
}
