package command

import (
	"strings"

	"github.com/goliatone/go-ingest/core"
)

const (
	TypeRecordOutbound    = "ingest.command.message.record_outbound"
	TypeReprocessEnvelope = "ingest.command.envelope.reprocess"
)

type RecordOutboundMessage struct {
	Message core.OutboundMessage
}

func (RecordOutboundMessage) Type() string { return TypeRecordOutbound }

func (m RecordOutboundMessage) Validate() error {
	if strings.TrimSpace(m.Message.ExternalID) == "" {
		return commandInvalidInputError("command: external id is required")
	}
	if strings.TrimSpace(m.Message.ChannelID) == "" {
		return commandInvalidInputError("command: channel id is required")
	}
	return nil
}

type ReprocessEnvelopeMessage struct {
	Body []byte
}

func (ReprocessEnvelopeMessage) Type() string { return TypeReprocessEnvelope }

func (m ReprocessEnvelopeMessage) Validate() error {
	if len(m.Body) == 0 {
		return commandInvalidInputError("command: envelope body is required")
	}
	return nil
}
