package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RecordOutboundMessage]    = (*RecordOutboundCommand)(nil)
	_ gocmd.Commander[ReprocessEnvelopeMessage] = (*ReprocessEnvelopeCommand)(nil)
)
