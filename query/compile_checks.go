package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-ingest/core"
)

var (
	_ gocmd.Querier[GetMessageMessage, core.StoredMessage]     = (*GetMessageQuery)(nil)
	_ gocmd.Querier[ListMessagesMessage, []core.StoredMessage] = (*ListMessagesQuery)(nil)
)
