package query

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-ingest/core"
)

const (
	TypeGetMessage   = "ingest.query.message.get"
	TypeListMessages = "ingest.query.message.list"
)

type GetMessageMessage struct {
	ExternalID string
}

func (GetMessageMessage) Type() string { return TypeGetMessage }

func (m GetMessageMessage) Validate() error {
	if strings.TrimSpace(m.ExternalID) == "" {
		return queryInvalidInputError("query: external id is required")
	}
	return nil
}

type ListMessagesMessage struct {
	Filter core.MessageFilter
}

func (ListMessagesMessage) Type() string { return TypeListMessages }

func (m ListMessagesMessage) Validate() error {
	if m.Filter.Limit < 0 {
		return queryInvalidInputError("query: limit must be >= 0")
	}
	if m.Filter.Offset < 0 {
		return queryInvalidInputError("query: offset must be >= 0")
	}
	if m.Filter.Direction != "" && !m.Filter.Direction.Valid() {
		return queryInvalidInputError(fmt.Sprintf("query: direction %q is not valid", m.Filter.Direction))
	}
	if m.Filter.OccurredFrom != nil && m.Filter.OccurredTo != nil &&
		m.Filter.OccurredTo.Before(*m.Filter.OccurredFrom) {
		return queryInvalidInputError("query: occurred window is inverted")
	}
	return nil
}
