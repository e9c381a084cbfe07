package query

import (
	"context"

	"github.com/goliatone/go-ingest/core"
)

type MessageReader interface {
	GetByExternalID(ctx context.Context, externalID string) (core.StoredMessage, error)
	List(ctx context.Context, filter core.MessageFilter) ([]core.StoredMessage, error)
}

type GetMessageQuery struct {
	reader MessageReader
}

func NewGetMessageQuery(reader MessageReader) *GetMessageQuery {
	return &GetMessageQuery{reader: reader}
}

func (q *GetMessageQuery) Query(ctx context.Context, msg GetMessageMessage) (core.StoredMessage, error) {
	if q == nil || q.reader == nil {
		return core.StoredMessage{}, queryDependencyError("query: message reader is required")
	}
	return q.reader.GetByExternalID(ctx, msg.ExternalID)
}

type ListMessagesQuery struct {
	reader MessageReader
}

func NewListMessagesQuery(reader MessageReader) *ListMessagesQuery {
	return &ListMessagesQuery{reader: reader}
}

func (q *ListMessagesQuery) Query(ctx context.Context, msg ListMessagesMessage) ([]core.StoredMessage, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: message reader is required")
	}
	return q.reader.List(ctx, msg.Filter)
}
