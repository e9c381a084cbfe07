package ingest

import (
	"fmt"

	ingestcommand "github.com/goliatone/go-ingest/command"
	"github.com/goliatone/go-ingest/core"
	ingestquery "github.com/goliatone/go-ingest/query"
)

// IngestService is the surface the command handlers need. *Pipeline
// satisfies it.
type IngestService interface {
	ingestcommand.RecordingService
	ingestcommand.ReprocessingService
}

type Commands struct {
	RecordOutbound    *ingestcommand.RecordOutboundCommand
	ReprocessEnvelope *ingestcommand.ReprocessEnvelopeCommand
}

type Queries struct {
	GetMessage   *ingestquery.GetMessageQuery
	ListMessages *ingestquery.ListMessagesQuery
}

// Facade bundles the command and query handlers over one service so hosts
// wire a single value instead of each handler.
type Facade struct {
	service  IngestService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	reader ingestquery.MessageReader
}

// WithMessageReader overrides the read path, e.g. to route queries through a
// cached store while writes go direct.
func WithMessageReader(reader ingestquery.MessageReader) FacadeOption {
	return func(options *facadeOptions) {
		options.reader = reader
	}
}

func NewFacade(service IngestService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("ingest: service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	reader := cfg.reader
	if reader == nil {
		reader = resolveMessageReader(service)
	}
	if reader == nil {
		return nil, fmt.Errorf("ingest: message reader is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RecordOutbound:    ingestcommand.NewRecordOutboundCommand(service),
		ReprocessEnvelope: ingestcommand.NewReprocessEnvelopeCommand(service),
	}
	facade.queries = Queries{
		GetMessage:   ingestquery.NewGetMessageQuery(reader),
		ListMessages: ingestquery.NewListMessagesQuery(reader),
	}
	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() IngestService {
	if f == nil {
		return nil
	}
	return f.service
}

func resolveMessageReader(service IngestService) ingestquery.MessageReader {
	if service == nil {
		return nil
	}
	if reader, ok := service.(ingestquery.MessageReader); ok {
		return reader
	}
	provider, ok := service.(interface{ Store() core.MessageStore })
	if !ok {
		return nil
	}
	store := provider.Store()
	if store == nil {
		return nil
	}
	return store
}
