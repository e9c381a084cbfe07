package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-ingest/core"
)

type RecordingService interface {
	RecordOutbound(ctx context.Context, msg core.OutboundMessage) (core.StoredMessage, bool, error)
}

type ReprocessingService interface {
	ProcessSync(ctx context.Context, body []byte) (core.IngestReport, error)
}

type RecordOutboundCommand struct {
	service RecordingService
}

func NewRecordOutboundCommand(service RecordingService) *RecordOutboundCommand {
	return &RecordOutboundCommand{service: service}
}

func (c *RecordOutboundCommand) Execute(ctx context.Context, msg RecordOutboundMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: recording service is required")
	}
	stored, created, err := c.service.RecordOutbound(ctx, msg.Message)
	if err != nil {
		return err
	}
	storeResult(ctx, core.OutboundRecord{Message: stored, Created: created})
	return nil
}

type ReprocessEnvelopeCommand struct {
	service ReprocessingService
}

func NewReprocessEnvelopeCommand(service ReprocessingService) *ReprocessEnvelopeCommand {
	return &ReprocessEnvelopeCommand{service: service}
}

func (c *ReprocessEnvelopeCommand) Execute(ctx context.Context, msg ReprocessEnvelopeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: reprocessing service is required")
	}
	report, err := c.service.ProcessSync(ctx, msg.Body)
	if err != nil {
		return err
	}
	storeResult(ctx, report)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
