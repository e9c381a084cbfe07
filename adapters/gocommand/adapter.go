package gocommand

import (
	"context"
	"fmt"
	"strings"

	gocmd "github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"
	jobqueuecommand "github.com/goliatone/go-job/queue/command"

	ingestcommand "github.com/goliatone/go-ingest/command"
	ingestquery "github.com/goliatone/go-ingest/query"
)

// RegistryAdapter exposes the go-command registry behind nil-safe helpers.
type RegistryAdapter struct {
	registry *gocmd.Registry
}

func NewRegistryAdapter(registry *gocmd.Registry) *RegistryAdapter {
	if registry == nil {
		registry = gocmd.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *gocmd.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) RegisterQuery(qry any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(qry)
}

// AddQueueResolver mirrors registered commands into a go-job queue registry
// so reconcile jobs can resolve them from the worker side.
func (a *RegistryAdapter) AddQueueResolver(key string, queueRegistry *jobqueuecommand.Registry) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	if queueRegistry == nil {
		return fmt.Errorf("gocommand: queue registry is required")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), jobqueuecommand.QueueResolver(queueRegistry))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func SubscribeCommand[T any](cmd gocmd.Commander[T], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
}

func SubscribeQuery[T any, R any](qry gocmd.Querier[T, R], runnerOpts ...runner.Option) commanddispatcher.Subscription {
	return commanddispatcher.SubscribeQuery(qry, runnerOpts...)
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

func Query[T any, R any](ctx context.Context, msg T) (R, error) {
	return commanddispatcher.Query[T, R](ctx, msg)
}

// IngestSubscriptions holds the dispatcher hooks created by RegisterIngestHandlers.
type IngestSubscriptions struct {
	subscriptions []commanddispatcher.Subscription
}

func (s *IngestSubscriptions) Unsubscribe() {
	if s == nil {
		return
	}
	for _, sub := range s.subscriptions {
		if sub != nil {
			sub.Unsubscribe()
		}
	}
	s.subscriptions = nil
}

// RegisterIngestHandlers registers and subscribes the full command and query
// surface against one registry. The returned subscriptions detach all
// handlers at once on shutdown.
func RegisterIngestHandlers(
	adapter *RegistryAdapter,
	recording ingestcommand.RecordingService,
	reprocessing ingestcommand.ReprocessingService,
	reader ingestquery.MessageReader,
	runnerOpts ...runner.Option,
) (*IngestSubscriptions, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if recording == nil || reprocessing == nil {
		return nil, fmt.Errorf("gocommand: command services are required")
	}
	if reader == nil {
		return nil, fmt.Errorf("gocommand: message reader is required")
	}

	subs := &IngestSubscriptions{}
	register := func(handler any, subscription commanddispatcher.Subscription) error {
		if err := adapter.RegisterCommand(handler); err != nil {
			if subscription != nil {
				subscription.Unsubscribe()
			}
			subs.Unsubscribe()
			return err
		}
		subs.subscriptions = append(subs.subscriptions, subscription)
		return nil
	}

	recordCmd := ingestcommand.NewRecordOutboundCommand(recording)
	if err := register(recordCmd, SubscribeCommand(recordCmd, runnerOpts...)); err != nil {
		return nil, err
	}
	reprocessCmd := ingestcommand.NewReprocessEnvelopeCommand(reprocessing)
	if err := register(reprocessCmd, SubscribeCommand(reprocessCmd, runnerOpts...)); err != nil {
		return nil, err
	}
	getQry := ingestquery.NewGetMessageQuery(reader)
	if err := register(getQry, SubscribeQuery(getQry, runnerOpts...)); err != nil {
		return nil, err
	}
	listQry := ingestquery.NewListMessagesQuery(reader)
	if err := register(listQry, SubscribeQuery(listQry, runnerOpts...)); err != nil {
		return nil, err
	}

	return subs, nil
}
