// Package ingest re-exports the webhook ingestion surface: a verifying,
// ack-first pipeline with idempotent persistence, plus the command and query
// handlers built on top of it.
package ingest

import (
	"github.com/goliatone/go-ingest/core"
	"github.com/goliatone/go-ingest/pipeline"
)

type Config = core.Config

type Option = pipeline.Option

type Pipeline = pipeline.Pipeline

type Report = core.IngestReport

type InboundRequest = core.InboundRequest
type InboundResult = core.InboundResult

type StoredMessage = core.StoredMessage
type OutboundMessage = core.OutboundMessage
type MessageFilter = core.MessageFilter
type MessageStore = core.MessageStore
type PersistOutcome = core.PersistOutcome

type Logger = core.Logger
type LoggerProvider = core.LoggerProvider
type MetricsRecorder = core.MetricsRecorder

var (
	WithLogger            = pipeline.WithLogger
	WithLoggerProvider    = pipeline.WithLoggerProvider
	WithMetricsRecorder   = pipeline.WithMetricsRecorder
	WithErrorMapper       = pipeline.WithErrorMapper
	WithPersistenceClient = pipeline.WithPersistenceClient
	WithRepositoryFactory = pipeline.WithRepositoryFactory
	WithConfigProvider    = pipeline.WithConfigProvider
	WithOptionsResolver   = pipeline.WithOptionsResolver
	WithVerifier          = pipeline.WithVerifier
	WithMessageStore      = pipeline.WithMessageStore
	WithClock             = pipeline.WithClock
)

var _ IngestService = (*Pipeline)(nil)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func New(cfg Config, opts ...Option) (*Pipeline, error) {
	return pipeline.New(cfg, opts...)
}
