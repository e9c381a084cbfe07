package pipeline

import (
	"time"

	"github.com/goliatone/go-ingest/core"
	"github.com/goliatone/go-ingest/webhooks"
)

type pipelineBuilder struct {
	runtimeConfig     core.Config
	logger            core.Logger
	loggerProvider    core.LoggerProvider
	metricsRecorder   core.MetricsRecorder
	errorMapper       core.ErrorMapper
	configProvider    core.ConfigProvider
	optionsResolver   core.OptionsResolver
	verifier          webhooks.Verifier
	messageStore      core.MessageStore
	persistenceClient any
	repositoryFactory any
	clock             func() time.Time
}

type Option func(*pipelineBuilder)

func WithLogger(logger core.Logger) Option {
	return func(b *pipelineBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider core.LoggerProvider) Option {
	return func(b *pipelineBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder core.MetricsRecorder) Option {
	return func(b *pipelineBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorMapper(mapper core.ErrorMapper) Option {
	return func(b *pipelineBuilder) {
		b.errorMapper = mapper
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *pipelineBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *pipelineBuilder) {
		b.repositoryFactory = factory
	}
}

func WithConfigProvider(provider core.ConfigProvider) Option {
	return func(b *pipelineBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver core.OptionsResolver) Option {
	return func(b *pipelineBuilder) {
		b.optionsResolver = resolver
	}
}

func WithVerifier(verifier webhooks.Verifier) Option {
	return func(b *pipelineBuilder) {
		b.verifier = verifier
	}
}

func WithMessageStore(store core.MessageStore) Option {
	return func(b *pipelineBuilder) {
		b.messageStore = store
	}
}

func WithClock(clock func() time.Time) Option {
	return func(b *pipelineBuilder) {
		b.clock = clock
	}
}
