package pipeline

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-ingest/core"
	"github.com/goliatone/go-ingest/extract"
	"github.com/goliatone/go-ingest/privacy"
	"github.com/goliatone/go-ingest/webhooks"
)

const SurfaceWebhook = "webhook"

// Report is the per-envelope processing accounting.
type Report = core.IngestReport

// Pipeline wires the ingestion sequence together. All collaborators are
// dependency-injected at construction; the store handle is shared read-only
// across requests and is the only cross-request coordination point.
type Pipeline struct {
	config    core.Config
	verifier  webhooks.Verifier
	challenge webhooks.SubscriptionChallenge
	extractor extract.Extractor
	hasher    privacy.Hasher
	store     core.MessageStore
	observer  core.Observer

	errorMapper core.ErrorMapper

	wg sync.WaitGroup
}

func New(cfg core.Config, options ...Option) (*Pipeline, error) {
	builder := pipelineBuilder{
		runtimeConfig:   cfg,
		metricsRecorder: core.NopMetricsRecorder{},
		errorMapper:     core.MapError,
		configProvider:  core.NewCfgxConfigProvider(nil),
		optionsResolver: core.GoOptionsResolver{},
	}
	for _, option := range options {
		if option == nil {
			continue
		}
		option(&builder)
	}
	if builder.errorMapper == nil {
		builder.errorMapper = core.MapError
	}

	provider, logger := glog.Resolve("ingest", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("ingest"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	defaults := core.DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("pipeline: load config: %w", err))
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("pipeline: resolve config: %w", err))
	}

	if builder.messageStore == nil && builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(core.RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				builder.messageStore = storeProvider.MessageStore()
			}
		} else if storeProvider, ok := builder.repositoryFactory.(core.MessageStoreProvider); ok {
			builder.messageStore = storeProvider.MessageStore()
		}
	}
	if builder.messageStore == nil {
		return nil, mapBuildError(builder.errorMapper, fmt.Errorf("pipeline: message store is required"))
	}

	verifier := builder.verifier
	if verifier == nil {
		verifier = webhooks.SignatureVerifier{
			Header: finalConfig.Webhook.SignatureHeader,
			Secret: finalConfig.Webhook.Secret,
		}
	}

	clock := builder.clock
	if clock == nil {
		clock = func() time.Time {
			return time.Now().UTC()
		}
	}

	return &Pipeline{
		config:    finalConfig,
		verifier:  verifier,
		challenge: webhooks.NewSubscriptionChallenge(finalConfig.Webhook.VerifyToken),
		extractor: extract.Extractor{Now: clock},
		hasher:    privacy.NewHasher(finalConfig.Privacy.HashSalt),
		store:     builder.messageStore,
		observer: core.Observer{
			Logger:  logger,
			Metrics: builder.metricsRecorder,
		},
		errorMapper: builder.errorMapper,
	}, nil
}

// Store exposes the message store backing the pipeline so callers can wire
// read paths against the same handle.
func (p *Pipeline) Store() core.MessageStore {
	if p == nil {
		return nil
	}
	return p.store
}

func (p *Pipeline) Config() core.Config {
	if p == nil {
		return core.Config{}
	}
	return p.config
}

// VerifySubscription answers the provider's challenge handshake.
func (p *Pipeline) VerifySubscription(req webhooks.ChallengeRequest) (string, error) {
	if p == nil {
		return "", pipelineInternal("pipeline: pipeline is nil", nil)
	}
	challenge, err := p.challenge.Answer(req)
	if err != nil {
		return "", p.mapError(pipelineWrapError(
			err,
			goerrors.CategoryAuthz,
			"pipeline: subscription challenge rejected",
			http.StatusForbidden,
			core.IngestErrorChallengeRejected,
			map[string]any{"mode": strings.TrimSpace(req.Mode)},
		))
	}
	return challenge, nil
}

// Process verifies the request and acknowledges immediately; extraction and
// persistence continue on a detached goroutine whose outcome is observable
// only through logs and metrics. The returned result is final for the
// caller the moment this function returns.
func (p *Pipeline) Process(ctx context.Context, req core.InboundRequest) (core.InboundResult, error) {
	if p == nil {
		return core.InboundResult{}, pipelineInternal("pipeline: pipeline is nil", nil)
	}
	providerID := strings.TrimSpace(req.ProviderID)

	if err := p.verifier.Verify(ctx, req); err != nil {
		// Expected adversarial traffic: informational, not an error.
		p.observer.LogInfo(ctx, "webhook signature rejected", map[string]any{
			"provider_id": providerID,
			"surface":     SurfaceWebhook,
		})
		return core.InboundResult{
				Accepted:   false,
				StatusCode: http.StatusForbidden,
				Metadata: map[string]any{
					"provider_id": providerID,
					"rejected":    true,
				},
			}, p.mapError(pipelineWrapError(
				err,
				goerrors.CategoryAuth,
				"pipeline: request verification failed",
				http.StatusForbidden,
				core.IngestErrorSignatureRejected,
				map[string]any{"provider_id": providerID},
			))
	}

	body := append([]byte(nil), req.Body...)
	detached := context.WithoutCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if recovered := recover(); recovered != nil {
				p.observer.LogError(detached, "webhook processing panicked", map[string]any{
					"provider_id": providerID,
					"panic":       fmt.Sprint(recovered),
				})
			}
		}()
		p.processBody(detached, providerID, body)
	}()

	return core.InboundResult{
		Accepted:   true,
		StatusCode: http.StatusOK,
		Metadata: map[string]any{
			"provider_id": providerID,
			"surface":     SurfaceWebhook,
		},
	}, nil
}

// ProcessSync runs extraction and persistence inline. It backs both the
// detached post-ack path and the reprocess command, where the caller wants
// the report and any decode failure surfaced.
func (p *Pipeline) ProcessSync(ctx context.Context, body []byte) (Report, error) {
	if p == nil {
		return Report{}, pipelineInternal("pipeline: pipeline is nil", nil)
	}
	envelope, err := extract.Decode(body)
	if err != nil {
		return Report{}, p.mapError(pipelineWrapError(
			err,
			goerrors.CategoryBadInput,
			"pipeline: decode envelope",
			http.StatusBadRequest,
			core.IngestErrorBadInput,
			nil,
		))
	}
	return p.Ingest(ctx, envelope), nil
}

// Ingest extracts, hashes, and persists one envelope. Per-record failures
// are contained: a failed write never blocks sibling records.
func (p *Pipeline) Ingest(ctx context.Context, envelope extract.Envelope) Report {
	records := p.extractor.Extract(envelope)
	report := Report{Extracted: len(records)}

	if timeout := p.config.Persist.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for _, record := range records {
		if strings.TrimSpace(record.ExternalID) == "" {
			// No idempotency key means the write cannot be deduplicated;
			// drop it rather than risk duplicates, but keep the count.
			report.MissingID++
			continue
		}
		report.Outcome.Attempted++

		_, created, err := p.store.CreateIfAbsent(ctx, core.CreateMessageInput{
			ExternalID: record.ExternalID,
			ChannelID:  record.ChannelID,
			SenderHash: p.hasher.Hash(record.SenderPhone),
			Direction:  core.DirectionInbound,
			Kind:       record.Kind,
			Text:       record.Text,
			OccurredAt: record.OccurredAt,
			Raw:        record.Raw,
		})
		if err != nil {
			report.Outcome.Failed++
			p.observer.LogError(ctx, "message persist failed", map[string]any{
				"external_id": record.ExternalID,
				"channel_id":  record.ChannelID,
				"kind":        string(record.Kind),
				"error":       err.Error(),
			})
			continue
		}
		if created {
			report.Outcome.Inserted++
		} else {
			report.Outcome.Deduped++
		}
	}
	return report
}

// RecordOutbound persists a reply that already went out through the
// provider. The recipient phone is hashed on the way in, and the external id
// deduplicates retried recordings the same way inbound re-deliveries dedupe.
func (p *Pipeline) RecordOutbound(ctx context.Context, msg core.OutboundMessage) (core.StoredMessage, bool, error) {
	if p == nil {
		return core.StoredMessage{}, false, pipelineInternal("pipeline: pipeline is nil", nil)
	}
	externalID := strings.TrimSpace(msg.ExternalID)
	if externalID == "" {
		return core.StoredMessage{}, false, p.mapError(pipelineBadInput("pipeline: outbound message requires external id", nil))
	}

	occurredAt := msg.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = p.extractor.Clock()
	}

	if timeout := p.config.Persist.Timeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	stored, created, err := p.store.CreateIfAbsent(ctx, core.CreateMessageInput{
		ExternalID: externalID,
		ChannelID:  strings.TrimSpace(msg.ChannelID),
		SenderHash: p.hasher.Hash(msg.RecipientPhone),
		Direction:  core.DirectionOutbound,
		Kind:       core.NormalizeMessageKind(string(msg.Kind)),
		Text:       msg.Text,
		OccurredAt: occurredAt,
		Raw:        msg.Raw,
	})
	if err != nil {
		p.observer.LogError(ctx, "outbound record persist failed", map[string]any{
			"external_id": externalID,
			"channel_id":  msg.ChannelID,
			"error":       err.Error(),
		})
		return core.StoredMessage{}, false, p.mapError(pipelineWrapError(
			err,
			goerrors.CategoryInternal,
			"pipeline: persist outbound record",
			http.StatusInternalServerError,
			core.IngestErrorPersistFailed,
			map[string]any{"external_id": externalID},
		))
	}
	return stored, created, nil
}

func (p *Pipeline) processBody(ctx context.Context, providerID string, body []byte) {
	startedAt := time.Now()

	envelope, err := extract.Decode(body)
	if err != nil {
		// Malformed body after a valid signature: informational, ends here.
		p.observer.LogInfo(ctx, "envelope decode failed", map[string]any{
			"provider_id": providerID,
			"error":       err.Error(),
		})
		return
	}

	report := p.Ingest(ctx, envelope)
	if report.Extracted == 0 && len(body) > 0 {
		p.observer.LogInfo(ctx, "envelope yielded no records", map[string]any{
			"provider_id": providerID,
			"body_bytes":  len(body),
		})
		return
	}

	p.observer.Observe(ctx, startedAt, "webhook_process", nil, map[string]any{
		"provider_id": providerID,
		"extracted":   report.Extracted,
		"missing_id":  report.MissingID,
		"attempted":   report.Outcome.Attempted,
		"inserted":    report.Outcome.Inserted,
		"deduped":     report.Outcome.Deduped,
		"failed":      report.Outcome.Failed,
	})
}

func (p *Pipeline) mapError(err error) error {
	if err == nil {
		return nil
	}
	if p == nil || p.errorMapper == nil {
		return err
	}
	mapped := p.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

// Wait blocks until all detached processing launched by Process has
// finished. Shutdown and tests use it so background work is never silently
// dropped by process exit.
func (p *Pipeline) Wait() {
	if p == nil {
		return
	}
	p.wg.Wait()
}
