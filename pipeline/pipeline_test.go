package pipeline

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-ingest/core"
	"github.com/goliatone/go-ingest/privacy"
	"github.com/goliatone/go-ingest/webhooks"
)

type memoryMessageStore struct {
	mu       sync.Mutex
	messages map[string]core.StoredMessage
	failIDs  map[string]bool
	creates  int
}

func newMemoryMessageStore() *memoryMessageStore {
	return &memoryMessageStore{
		messages: map[string]core.StoredMessage{},
		failIDs:  map[string]bool{},
	}
}

func (s *memoryMessageStore) CreateIfAbsent(
	_ context.Context,
	input core.CreateMessageInput,
) (core.StoredMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates++
	if s.failIDs[input.ExternalID] {
		return core.StoredMessage{}, false, fmt.Errorf("storage unavailable")
	}
	if existing, ok := s.messages[input.ExternalID]; ok {
		return existing, false, nil
	}
	stored := core.StoredMessage{
		ID:         fmt.Sprintf("row_%d", len(s.messages)+1),
		ExternalID: input.ExternalID,
		ChannelID:  input.ChannelID,
		SenderHash: input.SenderHash,
		Direction:  input.Direction,
		Kind:       input.Kind,
		Text:       input.Text,
		OccurredAt: input.OccurredAt,
		Raw:        input.Raw,
		CreatedAt:  time.Now().UTC(),
	}
	s.messages[input.ExternalID] = stored
	return stored, true, nil
}

func (s *memoryMessageStore) GetByExternalID(_ context.Context, externalID string) (core.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.messages[externalID]
	if !ok {
		return core.StoredMessage{}, fmt.Errorf("message not found for external id %q", externalID)
	}
	return stored, nil
}

func (s *memoryMessageStore) List(_ context.Context, _ core.MessageFilter) ([]core.StoredMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.StoredMessage, 0, len(s.messages))
	for _, stored := range s.messages {
		out = append(out, stored)
	}
	return out, nil
}

func (s *memoryMessageStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func signTestBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newTestPipeline(t *testing.T, store core.MessageStore, secret string) *Pipeline {
	t.Helper()
	pipeline, err := New(core.Config{
		ServiceName: "ingest-tests",
		Webhook: core.WebhookConfig{
			Secret:      secret,
			VerifyToken: "hook-token",
		},
		Privacy: core.PrivacyConfig{HashSalt: "pepper"},
	}, WithMessageStore(store))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	return pipeline
}

const scenarioBody = `{
	"object": "whatsapp_business_account",
	"entry": [{
		"id": "entry-1",
		"changes": [{
			"field": "messages",
			"value": {
				"messaging_product": "whatsapp",
				"metadata": {"phone_number_id": "CH1"},
				"messages": [
					{"id": "m1", "from": "15551230001", "timestamp": "1700000000", "type": "text", "text": {"body": "hi"}},
					{"id": "m2", "from": "15551230001", "timestamp": "1700000001", "type": "interactive", "interactive": {"type": "button_reply"}}
				]
			}
		}]
	}]
}`

func TestPipeline_EndToEndScenario(t *testing.T) {
	ctx := context.Background()
	store := newMemoryMessageStore()
	pipeline := newTestPipeline(t, store, "top-secret")

	body := []byte(scenarioBody)
	req := core.InboundRequest{
		ProviderID: "whatsapp",
		Surface:    SurfaceWebhook,
		Body:       body,
		Headers: map[string]string{
			"X-Hub-Signature-256": signTestBody("top-secret", body),
		},
	}

	result, err := pipeline.Process(ctx, req)
	if err != nil {
		t.Fatalf("process webhook: %v", err)
	}
	if !result.Accepted || result.StatusCode != 200 {
		t.Fatalf("expected immediate acknowledgment, got %+v", result)
	}
	pipeline.Wait()

	if store.count() != 2 {
		t.Fatalf("expected 2 stored records, got %d", store.count())
	}

	text, err := store.GetByExternalID(ctx, "m1")
	if err != nil {
		t.Fatalf("get m1: %v", err)
	}
	if text.Kind != core.MessageKindText || text.Text != "hi" || text.ChannelID != "CH1" {
		t.Fatalf("unexpected m1 record: %+v", text)
	}
	if text.Direction != core.DirectionInbound {
		t.Fatalf("expected inbound direction, got %q", text.Direction)
	}
	wantHash := privacy.NewHasher("pepper").Hash("15551230001")
	if text.SenderHash != wantHash {
		t.Fatalf("expected salted sender hash, got %q", text.SenderHash)
	}
	if strings.Contains(text.SenderHash, "15551230001") {
		t.Fatalf("raw phone leaked into stored record")
	}
	if !strings.Contains(string(text.Raw), `"from": "15551230001"`) {
		t.Fatalf("expected raw payload retained verbatim, got %s", text.Raw)
	}

	interactive, err := store.GetByExternalID(ctx, "m2")
	if err != nil {
		t.Fatalf("get m2: %v", err)
	}
	if interactive.Kind != core.MessageKindInteractive || interactive.Text != "button_reply" {
		t.Fatalf("unexpected m2 record: %+v", interactive)
	}

	// Identical re-delivery must create nothing new.
	if _, err := pipeline.Process(ctx, req); err != nil {
		t.Fatalf("process duplicate webhook: %v", err)
	}
	pipeline.Wait()
	if store.count() != 2 {
		t.Fatalf("expected re-delivery to be a no-op, got %d records", store.count())
	}
}

func TestPipeline_ConcurrentDuplicateDeliveries(t *testing.T) {
	ctx := context.Background()
	store := newMemoryMessageStore()
	pipeline := newTestPipeline(t, store, "")

	const deliveries = 8
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pipeline.Process(ctx, core.InboundRequest{
				ProviderID: "whatsapp",
				Body:       []byte(scenarioBody),
			})
			if err != nil {
				t.Errorf("process delivery: %v", err)
			}
		}()
	}
	wg.Wait()
	pipeline.Wait()

	if store.count() != 2 {
		t.Fatalf("expected exactly one record per external id, got %d", store.count())
	}
}

func TestPipeline_RejectsInvalidSignatureBeforeProcessing(t *testing.T) {
	store := newMemoryMessageStore()
	pipeline := newTestPipeline(t, store, "top-secret")

	result, err := pipeline.Process(context.Background(), core.InboundRequest{
		ProviderID: "whatsapp",
		Body:       []byte(scenarioBody),
		Headers: map[string]string{
			"X-Hub-Signature-256": "sha256=deadbeef",
		},
	})
	if err == nil {
		t.Fatalf("expected verification error")
	}
	if result.Accepted || result.StatusCode != 403 {
		t.Fatalf("expected forbidden rejection, got %+v", result)
	}
	pipeline.Wait()
	if store.count() != 0 {
		t.Fatalf("expected no processing after rejection, got %d records", store.count())
	}
}

func TestPipeline_BypassModeAcceptsUnsigned(t *testing.T) {
	store := newMemoryMessageStore()
	pipeline := newTestPipeline(t, store, "")

	result, err := pipeline.Process(context.Background(), core.InboundRequest{
		ProviderID: "whatsapp",
		Body:       []byte(scenarioBody),
	})
	if err != nil {
		t.Fatalf("process unsigned webhook in bypass mode: %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected acceptance in bypass mode")
	}
	pipeline.Wait()
	if store.count() != 2 {
		t.Fatalf("expected records persisted, got %d", store.count())
	}
}

func TestPipeline_MissingIdempotencyKeyDropped(t *testing.T) {
	store := newMemoryMessageStore()
	pipeline := newTestPipeline(t, store, "")

	report, err := pipeline.ProcessSync(context.Background(), []byte(`{"entry":[{"changes":[{"value":{
		"metadata": {"phone_number_id": "CH1"},
		"messages": [
			{"type": "text", "text": {"body": "no id"}},
			{"id": "m1", "type": "text", "text": {"body": "ok"}}
		]
	}}]}]}`))
	if err != nil {
		t.Fatalf("process sync: %v", err)
	}
	if report.Extracted != 2 || report.MissingID != 1 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if report.Outcome.Attempted != 1 || report.Outcome.Inserted != 1 {
		t.Fatalf("expected one attempted write, got %+v", report.Outcome)
	}
	if store.count() != 1 {
		t.Fatalf("expected only keyed record stored, got %d", store.count())
	}
}

func TestPipeline_PersistFailureDoesNotBlockSiblings(t *testing.T) {
	store := newMemoryMessageStore()
	store.failIDs["m1"] = true
	pipeline := newTestPipeline(t, store, "")

	report, err := pipeline.ProcessSync(context.Background(), []byte(scenarioBody))
	if err != nil {
		t.Fatalf("process sync: %v", err)
	}
	if report.Outcome.Failed != 1 {
		t.Fatalf("expected one contained failure, got %+v", report.Outcome)
	}
	if report.Outcome.Inserted != 1 {
		t.Fatalf("expected sibling record persisted, got %+v", report.Outcome)
	}
	if _, err := store.GetByExternalID(context.Background(), "m2"); err != nil {
		t.Fatalf("expected sibling m2 stored: %v", err)
	}
}

func TestPipeline_MalformedBodyEndsQuietly(t *testing.T) {
	store := newMemoryMessageStore()
	pipeline := newTestPipeline(t, store, "")

	result, err := pipeline.Process(context.Background(), core.InboundRequest{
		ProviderID: "whatsapp",
		Body:       []byte("not json"),
	})
	if err != nil {
		t.Fatalf("expected ack despite malformed body, got %v", err)
	}
	if !result.Accepted {
		t.Fatalf("expected acknowledgment before decoding")
	}
	pipeline.Wait()
	if store.count() != 0 {
		t.Fatalf("expected nothing stored, got %d", store.count())
	}

	if _, err := pipeline.ProcessSync(context.Background(), []byte("not json")); err == nil {
		t.Fatalf("expected decode error on the synchronous path")
	}
}

func TestPipeline_VerifySubscription(t *testing.T) {
	pipeline := newTestPipeline(t, newMemoryMessageStore(), "")

	echoed, err := pipeline.VerifySubscription(webhooks.ChallengeRequest{
		Mode:      "subscribe",
		Token:     "hook-token",
		Challenge: "challenge-42",
	})
	if err != nil {
		t.Fatalf("verify subscription: %v", err)
	}
	if echoed != "challenge-42" {
		t.Fatalf("expected challenge echoed, got %q", echoed)
	}

	if _, err := pipeline.VerifySubscription(webhooks.ChallengeRequest{
		Mode:  "subscribe",
		Token: "wrong",
	}); err == nil {
		t.Fatalf("expected challenge rejection")
	}
}

func TestPipeline_RequiresMessageStore(t *testing.T) {
	if _, err := New(core.Config{ServiceName: "ingest-tests"}); err == nil {
		t.Fatalf("expected construction failure without message store")
	}
}

type stubStoreFactory struct {
	store      core.MessageStore
	buildErr   error
	gotClient  any
	buildCalls int
}

func (f *stubStoreFactory) BuildStores(persistenceClient any) (core.MessageStoreProvider, error) {
	f.buildCalls++
	f.gotClient = persistenceClient
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return f, nil
}

func (f *stubStoreFactory) MessageStore() core.MessageStore {
	return f.store
}

func TestPipeline_ResolvesStoreFromRepositoryFactory(t *testing.T) {
	store := newMemoryMessageStore()
	factory := &stubStoreFactory{store: store}
	client := &struct{ name string }{name: "persistence"}

	pipeline, err := New(core.Config{ServiceName: "ingest-tests"},
		WithPersistenceClient(client),
		WithRepositoryFactory(factory),
	)
	if err != nil {
		t.Fatalf("new pipeline from factory: %v", err)
	}
	if pipeline.Store() != store {
		t.Fatalf("expected store resolved from repository factory")
	}
	if factory.buildCalls != 1 {
		t.Fatalf("expected one build call, got %d", factory.buildCalls)
	}
	if factory.gotClient != any(client) {
		t.Fatalf("expected persistence client handed to factory, got %#v", factory.gotClient)
	}

	explicit := newMemoryMessageStore()
	pipeline, err = New(core.Config{ServiceName: "ingest-tests"},
		WithMessageStore(explicit),
		WithRepositoryFactory(factory),
	)
	if err != nil {
		t.Fatalf("new pipeline with explicit store: %v", err)
	}
	if pipeline.Store() != explicit {
		t.Fatalf("expected explicit store override precedence")
	}
	if factory.buildCalls != 1 {
		t.Fatalf("expected no build call when store is explicit, got %d", factory.buildCalls)
	}

	failing := &stubStoreFactory{buildErr: fmt.Errorf("stores unavailable")}
	if _, err := New(core.Config{ServiceName: "ingest-tests"}, WithRepositoryFactory(failing)); err == nil {
		t.Fatalf("expected store build failure surfaced")
	}
}

func TestPipeline_CustomErrorMapperRoutesReturnedErrors(t *testing.T) {
	mapped := 0
	mapper := func(err error) *goerrors.Error {
		mapped++
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "remapped").
			WithTextCode("CUSTOM_MAPPED")
	}

	pipeline, err := New(core.Config{ServiceName: "ingest-tests"},
		WithMessageStore(newMemoryMessageStore()),
		WithErrorMapper(mapper),
	)
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}

	_, _, err = pipeline.RecordOutbound(context.Background(), core.OutboundMessage{})
	if err == nil {
		t.Fatalf("expected bad input error")
	}
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("expected mapped rich error, got %T", err)
	}
	if rich.TextCode != "CUSTOM_MAPPED" {
		t.Fatalf("expected custom mapper routing, got %q", rich.TextCode)
	}
	if mapped == 0 {
		t.Fatalf("expected mapper invocation")
	}
}
