package core

import (
	stderrors "errors"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestIngestErrorMapper_AssignsStableCodes(t *testing.T) {
	mapped := ingestErrorMapper(stderrors.New("webhooks: signature verification failed"))
	if mapped.TextCode != IngestErrorSignatureRejected {
		t.Fatalf("expected signature text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on signature rejection, got %d", mapped.Code)
	}

	mapped = ingestErrorMapper(stderrors.New("webhooks: verify token mismatch"))
	if mapped.TextCode != IngestErrorChallengeRejected {
		t.Fatalf("expected challenge text code, got %q", mapped.TextCode)
	}

	mapped = ingestErrorMapper(stderrors.New("sqlstore: message not found for external id"))
	if mapped.TextCode != IngestErrorNotFound {
		t.Fatalf("expected not found text code, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", mapped.Code)
	}

	mapped = ingestErrorMapper(stderrors.New("pipeline: external id is required"))
	if mapped.TextCode != IngestErrorBadInput {
		t.Fatalf("expected bad input text code, got %q", mapped.TextCode)
	}
}

func TestMapError_PreservesRichEnvelopes(t *testing.T) {
	original := goerrors.New("pipeline: persist outbound record", goerrors.CategoryInternal).
		WithTextCode(IngestErrorPersistFailed)

	mapped := MapError(original)
	if mapped.TextCode != IngestErrorPersistFailed {
		t.Fatalf("expected original text code preserved, got %q", mapped.TextCode)
	}
	if mapped.Code != http.StatusInternalServerError {
		t.Fatalf("expected default status filled in, got %d", mapped.Code)
	}
}

func TestEnsureIngestErrorEnvelope_FillsDefaults(t *testing.T) {
	err := ensureIngestErrorEnvelope(goerrors.New("", goerrors.CategoryInternal))
	if err.Message == "" {
		t.Fatalf("expected generic internal message")
	}
	if err.TextCode != IngestErrorInternal {
		t.Fatalf("expected internal text code, got %q", err.TextCode)
	}

	if ensureIngestErrorEnvelope(nil) != nil {
		t.Fatalf("expected nil passthrough")
	}
	if ingestErrorMapper(nil) != nil {
		t.Fatalf("expected nil mapper passthrough")
	}
}

func TestIngestHTTPStatus_CategoryMapping(t *testing.T) {
	cases := map[goerrors.Category]int{
		goerrors.CategoryBadInput:  http.StatusBadRequest,
		goerrors.CategoryNotFound:  http.StatusNotFound,
		goerrors.CategoryAuth:      http.StatusForbidden,
		goerrors.CategoryAuthz:     http.StatusForbidden,
		goerrors.CategoryConflict:  http.StatusConflict,
		goerrors.CategoryRateLimit: http.StatusTooManyRequests,
		goerrors.CategoryInternal:  http.StatusInternalServerError,
	}
	for category, expected := range cases {
		if got := ingestHTTPStatus(category); got != expected {
			t.Fatalf("category %q: expected %d, got %d", category, expected, got)
		}
	}
}
