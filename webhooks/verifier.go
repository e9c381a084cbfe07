package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/goliatone/go-ingest/core"
)

const (
	DefaultSignatureHeader = "X-Hub-Signature-256"
	DefaultSignaturePrefix = "sha256="
)

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// SignatureVerifier authenticates provider callbacks with a keyed HMAC over
// the raw request body. An empty Secret is the explicit permissive mode:
// every request passes, including ones with no signature header at all.
type SignatureVerifier struct {
	Header string
	Prefix string
	Secret string
}

func NewSignatureVerifier(secret string) SignatureVerifier {
	return SignatureVerifier{
		Header: DefaultSignatureHeader,
		Prefix: DefaultSignaturePrefix,
		Secret: strings.TrimSpace(secret),
	}
}

// Bypassed reports whether verification is disabled. Callers that need to
// distinguish "no secret configured" from "secret present but wrong" check
// this instead of inspecting Verify outcomes.
func (v SignatureVerifier) Bypassed() bool {
	return strings.TrimSpace(v.Secret) == ""
}

func (v SignatureVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	if v.Bypassed() {
		return nil
	}
	header := strings.TrimSpace(headerValue(req.Headers, v.header()))
	if header == "" {
		return fmt.Errorf("webhooks: %s signature header is required", v.header())
	}
	return v.VerifySignature(req.Body, header)
}

// VerifySignature compares the header value against HMAC-SHA256(secret, body)
// in constant time. Malformed header values fail verification; they are never
// surfaced as distinct errors the sender could probe.
func (v SignatureVerifier) VerifySignature(body []byte, header string) error {
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return nil
	}
	signature := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), v.prefix()))
	if signature == "" {
		return fmt.Errorf("webhooks: signature value is required")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	expected := mac.Sum(nil)

	decoded, err := hex.DecodeString(signature)
	if err != nil {
		return fmt.Errorf("webhooks: signature verification failed")
	}
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return fmt.Errorf("webhooks: signature verification failed")
	}
	return nil
}

func (v SignatureVerifier) header() string {
	if value := strings.TrimSpace(v.Header); value != "" {
		return value
	}
	return DefaultSignatureHeader
}

func (v SignatureVerifier) prefix() string {
	if value := strings.TrimSpace(v.Prefix); value != "" {
		return value
	}
	return DefaultSignaturePrefix
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

var _ Verifier = SignatureVerifier{}
