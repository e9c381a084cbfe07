package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/goliatone/go-ingest/core"
)

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestSignatureVerifier_AcceptsValidSignature(t *testing.T) {
	body := []byte(`{"object":"whatsapp_business_account"}`)
	verifier := NewSignatureVerifier("top-secret")

	req := core.InboundRequest{
		Body: body,
		Headers: map[string]string{
			"X-Hub-Signature-256": signBody("top-secret", body),
		},
	}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("verify valid signature: %v", err)
	}
}

func TestSignatureVerifier_RejectsNearAndFarMisses(t *testing.T) {
	body := []byte(`{"entry":[]}`)
	verifier := NewSignatureVerifier("top-secret")
	valid := signBody("top-secret", body)

	nearMiss := valid[:len(valid)-1]
	if valid[len(valid)-1] == 'f' {
		nearMiss += "0"
	} else {
		nearMiss += "f"
	}

	cases := []struct {
		name   string
		header string
	}{
		{name: "near miss differs in last nibble", header: nearMiss},
		{name: "far miss", header: signBody("other-secret", body)},
		{name: "wrong body", header: signBody("top-secret", []byte(`{}`))},
		{name: "malformed hex", header: "sha256=not-hex-at-all"},
		{name: "empty value", header: "sha256="},
		{name: "truncated digest", header: valid[:20]},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := verifier.Verify(context.Background(), core.InboundRequest{
				Body:    body,
				Headers: map[string]string{"X-Hub-Signature-256": tc.header},
			})
			if err == nil {
				t.Fatalf("expected rejection for %q", tc.header)
			}
		})
	}
}

func TestSignatureVerifier_RequiresHeaderWhenSecretConfigured(t *testing.T) {
	verifier := NewSignatureVerifier("top-secret")
	err := verifier.Verify(context.Background(), core.InboundRequest{Body: []byte(`{}`)})
	if err == nil {
		t.Fatalf("expected missing header rejection")
	}
}

func TestSignatureVerifier_BypassModePassesEverything(t *testing.T) {
	verifier := NewSignatureVerifier("")
	if !verifier.Bypassed() {
		t.Fatalf("expected bypass mode with empty secret")
	}

	requests := []core.InboundRequest{
		{Body: []byte(`{}`)},
		{Body: []byte(`{}`), Headers: map[string]string{"X-Hub-Signature-256": "sha256=garbage"}},
		{Body: nil},
	}
	for _, req := range requests {
		if err := verifier.Verify(context.Background(), req); err != nil {
			t.Fatalf("expected bypass to accept request, got %v", err)
		}
	}

	if NewSignatureVerifier("secret").Bypassed() {
		t.Fatalf("expected configured secret to disable bypass")
	}
}

func TestSignatureVerifier_HeaderLookupIsCaseInsensitive(t *testing.T) {
	body := []byte(`{"entry":[{"changes":[]}]}`)
	verifier := NewSignatureVerifier("top-secret")
	err := verifier.Verify(context.Background(), core.InboundRequest{
		Body:    body,
		Headers: map[string]string{"x-hub-signature-256": signBody("top-secret", body)},
	})
	if err != nil {
		t.Fatalf("verify with lowercase header: %v", err)
	}
}

func TestSubscriptionChallenge_Answer(t *testing.T) {
	challenge := NewSubscriptionChallenge("hook-token")

	echoed, err := challenge.Answer(ChallengeRequest{
		Mode:      "subscribe",
		Token:     "hook-token",
		Challenge: "1158201444",
	})
	if err != nil {
		t.Fatalf("answer valid challenge: %v", err)
	}
	if echoed != "1158201444" {
		t.Fatalf("expected challenge echoed verbatim, got %q", echoed)
	}

	if _, err := challenge.Answer(ChallengeRequest{
		Mode:      "subscribe",
		Token:     "wrong-token",
		Challenge: "1158201444",
	}); err == nil {
		t.Fatalf("expected token mismatch rejection")
	}

	if _, err := challenge.Answer(ChallengeRequest{
		Mode:      "unsubscribe",
		Token:     "hook-token",
		Challenge: "1158201444",
	}); err == nil {
		t.Fatalf("expected unsupported mode rejection")
	}

	if _, err := NewSubscriptionChallenge("").Answer(ChallengeRequest{
		Mode:  "subscribe",
		Token: "",
	}); err == nil {
		t.Fatalf("expected rejection when verify token is not configured")
	}
}
