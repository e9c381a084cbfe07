package webhooks

import (
	"crypto/subtle"
	"fmt"
	"strings"
)

const ChallengeModeSubscribe = "subscribe"

type ChallengeRequest struct {
	Mode      string
	Token     string
	Challenge string
}

// SubscriptionChallenge implements the provider handshake: when the caller
// declares subscription intent and presents the configured verify token, the
// challenge string is echoed back verbatim. Everything else is forbidden.
type SubscriptionChallenge struct {
	VerifyToken string
}

func NewSubscriptionChallenge(verifyToken string) SubscriptionChallenge {
	return SubscriptionChallenge{VerifyToken: strings.TrimSpace(verifyToken)}
}

func (c SubscriptionChallenge) Answer(req ChallengeRequest) (string, error) {
	expected := strings.TrimSpace(c.VerifyToken)
	if expected == "" {
		return "", fmt.Errorf("webhooks: verify token is not configured")
	}
	mode := strings.TrimSpace(strings.ToLower(req.Mode))
	if mode != ChallengeModeSubscribe {
		return "", fmt.Errorf("webhooks: challenge mode %q is not supported", mode)
	}
	token := strings.TrimSpace(req.Token)
	if subtle.ConstantTimeCompare([]byte(token), []byte(expected)) != 1 {
		return "", fmt.Errorf("webhooks: verify token mismatch")
	}
	return req.Challenge, nil
}
