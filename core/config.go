package core

import (
	"fmt"
	"strings"
	"time"
)

type WebhookConfig struct {
	// Secret empty is the explicit bypass mode: signature verification is
	// skipped entirely. A present-but-wrong secret still fails closed.
	Secret          string `koanf:"secret" mapstructure:"secret"`
	SignatureHeader string `koanf:"signature_header" mapstructure:"signature_header"`
	VerifyToken     string `koanf:"verify_token" mapstructure:"verify_token"`
}

type PrivacyConfig struct {
	// HashSalt rotation invalidates sender correlation across epochs.
	HashSalt string `koanf:"hash_salt" mapstructure:"hash_salt"`
}

type PersistConfig struct {
	Timeout time.Duration `koanf:"timeout" mapstructure:"timeout"`
}

type Config struct {
	ServiceName string        `koanf:"service_name" mapstructure:"service_name"`
	Webhook     WebhookConfig `koanf:"webhook" mapstructure:"webhook"`
	Privacy     PrivacyConfig `koanf:"privacy" mapstructure:"privacy"`
	Persist     PersistConfig `koanf:"persist" mapstructure:"persist"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "ingest",
		Webhook: WebhookConfig{
			SignatureHeader: "X-Hub-Signature-256",
		},
		Persist: PersistConfig{
			Timeout: 15 * time.Second,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.Webhook.SignatureHeader) == "" {
		return fmt.Errorf("core: webhook.signature_header is required")
	}
	if c.Persist.Timeout < 0 {
		return fmt.Errorf("core: persist.timeout must not be negative")
	}
	return nil
}
