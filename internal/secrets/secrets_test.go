package secrets

import (
	"context"
	"testing"

	"stock-decision-bot/config"
	"stock-decision-bot/internal/logging"
)

func TestDisabledProviderPassesThrough(t *testing.T) {
	p, err := NewProvider(config.VaultConfig{Enabled: false}, logging.Nop())
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	if p.IsEnabled() {
		t.Error("Disabled config should report disabled")
	}
	got := p.Lookup(context.Background(), SectionDataSource, "tushare_token", "env-token")
	if got != "env-token" {
		t.Errorf("Expected the fallback value, got %q", got)
	}
	if err := p.Health(context.Background()); err != nil {
		t.Errorf("Disabled provider health should be nil, got %v", err)
	}
}

func TestSecretPath(t *testing.T) {
	p, err := NewProvider(config.VaultConfig{
		Enabled:    false,
		MountPath:  "secret",
		SecretPath: "stock-bot",
	}, logging.Nop())
	if err != nil {
		t.Fatalf("NewProvider failed: %v", err)
	}

	if got := p.secretPath(SectionNotification); got != "secret/data/stock-bot/notification" {
		t.Errorf("Unexpected KV v2 path: %s", got)
	}
}
