package secrets

import (
	"context"
	"fmt"
	"sync"

	"stock-decision-bot/config"

	"github.com/hashicorp/vault/api"
	"github.com/rs/zerolog"
)

// Sections in the KV store. Each maps to one KV v2 secret whose keys
// override the matching environment-derived config values.
const (
	SectionDataSource   = "datasource"
	SectionNotification = "notification"
)

// Provider resolves secrets from HashiCorp Vault with environment
// fallback. When Vault is disabled every lookup returns the fallback
// value unchanged, so callers never need to branch on availability.
type Provider struct {
	client *api.Client
	cfg    config.VaultConfig
	logger zerolog.Logger

	mu    sync.RWMutex
	cache map[string]map[string]string // section -> key/value
}

// NewProvider creates a secrets provider. A disabled config yields a
// passthrough provider and never returns an error.
func NewProvider(cfg config.VaultConfig, logger zerolog.Logger) (*Provider, error) {
	p := &Provider{
		cfg:    cfg,
		logger: logger.With().Str("component", "secrets").Logger(),
		cache:  make(map[string]map[string]string),
	}

	if !cfg.Enabled {
		return p, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	if cfg.TLSEnabled && cfg.CACert != "" {
		tlsConfig := &api.TLSConfig{
			CACert: cfg.CACert,
		}
		if err := vaultConfig.ConfigureTLS(tlsConfig); err != nil {
			return nil, fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}

	client.SetToken(cfg.Token)
	p.client = client

	return p, nil
}

// Lookup returns the value stored under section/key, or fallback when
// Vault is disabled, the key is absent, or the read fails. Failures
// are logged and never propagate: secrets degrade to env config.
func (p *Provider) Lookup(ctx context.Context, section, key, fallback string) string {
	if !p.cfg.Enabled {
		return fallback
	}

	values, err := p.section(ctx, section)
	if err != nil {
		p.logger.Warn().Err(err).
			Str("section", section).
			Str("key", key).
			Msg("vault lookup failed, using env value")
		return fallback
	}

	if v, ok := values[key]; ok && v != "" {
		return v
	}
	return fallback
}

// section reads one KV v2 secret, serving repeats from cache.
func (p *Provider) section(ctx context.Context, name string) (map[string]string, error) {
	p.mu.RLock()
	if cached, ok := p.cache[name]; ok {
		p.mu.RUnlock()
		return cached, nil
	}
	p.mu.RUnlock()

	path := p.secretPath(name)

	secret, err := p.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from vault: %w", path, err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret %s not found", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format at %s", path)
	}

	values := make(map[string]string, len(data))
	for k, v := range data {
		if s, ok := v.(string); ok {
			values[k] = s
		}
	}

	p.mu.Lock()
	p.cache[name] = values
	p.mu.Unlock()

	return values, nil
}

// ClearCache drops cached sections so the next lookup re-reads Vault.
func (p *Provider) ClearCache() {
	p.mu.Lock()
	p.cache = make(map[string]map[string]string)
	p.mu.Unlock()
}

// IsEnabled returns whether Vault is enabled
func (p *Provider) IsEnabled() bool {
	return p.cfg.Enabled
}

// Health checks the Vault connection
func (p *Provider) Health(ctx context.Context) error {
	if !p.cfg.Enabled {
		return nil
	}

	health, err := p.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}

	return nil
}

// secretPath returns the KV v2 data path for a section.
func (p *Provider) secretPath(section string) string {
	return fmt.Sprintf("%s/data/%s/%s", p.cfg.MountPath, p.cfg.SecretPath, section)
}
