package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.MaxConcurrent != 3 {
		t.Errorf("Expected default concurrency 3, got %d", cfg.MaxConcurrent)
	}
	if cfg.DataDays != 60 {
		t.Errorf("Expected default data days 60, got %d", cfg.DataDays)
	}
	if cfg.ReportDir != "./reports" {
		t.Errorf("Expected default report dir, got %s", cfg.ReportDir)
	}
	if cfg.DataSourceConfig.TushareRateLimitPerMinute != 80 {
		t.Errorf("Expected tushare rate limit 80, got %d", cfg.DataSourceConfig.TushareRateLimitPerMinute)
	}
	if cfg.DataSourceConfig.AkshareSleepMin != 2.0 || cfg.DataSourceConfig.AkshareSleepMax != 5.0 {
		t.Errorf("Unexpected sleep range: %f..%f", cfg.DataSourceConfig.AkshareSleepMin, cfg.DataSourceConfig.AkshareSleepMax)
	}
	if cfg.DataSourceConfig.MaxRetries != 3 {
		t.Errorf("Expected 3 retries, got %d", cfg.DataSourceConfig.MaxRetries)
	}
	if cfg.DatabaseConfig.Path != "./data/stock_data.db" {
		t.Errorf("Expected default db path, got %s", cfg.DatabaseConfig.Path)
	}
	if cfg.CacheConfig.Dir != "./data/cache" {
		t.Errorf("Expected default cache dir, got %s", cfg.CacheConfig.Dir)
	}
	if cfg.LoggingConfig.Level != "info" {
		t.Errorf("Expected default log level info, got %s", cfg.LoggingConfig.Level)
	}
	if cfg.ScheduleConfig.Time != "18:00" {
		t.Errorf("Expected default schedule time 18:00, got %s", cfg.ScheduleConfig.Time)
	}
	if cfg.WebUIConfig.Host != "127.0.0.1" || cfg.WebUIConfig.Port != 8000 {
		t.Errorf("Unexpected web UI defaults: %s:%d", cfg.WebUIConfig.Host, cfg.WebUIConfig.Port)
	}
	if cfg.VaultConfig.MountPath != "secret" || cfg.VaultConfig.SecretPath != "stock-bot" {
		t.Errorf("Unexpected vault defaults: %s %s", cfg.VaultConfig.MountPath, cfg.VaultConfig.SecretPath)
	}
}

func TestApplyDefaultsKeepsExplicitValues(t *testing.T) {
	cfg := &Config{MaxConcurrent: 8, DataDays: 250}
	cfg.LoggingConfig.Level = "debug"
	cfg.applyDefaults()

	if cfg.MaxConcurrent != 8 {
		t.Errorf("Explicit concurrency overwritten: %d", cfg.MaxConcurrent)
	}
	if cfg.DataDays != 250 {
		t.Errorf("Explicit data days overwritten: %d", cfg.DataDays)
	}
	if cfg.LoggingConfig.Level != "debug" {
		t.Errorf("Explicit log level overwritten: %s", cfg.LoggingConfig.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("STOCK_LIST", " 600519, 000001,,00700.HK ")
	t.Setenv("MAX_CONCURRENT", "5")
	t.Setenv("DATA_DAYS", "120")
	t.Setenv("TUSHARE_TOKEN", "tok123")
	t.Setenv("SCHEDULE_ENABLED", "true")
	t.Setenv("WEBUI_ENABLED", "1")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := &Config{DataDays: 30}
	applyEnvOverrides(cfg)

	want := []string{"600519", "000001", "00700.HK"}
	if len(cfg.StockList) != 3 {
		t.Fatalf("Expected 3 symbols, got %v", cfg.StockList)
	}
	for i, w := range want {
		if cfg.StockList[i] != w {
			t.Errorf("Symbol %d: expected %s, got %s", i, w, cfg.StockList[i])
		}
	}
	if cfg.MaxConcurrent != 5 {
		t.Errorf("Expected concurrency 5, got %d", cfg.MaxConcurrent)
	}
	if cfg.DataDays != 120 {
		t.Errorf("Env should beat the file value, got %d", cfg.DataDays)
	}
	if cfg.DataSourceConfig.TushareToken != "tok123" {
		t.Errorf("Expected token from env, got %s", cfg.DataSourceConfig.TushareToken)
	}
	if !cfg.ScheduleConfig.Enabled {
		t.Error("SCHEDULE_ENABLED=true should enable the scheduler")
	}
	if !cfg.WebUIConfig.Enabled {
		t.Error("WEBUI_ENABLED=1 should enable the web UI")
	}
	if cfg.LoggingConfig.Level != "debug" {
		t.Errorf("Expected debug level, got %s", cfg.LoggingConfig.Level)
	}
}

func TestEnvParsingFallbacks(t *testing.T) {
	t.Setenv("MAX_CONCURRENT", "not-a-number")
	t.Setenv("SINGLE_STOCK_NOTIFY", "no")

	cfg := &Config{MaxConcurrent: 4, SingleStockNotify: true}
	applyEnvOverrides(cfg)

	if cfg.MaxConcurrent != 4 {
		t.Errorf("Unparseable int should keep the prior value, got %d", cfg.MaxConcurrent)
	}
	if cfg.SingleStockNotify {
		t.Error("Any set value other than true/1 should read as false")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	raw := `{
		"stock_list": ["600519", "00700.HK"],
		"data_days": 90,
		"webui": {"enabled": true, "port": 9000},
		"notification": {"wechat_webhook_url": "https://example.com/hook"}
	}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	cfg, err := loadFromFile(path)
	if err != nil {
		t.Fatalf("loadFromFile failed: %v", err)
	}
	if len(cfg.StockList) != 2 || cfg.StockList[0] != "600519" {
		t.Errorf("Unexpected stock list: %v", cfg.StockList)
	}
	if cfg.DataDays != 90 {
		t.Errorf("Expected data days 90, got %d", cfg.DataDays)
	}
	if !cfg.WebUIConfig.Enabled || cfg.WebUIConfig.Port != 9000 {
		t.Errorf("Unexpected web UI config: %+v", cfg.WebUIConfig)
	}
	if cfg.NotificationConfig.WeChatWebhookURL != "https://example.com/hook" {
		t.Errorf("Unexpected webhook: %s", cfg.NotificationConfig.WeChatWebhookURL)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := loadFromFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := &Config{}
	cfg.DataSourceConfig.AkshareSleepMin = 0.5
	cfg.DataSourceConfig.AkshareSleepMax = 2.5
	cfg.DataSourceConfig.RetryBaseDelay = 1.0
	cfg.DataSourceConfig.RetryMaxDelay = 30.0

	lo, hi := cfg.AkshareSleepRange()
	if lo != 500*time.Millisecond || hi != 2500*time.Millisecond {
		t.Errorf("Unexpected sleep range: %s..%s", lo, hi)
	}
	base, maxDelay := cfg.RetryDelays()
	if base != time.Second || maxDelay != 30*time.Second {
		t.Errorf("Unexpected retry delays: %s %s", base, maxDelay)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a, b ,, c ")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Errorf("Expected trimmed non-empty parts, got %v", got)
	}
}
