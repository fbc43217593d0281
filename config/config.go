package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Watchlist and run shape
	StockList         []string `json:"stock_list"`
	MaxConcurrent     int      `json:"max_concurrent"`
	DataDays          int      `json:"data_days"`
	SingleStockNotify bool     `json:"single_stock_notify"`
	ReportDir         string   `json:"report_dir"`

	DataSourceConfig   DataSourceConfig   `json:"datasource"`
	DatabaseConfig     DatabaseConfig     `json:"database"`
	CacheConfig        CacheConfig        `json:"cache"`
	LoggingConfig      LoggingConfig      `json:"logging"`
	ScheduleConfig     ScheduleConfig     `json:"schedule"`
	WebUIConfig        WebUIConfig        `json:"webui"`
	NotificationConfig NotificationConfig `json:"notification"`
	VaultConfig        VaultConfig        `json:"vault"`
}

// DataSourceConfig holds fetch pacing, retry and credential settings.
// Delays are plain seconds so config.json matches the env var units.
type DataSourceConfig struct {
	TushareToken              string  `json:"tushare_token"`
	TushareRateLimitPerMinute int     `json:"tushare_rate_limit_per_minute"`
	AkshareSleepMin           float64 `json:"akshare_sleep_min"`
	AkshareSleepMax           float64 `json:"akshare_sleep_max"`
	MaxRetries                int     `json:"max_retries"`
	RetryBaseDelay            float64 `json:"retry_base_delay"`
	RetryMaxDelay             float64 `json:"retry_max_delay"`
}

// DatabaseConfig selects the storage backend: a SQLite file path by
// default, or a postgres DSN when set.
type DatabaseConfig struct {
	Path string `json:"path"`
	DSN  string `json:"dsn"`
}

// CacheConfig holds the file cache directory and the optional Redis tier.
type CacheConfig struct {
	Dir           string `json:"dir"`
	RedisAddr     string `json:"redis_addr"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`
}

// LoggingConfig holds log output settings
type LoggingConfig struct {
	Level  string `json:"level"`
	Dir    string `json:"dir"`
	Pretty bool   `json:"pretty"`
}

// ScheduleConfig holds the daily run trigger
type ScheduleConfig struct {
	Enabled bool   `json:"enabled"`
	Time    string `json:"time"` // HH:MM local
}

// WebUIConfig holds the dashboard server settings
type WebUIConfig struct {
	Enabled   bool   `json:"enabled"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Password  string `json:"password"`
	JWTSecret string `json:"jwt_secret"`
}

// NotificationConfig holds per-channel credentials; an empty credential
// leaves that channel disabled.
type NotificationConfig struct {
	WeChatWebhookURL    string   `json:"wechat_webhook_url"`
	FeishuWebhookURL    string   `json:"feishu_webhook_url"`
	TelegramBotToken    string   `json:"telegram_bot_token"`
	TelegramChatID      string   `json:"telegram_chat_id"`
	EmailSender         string   `json:"email_sender"`
	EmailPassword       string   `json:"email_password"`
	EmailReceivers      []string `json:"email_receivers"`
	PushoverUserKey     string   `json:"pushover_user_key"`
	PushoverAppToken    string   `json:"pushover_app_token"`
	CustomWebhookURLs   string   `json:"custom_webhook_urls"` // comma separated
	CustomWebhookBearer string   `json:"custom_webhook_bearer"`
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled"`
	Address    string `json:"address"`
	Token      string `json:"token"`
	MountPath  string `json:"mount_path"`  // KV secrets engine mount path
	SecretPath string `json:"secret_path"` // Path prefix for secrets
	TLSEnabled bool   `json:"tls_enabled"`
	CACert     string `json:"ca_cert"`
}

func Load() (*Config, error) {
	// .env first so the overrides below can see it; a missing file is fine
	_ = godotenv.Load()

	// First try to load base config from file
	cfg, err := loadFromFile("config.json")
	if err != nil {
		// If no config file, start with empty config
		cfg = &Config{}
	}

	// Apply environment variable overrides (these take precedence)
	applyEnvOverrides(cfg)
	cfg.applyDefaults()

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STOCK_LIST"); v != "" {
		cfg.StockList = splitList(v)
	}
	cfg.MaxConcurrent = getEnvIntOrDefault("MAX_CONCURRENT", cfg.MaxConcurrent)
	cfg.DataDays = getEnvIntOrDefault("DATA_DAYS", cfg.DataDays)
	cfg.SingleStockNotify = getEnvBoolOrDefault("SINGLE_STOCK_NOTIFY", cfg.SingleStockNotify)
	cfg.ReportDir = getEnvOrDefault("REPORT_DIR", cfg.ReportDir)

	// Data sources
	ds := &cfg.DataSourceConfig
	ds.TushareToken = getEnvOrDefault("TUSHARE_TOKEN", ds.TushareToken)
	ds.TushareRateLimitPerMinute = getEnvIntOrDefault("TUSHARE_RATE_LIMIT_PER_MINUTE", ds.TushareRateLimitPerMinute)
	ds.AkshareSleepMin = getEnvFloatOrDefault("AKSHARE_SLEEP_MIN", ds.AkshareSleepMin)
	ds.AkshareSleepMax = getEnvFloatOrDefault("AKSHARE_SLEEP_MAX", ds.AkshareSleepMax)
	ds.MaxRetries = getEnvIntOrDefault("MAX_RETRIES", ds.MaxRetries)
	ds.RetryBaseDelay = getEnvFloatOrDefault("RETRY_BASE_DELAY", ds.RetryBaseDelay)
	ds.RetryMaxDelay = getEnvFloatOrDefault("RETRY_MAX_DELAY", ds.RetryMaxDelay)

	// Database
	cfg.DatabaseConfig.Path = getEnvOrDefault("DB_PATH", cfg.DatabaseConfig.Path)
	cfg.DatabaseConfig.DSN = getEnvOrDefault("DB_DSN", cfg.DatabaseConfig.DSN)

	// Cache
	cfg.CacheConfig.Dir = getEnvOrDefault("CACHE_DIR", cfg.CacheConfig.Dir)
	cfg.CacheConfig.RedisAddr = getEnvOrDefault("REDIS_ADDR", cfg.CacheConfig.RedisAddr)
	cfg.CacheConfig.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", cfg.CacheConfig.RedisPassword)
	cfg.CacheConfig.RedisDB = getEnvIntOrDefault("REDIS_DB", cfg.CacheConfig.RedisDB)

	// Logging
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Dir = getEnvOrDefault("LOG_DIR", cfg.LoggingConfig.Dir)
	cfg.LoggingConfig.Pretty = getEnvBoolOrDefault("LOG_PRETTY", cfg.LoggingConfig.Pretty)

	// Scheduler
	cfg.ScheduleConfig.Enabled = getEnvBoolOrDefault("SCHEDULE_ENABLED", cfg.ScheduleConfig.Enabled)
	cfg.ScheduleConfig.Time = getEnvOrDefault("SCHEDULE_TIME", cfg.ScheduleConfig.Time)

	// Web UI
	cfg.WebUIConfig.Enabled = getEnvBoolOrDefault("WEBUI_ENABLED", cfg.WebUIConfig.Enabled)
	cfg.WebUIConfig.Host = getEnvOrDefault("WEBUI_HOST", cfg.WebUIConfig.Host)
	cfg.WebUIConfig.Port = getEnvIntOrDefault("WEBUI_PORT", cfg.WebUIConfig.Port)
	cfg.WebUIConfig.Password = getEnvOrDefault("WEBUI_PASSWORD", cfg.WebUIConfig.Password)
	cfg.WebUIConfig.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.WebUIConfig.JWTSecret)

	// Notification channels
	nc := &cfg.NotificationConfig
	nc.WeChatWebhookURL = getEnvOrDefault("WECHAT_WEBHOOK_URL", nc.WeChatWebhookURL)
	nc.FeishuWebhookURL = getEnvOrDefault("FEISHU_WEBHOOK_URL", nc.FeishuWebhookURL)
	nc.TelegramBotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", nc.TelegramBotToken)
	nc.TelegramChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", nc.TelegramChatID)
	nc.EmailSender = getEnvOrDefault("EMAIL_SENDER", nc.EmailSender)
	nc.EmailPassword = getEnvOrDefault("EMAIL_PASSWORD", nc.EmailPassword)
	if v := os.Getenv("EMAIL_RECEIVERS"); v != "" {
		nc.EmailReceivers = splitList(v)
	}
	nc.PushoverUserKey = getEnvOrDefault("PUSHOVER_USER_KEY", nc.PushoverUserKey)
	nc.PushoverAppToken = getEnvOrDefault("PUSHOVER_APP_TOKEN", nc.PushoverAppToken)
	nc.CustomWebhookURLs = getEnvOrDefault("CUSTOM_WEBHOOK_URLS", nc.CustomWebhookURLs)
	nc.CustomWebhookBearer = getEnvOrDefault("CUSTOM_WEBHOOK_BEARER", nc.CustomWebhookBearer)

	// Vault
	cfg.VaultConfig.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.VaultConfig.Enabled)
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_PATH_PREFIX", cfg.VaultConfig.SecretPath)
	cfg.VaultConfig.TLSEnabled = getEnvBoolOrDefault("VAULT_TLS_ENABLED", cfg.VaultConfig.TLSEnabled)
	cfg.VaultConfig.CACert = getEnvOrDefault("VAULT_CA_CERT", cfg.VaultConfig.CACert)
}

// applyDefaults fills anything neither the file nor the environment set.
func (c *Config) applyDefaults() {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 3
	}
	if c.DataDays <= 0 {
		c.DataDays = 60
	}
	if c.ReportDir == "" {
		c.ReportDir = "./reports"
	}

	ds := &c.DataSourceConfig
	if ds.TushareRateLimitPerMinute <= 0 {
		ds.TushareRateLimitPerMinute = 80
	}
	if ds.AkshareSleepMin <= 0 {
		ds.AkshareSleepMin = 2.0
	}
	if ds.AkshareSleepMax <= 0 {
		ds.AkshareSleepMax = 5.0
	}
	if ds.MaxRetries <= 0 {
		ds.MaxRetries = 3
	}
	if ds.RetryBaseDelay <= 0 {
		ds.RetryBaseDelay = 1.0
	}
	if ds.RetryMaxDelay <= 0 {
		ds.RetryMaxDelay = 30.0
	}

	if c.DatabaseConfig.Path == "" {
		c.DatabaseConfig.Path = "./data/stock_data.db"
	}
	if c.CacheConfig.Dir == "" {
		c.CacheConfig.Dir = "./data/cache"
	}

	if c.LoggingConfig.Level == "" {
		c.LoggingConfig.Level = "info"
	}
	if c.LoggingConfig.Dir == "" {
		c.LoggingConfig.Dir = "./logs"
	}

	if c.ScheduleConfig.Time == "" {
		c.ScheduleConfig.Time = "18:00"
	}

	if c.WebUIConfig.Host == "" {
		c.WebUIConfig.Host = "127.0.0.1"
	}
	if c.WebUIConfig.Port <= 0 {
		c.WebUIConfig.Port = 8000
	}

	if c.VaultConfig.Address == "" {
		c.VaultConfig.Address = "http://localhost:8200"
	}
	if c.VaultConfig.MountPath == "" {
		c.VaultConfig.MountPath = "secret"
	}
	if c.VaultConfig.SecretPath == "" {
		c.VaultConfig.SecretPath = "stock-bot"
	}
}

// AkshareSleepRange returns the jitter pacer bounds as durations.
func (c *Config) AkshareSleepRange() (time.Duration, time.Duration) {
	return secondsToDuration(c.DataSourceConfig.AkshareSleepMin),
		secondsToDuration(c.DataSourceConfig.AkshareSleepMax)
}

// RetryDelays returns the retry base and cap as durations.
func (c *Config) RetryDelays() (time.Duration, time.Duration) {
	return secondsToDuration(c.DataSourceConfig.RetryBaseDelay),
		secondsToDuration(c.DataSourceConfig.RetryMaxDelay)
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.EqualFold(value, "true") || value == "1"
	}
	return defaultValue
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
