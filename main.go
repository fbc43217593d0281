package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"stock-decision-bot/config"
	"stock-decision-bot/internal/analyzer"
	"stock-decision-bot/internal/api"
	"stock-decision-bot/internal/app"
	"stock-decision-bot/internal/auth"
	"stock-decision-bot/internal/cache"
	"stock-decision-bot/internal/circuit"
	"stock-decision-bot/internal/events"
	"stock-decision-bot/internal/fetcher"
	"stock-decision-bot/internal/logging"
	"stock-decision-bot/internal/market"
	"stock-decision-bot/internal/names"
	"stock-decision-bot/internal/notification"
	"stock-decision-bot/internal/ratelimit"
	"stock-decision-bot/internal/retry"
	"stock-decision-bot/internal/scheduler"
	"stock-decision-bot/internal/secrets"
	"stock-decision-bot/internal/storage"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger := logging.New(logging.Config{
		Level:   cfg.LoggingConfig.Level,
		Dir:     cfg.LoggingConfig.Dir,
		Console: cfg.LoggingConfig.Pretty,
	})
	logger.Info().Str("level", cfg.LoggingConfig.Level).Msg("structured logging initialized")

	// Overlay secret-bearing settings from Vault when enabled
	secretsProvider, err := secrets.NewProvider(cfg.VaultConfig, logger)
	if err != nil {
		log.Fatalf("Failed to initialize Vault client: %v", err)
	}
	overlaySecrets(cfg, secretsProvider, logger)

	// Initialize event bus
	eventBus := events.NewEventBus()
	eventBus.SubscribeAll(func(event events.Event) {
		logger.Debug().Str("event", string(event.Type)).Interface("data", event.Data).Msg("event published")
	})

	// Initialize notification manager
	notifyManager := buildNotifier(cfg, logger)

	// Initialize storage
	store, err := storage.Open(cfg.DatabaseConfig.Path, cfg.DatabaseConfig.DSN, logger)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	// Initialize the cache: file tier always, Redis tier when configured
	var remote *cache.Remote
	if cfg.CacheConfig.RedisAddr != "" {
		remote = cache.NewRemote(cfg.CacheConfig.RedisAddr, cfg.CacheConfig.RedisPassword, cfg.CacheConfig.RedisDB, logger)
	}
	cacheStore := cache.NewStore(cfg.CacheConfig.Dir, remote, logger)

	// Data sources in failover priority order
	sleepMin, sleepMax := cfg.AkshareSleepRange()
	sources := []fetcher.Fetcher{
		fetcher.NewEastmoney(ratelimit.NewJitter(sleepMin, sleepMax), logger),
	}
	tushare := fetcher.NewTushare(cfg.DataSourceConfig.TushareToken,
		ratelimit.NewBucket(cfg.DataSourceConfig.TushareRateLimitPerMinute), logger)
	if tushare.Enabled() {
		sources = append(sources, tushare)
		logger.Info().Msg("tushare source enabled")
	}
	sources = append(sources, fetcher.NewYahoo(logger))

	baseDelay, maxDelay := cfg.RetryDelays()
	fetchManager := fetcher.NewManager(sources, cacheStore, retry.Options{
		MaxAttempts: cfg.DataSourceConfig.MaxRetries,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}, logger)

	// Bridge breaker transitions onto the event bus so the dashboard sees
	// source degradation live
	fetchManager.OnBreakerStateChange(func(source string, from, to circuit.BreakerState) {
		switch {
		case to == circuit.StateOpen:
			logger.Warn().Str("source", source).Str("from", string(from)).Msg("data source degraded, circuit open")
			eventBus.PublishSourceDegraded(source, string(to))
		case to == circuit.StateClosed && from != circuit.StateClosed:
			logger.Info().Str("source", source).Msg("data source recovered, circuit closed")
			eventBus.PublishSourceRecovered(source)
		}
	})

	// Name resolver and decision engine
	resolver := names.Default(fetchManager.Realtime, logger)
	engine := analyzer.NewEngine(logger)

	// Assemble the orchestrator
	bot := app.New(cfg, engine, fetchManager, store, cacheStore, resolver, notifyManager, eventBus, logger)

	// Without a schedule or a web UI this is a plain CLI run: analyze the
	// watchlist once, send the report, exit
	if !cfg.ScheduleConfig.Enabled && !cfg.WebUIConfig.Enabled {
		runOnce(bot, logger)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the daily scheduler
	if cfg.ScheduleConfig.Enabled {
		sched, err := scheduler.New(cfg.ScheduleConfig.Time, func(runCtx context.Context) {
			if _, err := bot.RunOnce(runCtx, nil, true); err != nil {
				logger.Warn().Err(err).Msg("scheduled run skipped")
			}
		}, eventBus, logger)
		if err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		sched.Start(ctx)
		logger.Info().Str("at", cfg.ScheduleConfig.Time).
			Time("next_run", sched.NextFire(time.Now())).Msg("daily schedule enabled")
	}

	// Start the web server
	var server *api.Server
	if cfg.WebUIConfig.Enabled {
		authService, err := auth.NewService(cfg.WebUIConfig.Password, cfg.WebUIConfig.JWTSecret, 24*time.Hour, logger)
		if err != nil {
			log.Fatalf("Failed to initialize auth: %v", err)
		}

		server = api.NewServer(api.ServerConfig{
			Host:           cfg.WebUIConfig.Host,
			Port:           cfg.WebUIConfig.Port,
			ProductionMode: true,
		}, store, eventBus, bot, authService, logger)

		go func() {
			if err := server.Start(); err != nil {
				log.Fatalf("Failed to start web server: %v", err)
			}
		}()
		logger.Info().Str("host", cfg.WebUIConfig.Host).Int("port", cfg.WebUIConfig.Port).
			Msg("web interface available")
	}

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("shutting down")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("web server shutdown failed")
		}
	}

	logger.Info().Msg("shutdown complete")
}

// runOnce executes a single analysis pass over the watchlist. Ctrl-C cancels
// the in-flight run instead of killing it mid-symbol.
func runOnce(bot *app.App, logger zerolog.Logger) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	results, err := bot.RunOnce(ctx, nil, true)
	if err != nil {
		logger.Error().Err(err).Msg("analysis run failed")
		os.Exit(1)
	}

	buys := 0
	for _, r := range results {
		if r.Signal == market.StrongBuy || r.Signal == market.Buy {
			buys++
		}
	}
	logger.Info().Int("analyzed", len(results)).Int("buy_signals", buys).
		Dur("took", time.Since(start)).Msg("analysis run complete")
}

// overlaySecrets resolves secret-bearing settings through Vault. Vault wins
// over env and file values; a miss keeps the fallback.
func overlaySecrets(cfg *config.Config, provider *secrets.Provider, logger zerolog.Logger) {
	if !provider.IsEnabled() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := provider.Health(ctx); err != nil {
		logger.Warn().Err(err).Msg("vault health check failed, using env secrets")
		return
	}

	ds := &cfg.DataSourceConfig
	ds.TushareToken = provider.Lookup(ctx, secrets.SectionDataSource, "tushare_token", ds.TushareToken)

	nc := &cfg.NotificationConfig
	nc.WeChatWebhookURL = provider.Lookup(ctx, secrets.SectionNotification, "wechat_webhook_url", nc.WeChatWebhookURL)
	nc.FeishuWebhookURL = provider.Lookup(ctx, secrets.SectionNotification, "feishu_webhook_url", nc.FeishuWebhookURL)
	nc.TelegramBotToken = provider.Lookup(ctx, secrets.SectionNotification, "telegram_bot_token", nc.TelegramBotToken)
	nc.EmailPassword = provider.Lookup(ctx, secrets.SectionNotification, "email_password", nc.EmailPassword)
	nc.PushoverUserKey = provider.Lookup(ctx, secrets.SectionNotification, "pushover_user_key", nc.PushoverUserKey)
	nc.PushoverAppToken = provider.Lookup(ctx, secrets.SectionNotification, "pushover_app_token", nc.PushoverAppToken)
	nc.CustomWebhookBearer = provider.Lookup(ctx, secrets.SectionNotification, "custom_webhook_bearer", nc.CustomWebhookBearer)

	logger.Info().Msg("vault secrets overlay applied")
}

// buildNotifier assembles the notification fan-out from every channel with
// credentials configured.
func buildNotifier(cfg *config.Config, logger zerolog.Logger) *notification.Manager {
	manager := notification.NewManager(logger)
	nc := cfg.NotificationConfig

	if nc.WeChatWebhookURL != "" {
		manager.AddNotifier(notification.NewWeChatNotifier(notification.WeChatConfig{
			WebhookURL: nc.WeChatWebhookURL,
		}))
		logger.Info().Msg("wechat work notifications enabled")
	}

	if nc.FeishuWebhookURL != "" {
		manager.AddNotifier(notification.NewFeishuNotifier(notification.FeishuConfig{
			WebhookURL: nc.FeishuWebhookURL,
		}))
		logger.Info().Msg("feishu notifications enabled")
	}

	if nc.TelegramBotToken != "" && nc.TelegramChatID != "" {
		manager.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
			BotToken: nc.TelegramBotToken,
			ChatID:   nc.TelegramChatID,
		}))
		logger.Info().Msg("telegram notifications enabled")
	}

	if nc.EmailSender != "" && nc.EmailPassword != "" {
		manager.AddNotifier(notification.NewEmailNotifier(notification.EmailConfig{
			Sender:    nc.EmailSender,
			Password:  nc.EmailPassword,
			Receivers: nc.EmailReceivers,
		}))
		logger.Info().Msg("email notifications enabled")
	}

	if nc.PushoverUserKey != "" && nc.PushoverAppToken != "" {
		manager.AddNotifier(notification.NewPushoverNotifier(notification.PushoverConfig{
			UserKey:  nc.PushoverUserKey,
			APIToken: nc.PushoverAppToken,
		}))
		logger.Info().Msg("pushover notifications enabled")
	}

	if nc.CustomWebhookURLs != "" {
		manager.AddNotifier(notification.NewCustomWebhookNotifier(notification.CustomWebhookConfig{
			URLs:        nc.CustomWebhookURLs,
			BearerToken: nc.CustomWebhookBearer,
		}))
		logger.Info().Msg("custom webhook notifications enabled")
	}

	return manager
}
