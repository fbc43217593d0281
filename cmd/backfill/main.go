package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"stock-decision-bot/config"
	"stock-decision-bot/internal/fetcher"
	"stock-decision-bot/internal/logging"
	"stock-decision-bot/internal/ratelimit"
	"stock-decision-bot/internal/retry"
	"stock-decision-bot/internal/sanitize"
	"stock-decision-bot/internal/storage"
)

// backfill pulls daily history for the watchlist straight from the data
// sources and upserts it into the local database. The run cache is skipped
// so a backfill always refreshes from source.
func main() {
	days := flag.Int("days", 250, "trading days of history per symbol")
	symbolsFlag := flag.String("symbols", "", "comma separated symbols, defaults to the configured watchlist")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	raw := cfg.StockList
	if *symbolsFlag != "" {
		raw = strings.Split(*symbolsFlag, ",")
	}
	symbols, err := sanitize.SymbolList(raw)
	if err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}
	if len(symbols) == 0 {
		fmt.Println("❌ No symbols to backfill: set STOCK_LIST or pass -symbols")
		os.Exit(1)
	}

	// Quiet logger: progress goes to stdout, only real problems to stderr
	logger := logging.New(logging.Config{Level: "warn", Console: true})

	store, err := storage.Open(cfg.DatabaseConfig.Path, cfg.DatabaseConfig.DSN, logger)
	if err != nil {
		fmt.Printf("❌ Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	sleepMin, sleepMax := cfg.AkshareSleepRange()
	sources := []fetcher.Fetcher{
		fetcher.NewEastmoney(ratelimit.NewJitter(sleepMin, sleepMax), logger),
	}
	tushare := fetcher.NewTushare(cfg.DataSourceConfig.TushareToken,
		ratelimit.NewBucket(cfg.DataSourceConfig.TushareRateLimitPerMinute), logger)
	if tushare.Enabled() {
		sources = append(sources, tushare)
	}
	sources = append(sources, fetcher.NewYahoo(logger))

	baseDelay, maxDelay := cfg.RetryDelays()
	manager := fetcher.NewManager(sources, nil, retry.Options{
		MaxAttempts: cfg.DataSourceConfig.MaxRetries,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}, logger)

	fmt.Printf("📊 Backfilling %d symbols, %d days each\n\n", len(symbols), *days)

	start := time.Now()
	totalNew := 0
	failed := 0
	for _, symbol := range symbols {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		bars := manager.DailyBars(ctx, symbol, *days)
		if len(bars) == 0 {
			cancel()
			fmt.Printf("❌ %-10s no data from any source\n", symbol)
			failed++
			continue
		}

		inserted, err := store.SaveBars(ctx, bars)
		cancel()
		if err != nil {
			fmt.Printf("❌ %-10s save failed: %v\n", symbol, err)
			failed++
			continue
		}

		totalNew += inserted
		fmt.Printf("✅ %-10s %d rows fetched, %d new\n", symbol, len(bars), inserted)
	}

	fmt.Printf("\nDone in %s: %d new rows, %d/%d symbols ok\n",
		time.Since(start).Round(time.Second), totalNew, len(symbols)-failed, len(symbols))
	if failed > 0 {
		os.Exit(1)
	}
}
