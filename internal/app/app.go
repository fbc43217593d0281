// Package app orchestrates the analysis pipeline: fetch, persist,
// decide, resolve names, then publish reports over the configured
// notification channels.
package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"stock-decision-bot/config"
	"stock-decision-bot/internal/analyzer"
	"stock-decision-bot/internal/cache"
	"stock-decision-bot/internal/events"
	"stock-decision-bot/internal/fetcher"
	"stock-decision-bot/internal/market"
	"stock-decision-bot/internal/names"
	"stock-decision-bot/internal/notification"
	"stock-decision-bot/internal/report"
	"stock-decision-bot/internal/sanitize"
	"stock-decision-bot/internal/storage"
)

// ErrRunInProgress rejects a trigger while another run is active.
var ErrRunInProgress = errors.New("analysis run already in progress")

const (
	// symbolTimeout caps one symbol's fetch+analyze pipeline.
	symbolTimeout = 30 * time.Second
	// symbolBudget sizes the soft deadline of a whole background run.
	symbolBudget = 60 * time.Second
)

// Options tunes one analysis run.
type Options struct {
	// Days of daily-bar history to fetch; 0 uses the configured default.
	Days int
	// News maps symbol to external news context for the sentiment gate.
	// Symbols without an entry skip the gate.
	News map[string]string
}

// App wires the pipeline components together.
type App struct {
	cfg      *config.Config
	engine   *analyzer.Engine
	fetchers *fetcher.Manager
	store    *storage.Store
	cache    *cache.Store
	resolver *names.Resolver
	notifier *notification.Manager
	bus      *events.EventBus
	logger   zerolog.Logger

	mu          sync.RWMutex
	running     bool
	lastResults []*analyzer.SignalResult
	lastBySym   map[string]*analyzer.SignalResult
}

// New assembles the orchestrator.
func New(
	cfg *config.Config,
	engine *analyzer.Engine,
	fetchers *fetcher.Manager,
	store *storage.Store,
	cacheStore *cache.Store,
	resolver *names.Resolver,
	notifier *notification.Manager,
	bus *events.EventBus,
	logger zerolog.Logger,
) *App {
	return &App{
		cfg:       cfg,
		engine:    engine,
		fetchers:  fetchers,
		store:     store,
		cache:     cacheStore,
		resolver:  resolver,
		notifier:  notifier,
		bus:       bus,
		logger:    logger.With().Str("component", "app").Logger(),
		lastBySym: make(map[string]*analyzer.SignalResult),
	}
}

// Analyze runs the pipeline over symbols (the configured watchlist when
// empty) with a bounded worker pool. One symbol failing is logged and
// skipped; the remaining results keep input order.
func (a *App) Analyze(ctx context.Context, symbols []string, opts Options) []*analyzer.SignalResult {
	return a.run(ctx, uuid.New().String(), symbols, opts)
}

func (a *App) run(ctx context.Context, runID string, symbols []string, opts Options) []*analyzer.SignalResult {
	if len(symbols) == 0 {
		symbols = a.cfg.StockList
	}
	if len(symbols) == 0 {
		a.logger.Warn().Msg("watchlist empty, nothing to analyze")
		return nil
	}

	days := opts.Days
	if days <= 0 {
		days = a.cfg.DataDays
	}

	workers := a.cfg.MaxConcurrent
	if workers <= 0 {
		workers = 3
	}
	if workers > len(symbols) {
		workers = len(symbols)
	}

	start := time.Now()
	a.logger.Info().
		Str("run_id", runID).
		Int("symbols", len(symbols)).
		Int("workers", workers).
		Msg("analysis run started")
	a.bus.PublishRunStarted(runID, symbols)

	slots := make([]*analyzer.SignalResult, len(symbols))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				slots[i] = a.analyzeOne(ctx, runID, symbols[i], days, opts.News[symbols[i]])
			}
		}()
	}

feed:
	for i := range symbols {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	results := make([]*analyzer.SignalResult, 0, len(symbols))
	for _, res := range slots {
		if res != nil {
			results = append(results, res)
		}
	}

	a.mu.Lock()
	a.lastResults = results
	a.lastBySym = make(map[string]*analyzer.SignalResult, len(results))
	for _, res := range results {
		a.lastBySym[res.Symbol] = res
	}
	a.mu.Unlock()

	elapsed := time.Since(start)
	failed := len(symbols) - len(results)
	a.logger.Info().
		Str("run_id", runID).
		Int("analyzed", len(results)).
		Int("failed", failed).
		Dur("elapsed", elapsed).
		Msg("analysis run finished")
	a.bus.PublishRunCompleted(runID, len(results), failed, elapsed)

	return results
}

// analyzeOne runs the per-symbol pipeline: validate, fetch, persist,
// decide, resolve the display name. Returns nil when the symbol is
// unusable; data gaps degrade inside the engine instead.
func (a *App) analyzeOne(parent context.Context, runID, rawSymbol string, days int, news string) *analyzer.SignalResult {
	symbol, err := sanitize.Symbol(rawSymbol)
	if err != nil {
		a.logger.Error().Err(err).Str("symbol", rawSymbol).Msg("symbol rejected")
		return nil
	}

	ctx, cancel := context.WithTimeout(parent, symbolTimeout)
	defer cancel()

	bars := a.fetchers.DailyBars(ctx, symbol, days)

	if len(bars) > 0 && a.store != nil {
		if _, err := a.store.SaveBars(ctx, bars); err != nil {
			a.logger.Warn().Err(err).Str("symbol", symbol).Msg("persisting bars failed")
		}
	}

	res := a.engine.Analyze(symbol, bars, news)
	res.Name = a.resolver.Resolve(ctx, symbol, "")

	a.bus.PublishSymbolAnalyzed(runID, symbol, res.Name, res.Score, string(res.Signal))
	if res.Signal == market.StrongBuy || res.Signal == market.Buy {
		a.bus.PublishSignalGenerated(symbol, res.Name, string(res.Signal), res.Score)
	}
	if res.SentimentChecked && res.SentimentResult == "重大利空" {
		a.bus.PublishSentimentVeto(symbol, res.Name, res.SentimentResult)
	}

	return res
}

// Publish renders the report, saves it to disk and fans it out over
// every enabled channel. SINGLE_STOCK_NOTIFY switches to one message
// per stock. The returned map carries per-channel send errors.
func (a *App) Publish(ctx context.Context, results []*analyzer.SignalResult) map[string]error {
	if len(results) == 0 {
		a.logger.Warn().Msg("no results to publish")
		return nil
	}

	daily := report.Daily(results, time.Now().Format("2006-01-02"))

	path, err := report.SaveDaily(daily, a.cfg.ReportDir)
	if err != nil {
		a.logger.Error().Err(err).Msg("saving daily report failed")
	} else {
		a.logger.Info().Str("path", path).Msg("daily report saved")
		a.bus.PublishReportSaved(path)
	}

	var sendResults map[string]error
	if a.cfg.SingleStockNotify {
		sendResults = make(map[string]error)
		for _, res := range results {
			for channel, sendErr := range a.notifier.Send(report.Single(res)) {
				if _, seen := sendResults[channel]; !seen || sendErr != nil {
					sendResults[channel] = sendErr
				}
			}
		}
	} else {
		sendResults = a.notifier.Send(daily)
	}

	failed := 0
	for _, sendErr := range sendResults {
		if sendErr != nil {
			failed++
		}
	}
	a.bus.PublishReportSent(len(sendResults), failed)

	return sendResults
}

// RunOnce performs one guarded, synchronous analyze+publish cycle. The
// scheduler and the CLI entrypoint share this path.
func (a *App) RunOnce(ctx context.Context, symbols []string, notify bool) ([]*analyzer.SignalResult, error) {
	if !a.tryAcquire() {
		return nil, ErrRunInProgress
	}
	defer a.release()

	results := a.run(ctx, uuid.New().String(), symbols, Options{})
	if notify {
		a.Publish(ctx, results)
	}
	return results, nil
}

// TriggerRun starts a background run and returns its ID immediately.
// Used by the dashboard's POST /api/analyze.
func (a *App) TriggerRun(symbols []string, notify bool) (string, error) {
	if !a.tryAcquire() {
		return "", ErrRunInProgress
	}

	runID := uuid.New().String()
	count := len(symbols)
	if count == 0 {
		count = len(a.cfg.StockList)
	}
	if count == 0 {
		count = 1
	}

	go func() {
		defer a.release()

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(count)*symbolBudget)
		defer cancel()

		results := a.run(ctx, runID, symbols, Options{})
		if notify {
			a.Publish(ctx, results)
		}
	}()

	return runID, nil
}

func (a *App) tryAcquire() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return false
	}
	a.running = true
	return true
}

func (a *App) release() {
	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
}

// IsRunning reports whether a run is active.
func (a *App) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

// LatestResults returns the results of the most recent run.
func (a *App) LatestResults() []*analyzer.SignalResult {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastResults
}

// ResultFor returns the latest result for one symbol.
func (a *App) ResultFor(symbol string) (*analyzer.SignalResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	res, ok := a.lastBySym[symbol]
	return res, ok
}

// SourceStates reports data source breaker diagnostics.
func (a *App) SourceStates() []map[string]interface{} {
	return a.fetchers.SourceStates()
}

// ResetSource force-closes one source's circuit breaker.
func (a *App) ResetSource(name string) bool {
	return a.fetchers.ResetBreaker(name)
}

// CacheStats reports cache hit/miss counters.
func (a *App) CacheStats() map[string]interface{} {
	if a.cache == nil {
		return map[string]interface{}{}
	}
	return a.cache.Stats()
}

// Watchlist returns the configured symbols.
func (a *App) Watchlist() []string {
	return a.cfg.StockList
}
