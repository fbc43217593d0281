package fetcher

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"stock-decision-bot/internal/cache"
	"stock-decision-bot/internal/circuit"
	"stock-decision-bot/internal/market"
	"stock-decision-bot/internal/retry"
)

// Manager runs the priority failover across data sources. Each source is
// guarded by its own circuit breaker and retry schedule; an open breaker
// skips the source instantly. A fresh cache entry bypasses sources
// entirely.
type Manager struct {
	sources  []Fetcher
	breakers map[string]*circuit.Breaker
	store    *cache.Store
	retry    retry.Options
	logger   zerolog.Logger
}

// NewManager wires the sources in priority order.
func NewManager(sources []Fetcher, store *cache.Store, retryOpts retry.Options, logger zerolog.Logger) *Manager {
	if retryOpts.MaxAttempts == 0 {
		retryOpts = retry.DefaultOptions()
	}
	retryOpts.Retryable = IsRetryable

	breakers := make(map[string]*circuit.Breaker, len(sources))
	for _, s := range sources {
		breakers[s.Name()] = circuit.NewBreaker(s.Name(), circuit.DefaultConfig())
	}
	return &Manager{
		sources:  sources,
		breakers: breakers,
		store:    store,
		retry:    retryOpts,
		logger:   logger.With().Str("component", "FetchManager").Logger(),
	}
}

// DailyBars returns the normalized, indicator-enriched series for symbol.
// All sources exhausted means an empty result, not an error: the decision
// layer treats missing data as a degraded WAIT, never a crash.
func (m *Manager) DailyBars(ctx context.Context, symbol string, days int) []market.Bar {
	key := cache.DailyBarsKey(symbol, days)
	if m.store != nil {
		var cached []market.Bar
		if m.store.Get(ctx, key, &cached) && len(cached) > 0 {
			return cached
		}
	}

	mkt := market.Detect(symbol)
	for _, src := range m.sources {
		if !serves(src, mkt) {
			continue
		}
		bars, err := m.fetchFrom(ctx, src, symbol, days)
		if err != nil {
			m.logger.Warn().Err(err).Str("symbol", symbol).Str("source", src.Name()).
				Msg("source failed, trying next")
			continue
		}

		normalized := Normalize(bars, m.logger)
		if len(normalized) == 0 {
			m.logger.Warn().Str("symbol", symbol).Str("source", src.Name()).
				Msg("source returned no usable rows, trying next")
			continue
		}

		if m.store != nil {
			if err := m.store.Set(ctx, key, normalized, cache.DailyBarsTTL); err != nil {
				m.logger.Debug().Err(err).Str("symbol", symbol).Msg("cache write failed")
			}
		}
		return normalized
	}

	m.logger.Error().Str("symbol", symbol).Int("days", days).Msg("all data sources exhausted")
	return nil
}

// Realtime returns a quote snapshot or nil when no source can provide one.
func (m *Manager) Realtime(ctx context.Context, symbol string) *market.Quote {
	key := cache.RealtimeKey(symbol)
	if m.store != nil {
		var cached market.Quote
		if m.store.Get(ctx, key, &cached) && cached.Price > 0 {
			return &cached
		}
	}

	mkt := market.Detect(symbol)
	for _, src := range m.sources {
		if !serves(src, mkt) {
			continue
		}

		br := m.breakers[src.Name()]
		if err := br.Allow(); err != nil {
			continue
		}
		quote, err := src.FetchRealtime(ctx, symbol)
		if err != nil {
			if !errors.Is(err, ErrNoData) {
				br.RecordFailure()
			}
			continue
		}
		br.RecordSuccess()

		if m.store != nil {
			m.store.Set(ctx, key, quote, cache.RealtimeTTL)
		}
		return quote
	}
	return nil
}

func (m *Manager) fetchFrom(ctx context.Context, src Fetcher, symbol string, days int) ([]market.Bar, error) {
	br := m.breakers[src.Name()]
	if err := br.Allow(); err != nil {
		return nil, err
	}

	var bars []market.Bar
	start := time.Now()
	err := retry.Do(ctx, func() error {
		var fetchErr error
		bars, fetchErr = src.FetchDaily(ctx, symbol, days)
		return fetchErr
	}, m.retry)
	if err != nil {
		br.RecordFailure()
		return nil, err
	}
	br.RecordSuccess()

	m.logger.Debug().Str("symbol", symbol).Str("source", src.Name()).
		Int("rows", len(bars)).Dur("took", time.Since(start)).Msg("daily bars fetched")
	return bars, nil
}

// OnBreakerStateChange installs fn on every source breaker. The fetch path
// fires it whenever a breaker opens, probes, or closes.
func (m *Manager) OnBreakerStateChange(fn func(source string, from, to circuit.BreakerState)) {
	for _, br := range m.breakers {
		br.OnStateChange(fn)
	}
}

// SourceStates reports per-source breaker diagnostics for the dashboard.
func (m *Manager) SourceStates() []map[string]interface{} {
	states := make([]map[string]interface{}, 0, len(m.sources))
	for _, src := range m.sources {
		stats := m.breakers[src.Name()].GetStats()
		stats["markets"] = src.Markets()
		states = append(states, stats)
	}
	return states
}

// ResetBreaker force-closes one source's breaker.
func (m *Manager) ResetBreaker(source string) bool {
	br, ok := m.breakers[source]
	if ok {
		br.ForceReset()
	}
	return ok
}
