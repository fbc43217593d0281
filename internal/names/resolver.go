package names

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"stock-decision-bot/internal/market"
)

// persistEvery batches disk writes: the cache file is rewritten after this
// many new names, and on Save.
const persistEvery = 100

// QuoteFunc supplies a realtime quote whose Name field seeds the cache.
// The resolver treats a nil result as a miss.
type QuoteFunc func(ctx context.Context, symbol string) *market.Quote

// Resolver maps stock codes to display names with a memory map backed by
// a JSON file. Lookup order: caller-provided name, memory, live quote,
// placeholder.
type Resolver struct {
	file    string
	quoteFn QuoteFunc
	logger  zerolog.Logger

	mu      sync.RWMutex
	names   map[string]string
	unsaved int
}

// NewResolver loads the cache file if present. quoteFn may be nil for
// offline use.
func NewResolver(file string, quoteFn QuoteFunc, logger zerolog.Logger) *Resolver {
	r := &Resolver{
		file:    file,
		quoteFn: quoteFn,
		logger:  logger.With().Str("component", "NameResolver").Logger(),
		names:   make(map[string]string),
	}
	r.load()
	return r
}

var (
	defaultResolver *Resolver
	defaultOnce     sync.Once
)

// Default returns the process-wide resolver rooted at ./data. Components
// that want isolation construct their own with NewResolver.
func Default(quoteFn QuoteFunc, logger zerolog.Logger) *Resolver {
	defaultOnce.Do(func() {
		defaultResolver = NewResolver(filepath.Join("data", "stock_names.json"), quoteFn, logger)
	})
	return defaultResolver
}

// Resolve returns the display name for symbol. realtimeName, when the
// caller already has one from a quote, wins and is learned; the
// placeholder 股票{code} is returned on a full miss and never cached.
func (r *Resolver) Resolve(ctx context.Context, symbol, realtimeName string) string {
	if realtimeName != "" && !strings.HasPrefix(realtimeName, "股票") {
		r.learn(symbol, realtimeName)
		return realtimeName
	}

	r.mu.RLock()
	name, ok := r.names[symbol]
	r.mu.RUnlock()
	if ok && name != "" {
		return name
	}

	if r.quoteFn != nil {
		if quote := r.quoteFn(ctx, symbol); quote != nil && quote.Name != "" {
			r.learn(symbol, quote.Name)
			return quote.Name
		}
	}

	return "股票" + symbol
}

// Preload merges a bulk code → name directory (tushare stock_basic) and
// persists immediately.
func (r *Resolver) Preload(directory map[string]string) int {
	if len(directory) == 0 {
		return 0
	}

	r.mu.Lock()
	added := 0
	for code, name := range directory {
		if name == "" {
			continue
		}
		if _, ok := r.names[code]; !ok {
			added++
		}
		r.names[code] = name
	}
	r.mu.Unlock()

	if added > 0 {
		r.Save()
		r.logger.Info().Int("added", added).Msg("name directory preloaded")
	}
	return added
}

// Save writes the cache file unconditionally.
func (r *Resolver) Save() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saveLocked()
}

// Stats reports cache size and file presence.
func (r *Resolver) Stats() map[string]interface{} {
	r.mu.RLock()
	count := len(r.names)
	r.mu.RUnlock()

	_, err := os.Stat(r.file)
	return map[string]interface{}{
		"cached_count":      count,
		"cache_file_exists": err == nil,
	}
}

func (r *Resolver) learn(symbol, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.names[symbol] == name {
		return
	}
	r.names[symbol] = name
	r.unsaved++
	if r.unsaved >= persistEvery {
		r.saveLocked()
	}
}

func (r *Resolver) load() {
	raw, err := os.ReadFile(r.file)
	if err != nil {
		return
	}
	var names map[string]string
	if err := json.Unmarshal(raw, &names); err != nil {
		r.logger.Warn().Err(err).Str("file", r.file).Msg("name cache unreadable, starting empty")
		return
	}
	r.names = names
}

func (r *Resolver) saveLocked() {
	if dir := filepath.Dir(r.file); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			r.logger.Warn().Err(err).Msg("name cache directory not writable")
			return
		}
	}
	raw, err := json.MarshalIndent(r.names, "", "  ")
	if err != nil {
		return
	}
	if err := os.WriteFile(r.file, raw, 0644); err != nil {
		r.logger.Warn().Err(err).Str("file", r.file).Msg("name cache write failed")
		return
	}
	r.unsaved = 0
}
