package cache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TTLs per payload kind. Callers pass these to Set so the policy lives in
// one place.
const (
	DailyBarsTTL = time.Hour
	RealtimeTTL  = 5 * time.Minute
	ContextTTL   = 30 * time.Minute
	NameTTL      = 24 * time.Hour
)

const (
	maxDirBytes    = 100 << 20 // file tier size cap
	evictToPercent = 0.8
	fileExt        = ".cache"
)

// Store is a two-tier TTL cache: an in-process map in front of a file
// directory. When a Remote tier is attached and healthy it replaces the
// file tier, with silent fallback while Redis is down.
type Store struct {
	dir    string
	remote *Remote
	logger zerolog.Logger

	mu  sync.RWMutex
	mem map[string]memEntry

	stats struct {
		hits    int64
		misses  int64
		sets    int64
		deletes int64
	}
}

type memEntry struct {
	payload   []byte
	expiresAt time.Time
}

// fileEnvelope is the on-disk format. TTL is persisted so a reader can
// expire entries written by an earlier process.
type fileEnvelope struct {
	Timestamp  int64           `json:"timestamp"`
	TTLSeconds int64           `json:"ttl_seconds"`
	Value      json.RawMessage `json:"value"`
}

// NewStore creates the cache rooted at dir. The directory is created on
// first use; remote may be nil.
func NewStore(dir string, remote *Remote, logger zerolog.Logger) *Store {
	return &Store{
		dir:    dir,
		remote: remote,
		logger: logger.With().Str("component", "Cache").Logger(),
		mem:    make(map[string]memEntry),
	}
}

// Get unmarshals the cached value into dest and reports whether a fresh
// entry was found. A file-tier hit rehydrates the memory tier.
func (s *Store) Get(ctx context.Context, key string, dest interface{}) bool {
	now := time.Now()

	s.mu.RLock()
	e, ok := s.mem[key]
	s.mu.RUnlock()
	if ok {
		if now.Before(e.expiresAt) {
			if json.Unmarshal(e.payload, dest) == nil {
				s.count(&s.stats.hits)
				return true
			}
		}
		s.mu.Lock()
		delete(s.mem, key)
		s.mu.Unlock()
	}

	if payload, ttl, ok := s.secondTierGet(ctx, key); ok {
		if json.Unmarshal(payload, dest) == nil {
			s.mu.Lock()
			s.mem[key] = memEntry{payload: payload, expiresAt: now.Add(ttl)}
			s.mu.Unlock()
			s.count(&s.stats.hits)
			return true
		}
	}

	s.count(&s.stats.misses)
	return false
}

// Set writes the value to both tiers.
func (s *Store) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.mem[key] = memEntry{payload: payload, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	s.count(&s.stats.sets)

	if s.remote.usable() {
		if err := s.remote.set(ctx, key, payload, ttl); err == nil {
			return nil
		}
	}
	return s.fileSet(key, payload, ttl)
}

// Delete removes the key from every tier.
func (s *Store) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.mem, key)
	s.mu.Unlock()
	s.count(&s.stats.deletes)

	if s.remote.usable() {
		s.remote.delete(ctx, key)
	}
	os.Remove(s.filePath(key))
}

// Clear drops all entries from the memory and file tiers.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	s.mem = make(map[string]memEntry)
	s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == fileExt {
			os.Remove(filepath.Join(s.dir, e.Name()))
		}
	}
}

// Stats returns cache counters for the diagnostics endpoint.
func (s *Store) Stats() map[string]interface{} {
	s.mu.RLock()
	hits, misses := s.stats.hits, s.stats.misses
	sets, deletes := s.stats.sets, s.stats.deletes
	memSize := len(s.mem)
	s.mu.RUnlock()

	fileCount := 0
	if entries, err := os.ReadDir(s.dir); err == nil {
		for _, e := range entries {
			if filepath.Ext(e.Name()) == fileExt {
				fileCount++
			}
		}
	}

	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	stats := map[string]interface{}{
		"hits":              hits,
		"misses":            misses,
		"hit_rate":          hitRate,
		"sets":              sets,
		"deletes":           deletes,
		"memory_cache_size": memSize,
		"file_cache_size":   fileCount,
	}
	if s.remote != nil {
		stats["redis_healthy"] = s.remote.Healthy()
	}
	return stats
}

func (s *Store) secondTierGet(ctx context.Context, key string) ([]byte, time.Duration, bool) {
	if s.remote.usable() {
		if payload, ttl, ok := s.remote.get(ctx, key); ok {
			return payload, ttl, true
		}
		return nil, 0, false
	}
	return s.fileGet(key)
}

func (s *Store) fileGet(key string) ([]byte, time.Duration, bool) {
	path := s.filePath(key)
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, false
	}

	var env fileEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		os.Remove(path)
		return nil, 0, false
	}

	expiresAt := time.Unix(env.Timestamp, 0).Add(time.Duration(env.TTLSeconds) * time.Second)
	remaining := time.Until(expiresAt)
	if remaining <= 0 {
		os.Remove(path)
		return nil, 0, false
	}
	return env.Value, remaining, true
}

func (s *Store) fileSet(key string, payload []byte, ttl time.Duration) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	env := fileEnvelope{
		Timestamp:  time.Now().Unix(),
		TTLSeconds: int64(ttl.Seconds()),
		Value:      payload,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.filePath(key), raw, 0644); err != nil {
		return err
	}

	s.evictIfOversized()
	return nil
}

// evictIfOversized trims the file tier to 80% of the cap, oldest mtime
// first.
func (s *Store) evictIfOversized() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return
	}

	type fileInfo struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []fileInfo
	var total int64
	for _, e := range entries {
		if filepath.Ext(e.Name()) != fileExt {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, fileInfo{
			path:    filepath.Join(s.dir, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
		total += info.Size()
	}
	if total <= maxDirBytes {
		return
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })
	target := int64(float64(maxDirBytes) * evictToPercent)
	for _, f := range files {
		if total <= target {
			break
		}
		if os.Remove(f.path) == nil {
			total -= f.size
		}
	}
	s.logger.Debug().Int64("bytes", total).Msg("cache directory trimmed")
}

func (s *Store) filePath(key string) string {
	sum := md5.Sum([]byte(key))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+fileExt)
}

func (s *Store) count(c *int64) {
	s.mu.Lock()
	*c++
	s.mu.Unlock()
}

// Key builders keep cache-key formats in one place.

func DailyBarsKey(symbol string, days int) string {
	return "daily_" + symbol + "_" + strconv.Itoa(days)
}

func RealtimeKey(symbol string) string {
	return "realtime_" + symbol
}

func NameKey(symbol string) string {
	return "name_" + symbol
}
