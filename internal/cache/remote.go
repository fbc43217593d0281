package cache

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const remoteMaxFailures = 3

// Remote is the optional Redis tier. It degrades gracefully: after three
// consecutive failures it is marked unhealthy and the Store falls back to
// the file tier until a background ping succeeds again.
type Remote struct {
	client *redis.Client
	logger zerolog.Logger

	mu           sync.RWMutex
	healthy      bool
	failureCount int
}

// NewRemote connects to Redis at addr. Returns nil when addr is empty so
// callers can pass the result straight to NewStore.
func NewRemote(addr, password string, db int, logger zerolog.Logger) *Remote {
	if addr == "" {
		return nil
	}

	r := &Remote{
		client: redis.NewClient(&redis.Options{
			Addr:         addr,
			Password:     password,
			DB:           db,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		}),
		logger:  logger.With().Str("component", "RedisCache").Logger(),
		healthy: true,
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.client.Ping(ctx).Err(); err != nil {
		r.logger.Warn().Err(err).Msg("redis unavailable, file tier stays active")
		r.setHealthy(false)
	}

	go r.checkHealth()
	return r
}

// Healthy reports whether the Redis tier is currently usable.
func (r *Remote) Healthy() bool {
	if r == nil {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.healthy
}

func (r *Remote) usable() bool { return r.Healthy() }

func (r *Remote) get(ctx context.Context, key string) ([]byte, time.Duration, bool) {
	pipe := r.client.Pipeline()
	getCmd := pipe.Get(ctx, key)
	ttlCmd := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		if err != redis.Nil {
			r.recordFailure(err)
		}
		return nil, 0, false
	}
	r.recordSuccess()

	ttl := ttlCmd.Val()
	if ttl <= 0 {
		ttl = time.Minute
	}
	return []byte(getCmd.Val()), ttl, true
}

func (r *Remote) set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		r.recordFailure(err)
		return err
	}
	r.recordSuccess()
	return nil
}

func (r *Remote) delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		r.recordFailure(err)
		return
	}
	r.recordSuccess()
}

func (r *Remote) recordFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.failureCount++
	if r.failureCount >= remoteMaxFailures && r.healthy {
		r.healthy = false
		r.logger.Warn().Err(err).Int("failures", r.failureCount).
			Msg("redis marked unhealthy, falling back to file cache")
	}
}

func (r *Remote) recordSuccess() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.healthy {
		r.logger.Info().Msg("redis connection recovered")
	}
	r.healthy = true
	r.failureCount = 0
}

// checkHealth pings Redis every 30 seconds so an unhealthy tier can
// recover without traffic.
func (r *Remote) checkHealth() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := r.client.Ping(ctx).Err()
		cancel()
		if err != nil {
			r.recordFailure(err)
		} else {
			r.recordSuccess()
		}
	}
}

func (r *Remote) setHealthy(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.healthy = v
}
