package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer throttles outbound calls to a data source. Wait blocks until the
// next call may proceed or the context is cancelled.
type Pacer interface {
	Wait(ctx context.Context) error
}

// Jitter sleeps a uniform random duration in [Min, Max] before every call.
// Public market endpoints without a documented quota get this pacer so the
// request pattern does not look mechanical.
type Jitter struct {
	Min time.Duration
	Max time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewJitter creates a jitter pacer. Zero or inverted bounds fall back to
// the 2s..5s default window.
func NewJitter(min, max time.Duration) *Jitter {
	if min <= 0 || max <= 0 || max < min {
		min, max = 2*time.Second, 5*time.Second
	}
	return &Jitter{
		Min: min,
		Max: max,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (j *Jitter) Wait(ctx context.Context) error {
	j.mu.Lock()
	d := j.Min + time.Duration(j.rnd.Int63n(int64(j.Max-j.Min)+1))
	j.mu.Unlock()

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Bucket is a token-bucket pacer for quota-metered APIs.
type Bucket struct {
	limiter *rate.Limiter
}

// NewBucket allows perMinute calls per minute with a small burst so a cold
// start does not immediately stall.
func NewBucket(perMinute int) *Bucket {
	if perMinute <= 0 {
		perMinute = 60
	}
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	return &Bucket{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
	}
}

func (b *Bucket) Wait(ctx context.Context) error {
	return b.limiter.Wait(ctx)
}

// None is a pass-through pacer for tests and cached paths.
type None struct{}

func (None) Wait(context.Context) error { return nil }
