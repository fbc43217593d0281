package circuit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// BreakerState represents the circuit breaker state
type BreakerState string

const (
	StateClosed   BreakerState = "closed"    // Normal operation
	StateOpen     BreakerState = "open"      // Source rejected without calling
	StateHalfOpen BreakerState = "half_open" // Testing recovery
)

// ErrOpen is returned when a call is rejected by an open breaker. Callers
// match it with errors.Is and read the cooldown from OpenError.
var ErrOpen = errors.New("circuit breaker open")

// OpenError carries the remaining cooldown of a rejected call.
type OpenError struct {
	Source    string
	Remaining time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s, retry in %s", e.Source, e.Remaining.Round(time.Second))
}

func (e *OpenError) Unwrap() error { return ErrOpen }

// Config holds circuit breaker configuration
type Config struct {
	FailureThreshold int           `json:"failure_threshold"` // consecutive-counted failures before opening
	ResetTimeout     time.Duration `json:"reset_timeout"`     // cooldown before half-open probing
	HalfOpenMaxCalls int           `json:"half_open_max_calls"`
}

// DefaultConfig returns the defaults used for all data sources.
func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		ResetTimeout:     60 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// Breaker guards one data source. Failures accumulate, successes decay the
// count, and an open breaker rejects calls until the cooldown elapses.
type Breaker struct {
	source        string
	config        Config
	state         BreakerState
	failures      int
	halfOpenCalls int
	openedAt      time.Time
	onStateChange func(source string, from, to BreakerState)
	mu            sync.RWMutex
}

// NewBreaker creates a breaker for the named source.
func NewBreaker(source string, config Config) *Breaker {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.ResetTimeout <= 0 {
		config.ResetTimeout = 60 * time.Second
	}
	if config.HalfOpenMaxCalls <= 0 {
		config.HalfOpenMaxCalls = 3
	}
	return &Breaker{
		source: source,
		config: config,
		state:  StateClosed,
	}
}

// OnStateChange registers fn to run after each state transition. The
// breaker invokes fn outside its lock, so fn may call back into the breaker.
func (b *Breaker) OnStateChange(fn func(source string, from, to BreakerState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

// Allow reports whether a call may proceed. In the open state it returns an
// *OpenError until the cooldown elapses, then admits limited half-open probes.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	var notify func()
	var err error

	switch b.state {
	case StateOpen:
		elapsed := time.Since(b.openedAt)
		if elapsed < b.config.ResetTimeout {
			err = &OpenError{Source: b.source, Remaining: b.config.ResetTimeout - elapsed}
			break
		}
		notify = b.transition(StateHalfOpen)
		b.halfOpenCalls = 0
		fallthrough
	case StateHalfOpen:
		if b.halfOpenCalls >= b.config.HalfOpenMaxCalls {
			err = &OpenError{Source: b.source, Remaining: b.config.ResetTimeout}
			break
		}
		b.halfOpenCalls++
	}

	b.mu.Unlock()
	if notify != nil {
		notify()
	}
	return err
}

// RecordSuccess decays the failure count and closes a half-open breaker.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	var notify func()
	if b.state == StateHalfOpen {
		notify = b.transition(StateClosed)
		b.failures = 0
		b.halfOpenCalls = 0
	} else if b.failures > 0 {
		b.failures--
	}
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// RecordFailure counts a failure, opening the breaker at the threshold.
// A half-open failure reopens immediately.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	var notify func()
	if b.state == StateHalfOpen {
		notify = b.trip()
	} else {
		b.failures++
		if b.failures >= b.config.FailureThreshold {
			notify = b.trip()
		}
	}
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// Call wraps fn with the breaker protocol.
func (b *Breaker) Call(fn func() error) error {
	if err := b.Allow(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		b.RecordFailure()
		return err
	}
	b.RecordSuccess()
	return nil
}

func (b *Breaker) trip() func() {
	notify := b.transition(StateOpen)
	b.openedAt = time.Now()
	b.halfOpenCalls = 0
	if b.failures < b.config.FailureThreshold {
		b.failures = b.config.FailureThreshold
	}
	return notify
}

// transition switches the state and returns the listener invocation to run
// once the lock is released, or nil when nothing changed. Callers hold b.mu.
func (b *Breaker) transition(to BreakerState) func() {
	from := b.state
	b.state = to
	if from == to || b.onStateChange == nil {
		return nil
	}
	fn := b.onStateChange
	return func() { fn(b.source, from, to) }
}

// ForceReset manually closes the breaker and zeroes the failure count.
func (b *Breaker) ForceReset() {
	b.mu.Lock()
	notify := b.transition(StateClosed)
	b.failures = 0
	b.halfOpenCalls = 0
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// GetState returns current breaker state
func (b *Breaker) GetState() BreakerState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.state == StateOpen && time.Since(b.openedAt) >= b.config.ResetTimeout {
		return StateHalfOpen
	}
	return b.state
}

// Failures returns the current failure count.
func (b *Breaker) Failures() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.failures
}

// GetStats returns current statistics
func (b *Breaker) GetStats() map[string]interface{} {
	b.mu.RLock()
	defer b.mu.RUnlock()

	stats := map[string]interface{}{
		"source":   b.source,
		"state":    string(b.state),
		"failures": b.failures,
	}
	if b.state == StateOpen {
		stats["opened_at"] = b.openedAt
		remaining := b.config.ResetTimeout - time.Since(b.openedAt)
		if remaining < 0 {
			remaining = 0
		}
		stats["cooldown_remaining"] = remaining.Round(time.Second).String()
	}
	return stats
}
