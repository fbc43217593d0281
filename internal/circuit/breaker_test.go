package circuit

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		FailureThreshold: 2,
		ResetTimeout:     20 * time.Millisecond,
		HalfOpenMaxCalls: 2,
	}
}

func openBreaker(t *testing.T) *Breaker {
	t.Helper()
	b := NewBreaker("eastmoney", testConfig())
	b.RecordFailure()
	b.RecordFailure()
	if b.GetState() != StateOpen {
		t.Fatalf("Breaker should be open after threshold, got %s", b.GetState())
	}
	return b
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b := NewBreaker("eastmoney", testConfig())

	if err := b.Allow(); err != nil {
		t.Fatalf("Closed breaker should allow calls: %v", err)
	}

	b.RecordFailure()
	if b.GetState() != StateClosed {
		t.Error("One failure should not open the breaker")
	}

	b.RecordFailure()
	if b.GetState() != StateOpen {
		t.Errorf("Expected open after threshold failures, got %s", b.GetState())
	}

	err := b.Allow()
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected ErrOpen from open breaker, got %v", err)
	}
	var oe *OpenError
	if !errors.As(err, &oe) {
		t.Fatal("Rejection should carry an *OpenError")
	}
	if oe.Source != "eastmoney" {
		t.Errorf("Expected source eastmoney, got %s", oe.Source)
	}
	if oe.Remaining <= 0 {
		t.Errorf("Expected positive cooldown remaining, got %s", oe.Remaining)
	}
}

func TestBreakerHalfOpenProbeLimit(t *testing.T) {
	b := openBreaker(t)
	time.Sleep(25 * time.Millisecond)

	// Cooldown elapsed, limited probes admitted
	if err := b.Allow(); err != nil {
		t.Fatalf("First probe should be admitted: %v", err)
	}
	if b.GetState() != StateHalfOpen {
		t.Errorf("Expected half_open during probing, got %s", b.GetState())
	}
	if err := b.Allow(); err != nil {
		t.Fatalf("Second probe should be admitted: %v", err)
	}
	if err := b.Allow(); !errors.Is(err, ErrOpen) {
		t.Errorf("Probe beyond the limit should be rejected, got %v", err)
	}
}

func TestBreakerRecoversOnProbeSuccess(t *testing.T) {
	b := openBreaker(t)
	time.Sleep(25 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("Probe should be admitted: %v", err)
	}
	b.RecordSuccess()

	if b.GetState() != StateClosed {
		t.Errorf("Expected closed after probe success, got %s", b.GetState())
	}
	if b.Failures() != 0 {
		t.Errorf("Recovery should reset failures, got %d", b.Failures())
	}
	if err := b.Allow(); err != nil {
		t.Errorf("Recovered breaker should allow calls: %v", err)
	}
}

func TestBreakerReopensOnProbeFailure(t *testing.T) {
	b := openBreaker(t)
	time.Sleep(25 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("Probe should be admitted: %v", err)
	}
	b.RecordFailure()

	if b.GetState() != StateOpen {
		t.Errorf("Expected open after probe failure, got %s", b.GetState())
	}
	var oe *OpenError
	if err := b.Allow(); !errors.As(err, &oe) {
		t.Errorf("Reopened breaker should reject with OpenError, got %v", err)
	}
}

func TestBreakerSuccessDecaysFailures(t *testing.T) {
	b := NewBreaker("tushare", Config{FailureThreshold: 5})

	b.RecordFailure()
	b.RecordFailure()
	if b.Failures() != 2 {
		t.Fatalf("Expected 2 failures, got %d", b.Failures())
	}

	b.RecordSuccess()
	if b.Failures() != 1 {
		t.Errorf("Success should decay the count to 1, got %d", b.Failures())
	}
}

func TestBreakerForceReset(t *testing.T) {
	b := openBreaker(t)

	b.ForceReset()

	if b.GetState() != StateClosed {
		t.Errorf("Expected closed after ForceReset, got %s", b.GetState())
	}
	if b.Failures() != 0 {
		t.Errorf("ForceReset should zero failures, got %d", b.Failures())
	}
	if err := b.Allow(); err != nil {
		t.Errorf("Reset breaker should allow calls: %v", err)
	}
}

func TestBreakerCall(t *testing.T) {
	b := NewBreaker("yahoo", testConfig())
	boom := errors.New("boom")

	if err := b.Call(func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Call should propagate the function error, got %v", err)
	}
	if err := b.Call(func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("Call should propagate the function error, got %v", err)
	}

	// Breaker is open now, the function must not run
	called := false
	err := b.Call(func() error { called = true; return nil })
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Expected ErrOpen, got %v", err)
	}
	if called {
		t.Error("Open breaker should not invoke the function")
	}
}

func TestBreakerStateChangeListener(t *testing.T) {
	b := NewBreaker("eastmoney", testConfig())
	var transitions []string
	b.OnStateChange(func(source string, from, to BreakerState) {
		transitions = append(transitions, fmt.Sprintf("%s:%s->%s", source, from, to))
	})

	b.RecordFailure()
	b.RecordFailure()
	time.Sleep(25 * time.Millisecond)
	if err := b.Allow(); err != nil {
		t.Fatalf("Probe should be admitted: %v", err)
	}
	b.RecordSuccess()

	want := []string{
		"eastmoney:closed->open",
		"eastmoney:open->half_open",
		"eastmoney:half_open->closed",
	}
	if len(transitions) != len(want) {
		t.Fatalf("Expected %d transitions, got %v", len(want), transitions)
	}
	for i, w := range want {
		if transitions[i] != w {
			t.Errorf("Transition %d: expected %s, got %s", i, w, transitions[i])
		}
	}
}

func TestBreakerGetStats(t *testing.T) {
	b := openBreaker(t)

	stats := b.GetStats()
	if stats["state"] != "open" {
		t.Errorf("Expected open in stats, got %v", stats["state"])
	}
	if stats["failures"].(int) < 2 {
		t.Errorf("Expected failure count in stats, got %v", stats["failures"])
	}
	if _, ok := stats["cooldown_remaining"]; !ok {
		t.Error("Open breaker stats should report cooldown_remaining")
	}
}
