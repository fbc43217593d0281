package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestJitterWaitsWithinBounds(t *testing.T) {
	j := NewJitter(5*time.Millisecond, 20*time.Millisecond)

	start := time.Now()
	if err := j.Wait(context.Background()); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	elapsed := time.Since(start)

	if elapsed < 5*time.Millisecond {
		t.Errorf("Wait returned before the minimum, took %s", elapsed)
	}
	// Generous upper bound for scheduler slop
	if elapsed > 200*time.Millisecond {
		t.Errorf("Wait took far too long: %s", elapsed)
	}
}

func TestJitterDefaultsOnBadBounds(t *testing.T) {
	j := NewJitter(0, 0)
	if j.Min != 2*time.Second || j.Max != 5*time.Second {
		t.Errorf("Expected the default window, got %s..%s", j.Min, j.Max)
	}

	j = NewJitter(5*time.Second, 2*time.Second)
	if j.Min != 2*time.Second || j.Max != 5*time.Second {
		t.Errorf("Inverted bounds should fall back, got %s..%s", j.Min, j.Max)
	}
}

func TestJitterHonorsCancel(t *testing.T) {
	j := NewJitter(time.Minute, 2*time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := j.Wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestBucketAllowsBurstThenThrottles(t *testing.T) {
	// 600 per minute = 10/s, burst 60
	b := NewBucket(600)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for i := 0; i < 10; i++ {
		if err := b.Wait(ctx); err != nil {
			t.Fatalf("Burst call %d should pass: %v", i, err)
		}
	}
}

func TestBucketDefaultsOnBadRate(t *testing.T) {
	b := NewBucket(0)
	if err := b.Wait(context.Background()); err != nil {
		t.Errorf("Default bucket should admit the first call: %v", err)
	}
}

func TestNonePacer(t *testing.T) {
	var p Pacer = None{}
	if err := p.Wait(context.Background()); err != nil {
		t.Errorf("None pacer should never block or fail: %v", err)
	}
}
