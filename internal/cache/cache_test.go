package cache

import (
	"context"
	"testing"
	"time"

	"stock-decision-bot/internal/logging"
)

type quotePayload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestStoreSetGet(t *testing.T) {
	s := NewStore(t.TempDir(), nil, logging.Nop())
	ctx := context.Background()

	in := quotePayload{Symbol: "600519", Price: 1680.5}
	if err := s.Set(ctx, RealtimeKey("600519"), in, RealtimeTTL); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	var out quotePayload
	if !s.Get(ctx, RealtimeKey("600519"), &out) {
		t.Fatal("Expected a cache hit")
	}
	if out != in {
		t.Errorf("Expected %+v, got %+v", in, out)
	}
}

func TestStoreMiss(t *testing.T) {
	s := NewStore(t.TempDir(), nil, logging.Nop())

	var out quotePayload
	if s.Get(context.Background(), RealtimeKey("600519"), &out) {
		t.Error("Expected a miss on an empty cache")
	}
}

func TestStoreFileTierSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first := NewStore(dir, nil, logging.Nop())
	in := quotePayload{Symbol: "00700", Price: 391.2}
	if err := first.Set(ctx, RealtimeKey("00700"), in, time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// A fresh store on the same directory reads the file tier
	second := NewStore(dir, nil, logging.Nop())
	var out quotePayload
	if !second.Get(ctx, RealtimeKey("00700"), &out) {
		t.Fatal("Expected a file-tier hit after restart")
	}
	if out != in {
		t.Errorf("Expected %+v, got %+v", in, out)
	}
}

func TestStoreTTLExpiry(t *testing.T) {
	s := NewStore(t.TempDir(), nil, logging.Nop())
	ctx := context.Background()

	if err := s.Set(ctx, "short", quotePayload{Symbol: "x"}, 10*time.Millisecond); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	var out quotePayload
	if s.Get(ctx, "short", &out) {
		t.Error("Expected expired entry to miss")
	}
}

func TestStoreDelete(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := NewStore(dir, nil, logging.Nop())

	if err := s.Set(ctx, "k", quotePayload{Symbol: "600519"}, time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.Delete(ctx, "k")

	var out quotePayload
	if s.Get(ctx, "k", &out) {
		t.Error("Expected a miss after Delete")
	}
	// The file tier copy goes with it
	if NewStore(dir, nil, logging.Nop()).Get(ctx, "k", &out) {
		t.Error("Delete should remove the file tier entry too")
	}
}

func TestStoreClear(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s := NewStore(dir, nil, logging.Nop())

	for _, key := range []string{"a", "b", "c"} {
		if err := s.Set(ctx, key, quotePayload{Symbol: key}, time.Hour); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}
	s.Clear(ctx)

	var out quotePayload
	for _, key := range []string{"a", "b", "c"} {
		if s.Get(ctx, key, &out) {
			t.Errorf("Expected %s cleared", key)
		}
	}
	stats := s.Stats()
	if stats["file_cache_size"].(int) != 0 {
		t.Errorf("Expected empty file tier, got %v", stats["file_cache_size"])
	}
}

func TestStoreStats(t *testing.T) {
	s := NewStore(t.TempDir(), nil, logging.Nop())
	ctx := context.Background()

	var out quotePayload
	s.Get(ctx, "missing", &out)
	if err := s.Set(ctx, "k", quotePayload{Symbol: "600519"}, time.Hour); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	s.Get(ctx, "k", &out)

	stats := s.Stats()
	if stats["hits"].(int64) != 1 {
		t.Errorf("Expected 1 hit, got %v", stats["hits"])
	}
	if stats["misses"].(int64) != 1 {
		t.Errorf("Expected 1 miss, got %v", stats["misses"])
	}
	if stats["sets"].(int64) != 1 {
		t.Errorf("Expected 1 set, got %v", stats["sets"])
	}
	if stats["hit_rate"].(float64) != 0.5 {
		t.Errorf("Expected hit rate 0.5, got %v", stats["hit_rate"])
	}
	if stats["memory_cache_size"].(int) != 1 {
		t.Errorf("Expected 1 memory entry, got %v", stats["memory_cache_size"])
	}
}

func TestKeyBuilders(t *testing.T) {
	if got := DailyBarsKey("600519", 250); got != "daily_600519_250" {
		t.Errorf("Unexpected daily key: %s", got)
	}
	if got := RealtimeKey("00700"); got != "realtime_00700" {
		t.Errorf("Unexpected realtime key: %s", got)
	}
	if got := NameKey("600519"); got != "name_600519" {
		t.Errorf("Unexpected name key: %s", got)
	}
}
