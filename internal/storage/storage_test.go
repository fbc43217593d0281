package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"stock-decision-bot/internal/logging"
	"stock-decision-bot/internal/market"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:", "", logging.Nop())
	if err != nil {
		t.Fatalf("Failed to open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// dayBars builds n consecutive trading days with a clean bull MA stack.
func dayBars(symbol string, n int) []market.Bar {
	bars := make([]market.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		c := 10 + 0.1*float64(i)
		bars[i] = market.Bar{
			Symbol: symbol,
			Date:   base.AddDate(0, 0, i).Format("2006-01-02"),
			Open:   c - 0.05, High: c + 0.1, Low: c - 0.1, Close: c,
			Volume: 1e6,
			MA5:    c - 0.1, MA10: c - 0.2, MA20: c - 0.3,
			RSI: 55, ATR: 0.2, VolumeRatio: 1.0,
			Source: "eastmoney",
		}
	}
	return bars
}

func TestSaveBarsIdempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	bars := dayBars("600519", 3)

	inserted, err := s.SaveBars(ctx, bars)
	if err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}
	if inserted != 3 {
		t.Errorf("Expected 3 inserted, got %d", inserted)
	}

	// Re-saving the same series inserts nothing and keeps the count
	inserted, err = s.SaveBars(ctx, bars)
	if err != nil {
		t.Fatalf("Second SaveBars failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("Expected 0 inserted on re-save, got %d", inserted)
	}

	n, err := s.Count(ctx, "600519")
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected count 3, got %d", n)
	}
}

func TestSaveBarsUpdatesExistingRow(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	bars := dayBars("600519", 1)

	if _, err := s.SaveBars(ctx, bars); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}

	bars[0].Close = 99.9
	if _, err := s.SaveBars(ctx, bars); err != nil {
		t.Fatalf("Re-save failed: %v", err)
	}

	row, err := s.Row(ctx, "600519", bars[0].Date)
	if err != nil {
		t.Fatalf("Row lookup failed: %v", err)
	}
	if row.Close != 99.9 {
		t.Errorf("Expected updated close 99.9, got %f", row.Close)
	}
}

func TestHistoryOrderAndLimit(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.SaveBars(ctx, dayBars("600519", 5)); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}

	bars, err := s.History(ctx, "600519", 3)
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(bars) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(bars))
	}
	// Most recent 3 days, returned ascending
	if bars[0].Date != "2024-01-03" || bars[2].Date != "2024-01-05" {
		t.Errorf("Unexpected window: %s .. %s", bars[0].Date, bars[2].Date)
	}
	if bars[0].Date >= bars[1].Date || bars[1].Date >= bars[2].Date {
		t.Errorf("History not ascending: %v %v %v", bars[0].Date, bars[1].Date, bars[2].Date)
	}
}

func TestLatestDate(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.SaveBars(ctx, dayBars("600519", 4)); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}

	date, err := s.LatestDate(ctx, "600519")
	if err != nil {
		t.Fatalf("LatestDate failed: %v", err)
	}
	if date != "2024-01-04" {
		t.Errorf("Expected 2024-01-04, got %s", date)
	}

	if _, err := s.LatestDate(ctx, "000001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown symbol, got %v", err)
	}
}

func TestRowNotFound(t *testing.T) {
	s := testStore(t)

	if _, err := s.Row(context.Background(), "600519", "2024-01-01"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestAnalysisContext(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.SaveBars(ctx, dayBars("600519", 25)); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}

	ac, err := s.AnalysisContext(ctx, "600519", 60)
	if err != nil {
		t.Fatalf("AnalysisContext failed: %v", err)
	}
	if ac == nil {
		t.Fatal("Expected a context for 25 stored rows")
	}
	if ac.Rows != 25 {
		t.Errorf("Expected 25 rows, got %d", ac.Rows)
	}
	if ac.LatestDate != "2024-01-25" {
		t.Errorf("Expected latest date 2024-01-25, got %s", ac.LatestDate)
	}
	if ac.MAStatus != "多头排列 📈" {
		t.Errorf("Expected bull MA status, got %s", ac.MAStatus)
	}
	if ac.VolumeChangeRatio != 1.0 {
		t.Errorf("Equal volumes should give ratio 1.0, got %f", ac.VolumeChangeRatio)
	}
	if len(ac.Bars) != 25 {
		t.Errorf("Expected the window attached, got %d bars", len(ac.Bars))
	}
}

func TestAnalysisContextTooFewRows(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.SaveBars(ctx, dayBars("600519", 10)); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}

	ac, err := s.AnalysisContext(ctx, "600519", 60)
	if err != nil {
		t.Fatalf("AnalysisContext failed: %v", err)
	}
	if ac != nil {
		t.Errorf("Expected nil context for 10 rows, got %+v", ac)
	}
}

func TestSymbols(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if _, err := s.SaveBars(ctx, dayBars("600519", 2)); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}
	if _, err := s.SaveBars(ctx, dayBars("000001", 2)); err != nil {
		t.Fatalf("SaveBars failed: %v", err)
	}

	symbols, err := s.Symbols(ctx)
	if err != nil {
		t.Fatalf("Symbols failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "000001" || symbols[1] != "600519" {
		t.Errorf("Expected sorted distinct symbols, got %v", symbols)
	}
}

func TestHealthCheck(t *testing.T) {
	s := testStore(t)

	if err := s.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck on an open store failed: %v", err)
	}
}
