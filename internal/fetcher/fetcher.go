package fetcher

import (
	"context"
	"errors"
	"net"
	"os"

	"stock-decision-bot/internal/circuit"
	"stock-decision-bot/internal/market"
)

// Fetch error kinds. Sources wrap these so the retry classifier and the
// manager can route on them without string matching.
var (
	ErrRateLimited       = errors.New("data source rate limited")
	ErrSourceUnavailable = errors.New("data source unavailable")
	ErrNoData            = errors.New("no data returned")
)

// IsRetryable reports whether another attempt against the same source
// could succeed. Circuit rejections and empty results are final for the
// attempt loop; throttling and transport trouble are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, circuit.ErrOpen) || errors.Is(err, ErrNoData) {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrSourceUnavailable) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, os.ErrDeadlineExceeded)
}

// Fetcher is one upstream market-data source.
type Fetcher interface {
	// Name identifies the source in logs, cache rows and breaker stats.
	Name() string
	// Markets lists the markets the source serves ("A股", "港股").
	Markets() []string
	// FetchDaily returns raw daily bars, most recent last not guaranteed;
	// the manager normalizes ordering and validity.
	FetchDaily(ctx context.Context, symbol string, days int) ([]market.Bar, error)
	// FetchRealtime returns a quote snapshot, or ErrNoData when the
	// source has no realtime endpoint for the symbol.
	FetchRealtime(ctx context.Context, symbol string) (*market.Quote, error)
}

func serves(f Fetcher, mkt string) bool {
	for _, m := range f.Markets() {
		if m == mkt {
			return true
		}
	}
	return false
}
