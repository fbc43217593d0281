package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"stock-decision-bot/internal/market"
)

const yahooChartURL = "https://query1.finance.yahoo.com/v8/finance/chart/"

// Yahoo is the Hong Kong fallback. Daily candles only; the chart payload
// also carries the long name used by the name resolver.
type Yahoo struct {
	client *http.Client
	logger zerolog.Logger
}

func NewYahoo(logger zerolog.Logger) *Yahoo {
	return &Yahoo{
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "YahooFetcher").Logger(),
	}
}

func (y *Yahoo) Name() string      { return "yahoo" }
func (y *Yahoo) Markets() []string { return []string{market.HKMarket} }

type yahooChartResp struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				LongName           string  `json:"longName"`
				ShortName          string  `json:"shortName"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) FetchDaily(ctx context.Context, symbol string, days int) ([]market.Bar, error) {
	resp, err := y.chart(ctx, symbol, rangeFor(days))
	if err != nil {
		return nil, err
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart for %s: %w", symbol, ErrNoData)
	}
	quote := result.Indicators.Quote[0]

	bars := make([]market.Bar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) || quote.Close[i] == 0 {
			continue
		}
		bars = append(bars, market.Bar{
			Symbol: symbol,
			Date:   time.Unix(ts, 0).UTC().Format("2006-01-02"),
			Open:   at(quote.Open, i),
			High:   at(quote.High, i),
			Low:    at(quote.Low, i),
			Close:  at(quote.Close, i),
			Volume: at(quote.Volume, i),
			Source: "yahoo",
		})
	}
	if len(bars) == 0 {
		return nil, fmt.Errorf("yahoo chart for %s: %w", symbol, ErrNoData)
	}
	return bars, nil
}

func (y *Yahoo) FetchRealtime(ctx context.Context, symbol string) (*market.Quote, error) {
	resp, err := y.chart(ctx, symbol, "1d")
	if err != nil {
		return nil, err
	}

	meta := resp.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("yahoo quote for %s: %w", symbol, ErrNoData)
	}

	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}
	return &market.Quote{
		Symbol:    symbol,
		Name:      name,
		Price:     meta.RegularMarketPrice,
		Source:    "yahoo",
		FetchedAt: time.Now(),
	}, nil
}

func (y *Yahoo) chart(ctx context.Context, symbol, rng string) (*yahooChartResp, error) {
	url := yahooChartURL + market.ToYahoo(symbol) + "?range=" + rng + "&interval=1d"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", browserUA)

	httpResp, err := y.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo request: %w: %v", ErrSourceUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("yahoo status %d: %w", httpResp.StatusCode, ErrRateLimited)
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo status %d: %w", httpResp.StatusCode, ErrSourceUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("yahoo read: %w: %v", ErrSourceUnavailable, err)
	}

	var resp yahooChartResp
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if resp.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo: %s: %w", resp.Chart.Error.Description, ErrSourceUnavailable)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart: %w", ErrNoData)
	}
	return &resp, nil
}

func rangeFor(days int) string {
	switch {
	case days <= 22:
		return "1mo"
	case days <= 66:
		return "3mo"
	case days <= 132:
		return "6mo"
	default:
		return "1y"
	}
}

func at(values []float64, i int) float64 {
	if i < len(values) {
		return values[i]
	}
	return 0
}
