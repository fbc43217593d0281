package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stock-decision-bot/internal/market"
	"stock-decision-bot/internal/ratelimit"
)

const (
	eastmoneyKlineURL = "https://push2his.eastmoney.com/api/qt/stock/kline/get"
	eastmoneyQuoteURL = "https://push2.eastmoney.com/api/qt/stock/get"
)

// Eastmoney serves both markets without authentication. A jitter pacer
// keeps the request pattern irregular.
type Eastmoney struct {
	client *http.Client
	pacer  ratelimit.Pacer
	logger zerolog.Logger
}

func NewEastmoney(pacer ratelimit.Pacer, logger zerolog.Logger) *Eastmoney {
	if pacer == nil {
		pacer = ratelimit.NewJitter(0, 0)
	}
	return &Eastmoney{
		client: &http.Client{Timeout: 10 * time.Second},
		pacer:  pacer,
		logger: logger.With().Str("component", "EastmoneyFetcher").Logger(),
	}
}

func (e *Eastmoney) Name() string      { return "eastmoney" }
func (e *Eastmoney) Markets() []string { return []string{market.AShare, market.HKMarket} }

type eastmoneyKlineResp struct {
	Data *struct {
		Code   string   `json:"code"`
		Name   string   `json:"name"`
		Klines []string `json:"klines"`
	} `json:"data"`
}

func (e *Eastmoney) FetchDaily(ctx context.Context, symbol string, days int) ([]market.Bar, error) {
	if err := e.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	beg := time.Now().AddDate(0, 0, -days*2).Format("20060102")
	q := url.Values{
		"secid":   {market.EastmoneySecID(symbol)},
		"klt":     {"101"}, // daily
		"fqt":     {"1"},   // forward adjusted
		"beg":     {beg},
		"end":     {"20500101"},
		"fields1": {"f1,f2,f3,f4,f5,f6"},
		"fields2": {"f51,f52,f53,f54,f55,f56,f57,f58,f59,f60,f61"},
	}

	var resp eastmoneyKlineResp
	if err := e.getJSON(ctx, eastmoneyKlineURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.Klines) == 0 {
		return nil, fmt.Errorf("eastmoney kline for %s: %w", symbol, ErrNoData)
	}

	bars := make([]market.Bar, 0, len(resp.Data.Klines))
	for _, line := range resp.Data.Klines {
		b, ok := parseEastmoneyKline(symbol, line)
		if !ok {
			continue
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// parseEastmoneyKline splits one comma-joined row:
// date,open,close,high,low,volume,amount,amplitude,pct_chg,change,turnover.
func parseEastmoneyKline(symbol, line string) (market.Bar, bool) {
	parts := strings.Split(line, ",")
	if len(parts) < 7 {
		return market.Bar{}, false
	}

	f := func(i int) float64 {
		v, _ := strconv.ParseFloat(parts[i], 64)
		return v
	}
	b := market.Bar{
		Symbol: symbol,
		Date:   parts[0],
		Open:   f(1),
		Close:  f(2),
		High:   f(3),
		Low:    f(4),
		Volume: f(5),
		Amount: f(6),
		Source: "eastmoney",
	}
	if len(parts) > 8 {
		b.PctChg = f(8)
	}
	return b, true
}

type eastmoneyQuoteResp struct {
	Data *struct {
		Price  float64 `json:"f43"`
		Name   string  `json:"f58"`
		PctChg float64 `json:"f170"`
		Volume float64 `json:"f47"`
	} `json:"data"`
}

func (e *Eastmoney) FetchRealtime(ctx context.Context, symbol string) (*market.Quote, error) {
	if err := e.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	q := url.Values{
		"secid":  {market.EastmoneySecID(symbol)},
		"fltt":   {"2"},
		"invt":   {"2"},
		"fields": {"f43,f47,f57,f58,f169,f170"},
	}

	var resp eastmoneyQuoteResp
	if err := e.getJSON(ctx, eastmoneyQuoteURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Data == nil || resp.Data.Price <= 0 {
		return nil, fmt.Errorf("eastmoney quote for %s: %w", symbol, ErrNoData)
	}

	return &market.Quote{
		Symbol:    symbol,
		Name:      resp.Data.Name,
		Price:     resp.Data.Price,
		PctChg:    resp.Data.PctChg,
		Volume:    resp.Data.Volume,
		Source:    "eastmoney",
		FetchedAt: time.Now(),
	}, nil
}

func (e *Eastmoney) getJSON(ctx context.Context, rawURL string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Referer", "https://quote.eastmoney.com/")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("eastmoney request: %w: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("eastmoney status %d: %w", resp.StatusCode, ErrRateLimited)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("eastmoney status %d: %w", resp.StatusCode, ErrSourceUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("eastmoney read: %w: %v", ErrSourceUnavailable, err)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("eastmoney decode: %w", err)
	}
	return nil
}

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
