package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"stock-decision-bot/internal/market"
	"stock-decision-bot/internal/ratelimit"
)

const tushareURL = "https://api.tushare.pro"

// Tushare is the authenticated A-share source. The account quota is
// 80 calls per minute, enforced by a token-bucket pacer.
type Tushare struct {
	token  string
	client *http.Client
	pacer  ratelimit.Pacer
	logger zerolog.Logger
}

func NewTushare(token string, pacer ratelimit.Pacer, logger zerolog.Logger) *Tushare {
	if pacer == nil {
		pacer = ratelimit.NewBucket(80)
	}
	return &Tushare{
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
		pacer:  pacer,
		logger: logger.With().Str("component", "TushareFetcher").Logger(),
	}
}

func (t *Tushare) Name() string      { return "tushare" }
func (t *Tushare) Markets() []string { return []string{market.AShare} }

// Enabled reports whether a token is configured. The manager skips the
// source entirely when it is not.
func (t *Tushare) Enabled() bool { return t.token != "" }

type tushareRequest struct {
	APIName string                 `json:"api_name"`
	Token   string                 `json:"token"`
	Params  map[string]interface{} `json:"params"`
	Fields  string                 `json:"fields,omitempty"`
}

type tushareResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data *struct {
		Fields []string        `json:"fields"`
		Items  [][]interface{} `json:"items"`
	} `json:"data"`
}

func (t *Tushare) FetchDaily(ctx context.Context, symbol string, days int) ([]market.Bar, error) {
	if !t.Enabled() {
		return nil, fmt.Errorf("tushare token not configured: %w", ErrSourceUnavailable)
	}
	if err := t.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	end := time.Now()
	start := end.AddDate(0, 0, -days*2)
	resp, err := t.call(ctx, tushareRequest{
		APIName: "daily",
		Token:   t.token,
		Params: map[string]interface{}{
			"ts_code":    market.ToTushare(symbol),
			"start_date": start.Format("20060102"),
			"end_date":   end.Format("20060102"),
		},
		Fields: "ts_code,trade_date,open,high,low,close,vol,amount,pct_chg",
	})
	if err != nil {
		return nil, err
	}
	if resp.Data == nil || len(resp.Data.Items) == 0 {
		return nil, fmt.Errorf("tushare daily for %s: %w", symbol, ErrNoData)
	}

	idx := newColumnIndex(resp.Data.Fields)
	bars := make([]market.Bar, 0, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		b, ok := parseTushareRow(symbol, idx, item)
		if !ok {
			continue
		}
		bars = append(bars, b)
	}
	return bars, nil
}

// FetchRealtime is not part of the subscribed tushare tier.
func (t *Tushare) FetchRealtime(ctx context.Context, symbol string) (*market.Quote, error) {
	return nil, fmt.Errorf("tushare realtime for %s: %w", symbol, ErrNoData)
}

// StockBasic returns code → name for the whole A-share directory. Used by
// the name resolver's bulk preload.
func (t *Tushare) StockBasic(ctx context.Context) (map[string]string, error) {
	if !t.Enabled() {
		return nil, fmt.Errorf("tushare token not configured: %w", ErrSourceUnavailable)
	}
	if err := t.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	resp, err := t.call(ctx, tushareRequest{
		APIName: "stock_basic",
		Token:   t.token,
		Params:  map[string]interface{}{"list_status": "L"},
		Fields:  "ts_code,symbol,name",
	})
	if err != nil {
		return nil, err
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("tushare stock_basic: %w", ErrNoData)
	}

	idx := newColumnIndex(resp.Data.Fields)
	names := make(map[string]string, len(resp.Data.Items))
	for _, item := range resp.Data.Items {
		code := stringAt(item, idx.of("symbol"))
		name := stringAt(item, idx.of("name"))
		if code != "" && name != "" {
			names[code] = name
		}
	}
	return names, nil
}

func (t *Tushare) call(ctx context.Context, reqBody tushareRequest) (*tushareResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tushareURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tushare request: %w: %v", ErrSourceUnavailable, err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tushare status %d: %w", httpResp.StatusCode, ErrSourceUnavailable)
	}

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("tushare read: %w: %v", ErrSourceUnavailable, err)
	}

	var resp tushareResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("tushare decode: %w", err)
	}
	if resp.Code != 0 {
		if strings.Contains(resp.Msg, "每分钟") || strings.Contains(resp.Msg, "最多访问") {
			return nil, fmt.Errorf("tushare: %s: %w", resp.Msg, ErrRateLimited)
		}
		return nil, fmt.Errorf("tushare: code %d %s: %w", resp.Code, resp.Msg, ErrSourceUnavailable)
	}
	return &resp, nil
}

func parseTushareRow(symbol string, idx columnIndex, item []interface{}) (market.Bar, bool) {
	date := stringAt(item, idx.of("trade_date"))
	if len(date) == 8 {
		date = date[:4] + "-" + date[4:6] + "-" + date[6:]
	}
	if date == "" {
		return market.Bar{}, false
	}

	return market.Bar{
		Symbol: symbol,
		Date:   date,
		Open:   floatAt(item, idx.of("open")),
		High:   floatAt(item, idx.of("high")),
		Low:    floatAt(item, idx.of("low")),
		Close:  floatAt(item, idx.of("close")),
		Volume: floatAt(item, idx.of("vol")),
		Amount: floatAt(item, idx.of("amount")),
		PctChg: floatAt(item, idx.of("pct_chg")),
		Source: "tushare",
	}, true
}

// columnIndex maps tushare's parallel fields/items arrays by name.
// Missing columns resolve to -1 so value lookups return zero values.
type columnIndex map[string]int

func newColumnIndex(fields []string) columnIndex {
	idx := make(columnIndex, len(fields))
	for i, f := range fields {
		idx[f] = i
	}
	return idx
}

func (c columnIndex) of(name string) int {
	if i, ok := c[name]; ok {
		return i
	}
	return -1
}

func stringAt(item []interface{}, i int) string {
	if i < 0 || i >= len(item) {
		return ""
	}
	s, _ := item[i].(string)
	return s
}

func floatAt(item []interface{}, i int) float64 {
	if i < 0 || i >= len(item) {
		return 0
	}
	switch v := item[i].(type) {
	case float64:
		return v
	case string:
		f, _ := strconv.ParseFloat(v, 64)
		return f
	case json.Number:
		f, _ := v.Float64()
		return f
	}
	return 0
}
