package analyzer

import (
	"time"

	"stock-decision-bot/internal/market"
)

// SignalResult is the complete output of one decision run. JSON keys are the
// wire contract consumed by the web dashboard and the report formatter, so
// they stay stable even where the Go names differ.
type SignalResult struct {
	Symbol string `json:"code"`
	Market string `json:"market_type"`
	Name   string `json:"name,omitempty"`

	TrendStatus  market.TrendStatus `json:"trend_status"`
	MAAlignment  string             `json:"ma_alignment"`
	CurrentPrice float64            `json:"current_price"`
	MA5          float64            `json:"ma5"`
	MA10         float64            `json:"ma10"`
	MA20         float64            `json:"ma20"`
	MA60         float64            `json:"ma60"`
	BiasMA5      float64            `json:"bias_ma5"`
	BiasMA10     float64            `json:"bias_ma10"`
	BiasMA20     float64            `json:"bias_ma20"`

	VolumeStatus  market.VolumeStatus `json:"volume_status"`
	VolumeRatio5D float64             `json:"volume_ratio_5d"`
	VolumeTrend   string              `json:"volume_trend"`

	SupportMA5       bool      `json:"support_ma5"`
	SupportMA10      bool      `json:"support_ma10"`
	SupportLevels    []float64 `json:"support_levels,omitempty"`
	ResistanceLevels []float64 `json:"resistance_levels,omitempty"`

	MACD            float64 `json:"macd"`
	MACDSignal      float64 `json:"macd_signal"`
	MACDHist        float64 `json:"macd_hist"`
	MACDGoldenCross bool    `json:"macd_golden_cross"`
	MACDDeadCross   bool    `json:"macd_dead_cross"`
	RSI             float64 `json:"rsi"`
	ATR             float64 `json:"atr"`
	ATRPct          float64 `json:"atr_pct"`
	BollUpper       float64 `json:"boll_upper"`
	BollMiddle      float64 `json:"boll_middle"`
	BollLower       float64 `json:"boll_lower"`

	Signal  market.BuySignal `json:"buy_signal"`
	Score   int              `json:"signal_score"`
	Reasons []string         `json:"signal_reasons"`
	Risks   []string         `json:"risk_factors"`

	SentimentChecked bool     `json:"sentiment_check"`
	SentimentResult  string   `json:"sentiment_result,omitempty"`
	SentimentScore   int      `json:"sentiment_score"`
	SentimentReasons []string `json:"sentiment_reasons,omitempty"`

	AnalyzedAt time.Time `json:"analyzed_at"`
}
