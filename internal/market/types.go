package market

import "time"

// Bar is one daily OHLCV row plus the indicator columns computed after
// normalization. Indicator fields are zero until Enrich fills them.
type Bar struct {
	Symbol string  `json:"symbol"`
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
	Amount float64 `json:"amount,omitempty"`
	PctChg float64 `json:"pct_chg,omitempty"`
	Source string  `json:"source,omitempty"`

	MA5         float64 `json:"ma5,omitempty"`
	MA10        float64 `json:"ma10,omitempty"`
	MA20        float64 `json:"ma20,omitempty"`
	VolumeRatio float64 `json:"volume_ratio,omitempty"`
	MACD        float64 `json:"macd,omitempty"`
	MACDSignal  float64 `json:"macd_signal,omitempty"`
	MACDHist    float64 `json:"macd_hist,omitempty"`
	RSI         float64 `json:"rsi,omitempty"`
	ATR         float64 `json:"atr,omitempty"`
}

// Valid reports whether the row satisfies the OHLC ordering invariant.
// Rows failing it are dropped during normalization.
func (b Bar) Valid() bool {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return false
	}
	if b.Volume < 0 {
		return false
	}
	lo, hi := b.Open, b.Close
	if lo > hi {
		lo, hi = hi, lo
	}
	return b.Low <= lo && hi <= b.High
}

// Quote is a realtime snapshot. Not every source provides one.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Name      string    `json:"name,omitempty"`
	Price     float64   `json:"price"`
	PctChg    float64   `json:"pct_chg"`
	Volume    float64   `json:"volume,omitempty"`
	Source    string    `json:"source,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// TrendStatus classifies the MA alignment of a series.
type TrendStatus string

const (
	StrongBull    TrendStatus = "强势多头"
	Bull          TrendStatus = "多头排列"
	WeakBull      TrendStatus = "弱势多头"
	Consolidation TrendStatus = "盘整"
	WeakBear      TrendStatus = "弱势空头"
	Bear          TrendStatus = "空头排列"
	StrongBear    TrendStatus = "强势空头"
)

// IsBullish reports whether the status passes the hard trend gate.
func (t TrendStatus) IsBullish() bool {
	return t == StrongBull || t == Bull
}

// BuySignal is the final recommendation of the decision engine.
type BuySignal string

const (
	StrongBuy  BuySignal = "强烈买入"
	Buy        BuySignal = "买入"
	Hold       BuySignal = "持有"
	Wait       BuySignal = "观望"
	Sell       BuySignal = "卖出"
	StrongSell BuySignal = "强烈卖出"
)

// VolumeStatus classifies the latest bar's volume against its 5-day mean.
type VolumeStatus string

const (
	HeavyVolumeUp    VolumeStatus = "放量上涨"
	HeavyVolumeDown  VolumeStatus = "放量下跌"
	ShrinkVolumeUp   VolumeStatus = "缩量上涨"
	ShrinkVolumeDown VolumeStatus = "缩量回调"
	NormalVolume     VolumeStatus = "量能正常"
)
