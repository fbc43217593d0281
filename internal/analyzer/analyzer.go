package analyzer

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"stock-decision-bot/internal/indicators"
	"stock-decision-bot/internal/market"
)

// Engine scores a daily series through four gates: trend alignment, MA5
// bias, auxiliary indicator confirmation and news sentiment. The first two
// are hard filters that short-circuit with WAIT; the last two only add
// points or risk notes, never subtract.
type Engine struct {
	logger zerolog.Logger
}

func NewEngine(logger zerolog.Logger) *Engine {
	return &Engine{
		logger: logger.With().Str("component", "analyzer").Logger(),
	}
}

// Analyze runs the four-layer decision over an enriched series. The series
// must be ascending by date with indicator columns filled. newsContext is
// optional; when empty the sentiment layer is skipped entirely.
func (e *Engine) Analyze(symbol string, bars []market.Bar, newsContext string) *SignalResult {
	res := &SignalResult{
		Symbol:     symbol,
		Market:     market.Detect(symbol),
		RSI:        50,
		Signal:     market.Wait,
		AnalyzedAt: time.Now(),
	}
	params := market.ParamsFor(res.Market)

	if len(bars) < market.MinDecisionRows {
		e.logger.Warn().
			Str("symbol", symbol).
			Int("rows", len(bars)).
			Int("need", market.MinDecisionRows).
			Msg("series too short to score")
		return res
	}

	latest := bars[len(bars)-1]
	prev := latest
	if len(bars) >= 2 {
		prev = bars[len(bars)-2]
	}
	e.fillBasics(res, bars, latest)

	// Layer 1: trend filter. Only aligned bull stacks go through.
	if !res.TrendStatus.IsBullish() {
		res.Score = 0
		res.Signal = market.Wait
		res.Reasons = []string{"❌ 未通过趋势过滤"}
		res.Risks = []string{fmt.Sprintf("⚠️ %s，不做空头", res.TrendStatus)}
		e.logger.Info().
			Str("symbol", symbol).
			Str("trend", string(res.TrendStatus)).
			Msg("trend filter rejected")
		return res
	}
	score := 40
	reasons := []string{fmt.Sprintf("✅ %s，通过趋势过滤", res.TrendStatus)}
	e.logger.Info().
		Str("symbol", symbol).
		Str("trend", string(res.TrendStatus)).
		Msg("trend filter passed")

	// Layer 2: position filter. A wide MA5 bias means chasing.
	if math.Abs(res.BiasMA5) >= params.BiasThreshold {
		res.Score = score
		res.Signal = market.Wait
		res.Reasons = reasons
		res.Risks = []string{fmt.Sprintf(
			"⚠️ 乖离率%.1f%%，超过%s阈值%.1f%%",
			res.BiasMA5, res.Market, params.BiasThreshold,
		)}
		e.logger.Info().
			Str("symbol", symbol).
			Float64("bias_ma5", res.BiasMA5).
			Float64("threshold", params.BiasThreshold).
			Msg("position filter rejected")
		return res
	}
	score += 30
	if res.BiasMA5 < 0 {
		reasons = append(reasons, fmt.Sprintf("✅ 乖离率%.1f%%，回踩买点", res.BiasMA5))
	} else {
		reasons = append(reasons, fmt.Sprintf("✅ 乖离率%.1f%%，安全范围", res.BiasMA5))
	}
	e.logger.Info().
		Str("symbol", symbol).
		Float64("bias_ma5", res.BiasMA5).
		Msg("position filter passed")

	// Layer 3: auxiliary confirmation, additive only.
	var risks []string
	score, reasons, risks = e.confirmIndicators(res, latest, prev, params, score, reasons)

	// Layer 4: sentiment filter, severe news vetoes the buy outright.
	if newsContext != "" {
		verdict := scanSentiment(newsContext)
		res.SentimentChecked = true
		res.SentimentResult = verdict.Result
		res.SentimentScore = verdict.Score
		res.SentimentReasons = verdict.Reasons

		if verdict.Veto {
			res.Score = score
			res.Signal = market.Wait
			res.Reasons = reasons
			res.Risks = append(risks, verdict.Risks...)
			e.logger.Warn().
				Str("symbol", symbol).
				Str("sentiment", verdict.Result).
				Msg("sentiment filter vetoed")
			return res
		}
		if verdict.Score > 0 {
			score += verdict.Score
			reasons = append(reasons, verdict.Reasons...)
		}
		risks = append(risks, verdict.Risks...)
		e.logger.Info().
			Str("symbol", symbol).
			Str("sentiment", verdict.Result).
			Msg("sentiment filter passed")
	}

	if score > 100 {
		score = 100
	}
	res.Score = score
	res.Reasons = reasons
	res.Risks = risks
	switch {
	case score >= 70:
		res.Signal = market.StrongBuy
	case score >= 60:
		res.Signal = market.Buy
	default:
		res.Signal = market.Wait
	}

	e.logger.Info().
		Str("symbol", symbol).
		Str("signal", string(res.Signal)).
		Int("score", res.Score).
		Str("market", res.Market).
		Msg("analysis complete")
	return res
}

// fillBasics populates the descriptive fields every caller sees whether or
// not the gates pass: prices, bias, trend classification, volume profile
// and raw indicator values.
func (e *Engine) fillBasics(res *SignalResult, bars []market.Bar, latest market.Bar) {
	res.CurrentPrice = latest.Close
	res.MA5 = latest.MA5
	res.MA10 = latest.MA10
	res.MA20 = latest.MA20
	if len(bars) >= 60 {
		sum := 0.0
		for _, b := range bars[len(bars)-60:] {
			sum += b.Close
		}
		res.MA60 = sum / 60
	}

	if res.MA5 > 0 {
		res.BiasMA5 = (res.CurrentPrice - res.MA5) / res.MA5 * 100
	}
	if res.MA10 > 0 {
		res.BiasMA10 = (res.CurrentPrice - res.MA10) / res.MA10 * 100
	}
	if res.MA20 > 0 {
		res.BiasMA20 = (res.CurrentPrice - res.MA20) / res.MA20 * 100
	}

	res.TrendStatus = trendStatus(res.CurrentPrice, res.MA5, res.MA10, res.MA20)
	res.MAAlignment = maAlignment(res.TrendStatus, res.MA5, res.MA10, res.MA20)

	res.VolumeRatio5D = latest.VolumeRatio
	if res.VolumeRatio5D == 0 {
		res.VolumeRatio5D = 1.0
	}
	res.VolumeStatus, res.VolumeTrend = volumeProfile(res.VolumeRatio5D, latest.PctChg)

	res.SupportMA5 = nearSupport(res.CurrentPrice, res.MA5)
	res.SupportMA10 = nearSupport(res.CurrentPrice, res.MA10)
	res.SupportLevels, res.ResistanceLevels = splitLevels(res.CurrentPrice, res.MA5, res.MA10, res.MA20, res.MA60)

	res.MACD = latest.MACD
	res.MACDSignal = latest.MACDSignal
	res.MACDHist = latest.MACDHist
	if latest.RSI != 0 {
		res.RSI = latest.RSI
	}
	res.ATR = latest.ATR
	if res.ATR > 0 && res.CurrentPrice > 0 {
		res.ATRPct = res.ATR / res.CurrentPrice * 100
	}

	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	res.BollUpper, res.BollMiddle, res.BollLower = indicators.BollingerBands(closes, market.BollPeriod, market.BollStdDev)
}

// confirmIndicators is the additive third layer: MACD cross, RSI zone, ATR
// band and volume shape each contribute points or a risk note.
func (e *Engine) confirmIndicators(res *SignalResult, latest, prev market.Bar, params market.Params, score int, reasons []string) (int, []string, []string) {
	var risks []string

	res.MACDGoldenCross = prev.MACD <= prev.MACDSignal && latest.MACD > latest.MACDSignal
	if res.MACDGoldenCross {
		score += 10
		reasons = append(reasons, "✅ MACD金叉，趋势确认")
	} else {
		res.MACDDeadCross = prev.MACD >= prev.MACDSignal && latest.MACD < latest.MACDSignal
		if res.MACDDeadCross {
			risks = append(risks, "⚠️ MACD死叉，注意风险")
		}
	}

	switch rsi := res.RSI; {
	case rsi < 30:
		score += 15
		reasons = append(reasons, fmt.Sprintf("✅ RSI=%.0f，超卖区域", rsi))
	case rsi < 70:
		score += 10
		reasons = append(reasons, fmt.Sprintf("✅ RSI=%.0f，健康区域", rsi))
	case rsi < 80:
		risks = append(risks, fmt.Sprintf("⚠️ RSI=%.0f，接近超买", rsi))
	default:
		risks = append(risks, fmt.Sprintf("⚠️ RSI=%.0f，超买区域", rsi))
	}

	if params.ATRMinPct < res.ATRPct && res.ATRPct < params.ATRMaxPct {
		score += 5
		reasons = append(reasons, fmt.Sprintf("✅ ATR健康(%.1f%%)", res.ATRPct))
	} else if res.ATRPct >= params.ATRMaxPct {
		risks = append(risks, fmt.Sprintf("⚠️ 波动率过大(%.1f%%)", res.ATRPct))
	}

	switch res.VolumeStatus {
	case market.ShrinkVolumeDown:
		score += 10
		reasons = append(reasons, "✅ 缩量回调，洗盘特征")
	case market.HeavyVolumeUp:
		score += 8
		reasons = append(reasons, "✅ 放量上涨，多头强劲")
	}

	return score, reasons, risks
}

// trendStatus classifies the MA stack. A full bull or bear alignment with
// widening gaps upgrades to the strong variant.
func trendStatus(close, ma5, ma10, ma20 float64) market.TrendStatus {
	switch {
	case close > ma5 && ma5 > ma10 && ma10 > ma20 && ma20 > 0:
		if ma5-ma10 > ma10-ma20 {
			return market.StrongBull
		}
		return market.Bull
	case close < ma5 && ma5 < ma10 && ma10 < ma20 && ma20 > 0:
		if ma10-ma5 > ma20-ma10 {
			return market.StrongBear
		}
		return market.Bear
	case close > ma5 && ma5 > ma10 && ma10 > ma20:
		return market.WeakBull
	case close < ma5 && ma5 < ma10 && ma10 < ma20:
		return market.WeakBear
	default:
		return market.Consolidation
	}
}

func maAlignment(status market.TrendStatus, ma5, ma10, ma20 float64) string {
	switch status {
	case market.StrongBull, market.Bull:
		return fmt.Sprintf("MA5(%.2f) > MA10(%.2f) > MA20(%.2f)", ma5, ma10, ma20)
	case market.Bear, market.StrongBear:
		return fmt.Sprintf("MA5(%.2f) < MA10(%.2f) < MA20(%.2f)", ma5, ma10, ma20)
	default:
		return "均线缠绕"
	}
}

func volumeProfile(ratio, pctChg float64) (market.VolumeStatus, string) {
	switch {
	case ratio >= market.VolumeHeavyRatio:
		if pctChg > 0 {
			return market.HeavyVolumeUp, "放量上涨，多头力量强劲"
		}
		return market.HeavyVolumeDown, "放量下跌，注意风险"
	case ratio <= market.VolumeShrinkRatio:
		if pctChg > 0 {
			return market.ShrinkVolumeUp, "缩量上涨，上攻动能不足"
		}
		return market.ShrinkVolumeDown, "缩量回调，洗盘特征明显（好）"
	default:
		return market.NormalVolume, "量能正常"
	}
}

func nearSupport(close, ma float64) bool {
	if ma <= 0 {
		return false
	}
	return math.Abs(close-ma)/ma <= market.MASupportTolerance
}

// splitLevels sorts the moving averages into supports below the price
// (nearest first) and resistances above it (nearest first).
func splitLevels(close float64, mas ...float64) (supports, resistances []float64) {
	for _, ma := range mas {
		if ma <= 0 {
			continue
		}
		if ma < close {
			supports = append(supports, ma)
		} else if ma > close {
			resistances = append(resistances, ma)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(supports)))
	sort.Float64s(resistances)
	return supports, resistances
}
