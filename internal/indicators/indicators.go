package indicators

import (
	"math"

	"stock-decision-bot/internal/market"
)

// ============================================================================
// SERIES CALCULATIONS
// ============================================================================
//
// All functions return one value per input row so the results can be
// persisted as table columns. Values round to 2 decimals, matching the
// stored history format.

// SMASeries is a rolling mean with min_periods=1 semantics: rows before a
// full window average whatever is available.
func SMASeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		n := period
		if i+1 < period {
			n = i + 1
		} else if i >= period {
			sum -= values[i-period]
		}
		out[i] = round2(sum / float64(n))
	}
	return out
}

// EMASeries seeds with the first value and applies alpha = 2/(span+1).
func EMASeries(values []float64, span int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(span+1)
	ema := values[0]
	out[0] = ema
	for i := 1; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
		out[i] = ema
	}
	return out
}

// MACDSeries returns DIF, DEA and histogram (DIF − DEA) per row.
func MACDSeries(closes []float64, fast, slow, signal int) (dif, dea, hist []float64) {
	emaFast := EMASeries(closes, fast)
	emaSlow := EMASeries(closes, slow)

	dif = make([]float64, len(closes))
	for i := range closes {
		dif[i] = emaFast[i] - emaSlow[i]
	}
	dea = EMASeries(dif, signal)

	hist = make([]float64, len(closes))
	for i := range closes {
		hist[i] = round2(dif[i] - dea[i])
		dif[i] = round2(dif[i])
		dea[i] = round2(dea[i])
	}
	return dif, dea, hist
}

// RSISeries uses simple rolling means of gains and losses. Rows without a
// full window, and windows where both sides are zero, report the neutral
// sentinel 50.
func RSISeries(closes []float64, period int) []float64 {
	out := make([]float64, len(closes))
	for i := range out {
		out[i] = 50
	}
	if len(closes) < period+1 {
		return out
	}

	gains := make([]float64, len(closes))
	losses := make([]float64, len(closes))
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	for i := period; i < len(closes); i++ {
		var gainSum, lossSum float64
		for j := i - period + 1; j <= i; j++ {
			gainSum += gains[j]
			lossSum += losses[j]
		}
		avgGain := gainSum / float64(period)
		avgLoss := lossSum / float64(period)

		switch {
		case avgLoss == 0 && avgGain == 0:
			out[i] = 50
		case avgLoss == 0:
			out[i] = 100
		default:
			rs := avgGain / avgLoss
			out[i] = round2(100 - 100/(1+rs))
		}
	}
	return out
}

// ATRSeries is the simple moving average of the true range. Rows without a
// full window report 0.
func ATRSeries(bars []market.Bar, period int) []float64 {
	out := make([]float64, len(bars))
	if len(bars) == 0 {
		return out
	}

	tr := make([]float64, len(bars))
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		hl := bars[i].High - bars[i].Low
		hc := math.Abs(bars[i].High - bars[i-1].Close)
		lc := math.Abs(bars[i].Low - bars[i-1].Close)
		tr[i] = math.Max(hl, math.Max(hc, lc))
	}

	for i := period - 1; i < len(bars); i++ {
		sum := 0.0
		for j := i - period + 1; j <= i; j++ {
			sum += tr[j]
		}
		out[i] = round2(sum / float64(period))
	}
	return out
}

// VolumeRatioSeries divides each volume by the mean of the five before it.
// Rows without prior data, or with a zero mean, report 1.0.
func VolumeRatioSeries(volumes []float64) []float64 {
	out := make([]float64, len(volumes))
	for i := range volumes {
		if i == 0 {
			out[i] = 1.0
			continue
		}
		start := i - 5
		if start < 0 {
			start = 0
		}
		sum := 0.0
		for j := start; j < i; j++ {
			sum += volumes[j]
		}
		mean := sum / float64(i-start)
		if mean <= 0 {
			out[i] = 1.0
			continue
		}
		out[i] = round2(volumes[i] / mean)
	}
	return out
}

// BollingerBands returns the latest upper/middle/lower band values.
func BollingerBands(closes []float64, period int, stdDevMultiplier float64) (upper, middle, lower float64) {
	if len(closes) < period {
		return 0, 0, 0
	}

	start := len(closes) - period
	sum := 0.0
	for _, c := range closes[start:] {
		sum += c
	}
	middle = sum / float64(period)

	variance := 0.0
	for _, c := range closes[start:] {
		diff := c - middle
		variance += diff * diff
	}
	stdDev := math.Sqrt(variance / float64(period))

	return middle + stdDev*stdDevMultiplier, middle, middle - stdDev*stdDevMultiplier
}

// Enrich fills the indicator columns of a normalized daily series in place.
func Enrich(bars []market.Bar) {
	if len(bars) == 0 {
		return
	}

	closes := make([]float64, len(bars))
	volumes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	// Sources that omit pct_chg get it derived from consecutive closes.
	for i := 1; i < len(bars); i++ {
		if bars[i].PctChg == 0 && bars[i-1].Close > 0 {
			bars[i].PctChg = round2((bars[i].Close/bars[i-1].Close - 1) * 100)
		}
	}

	ma5 := SMASeries(closes, 5)
	ma10 := SMASeries(closes, 10)
	ma20 := SMASeries(closes, 20)
	volRatio := VolumeRatioSeries(volumes)
	dif, dea, hist := MACDSeries(closes, market.MACDFast, market.MACDSlow, market.MACDSignalPeriod)
	rsi := RSISeries(closes, market.RSIPeriod)
	atr := ATRSeries(bars, market.ATRPeriod)

	for i := range bars {
		bars[i].MA5 = ma5[i]
		bars[i].MA10 = ma10[i]
		bars[i].MA20 = ma20[i]
		bars[i].VolumeRatio = volRatio[i]
		bars[i].MACD = dif[i]
		bars[i].MACDSignal = dea[i]
		bars[i].MACDHist = hist[i]
		bars[i].RSI = rsi[i]
		bars[i].ATR = atr[i]
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
