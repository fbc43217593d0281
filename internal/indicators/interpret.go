package indicators

import (
	"fmt"
	"strings"
)

// Reading is one interpreted indicator: fixed display strings consumed by
// reports and the dashboard. Field usage varies by indicator; unused
// fields stay empty.
type Reading struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Level  string `json:"level"`
	Signal string `json:"signal"`
	Advice string `json:"advice,omitempty"`
	Trend  string `json:"trend,omitempty"`
	Emoji  string `json:"emoji"`
	Reason string `json:"reason"`
}

// InterpretMACD classifies DIF/DEA/BAR into the nine-cell strength matrix.
// BAR within ±0.01 counts as oscillation rather than a cross.
func InterpretMACD(dif, dea, bar float64) Reading {
	r := Reading{Name: "MACD"}

	switch {
	case bar > 0.01:
		r.Status = "金叉"
		r.Emoji = "🟢"
		switch {
		case dif > 0 && dea > 0:
			r.Level, r.Signal, r.Advice, r.Trend = "极强", "强烈买入", "重仓持有，趋势良好", "上升趋势确立"
		case dif > 0:
			r.Level, r.Signal, r.Advice, r.Trend = "强", "买入", "逢低加仓，持有为主", "多头反弹"
		default:
			r.Level, r.Signal, r.Advice, r.Trend = "中", "试探性买入", "轻仓试探，关注反弹持续性", "底部反弹"
		}
	case bar < -0.01:
		r.Status = "死叉"
		r.Emoji = "🔴"
		switch {
		case dif < 0 && dea < 0:
			r.Level, r.Signal, r.Advice, r.Trend = "极弱", "强烈卖出", "空仓观望，等待企稳", "下降趋势确立"
		case dif < 0:
			r.Level, r.Signal, r.Advice, r.Trend = "弱", "卖出", "逢高减仓，控制风险", "空头回落"
		default:
			r.Level, r.Signal, r.Advice, r.Trend = "中", "试探性卖出", "获利减仓，防范回调", "顶部回落"
		}
	default:
		r.Status = "震荡"
		r.Emoji = "🟡"
		switch {
		case dif > dea:
			r.Level, r.Signal, r.Advice, r.Trend = "中偏强", "偏多", "持有等待，关注突破方向", "多头蓄势"
		case dif < dea:
			r.Level, r.Signal, r.Advice, r.Trend = "中偏弱", "偏空", "观望为主，等待企稳信号", "空头蓄势"
		default:
			r.Level, r.Signal, r.Advice, r.Trend = "中性", "中性", "震荡观望，等待明确信号", "横盘整理"
		}
	}

	r.Reason = fmt.Sprintf("DIF=%.3f | DEA=%.3f | BAR=%.3f | 趋势=%s", dif, dea, bar, r.Trend)
	return r
}

// InterpretRSI maps the oscillator into overbought/oversold zones.
func InterpretRSI(value float64, period int) Reading {
	r := Reading{Name: "RSI"}

	switch {
	case value >= 80:
		r.Status, r.Level, r.Emoji, r.Signal = "严重超买", "极强", "🔴", "警惕回调"
	case value >= 70:
		r.Status, r.Level, r.Emoji, r.Signal = "超买", "强", "🟠", "注意回调"
	case value <= 20:
		r.Status, r.Level, r.Emoji, r.Signal = "严重超卖", "极弱", "🟢", "可能反转"
	case value <= 30:
		r.Status, r.Level, r.Emoji, r.Signal = "超卖", "弱", "🟡", "关注底部"
	case value >= 40 && value <= 60:
		r.Status, r.Level, r.Emoji, r.Signal = "中性区域", "中性", "⚪", "震荡观望"
	case value > 60:
		r.Status, r.Level, r.Emoji, r.Signal = "强势区域", "中偏强", "🟢", "偏多"
	default:
		r.Status, r.Level, r.Emoji, r.Signal = "弱势区域", "中偏弱", "🟡", "偏空"
	}

	r.Reason = fmt.Sprintf("RSI(%d)=%.2f | %s", period, value, r.Status)
	return r
}

// InterpretATR reads volatility as a share of price. A non-positive price
// yields the zero-volatility reading instead of a division.
func InterpretATR(atr, price float64, period int) Reading {
	r := Reading{Name: "ATR"}

	pct := 0.0
	if price > 0 {
		pct = atr / price * 100
	}

	switch {
	case pct >= 5:
		r.Status, r.Level, r.Emoji = "极端波动", "极高风险", "🔴"
	case pct >= 3:
		r.Status, r.Level, r.Emoji = "高波动", "高风险", "🟠"
	case pct >= 1.5:
		r.Status, r.Level, r.Emoji = "中等波动", "中风险", "🟡"
	case pct >= 0.5:
		r.Status, r.Level, r.Emoji = "低波动", "低风险", "🟢"
	default:
		r.Status, r.Level, r.Emoji = "极低波动", "极低风险", "⚪"
	}
	r.Signal = r.Status

	r.Reason = fmt.Sprintf("ATR(%d)=%.2f | 占比=%.2f%% | 波动率=%s | 风险等级=%s", period, atr, pct, r.Status, r.Level)
	return r
}

// InterpretBollinger positions the price inside the bands.
func InterpretBollinger(price, upper, middle, lower float64) Reading {
	r := Reading{Name: "布林带"}

	bandwidth := 0.0
	if middle > 0 {
		bandwidth = (upper - lower) / middle * 100
	}
	position := 50.0
	if upper-lower > 0 {
		position = (price - lower) / (upper - lower) * 100
	}

	switch {
	case position >= 90:
		r.Status, r.Signal, r.Emoji = "上轨上方", "卖出信号", "🔴"
	case position >= 75:
		r.Status, r.Signal, r.Emoji = "上轨附近", "偏弱信号", "🟠"
	case position <= 10:
		r.Status, r.Signal, r.Emoji = "下轨下方", "买入信号", "🟢"
	case position <= 25:
		r.Status, r.Signal, r.Emoji = "下轨附近", "偏强信号", "🟡"
	default:
		r.Status, r.Signal, r.Emoji = "中轨区域", "中性", "⚪"
	}
	r.Level = "中性"

	r.Reason = fmt.Sprintf("位置=%.1f%% | 带宽=%.2f%% | %s", position, bandwidth, r.Status)
	return r
}

// Summary joins the readings into one display line.
func Summary(readings []Reading) string {
	parts := make([]string, 0, len(readings))
	for _, r := range readings {
		parts = append(parts, fmt.Sprintf("%s %s: %s (%s) - %s", r.Emoji, r.Name, r.Status, r.Level, r.Signal))
	}
	return strings.Join(parts, " | ")
}

// OverallRisk grades the readings by the share of high-risk levels.
func OverallRisk(readings []Reading) string {
	if len(readings) == 0 {
		return "低风险 🟢"
	}

	high := 0
	for _, r := range readings {
		switch r.Level {
		case "极强", "极弱", "高风险", "极高风险":
			high++
		}
	}

	share := float64(high) / float64(len(readings))
	switch {
	case share >= 0.6:
		return "高风险 🔴"
	case share >= 0.3:
		return "中风险 🟠"
	default:
		return "低风险 🟢"
	}
}

// Recommendation votes across the readings' signals.
func Recommendation(readings []Reading) (action, confidence, emoji string) {
	if len(readings) == 0 {
		return "观望", "中", "🟡"
	}

	buy, sell := 0, 0
	for _, r := range readings {
		if strings.Contains(r.Signal, "买") {
			buy++
		}
		if strings.Contains(r.Signal, "卖") {
			sell++
		}
	}

	total := float64(len(readings))
	switch {
	case float64(buy)/total > 0.6:
		return "买入", "高", "🟢"
	case float64(sell)/total > 0.6:
		return "卖出", "高", "🔴"
	default:
		return "观望", "中", "🟡"
	}
}
