// Package report renders analysis results into the Markdown pushed to
// notification channels and archived on disk. Formatting is pure string
// work; only SaveDaily touches the filesystem.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"stock-decision-bot/internal/analyzer"
	"stock-decision-bot/internal/indicators"
	"stock-decision-bot/internal/market"
)

// ScoreBar renders a 20-cell progress bar with a color dot for the band
// the score falls in.
func ScoreBar(score, maxScore int) string {
	if maxScore <= 0 {
		return ""
	}
	pct := float64(score) / float64(maxScore)
	if pct > 1 {
		pct = 1
	}
	filled := int(pct * 20)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", 20-filled)

	var color string
	switch {
	case score >= 80:
		color = "🟢"
	case score >= 60:
		color = "🟡"
	case score >= 40:
		color = "🟠"
	default:
		color = "🔴"
	}
	return fmt.Sprintf("%s %s %d/%d", color, bar, score, maxScore)
}

type badge struct {
	emoji string
	level string
}

var signalBadges = map[string]badge{
	"强烈买入": {"💚", "极强"},
	"买入":   {"🟢", "强"},
	"加仓":   {"🟢", "强"},
	"持有":   {"🟡", "中"},
	"观望":   {"⚪", "中性"},
	"减仓":   {"🟠", "弱"},
	"卖出":   {"🔴", "弱"},
	"强烈卖出": {"❌", "极弱"},
}

// SignalBadge decorates a signal with its emoji and strength level.
func SignalBadge(signal string) string {
	b, ok := signalBadges[signal]
	if !ok {
		b = badge{"⚪", "未知"}
	}
	return fmt.Sprintf("%s **%s** (%s)", b.emoji, signal, b.level)
}

// SignalEmoji returns just the color dot for a signal.
func SignalEmoji(signal string) string {
	b, ok := signalBadges[signal]
	if !ok {
		return "⚪"
	}
	return b.emoji
}

var trendArrows = map[string]string{
	"强烈看多": "🚀🚀🚀",
	"看多":   "🚀🚀",
	"震荡":   "➡️",
	"看空":   "⬇️⬇️",
	"强烈看空": "⬇️⬇️⬇️",
}

// TrendArrow maps an outlook label to its arrow run.
func TrendArrow(label string) string {
	if a, ok := trendArrows[label]; ok {
		return a
	}
	return "➡️"
}

// TrendLabel projects an MA trend status onto the five outlook labels the
// report vocabulary uses.
func TrendLabel(status market.TrendStatus) string {
	switch status {
	case market.StrongBull:
		return "强烈看多"
	case market.Bull:
		return "看多"
	case market.Bear:
		return "看空"
	case market.StrongBear:
		return "强烈看空"
	default:
		return "震荡"
	}
}

// PriceChange colors a percent move the A-share way: red up, green down.
func PriceChange(pct float64) string {
	switch {
	case pct > 0:
		return fmt.Sprintf("🔴 +%.2f%%", pct)
	case pct < 0:
		return fmt.Sprintf("🟢 %.2f%%", pct)
	default:
		return "⚪ 0.00%"
	}
}

// Daily renders the full multi-stock Markdown report: header, summary
// table, then one section per stock in descending score order.
func Daily(results []*analyzer.SignalResult, reportDate string) string {
	if reportDate == "" {
		reportDate = time.Now().Format("2006-01-02")
	}

	var buyCount, sellCount, holdCount, totalScore int
	for _, r := range results {
		switch r.Signal {
		case market.Buy, market.StrongBuy:
			buyCount++
		case market.Sell, market.StrongSell:
			sellCount++
		default:
			holdCount++
		}
		totalScore += r.Score
	}
	avgScore := 0.0
	if len(results) > 0 {
		avgScore = float64(totalScore) / float64(len(results))
	}

	lines := []string{
		fmt.Sprintf("# 📅 %s A股自选股智能分析报告", reportDate),
		"",
		fmt.Sprintf("> 共分析 **%d** 只股票 | 报告生成时间：%s", len(results), time.Now().Format("15:04:05")),
		"",
		"---",
		"",
		"## 📊 操作建议汇总",
		"",
		"| 指标 | 数值 |",
		"|------|------|",
		fmt.Sprintf("| 🟢 建议买入/加仓 | **%d** 只 |", buyCount),
		fmt.Sprintf("| 🟡 建议持有/观望 | **%d** 只 |", holdCount),
		fmt.Sprintf("| 🔴 建议减仓/卖出 | **%d** 只 |", sellCount),
		fmt.Sprintf("| 📈 平均看多评分 | **%.1f** 分 |", avgScore),
		"",
		"---",
		"",
		"## 📈 个股详细分析",
		"",
	}

	sorted := make([]*analyzer.SignalResult, len(results))
	copy(sorted, results)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	for _, r := range sorted {
		lines = append(lines, stockSection(r)...)
	}
	return strings.Join(lines, "\n")
}

func stockSection(r *analyzer.SignalResult) []string {
	trend := TrendLabel(r.TrendStatus)
	lines := []string{
		fmt.Sprintf("### %s %s (%s)", SignalEmoji(string(r.Signal)), displayName(r), r.Symbol),
		"",
		fmt.Sprintf("**操作建议：%s** | **综合评分：%d分** | **趋势预测：%s %s**",
			r.Signal, r.Score, TrendArrow(trend), trend),
		"",
		ScoreBar(r.Score, 100),
		"",
		fmt.Sprintf("**📐 均线排列**：%s", r.MAAlignment),
		fmt.Sprintf("**🔊 量能状态**：%s", r.VolumeTrend),
		fmt.Sprintf("**💹 乖离率(MA5)**：%s", PriceChange(r.BiasMA5)),
		"",
	}

	lines = append(lines, indicatorBlock(r)...)

	if len(r.Reasons) > 0 {
		lines = append(lines, "#### ✅ 信号依据", "")
		for _, reason := range r.Reasons {
			lines = append(lines, "- "+reason)
		}
		lines = append(lines, "")
	}
	if len(r.Risks) > 0 {
		lines = append(lines, "#### ⚠️ 风险提示", "")
		for _, risk := range r.Risks {
			lines = append(lines, "- "+risk)
		}
		lines = append(lines, "")
	}
	if r.SentimentChecked && r.SentimentResult != "" {
		lines = append(lines, fmt.Sprintf("**📰 舆情判定**：%s", r.SentimentResult), "")
	}

	lines = append(lines, "---", "")
	return lines
}

// readings interprets the stored indicator values of one result. Bollinger
// only joins when the series was long enough to produce bands.
func readings(r *analyzer.SignalResult) []indicators.Reading {
	out := []indicators.Reading{
		indicators.InterpretMACD(r.MACD, r.MACDSignal, r.MACDHist),
		indicators.InterpretRSI(r.RSI, market.RSIPeriod),
		indicators.InterpretATR(r.ATR, r.CurrentPrice, market.ATRPeriod),
	}
	if r.BollMiddle > 0 {
		out = append(out, indicators.InterpretBollinger(r.CurrentPrice, r.BollUpper, r.BollMiddle, r.BollLower))
	}
	return out
}

func indicatorBlock(r *analyzer.SignalResult) []string {
	rds := readings(r)
	lines := []string{"#### 📐 技术指标解读", ""}
	for _, rd := range rds {
		lines = append(lines, fmt.Sprintf("- %s **%s**：%s（%s）", rd.Emoji, rd.Name, rd.Status, rd.Signal))
	}

	action, confidence, emoji := indicators.Recommendation(rds)
	lines = append(lines,
		"",
		fmt.Sprintf("**指标综合**：%s %s（信心：%s） | **风险等级**：%s", emoji, action, confidence, indicators.OverallRisk(rds)),
		"",
	)
	return lines
}

// Single renders the compact one-stock message used for on-demand pushes.
func Single(r *analyzer.SignalResult) string {
	trend := TrendLabel(r.TrendStatus)
	lines := []string{
		fmt.Sprintf("%s %s (%s)", SignalEmoji(string(r.Signal)), displayName(r), r.Symbol),
		"",
		fmt.Sprintf("**操作建议**：%s", r.Signal),
		fmt.Sprintf("**综合评分**：%d分", r.Score),
		fmt.Sprintf("**趋势预测**：%s", trend),
		"",
	}
	if len(r.Reasons) > 0 {
		lines = append(lines, fmt.Sprintf("**核心看点**：%s", strings.Join(r.Reasons, "；")))
	}
	lines = append(lines, fmt.Sprintf("**指标速览**：%s", indicators.Summary(readings(r))))
	return strings.Join(lines, "\n")
}

func displayName(r *analyzer.SignalResult) string {
	if r.Name != "" {
		return r.Name
	}
	return "股票" + r.Symbol
}

// SaveDaily archives a rendered report under dir as report_YYYYMMDD.md and
// returns the written path.
func SaveDaily(content, dir string) (string, error) {
	if dir == "" {
		dir = "reports"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create reports dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("report_%s.md", time.Now().Format("20060102")))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
