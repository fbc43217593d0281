package indicators

import (
	"math"
	"testing"

	"stock-decision-bot/internal/market"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestSMASeriesMinPeriods(t *testing.T) {
	got := SMASeries([]float64{1, 2, 3, 4, 5, 6}, 5)
	want := []float64{1, 1.5, 2, 2.5, 3, 4}

	for i := range want {
		if !almostEqual(got[i], want[i]) {
			t.Errorf("Row %d: expected %.2f, got %.2f", i, want[i], got[i])
		}
	}
}

func TestEMASeriesSeedsWithFirstValue(t *testing.T) {
	got := EMASeries([]float64{10, 11}, 9)

	if got[0] != 10 {
		t.Errorf("Expected seed 10, got %f", got[0])
	}
	// alpha = 2/(9+1) = 0.2
	if math.Abs(got[1]-10.2) > 1e-9 {
		t.Errorf("Expected 10.2, got %f", got[1])
	}
}

func TestRSISeriesZones(t *testing.T) {
	// Strictly rising closes: no losses, RSI saturates at 100
	up := make([]float64, 20)
	for i := range up {
		up[i] = 10 + float64(i)
	}
	rsi := RSISeries(up, 14)

	if rsi[5] != 50 {
		t.Errorf("Rows before a full window should report 50, got %f", rsi[5])
	}
	if rsi[len(rsi)-1] != 100 {
		t.Errorf("All-gain window should report 100, got %f", rsi[len(rsi)-1])
	}

	// Flat closes: both sides zero, neutral sentinel
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 10
	}
	rsi = RSISeries(flat, 14)
	if rsi[len(rsi)-1] != 50 {
		t.Errorf("Flat window should report 50, got %f", rsi[len(rsi)-1])
	}
}

func TestATRSeriesConstantRange(t *testing.T) {
	bars := make([]market.Bar, 20)
	for i := range bars {
		bars[i] = market.Bar{Open: 10.2, High: 11, Low: 10, Close: 10.5, Volume: 1000}
	}
	atr := ATRSeries(bars, 14)

	if atr[10] != 0 {
		t.Errorf("Rows before a full window should report 0, got %f", atr[10])
	}
	if atr[len(atr)-1] != 1.0 {
		t.Errorf("Constant 1-point range should give ATR 1.0, got %f", atr[len(atr)-1])
	}
}

func TestVolumeRatioSeries(t *testing.T) {
	got := VolumeRatioSeries([]float64{100, 100, 100, 100, 100, 200})

	if got[0] != 1.0 {
		t.Errorf("First row has no history, expected 1.0, got %f", got[0])
	}
	if got[5] != 2.0 {
		t.Errorf("Double the 5-day mean should give 2.0, got %f", got[5])
	}

	// Zero prior volume falls back to the neutral ratio
	got = VolumeRatioSeries([]float64{0, 500})
	if got[1] != 1.0 {
		t.Errorf("Zero mean should give 1.0, got %f", got[1])
	}
}

func TestBollingerBands(t *testing.T) {
	flat := make([]float64, 25)
	for i := range flat {
		flat[i] = 10
	}
	upper, middle, lower := BollingerBands(flat, 20, 2.0)
	if upper != 10 || middle != 10 || lower != 10 {
		t.Errorf("Flat closes should collapse the bands to 10, got %f/%f/%f", upper, middle, lower)
	}

	upper, middle, lower = BollingerBands([]float64{10, 11}, 20, 2.0)
	if upper != 0 || middle != 0 || lower != 0 {
		t.Error("Short series should report zero bands")
	}
}

func TestEnrichFillsColumns(t *testing.T) {
	bars := make([]market.Bar, 30)
	for i := range bars {
		c := 10 + 0.1*float64(i)
		bars[i] = market.Bar{
			Symbol: "600519", Date: "2024-01-01",
			Open: c - 0.05, High: c + 0.1, Low: c - 0.1, Close: c, Volume: 1e6,
		}
	}
	Enrich(bars)

	last := bars[len(bars)-1]
	if last.MA5 == 0 || last.MA10 == 0 || last.MA20 == 0 {
		t.Errorf("Moving averages not filled: %+v", last)
	}
	if last.RSI == 0 {
		t.Error("RSI not filled")
	}
	if last.ATR == 0 {
		t.Error("ATR not filled")
	}
	if last.VolumeRatio == 0 {
		t.Error("Volume ratio not filled")
	}
	// Rising 0.1 steps derive a positive pct_chg on every row after the first
	if last.PctChg <= 0 {
		t.Errorf("Expected derived pct_chg > 0, got %f", last.PctChg)
	}
	if bars[0].PctChg != 0 {
		t.Errorf("First row has no previous close, expected 0, got %f", bars[0].PctChg)
	}
}

func TestEnrichKeepsProvidedPctChg(t *testing.T) {
	bars := []market.Bar{
		{Close: 10, Open: 10, High: 10.1, Low: 9.9, Volume: 100},
		{Close: 11, Open: 10, High: 11.1, Low: 9.9, Volume: 100, PctChg: 9.87},
	}
	Enrich(bars)

	if bars[1].PctChg != 9.87 {
		t.Errorf("Source-provided pct_chg must survive, got %f", bars[1].PctChg)
	}
}

func TestInterpretMACDMatrix(t *testing.T) {
	r := InterpretMACD(0.5, 0.3, 0.2)
	if r.Status != "金叉" || r.Level != "极强" || r.Signal != "强烈买入" {
		t.Errorf("Positive DIF/DEA golden cross misread: %+v", r)
	}

	r = InterpretMACD(-0.5, -0.3, -0.2)
	if r.Status != "死叉" || r.Level != "极弱" || r.Signal != "强烈卖出" {
		t.Errorf("Negative DIF/DEA dead cross misread: %+v", r)
	}

	// BAR within the ±0.01 band counts as oscillation
	r = InterpretMACD(0.5, 0.495, 0.005)
	if r.Status != "震荡" {
		t.Errorf("Expected 震荡 for tiny BAR, got %s", r.Status)
	}
}

func TestInterpretRSIZones(t *testing.T) {
	cases := []struct {
		value float64
		want  string
	}{
		{85, "严重超买"},
		{75, "超买"},
		{15, "严重超卖"},
		{25, "超卖"},
		{50, "中性区域"},
		{65, "强势区域"},
		{35, "弱势区域"},
	}
	for _, tc := range cases {
		if got := InterpretRSI(tc.value, 14); got.Status != tc.want {
			t.Errorf("RSI %.0f: expected %s, got %s", tc.value, tc.want, got.Status)
		}
	}
}

func TestInterpretATRBands(t *testing.T) {
	if r := InterpretATR(6, 100, 14); r.Status != "极端波动" {
		t.Errorf("6%% should read 极端波动, got %s", r.Status)
	}
	if r := InterpretATR(2, 100, 14); r.Status != "中等波动" {
		t.Errorf("2%% should read 中等波动, got %s", r.Status)
	}
	if r := InterpretATR(1, 0, 14); r.Status != "极低波动" {
		t.Errorf("Zero price should read 极低波动, got %s", r.Status)
	}
}

func TestInterpretBollingerPosition(t *testing.T) {
	if r := InterpretBollinger(9.0, 11, 10, 9.5); r.Status != "下轨下方" {
		t.Errorf("Price below the lower band misread: %s", r.Status)
	}
	if r := InterpretBollinger(11.5, 11, 10, 9); r.Status != "上轨上方" {
		t.Errorf("Price above the upper band misread: %s", r.Status)
	}
	if r := InterpretBollinger(10, 11, 10, 9); r.Status != "中轨区域" {
		t.Errorf("Mid-band price misread: %s", r.Status)
	}
}

func TestOverallRisk(t *testing.T) {
	if got := OverallRisk(nil); got != "低风险 🟢" {
		t.Errorf("Empty readings should grade 低风险, got %s", got)
	}

	readings := []Reading{{Level: "极强"}, {Level: "极弱"}}
	if got := OverallRisk(readings); got != "高风险 🔴" {
		t.Errorf("All high levels should grade 高风险, got %s", got)
	}
}

func TestRecommendationVoting(t *testing.T) {
	buyHeavy := []Reading{{Signal: "买入"}, {Signal: "强烈买入"}, {Signal: "偏多"}}
	action, _, _ := Recommendation(buyHeavy)
	if action != "买入" {
		t.Errorf("Two of three buy votes should recommend 买入, got %s", action)
	}

	mixed := []Reading{{Signal: "买入"}, {Signal: "卖出"}, {Signal: "中性"}}
	action, _, _ = Recommendation(mixed)
	if action != "观望" {
		t.Errorf("Split votes should recommend 观望, got %s", action)
	}
}
