package market

// Market display names. Every symbol resolves to exactly one of these.
const (
	AShare   = "A股"
	HKMarket = "港股"
)

// Params holds the per-market tuning of the decision engine.
type Params struct {
	BiasThreshold float64 // max |MA5 bias| % allowed through the position gate
	ATRMinPct     float64 // healthy volatility band lower bound, %
	ATRMaxPct     float64 // healthy volatility band upper bound, %
	ATRMultiplier float64 // stop distance in ATRs
	Currency      string
}

var marketParams = map[string]Params{
	AShare:   {BiasThreshold: 5.0, ATRMinPct: 1.0, ATRMaxPct: 3.0, ATRMultiplier: 1.5, Currency: "CNY"},
	HKMarket: {BiasThreshold: 6.0, ATRMinPct: 1.0, ATRMaxPct: 4.0, ATRMultiplier: 2.0, Currency: "HKD"},
}

// ParamsFor returns the tuning for a market name, defaulting to A-share.
func ParamsFor(market string) Params {
	if p, ok := marketParams[market]; ok {
		return p
	}
	return marketParams[AShare]
}

// Detect classifies a canonical symbol into a market. Six digits is an
// A-share code; everything else (NNNNN.HK and friends) trades in Hong Kong.
func Detect(symbol string) string {
	if len(symbol) == 6 && allDigits(symbol) {
		return AShare
	}
	return HKMarket
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Volume classification thresholds shared by the normalizer and the engine.
const (
	VolumeShrinkRatio  = 0.7
	VolumeHeavyRatio   = 1.5
	MASupportTolerance = 0.02
)

// Indicator periods. These match the stored column semantics, so changing
// one invalidates persisted history.
const (
	MACDFast         = 12
	MACDSlow         = 26
	MACDSignalPeriod = 9
	RSIPeriod        = 14
	ATRPeriod        = 14
	BollPeriod       = 20
	BollStdDev       = 2.0
)

// MinDecisionRows is the shortest series the decision engine will score.
const MinDecisionRows = 20
