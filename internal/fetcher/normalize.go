package fetcher

import (
	"sort"

	"github.com/rs/zerolog"

	"stock-decision-bot/internal/indicators"
	"stock-decision-bot/internal/market"
)

// Normalize turns a raw source batch into a clean ascending series:
// invalid rows dropped, dates deduplicated keeping the last occurrence,
// indicator columns filled. The drop count is logged, never fatal.
func Normalize(bars []market.Bar, logger zerolog.Logger) []market.Bar {
	if len(bars) == 0 {
		return nil
	}

	clean := make([]market.Bar, 0, len(bars))
	dropped := 0
	for _, b := range bars {
		if b.Date == "" || !b.Valid() {
			dropped++
			continue
		}
		clean = append(clean, b)
	}
	if dropped > 0 {
		logger.Warn().Int("dropped", dropped).Int("kept", len(clean)).
			Str("symbol", symbolOf(clean, bars)).Msg("invalid rows dropped during normalization")
	}
	if len(clean) == 0 {
		return nil
	}

	sort.SliceStable(clean, func(i, j int) bool { return clean[i].Date < clean[j].Date })

	deduped := clean[:0]
	for _, b := range clean {
		if n := len(deduped); n > 0 && deduped[n-1].Date == b.Date {
			deduped[n-1] = b
			continue
		}
		deduped = append(deduped, b)
	}

	indicators.Enrich(deduped)
	return deduped
}

func symbolOf(clean, raw []market.Bar) string {
	if len(clean) > 0 {
		return clean[0].Symbol
	}
	if len(raw) > 0 {
		return raw[0].Symbol
	}
	return ""
}
