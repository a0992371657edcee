// Package pricing classifies configured nightly prices into season tiers.
package pricing

import (
	"sort"

	"staysync/internal/models"

	"github.com/shopspring/decimal"
)

const (
	lowCutoff     = 0.33
	averageCutoff = 0.66
)

// Tier pairs a configured price with the season derived from its rank.
type Tier struct {
	Price  decimal.Decimal `json:"price"`
	Season models.Season   `json:"season"`
}

// ClassifySeasons sorts the distinct prices ascending and buckets each one by
// its normalized rank rank/(n-1): below 0.33 is low, below 0.66 average, the
// rest high. A single price is average.
func ClassifySeasons(prices []decimal.Decimal) []Tier {
	distinct := dedupe(prices)
	n := len(distinct)
	tiers := make([]Tier, 0, n)

	for rank, price := range distinct {
		tiers = append(tiers, Tier{Price: price, Season: seasonForRank(rank, n)})
	}
	return tiers
}

func seasonForRank(rank, n int) models.Season {
	if n == 1 {
		return models.SeasonAverage
	}
	percentile := float64(rank) / float64(n-1)
	switch {
	case percentile < lowCutoff:
		return models.SeasonLow
	case percentile < averageCutoff:
		return models.SeasonAverage
	default:
		return models.SeasonHigh
	}
}

func dedupe(prices []decimal.Decimal) []decimal.Decimal {
	sorted := make([]decimal.Decimal, len(prices))
	copy(sorted, prices)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

	out := sorted[:0]
	for i, p := range sorted {
		if i > 0 && p.Equal(out[len(out)-1]) {
			continue
		}
		out = append(out, p)
	}
	return out
}
