// Package winprob estimates an advisory probability that a ranked bid wins.
// The estimate never influences ranking or award eligibility.
package winprob

import (
	"bidwar/internal/models"
	"math"
)

const (
	rankWeight     = 0.6
	distanceWeight = 0.4

	// maxPriorWeight is how strongly the uniform prior counts at the very
	// start of the bidding window; it decays linearly to zero at close.
	maxPriorWeight = 0.5
)

// Estimate returns the win probability of entry in [0,100], rounded to two
// decimals. view is the full ranked view entry belongs to.
func Estimate(entry models.RankedBid, view []models.RankedBid, stats models.MarketStats) float64 {
	n := len(view)
	if n <= 1 {
		return 100
	}

	rankScore := float64(n-entry.Rank) / float64(n-1)

	distanceScore := 1.0
	if stats.Spread.IsPositive() {
		distanceScore = 1 - entry.Amount.Sub(stats.Best).Div(stats.Spread).InexactFloat64()
	}
	distanceScore = clamp(distanceScore, 0, 1)

	p := 100 * (rankWeight*clamp(rankScore, 0, 1) + distanceWeight*distanceScore)

	if stats.BiddingWindow > 0 {
		w := maxPriorWeight * clamp(float64(stats.TimeRemaining)/float64(stats.BiddingWindow), 0, 1)
		p = (1-w)*p + w*(100/float64(n))
	}

	return math.Round(clamp(p, 0, 100)*100) / 100
}

// Annotate returns a copy of view with WinProbability filled in
func Annotate(view []models.RankedBid, stats models.MarketStats) []models.RankedBid {
	out := make([]models.RankedBid, len(view))
	for i, entry := range view {
		entry.WinProbability = Estimate(entry, view, stats)
		out[i] = entry
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
