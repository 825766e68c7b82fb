// Package ranking orders a project's ACTIVE bids and summarises the market.
package ranking

import (
	"bidwar/internal/models"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Less reports whether a ranks ahead of b: lower amount first, then the
// earlier sequence, then the lexicographically smaller handle.
func Less(a, b models.Bid) bool {
	if c := a.Amount.Cmp(b.Amount); c != 0 {
		return c < 0
	}
	if a.Sequence != b.Sequence {
		return a.Sequence < b.Sequence
	}
	return a.Handle < b.Handle
}

// Rank orders the ACTIVE bids and assigns contiguous 1-based ranks.
// previous maps handles to the rank they held in the last view; handles
// not found there get a zero delta. Non-ACTIVE rows are ignored.
func Rank(bids []models.Bid, previous map[string]int) []models.RankedBid {
	active := make([]models.Bid, 0, len(bids))
	for _, b := range bids {
		if b.Status == models.BidActive {
			active = append(active, b)
		}
	}
	sort.Slice(active, func(i, j int) bool { return Less(active[i], active[j]) })

	ranked := make([]models.RankedBid, len(active))
	for i, b := range active {
		rank := i + 1
		delta := 0
		if prev, ok := previous[b.Handle]; ok {
			delta = prev - rank
		}
		ranked[i] = models.RankedBid{
			Handle:    b.Handle,
			Amount:    b.Amount,
			Rank:      rank,
			RankDelta: delta,
			Sequence:  b.Sequence,
		}
	}
	return ranked
}

// Positions returns handle -> rank for a view, the input of the next Rank call
func Positions(view []models.RankedBid) map[string]int {
	out := make(map[string]int, len(view))
	for _, r := range view {
		out[r.Handle] = r.Rank
	}
	return out
}

// Find returns the entry of handle in view
func Find(view []models.RankedBid, handle string) (models.RankedBid, bool) {
	for _, r := range view {
		if r.Handle == handle {
			return r, true
		}
	}
	return models.RankedBid{}, false
}

// Stats summarises a ranked view at now. The bidding window runs from
// opensAt to closesAt; time remaining is clamped at zero.
func Stats(view []models.RankedBid, now, opensAt, closesAt time.Time) models.MarketStats {
	stats := models.MarketStats{
		Count:         len(view),
		BiddingWindow: closesAt.Sub(opensAt),
		TimeRemaining: closesAt.Sub(now),
	}
	if stats.TimeRemaining < 0 {
		stats.TimeRemaining = 0
	}
	if stats.BiddingWindow < 0 {
		stats.BiddingWindow = 0
	}
	if stats.TimeRemaining > stats.BiddingWindow {
		stats.TimeRemaining = stats.BiddingWindow
	}
	if len(view) == 0 {
		return stats
	}

	best, worst := view[0].Amount, view[0].Amount
	sum := decimal.Zero
	for _, r := range view {
		if r.Amount.LessThan(best) {
			best = r.Amount
		}
		if r.Amount.GreaterThan(worst) {
			worst = r.Amount
		}
		sum = sum.Add(r.Amount)
	}
	stats.Best = best
	stats.Worst = worst
	stats.Spread = worst.Sub(best)
	stats.Mean = sum.Div(decimal.NewFromInt(int64(len(view))))
	return stats
}
