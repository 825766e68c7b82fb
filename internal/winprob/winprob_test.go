package winprob

import (
	"bidwar/internal/models"
	"bidwar/internal/ranking"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var (
	opens  = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	closes = opens.Add(72 * time.Hour)
)

func view(amounts ...int64) []models.RankedBid {
	bids := make([]models.Bid, len(amounts))
	for i, a := range amounts {
		bids[i] = models.Bid{
			Sequence: int64(i + 1),
			Handle:   fmt.Sprintf("BIDDER-%02d", i),
			Amount:   decimal.NewFromInt(a),
			Status:   models.BidActive,
		}
	}
	return ranking.Rank(bids, nil)
}

func TestEstimate_SoleBidder(t *testing.T) {
	t.Parallel()
	v := view(150000)
	for _, now := range []time.Time{opens, opens.Add(time.Hour), closes} {
		annotated := Annotate(v, ranking.Stats(v, now, opens, closes))
		require.Equal(t, 100.0, annotated[0].WinProbability)
	}
}

func TestEstimate_AtClose(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		amounts  []int64
		expected []float64
	}{
		{name: "two_bids", amounts: []int64{150000, 140000}, expected: []float64{100, 0}},
		{name: "equal_amounts", amounts: []int64{140000, 140000}, expected: []float64{100, 40}},
		{name: "three_bids", amounts: []int64{100000, 150000, 200000}, expected: []float64{100, 50, 0}},
		{name: "clustered", amounts: []int64{100000, 101000, 200000}, expected: []float64{100, 69.6, 0}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			v := view(tc.amounts...)
			annotated := Annotate(v, ranking.Stats(v, closes, opens, closes))
			got := make([]float64, len(annotated))
			for i, r := range annotated {
				got[i] = r.WinProbability
			}
			require.Equal(t, tc.expected, got)
		})
	}
}

func TestEstimate_PriorBlendEarly(t *testing.T) {
	t.Parallel()
	v := view(150000, 140000)

	atOpen := Annotate(v, ranking.Stats(v, opens, opens, closes))
	// half weight on the uniform prior of 50
	require.Equal(t, 75.0, atOpen[0].WinProbability)
	require.Equal(t, 25.0, atOpen[1].WinProbability)

	atClose := Annotate(v, ranking.Stats(v, closes, opens, closes))
	require.Greater(t, atClose[0].WinProbability, atOpen[0].WinProbability)
	require.Less(t, atClose[1].WinProbability, atOpen[1].WinProbability)
}

func TestEstimate_ScenarioA(t *testing.T) {
	t.Parallel()
	now := opens.Add(time.Hour)

	before := view(150000)
	x := Annotate(before, ranking.Stats(before, now, opens, closes))[0]
	require.Equal(t, 100.0, x.WinProbability)

	after := ranking.Rank([]models.Bid{
		{Sequence: 1, Handle: x.Handle, Amount: decimal.NewFromInt(150000), Status: models.BidActive},
		{Sequence: 2, Handle: "BIDDER-YY", Amount: decimal.NewFromInt(140000), Status: models.BidActive},
	}, ranking.Positions(before))
	annotated := Annotate(after, ranking.Stats(after, now, opens, closes))
	xAfter, ok := ranking.Find(annotated, x.Handle)
	require.True(t, ok)
	require.Equal(t, 2, xAfter.Rank)
	require.Less(t, xAfter.WinProbability, x.WinProbability)
}

func TestEstimate_BoundsAndMonotonic(t *testing.T) {
	t.Parallel()
	rng := rand.New(rand.NewSource(7))

	for round := 0; round < 200; round++ {
		n := rng.Intn(25) + 1
		amounts := make([]int64, n)
		for i := range amounts {
			amounts[i] = 100000 + int64(rng.Intn(100))*1000
		}
		v := view(amounts...)
		now := opens.Add(time.Duration(rng.Int63n(int64(closes.Sub(opens)) * 2)))
		annotated := Annotate(v, ranking.Stats(v, now, opens, closes))

		for i, r := range annotated {
			require.GreaterOrEqual(t, r.WinProbability, 0.0)
			require.LessOrEqual(t, r.WinProbability, 100.0)
			if i > 0 {
				require.LessOrEqual(t, r.WinProbability, annotated[i-1].WinProbability)
			}
		}
	}
}

func TestAnnotate_DoesNotMutateInput(t *testing.T) {
	t.Parallel()
	v := view(150000, 140000)
	_ = Annotate(v, ranking.Stats(v, closes, opens, closes))
	for _, r := range v {
		require.Zero(t, r.WinProbability)
	}
	require.Empty(t, Annotate(nil, models.MarketStats{}))
}
