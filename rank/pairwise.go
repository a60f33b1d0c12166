package rank

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/jamesainslie/go-yolorank/metrics"
)

// PairwiseEntry is one row of a win-count ranking.
type PairwiseEntry struct {
	Rank    int
	Model   string
	Wins    int
	Primary float64
	// TieBreaks holds the averaged tie-break metrics, in PairwiseResult.TieBreaks order.
	TieBreaks []float64
	Stats     Stats
}

// PairwiseResult is a win-count ranking.
type PairwiseResult struct {
	Primary   metrics.Metric
	TieBreaks []metrics.Metric
	Speed     []metrics.Metric
	Entries   []PairwiseEntry
}

// Best returns the top-ranked model.
func (r *PairwiseResult) Best() string {
	if len(r.Entries) == 0 {
		return ""
	}
	return r.Entries[0].Model
}

// TieBreaks returns the accuracy metrics in declared order with primary removed.
func TieBreaks(primary metrics.Metric) []metrics.Metric {
	return slices.DeleteFunc(metrics.Required(), func(m metrics.Metric) bool { return m == primary })
}

// Pairwise ranks models by head-to-head wins on the averaged primary metric.
//
// Models are paired in name order. For each pair (a, b) with a before b, a
// scores a win only when its average is strictly greater; otherwise b scores
// it, so ties and missing values go to the later model and every pair awards
// exactly one win. Entries are ordered by (wins, primary, tie-breaks...)
// descending; equal keys keep name order.
func Pairwise(t *metrics.Table, primary metrics.Metric, speed []metrics.Metric) (*PairwiseResult, error) {
	if !metrics.IsRequired(primary) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMetric, primary)
	}

	res := &PairwiseResult{
		Primary:   primary,
		TieBreaks: TieBreaks(primary),
	}

	sum, err := Aggregate(t, append([]metrics.Metric{primary}, res.TieBreaks...), speed)
	if err != nil {
		return nil, err
	}
	res.Speed = sum.Speed

	wins := countWins(sum.Models, primary)

	res.Entries = make([]PairwiseEntry, len(sum.Models))
	for i, s := range sum.Models {
		e := PairwiseEntry{
			Model:   s.Model,
			Wins:    wins[i],
			Primary: s.Value(primary),
			Stats:   s,
		}
		for _, m := range res.TieBreaks {
			e.TieBreaks = append(e.TieBreaks, s.Value(m))
		}
		res.Entries[i] = e
	}

	slices.SortStableFunc(res.Entries, func(a, b PairwiseEntry) int {
		return compareKeys(sortKey(b), sortKey(a))
	})
	for i := range res.Entries {
		res.Entries[i].Rank = i + 1
	}

	return res, nil
}

func countWins(models []Stats, m metrics.Metric) []int {
	wins := make([]int, len(models))
	for i := range models {
		for j := i + 1; j < len(models); j++ {
			if models[i].Value(m) > models[j].Value(m) {
				wins[i]++
			} else {
				wins[j]++
			}
		}
	}
	return wins
}

func sortKey(e PairwiseEntry) []float64 {
	return append([]float64{float64(e.Wins), e.Primary}, e.TieBreaks...)
}

// compareKeys compares lexicographically. NaN orders below every number.
func compareKeys(a, b []float64) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := cmp.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}
