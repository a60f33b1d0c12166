package rank

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/mat"

	"github.com/jamesainslie/go-yolorank/metrics"
)

// ScoreEntry is one model's first-component score.
type ScoreEntry struct {
	Rank  int
	Model string
	Score float64
	Stats Stats
}

// ScoreResult is a first-component ranking.
type ScoreResult struct {
	Metrics []metrics.Metric
	// Loadings holds the component weight of each metric.
	Loadings []float64
	Entries  []ScoreEntry
	// Dropped lists common models with a metric that has no value on any dataset.
	Dropped []string
}

// PC1Score ranks models by their score on the first principal component of the
// cross-dataset averages of ms, highest first. Averages are used as-is,
// without standardization.
func PC1Score(t *metrics.Table, ms []metrics.Metric) (*ScoreResult, error) {
	sum, err := Aggregate(t, ms, nil)
	if err != nil {
		return nil, err
	}

	res := &ScoreResult{Metrics: slices.Clone(ms)}

	var (
		kept []Stats
		data []float64
	)
	for _, s := range sum.Models {
		row := make([]float64, len(ms))
		complete := true
		for j, m := range ms {
			row[j] = s.Value(m)
			if math.IsNaN(row[j]) || math.IsInf(row[j], 0) {
				complete = false
			}
		}
		if !complete {
			res.Dropped = append(res.Dropped, s.Model)
			continue
		}
		kept = append(kept, s)
		data = append(data, row...)
	}

	if len(kept) < 2 || len(ms) < 1 {
		return nil, fmt.Errorf("%w: %d complete models", ErrInsufficientData, len(kept))
	}

	x := mat.NewDense(len(kept), len(ms), data)
	proj, err := fitPCA(x, 1)
	if err != nil {
		return nil, err
	}
	res.Loadings = mat.Col(nil, 0, proj.vectors)

	for i, s := range kept {
		res.Entries = append(res.Entries, ScoreEntry{
			Model: s.Model,
			Score: proj.transform(x.RawRowView(i))[0],
			Stats: s,
		})
	}

	slices.SortStableFunc(res.Entries, func(a, b ScoreEntry) int {
		return cmp.Compare(b.Score, a.Score)
	})
	for i := range res.Entries {
		res.Entries[i].Rank = i + 1
	}

	return res, nil
}
