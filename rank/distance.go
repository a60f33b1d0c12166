package rank

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/jamesainslie/go-yolorank/metrics"
)

// DistanceEntry is one model's position in the 2-component projection.
type DistanceEntry struct {
	Rank     int
	Model    string
	PC1      float64
	PC2      float64
	Distance float64
}

// DistanceResult is a distance-to-ideal ranking.
type DistanceResult struct {
	// Features names the (metric, dataset) columns of the fitted matrix.
	Features []string
	// Ideal is the projection of the all-ones feature vector.
	Ideal   [2]float64
	Entries []DistanceEntry
	// Dropped lists common models left out for missing feature values.
	Dropped []string
}

// DistanceToIdeal ranks models by Euclidean distance, in the plane of the first
// two principal components, to a synthetic model scoring 1.0 on every feature.
//
// Features are the per-dataset values (not averages) of each metric, one column
// per (metric, dataset) with metrics in the given order and datasets sorted by
// name. Models missing any feature are dropped. Features are standardized
// before fitting and the ideal vector goes through the same scaler and
// projection. The ideal point assumes features share a [0,1] scale, which
// does not hold for latency or FPS columns.
func DistanceToIdeal(t *metrics.Table, ms []metrics.Metric) (*DistanceResult, error) {
	models, err := CommonModels(t)
	if err != nil {
		return nil, err
	}

	datasets := t.Datasets()
	slices.Sort(datasets)

	res := &DistanceResult{}
	for _, m := range ms {
		for _, ds := range datasets {
			res.Features = append(res.Features, fmt.Sprintf("%s_%s", m, ds))
		}
	}

	var (
		kept []string
		data []float64
	)
	for _, model := range models {
		row, complete := featureRow(t, model, ms, datasets)
		if !complete {
			res.Dropped = append(res.Dropped, model)
			continue
		}
		kept = append(kept, model)
		data = append(data, row...)
	}

	if len(kept) < 2 || len(res.Features) < 2 {
		return nil, fmt.Errorf("%w: %d complete models, %d features", ErrInsufficientData, len(kept), len(res.Features))
	}

	x := mat.NewDense(len(kept), len(res.Features), data)
	sc := fitScaler(x)
	xs := sc.transformAll(x)

	proj, err := fitPCA(xs, 2)
	if err != nil {
		return nil, err
	}

	ones := make([]float64, len(res.Features))
	floats.AddConst(1, ones)
	ideal := proj.transform(sc.transform(ones))
	res.Ideal = [2]float64{ideal[0], ideal[1]}

	for i, model := range kept {
		emb := proj.transform(xs.RawRowView(i))
		res.Entries = append(res.Entries, DistanceEntry{
			Model:    model,
			PC1:      emb[0],
			PC2:      emb[1],
			Distance: floats.Distance(emb, ideal, 2),
		})
	}

	slices.SortStableFunc(res.Entries, func(a, b DistanceEntry) int {
		return cmp.Compare(a.Distance, b.Distance)
	})
	for i := range res.Entries {
		res.Entries[i].Rank = i + 1
	}

	return res, nil
}

func featureRow(t *metrics.Table, model string, ms []metrics.Metric, datasets []string) ([]float64, bool) {
	row := make([]float64, 0, len(ms)*len(datasets))
	for _, m := range ms {
		for _, ds := range datasets {
			v, ok := t.First(model, ds, m)
			if !ok || math.IsInf(v, 0) {
				return nil, false
			}
			row = append(row, v)
		}
	}
	return row, true
}
