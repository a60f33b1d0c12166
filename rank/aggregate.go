package rank

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"

	"github.com/jamesainslie/go-yolorank/metrics"
)

// Stats holds one model's metrics averaged across datasets.
type Stats struct {
	Model  string
	Values map[metrics.Metric]float64
}

// Value returns the averaged metric, NaN when the model has no value for it.
func (s Stats) Value(m metrics.Metric) float64 {
	v, ok := s.Values[m]
	if !ok {
		return math.NaN()
	}
	return v
}

// Summary is the result of Aggregate.
type Summary struct {
	Models []Stats
	// Accuracy lists the averaged accuracy metrics.
	Accuracy []metrics.Metric
	// Speed lists the requested speed metrics that the table carries.
	Speed []metrics.Metric
}

// Aggregate averages each metric per model across datasets. Only models present
// in every dataset are included, in name order. For each (model, dataset) the
// first non-missing value in row order is used; datasets without a value are
// left out of the mean. Speed metrics the table does not carry are dropped
// from the summary rather than reported as missing.
func Aggregate(t *metrics.Table, accuracy, speed []metrics.Metric) (*Summary, error) {
	models, err := CommonModels(t)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Accuracy: slices.Clone(accuracy),
		Speed:    t.Present(speed),
	}
	columns := append(slices.Clone(sum.Accuracy), sum.Speed...)
	datasets := t.Datasets()

	for _, model := range models {
		s := Stats{Model: model, Values: make(map[metrics.Metric]float64, len(columns))}
		for _, m := range columns {
			s.Values[m] = datasetMean(t, model, datasets, m)
		}
		sum.Models = append(sum.Models, s)
	}

	return sum, nil
}

func datasetMean(t *metrics.Table, model string, datasets []string, m metrics.Metric) float64 {
	var vals []float64
	for _, ds := range datasets {
		if v, ok := t.First(model, ds, m); ok {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return math.NaN()
	}
	return stat.Mean(vals, nil)
}
