// Package rank orders evaluated models by aggregated accuracy and speed metrics.
//
// Three independent rankers are provided:
//   - Pairwise counts head-to-head wins on a primary metric.
//   - DistanceToIdeal projects per-dataset metrics onto two principal
//     components and measures the distance to a perfect-score point.
//   - PC1Score ranks by the first principal component of averaged metrics.
//
// Every ranker only considers models that appear in every dataset of the table.
package rank

import (
	"slices"

	"github.com/samber/lo"

	"github.com/jamesainslie/go-yolorank/metrics"
)

// CommonModels returns, sorted by name, the models that have rows in every
// distinct dataset of t.
func CommonModels(t *metrics.Table) ([]string, error) {
	datasets := t.Datasets()
	if len(datasets) == 0 {
		return nil, ErrNoCommonModels
	}

	common := t.ModelsIn(datasets[0])
	for _, ds := range datasets[1:] {
		present := t.ModelsIn(ds)
		common = lo.Filter(common, func(m string, _ int) bool {
			return slices.Contains(present, m)
		})
	}

	if len(common) == 0 {
		return nil, ErrNoCommonModels
	}
	slices.Sort(common)
	return common, nil
}

// FilterCommon restricts t to the rows of models present in every dataset.
func FilterCommon(t *metrics.Table) (*metrics.Table, []string, error) {
	models, err := CommonModels(t)
	if err != nil {
		return nil, nil, err
	}
	filtered := t.Filter(func(r metrics.Record) bool {
		_, ok := slices.BinarySearch(models, r.Model)
		return ok
	})
	return filtered, models, nil
}
