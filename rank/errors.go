package rank

import "errors"

// Sentinel errors for conditions that end a ranking run.
var (
	// ErrNoCommonModels indicates no model appears in every dataset.
	ErrNoCommonModels = errors.New("rank: no models found that appear in all datasets")

	// ErrInsufficientData indicates too few complete rows or features to fit a PCA.
	ErrInsufficientData = errors.New("rank: insufficient data for PCA")

	// ErrUnknownMetric indicates a metric name outside the accuracy metrics.
	ErrUnknownMetric = errors.New("rank: unknown metric")
)
