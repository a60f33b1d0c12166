// Package metrics holds the per-(model, dataset) evaluation table and its CSV form.
package metrics

// Metric names a numeric column of the evaluation table. The value is the
// exact CSV header.
type Metric string

// Accuracy metrics, each a scalar in [0,1].
const (
	Precision Metric = "Precision"
	Recall    Metric = "Recall"
	MAP50     Metric = "mAP@0.5"
	MAP5095   Metric = "mAP@0.5:0.95"
)

// Speed metrics in milliseconds per image, plus derived throughput.
const (
	PreprocessMS  Metric = "Preprocess (ms/img)"
	InferenceMS   Metric = "Inference (ms/img)"
	PostprocessMS Metric = "Postprocess (ms/img)"
	TotalMS       Metric = "Total (ms/img)"
	FPS           Metric = "FPS"
)

// Identifier columns.
const (
	ColModel   = "Model"
	ColDataset = "Dataset"
)

// Required lists the accuracy metrics in their declared order. Tie-breaks
// follow this order with the primary metric removed.
func Required() []Metric {
	return []Metric{MAP5095, MAP50, Precision, Recall}
}

// SpeedMetrics lists every optional speed column.
func SpeedMetrics() []Metric {
	return []Metric{PreprocessMS, InferenceMS, PostprocessMS, TotalMS, FPS}
}

// IsRequired reports whether m is one of the accuracy metrics.
func IsRequired(m Metric) bool {
	for _, r := range Required() {
		if r == m {
			return true
		}
	}
	return false
}

// Speed is the timing breakdown reported for one evaluation.
type Speed struct {
	PreprocessMS  float64 `json:"preprocess"`
	InferenceMS   float64 `json:"inference"`
	PostprocessMS float64 `json:"postprocess"`
}

// TotalMS is the summed per-image latency.
func (s Speed) TotalMS() float64 {
	return s.PreprocessMS + s.InferenceMS + s.PostprocessMS
}

// FPS is the throughput implied by TotalMS, or 0 when no time was recorded.
func (s Speed) FPS() float64 {
	total := s.TotalMS()
	if total <= 0 {
		return 0
	}
	return 1000 / total
}
