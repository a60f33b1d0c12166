package report

import (
	"io"

	"github.com/jamesainslie/go-yolorank/metrics"
)

// PrintTable writes the rows of t with the given metric columns. Columns the
// table does not carry are skipped.
func PrintTable(w io.Writer, t *metrics.Table, columns []metrics.Metric) error {
	columns = t.Present(columns)

	header := []string{metrics.ColDataset, metrics.ColModel}
	for _, m := range columns {
		header = append(header, string(m))
	}

	g := newGrid(header...).alignLeft(1)
	for _, r := range t.Records {
		row := []string{r.Dataset, r.Model}
		for _, m := range columns {
			row = append(row, metrics.FormatValue(r.Value(m), -1))
		}
		g.add(row...)
	}
	return g.render(w)
}

// EvaluationColumns are the columns of a published evaluation table.
func EvaluationColumns() []metrics.Metric {
	return []metrics.Metric{
		metrics.Precision, metrics.Recall, metrics.MAP50, metrics.MAP5095,
		metrics.PreprocessMS, metrics.InferenceMS, metrics.PostprocessMS, metrics.TotalMS, metrics.FPS,
	}
}

// SpeedColumns are the columns of the speed comparison view.
func SpeedColumns() []metrics.Metric {
	return []metrics.Metric{metrics.FPS, metrics.TotalMS, metrics.InferenceMS}
}
