package metrics

import (
	"math"
	"slices"

	"github.com/samber/lo"
)

// Accuracy is the detection accuracy reported for one evaluation.
type Accuracy struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	MAP50     float64 `json:"map50"`
	MAP5095   float64 `json:"map"`
}

// Record is one evaluation row. Values absent from the map, or NaN, mean
// "no value".
type Record struct {
	Model   string
	Dataset string
	Values  map[Metric]float64
}

// NewRecord builds a row from an evaluation, rounding the way result tables
// are published: accuracy to 3 places, latencies to 2, FPS to 1.
func NewRecord(model, dataset string, acc Accuracy, speed *Speed) Record {
	r := Record{
		Model:   model,
		Dataset: dataset,
		Values: map[Metric]float64{
			Precision: round(acc.Precision, 3),
			Recall:    round(acc.Recall, 3),
			MAP50:     round(acc.MAP50, 3),
			MAP5095:   round(acc.MAP5095, 3),
		},
	}
	if speed != nil {
		r.Values[PreprocessMS] = round(speed.PreprocessMS, 2)
		r.Values[InferenceMS] = round(speed.InferenceMS, 2)
		r.Values[PostprocessMS] = round(speed.PostprocessMS, 2)
		r.Values[TotalMS] = round(speed.TotalMS(), 2)
		r.Values[FPS] = round(speed.FPS(), 1)
	}
	return r
}

// Value returns the metric value, NaN when missing.
func (r Record) Value(m Metric) float64 {
	v, ok := r.Values[m]
	if !ok {
		return math.NaN()
	}
	return v
}

// Table is an ordered set of evaluation rows. Row order is significant: when a
// (model, dataset) pair repeats, the first row seen wins.
type Table struct {
	Records []Record
	// Columns lists the metric columns present in the source, in header order.
	Columns []Metric
}

// NewTable returns an empty table carrying the given metric columns.
func NewTable(columns ...Metric) *Table {
	return &Table{Columns: slices.Clone(columns)}
}

// Append adds a row.
func (t *Table) Append(r Record) {
	t.Records = append(t.Records, r)
}

// Has reports whether the metric column was present in the source.
func (t *Table) Has(m Metric) bool {
	return slices.Contains(t.Columns, m)
}

// Present returns the subset of ms that the table carries, in the given order.
func (t *Table) Present(ms []Metric) []Metric {
	return lo.Filter(ms, func(m Metric, _ int) bool { return t.Has(m) })
}

// Datasets returns the distinct dataset names in order of first appearance.
func (t *Table) Datasets() []string {
	return lo.Uniq(lo.Map(t.Records, func(r Record, _ int) string { return r.Dataset }))
}

// Models returns the distinct model names in order of first appearance.
func (t *Table) Models() []string {
	return lo.Uniq(lo.Map(t.Records, func(r Record, _ int) string { return r.Model }))
}

// ModelsIn returns the distinct models that have at least one row for dataset.
func (t *Table) ModelsIn(dataset string) []string {
	rows := lo.Filter(t.Records, func(r Record, _ int) bool { return r.Dataset == dataset })
	return lo.Uniq(lo.Map(rows, func(r Record, _ int) string { return r.Model }))
}

// Filter returns a new table with the rows for which keep returns true.
func (t *Table) Filter(keep func(Record) bool) *Table {
	out := NewTable(t.Columns...)
	out.Records = lo.Filter(t.Records, func(r Record, _ int) bool { return keep(r) })
	return out
}

// SortedBy returns a copy of t with rows in a stable order defined by cmp.
func (t *Table) SortedBy(cmp func(a, b Record) int) *Table {
	out := NewTable(t.Columns...)
	out.Records = slices.Clone(t.Records)
	slices.SortStableFunc(out.Records, cmp)
	return out
}

// Concat appends the rows of other. Columns not yet carried by t are added.
func (t *Table) Concat(other *Table) {
	for _, m := range other.Columns {
		if !t.Has(m) {
			t.Columns = append(t.Columns, m)
		}
	}
	t.Records = append(t.Records, other.Records...)
}

// First returns the first non-missing value of m for (model, dataset), and
// whether one exists.
func (t *Table) First(model, dataset string, m Metric) (float64, bool) {
	for _, r := range t.Records {
		if r.Model != model || r.Dataset != dataset {
			continue
		}
		if v := r.Value(m); !math.IsNaN(v) {
			return v, true
		}
	}
	return math.NaN(), false
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
