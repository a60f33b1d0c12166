package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// ErrDataLoad indicates the table source is missing, unreadable, or lacks a
// required column.
var ErrDataLoad = errors.New("metrics: cannot load table")

// Load reads an evaluation table from a CSV file.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDataLoad, err)
	}
	defer func() { _ = f.Close() }()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Read parses an evaluation table. The header must name Model, Dataset and
// every required accuracy metric. Known speed columns are kept when present;
// other columns are ignored. Cells that do not parse as numbers become NaN; a
// row with a blank Model or Dataset is an error.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty input", ErrDataLoad)
		}
		return nil, fmt.Errorf("%w: reading header: %w", ErrDataLoad, err)
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		h = headerName(h)
		if _, dup := index[h]; !dup {
			index[h] = i
		}
	}

	for _, col := range []string{ColModel, ColDataset} {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrDataLoad, col)
		}
	}

	var columns []Metric
	for _, m := range Required() {
		if _, ok := index[string(m)]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", ErrDataLoad, m)
		}
	}
	for i, h := range header {
		m := Metric(headerName(h))
		if index[string(m)] == i && (IsRequired(m) || isSpeed(m)) {
			columns = append(columns, m)
		}
	}

	t := NewTable(columns...)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrDataLoad, line, err)
		}

		rec := Record{
			Model:   cell(row, index[ColModel]),
			Dataset: cell(row, index[ColDataset]),
			Values:  make(map[Metric]float64, len(columns)),
		}
		if rec.Model == "" || rec.Dataset == "" {
			return nil, fmt.Errorf("%w: line %d: blank %s or %s", ErrDataLoad, line, ColModel, ColDataset)
		}
		for _, m := range columns {
			rec.Values[m] = parseValue(cell(row, index[string(m)]))
		}
		t.Append(rec)
	}

	return t, nil
}

// Write emits the table as CSV: Dataset, Model, then the table's metric columns.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	header := []string{ColDataset, ColModel}
	for _, m := range t.Columns {
		header = append(header, string(m))
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, r := range t.Records {
		row := []string{r.Dataset, r.Model}
		for _, m := range t.Columns {
			row = append(row, FormatValue(r.Value(m), -1))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// FormatValue renders v with the given number of decimals (-1 for the
// shortest exact form). NaN renders as an empty cell.
func FormatValue(v float64, decimals int) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

func parseValue(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// headerName trims whitespace and a leading byte-order mark.
func headerName(h string) string {
	return strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
}

func cell(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func isSpeed(m Metric) bool {
	for _, s := range SpeedMetrics() {
		if s == m {
			return true
		}
	}
	return false
}
