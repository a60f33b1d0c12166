package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/jamesainslie/go-yolorank/metrics"
	"github.com/jamesainslie/go-yolorank/rank"
)

// speedLabel is the short console header for a speed metric.
func speedLabel(m metrics.Metric) string {
	switch m {
	case metrics.PreprocessMS:
		return "Preprocess(ms)"
	case metrics.InferenceMS:
		return "Inference(ms)"
	case metrics.PostprocessMS:
		return "Postprocess(ms)"
	case metrics.TotalMS:
		return "Total(ms)"
	default:
		return string(m)
	}
}

// speedDecimals is the published precision of a speed metric.
func speedDecimals(m metrics.Metric) int {
	if m == metrics.FPS {
		return 1
	}
	return 2
}

// PrintPairwise writes the win-count ranking and the winning model.
func PrintPairwise(w io.Writer, res *rank.PairwiseResult) error {
	header := []string{"Rank", "Model", "Wins", "Avg_" + string(res.Primary)}
	for _, m := range res.Speed {
		header = append(header, speedLabel(m))
	}

	g := newGrid(header...).alignLeft(1)
	for _, e := range res.Entries {
		row := []string{
			strconv.Itoa(e.Rank),
			e.Model,
			strconv.Itoa(e.Wins),
			metrics.FormatValue(e.Primary, 3),
		}
		for _, m := range res.Speed {
			row = append(row, metrics.FormatValue(e.Stats.Value(m), speedDecimals(m)))
		}
		g.add(row...)
	}

	if _, err := fmt.Fprintln(w, "Model Ranking:"); err != nil {
		return err
	}
	if err := g.render(w); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "\nBest model is: %s\n", res.Best())
	return err
}

// WritePairwise writes the win-count ranking as CSV, including the tie-break
// averages.
func WritePairwise(w io.Writer, res *rank.PairwiseResult) error {
	header := []string{"Rank", "Model", "Wins", "Avg_" + string(res.Primary)}
	for _, m := range res.TieBreaks {
		header = append(header, "Avg_"+string(m))
	}
	for _, m := range res.Speed {
		header = append(header, string(m))
	}

	rows := make([][]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		row := []string{
			strconv.Itoa(e.Rank),
			e.Model,
			strconv.Itoa(e.Wins),
			metrics.FormatValue(e.Primary, 3),
		}
		for _, v := range e.TieBreaks {
			row = append(row, metrics.FormatValue(v, 3))
		}
		for _, m := range res.Speed {
			row = append(row, metrics.FormatValue(e.Stats.Value(m), speedDecimals(m)))
		}
		rows = append(rows, row)
	}

	return writeCSV(w, header, rows)
}

// PrintDistances writes the distance-to-ideal ranking.
func PrintDistances(w io.Writer, res *rank.DistanceResult) error {
	g := newGrid("Model", "PC1", "PC2", "Distance_to_Ideal")
	for _, e := range res.Entries {
		g.add(e.Model, f4(e.PC1), f4(e.PC2), f4(e.Distance))
	}

	if _, err := fmt.Fprintln(w, "Models ranked by closeness to the ideal (perfect) metrics:"); err != nil {
		return err
	}
	return g.render(w)
}

// WriteDistances writes the distance-to-ideal ranking as CSV.
func WriteDistances(w io.Writer, res *rank.DistanceResult) error {
	rows := make([][]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		rows = append(rows, []string{e.Model, f4(e.PC1), f4(e.PC2), f4(e.Distance)})
	}
	return writeCSV(w, []string{"Model", "PC1", "PC2", "Distance_to_Ideal"}, rows)
}

// PrintScores writes the first-component ranking.
func PrintScores(w io.Writer, res *rank.ScoreResult) error {
	header, rows := scoreRows(res)
	g := newGrid(header...)
	for _, r := range rows {
		g.add(r...)
	}

	if _, err := fmt.Fprintln(w, "Model ranking by first principal component (PC1):"); err != nil {
		return err
	}
	return g.render(w)
}

// WriteScores writes the first-component ranking as CSV.
func WriteScores(w io.Writer, res *rank.ScoreResult) error {
	header, rows := scoreRows(res)
	return writeCSV(w, header, rows)
}

func scoreRows(res *rank.ScoreResult) ([]string, [][]string) {
	header := []string{"Model", "PC1_score"}
	for _, m := range res.Metrics {
		header = append(header, string(m))
	}

	rows := make([][]string, 0, len(res.Entries))
	for _, e := range res.Entries {
		row := []string{e.Model, f4(e.Score)}
		for _, m := range res.Metrics {
			row = append(row, f4(e.Stats.Value(m)))
		}
		rows = append(rows, row)
	}
	return header, rows
}

func f4(v float64) string {
	return metrics.FormatValue(v, 4)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}
