package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-yolorank/internal/report"
	"github.com/jamesainslie/go-yolorank/metrics"
	"github.com/jamesainslie/go-yolorank/rank"
)

// pairwiseSpeed are the speed columns shown next to a pairwise ranking.
var pairwiseSpeed = []metrics.Metric{metrics.InferenceMS, metrics.TotalMS, metrics.FPS}

// buildRankCmd creates the "rank" command group.
func buildRankCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank models from an evaluation table",
	}
	cmd.AddCommand(buildRankPairwiseCmd(), buildRankPCACmd(), buildRankPC1Cmd(), buildRankAllCmd())
	return cmd
}

func buildRankPairwiseCmd() *cobra.Command {
	var primary string
	var save bool
	cmd := &cobra.Command{
		Use:   "pairwise <table.csv>",
		Short: "Rank by head-to-head wins on an averaged accuracy metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := loadTable(args[0])
			if err != nil {
				return err
			}
			return runPairwise(cmd.OutOrStdout(), tbl, args[0], metrics.Metric(primary), save)
		},
	}
	cmd.Flags().StringVar(&primary, "metric", string(metrics.MAP5095), "Primary accuracy metric")
	cmd.Flags().BoolVar(&save, "save", false, "Also write the ranking next to the input table")
	return cmd
}

func buildRankPCACmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "pca <table.csv>",
		Short: "Rank by distance to the ideal model in PCA space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := loadTable(args[0])
			if err != nil {
				return err
			}
			return runDistances(cmd.OutOrStdout(), tbl, args[0], save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", true, "Also write the ranking next to the input table")
	return cmd
}

func buildRankPC1Cmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "pc1 <table.csv>",
		Short: "Rank by score on the first principal component",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := loadTable(args[0])
			if err != nil {
				return err
			}
			return runScores(cmd.OutOrStdout(), tbl, args[0], save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", true, "Also write the ranking next to the input table")
	return cmd
}

func buildRankAllCmd() *cobra.Command {
	var save bool
	cmd := &cobra.Command{
		Use:   "all <table.csv>",
		Short: "Run every ranking method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := loadTable(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if err := runPairwise(out, tbl, args[0], metrics.MAP5095, save); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(out); err != nil {
				return err
			}
			if err := runDistances(out, tbl, args[0], save); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(out); err != nil {
				return err
			}
			return runScores(out, tbl, args[0], save)
		},
	}
	cmd.Flags().BoolVar(&save, "save", true, "Also write the rankings next to the input table")
	return cmd
}

// loadTable reads an evaluation table and logs what it holds.
func loadTable(path string) (*metrics.Table, error) {
	tbl, err := metrics.Load(path)
	if err != nil {
		return nil, err
	}
	slog.Debug("table loaded", "path", path, "rows", len(tbl.Records), "columns", tbl.Columns)
	slog.Info("datasets found", "datasets", tbl.Datasets())
	return tbl, nil
}

func runPairwise(w io.Writer, tbl *metrics.Table, input string, primary metrics.Metric, save bool) error {
	res, err := rank.Pairwise(tbl, primary, pairwiseSpeed)
	if err != nil {
		return err
	}
	slog.Info("ranking by pairwise wins", "primary", primary, "models", len(res.Entries))

	if err := report.PrintPairwise(w, res); err != nil {
		return err
	}
	if !save {
		return nil
	}
	return saveRanking(w, report.DerivedPath(input, report.SuffixPairwise), func(f io.Writer) error {
		return report.WritePairwise(f, res)
	})
}

func runDistances(w io.Writer, tbl *metrics.Table, input string, save bool) error {
	res, err := rank.DistanceToIdeal(tbl, metrics.Required())
	if err != nil {
		return err
	}
	if len(res.Dropped) > 0 {
		slog.Warn("models missing feature values left out", "models", res.Dropped)
	}
	slog.Debug("projected ideal", "pc1", res.Ideal[0], "pc2", res.Ideal[1], "features", len(res.Features))

	if err := report.PrintDistances(w, res); err != nil {
		return err
	}
	if !save {
		return nil
	}
	return saveRanking(w, report.DerivedPath(input, report.SuffixDistances), func(f io.Writer) error {
		return report.WriteDistances(f, res)
	})
}

func runScores(w io.Writer, tbl *metrics.Table, input string, save bool) error {
	res, err := rank.PC1Score(tbl, metrics.Required())
	if err != nil {
		return err
	}
	if len(res.Dropped) > 0 {
		slog.Warn("models with missing averages left out", "models", res.Dropped)
	}
	slog.Debug("first component loadings", "metrics", res.Metrics, "loadings", res.Loadings)

	if err := report.PrintScores(w, res); err != nil {
		return err
	}
	if !save {
		return nil
	}
	return saveRanking(w, report.DerivedPath(input, report.SuffixPC1), func(f io.Writer) error {
		return report.WriteScores(f, res)
	})
}

func saveRanking(w io.Writer, path string, write func(io.Writer) error) error {
	if err := report.WriteFile(path, write); err != nil {
		return fmt.Errorf("saving ranking: %w", err)
	}
	_, err := fmt.Fprintf(w, "\nRanking saved to: %s\n", path)
	return err
}
