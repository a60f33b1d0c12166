package main

import (
	"cmp"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-yolorank/internal/report"
	"github.com/jamesainslie/go-yolorank/metrics"
	"github.com/jamesainslie/go-yolorank/rank"
)

func buildCompareCmd() *cobra.Command {
	var (
		dataset string
		by      string
	)
	cmd := &cobra.Command{
		Use:   "compare <table.csv>",
		Short: "Show an evaluation table sorted by one metric",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tbl, err := loadTable(args[0])
			if err != nil {
				return err
			}

			m := metrics.Metric(by)
			if !tbl.Has(m) {
				return fmt.Errorf("%w: %s", rank.ErrUnknownMetric, by)
			}
			if dataset != "" {
				tbl = tbl.Filter(func(r metrics.Record) bool { return r.Dataset == dataset })
				if len(tbl.Records) == 0 {
					return fmt.Errorf("%w: no rows for dataset %s", rank.ErrInsufficientData, dataset)
				}
			}

			// Descending; missing values sort last.
			tbl = tbl.SortedBy(func(a, b metrics.Record) int {
				return cmp.Compare(b.Value(m), a.Value(m))
			})
			return report.PrintTable(cmd.OutOrStdout(), tbl, report.EvaluationColumns())
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "Only show rows for this dataset")
	cmd.Flags().StringVar(&by, "by", string(metrics.MAP50), "Metric to sort by, highest first")
	return cmd
}
