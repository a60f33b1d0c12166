package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-yolorank/internal/train"
)

var errAllTrainingFailed = errors.New("every training run failed")

func buildTrainCmd(opts *rootOptions) *cobra.Command {
	var modelDir string
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train every base model found in the model directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			fc, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			cfg := fc.Train
			if modelDir != "" {
				cfg.ModelDir = modelDir
			}

			sum, err := train.New(cfg, nil, slog.Default()).Run(cmd.Context())
			if sum != nil {
				if perr := printSummary(cmd.OutOrStdout(), sum); perr != nil && err == nil {
					err = perr
				}
			}
			if err != nil {
				return err
			}
			if len(sum.Trained) == 0 && len(sum.Failed) > 0 {
				return errAllTrainingFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&modelDir, "models", "", "Override the configured model directory")
	return cmd
}

func printSummary(w io.Writer, sum *train.Summary) error {
	if _, err := fmt.Fprintf(w, "Trained: %d\n", len(sum.Trained)); err != nil {
		return err
	}
	failed := make([]string, 0, len(sum.Failed))
	for name := range sum.Failed {
		failed = append(failed, name)
	}
	slices.Sort(failed)
	for _, name := range failed {
		if _, err := fmt.Fprintf(w, "Failed: %s: %v\n", name, sum.Failed[name]); err != nil {
			return err
		}
	}
	return nil
}
