package main

import (
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-yolorank"
	"github.com/jamesainslie/go-yolorank/detect"
	"github.com/jamesainslie/go-yolorank/internal/bench"
	"github.com/jamesainslie/go-yolorank/internal/report"
	"github.com/jamesainslie/go-yolorank/metrics"
)

func buildEvaluateCmd(opts *rootOptions) *cobra.Command {
	var device string
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Validate every model on every dataset and write a comparison table",
		Long: `Runs the configured validator for each (model, dataset) pair and writes
model_comparison_<timestamp>.csv to the results directory.

When profile_images is set, ONNX exports are timed locally and those speeds
replace the ones reported by the validator.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEvaluate(cmd, opts, device)
		},
	}
	cmd.Flags().StringVar(&device, "device", "", "Override the configured device")
	return cmd
}

func runEvaluate(cmd *cobra.Command, opts *rootOptions, device string) error {
	fc, err := loadConfig(opts.configPath)
	if err != nil {
		return err
	}
	cfg := fc.Evaluate
	if device != "" {
		cfg.Device = device
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := slog.Default()
	evalOpts := []bench.Option{bench.WithLogger(logger)}

	if cfg.ProfileImages != "" {
		images, err := detect.LoadImages(ctx, cfg.ProfileImages, cfg.ProfileCount)
		if err != nil {
			return fmt.Errorf("loading profile images: %w", err)
		}
		logger.Info("profiling ONNX exports locally", "images", len(images), "warmup", cfg.Warmup)
		evalOpts = append(evalOpts, bench.WithProfiler(onnxProfiler(images, cfg.Warmup, logger)))
	}

	ev := bench.NewEvaluator(cfg, bench.CommandValidator{Args: cfg.Validator}, evalOpts...)
	rep, err := ev.Run(ctx)
	if err != nil {
		return err
	}
	return printEvaluation(cmd.OutOrStdout(), rep)
}

// onnxProfiler times a model export over images.
func onnxProfiler(images []image.Image, warmup int, logger *slog.Logger) bench.Profiler {
	return func(ctx context.Context, path string) (speed metrics.Speed, err error) {
		d, err := yolorank.New(path, yolorank.WithLogger(logger), yolorank.WithPoolSize(1))
		if err != nil {
			return speed, err
		}
		defer func() {
			if cerr := d.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		return d.Profile(ctx, images, warmup)
	}
}

func printEvaluation(w io.Writer, rep *bench.Report) error {
	cols := report.EvaluationColumns()
	for _, ds := range rep.Datasets {
		if _, err := fmt.Fprintf(w, "\nRESULTS FOR %s\n", ds.Name); err != nil {
			return err
		}
		if err := report.PrintTable(w, ds.Table, cols); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintln(w, "\nALL RESULTS"); err != nil {
		return err
	}
	if err := report.PrintTable(w, rep.Master, cols); err != nil {
		return err
	}

	if _, err := fmt.Fprintln(w, "\nSPEED COMPARISON"); err != nil {
		return err
	}
	if err := report.PrintTable(w, bench.BySpeed(rep.Master), report.SpeedColumns()); err != nil {
		return err
	}

	_, err := fmt.Fprintf(w, "\nResults saved to: %s\n", rep.Path)
	return err
}
