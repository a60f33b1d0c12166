// Package main provides the yolorank CLI.
//
// yolorank evaluates trained YOLO oyster-detection models, ranks them from the
// resulting comparison table, and runs or profiles ONNX exports locally.
//
// # Basic Usage
//
// Rank models from an evaluation table:
//
//	yolorank rank pairwise evaluation_results/model_comparison_20250803_222742.csv
//	yolorank rank pca evaluation_results/model_comparison_20250803_222742.csv
//	yolorank rank pc1 evaluation_results/model_comparison_20250803_222742.csv
//
// Evaluate and train from a config file:
//
//	yolorank evaluate --config yolorank.yaml
//	yolorank train --config yolorank.yaml
//
// Run an ONNX export:
//
//	yolorank detect yolo11n.onnx image.jpg
//	yolorank profile yolo11n.onnx images/
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
)

// Build information, set by ldflags.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, buildRootCmd(), fang.WithVersion(version), fang.WithCommit(commit)); err != nil {
		stop()
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	debug      bool
}

func buildRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "yolorank",
		Short: "Evaluate and rank YOLO detection models",
		Long: `yolorank compares trained YOLO models on labelled datasets.

It runs a validator over every (model, dataset) pair, writes a comparison table,
and ranks the models from that table by pairwise wins, by distance to the ideal
in PCA space, or by first-principal-component score.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			setupLogging(cmd, opts.debug)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Config file (YAML)")
	rootCmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(
		buildRankCmd(),
		buildEvaluateCmd(opts),
		buildTrainCmd(opts),
		buildCompareCmd(),
		buildDetectCmd(),
		buildProfileCmd(),
	)

	return rootCmd
}

// setupLogging installs a text logger on stderr.
func setupLogging(cmd *cobra.Command, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
}
