package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/go-yolorank"
	"github.com/jamesainslie/go-yolorank/detect"
	"github.com/jamesainslie/go-yolorank/metrics"
)

func buildDetectCmd() *cobra.Command {
	var conf, iou float32
	cmd := &cobra.Command{
		Use:   "detect <model.onnx> <image>",
		Short: "Run a model on one image and print the detections",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := detect.LoadImage(args[1])
			if err != nil {
				return err
			}

			d, err := yolorank.New(args[0],
				yolorank.WithConfidence(conf),
				yolorank.WithIoU(iou),
				yolorank.WithPoolSize(1),
				yolorank.WithLogger(slog.Default()),
			)
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			res, err := d.Detect(cmd.Context(), img)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(w, "%d detections\n", len(res.Detections)); err != nil {
				return err
			}
			for _, det := range res.Detections {
				if _, err := fmt.Fprintf(w, "class=%d conf=%.3f box=[%.1f %.1f %.1f %.1f]\n",
					det.Class, det.Confidence, det.Box.X1, det.Box.Y1, det.Box.X2, det.Box.Y2); err != nil {
					return err
				}
			}
			return printSpeed(w, res.Speed)
		},
	}
	cmd.Flags().Float32Var(&conf, "conf", 0.25, "Confidence threshold")
	cmd.Flags().Float32Var(&iou, "iou", 0.45, "IoU threshold for non-maximum suppression")
	return cmd
}

func buildProfileCmd() *cobra.Command {
	var count, warmup int
	cmd := &cobra.Command{
		Use:   "profile <model.onnx> <images-dir>",
		Short: "Measure per-image latency of a model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			images, err := detect.LoadImages(ctx, args[1], count)
			if err != nil {
				return err
			}

			d, err := yolorank.New(args[0], yolorank.WithPoolSize(1), yolorank.WithLogger(slog.Default()))
			if err != nil {
				return err
			}
			defer func() { _ = d.Close() }()

			speed, err := d.Profile(ctx, images, warmup)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if _, err := fmt.Fprintf(w, "%d images, %d warmup\n", len(images), warmup); err != nil {
				return err
			}
			return printSpeed(w, speed)
		},
	}
	cmd.Flags().IntVar(&count, "count", 50, "Maximum number of images to time")
	cmd.Flags().IntVar(&warmup, "warmup", 3, "Untimed passes before measuring")
	return cmd
}

func printSpeed(w io.Writer, s metrics.Speed) error {
	_, err := fmt.Fprintf(w, "%s=%.2f %s=%.2f %s=%.2f %s=%.2f %s=%.1f\n",
		metrics.PreprocessMS, s.PreprocessMS,
		metrics.InferenceMS, s.InferenceMS,
		metrics.PostprocessMS, s.PostprocessMS,
		metrics.TotalMS, s.TotalMS(),
		metrics.FPS, s.FPS(),
	)
	return err
}
