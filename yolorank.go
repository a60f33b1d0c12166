package yolorank

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"time"

	"github.com/jamesainslie/go-yolorank/detect"
	"github.com/jamesainslie/go-yolorank/inference"
	"github.com/jamesainslie/go-yolorank/metrics"
)

// Detector runs a YOLO detection model exported to ONNX.
// It is safe for concurrent use.
type Detector struct {
	pool       *inference.Pool
	confidence float32
	iou        float32
	logger     *slog.Logger
}

// Result is the outcome of one Detect call.
type Result struct {
	Detections []detect.Detection
	Speed      metrics.Speed
}

// New creates a Detector for the model at modelPath.
func New(modelPath string, opts ...Option) (*Detector, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if _, err := os.Stat(modelPath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, modelPath)
		}
		return nil, fmt.Errorf("checking model file: %w", err)
	}

	pool, err := inference.NewPool(modelPath, cfg.poolSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidModel, err)
	}

	w, h := pool.InputSize()
	cfg.logger.Debug("detector ready", "model", modelPath, "input", fmt.Sprintf("%dx%d", w, h), "sessions", pool.Size())

	return &Detector{
		pool:       pool,
		confidence: cfg.confidence,
		iou:        cfg.iou,
		logger:     cfg.logger,
	}, nil
}

// InputSize returns the model input width and height.
func (d *Detector) InputSize() (int, int) {
	return d.pool.InputSize()
}

// Detect finds objects in img and reports the time spent in each stage.
func (d *Detector) Detect(ctx context.Context, img image.Image) (*Result, error) {
	w, h := d.pool.InputSize()

	start := time.Now()
	tensor, lb := detect.Prepare(img, w, h)
	preprocessed := time.Now()

	out, err := d.pool.Infer(ctx, tensor)
	if err != nil {
		return nil, err
	}
	inferred := time.Now()

	dets, err := detect.Decode(out.Data, out.Shape, lb, d.confidence)
	if err != nil {
		return nil, err
	}
	dets = detect.NMS(dets, d.iou)
	done := time.Now()

	return &Result{
		Detections: dets,
		Speed: metrics.Speed{
			PreprocessMS:  ms(preprocessed.Sub(start)),
			InferenceMS:   ms(inferred.Sub(preprocessed)),
			PostprocessMS: ms(done.Sub(inferred)),
		},
	}, nil
}

// Profile runs warmup untimed passes on the first image, then times one pass
// per image and returns the mean per-image speed.
func (d *Detector) Profile(ctx context.Context, images []image.Image, warmup int) (metrics.Speed, error) {
	if len(images) == 0 {
		return metrics.Speed{}, ErrNoImages
	}

	for i := 0; i < warmup; i++ {
		if _, err := d.Detect(ctx, images[0]); err != nil {
			return metrics.Speed{}, fmt.Errorf("warmup: %w", err)
		}
	}

	var total metrics.Speed
	for i, img := range images {
		res, err := d.Detect(ctx, img)
		if err != nil {
			return metrics.Speed{}, fmt.Errorf("image %d: %w", i, err)
		}
		total.PreprocessMS += res.Speed.PreprocessMS
		total.InferenceMS += res.Speed.InferenceMS
		total.PostprocessMS += res.Speed.PostprocessMS
	}

	n := float64(len(images))
	speed := metrics.Speed{
		PreprocessMS:  total.PreprocessMS / n,
		InferenceMS:   total.InferenceMS / n,
		PostprocessMS: total.PostprocessMS / n,
	}
	d.logger.Debug("profiled", "images", len(images), "warmup", warmup, "total_ms", speed.TotalMS())
	return speed, nil
}

// Close releases all resources.
func (d *Detector) Close() error {
	if d.pool != nil {
		return d.pool.Close()
	}
	return nil
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
