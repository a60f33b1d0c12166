package yolorank

import (
	"log/slog"
	"runtime"
)

// Option configures a Detector.
type Option func(*config)

type config struct {
	confidence float32
	iou        float32
	poolSize   int
	logger     *slog.Logger
}

func defaultConfig() config {
	return config{
		confidence: 0.25,
		iou:        0.45,
		poolSize:   runtime.NumCPU(),
		logger:     slog.Default(),
	}
}

// WithConfidence sets the minimum class score kept after decoding (default: 0.25).
func WithConfidence(c float32) Option {
	return func(cfg *config) {
		if c >= 0 && c <= 1 {
			cfg.confidence = c
		}
	}
}

// WithIoU sets the non-maximum suppression overlap threshold (default: 0.45).
func WithIoU(t float32) Option {
	return func(cfg *config) {
		if t > 0 && t <= 1 {
			cfg.iou = t
		}
	}
}

// WithPoolSize sets the ONNX session pool size (default: runtime.NumCPU()).
func WithPoolSize(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.poolSize = n
		}
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(cfg *config) {
		if l != nil {
			cfg.logger = l
		}
	}
}
