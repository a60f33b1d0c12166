package bench

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/jamesainslie/go-yolorank/internal/report"
	"github.com/jamesainslie/go-yolorank/metrics"
)

// ErrNoResults indicates none of the configured datasets could be evaluated.
var ErrNoResults = errors.New("bench: no datasets evaluated")

// Profiler measures per-image latency for a model's ONNX export.
type Profiler func(ctx context.Context, onnxPath string) (metrics.Speed, error)

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithProfiler replaces validator speed figures with locally measured ones for
// models that have an ONNX export.
func WithProfiler(p Profiler) Option {
	return func(e *Evaluator) {
		e.profiler = p
	}
}

// WithClock sets the time source used to name the results file.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) {
		if now != nil {
			e.now = now
		}
	}
}

// Evaluator runs every configured model against every configured dataset.
type Evaluator struct {
	cfg       Config
	validator Validator
	profiler  Profiler
	logger    *slog.Logger
	now       func() time.Time

	// measured caches profiled speed by ONNX path.
	measured map[string]metrics.Speed
}

// NewEvaluator returns an Evaluator for cfg.
func NewEvaluator(cfg Config, v Validator, opts ...Option) *Evaluator {
	e := &Evaluator{
		cfg:       cfg,
		validator: v,
		logger:    slog.Default(),
		now:       time.Now,
		measured:  make(map[string]metrics.Speed),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// DatasetResult is the ranked table for one dataset.
type DatasetResult struct {
	Name  string
	Table *metrics.Table
}

// Report is the outcome of a full evaluation run.
type Report struct {
	Datasets []DatasetResult

	// Master holds every row, sorted by dataset then mAP@0.5:0.95.
	Master *metrics.Table

	// Path is where Master was written.
	Path string
}

// Run evaluates all datasets, writes the master table and returns the report.
// Missing datasets and failing models are logged and skipped.
func (e *Evaluator) Run(ctx context.Context) (*Report, error) {
	rep := &Report{Master: metrics.NewTable(report.EvaluationColumns()...)}

	for _, descriptor := range e.cfg.Datasets {
		if _, err := os.Stat(descriptor); err != nil {
			e.logger.Warn("dataset not found, skipping", "dataset", descriptor, "error", err)
			continue
		}

		tbl, err := e.EvaluateDataset(ctx, descriptor)
		if err != nil {
			return nil, err
		}
		rep.Datasets = append(rep.Datasets, DatasetResult{
			Name:  DatasetName(descriptor),
			Table: tbl.SortedBy(byMAPDesc),
		})
		rep.Master.Concat(tbl)
	}

	if len(rep.Datasets) == 0 {
		return nil, ErrNoResults
	}

	rep.Master = rep.Master.SortedBy(func(a, b metrics.Record) int {
		return cmp.Or(cmp.Compare(a.Dataset, b.Dataset), byMAPDesc(a, b))
	})

	name := fmt.Sprintf("model_comparison_%s.csv", e.now().Format("20060102_150405"))
	rep.Path = filepath.Join(e.cfg.ResultsDir, name)
	if err := report.WriteFile(rep.Path, func(w io.Writer) error {
		return metrics.Write(w, rep.Master)
	}); err != nil {
		return nil, fmt.Errorf("saving results: %w", err)
	}
	e.logger.Info("results saved", "path", rep.Path, "rows", len(rep.Master.Records))

	return rep, nil
}

// EvaluateDataset validates every model on one dataset descriptor. Models that
// fail are logged and left out of the table.
func (e *Evaluator) EvaluateDataset(ctx context.Context, descriptor string) (*metrics.Table, error) {
	dataset := DatasetName(descriptor)
	e.logger.Info("evaluating models", "dataset", dataset, "models", len(e.cfg.Models))

	if ds, err := LoadDataset(descriptor); err != nil {
		e.logger.Warn("cannot read dataset descriptor", "dataset", dataset, "error", err)
	} else {
		e.logger.Debug("dataset descriptor", "dataset", dataset, "classes", ds.NC, "val", ds.Val)
	}

	tbl := metrics.NewTable(report.EvaluationColumns()...)
	for _, m := range e.cfg.Models {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		name := m.DisplayName()
		e.logger.Info("validating", "model", name, "weights", m.Weights)

		res, err := e.validator.Validate(ctx, m.Weights, descriptor, e.cfg.Device)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("validation failed", "model", name, "dataset", dataset, "error", err)
			continue
		}

		speed := res.Speed
		if measured, ok := e.profile(ctx, m); ok {
			speed = measured
		}

		rec := metrics.NewRecord(name, dataset, res.Accuracy, &speed)
		tbl.Append(rec)
		e.logger.Info("validation successful", "model", name,
			"P", rec.Value(metrics.Precision), "R", rec.Value(metrics.Recall),
			"mAP50", rec.Value(metrics.MAP50), "FPS", rec.Value(metrics.FPS))
	}

	return tbl, nil
}

// profile returns the locally measured speed of m, if a profiler is set and m
// has an ONNX export.
func (e *Evaluator) profile(ctx context.Context, m Model) (metrics.Speed, bool) {
	if e.profiler == nil || m.ONNX == "" {
		return metrics.Speed{}, false
	}
	if s, ok := e.measured[m.ONNX]; ok {
		return s, true
	}

	s, err := e.profiler(ctx, m.ONNX)
	if err != nil {
		e.logger.Warn("profiling failed, keeping validator speed", "model", m.DisplayName(), "error", err)
		return metrics.Speed{}, false
	}
	e.measured[m.ONNX] = s
	return s, true
}

func byMAPDesc(a, b metrics.Record) int {
	return cmp.Compare(b.Value(metrics.MAP5095), a.Value(metrics.MAP5095))
}

// BySpeed returns t sorted by FPS, fastest first.
func BySpeed(t *metrics.Table) *metrics.Table {
	return t.SortedBy(func(a, b metrics.Record) int {
		return cmp.Compare(b.Value(metrics.FPS), a.Value(metrics.FPS))
	})
}
