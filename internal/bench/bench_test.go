package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-yolorank/metrics"
)

func TestModelName(t *testing.T) {
	tests := []struct {
		weights string
		want    string
	}{
		{"oysterTrainedModels/yolo11mMergedData960/weights/best.pt", "YOLOv11mMergedData960"},
		{"runs/yolo8nNick/weights/last.pt", "YOLOv8nNick"},
		{"runs/rtdetr-l/weights/best.pt", "rtdetr-l"},
	}

	for _, tt := range tests {
		t.Run(tt.weights, func(t *testing.T) {
			assert.Equal(t, tt.want, ModelName(tt.weights))
		})
	}
}

func TestDatasetName(t *testing.T) {
	assert.Equal(t, "REU_Oyster_2024_Improved-2", DatasetName("REU_Oyster_2024_Improved-2/data.yaml"))
	assert.Equal(t, "MergedData", DatasetName("/data/MergedData/data.yaml"))
}

func TestLoadDataset(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		nc    int
		names []string
	}{
		{
			name:  "list names",
			yaml:  "train: train/images\nval: valid/images\nnc: 1\nnames: ['oyster']\n",
			nc:    1,
			names: []string{"oyster"},
		},
		{
			name:  "map names",
			yaml:  "path: ../datasets/merged\nval: images/val\nnames:\n  1: dead\n  0: live\n",
			nc:    2,
			names: []string{"live", "dead"},
		},
		{
			name: "no names",
			yaml: "train: a\nnc: 3\n",
			nc:   3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "data.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))

			ds, err := LoadDataset(path)
			require.NoError(t, err)
			assert.Equal(t, tt.nc, ds.NC)
			assert.Equal(t, tt.names, ds.Names)
		})
	}
}

func TestLoadDataset_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte("names: oyster\n"), 0o644))

	_, err := LoadDataset(path)
	assert.Error(t, err)

	_, err = LoadDataset(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		Datasets:  []string{"a/data.yaml"},
		Models:    []Model{{Weights: "runs/yolo11n/weights/best.pt"}},
		Validator: []string{"validate"},
	}
	require.NoError(t, valid.Validate())

	empty := Config{}
	err := empty.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "no datasets")
	assert.Contains(t, err.Error(), "no models")
	assert.Contains(t, err.Error(), "no validator command")

	dup := valid
	dup.Models = []Model{
		{Weights: "a/yolo11n/weights/best.pt"},
		{Weights: "b/yolo11n/weights/best.pt"},
	}
	err = dup.Validate()
	require.ErrorIs(t, err, ErrInvalidConfig)
	assert.Contains(t, err.Error(), "YOLOv11n")

	dup.Models[1].Name = "YOLOv11n-b"
	assert.NoError(t, dup.Validate())
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{Device: "cpu", Warmup: -2}
	cfg.ApplyDefaults()

	assert.Equal(t, "evaluation_results", cfg.ResultsDir)
	assert.Equal(t, "cpu", cfg.Device)
	assert.Equal(t, 50, cfg.ProfileCount)
	assert.Equal(t, 0, cfg.Warmup)
}

func TestParseResult(t *testing.T) {
	out := "Ultralytics 8.3.0\nval: Scanning labels...\n" +
		`{"precision":0.912,"recall":0.88,"map50":0.93,"map":0.655,"speed":{"preprocess":0.4,"inference":6.1,"postprocess":1.5}}` + "\n\n"

	res, err := ParseResult(out)
	require.NoError(t, err)
	assert.InDelta(t, 0.912, res.Precision, 1e-9)
	assert.InDelta(t, 0.655, res.MAP5095, 1e-9)
	assert.InDelta(t, 8.0, res.Speed.TotalMS(), 1e-9)

	_, err = ParseResult("")
	assert.ErrorIs(t, err, ErrValidatorOutput)

	_, err = ParseResult("all done\n")
	assert.ErrorIs(t, err, ErrValidatorOutput)
}

func TestParseResult_MissingAccuracy(t *testing.T) {
	_, err := ParseResult("log\n{\"precision\": 0.91}\n")
	require.ErrorIs(t, err, ErrValidatorOutput)
	assert.ErrorContains(t, err, "map, map50, recall")

	// A zero score is a value, not a missing one.
	res, err := ParseResult(`{"precision":0,"recall":0,"map50":0,"map":0}`)
	require.NoError(t, err)
	assert.Zero(t, res.MAP5095)
}

func TestEvaluateDataset_PartialResultOmitted(t *testing.T) {
	dir := t.TempDir()
	descriptor := filepath.Join(dir, "D1", "data.yaml")
	require.NoError(t, os.MkdirAll(filepath.Dir(descriptor), 0o755))
	require.NoError(t, os.WriteFile(descriptor, []byte("names: [oyster]\n"), 0o644))

	v := CommandValidator{Args: []string{
		"sh", "-c",
		`case "{weights}" in
		  *good*) echo '{"precision":0.5,"recall":0.4,"map50":0.6,"map":0.3}' ;;
		  *) echo '{"precision":0.91}' ;;
		esac`,
	}}
	cfg := Config{
		Device: "cpu",
		Models: []Model{
			{Name: "good", Weights: "good.pt"},
			{Name: "partial", Weights: "partial.pt"},
		},
	}
	tbl, err := NewEvaluator(cfg, v, WithLogger(slog.New(slog.DiscardHandler))).EvaluateDataset(context.Background(), descriptor)
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, tbl.Models())
}

func TestCommandValidator(t *testing.T) {
	v := CommandValidator{Args: []string{
		"sh", "-c",
		`echo "checking {weights} on {data}" >&2; echo '{"precision":0.5,"recall":0.4,"map50":0.6,"map":0.3,"speed":{"preprocess":1,"inference":5,"postprocess":2}}'`,
	}}

	res, err := v.Validate(context.Background(), "best.pt", "data.yaml", "cpu")
	require.NoError(t, err)
	assert.InDelta(t, 0.3, res.MAP5095, 1e-9)
	assert.InDelta(t, 5.0, res.Speed.InferenceMS, 1e-9)
}

func TestCommandValidator_Failure(t *testing.T) {
	v := CommandValidator{Args: []string{"sh", "-c", "exit 3"}}
	_, err := v.Validate(context.Background(), "best.pt", "data.yaml", "cpu")
	assert.Error(t, err)

	_, err = CommandValidator{}.Validate(context.Background(), "best.pt", "data.yaml", "cpu")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestCommandValidator_Cancelled(t *testing.T) {
	v := CommandValidator{Args: []string{"sh", "-c", "exec sleep 30"}}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := v.Validate(ctx, "best.pt", "data.yaml", "cpu")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestCommandValidator_Env(t *testing.T) {
	v := CommandValidator{
		Args: []string{"sh", "-c", `echo "{\"precision\":$P,\"recall\":0.4,\"map50\":0.6,\"map\":0.3}"`},
		Env:  map[string]string{"P": "0.75"},
	}
	res, err := v.Validate(context.Background(), "best.pt", "data.yaml", "cpu")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, res.Precision, 1e-9)
}

// fakeValidator returns canned results keyed by weights and dataset name.
type fakeValidator struct {
	results map[string]*Result
	calls   int
}

func (f *fakeValidator) Validate(_ context.Context, weights, dataset, _ string) (*Result, error) {
	f.calls++
	res, ok := f.results[weights+"@"+DatasetName(dataset)]
	if !ok {
		return nil, fmt.Errorf("no result for %s", weights)
	}
	return res, nil
}

func result(mAP, inference float64) *Result {
	return &Result{
		Accuracy: metrics.Accuracy{Precision: 0.9, Recall: 0.8, MAP50: mAP + 0.2, MAP5095: mAP},
		Speed:    metrics.Speed{PreprocessMS: 1, InferenceMS: inference, PostprocessMS: 1},
	}
}

func writeDataset(t *testing.T, root, name string) string {
	t.Helper()
	dir := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, "data.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nc: 1\nnames: ['oyster']\n"), 0o644))
	return path
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestEvaluator_Run(t *testing.T) {
	root := t.TempDir()
	nick := writeDataset(t, root, "NickData")
	merged := writeDataset(t, root, "MergedData")

	const (
		n = "runs/yolo11n/weights/best.pt"
		m = "runs/yolo11m/weights/best.pt"
	)
	v := &fakeValidator{results: map[string]*Result{
		n + "@NickData":   result(0.60, 3),
		m + "@NickData":   result(0.70, 8),
		n + "@MergedData": result(0.55, 3),
		// m fails on MergedData
	}}

	cfg := Config{
		ResultsDir: filepath.Join(root, "results"),
		Device:     "cpu",
		Datasets:   []string{nick, filepath.Join(root, "Missing", "data.yaml"), merged},
		Models:     []Model{{Weights: n}, {Weights: m}},
		Validator:  []string{"unused"},
	}
	clock := func() time.Time { return time.Date(2025, 8, 3, 22, 27, 42, 0, time.UTC) }

	rep, err := NewEvaluator(cfg, v, WithLogger(quietLogger()), WithClock(clock)).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, rep.Datasets, 2)
	assert.Equal(t, "NickData", rep.Datasets[0].Name)
	assert.Equal(t, []string{"YOLOv11m", "YOLOv11n"}, rep.Datasets[0].Table.Models())
	assert.Equal(t, "MergedData", rep.Datasets[1].Name)
	assert.Equal(t, []string{"YOLOv11n"}, rep.Datasets[1].Table.Models())
	assert.Equal(t, 4, v.calls)

	// Master is ordered by dataset, then mAP@0.5:0.95 descending.
	require.Len(t, rep.Master.Records, 3)
	assert.Equal(t, "MergedData", rep.Master.Records[0].Dataset)
	assert.Equal(t, "YOLOv11m", rep.Master.Records[1].Model)
	assert.Equal(t, "YOLOv11n", rep.Master.Records[2].Model)

	assert.Equal(t, filepath.Join(root, "results", "model_comparison_20250803_222742.csv"), rep.Path)
	saved, err := metrics.Load(rep.Path)
	require.NoError(t, err)
	require.Len(t, saved.Records, 3)
	assert.Equal(t, rep.Master.Records[1].Model, saved.Records[1].Model)
	assert.InDelta(t, 100.0, saved.Records[1].Value(metrics.FPS), 1e-9)
	assert.True(t, saved.Has(metrics.TotalMS))
}

func TestEvaluator_NoDatasets(t *testing.T) {
	cfg := Config{
		ResultsDir: t.TempDir(),
		Datasets:   []string{filepath.Join(t.TempDir(), "gone", "data.yaml")},
		Models:     []Model{{Weights: "w.pt"}},
	}

	_, err := NewEvaluator(cfg, &fakeValidator{}, WithLogger(quietLogger())).Run(context.Background())
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestEvaluator_Profiler(t *testing.T) {
	root := t.TempDir()
	a := writeDataset(t, root, "A")
	b := writeDataset(t, root, "B")

	const w = "runs/yolo8s/weights/best.pt"
	v := &fakeValidator{results: map[string]*Result{
		w + "@A": result(0.5, 20),
		w + "@B": result(0.4, 20),
	}}

	var profiled []string
	profiler := func(_ context.Context, onnx string) (metrics.Speed, error) {
		profiled = append(profiled, onnx)
		return metrics.Speed{PreprocessMS: 0.5, InferenceMS: 3, PostprocessMS: 0.5}, nil
	}

	cfg := Config{
		ResultsDir: filepath.Join(root, "out"),
		Datasets:   []string{a, b},
		Models:     []Model{{Weights: w, ONNX: "yolo8s.onnx"}},
	}
	rep, err := NewEvaluator(cfg, v, WithLogger(quietLogger()), WithProfiler(profiler)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"yolo8s.onnx"}, profiled)
	for _, r := range rep.Master.Records {
		assert.InDelta(t, 4.0, r.Value(metrics.TotalMS), 1e-9)
		assert.InDelta(t, 250.0, r.Value(metrics.FPS), 1e-9)
	}
}

func TestEvaluator_ProfilerFailureKeepsValidatorSpeed(t *testing.T) {
	root := t.TempDir()
	a := writeDataset(t, root, "A")

	const w = "runs/yolo8s/weights/best.pt"
	v := &fakeValidator{results: map[string]*Result{w + "@A": result(0.5, 8)}}
	profiler := func(context.Context, string) (metrics.Speed, error) {
		return metrics.Speed{}, errors.New("no runtime")
	}

	cfg := Config{ResultsDir: filepath.Join(root, "out"), Datasets: []string{a}, Models: []Model{{Weights: w, ONNX: "x.onnx"}}}
	rep, err := NewEvaluator(cfg, v, WithLogger(quietLogger()), WithProfiler(profiler)).Run(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 10.0, rep.Master.Records[0].Value(metrics.TotalMS), 1e-9)
}

func TestEvaluator_Cancelled(t *testing.T) {
	root := t.TempDir()
	cfg := Config{
		ResultsDir: root,
		Datasets:   []string{writeDataset(t, root, "A")},
		Models:     []Model{{Weights: "w.pt"}},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewEvaluator(cfg, &fakeValidator{}, WithLogger(quietLogger())).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBySpeed(t *testing.T) {
	tbl := metrics.NewTable(metrics.FPS)
	for i, fps := range []float64{80, 210, 150} {
		tbl.Append(metrics.Record{Model: fmt.Sprint(i), Values: map[metrics.Metric]float64{metrics.FPS: fps}})
	}

	sorted := BySpeed(tbl)
	assert.Equal(t, []string{"1", "2", "0"}, sorted.Models())
}
