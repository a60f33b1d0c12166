package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesainslie/go-yolorank/internal/report"
	"github.com/jamesainslie/go-yolorank/internal/train"
	"github.com/jamesainslie/go-yolorank/metrics"
	"github.com/jamesainslie/go-yolorank/rank"
)

const comparisonCSV = `Dataset,Model,Precision,Recall,mAP@0.5,mAP@0.5:0.95,Inference (ms/img),Total (ms/img),FPS
D1,YOLOv11n,0.70,0.65,0.72,0.45,2.1,3.4,294.1
D1,YOLOv11s,0.80,0.75,0.82,0.55,3.0,4.5,222.2
D1,YOLOv11m,0.90,0.85,0.92,0.65,5.2,6.9,144.9
D1,YOLOv8x,0.95,0.90,0.96,0.70,9.8,12.0,83.3
D2,YOLOv11n,0.68,0.62,0.70,0.42,2.0,3.3,303.0
D2,YOLOv11s,0.78,0.74,0.80,0.52,3.1,4.6,217.4
D2,YOLOv11m,0.88,0.84,0.90,0.62,5.1,6.8,147.1
`

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model_comparison.csv")
	require.NoError(t, os.WriteFile(path, []byte(comparisonCSV), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := buildRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	cmd := buildRootCmd()
	for _, name := range []string{"rank", "evaluate", "train", "compare", "detect", "profile"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}

	for _, name := range []string{"pairwise", "pca", "pc1", "all"} {
		sub, _, err := cmd.Find([]string{"rank", name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRankPairwise(t *testing.T) {
	path := writeCSV(t)

	out, err := execute(t, "rank", "pairwise", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Model Ranking:")
	assert.Contains(t, out, "Best model is: YOLOv11m")
	assert.NotContains(t, out, "YOLOv8x")

	_, err = os.Stat(report.DerivedPath(path, report.SuffixPairwise))
	assert.ErrorIs(t, err, os.ErrNotExist, "pairwise does not save unless asked")
}

func TestRankPairwise_Save(t *testing.T) {
	path := writeCSV(t)

	out, err := execute(t, "rank", "pairwise", "--save", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Ranking saved to:")
	assert.FileExists(t, report.DerivedPath(path, report.SuffixPairwise))
}

func TestRankPCA_SavesByDefault(t *testing.T) {
	path := writeCSV(t)

	out, err := execute(t, "rank", "pca", path)
	require.NoError(t, err)
	assert.Contains(t, out, "closeness to the ideal")
	assert.FileExists(t, report.DerivedPath(path, report.SuffixDistances))

	out, err = execute(t, "rank", "pc1", "--save=false", path)
	require.NoError(t, err)
	assert.Contains(t, out, "first principal component")
	assert.NoFileExists(t, report.DerivedPath(path, report.SuffixPC1))
}

func TestRankAll(t *testing.T) {
	path := writeCSV(t)

	out, err := execute(t, "rank", "all", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Best model is:")
	assert.Contains(t, out, "closeness to the ideal")
	assert.Contains(t, out, "first principal component")
	assert.NotContains(t, out, "YOLOv8x", "a model missing from D2 is in no ranking")
	for _, suffix := range []string{report.SuffixPairwise, report.SuffixDistances, report.SuffixPC1} {
		saved := report.DerivedPath(path, suffix)
		require.FileExists(t, saved)
		data, err := os.ReadFile(saved)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "YOLOv8x", saved)
		assert.Contains(t, string(data), "YOLOv11m", saved)
	}
}

func TestRankPairwise_UnknownMetric(t *testing.T) {
	_, err := execute(t, "rank", "pairwise", "--metric", "F1", writeCSV(t))
	assert.ErrorIs(t, err, rank.ErrUnknownMetric)
}

func TestCompare(t *testing.T) {
	path := writeCSV(t)

	out, err := execute(t, "compare", "--dataset", "D1", path)
	require.NoError(t, err)
	assert.NotContains(t, out, "D2")

	// Highest mAP@0.5 first.
	assert.Less(t, bytes.Index([]byte(out), []byte("YOLOv8x")), bytes.Index([]byte(out), []byte("YOLOv11n")))

	_, err = execute(t, "compare", "--by", "F1", path)
	assert.ErrorIs(t, err, rank.ErrUnknownMetric)

	_, err = execute(t, "compare", "--dataset", "D9", path)
	assert.ErrorIs(t, err, rank.ErrInsufficientData)
}

func TestLoadConfig(t *testing.T) {
	cfg, err := loadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "evaluation_results", cfg.Evaluate.ResultsDir)
	assert.Equal(t, "modelsM", cfg.Train.ModelDir)

	path := filepath.Join(t.TempDir(), "yolorank.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
evaluate:
  device: cpu
  datasets: [data/d1/data.yaml]
  models:
    - weights: runs/yolo11n/weights/best.pt
  validator: [python, validate.py, "{weights}", "{data}", "{device}"]
train:
  model_dir: weights
`), 0o644))

	cfg, err = loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "cpu", cfg.Evaluate.Device)
	assert.Equal(t, 50, cfg.Evaluate.ProfileCount)
	assert.Equal(t, "weights", cfg.Train.ModelDir)
	assert.NoError(t, cfg.Evaluate.Validate())

	require.NoError(t, os.WriteFile(path, []byte("evaluate:\n  devise: cpu\n"), 0o644))
	_, err = loadConfig(path)
	assert.Error(t, err)
}

func TestEvaluate_InvalidConfig(t *testing.T) {
	_, err := execute(t, "evaluate")
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestPrintHelpers_ReportWriteErrors(t *testing.T) {
	assert.EqualError(t, printSpeed(failingWriter{}, metrics.Speed{InferenceMS: 5}), "disk full")

	sum := &train.Summary{Trained: []string{"yolo11n"}, Failed: map[string]error{"yolo11m": errors.New("oom")}}
	assert.EqualError(t, printSummary(failingWriter{}, sum), "disk full")

	var buf bytes.Buffer
	require.NoError(t, printSummary(&buf, sum))
	assert.Equal(t, "Trained: 1\nFailed: yolo11m: oom\n", buf.String())

	buf.Reset()
	require.NoError(t, printSpeed(&buf, metrics.Speed{PreprocessMS: 1, InferenceMS: 2, PostprocessMS: 1}))
	assert.Contains(t, buf.String(), "Total (ms/img)=4.00")
	assert.Contains(t, buf.String(), "FPS=250.0")
}
