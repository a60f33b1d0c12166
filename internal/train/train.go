// Package train runs a training command once per base-model weight file found
// in a directory.
package train

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/yaklabco/stave/pkg/sh"
)

var (
	// ErrNoModels indicates no weight files matched the pattern.
	ErrNoModels = errors.New("train: no models found")

	// ErrNoCommand indicates the training command is empty.
	ErrNoCommand = errors.New("train: no training command")
)

// Config describes a training batch.
type Config struct {
	ModelDir string `yaml:"model_dir"`

	// Pattern selects weight files in ModelDir by base name.
	Pattern string `yaml:"pattern"`

	// Command is the trainer executable and leading arguments. Parameters
	// follow as key=value pairs.
	Command []string       `yaml:"command"`
	Params  map[string]any `yaml:"params"`

	// Overrides replace Params for the model whose file stem matches the key.
	Overrides map[string]map[string]any `yaml:"overrides"`
}

// DefaultConfig returns the standard oyster training setup.
func DefaultConfig() Config {
	return Config{
		ModelDir: "modelsM",
		Pattern:  "*.pt",
		Command:  []string{"yolo", "detect", "train"},
		Params: map[string]any{
			"data":     "REU_Oyster_2024_Improved-2/data.yaml",
			"epochs":   200,
			"imgsz":    960,
			"batch":    16,
			"patience": 20,
			"amp":      true,
			"optimize": true,
			"project":  "oysterTrainedModels",
			"exist_ok": true,
		},
		Overrides: map[string]map[string]any{
			"yolo11m": {"imgsz": 640},
		},
	}
}

// ApplyDefaults fills unset fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ModelDir == "" {
		c.ModelDir = d.ModelDir
	}
	if c.Pattern == "" {
		c.Pattern = d.Pattern
	}
	if len(c.Command) == 0 {
		c.Command = d.Command
	}
	if c.Params == nil {
		c.Params = d.Params
	}
	if c.Overrides == nil {
		c.Overrides = d.Overrides
	}
}

// Discover returns the files in dir whose base name matches pattern, sorted.
func Discover(dir, pattern string) ([]string, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("pattern %q: %w", pattern, err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() || !g.Match(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: %s in %s", ErrNoModels, pattern, dir)
	}

	slices.Sort(paths)
	return paths, nil
}

// Stem is a weight file's name without directory or extension; it names the
// training run.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Args returns the key=value arguments for training the model at path, sorted
// by key.
func (c Config) Args(path string) []string {
	stem := Stem(path)

	params := maps.Clone(c.Params)
	if params == nil {
		params = make(map[string]any)
	}
	maps.Copy(params, c.Overrides[stem])
	params["model"] = path
	params["name"] = stem

	args := make([]string, 0, len(params))
	for _, k := range slices.Sorted(maps.Keys(params)) {
		args = append(args, fmt.Sprintf("%s=%v", k, params[k]))
	}
	return args
}

// Runner executes the training command with the given arguments.
type Runner func(ctx context.Context, command string, args ...string) error

// ShellRunner runs the command attached to the terminal.
func ShellRunner(ctx context.Context, command string, args ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return sh.RunV(command, args...)
}

// Summary lists which runs finished and which failed.
type Summary struct {
	Trained []string
	Failed  map[string]error
}

// Trainer runs one training per discovered model.
type Trainer struct {
	cfg    Config
	run    Runner
	logger *slog.Logger
}

// New returns a Trainer. A nil runner uses ShellRunner; a nil logger uses
// slog.Default().
func New(cfg Config, run Runner, logger *slog.Logger) *Trainer {
	if run == nil {
		run = ShellRunner
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trainer{cfg: cfg, run: run, logger: logger}
}

// Run trains every discovered model in turn. A failed run is logged and the
// batch continues.
func (t *Trainer) Run(ctx context.Context) (*Summary, error) {
	if len(t.cfg.Command) == 0 {
		return nil, ErrNoCommand
	}

	paths, err := Discover(t.cfg.ModelDir, t.cfg.Pattern)
	if err != nil {
		return nil, err
	}
	t.logger.Info("found models to train", "count", len(paths), "dir", t.cfg.ModelDir)

	sum := &Summary{Failed: make(map[string]error)}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		stem := Stem(path)
		t.logger.Info("training model", "n", i+1, "of", len(paths), "model", stem)

		args := append(slices.Clone(t.cfg.Command[1:]), t.cfg.Args(path)...)
		if err := t.run(ctx, t.cfg.Command[0], args...); err != nil {
			t.logger.Warn("training failed", "model", stem, "error", err)
			sum.Failed[stem] = err
			continue
		}
		t.logger.Info("trained", "model", stem)
		sum.Trained = append(sum.Trained, stem)
	}

	return sum, nil
}
