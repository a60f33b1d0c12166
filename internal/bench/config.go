// Package bench evaluates trained detection models on labelled datasets and
// collects the results into a comparison table.
package bench

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ErrInvalidConfig indicates a configuration is missing required fields.
var ErrInvalidConfig = errors.New("bench: invalid config")

// Model is one trained model to evaluate.
type Model struct {
	// Name overrides the name derived from the weights path.
	Name    string `yaml:"name"`
	Weights string `yaml:"weights"`

	// ONNX is an optional export of Weights used for local latency profiling.
	ONNX string `yaml:"onnx"`
}

// DisplayName returns Name, or the name derived from the weights path.
func (m Model) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return ModelName(m.Weights)
}

// Config holds evaluation parameters.
type Config struct {
	ResultsDir string   `yaml:"results_dir"`
	Device     string   `yaml:"device"`
	Datasets   []string `yaml:"datasets"`
	Models     []Model  `yaml:"models"`

	// Validator is the command and arguments run per (model, dataset).
	// {weights}, {data} and {device} are substituted.
	Validator []string `yaml:"validator"`

	// ProfileImages, when set, is a directory of images used to time ONNX
	// exports locally instead of trusting the validator's speed figures.
	ProfileImages string `yaml:"profile_images"`
	ProfileCount  int    `yaml:"profile_count"`
	Warmup        int    `yaml:"warmup"`
}

// DefaultConfig returns default evaluation configuration.
func DefaultConfig() Config {
	return Config{
		ResultsDir:   "evaluation_results",
		Device:       "cuda",
		ProfileCount: 50,
		Warmup:       3,
	}
}

// ApplyDefaults fills zero fields from DefaultConfig.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.ResultsDir == "" {
		c.ResultsDir = d.ResultsDir
	}
	if c.Device == "" {
		c.Device = d.Device
	}
	if c.ProfileCount <= 0 {
		c.ProfileCount = d.ProfileCount
	}
	if c.Warmup < 0 {
		c.Warmup = 0
	}
}

// Validate reports every missing or conflicting field.
func (c Config) Validate() error {
	var problems []string
	if len(c.Datasets) == 0 {
		problems = append(problems, "no datasets")
	}
	if len(c.Models) == 0 {
		problems = append(problems, "no models")
	}
	if len(c.Validator) == 0 {
		problems = append(problems, "no validator command")
	}
	for i, m := range c.Models {
		if m.Weights == "" {
			problems = append(problems, fmt.Sprintf("model %d has no weights", i))
		}
	}
	names := lo.Map(c.Models, func(m Model, _ int) string { return m.DisplayName() })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		problems = append(problems, "duplicate model names "+strings.Join(dups, ", "))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}
