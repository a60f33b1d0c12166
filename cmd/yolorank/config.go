package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/go-yolorank/internal/bench"
	"github.com/jamesainslie/go-yolorank/internal/train"
)

// fileConfig is the layout of a yolorank config file.
type fileConfig struct {
	Evaluate bench.Config `yaml:"evaluate"`
	Train    train.Config `yaml:"train"`
}

// loadConfig reads path, or returns defaults when path is empty. Unknown keys
// are rejected.
func loadConfig(path string) (*fileConfig, error) {
	cfg := &fileConfig{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}

		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.Evaluate.ApplyDefaults()
	cfg.Train.ApplyDefaults()
	return cfg, nil
}
