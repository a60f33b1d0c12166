package bench

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Dataset is a YOLO dataset descriptor (data.yaml).
type Dataset struct {
	Path  string   `yaml:"path"`
	Train string   `yaml:"train"`
	Val   string   `yaml:"val"`
	Test  string   `yaml:"test"`
	NC    int      `yaml:"nc"`
	Names []string `yaml:"-"`
}

// UnmarshalYAML accepts names as either a list or an index-keyed map.
func (d *Dataset) UnmarshalYAML(node *yaml.Node) error {
	type plain Dataset
	var raw struct {
		plain `yaml:",inline"`
		Names yaml.Node `yaml:"names"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*d = Dataset(raw.plain)

	switch raw.Names.Kind {
	case 0: // absent
	case yaml.SequenceNode:
		if err := raw.Names.Decode(&d.Names); err != nil {
			return fmt.Errorf("names: %w", err)
		}
	case yaml.MappingNode:
		var byIndex map[int]string
		if err := raw.Names.Decode(&byIndex); err != nil {
			return fmt.Errorf("names: %w", err)
		}
		keys := make([]int, 0, len(byIndex))
		for k := range byIndex {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			d.Names = append(d.Names, byIndex[k])
		}
	default:
		return fmt.Errorf("names: unexpected YAML kind %d", raw.Names.Kind)
	}

	if d.NC == 0 {
		d.NC = len(d.Names)
	}
	return nil
}

// LoadDataset reads a dataset descriptor.
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}

	var d Dataset
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &d, nil
}

// DatasetName is the directory holding the descriptor.
func DatasetName(descriptor string) string {
	return filepath.Base(filepath.Dir(descriptor))
}

// ModelName derives a display name from a training run's weights path
// (<run>/weights/best.pt), spelling the family the way results are published:
// yolo11m becomes YOLOv11m.
func ModelName(weights string) string {
	run := filepath.Base(filepath.Dir(filepath.Dir(weights)))
	return strings.ReplaceAll(run, "yolo", "YOLOv")
}
