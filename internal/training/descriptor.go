package training

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Descriptor is the subset of the ultralytics data.yaml format the launcher
// inspects before delegating. Train/Val are kept for logging only; the
// backend re-reads the file itself.
type Descriptor struct {
	Train string     `yaml:"train"`
	Val   string     `yaml:"val"`
	NC    int        `yaml:"nc"`
	Names classNames `yaml:"names"`
}

// ClassCount returns the number of classes the descriptor declares.
func (d Descriptor) ClassCount() int {
	if d.NC > 0 {
		return d.NC
	}
	return len(d.Names)
}

// ParseDescriptor reads and decodes the dataset descriptor at path. A class
// count that contradicts the name list is rejected here rather than deep
// inside the backend.
func ParseDescriptor(path string) (Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%w: reading %s: %w", ErrDescriptorInvalid, path, err)
	}
	var d Descriptor
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Descriptor{}, fmt.Errorf("%w: decoding %s: %w", ErrDescriptorInvalid, path, err)
	}
	if len(d.Names) == 0 {
		return Descriptor{}, fmt.Errorf("%w: %s declares no class names", ErrDescriptorInvalid, path)
	}
	if d.NC > 0 && d.NC != len(d.Names) {
		return Descriptor{}, fmt.Errorf("%w: %s declares nc=%d but %d names", ErrDescriptorInvalid, path, d.NC, len(d.Names))
	}
	return d, nil
}

// classNames accepts both descriptor spellings: a plain list and an
// index-to-name map.
type classNames []string

func (n *classNames) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.SequenceNode:
		var list []string
		if err := value.Decode(&list); err != nil {
			return fmt.Errorf("decoding names list: %w", err)
		}
		*n = list
		return nil
	case yaml.MappingNode:
		var byIndex map[int]string
		if err := value.Decode(&byIndex); err != nil {
			return fmt.Errorf("decoding names map: %w", err)
		}
		out := make([]string, len(byIndex))
		for i, name := range byIndex {
			if i < 0 || i >= len(byIndex) {
				return fmt.Errorf("non-contiguous class index %d", i)
			}
			out[i] = name
		}
		*n = out
		return nil
	default:
		return fmt.Errorf("names must be a list or an index map")
	}
}
