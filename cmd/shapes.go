package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/zoobzio/tapz"
	"gopkg.in/yaml.v3"
)

// Shapes is the file format read by the explain command.
type Shapes struct {
	Hooks []Shape `yaml:"hooks"`
}

// Shape describes one hook registration shape.
type Shape struct {
	Name         string   `yaml:"name"`
	Args         []string `yaml:"args"`
	Taps         int      `yaml:"taps"`
	Interceptors int      `yaml:"interceptors,omitempty"`
	Convention   string   `yaml:"convention,omitempty"`
}

// LoadShapes reads and parses a shapes file.
func LoadShapes(path string) (*Shapes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var shapes Shapes
	if err := yaml.Unmarshal(data, &shapes); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return &shapes, nil
}

// Descriptor converts the shape into a tapz.Descriptor. An empty
// convention means sync.
func (s Shape) Descriptor() (tapz.Descriptor, error) {
	convention := tapz.Sync
	if name := strings.TrimSpace(s.Convention); name != "" {
		c, err := tapz.ParseConvention(name)
		if err != nil {
			return tapz.Descriptor{}, err
		}
		convention = c
	}
	return tapz.Descriptor{
		Args:        s.Args,
		TapCount:    s.Taps,
		Intercepted: s.Interceptors > 0,
		Convention:  convention,
	}, nil
}
