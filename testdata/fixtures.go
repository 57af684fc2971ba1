// Package testdata embeds the skeleton hierarchies used by the end to end
// tests.
package testdata

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/ayusman/mimic/internal/skeleton"
)

//go:embed skeletons/*.json
var skeletonsFS embed.FS

// LoadSkeleton returns the raw JSON of a fixture skeleton by name, without
// the .json extension.
func LoadSkeleton(name string) ([]byte, error) {
	data, err := skeletonsFS.ReadFile(path.Join("skeletons", name+".json"))
	if err != nil {
		return nil, fmt.Errorf("load skeleton %s: %w", name, err)
	}
	return data, nil
}

// LoadHierarchy loads and parses a fixture skeleton.
func LoadHierarchy(name string) (*skeleton.Node, error) {
	data, err := LoadSkeleton(name)
	if err != nil {
		return nil, err
	}
	root, err := skeleton.ParseHierarchy(data)
	if err != nil {
		return nil, fmt.Errorf("parse skeleton %s: %w", name, err)
	}
	return root, nil
}

// Skeletons lists the fixture names.
func Skeletons() ([]string, error) {
	entries, err := skeletonsFS.ReadDir("skeletons")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	return names, nil
}
