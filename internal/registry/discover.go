package registry

import (
	"fmt"
	"os"
	"path/filepath"

	"visiond/internal/common/fsutil"
	"visiond/pkg/types"
)

// DiscoveredModel is one model directory found under the models dir.
type DiscoveredModel struct {
	// Name is the directory name, which is the model's identifier.
	Name string
	// Dir is the absolute path of the model directory.
	Dir string
	// Framework is taken from the descriptor when it parses; empty otherwise.
	Framework types.Framework
	// Descriptor is the parsed configuration; zero when parsing failed.
	Descriptor types.Descriptor
	// Err records a descriptor parse/validation failure for this directory.
	Err error
}

// Discover scans a directory for model subdirectories: any directory
// containing a model_config.json. Directories with a malformed descriptor
// are still listed, with Err set, so operators can see and fix them.
func Discover(dir string) ([]DiscoveredModel, error) {
	base, err := fsutil.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("abs path: %w", err)
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []DiscoveredModel
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		modelDir := filepath.Join(abs, e.Name())
		cfgPath := filepath.Join(modelDir, types.ConfigFileName)
		if !fsutil.PathExists(cfgPath) {
			continue
		}
		m := DiscoveredModel{Name: e.Name(), Dir: modelDir}
		raw, err := os.ReadFile(cfgPath)
		if err != nil {
			m.Err = err
		} else if desc, err := parseDescriptor(e.Name(), raw); err != nil {
			m.Err = err
		} else {
			m.Descriptor = desc
			m.Framework = desc.Framework
			if m.Framework == "" {
				m.Framework = types.FrameworkGraph
			}
		}
		models = append(models, m)
	}
	return models, nil
}
