package registry

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"visiond/pkg/types"
)

// resolveDescriptor reads and validates <models_dir>/<name>/model_config.json,
// the sole source of truth for how to load and feed that model.
func (r *Registry) resolveDescriptor(name string) (types.Descriptor, error) {
	path := filepath.Join(r.modelsDir, name, types.ConfigFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return types.Descriptor{}, ErrConfigurationNotFound(name)
		}
		return types.Descriptor{}, fmt.Errorf("read %s: %w", path, err)
	}
	return parseDescriptor(name, raw)
}

// parseDescriptor decodes a descriptor and validates it once, so point-of-use
// code never substitutes defaults for malformed entries.
func parseDescriptor(name string, raw []byte) (types.Descriptor, error) {
	var desc types.Descriptor
	if err := json.Unmarshal(raw, &desc); err != nil {
		return types.Descriptor{}, ErrConfigurationInvalid(name, err)
	}
	if err := validateDescriptor(desc); err != nil {
		return types.Descriptor{}, ErrConfigurationInvalid(name, err)
	}
	return desc, nil
}

func validateDescriptor(desc types.Descriptor) error {
	// An unrecognized framework kind is not ConfigurationInvalid: it has its
	// own error in the taxonomy, raised by Load after dispatch lookup.
	if err := validateShape("input_shape", desc.InputShape); err != nil {
		return err
	}
	if err := validateShape("output_shape", desc.OutputShape); err != nil {
		return err
	}
	if pp := desc.Preprocessing; pp != nil {
		if pp.Resize != nil && len(pp.Resize) != 2 {
			return fmt.Errorf("preprocessing.resize must be [height, width], got %v", pp.Resize)
		}
		if pp.Resize != nil && (pp.Resize[0] <= 0 || pp.Resize[1] <= 0) {
			return fmt.Errorf("preprocessing.resize dimensions must be positive, got %v", pp.Resize)
		}
		channels := 0
		if len(desc.InputShape) > 0 {
			channels = desc.InputShape[len(desc.InputShape)-1]
		}
		if err := validateVector("preprocessing.mean", pp.Mean, channels); err != nil {
			return err
		}
		if err := validateVector("preprocessing.std", pp.Std, channels); err != nil {
			return err
		}
	}
	return nil
}

// validateShape accepts an optional leading symbolic batch dimension (-1);
// every other dimension must be positive.
func validateShape(field string, shape []int) error {
	for i, dim := range shape {
		if i == 0 && dim == -1 {
			continue
		}
		if dim <= 0 {
			return fmt.Errorf("%s dimension %d must be positive, got %d", field, i, dim)
		}
	}
	return nil
}

// validateVector accepts an empty vector (defaulted later), a single scalar,
// or one value per channel.
func validateVector(field string, v []float32, channels int) error {
	if len(v) == 0 || len(v) == 1 {
		return nil
	}
	if channels > 0 && len(v) != channels {
		return fmt.Errorf("%s has %d values for %d channels", field, len(v), channels)
	}
	return nil
}
