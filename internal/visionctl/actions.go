package visionctl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	json "github.com/goccy/go-json"

	"visiond/internal/registry"
	"visiond/internal/runtime/activation"
	"visiond/internal/runtime/checkpoint"
	"visiond/internal/runtime/graph"
	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// fnList prints one row per discovered model directory.
func fnList(w io.Writer, cfg *Config) error {
	models, err := registry.Discover(cfg.ModelsDir)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFRAMEWORK\tVERSION\tSTATUS")
	for _, m := range models {
		status := "ok"
		if m.Err != nil {
			status = "invalid: " + m.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.Name, m.Framework, m.Descriptor.Version, status)
	}
	return tw.Flush()
}

// fnInfo prints the parsed configuration for one model as indented JSON.
func fnInfo(w io.Writer, cfg *Config, name string) error {
	m, err := findModel(cfg, name)
	if err != nil {
		return err
	}
	if m.Err != nil {
		return fmt.Errorf("%s: %w", name, m.Err)
	}
	out, err := json.MarshalIndent(m.Descriptor, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}

// fnValidate checks the configuration parses and reports whether the model's
// artifact is present, and what the daemon would do if it is not.
func fnValidate(w io.Writer, cfg *Config, name string) error {
	m, err := findModel(cfg, name)
	if err != nil {
		return err
	}
	if m.Err != nil {
		return fmt.Errorf("%s: %w", name, m.Err)
	}
	fmt.Fprintf(w, "configuration: ok (framework %s)\n", m.Framework)

	file, ok := artifactFile(m.Framework, m.Descriptor)
	if !ok {
		return fmt.Errorf("%s: unsupported framework %q", name, m.Framework)
	}
	path := filepath.Join(m.Dir, file)
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "artifact: ok (%s)\n", file)
		return nil
	}
	switch m.Framework {
	case types.FrameworkGraph:
		fmt.Fprintf(w, "artifact: missing (%s); daemon will serve a synthesized placeholder\n", file)
	default:
		fmt.Fprintf(w, "artifact: missing (%s); daemon will load the configuration but predictions will fail\n", file)
	}
	return nil
}

type scaffoldOptions struct {
	Framework    string
	InputShape   string
	OutputShape  string
	WithArtifact bool
}

// fnScaffold writes a new model directory with a descriptor, and optionally an
// identity artifact so the model is immediately servable.
func fnScaffold(w io.Writer, cfg *Config, name string, opts *scaffoldOptions) error {
	fw := types.Framework(opts.Framework)
	if !fw.Valid() {
		return fmt.Errorf("unsupported framework %q", opts.Framework)
	}
	inShape, err := parseShape(opts.InputShape)
	if err != nil {
		return fmt.Errorf("input-shape: %w", err)
	}
	outShape := inShape
	if opts.OutputShape != "" {
		if outShape, err = parseShape(opts.OutputShape); err != nil {
			return fmt.Errorf("output-shape: %w", err)
		}
	}

	dir := filepath.Join(cfg.ModelsDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	desc := types.Descriptor{
		ModelName:   name,
		Version:     "1.0.0",
		Framework:   fw,
		InputShape:  append([]int{1}, inShape...),
		OutputShape: append([]int{1}, outShape...),
	}
	raw, err := json.MarshalIndent(desc, "", "  ")
	if err != nil {
		return err
	}
	cfgPath := filepath.Join(dir, types.ConfigFileName)
	if err := os.WriteFile(cfgPath, append(raw, '\n'), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(w, "wrote %s\n", cfgPath)

	if !opts.WithArtifact {
		return nil
	}
	file, _ := artifactFile(fw, desc)
	path := filepath.Join(dir, file)
	channels := inShape[len(inShape)-1]
	switch fw {
	case types.FrameworkGraph:
		scale := tensor.New(tensor.Shape{channels})
		for i := range scale.Data() {
			scale.Data()[i] = 1
		}
		if err := graph.NewBuilder().Affine(scale, nil, activation.None).Save(path); err != nil {
			return err
		}
	case types.FrameworkCheckpoint:
		weight := tensor.New(tensor.Shape{channels, channels})
		for i := 0; i < channels; i++ {
			weight.Set(1, i, i)
		}
		if err := checkpoint.Save(path, map[string]*tensor.Tensor{checkpoint.WeightName: weight},
			map[string]string{"activation": "linear"}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("cannot author a %s artifact; export one from its runtime instead", fw)
	}
	fmt.Fprintf(w, "wrote %s (identity model)\n", path)
	return nil
}

func findModel(cfg *Config, name string) (registry.DiscoveredModel, error) {
	models, err := registry.Discover(cfg.ModelsDir)
	if err != nil {
		return registry.DiscoveredModel{}, err
	}
	for _, m := range models {
		if m.Name == name {
			return m, nil
		}
	}
	return registry.DiscoveredModel{}, fmt.Errorf("model %q not found under %s", name, cfg.ModelsDir)
}

// artifactFile resolves the artifact filename the daemon would look for.
func artifactFile(fw types.Framework, desc types.Descriptor) (string, bool) {
	switch fw {
	case types.FrameworkGraph:
		return desc.File(types.RoleFullModel, types.DefaultGraphFile), true
	case types.FrameworkCheckpoint:
		return desc.File(types.RoleWeights, types.DefaultCheckpointFile), true
	case types.FrameworkSession:
		return desc.File(types.RoleONNX, types.DefaultONNXFile), true
	}
	return "", false
}

func parseShape(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	shape := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad dimension %q", p)
		}
		shape = append(shape, n)
	}
	return shape, nil
}
