package registry

import (
	"os"
	"path/filepath"
	"testing"

	"visiond/pkg/types"
)

func TestDiscoverFindsModelDirectories(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "alpha", frameConfig)
	writeModel(t, dir, "beta", `{"framework": "checkpoint"}`)
	// A directory without a descriptor is not a model.
	if err := os.MkdirAll(filepath.Join(dir, "scratch"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// A stray file at the top level is ignored.
	if err := os.WriteFile(filepath.Join(dir, "README"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	models, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("discovered %d models, want 2: %+v", len(models), models)
	}
	byName := make(map[string]DiscoveredModel)
	for _, m := range models {
		byName[m.Name] = m
	}
	if byName["alpha"].Framework != types.FrameworkGraph {
		t.Fatalf("alpha framework = %q", byName["alpha"].Framework)
	}
	if byName["beta"].Framework != types.FrameworkCheckpoint {
		t.Fatalf("beta framework = %q", byName["beta"].Framework)
	}
}

func TestDiscoverListsMalformedDescriptors(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, dir, "broken", `{`)
	models, err := Discover(dir)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	if len(models) != 1 || models[0].Err == nil {
		t.Fatalf("malformed model should be listed with Err set: %+v", models)
	}
}

func TestDiscoverMissingDir(t *testing.T) {
	if _, err := Discover(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
