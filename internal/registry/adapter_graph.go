package registry

import (
	"context"
	"path/filepath"

	"visiond/internal/common/fsutil"
	"visiond/internal/runtime/graph"
	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// graphHandle wraps a loaded in-process graph program.
type graphHandle struct {
	program *graph.Program
	device  types.Device
}

func (h *graphHandle) Device() types.Device { return h.device }
func (h *graphHandle) Placeholder() bool    { return false }
func (h *graphHandle) Close() error         { return nil }

func (h *graphHandle) Predict(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.program.Forward(in)
}

// loadGraphModel loads the primary, development-friendly path. A missing
// artifact is a recoverable, expected condition (it may simply not have been
// shipped yet): log a warning and synthesize a placeholder instead of
// failing. Unloadable artifacts are downgraded to the same fallback so the
// application keeps serving in degraded form rather than refusing to serve.
func (r *Registry) loadGraphModel(dir string, desc types.Descriptor, device types.Device) (Handle, error) {
	path := filepath.Join(dir, desc.File(types.RoleFullModel, types.DefaultGraphFile))
	if !fsutil.PathExists(path) {
		r.log.Warn().Str("path", path).
			Msg("model artifact not found; serving a placeholder until it is trained or downloaded")
		fallbacksTotal.Inc()
		return newPlaceholder(desc, device), nil
	}
	program, err := graph.Load(path, string(device))
	if err != nil {
		r.log.Warn().Err(err).Str("path", path).
			Msg("model artifact could not be loaded; serving a placeholder")
		fallbacksTotal.Inc()
		return newPlaceholder(desc, device), nil
	}
	return &graphHandle{program: program, device: device}, nil
}
