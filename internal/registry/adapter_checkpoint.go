package registry

import (
	"context"
	"path/filepath"

	"visiond/internal/common/fsutil"
	"visiond/internal/runtime/checkpoint"
	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// checkpointHandle wraps a weight-checkpoint module in eval mode.
type checkpointHandle struct {
	module *checkpoint.Module
	device types.Device
}

func (h *checkpointHandle) Device() types.Device { return h.device }
func (h *checkpointHandle) Placeholder() bool    { return false }
func (h *checkpointHandle) Close() error         { return nil }

func (h *checkpointHandle) Predict(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return h.module.Forward(in)
}

// loadCheckpoint loads an eager-mode weight checkpoint. Unlike the graph
// path, a missing artifact yields a null handle rather than a placeholder:
// this is a secondary path and the null result tells the caller to skip the
// feature. Load failures other than a missing file propagate unchanged.
func (r *Registry) loadCheckpoint(dir string, desc types.Descriptor, device types.Device) (Handle, error) {
	if !checkpoint.Available() {
		return nil, ErrRuntimeUnavailable("checkpoint runtime is not available in this process")
	}
	path := filepath.Join(dir, desc.File(types.RoleWeights, types.DefaultCheckpointFile))
	if !fsutil.PathExists(path) {
		r.log.Warn().Str("path", path).
			Msg("checkpoint artifact not found; model will be unavailable")
		return nil, nil
	}
	module, err := checkpoint.Load(path, string(device))
	if err != nil {
		return nil, err
	}
	// Inference mode before the handle ever reaches the cache.
	module.Eval()
	return &checkpointHandle{module: module, device: device}, nil
}
