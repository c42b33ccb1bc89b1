package registry

import (
	"context"

	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// Handle is an in-memory, ready-to-invoke representation of a loaded (or
// synthesized) model. Handles are owned exclusively by the registry cache;
// callers invoke them through Predict and never store them.
type Handle interface {
	// Predict produces output tensors from input tensors using the
	// framework's native runtime.
	Predict(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error)
	// Device returns the device the handle was loaded for.
	Device() types.Device
	// Placeholder reports whether this handle is a synthesized stand-in
	// rather than a genuine artifact.
	Placeholder() bool
	// Close releases any resources owned by the handle.
	Close() error
}

// adapterFunc loads a handle for one framework kind. A (nil, nil) return is
// the documented null result: the artifact is absent and this framework does
// not synthesize placeholders, so the caller should skip the feature.
type adapterFunc func(r *Registry, dir string, desc types.Descriptor, device types.Device) (Handle, error)

// adapters is the closed dispatch table from framework kind to adapter.
// Adding a framework means adding a constant in pkg/types and one entry here.
var adapters = map[types.Framework]adapterFunc{
	types.FrameworkGraph:      (*Registry).loadGraphModel,
	types.FrameworkCheckpoint: (*Registry).loadCheckpoint,
	types.FrameworkSession:    (*Registry).loadSession,
}
