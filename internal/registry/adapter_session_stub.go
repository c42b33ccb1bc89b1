//go:build !ort

package registry

// This file provides a stub for the optimized-session adapter. It is compiled
// when the 'ort' build tag is NOT set, keeping default builds free of the
// ONNX Runtime shared-library dependency. The real adapter lives in
// adapter_session_ort.go (tagged 'ort').

import (
	"visiond/pkg/types"
)

// ortBuilt indicates this binary was compiled with ONNX Runtime support.
var ortBuilt = false

// loadSession fails fast: the inference-session runtime is not installed in
// this process, which is distinct from a merely missing artifact.
func (r *Registry) loadSession(dir string, desc types.Descriptor, device types.Device) (Handle, error) {
	return nil, ErrRuntimeUnavailable("optimized-session runtime not built (missing 'ort' build tag)")
}
