//go:build ort

package registry

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"visiond/internal/common/fsutil"
	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// ortBuilt indicates this binary was compiled with ONNX Runtime support.
var ortBuilt = true

// The ONNX Runtime environment is process-wide; initialize it once and keep
// it alive for the process lifetime.
var (
	ortInitOnce sync.Once
	ortInitErr  error
)

func initORT() error {
	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	return ortInitErr
}

// sessionHandle wraps an ONNX Runtime inference session with preallocated
// input/output tensors sized from the descriptor.
type sessionHandle struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	outShape     tensor.Shape
	device       types.Device
}

func (h *sessionHandle) Device() types.Device { return h.device }
func (h *sessionHandle) Placeholder() bool    { return false }

func (h *sessionHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.inputTensor != nil {
		h.inputTensor.Destroy()
		h.inputTensor = nil
	}
	if h.outputTensor != nil {
		h.outputTensor.Destroy()
		h.outputTensor = nil
	}
	if h.session != nil {
		h.session.Destroy()
		h.session = nil
	}
	return nil
}

func (h *sessionHandle) Predict(ctx context.Context, in *tensor.Tensor) (*tensor.Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.session == nil {
		return nil, fmt.Errorf("session closed")
	}
	dst := h.inputTensor.GetData()
	if len(dst) != in.NumElements() {
		return nil, fmt.Errorf("session expects %d input elements, got %d (shape %v)", len(dst), in.NumElements(), in.Shape())
	}
	copy(dst, in.Data())
	if err := h.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	raw := h.outputTensor.GetData()
	out := make([]float32, len(raw))
	copy(out, raw)
	return tensor.FromSlice(out, h.outShape)
}

// concreteShape replaces a symbolic leading batch dimension with 1.
func concreteShape(shape []int, def tensor.Shape) tensor.Shape {
	if len(shape) == 0 {
		return def.Clone()
	}
	out := make(tensor.Shape, len(shape))
	copy(out, shape)
	if out[0] == -1 {
		out[0] = 1
	}
	return out
}

// loadSession constructs an ONNX Runtime inference session over the artifact.
// Missing artifact yields a null handle, same policy as the checkpoint path.
func (r *Registry) loadSession(dir string, desc types.Descriptor, device types.Device) (Handle, error) {
	if err := initORT(); err != nil {
		return nil, ErrRuntimeUnavailable(fmt.Sprintf("onnxruntime unavailable: %v", err))
	}
	path := filepath.Join(dir, desc.File(types.RoleONNX, types.DefaultONNXFile))
	if !fsutil.PathExists(path) {
		r.log.Warn().Str("path", path).
			Msg("onnx artifact not found; model will be unavailable")
		return nil, nil
	}
	inShape := concreteShape(desc.InputShape, defaultInputShape)
	outShape := concreteShape(desc.OutputShape, defaultOutputShape)

	in64 := make([]int64, len(inShape))
	for i, d := range inShape {
		in64[i] = int64(d)
	}
	out64 := make([]int64, len(outShape))
	for i, d := range outShape {
		out64[i] = int64(d)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(in64...))
	if err != nil {
		return nil, fmt.Errorf("create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(out64...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("create output tensor: %w", err)
	}
	session, err := ort.NewAdvancedSession(path,
		[]string{"input"}, []string{"output"},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &sessionHandle{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		outShape:     outShape,
		device:       device,
	}, nil
}
