package types

// Framework identifies the training/runtime ecosystem a model artifact was
// produced by. It is a closed set: the registry dispatches to exactly one
// adapter per framework and rejects anything else at load time.
type Framework string

const (
	// FrameworkGraph is the primary, development-friendly path: visiond's
	// in-process graph runtime. Missing artifacts fall back to a synthesized
	// placeholder instead of failing.
	FrameworkGraph Framework = "graph-model"
	// FrameworkCheckpoint loads eager-mode weight checkpoints (safetensors).
	FrameworkCheckpoint Framework = "checkpoint"
	// FrameworkSession runs optimized inference graphs through ONNX Runtime.
	FrameworkSession Framework = "optimized-session"
)

// Valid reports whether f names a recognized framework kind.
func (f Framework) Valid() bool {
	switch f {
	case FrameworkGraph, FrameworkCheckpoint, FrameworkSession:
		return true
	}
	return false
}

// Device is an explicit execution-device hint threaded through every adapter
// call and recorded per handle. There is no process-global device state.
type Device string

const (
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// Artifact roles within a descriptor's model_files mapping, with the default
// filename used when the role is not declared.
const (
	RoleFullModel = "full_model"
	RoleWeights   = "weights"
	RoleONNX      = "onnx"

	DefaultGraphFile      = "model.h5"
	DefaultCheckpointFile = "model.pth"
	DefaultONNXFile       = "model.onnx"
)

// ConfigFileName is the per-model descriptor file inside a model directory.
const ConfigFileName = "model_config.json"

// Preprocessing declares input transforms applied before inference.
type Preprocessing struct {
	// Resize target as [height, width]; nil means no resize.
	// example: [224,224]
	Resize []int `json:"resize,omitempty"`
	// Normalize subtracts Mean and divides by Std elementwise.
	Normalize bool `json:"normalize,omitempty"`
	// Mean per channel; defaults to 0.5 for every channel when unset.
	Mean []float32 `json:"mean,omitempty"`
	// Std per channel; defaults to 0.5 for every channel when unset.
	Std []float32 `json:"std,omitempty"`
}

// Postprocessing declares output transforms applied after inference.
// Threshold binarization lives in Hyperparameters for compatibility with the
// training-artifact producer contract.
type Postprocessing struct{}

// Hyperparameters carries free-form model tuning values. Only the keys the
// serving layer interprets are typed here; everything else is preserved as-is.
type Hyperparameters struct {
	// SegmentationThreshold binarizes outputs by strict greater-than.
	SegmentationThreshold *float32 `json:"segmentation_threshold,omitempty"`
	// Extra holds producer-written keys the serving layer does not interpret.
	Extra map[string]any `json:"-"`
}

// TrainingInfo is the block the training pipeline writes on completion.
// Read-only here; visiond never trains.
type TrainingInfo struct {
	Epochs       int     `json:"epochs,omitempty"`
	BatchSize    int     `json:"batch_size,omitempty"`
	LearningRate float64 `json:"learning_rate,omitempty"`
	FinalLoss    float64 `json:"final_loss,omitempty"`
	FinalValLoss float64 `json:"final_val_loss,omitempty"`
	Timestamp    string  `json:"timestamp,omitempty"`
}

// Descriptor is the parsed model_config.json for one model: the sole source
// of truth for how to load and feed that model. Immutable after parse.
type Descriptor struct {
	// ModelName as written by the training producer.
	// example: eye-correction
	ModelName string `json:"model_name,omitempty" example:"eye-correction"`
	// Version of the trained artifact.
	// example: 1.0.0
	Version string `json:"version,omitempty" example:"1.0.0"`
	// Framework kind; empty defaults to graph-model.
	Framework Framework `json:"framework,omitempty" example:"graph-model"`
	// ModelFiles maps artifact role to a filename relative to the model dir.
	ModelFiles map[string]string `json:"model_files,omitempty"`
	// InputShape with a leading batch dimension (may be -1 for symbolic).
	// example: [1,224,224,3]
	InputShape []int `json:"input_shape,omitempty"`
	// OutputShape with a leading batch dimension.
	// example: [1,224,224,3]
	OutputShape []int `json:"output_shape,omitempty"`

	Preprocessing   *Preprocessing   `json:"preprocessing,omitempty"`
	Postprocessing  *Postprocessing  `json:"postprocessing,omitempty"`
	Hyperparameters *Hyperparameters `json:"hyperparameters,omitempty"`
	Training        *TrainingInfo    `json:"training,omitempty"`
}

// Empty reports whether d is the zero descriptor (model never loaded).
func (d Descriptor) Empty() bool {
	return d.ModelName == "" && d.Framework == "" && len(d.ModelFiles) == 0 &&
		len(d.InputShape) == 0 && len(d.OutputShape) == 0
}

// File returns the filename declared for role, or def when absent.
func (d Descriptor) File(role, def string) string {
	if d.ModelFiles != nil {
		if f, ok := d.ModelFiles[role]; ok && f != "" {
			return f
		}
	}
	return def
}
