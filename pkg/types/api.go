package types

// LoadRequest is the payload for POST /models/{name}/load.
type LoadRequest struct {
	// Execution device hint for the adapter. Defaults to the server's
	// configured default device when empty.
	// example: cpu
	Device Device `json:"device,omitempty" example:"cpu"`
}

// LoadResponse summarizes a load outcome.
type LoadResponse struct {
	// Name of the loaded model.
	// example: eye-correction
	Name string `json:"name" example:"eye-correction"`
	// Framework kind that served the load.
	// example: graph-model
	Framework Framework `json:"framework" example:"graph-model"`
	// Device the handle was loaded for.
	// example: cpu
	Device Device `json:"device" example:"cpu"`
	// Placeholder is true when the handle is a synthesized stand-in because
	// the real artifact was unavailable.
	// example: false
	Placeholder bool `json:"placeholder" example:"false"`
	// Cached is true when the load was an idempotent cache hit.
	// example: false
	Cached bool `json:"cached" example:"false"`
}

// PredictRequest is the payload for POST /models/{name}/predict.
// Data is the row-major flattening of a tensor with the given shape.
type PredictRequest struct {
	// Shape of the input tensor, e.g. [224,224,3] for an unbatched frame.
	// example: [224,224,3]
	Shape []int `json:"shape"`
	// Row-major tensor elements; len must equal the product of Shape.
	Data []float32 `json:"data"`
	// Preprocess toggles the configured preprocessing pipeline (default true).
	Preprocess *bool `json:"preprocess,omitempty"`
	// Postprocess toggles the configured postprocessing pipeline (default true).
	Postprocess *bool `json:"postprocess,omitempty"`
}

// PredictResponse carries the output tensor of a predict call.
type PredictResponse struct {
	// Shape of the output tensor.
	// example: [224,224,3]
	Shape []int `json:"shape"`
	// Row-major tensor elements.
	Data []float32 `json:"data"`
}

// InfoResponse is returned by GET /models/{name}.
type InfoResponse struct {
	// Name of the model queried.
	// example: eye-correction
	Name string `json:"name" example:"eye-correction"`
	// Loaded is true when the registry holds a usable handle for this model.
	// example: true
	Loaded bool `json:"loaded" example:"true"`
	// Descriptor is the cached configuration; empty when never loaded.
	Descriptor Descriptor `json:"descriptor"`
}

// ModelStatus describes one model directory and its load state for GET /models.
type ModelStatus struct {
	// Name of the model (its directory name under models_dir).
	// example: background-removal
	Name string `json:"name" example:"background-removal"`
	// Framework declared by the descriptor.
	// example: optimized-session
	Framework Framework `json:"framework,omitempty" example:"optimized-session"`
	// Loaded is true when the registry holds a live handle for this model.
	// example: true
	Loaded bool `json:"loaded" example:"true"`
	// Placeholder is true when the live handle is a synthesized stand-in.
	// example: false
	Placeholder bool `json:"placeholder,omitempty" example:"false"`
	// Device the handle was loaded for, when loaded.
	// example: cpu
	Device Device `json:"device,omitempty" example:"cpu"`
}

// ModelsResponse wraps the list returned by GET /models.
type ModelsResponse struct {
	// Models discovered on disk plus their load state.
	Models []ModelStatus `json:"models"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: model not loaded: eye-correction
	Error string `json:"error" example:"model not loaded: eye-correction"`
	// HTTP status code.
	// example: 404
	Code int `json:"code" example:"404"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Loaded models and their state.
	Models []ModelStatus `json:"models"`
	// Directory scanned for model subdirectories.
	// example: /var/lib/visiond/models
	ModelsDir string `json:"models_dir" example:"/var/lib/visiond/models"`
	// Total successful loads since start (cache hits excluded).
	// example: 4
	LoadsTotal uint64 `json:"loads_total" example:"4"`
	// Total placeholder fallbacks since start.
	// example: 1
	FallbacksTotal uint64 `json:"fallbacks_total" example:"1"`
	// Uptime of the server in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
}
