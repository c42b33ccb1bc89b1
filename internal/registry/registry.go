package registry

import (
	"context"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// entry is one cached model: its handle and the descriptor it was loaded
// with. handle is nil when the adapter returned the documented null result
// (artifact absent on a non-placeholder path); the descriptor is still cached
// so Info and the pipeline stages keep working.
type entry struct {
	handle Handle
	desc   types.Descriptor
	device types.Device
}

// Registry owns the cache of loaded model handles and their configurations,
// dispatches loads to the framework adapter matching the descriptor's
// framework kind, and exposes the uniform predict/pre/post contract.
type Registry struct {
	mu        sync.RWMutex
	cache     map[string]*entry
	modelsDir string
	device    types.Device
	log       zerolog.Logger
	publisher EventPublisher
	startTime time.Time

	loads     atomic.Uint64
	fallbacks atomic.Uint64
}

// Config encapsulates all tunables for Registry construction.
type Config struct {
	// ModelsDir is the directory holding one subdirectory per model.
	ModelsDir string
	// DefaultDevice is used when a load does not name a device.
	DefaultDevice types.Device
	// Logger receives structured lifecycle logs; defaults to a no-op logger.
	Logger *zerolog.Logger
	// Publisher receives lifecycle events; defaults to a no-op publisher.
	Publisher EventPublisher
}

// New constructs a Registry from Config, applying defaults for unset fields.
func New(cfg Config) *Registry {
	r := &Registry{
		cache:     make(map[string]*entry),
		modelsDir: cfg.ModelsDir,
		device:    cfg.DefaultDevice,
		log:       zerolog.Nop(),
		publisher: noopPublisher{},
		startTime: time.Now(),
	}
	if r.device == "" {
		r.device = types.DeviceCPU
	}
	if cfg.Logger != nil {
		r.log = *cfg.Logger
	}
	if cfg.Publisher != nil {
		r.publisher = cfg.Publisher
	}
	return r
}

// ModelsDir returns the directory the registry resolves models from.
func (r *Registry) ModelsDir() string { return r.modelsDir }

// LoadResult summarizes a load outcome.
type LoadResult struct {
	Name      string
	Framework types.Framework
	Device    types.Device
	// Placeholder is true when the handle is a synthesized stand-in.
	Placeholder bool
	// Cached is true when the load was an idempotent cache hit.
	Cached bool
	// Available is false when the adapter returned the null result: the
	// artifact is absent and this framework does not synthesize placeholders.
	Available bool
}

// Load resolves, loads, and caches the named model. Loading an already
// cached name is a no-op that reuses the existing handle without touching
// disk. The registry lock is held across the blocking artifact read so a
// name is loaded at most once.
func (r *Registry) Load(ctx context.Context, name string, device types.Device) (LoadResult, error) {
	if name == "" {
		return LoadResult{}, ErrConfigurationNotFound("(unspecified)")
	}
	if err := ctx.Err(); err != nil {
		return LoadResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.cache[name]; ok {
		r.log.Info().Str("model", name).Msg("model already loaded, returning cached instance")
		return r.result(name, e, true), nil
	}

	desc, err := r.resolveDescriptor(name)
	if err != nil {
		return LoadResult{}, err
	}
	fw := desc.Framework
	if fw == "" {
		fw = types.FrameworkGraph
	}
	adapter, ok := adapters[fw]
	if !ok {
		loadsTotal.WithLabelValues(string(fw), outcomeError).Inc()
		return LoadResult{}, ErrUnsupportedFramework(string(fw))
	}
	if device == "" {
		device = r.device
	}

	r.publish("load_start", name, map[string]any{"framework": string(fw), "device": string(device)})
	handle, err := adapter(r, filepath.Join(r.modelsDir, name), desc, device)
	if err != nil {
		loadsTotal.WithLabelValues(string(fw), outcomeError).Inc()
		r.publish("load_error", name, map[string]any{"error": err.Error()})
		return LoadResult{}, err
	}

	e := &entry{handle: handle, desc: desc, device: device}
	r.cache[name] = e
	loadedModels.Inc()
	r.loads.Add(1)

	outcome := outcomeOK
	switch {
	case handle == nil:
		outcome = outcomeMissing
	case handle.Placeholder():
		outcome = outcomePlaceholder
		r.fallbacks.Add(1)
	}
	loadsTotal.WithLabelValues(string(fw), outcome).Inc()
	r.publish("load_done", name, map[string]any{"framework": string(fw), "outcome": outcome})
	r.log.Info().Str("model", name).Str("framework", string(fw)).
		Str("device", string(device)).Str("outcome", outcome).Msg("model loaded")

	return r.result(name, e, false), nil
}

func (r *Registry) result(name string, e *entry, cached bool) LoadResult {
	fw := e.desc.Framework
	if fw == "" {
		fw = types.FrameworkGraph
	}
	return LoadResult{
		Name:        name,
		Framework:   fw,
		Device:      e.device,
		Placeholder: e.handle != nil && e.handle.Placeholder(),
		Cached:      cached,
		Available:   e.handle != nil,
	}
}

// PredictOptions toggles the pipeline stages around the raw handle call.
// The zero value runs both stages, matching the default calling convention.
type PredictOptions struct {
	SkipPreprocess  bool
	SkipPostprocess bool
}

// Predict runs inference for a loaded model: preprocessing, the cached
// handle, then postprocessing, all driven by the cached descriptor.
func (r *Registry) Predict(ctx context.Context, name string, in *tensor.Tensor, opts PredictOptions) (*tensor.Tensor, error) {
	r.mu.RLock()
	e, ok := r.cache[name]
	r.mu.RUnlock()
	if !ok || e.handle == nil {
		return nil, ErrModelNotLoaded(name)
	}

	start := time.Now()
	x := in
	var err error
	if !opts.SkipPreprocess {
		if x, err = preprocess(e.desc, x); err != nil {
			return nil, err
		}
	}
	out, err := e.handle.Predict(ctx, x)
	if err != nil {
		return nil, err
	}
	if !opts.SkipPostprocess {
		if out, err = postprocess(e.desc, out); err != nil {
			return nil, err
		}
	}
	fw := e.desc.Framework
	if fw == "" {
		fw = types.FrameworkGraph
	}
	predictDuration.WithLabelValues(string(fw)).Observe(time.Since(start).Seconds())
	return out, nil
}

// PreprocessInput applies the cached descriptor's preprocessing to in.
// Callers may use it without a full predict cycle; it mirrors Predict's
// not-loaded check.
func (r *Registry) PreprocessInput(name string, in *tensor.Tensor) (*tensor.Tensor, error) {
	desc, ok := r.descriptorFor(name)
	if !ok {
		return nil, ErrModelNotLoaded(name)
	}
	return preprocess(desc, in)
}

// PostprocessOutput applies the cached descriptor's postprocessing to out.
func (r *Registry) PostprocessOutput(name string, out *tensor.Tensor) (*tensor.Tensor, error) {
	desc, ok := r.descriptorFor(name)
	if !ok {
		return nil, ErrModelNotLoaded(name)
	}
	return postprocess(desc, out)
}

func (r *Registry) descriptorFor(name string) (types.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[name]
	if !ok {
		return types.Descriptor{}, false
	}
	return e.desc, true
}

// Unload removes the cache entry for name and releases the handle's
// resources. Unloading a name that was never loaded is a no-op.
func (r *Registry) Unload(name string) {
	r.mu.Lock()
	e, ok := r.cache[name]
	if ok {
		delete(r.cache, name)
		loadedModels.Dec()
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	if e.handle != nil {
		if err := e.handle.Close(); err != nil {
			r.log.Warn().Err(err).Str("model", name).Msg("handle close failed")
		}
	}
	r.publish("unload_done", name, map[string]any{})
	r.log.Info().Str("model", name).Msg("model unloaded from memory")
}

// Info returns the cached descriptor for name, or an empty descriptor if the
// model was never loaded. Observation only; it never fails.
func (r *Registry) Info(name string) types.Descriptor {
	desc, _ := r.descriptorFor(name)
	return desc
}

// Loaded reports whether name has a cache entry with a usable handle.
func (r *Registry) Loaded(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.cache[name]
	return ok && e.handle != nil
}

// Models lists discovered model directories merged with their load state.
func (r *Registry) Models() ([]types.ModelStatus, error) {
	discovered, err := Discover(r.modelsDir)
	if err != nil {
		return nil, err
	}
	out := make([]types.ModelStatus, 0, len(discovered))
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[string]bool, len(discovered))
	for _, d := range discovered {
		seen[d.Name] = true
		st := types.ModelStatus{Name: d.Name, Framework: d.Framework}
		if e, ok := r.cache[d.Name]; ok {
			st.Loaded = e.handle != nil
			st.Placeholder = e.handle != nil && e.handle.Placeholder()
			st.Device = e.device
		}
		out = append(out, st)
	}
	// Loaded models whose directory disappeared after load still serve.
	for name, e := range r.cache {
		if seen[name] {
			continue
		}
		out = append(out, types.ModelStatus{
			Name:        name,
			Framework:   e.desc.Framework,
			Loaded:      e.handle != nil,
			Placeholder: e.handle != nil && e.handle.Placeholder(),
			Device:      e.device,
		})
	}
	return out, nil
}

// Status reports the registry's state for GET /status.
func (r *Registry) Status() types.StatusResponse {
	models, err := r.Models()
	if err != nil {
		models = nil
	}
	return types.StatusResponse{
		Models:         models,
		ModelsDir:      r.modelsDir,
		LoadsTotal:     r.loads.Load(),
		FallbacksTotal: r.fallbacks.Load(),
		UptimeSeconds:  int64(time.Since(r.startTime).Seconds()),
		ServerTimeUnix: time.Now().Unix(),
	}
}

// Close unloads every cached model.
func (r *Registry) Close() {
	r.mu.Lock()
	names := make([]string, 0, len(r.cache))
	for name := range r.cache {
		names = append(names, name)
	}
	r.mu.Unlock()
	for _, name := range names {
		r.Unload(name)
	}
}
