// Package registry owns the lifecycle of served models: it resolves per-model
// descriptors, dispatches loads to the framework adapter matching the
// descriptor's framework kind, caches ready handles, and runs the configured
// pre/post-processing pipeline around every inference call. It is structured
// into small files by concern:
//
//   - registry.go: core Registry type, Config, Load/Unload/Info, status.
//   - descriptor.go: descriptor resolution and parse-time validation.
//   - errors.go: error types and predicates (IsModelNotLoaded, ...).
//   - adapters.go: Handle interface and the framework dispatch table.
//   - adapter_graph.go / adapter_checkpoint.go: in-process runtime adapters.
//   - adapter_session_ort.go / adapter_session_stub.go: ONNX Runtime adapter,
//     gated behind the `ort` build tag; the default build's stub reports the
//     runtime as unavailable.
//   - placeholder.go: synthesized stand-in handles for missing graph artifacts.
//   - pipeline.go: preprocessing and postprocessing transforms.
//   - discover.go: models-directory scan.
//   - events.go: lifecycle event publishing.
//   - metrics.go: Prometheus collectors.
//
// A Registry is an explicit dependency: construct one at process start and
// pass it by reference to every consumer. Methods are safe for concurrent use;
// Load holds the registry lock for the duration of the blocking artifact read
// so a name is resolved from disk at most once.
package registry
