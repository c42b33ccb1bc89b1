package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"visiond/internal/registry"
	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Load(ctx context.Context, name string, device types.Device) (registry.LoadResult, error)
	Predict(ctx context.Context, name string, in *tensor.Tensor, opts registry.PredictOptions) (*tensor.Tensor, error)
	Unload(name string)
	Info(name string) types.Descriptor
	Loaded(name string) bool
	Models() ([]types.ModelStatus, error)
	Status() types.StatusResponse
}

// maxBodyBytes controls the maximum allowed request body size for JSON
// endpoints. Predict payloads carry whole frames, so the default is
// generous: 64 MiB.
var maxBodyBytes int64 = 64 << 20

// SetMaxBodyBytes allows configuring the maximum request body size.
func SetMaxBodyBytes(n int64) {
	if n <= 0 {
		maxBodyBytes = 64 << 20
		return
	}
	maxBodyBytes = n
}

// NewMux builds the HTTP router over the given service.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	// ListModels godoc
	// @Summary List discovered models and their load state
	// @Produce json
	// @Success 200 {object} types.ModelsResponse
	// @Router /models [get]
	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		models, err := svc.Models()
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, err.Error())
			logRequest(r, http.StatusInternalServerError, start, err)
			return
		}
		writeJSON(w, http.StatusOK, types.ModelsResponse{Models: models})
		logRequest(r, http.StatusOK, start, nil)
	})

	// LoadModel godoc
	// @Summary Load a model (idempotent)
	// @Accept json
	// @Produce json
	// @Param name path string true "model name"
	// @Param request body types.LoadRequest false "load options"
	// @Success 200 {object} types.LoadResponse
	// @Failure 404 {object} types.ErrorResponse
	// @Failure 503 {object} types.ErrorResponse
	// @Router /models/{name}/load [post]
	r.Post("/models/{name}/load", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		name := chi.URLParam(r, "name")
		var req types.LoadRequest
		if r.ContentLength > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
				logRequest(r, http.StatusBadRequest, start, err)
				return
			}
		}
		res, err := svc.Load(r.Context(), name, req.Device)
		if err != nil {
			status := statusForError(err)
			writeJSONError(w, status, err.Error())
			logRequest(r, status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, types.LoadResponse{
			Name:        res.Name,
			Framework:   res.Framework,
			Device:      res.Device,
			Placeholder: res.Placeholder,
			Cached:      res.Cached,
		})
		logRequest(r, http.StatusOK, start, nil)
	})

	// Predict godoc
	// @Summary Run inference for a loaded model
	// @Accept json
	// @Produce json
	// @Param name path string true "model name"
	// @Param request body types.PredictRequest true "input tensor"
	// @Success 200 {object} types.PredictResponse
	// @Failure 404 {object} types.ErrorResponse
	// @Router /models/{name}/predict [post]
	r.Post("/models/{name}/predict", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		name := chi.URLParam(r, "name")
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			logRequest(r, http.StatusUnsupportedMediaType, start, nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		var req types.PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
			logRequest(r, http.StatusBadRequest, start, err)
			return
		}
		in, err := tensor.FromSlice(req.Data, tensor.Shape(req.Shape))
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			logRequest(r, http.StatusBadRequest, start, err)
			return
		}
		opts := registry.PredictOptions{
			SkipPreprocess:  req.Preprocess != nil && !*req.Preprocess,
			SkipPostprocess: req.Postprocess != nil && !*req.Postprocess,
		}
		out, err := svc.Predict(r.Context(), name, in, opts)
		if err != nil {
			status := statusForError(err)
			writeJSONError(w, status, err.Error())
			logRequest(r, status, start, err)
			return
		}
		writeJSON(w, http.StatusOK, types.PredictResponse{
			Shape: out.Shape(),
			Data:  out.Data(),
		})
		logRequest(r, http.StatusOK, start, nil)
	})

	// ModelInfo godoc
	// @Summary Get the cached descriptor for a model
	// @Produce json
	// @Param name path string true "model name"
	// @Success 200 {object} types.InfoResponse
	// @Router /models/{name} [get]
	r.Get("/models/{name}", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		name := chi.URLParam(r, "name")
		// Observation only: an unknown name yields an empty descriptor, not 404.
		writeJSON(w, http.StatusOK, types.InfoResponse{
			Name:       name,
			Loaded:     svc.Loaded(name),
			Descriptor: svc.Info(name),
		})
		logRequest(r, http.StatusOK, start, nil)
	})

	// UnloadModel godoc
	// @Summary Unload a model (no-op if not loaded)
	// @Param name path string true "model name"
	// @Success 204 "unloaded"
	// @Router /models/{name} [delete]
	r.Delete("/models/{name}", func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		svc.Unload(chi.URLParam(r, "name"))
		w.WriteHeader(http.StatusNoContent)
		logRequest(r, http.StatusNoContent, start, nil)
	})

	// Status godoc
	// @Summary Registry status
	// @Produce json
	// @Success 200 {object} types.StatusResponse
	// @Router /status [get]
	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Status())
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already out; nothing useful left to do.
		return
	}
}
