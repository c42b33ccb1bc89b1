package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"visiond/internal/registry"
	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// fakeService implements Service with overridable function fields.
type fakeService struct {
	load    func(ctx context.Context, name string, device types.Device) (registry.LoadResult, error)
	predict func(ctx context.Context, name string, in *tensor.Tensor, opts registry.PredictOptions) (*tensor.Tensor, error)
	unload  func(name string)
	info    func(name string) types.Descriptor
	loaded  func(name string) bool
	models  func() ([]types.ModelStatus, error)
	status  func() types.StatusResponse
}

func (f *fakeService) Load(ctx context.Context, name string, device types.Device) (registry.LoadResult, error) {
	if f.load != nil {
		return f.load(ctx, name, device)
	}
	return registry.LoadResult{Name: name, Framework: types.FrameworkGraph, Device: types.DeviceCPU, Available: true}, nil
}

func (f *fakeService) Predict(ctx context.Context, name string, in *tensor.Tensor, opts registry.PredictOptions) (*tensor.Tensor, error) {
	if f.predict != nil {
		return f.predict(ctx, name, in, opts)
	}
	return in, nil
}

func (f *fakeService) Unload(name string) {
	if f.unload != nil {
		f.unload(name)
	}
}

func (f *fakeService) Info(name string) types.Descriptor {
	if f.info != nil {
		return f.info(name)
	}
	return types.Descriptor{}
}

func (f *fakeService) Loaded(name string) bool {
	if f.loaded != nil {
		return f.loaded(name)
	}
	return false
}

func (f *fakeService) Models() ([]types.ModelStatus, error) {
	if f.models != nil {
		return f.models()
	}
	return nil, nil
}

func (f *fakeService) Status() types.StatusResponse {
	if f.status != nil {
		return f.status()
	}
	return types.StatusResponse{}
}

func doRequest(t *testing.T, h http.Handler, method, path, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd *strings.Reader
	if body == "" {
		rd = strings.NewReader("")
	} else {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListModels(t *testing.T) {
	svc := &fakeService{models: func() ([]types.ModelStatus, error) {
		return []types.ModelStatus{{Name: "frame", Framework: types.FrameworkGraph, Loaded: true}}, nil
	}}
	rec := doRequest(t, NewMux(svc), http.MethodGet, "/models", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var resp types.ModelsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Models) != 1 || resp.Models[0].Name != "frame" {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestLoadModel(t *testing.T) {
	var gotDevice types.Device
	svc := &fakeService{load: func(ctx context.Context, name string, device types.Device) (registry.LoadResult, error) {
		gotDevice = device
		return registry.LoadResult{Name: name, Framework: types.FrameworkGraph, Device: device, Placeholder: true}, nil
	}}
	rec := doRequest(t, NewMux(svc), http.MethodPost, "/models/frame/load", "application/json", `{"device": "cuda"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if gotDevice != types.DeviceCUDA {
		t.Fatalf("device = %q", gotDevice)
	}
	var resp types.LoadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "frame" || !resp.Placeholder {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestLoadModelWithoutBody(t *testing.T) {
	rec := doRequest(t, NewMux(&fakeService{}), http.MethodPost, "/models/frame/load", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
}

func TestLoadModelErrorMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{registry.ErrConfigurationNotFound("frame"), http.StatusNotFound},
		{registry.ErrUnsupportedFramework("quantum"), http.StatusBadRequest},
		{registry.ErrRuntimeUnavailable("no runtime"), http.StatusServiceUnavailable},
	}
	for _, c := range cases {
		svc := &fakeService{load: func(ctx context.Context, name string, device types.Device) (registry.LoadResult, error) {
			return registry.LoadResult{}, c.err
		}}
		rec := doRequest(t, NewMux(svc), http.MethodPost, "/models/frame/load", "", "")
		if rec.Code != c.want {
			t.Fatalf("error %v mapped to %d, want %d", c.err, rec.Code, c.want)
		}
		var resp types.ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Code != c.want || resp.Error == "" {
			t.Fatalf("error body = %+v", resp)
		}
	}
}

func TestPredict(t *testing.T) {
	var gotOpts registry.PredictOptions
	svc := &fakeService{predict: func(ctx context.Context, name string, in *tensor.Tensor, opts registry.PredictOptions) (*tensor.Tensor, error) {
		gotOpts = opts
		return in, nil
	}}
	body := `{"shape": [2, 2], "data": [1, 2, 3, 4], "preprocess": false}`
	rec := doRequest(t, NewMux(svc), http.MethodPost, "/models/frame/predict", "application/json", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if !gotOpts.SkipPreprocess || gotOpts.SkipPostprocess {
		t.Fatalf("opts = %+v", gotOpts)
	}
	var resp types.PredictResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Shape) != 2 || len(resp.Data) != 4 {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestPredictRequiresJSONContentType(t *testing.T) {
	rec := doRequest(t, NewMux(&fakeService{}), http.MethodPost, "/models/frame/predict", "text/plain", "{}")
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestPredictRejectsShapeMismatch(t *testing.T) {
	body := `{"shape": [2, 2], "data": [1, 2, 3]}`
	rec := doRequest(t, NewMux(&fakeService{}), http.MethodPost, "/models/frame/predict", "application/json", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
}

func TestPredictNotLoadedIs404(t *testing.T) {
	svc := &fakeService{predict: func(ctx context.Context, name string, in *tensor.Tensor, opts registry.PredictOptions) (*tensor.Tensor, error) {
		return nil, registry.ErrModelNotLoaded(name)
	}}
	body := `{"shape": [1], "data": [0]}`
	rec := doRequest(t, NewMux(svc), http.MethodPost, "/models/frame/predict", "application/json", body)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
}

func TestModelInfoNeverFails(t *testing.T) {
	rec := doRequest(t, NewMux(&fakeService{}), http.MethodGet, "/models/ghost", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp types.InfoResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Name != "ghost" || resp.Loaded {
		t.Fatalf("resp = %+v", resp)
	}
}

func TestUnloadModel(t *testing.T) {
	var unloaded string
	svc := &fakeService{unload: func(name string) { unloaded = name }}
	rec := doRequest(t, NewMux(svc), http.MethodDelete, "/models/frame", "", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if unloaded != "frame" {
		t.Fatalf("unloaded = %q", unloaded)
	}
}

func TestStatusAndHealth(t *testing.T) {
	svc := &fakeService{status: func() types.StatusResponse {
		return types.StatusResponse{ModelsDir: "/srv/models", LoadsTotal: 3}
	}}
	mux := NewMux(svc)

	rec := doRequest(t, mux, http.MethodGet, "/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp types.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ModelsDir != "/srv/models" || resp.LoadsTotal != 3 {
		t.Fatalf("resp = %+v", resp)
	}

	rec = doRequest(t, mux, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || !bytes.Equal(rec.Body.Bytes(), []byte("ok")) {
		t.Fatalf("healthz = %d %q", rec.Code, rec.Body)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := doRequest(t, NewMux(&fakeService{}), http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestNosniffHeader(t *testing.T) {
	rec := doRequest(t, NewMux(&fakeService{}), http.MethodGet, "/models", "", "")
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
}
