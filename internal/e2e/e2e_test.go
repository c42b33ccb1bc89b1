package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"visiond/internal/httpapi"
	"visiond/internal/registry"
	"visiond/internal/runtime/activation"
	"visiond/internal/runtime/graph"
	"visiond/pkg/tensor"
	"visiond/pkg/types"
)

// newServer wires a real registry over modelsDir behind the HTTP mux.
func newServer(t *testing.T, modelsDir string) *httptest.Server {
	t.Helper()
	reg := registry.New(registry.Config{ModelsDir: modelsDir})
	t.Cleanup(reg.Close)
	srv := httptest.NewServer(httpapi.NewMux(reg))
	t.Cleanup(srv.Close)
	return srv
}

// writeFrameModel creates a model directory with a descriptor and, when
// runnable is true, a single-layer graph artifact that doubles every channel.
func writeFrameModel(t *testing.T, modelsDir, name string, runnable bool) {
	t.Helper()
	dir := filepath.Join(modelsDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	config := `{
	  "model_name": "` + name + `",
	  "framework": "graph-model",
	  "input_shape": [1, 4, 4, 3],
	  "output_shape": [1, 4, 4, 3]
	}`
	if err := os.WriteFile(filepath.Join(dir, types.ConfigFileName), []byte(config), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if !runnable {
		return
	}
	scale, err := tensor.FromSlice([]float32{2, 2, 2}, tensor.Shape{3})
	if err != nil {
		t.Fatalf("scale: %v", err)
	}
	path := filepath.Join(dir, types.DefaultGraphFile)
	if err := graph.NewBuilder().Affine(scale, nil, activation.None).Save(path); err != nil {
		t.Fatalf("save graph: %v", err)
	}
}

func postJSON(t *testing.T, url, body string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	} else {
		io.Copy(io.Discard, resp.Body)
	}
	return resp.StatusCode
}

func TestFullServingFlow(t *testing.T) {
	modelsDir := t.TempDir()
	writeFrameModel(t, modelsDir, "frame", true)
	srv := newServer(t, modelsDir)

	// Discovery before any load.
	var models types.ModelsResponse
	if code := getJSON(t, srv.URL+"/models", &models); code != http.StatusOK {
		t.Fatalf("GET /models = %d", code)
	}
	if len(models.Models) != 1 || models.Models[0].Loaded {
		t.Fatalf("models = %+v", models.Models)
	}

	// Load.
	resp, raw := postJSON(t, srv.URL+"/models/frame/load", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load = %d: %s", resp.StatusCode, raw)
	}
	var load types.LoadResponse
	if err := json.Unmarshal(raw, &load); err != nil {
		t.Fatalf("decode load: %v", err)
	}
	if load.Placeholder || load.Cached {
		t.Fatalf("load = %+v", load)
	}

	// Loading again is an idempotent cache hit.
	_, raw = postJSON(t, srv.URL+"/models/frame/load", "")
	if err := json.Unmarshal(raw, &load); err != nil {
		t.Fatalf("decode load: %v", err)
	}
	if !load.Cached {
		t.Fatalf("second load should be cached: %+v", load)
	}

	// Predict: an unbatched constant frame doubled by the graph.
	data := make([]float32, 4*4*3)
	for i := range data {
		data[i] = 0.25
	}
	req, _ := json.Marshal(types.PredictRequest{Shape: []int{4, 4, 3}, Data: data})
	resp, raw = postJSON(t, srv.URL+"/models/frame/predict", string(req))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("predict = %d: %s", resp.StatusCode, raw)
	}
	var pred types.PredictResponse
	if err := json.Unmarshal(raw, &pred); err != nil {
		t.Fatalf("decode predict: %v", err)
	}
	if len(pred.Shape) != 3 || pred.Shape[0] != 4 || pred.Shape[2] != 3 {
		t.Fatalf("predict shape = %v", pred.Shape)
	}
	for _, v := range pred.Data {
		if v != 0.5 {
			t.Fatalf("predict value = %v, want 0.5", v)
		}
	}

	// Info reflects the cached descriptor.
	var info types.InfoResponse
	if code := getJSON(t, srv.URL+"/models/frame", &info); code != http.StatusOK {
		t.Fatalf("GET /models/frame = %d", code)
	}
	if !info.Loaded || info.Descriptor.ModelName != "frame" {
		t.Fatalf("info = %+v", info)
	}

	// Status counts the load.
	var status types.StatusResponse
	if code := getJSON(t, srv.URL+"/status", &status); code != http.StatusOK {
		t.Fatalf("GET /status = %d", code)
	}
	if status.LoadsTotal != 1 {
		t.Fatalf("status = %+v", status)
	}

	// Unload, then predict fails with 404.
	delReq, _ := http.NewRequest(http.MethodDelete, srv.URL+"/models/frame", nil)
	delResp, err := http.DefaultClient.Do(delReq)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	io.Copy(io.Discard, delResp.Body)
	delResp.Body.Close()
	if delResp.StatusCode != http.StatusNoContent {
		t.Fatalf("DELETE = %d", delResp.StatusCode)
	}
	resp, _ = postJSON(t, srv.URL+"/models/frame/predict", string(req))
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("predict after unload = %d", resp.StatusCode)
	}
}

func TestPlaceholderFallbackOverHTTP(t *testing.T) {
	modelsDir := t.TempDir()
	writeFrameModel(t, modelsDir, "unshipped", false)
	srv := newServer(t, modelsDir)

	resp, raw := postJSON(t, srv.URL+"/models/unshipped/load", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("load = %d: %s", resp.StatusCode, raw)
	}
	var load types.LoadResponse
	if err := json.Unmarshal(raw, &load); err != nil {
		t.Fatalf("decode load: %v", err)
	}
	if !load.Placeholder {
		t.Fatalf("missing artifact should load as placeholder: %+v", load)
	}

	data := make([]float32, 4*4*3)
	req, _ := json.Marshal(types.PredictRequest{Shape: []int{4, 4, 3}, Data: data})
	resp, raw = postJSON(t, srv.URL+"/models/unshipped/predict", string(req))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("placeholder predict = %d: %s", resp.StatusCode, raw)
	}
	var pred types.PredictResponse
	if err := json.Unmarshal(raw, &pred); err != nil {
		t.Fatalf("decode predict: %v", err)
	}
	if len(pred.Shape) != 3 {
		t.Fatalf("predict shape = %v", pred.Shape)
	}
	for _, v := range pred.Data {
		if v <= 0 || v >= 1 {
			t.Fatalf("placeholder output %v escaped (0,1)", v)
		}
	}
}

func TestLoadUnknownModelOverHTTP(t *testing.T) {
	srv := newServer(t, t.TempDir())
	resp, _ := postJSON(t, srv.URL+"/models/ghost/load", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("load unknown = %d", resp.StatusCode)
	}
}
