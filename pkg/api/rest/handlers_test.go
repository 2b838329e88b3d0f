package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/clusterkit/kmeans/pkg/kmeans"
	"github.com/clusterkit/kmeans/pkg/storage/badger"
	"github.com/clusterkit/kmeans/pkg/vector"
)

func testEngine(t *testing.T) *kmeans.Engine {
	t.Helper()

	store, err := badger.OpenInMemory()
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	coords := []vector.Sparse{
		vector.FromDense([]float64{0, 0}),
		vector.FromDense([]float64{0, 1}),
		vector.FromDense([]float64{10, 10}),
		vector.FromDense([]float64{10, 11}),
	}
	source := kmeans.NewSliceSource(coords, nil)
	return kmeans.NewEngine(source, store, nil)
}

func TestClusterHandlerEndToEnd(t *testing.T) {
	h := NewHandler(testEngine(t), nil)

	body := clusterRequest{
		SrcRelation: "points",
		SrcColData:  "coords",
		InitMethod:  kmeans.InitKMeansPP,
		K:           2,
		DistMetric:  "l2norm",
		Evaluate:    true,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/cluster", bytes.NewReader(payload))
	rec := httptest.NewRecorder()

	h.Cluster(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp clusterResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if resp.K != 2 {
		t.Errorf("expected k=2, got %d", resp.K)
	}
	if resp.KeptPoints != 4 {
		t.Errorf("expected 4 kept points, got %d", resp.KeptPoints)
	}
	if resp.Cost == nil {
		t.Error("expected cost to be populated when evaluate=true")
	}
}

func TestClusterHandlerRejectsWrongMethod(t *testing.T) {
	h := NewHandler(testEngine(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/cluster", nil)
	rec := httptest.NewRecorder()

	h.Cluster(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestClusterHandlerRejectsBadBody(t *testing.T) {
	h := NewHandler(testEngine(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/cluster", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	h.Cluster(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestClusterHandlerMapsUnknownInitMethodToBadRequest(t *testing.T) {
	h := NewHandler(testEngine(t), nil)

	body := clusterRequest{
		SrcRelation: "points",
		SrcColData:  "coords",
		InitMethod:  "not-a-method",
		K:           2,
		DistMetric:  "l2norm",
	}
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, "/v1/cluster", bytes.NewReader(payload))
	rec := httptest.NewRecorder()

	h.Cluster(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unknown init method, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHealthCheck(t *testing.T) {
	h := NewHandler(testEngine(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rec := httptest.NewRecorder()

	h.HealthCheck(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
