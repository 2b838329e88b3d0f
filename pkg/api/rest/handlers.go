package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/clusterkit/kmeans/pkg/kmeans"
	"github.com/clusterkit/kmeans/pkg/observability"
	"github.com/clusterkit/kmeans/pkg/vector"
)

// Handler wraps the clustering engine and provides HTTP handlers for
// the REST surface over it.
type Handler struct {
	engine  *kmeans.Engine
	metrics *observability.Metrics
	logger  *observability.Logger
}

// NewHandler creates a new REST API handler bound to engine.
func NewHandler(engine *kmeans.Engine, metrics *observability.Metrics) *Handler {
	return &Handler{engine: engine, metrics: metrics, logger: observability.NewDefaultLogger()}
}

// clusterRequest is the wire shape of §6.1's entry-point options.
type clusterRequest struct {
	SrcRelation   string            `json:"src_relation"`
	SrcColData    string            `json:"src_col_data"`
	SrcColID      string            `json:"src_col_id,omitempty"`
	InitMethod    kmeans.InitMethod `json:"init_method"`
	K             int               `json:"k"`
	SampleFrac    float64           `json:"sample_frac,omitempty"`
	T1            float64           `json:"t1,omitempty"`
	T2            float64           `json:"t2,omitempty"`
	DistMetric    string            `json:"dist_metric"`
	MaxIter       int               `json:"max_iter,omitempty"`
	ConvThreshold float64           `json:"conv_threshold,omitempty"`
	Evaluate      bool              `json:"evaluate,omitempty"`
	OutPoints     string            `json:"out_points,omitempty"`
	OutCentroid   string            `json:"out_centroids,omitempty"`
	Verbose       bool              `json:"verbose,omitempty"`
	RandSeed      int64             `json:"rand_seed,omitempty"`
}

// clusterResponse is the wire shape of §6.2's returned record.
type clusterResponse struct {
	SrcRelation   string            `json:"src_relation"`
	KeptPoints    int               `json:"kept_points"`
	InitMethod    kmeans.InitMethod `json:"init_method"`
	K             int               `json:"k"`
	DistMetric    string            `json:"dist_metric"`
	IterationsRun int               `json:"iterations_run"`
	Cost          *float64          `json:"cost,omitempty"`
	Silhouette    *float64          `json:"silhouette,omitempty"`
	OutPoints     string            `json:"out_points,omitempty"`
	OutCentroids  string            `json:"out_centroids,omitempty"`
	DurationSecs  float64           `json:"duration_secs"`
	PointsPerSec  float64           `json:"points_per_sec"`
}

// Cluster handles POST /v1/cluster, running one full clustering pass
// against the configured storage backend.
func (h *Handler) Cluster(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req clusterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, fmt.Sprintf("Invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	opts := kmeans.Options{
		SrcRelation:   req.SrcRelation,
		SrcColData:    req.SrcColData,
		SrcColID:      req.SrcColID,
		InitMethod:    req.InitMethod,
		K:             req.K,
		SampleFrac:    req.SampleFrac,
		T1:            req.T1,
		T2:            req.T2,
		DistMetric:    vector.Metric(req.DistMetric),
		MaxIter:       req.MaxIter,
		ConvThreshold: req.ConvThreshold,
		Evaluate:      req.Evaluate,
		OutPoints:     req.OutPoints,
		OutCentroid:   req.OutCentroid,
		Verbose:       req.Verbose,
		RandSeed:      req.RandSeed,
	}

	ctx := r.Context()
	if h.metrics != nil {
		h.metrics.RecordRunStart()
	}

	var result kmeans.Result
	err := h.logger.LogOperationWithFields("cluster_run", map[string]interface{}{
		"src_relation": req.SrcRelation,
		"init_method":  string(req.InitMethod),
	}, func() error {
		var runErr error
		result, runErr = h.engine.Run(ctx, opts)
		return runErr
	})
	if err != nil {
		h.handleClusterError(w, "cluster", err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordRunSuccess(
			time.Duration(result.DurationSecs*float64(time.Second)),
			result.IterationsRun,
			result.Cost,
			result.Silhouette,
		)
	}

	writeJSON(w, clusterResponse{
		SrcRelation:   result.SrcRelation,
		KeptPoints:    result.KeptPoints,
		InitMethod:    result.InitMethod,
		K:             result.K,
		DistMetric:    string(result.DistMetric),
		IterationsRun: result.IterationsRun,
		Cost:          result.Cost,
		Silhouette:    result.Silhouette,
		OutPoints:     result.OutPoints,
		OutCentroids:  result.OutCentroids,
		DurationSecs:  result.DurationSecs,
		PointsPerSec:  result.PointsPerSec,
	}, http.StatusOK)
}

// handleClusterError maps a kmeans.ClusterError to a status code and
// records it against the error-kind metric.
func (h *Handler) handleClusterError(w http.ResponseWriter, method string, err error) {
	var cerr *kmeans.ClusterError
	kind := "internal"
	status := http.StatusInternalServerError

	if errors.As(err, &cerr) {
		kind = string(cerr.Kind)
		switch cerr.Kind {
		case kmeans.ErrKindInvalidInput, kmeans.ErrKindUnknownMetric, kmeans.ErrKindUnknownInitMethod,
			kmeans.ErrKindInvalidThreshold, kmeans.ErrKindSampleTooSmall:
			status = http.StatusBadRequest
		case kmeans.ErrKindInsufficientPoints, kmeans.ErrKindThresholdUnavailable:
			status = http.StatusUnprocessableEntity
		case kmeans.ErrKindOutputExists:
			status = http.StatusConflict
		case kmeans.ErrKindCancelled:
			status = http.StatusRequestTimeout
		}
	}

	if h.metrics != nil {
		h.metrics.RecordError(method, kind)
		h.metrics.RecordRunFailure(kind)
	}
	writeError(w, err.Error(), status)
}

// HealthCheck handles GET /v1/health.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, fmt.Sprintf("Failed to encode response: %v", err), http.StatusInternalServerError)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":  message,
		"status": statusCode,
	})
}
