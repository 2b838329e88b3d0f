package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for clustering runs and the
// REST server. The REST cluster handler records run start, success and
// failure and request errors; nothing in this repository calls the
// request, ingest, seeding, iteration or cache recorders.
type Metrics struct {
	// Request metrics (REST server).
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	RequestErrors   *prometheus.CounterVec

	// Run lifecycle metrics.
	RunsStarted   prometheus.Counter
	RunsSucceeded prometheus.Counter
	RunsFailed    *prometheus.CounterVec
	RunsActive    prometheus.Gauge
	RunDuration   prometheus.Histogram

	// Ingest metrics.
	PointsIngested prometheus.Counter
	PointsDropped  prometheus.Counter

	// Seeding metrics.
	SeedingDuration *prometheus.HistogramVec

	// Lloyd iteration metrics.
	IterationsRun        prometheus.Histogram
	ReassignmentFraction prometheus.Histogram

	// Evaluation metrics.
	ClusterCost       prometheus.Histogram
	ClusterSilhouette prometheus.Histogram

	// Cache metrics.
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
	CacheSize   prometheus.Gauge
}

// NewMetrics creates and registers every metric against the default
// Prometheus registry.
func NewMetrics() *Metrics {
	return &Metrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kmeans_requests_total",
				Help: "Total number of REST requests by method and status",
			},
			[]string{"method", "status"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kmeans_request_duration_seconds",
				Help:    "REST request duration in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		RequestErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kmeans_request_errors_total",
				Help: "Total number of REST request errors by method and error kind",
			},
			[]string{"method", "error_kind"},
		),

		RunsStarted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kmeans_runs_started_total",
			Help: "Total number of clustering runs started",
		}),
		RunsSucceeded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kmeans_runs_succeeded_total",
			Help: "Total number of clustering runs that completed successfully",
		}),
		RunsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kmeans_runs_failed_total",
				Help: "Total number of clustering runs that failed, by error kind",
			},
			[]string{"error_kind"},
		),
		RunsActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "kmeans_runs_active",
			Help: "Number of clustering runs currently in progress",
		}),
		RunDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kmeans_run_duration_seconds",
			Help:    "Total wall-clock duration of a clustering run",
			Buckets: []float64{.1, .5, 1, 5, 10, 30, 60, 300, 900},
		}),

		PointsIngested: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kmeans_points_ingested_total",
			Help: "Total number of points kept after ingest validation",
		}),
		PointsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kmeans_points_dropped_total",
			Help: "Total number of points dropped at ingest for null or NaN coordinates",
		}),

		SeedingDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kmeans_seeding_duration_seconds",
				Help:    "Centroid seeding duration in seconds, by init method",
				Buckets: []float64{.001, .01, .1, .5, 1, 5, 15, 60},
			},
			[]string{"init_method"},
		),

		IterationsRun: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kmeans_iterations_run",
			Help:    "Number of Lloyd iterations a run took to converge or hit max_iter",
			Buckets: []float64{1, 2, 5, 10, 15, 20, 30, 50},
		}),
		ReassignmentFraction: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kmeans_reassignment_fraction",
			Help:    "Fraction of points reassigned in a Lloyd iteration",
			Buckets: []float64{0, .001, .005, .01, .05, .1, .25, .5, 1},
		}),

		ClusterCost: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kmeans_cluster_cost",
			Help:    "Total within-cluster cost of a completed run",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 12),
		}),
		ClusterSilhouette: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "kmeans_cluster_silhouette",
			Help:    "Simplified silhouette coefficient of a completed run",
			Buckets: []float64{-1, -.5, -.25, 0, .25, .5, .75, .9, 1},
		}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kmeans_cache_hits_total",
			Help: "Total number of result-cache hits",
		}),
		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "kmeans_cache_misses_total",
			Help: "Total number of result-cache misses",
		}),
		CacheSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "kmeans_cache_size",
			Help: "Current number of entries in the result cache",
		}),
	}
}

// RecordRequest records a REST request's duration and status.
func (m *Metrics) RecordRequest(method, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, status).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordError records a REST request error by kind.
func (m *Metrics) RecordError(method, errorKind string) {
	m.RequestErrors.WithLabelValues(method, errorKind).Inc()
}

// RecordRunStart marks a run beginning.
func (m *Metrics) RecordRunStart() {
	m.RunsStarted.Inc()
	m.RunsActive.Inc()
}

// RecordRunSuccess records a successfully completed run.
func (m *Metrics) RecordRunSuccess(duration time.Duration, iterations int, cost, silhouette *float64) {
	m.RunsActive.Dec()
	m.RunsSucceeded.Inc()
	m.RunDuration.Observe(duration.Seconds())
	m.IterationsRun.Observe(float64(iterations))
	if cost != nil {
		m.ClusterCost.Observe(*cost)
	}
	if silhouette != nil {
		m.ClusterSilhouette.Observe(*silhouette)
	}
}

// RecordRunFailure records a run that failed with the given error kind.
func (m *Metrics) RecordRunFailure(errorKind string) {
	m.RunsActive.Dec()
	m.RunsFailed.WithLabelValues(errorKind).Inc()
}

// RecordIngest records how many points survived and how many were
// dropped during ingest validation.
func (m *Metrics) RecordIngest(kept, dropped int) {
	m.PointsIngested.Add(float64(kept))
	m.PointsDropped.Add(float64(dropped))
}

// RecordSeeding records how long a seeding strategy took.
func (m *Metrics) RecordSeeding(initMethod string, duration time.Duration) {
	m.SeedingDuration.WithLabelValues(initMethod).Observe(duration.Seconds())
}

// RecordIteration records one Lloyd iteration's reassignment fraction.
func (m *Metrics) RecordIteration(fraction float64) {
	m.ReassignmentFraction.Observe(fraction)
}

// RecordCacheHit records a result-cache hit.
func (m *Metrics) RecordCacheHit() { m.CacheHits.Inc() }

// RecordCacheMiss records a result-cache miss.
func (m *Metrics) RecordCacheMiss() { m.CacheMisses.Inc() }

// SetCacheSize reports the current number of entries in the result cache.
func (m *Metrics) SetCacheSize(n int) { m.CacheSize.Set(float64(n)) }
