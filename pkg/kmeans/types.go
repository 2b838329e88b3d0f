package kmeans

import (
	"sort"

	"github.com/clusterkit/kmeans/pkg/vector"
)

// Point is a working point: a stable identifier, its coordinates, the
// centroid it currently prefers, and (in canopy mode) the set of
// centroid ids it is even allowed to consider. Outside canopy mode,
// Canopies is nil and every centroid id is a candidate.
type Point struct {
	PID      int64
	Coords   vector.Sparse
	CID      int
	Canopies map[int]struct{}
}

// candidates returns the centroid ids this point may be assigned to,
// given the full centroid id range [1, k]. Canopy membership, when
// present, restricts the search.
func (p Point) candidates(k int) []int {
	if p.Canopies == nil {
		out := make([]int, k)
		for i := range out {
			out[i] = i + 1
		}
		return out
	}
	out := make([]int, 0, len(p.Canopies))
	for c := range p.Canopies {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

// Centroid is a dense-id centroid positioned in the same space as the
// input points.
type Centroid struct {
	CID    int
	Coords vector.Sparse
}

// ConvergenceLog is the ordered sequence of per-iteration reassignment
// fractions. Index 0 corresponds to iteration 1.
type ConvergenceLog []float64

// Tail returns the log's last entry, or 1.0 for an empty log (the
// conventional sentinel for "nothing has converged yet").
func (c ConvergenceLog) Tail() float64 {
	if len(c) == 0 {
		return 1.0
	}
	return c[len(c)-1]
}

// InitMethod selects a centroid-seeding strategy.
type InitMethod string

const (
	InitRandom   InitMethod = "random"
	InitKMeansPP InitMethod = "kmeans++"
	InitCanopy   InitMethod = "canopy"
)

// Options bundles every recognized entry-point option (§6.1).
type Options struct {
	// Ingest.
	SrcRelation string
	SrcColData  string
	SrcColID    string // optional; synthesized if empty

	// Seeding. If InitCentroids is non-nil, seeding is skipped
	// entirely and k is derived from its length.
	InitMethod    InitMethod
	InitCentroids []Centroid
	K             int
	SampleFrac    float64 // k-means++ sub-sample fraction; 0 means "use the default"
	T1, T2        float64 // canopy thresholds; 0 means "estimate"

	// Iteration.
	DistMetric    vector.Metric
	MaxIter       int
	ConvThreshold float64

	// Output.
	Evaluate    bool
	OutPoints   string
	OutCentroid string
	Verbose     bool

	// RandSeed pins the random stream for reproducible seeding and
	// sub-sampling. Zero means "seed from process entropy".
	RandSeed int64
}

const (
	defaultMaxIter       = 20
	defaultConvThreshold = 0.001
	defaultSampleFrac    = 0.01
)

func (o Options) maxIter() int {
	if o.MaxIter <= 0 {
		return defaultMaxIter
	}
	return o.MaxIter
}

func (o Options) convThreshold() float64 {
	if o.ConvThreshold <= 0 {
		return defaultConvThreshold
	}
	return o.ConvThreshold
}

// Result is the returned record (§6.2), plus the supplemented run
// metadata (SPEC_FULL "run metadata echo").
type Result struct {
	SrcRelation    string
	KeptPoints     int
	InitMethod     InitMethod
	K              int
	DistMetric     vector.Metric
	IterationsRun  int
	Cost           *float64
	Silhouette     *float64
	OutPoints      string
	OutCentroids   string
	Convergence    ConvergenceLog
	DurationSecs   float64
	PointsPerSec   float64

	points    []Point
	centroids []Centroid
}

// Cluster is a named view over Result: a centroid and the points
// currently assigned to it, used by Result.Clusters().
type Cluster struct {
	Centroid Centroid
	Points   []Point
}

// Clusters groups the final assignment by centroid id and returns the
// clusters sorted by size, largest first — a convenience traversal
// over the same out_points/out_centroids data, not a different
// computation.
func (r Result) Clusters() []Cluster {
	byCID := make(map[int][]Point, len(r.centroids))
	for _, p := range r.points {
		byCID[p.CID] = append(byCID[p.CID], p)
	}
	out := make([]Cluster, 0, len(r.centroids))
	for _, c := range r.centroids {
		out = append(out, Cluster{Centroid: c, Points: byCID[c.CID]})
	}
	sort.Slice(out, func(i, j int) bool {
		return len(out[i].Points) > len(out[j].Points)
	})
	return out
}
