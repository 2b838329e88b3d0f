package kmeans

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/clusterkit/kmeans/pkg/sampling"
	"github.com/clusterkit/kmeans/pkg/vector"
)

// kmeansppWorkTable is the relation store's working table for the
// weighted draw: the (possibly sub-sampled) candidate pool is spilled
// here once, and every draw reads its cumulative weight back through
// the store's ordered window function rather than summing in memory.
const kmeansppWorkTable = "__kmeans_kmeanspp_pool__"

// seedKMeansPP runs k-means++: the first centroid is uniform, each
// subsequent one is drawn with probability proportional to its squared
// distance to the nearest centroid chosen so far. Both draws are over
// the same fixed candidate pool — a single Bernoulli sub-sample taken
// once up front, not redrawn per iteration — so the weighted draw is
// deterministic given the random stream and the pid ordering.
func seedKMeansPP(ctx context.Context, store RelationStore, points []Point, k int, metric vector.Metric, sampleFrac float64, rnd *rand.Rand) ([]Centroid, error) {
	if k <= 0 {
		return nil, newErr(ErrKindInvalidInput, fmt.Sprintf("k must be positive, got %d", k), nil)
	}
	n := len(points)
	if n < k {
		return nil, newErr(ErrKindInsufficientPoints, fmt.Sprintf("need at least k=%d points, have %d", k, n), nil)
	}

	explicit := sampleFrac > 0
	if sampleFrac <= 0 {
		sampleFrac = defaultSampleFrac
	}

	target := int(sampleFrac * float64(n))
	if target < 1 {
		target = 1
	}
	if explicit && target < k {
		return nil, newErr(ErrKindSampleTooSmall, fmt.Sprintf("sample_frac=%v over n=%d yields a target of %d, need at least k=%d", sampleFrac, n, target, k), nil)
	}

	poolIdx := subsamplePool(n, sampleFrac, rnd)
	sort.Slice(poolIdx, func(i, j int) bool { return points[poolIdx[i]].PID < points[poolIdx[j]].PID })

	pool := make([]Point, len(poolIdx))
	for i, idx := range poolIdx {
		pool[i] = points[idx]
	}
	if err := store.PutPoints(ctx, kmeansppWorkTable, pool); err != nil {
		return nil, err
	}

	minDist2 := make([]float64, len(pool))
	for i := range minDist2 {
		minDist2[i] = math.Inf(1)
	}
	pidPos := make(map[int64]int, len(pool))
	for i, p := range pool {
		pidPos[p.PID] = i
	}

	centroids := make([]Centroid, 0, k)
	first := pool[rnd.Intn(len(pool))]
	centroids = append(centroids, Centroid{CID: 1, Coords: first.Coords})
	if err := updateMinDist2(pool, minDist2, centroids[0], metric); err != nil {
		return nil, err
	}

	for len(centroids) < k {
		ids, cum, err := store.CumulativeWeights(ctx, kmeansppWorkTable, func(p Point) float64 {
			return minDist2[pidPos[p.PID]]
		})
		if err != nil {
			return nil, err
		}
		var total float64
		if len(cum) > 0 {
			total = cum[len(cum)-1]
		}

		target := rnd.Float64() * total
		j := sort.Search(len(cum), func(i int) bool { return cum[i] >= target })
		if j == len(cum) {
			j = len(cum) - 1
		}
		chosen := pool[pidPos[ids[j]]]

		c := Centroid{CID: len(centroids) + 1, Coords: chosen.Coords}
		centroids = append(centroids, c)
		if err := updateMinDist2(pool, minDist2, c, metric); err != nil {
			return nil, err
		}
	}

	if err := store.Drop(ctx, kmeansppWorkTable); err != nil {
		return nil, err
	}

	return centroids, nil
}

// updateMinDist2 folds a newly chosen centroid into each point's
// running minimum squared distance to any centroid chosen so far.
func updateMinDist2(points []Point, minDist2 []float64, c Centroid, metric vector.Metric) error {
	for i, p := range points {
		d, err := vector.Distance(metric, p.Coords, c.Coords)
		if err != nil {
			return err
		}
		if d2 := d * d; d2 < minDist2[i] {
			minDist2[i] = d2
		}
	}
	return nil
}

// subsamplePool draws a Chernoff-bounded Bernoulli sample of point
// indices targeting roughly frac*n candidates, falling back to the
// full index range if the draw comes up empty.
func subsamplePool(n int, frac float64, rnd *rand.Rand) []int {
	target := int(frac * float64(n))
	if target < 1 {
		target = 1
	}
	p := sampling.ProbabilityBound(target, n)

	idx := make([]int, 0, target*2)
	for i := 0; i < n; i++ {
		if rnd.Float64() < p {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		idx = make([]int, n)
		for i := range idx {
			idx[i] = i
		}
	}
	return idx
}
