package kmeans

import (
	"fmt"
	"math/rand"

	"github.com/clusterkit/kmeans/pkg/sampling"
)

// seedRandom picks k initial centroids uniformly from points. It first
// draws a Bernoulli sample at the Chernoff-bound rate that should yield
// at least k rows, then shuffles that sample and truncates to exactly
// k — the same probability-bound-then-cap shape the sub-sampling in
// seedKMeansPP uses, so a caller reading both sees one idiom.
func seedRandom(points []Point, k int, rnd *rand.Rand) ([]Centroid, error) {
	if k <= 0 {
		return nil, newErr(ErrKindInvalidInput, fmt.Sprintf("k must be positive, got %d", k), nil)
	}
	n := len(points)
	if n < k {
		return nil, newErr(ErrKindInsufficientPoints, fmt.Sprintf("need at least k=%d points, have %d", k, n), nil)
	}

	p := sampling.ProbabilityBound(k, n)
	sampled := make([]Point, 0, int(p*float64(n))+k)
	for _, pt := range points {
		if rnd.Float64() < p {
			sampled = append(sampled, pt)
		}
	}
	if len(sampled) < k {
		sampled = append(sampled[:0:0], points...)
	}

	rnd.Shuffle(len(sampled), func(i, j int) {
		sampled[i], sampled[j] = sampled[j], sampled[i]
	})

	centroids := make([]Centroid, k)
	for i := 0; i < k; i++ {
		centroids[i] = Centroid{CID: i + 1, Coords: sampled[i].Coords}
	}
	return centroids, nil
}
