package kmeans

import (
	"context"
	"math"

	"github.com/clusterkit/kmeans/pkg/vector"
)

// lloydWorkTable is the relation store's working table for the
// iteration loop: each iteration's freshly assigned points are spilled
// here so centroid recomputation can go through the store's grouped
// aggregate rather than holding the whole working set in memory.
const lloydWorkTable = "__kmeans_lloyd_work__"

// lloydResult is everything one call to runLloyd produces: the final
// assignment, the final centroids, and the per-iteration reassignment
// fractions that drove the stopping decision.
type lloydResult struct {
	Points        []Point
	Centroids     []Centroid
	Convergence   ConvergenceLog
	IterationsRun int
}

// runLloyd iterates assignment and centroid recomputation to a fixed
// point. Each iteration computes the next assignment into a fresh
// slice rather than mutating points in place — the in-memory analogue
// of swapping double-buffered point tables — so centroid recomputation
// always sees a consistent, fully-formed iteration's assignment.
// Centroid recomputation itself goes through store's GroupedAggregate,
// the same GROUP BY collaborator a columnar backend would expose.
//
// onIteration, if non-nil, is called after each iteration with its
// index (1-based) and reassignment fraction, for callers that want to
// log or trace per-phase progress.
func runLloyd(ctx context.Context, store RelationStore, points []Point, centroids []Centroid, metric vector.Metric, dim int, maxIter int, convThreshold float64, onIteration func(iter int, frac float64)) (lloydResult, error) {
	current := append([]Point(nil), points...)
	k := len(centroids)

	var log ConvergenceLog
	iter := 0

	for iter < maxIter {
		if err := ctx.Err(); err != nil {
			return lloydResult{}, newErr(ErrKindCancelled, "lloyd iteration cancelled", err)
		}

		centroidIdx := make(map[int]int, k)
		for i, c := range centroids {
			centroidIdx[c.CID] = i
		}

		next := make([]Point, len(current))
		changed := 0
		for i, p := range current {
			bestCID := -1
			bestDist := math.Inf(1)
			for _, cid := range p.candidates(k) {
				ci, ok := centroidIdx[cid]
				if !ok {
					continue
				}
				d, err := vector.Distance(metric, p.Coords, centroids[ci].Coords)
				if err != nil {
					return lloydResult{}, newErr(ErrKindInvalidInput, "computing assignment distance", err)
				}
				// Candidates are visited in ascending cid order, so a
				// strict improvement is enough to make the lowest-cid
				// candidate win every tie.
				if d < bestDist {
					bestDist = d
					bestCID = cid
				}
			}
			if bestCID != p.CID {
				changed++
			}
			np := p
			np.CID = bestCID
			next[i] = np
		}

		frac := float64(changed) / float64(len(next))
		log = append(log, frac)
		iter++
		if onIteration != nil {
			onIteration(iter, frac)
		}

		recomputed, err := recomputeCentroids(ctx, store, metric, dim, centroids, next)
		if err != nil {
			return lloydResult{}, err
		}
		centroids = recomputed
		current = next

		if frac < convThreshold {
			break
		}
	}

	if err := store.Drop(ctx, lloydWorkTable); err != nil {
		return lloydResult{}, err
	}

	return lloydResult{Points: current, Centroids: centroids, Convergence: log, IterationsRun: iter}, nil
}

// recomputeCentroids rebuilds each centroid's coordinates from the
// points currently assigned to it, by spilling the iteration's
// assignment into the store's working table and letting GroupedAggregate
// do the CID grouping. A centroid with no assigned points (an orphan)
// retains its previous position rather than vanishing or relocating to
// the origin.
func recomputeCentroids(ctx context.Context, store RelationStore, metric vector.Metric, dim int, old []Centroid, points []Point) ([]Centroid, error) {
	if err := store.PutPoints(ctx, lloydWorkTable, points); err != nil {
		return nil, err
	}
	groups, err := store.GroupedAggregate(ctx, lloydWorkTable, func(pts []Point) vector.Sparse {
		coords := make([]vector.Sparse, len(pts))
		for i, pt := range pts {
			coords[i] = pt.Coords
		}
		return vector.Aggregate(metric, dim, coords)
	})
	if err != nil {
		return nil, err
	}

	out := make([]Centroid, len(old))
	for i, c := range old {
		coords, ok := groups[c.CID]
		if !ok {
			out[i] = c
			continue
		}
		out[i] = Centroid{CID: c.CID, Coords: coords}
	}
	return out, nil
}
