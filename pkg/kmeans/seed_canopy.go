package kmeans

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/clusterkit/kmeans/pkg/vector"
)

// canopyPartitions is the number of independent shards canopy
// construction splits the point set into before a global dedup pass
// reconciles centers that landed within T2 of each other across
// shards.
const canopyPartitions = 4

// canopySampleCap bounds how many points the threshold estimator draws
// pairwise distances over; beyond this the O(n^2) sample cost isn't
// worth the extra precision.
const canopySampleCap = 1000

type canopy struct {
	centerIdx int
	members   []int
}

// estimateThresholds derives T1 (loose) and T2 (tight) canopy radii
// from a bounded random sample of pairwise distances, bucketing the
// sorted sample into ntiles and reading T1 off the 90th percentile and
// T2 off the 10th.
func estimateThresholds(points []Point, metric vector.Metric, rnd *rand.Rand) (float64, float64, error) {
	n := len(points)
	if n < 2 {
		return 0, 0, newErr(ErrKindThresholdUnavailable, "need at least 2 points to estimate canopy thresholds", nil)
	}
	sampleSize := n
	if sampleSize > canopySampleCap {
		sampleSize = canopySampleCap
	}
	perm := rnd.Perm(n)[:sampleSize]
	sample := make([]Point, sampleSize)
	for i, idx := range perm {
		sample[i] = points[idx]
	}

	distances := make([]float64, 0, sampleSize*(sampleSize-1)/2)
	for i := 0; i < len(sample); i++ {
		for j := i + 1; j < len(sample); j++ {
			d, err := vector.Distance(metric, sample[i].Coords, sample[j].Coords)
			if err != nil {
				return 0, 0, err
			}
			distances = append(distances, d)
		}
	}
	if len(distances) == 0 {
		return 0, 0, newErr(ErrKindThresholdUnavailable, "sample too small to estimate canopy thresholds", nil)
	}
	sort.Float64s(distances)

	t1 := ntile(distances, 0.9)
	t2 := ntile(distances, 0.1)
	if t1 <= 0 || t2 <= 0 || t1 <= t2 {
		return 0, 0, newErr(ErrKindThresholdUnavailable, "sample yielded degenerate canopy thresholds (points may coincide)", nil)
	}
	return t1, t2, nil
}

func ntile(sorted []float64, frac float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(frac * float64(len(sorted)-1))
	return sorted[idx]
}

// validateThresholds checks caller-supplied T1/T2 rather than
// estimating them.
func validateThresholds(t1, t2 float64) error {
	if t1 <= 0 || t2 <= 0 {
		return newErr(ErrKindInvalidThreshold, "T1 and T2 must both be positive", nil)
	}
	if t1 <= t2 {
		return newErr(ErrKindInvalidThreshold, fmt.Sprintf("T1 (%v) must exceed T2 (%v)", t1, t2), nil)
	}
	return nil
}

// buildCanopiesOverIndices runs the standard greedy canopy sweep
// (McCallum et al.) restricted to the given subset of point indices: a
// remaining point becomes a new center, every point within T1 of it
// joins its canopy, and every point within T2 is removed from further
// consideration (including the center itself).
func buildCanopiesOverIndices(points []Point, indices []int, metric vector.Metric, t1, t2 float64) ([]canopy, error) {
	remaining := append([]int(nil), indices...)
	var canopies []canopy

	for len(remaining) > 0 {
		centerIdx := remaining[0]
		center := points[centerIdx].Coords

		var members, keep []int
		for _, idx := range remaining {
			d, err := vector.Distance(metric, points[idx].Coords, center)
			if err != nil {
				return nil, err
			}
			if d < t1 {
				members = append(members, idx)
			}
			if d >= t2 {
				keep = append(keep, idx)
			}
		}
		canopies = append(canopies, canopy{centerIdx: centerIdx, members: members})
		remaining = keep
	}
	return canopies, nil
}

func partitionIndices(n, parts int) [][]int {
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	out := make([][]int, parts)
	for i := 0; i < n; i++ {
		p := i % parts
		out[p] = append(out[p], i)
	}
	return out
}

// dedupCanopies folds canopies whose centers landed within T2 of an
// earlier canopy's center into that earlier canopy. Earlier means
// lower index in the combined, partition-ordered list, so the
// lower-indexed canopy always wins the tie.
func dedupCanopies(points []Point, canopies []canopy, metric vector.Metric, t2 float64) ([]canopy, error) {
	kept := make([]canopy, 0, len(canopies))
	for _, c := range canopies {
		merged := false
		for i := range kept {
			d, err := vector.Distance(metric, points[c.centerIdx].Coords, points[kept[i].centerIdx].Coords)
			if err != nil {
				return nil, err
			}
			if d < t2 {
				kept[i].members = append(kept[i].members, c.members...)
				merged = true
				break
			}
		}
		if !merged {
			kept = append(kept, c)
		}
	}
	return kept, nil
}

// seedCanopy builds canopy-restricted centroid candidates: one
// centroid per surviving canopy, however many that turns out to be
// once the per-partition canopies are deduped against each other. It
// returns those centroids plus a copy of points carrying each point's
// canopy membership, so the Lloyd loop can restrict its
// nearest-centroid search to only the centroids a point's canopy makes
// plausible. Canopy mode never takes or requires a caller-supplied k.
func seedCanopy(points []Point, metric vector.Metric, t1, t2 float64, rnd *rand.Rand) ([]Centroid, []Point, error) {
	n := len(points)
	if n == 0 {
		return nil, nil, newErr(ErrKindInsufficientPoints, "need at least 1 point", nil)
	}

	var err error
	if t1 <= 0 || t2 <= 0 {
		t1, t2, err = estimateThresholds(points, metric, rnd)
	} else {
		err = validateThresholds(t1, t2)
	}
	if err != nil {
		return nil, nil, err
	}

	parts := partitionIndices(n, canopyPartitions)
	var all []canopy
	for _, part := range parts {
		c, err := buildCanopiesOverIndices(points, part, metric, t1, t2)
		if err != nil {
			return nil, nil, err
		}
		all = append(all, c...)
	}
	canopies, err := dedupCanopies(points, all, metric, t2)
	if err != nil {
		return nil, nil, err
	}

	sort.Slice(canopies, func(i, j int) bool { return len(canopies[i].members) > len(canopies[j].members) })

	centroids := make([]Centroid, len(canopies))
	for i, c := range canopies {
		centroids[i] = Centroid{CID: i + 1, Coords: points[c.centerIdx].Coords}
	}

	radius := t1
	if 2*t2 > radius {
		radius = 2 * t2
	}

	out := make([]Point, n)
	for i, p := range points {
		members := make(map[int]struct{})
		for _, c := range centroids {
			d, derr := vector.Distance(metric, p.Coords, c.Coords)
			if derr != nil {
				return nil, nil, derr
			}
			if d < radius {
				members[c.CID] = struct{}{}
			}
		}
		if len(members) == 0 {
			// Every point must have at least one candidate centroid;
			// fall back to its nearest one.
			nearest := centroids[0].CID
			best, derr := vector.Distance(metric, p.Coords, centroids[0].Coords)
			if derr != nil {
				return nil, nil, derr
			}
			for _, c := range centroids[1:] {
				d, derr := vector.Distance(metric, p.Coords, c.Coords)
				if derr != nil {
					return nil, nil, derr
				}
				if d < best {
					best, nearest = d, c.CID
				}
			}
			members[nearest] = struct{}{}
		}
		p.Canopies = members
		out[i] = p
	}

	return centroids, out, nil
}
