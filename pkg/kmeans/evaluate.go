package kmeans

import (
	"fmt"
	"math"

	"github.com/clusterkit/kmeans/pkg/vector"
)

// evaluate computes the total within-cluster cost (the sum, over every
// point, of its distance to its own centroid) and the simplified
// silhouette coefficient: for each point p with own-cluster distance
// a(p) and nearest-other-cluster distance b(p),
//
//	silhouette(p) = (b(p) - a(p)) / max(a(p), b(p))     [0 if max is 0]
//
// averaged over all points. Silhouette is undefined for a single
// cluster and comes back nil in that case; cost is always returned.
func evaluate(metric vector.Metric, points []Point, centroids []Centroid) (float64, *float64, error) {
	byCID := make(map[int]Centroid, len(centroids))
	for _, c := range centroids {
		byCID[c.CID] = c
	}

	var totalCost, silSum float64
	for _, p := range points {
		own, ok := byCID[p.CID]
		if !ok {
			return 0, nil, newErr(ErrKindInvalidInput, fmt.Sprintf("point %d assigned to unknown centroid %d", p.PID, p.CID), nil)
		}
		a, err := vector.Distance(metric, p.Coords, own.Coords)
		if err != nil {
			return 0, nil, err
		}
		totalCost += a

		if len(centroids) < 2 {
			continue
		}
		bestOther := math.Inf(1)
		for _, c := range centroids {
			if c.CID == p.CID {
				continue
			}
			d, err := vector.Distance(metric, p.Coords, c.Coords)
			if err != nil {
				return 0, nil, err
			}
			if d < bestOther {
				bestOther = d
			}
		}
		denom := math.Max(a, bestOther)
		if denom > 0 {
			silSum += (bestOther - a) / denom
		}
	}

	if len(centroids) < 2 || len(points) == 0 {
		return totalCost, nil, nil
	}
	mean := silSum / float64(len(points))
	return totalCost, &mean, nil
}

// EvaluateAssignment computes the total cost and simplified silhouette
// for an already-assigned point set, nearest-assigning each point to a
// centroid first if cid is zero. It lets a caller evaluate a
// clustering without running Lloyd itself — e.g. one loaded from a
// file written by a previous run.
func EvaluateAssignment(metricName vector.Metric, points []Point, centroids []Centroid) (float64, *float64, error) {
	metric, err := vector.Canonical(metricName)
	if err != nil {
		return 0, nil, newErr(ErrKindUnknownMetric, string(metricName), err)
	}

	assigned := make([]Point, len(points))
	for i, p := range points {
		if p.CID != 0 {
			assigned[i] = p
			continue
		}
		best, bestDist := 0, math.Inf(1)
		for _, c := range centroids {
			d, err := vector.Distance(metric, p.Coords, c.Coords)
			if err != nil {
				return 0, nil, err
			}
			if d < bestDist {
				best, bestDist = c.CID, d
			}
		}
		p.CID = best
		assigned[i] = p
	}

	return evaluate(metric, assigned, centroids)
}
