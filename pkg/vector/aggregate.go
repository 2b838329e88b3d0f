package vector

// Aggregate computes the per-metric centroid update for a cluster of
// points: the componentwise arithmetic mean for l1norm/l2norm, and the
// componentwise arithmetic mean of the *normalized* points for
// cosine/tanimoto (so the centroid tracks direction, not magnitude).
//
// An empty cluster has no well-defined aggregate; callers must handle
// the orphan case themselves (see the Lloyd iteration engine, which
// keeps an orphan centroid's previous position rather than calling
// Aggregate on zero points).
func Aggregate(m Metric, dim int, points []Sparse) Sparse {
	out := New(dim)
	if len(points) == 0 {
		return out
	}

	normalize := m == Cosine || m == Tanimoto

	sums := make(map[int]float64)
	for _, p := range points {
		src := p
		if normalize {
			src = Normalize(p)
		}
		for i, x := range src.Values {
			sums[i] += x
		}
	}

	n := float64(len(points))
	for i, x := range sums {
		out.Values[i] = x / n
	}
	return out
}
