// Package sampling provides the row-level probability bound and
// identifier-quoting helpers the seeders and ingest layer use to work
// against a storage collaborator without an exact row count.
package sampling

import "math"

// ProbabilityBound returns the Chernoff-derived lower bound p such
// that filtering n independent rows with acceptance probability p
// yields at least s rows with probability >= 1 - 1e-6.
//
// Callers draw a Bernoulli sample at this rate and then cap the
// result at s explicitly (e.g. with a LIMIT-equivalent) since the
// bound is intentionally conservative.
func ProbabilityBound(s, n int) float64 {
	if n <= 0 {
		return 1
	}
	sf := float64(s)
	p := (sf + 14 + math.Sqrt(196+28*sf)) / float64(n)
	if p > 1 {
		return 1
	}
	if p < 0 {
		return 0
	}
	return p
}
