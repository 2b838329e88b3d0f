package kmeans

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/clusterkit/kmeans/pkg/vector"
)

func twoBlobs(perBlob int) []Point {
	var points []Point
	pid := int64(1)
	for i := 0; i < perBlob; i++ {
		points = append(points, Point{PID: pid, Coords: sp(1, map[int]float64{0: float64(i) * 0.1})})
		pid++
	}
	for i := 0; i < perBlob; i++ {
		points = append(points, Point{PID: pid, Coords: sp(1, map[int]float64{0: 500 + float64(i)*0.1})})
		pid++
	}
	return points
}

func TestSeedCanopyEstimatesThresholds(t *testing.T) {
	points := twoBlobs(30)
	rnd := rand.New(rand.NewSource(42))
	centroids, out, err := seedCanopy(points, vector.L2Norm, 0, 0, rnd)
	if err != nil {
		t.Fatalf("seedCanopy: %v", err)
	}
	// Estimated T2 is the 10th-percentile pairwise distance, so each
	// blob may split into several canopies; canopy mode makes no
	// promise beyond "at least one".
	if len(centroids) < 1 {
		t.Fatalf("expected at least 1 centroid, got %d", len(centroids))
	}
	if len(out) != len(points) {
		t.Fatalf("expected %d points back, got %d", len(points), len(out))
	}
	for _, p := range out {
		if len(p.Canopies) == 0 {
			t.Fatalf("point %d has no canopy membership", p.PID)
		}
	}
}

func TestSeedCanopyRejectsBadExplicitThresholds(t *testing.T) {
	points := twoBlobs(10)
	rnd := rand.New(rand.NewSource(1))
	_, _, err := seedCanopy(points, vector.L2Norm, 1.0, 2.0, rnd)
	if !errors.Is(err, ErrInvalidThreshold) {
		t.Fatalf("expected ErrInvalidThreshold, got %v", err)
	}
}

func TestSeedCanopyInsufficientPoints(t *testing.T) {
	var points []Point
	rnd := rand.New(rand.NewSource(1))
	_, _, err := seedCanopy(points, vector.L2Norm, 0, 0, rnd)
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestSeedCanopyDoesNotPadOrTruncateToK(t *testing.T) {
	// A single tight blob estimates thresholds wide enough that every
	// point falls into one canopy: the result must be exactly 1
	// centroid, never padded up to match some caller-supplied k.
	points := twoBlobs(30)[:30]
	rnd := rand.New(rand.NewSource(9))
	centroids, _, err := seedCanopy(points, vector.L2Norm, 0, 0, rnd)
	if err != nil {
		t.Fatalf("seedCanopy: %v", err)
	}
	if len(centroids) != 1 {
		t.Fatalf("expected exactly 1 surviving canopy centroid, got %d", len(centroids))
	}
}

func TestNtileMonotonic(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	if ntile(sorted, 0.1) > ntile(sorted, 0.9) {
		t.Error("expected ntile to be non-decreasing in frac")
	}
}
