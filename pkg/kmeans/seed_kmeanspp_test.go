package kmeans

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/clusterkit/kmeans/pkg/vector"
)

func TestSeedKMeansPPReturnsK(t *testing.T) {
	points := makePoints(200, 2)
	rnd := rand.New(rand.NewSource(7))
	centroids, err := seedKMeansPP(context.Background(), newMemStore(), points, 4, vector.L2Norm, 0.1, rnd)
	if err != nil {
		t.Fatalf("seedKMeansPP: %v", err)
	}
	if len(centroids) != 4 {
		t.Fatalf("expected 4 centroids, got %d", len(centroids))
	}
	for i, c := range centroids {
		if c.CID != i+1 {
			t.Errorf("expected dense centroid ids, got %d at index %d", c.CID, i)
		}
	}
}

func TestSeedKMeansPPSpreadsOut(t *testing.T) {
	// Two tight clusters far apart; k-means++ should pick one centroid
	// from each rather than two from the same cluster.
	var points []Point
	for i := 0; i < 20; i++ {
		points = append(points, Point{PID: int64(i + 1), Coords: sp(1, map[int]float64{0: float64(i) * 0.01})})
	}
	for i := 0; i < 20; i++ {
		points = append(points, Point{PID: int64(i + 21), Coords: sp(1, map[int]float64{0: 1000 + float64(i)*0.01})})
	}
	rnd := rand.New(rand.NewSource(3))
	centroids, err := seedKMeansPP(context.Background(), newMemStore(), points, 2, vector.L2Norm, 1.0, rnd)
	if err != nil {
		t.Fatalf("seedKMeansPP: %v", err)
	}
	d, err := vector.Distance(vector.L2Norm, centroids[0].Coords, centroids[1].Coords)
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if d < 500 {
		t.Errorf("expected centroids from distinct clusters, got distance %v", d)
	}
}

func TestSeedKMeansPPInsufficientPoints(t *testing.T) {
	points := makePoints(2, 2)
	rnd := rand.New(rand.NewSource(1))
	_, err := seedKMeansPP(context.Background(), newMemStore(), points, 5, vector.L2Norm, 0.1, rnd)
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestSeedKMeansPPRejectsUndersizedExplicitSample(t *testing.T) {
	// An explicit sample_frac so small that the target candidate count
	// falls below k must fail fast rather than silently falling back
	// to a bigger pool.
	points := makePoints(500, 2)
	rnd := rand.New(rand.NewSource(1))
	_, err := seedKMeansPP(context.Background(), newMemStore(), points, 10, vector.L2Norm, 0.001, rnd)
	if !errors.Is(err, ErrSampleTooSmall) {
		t.Fatalf("expected ErrSampleTooSmall, got %v", err)
	}
}

func TestSeedKMeansPPDefaultSampleNeverTooSmall(t *testing.T) {
	// sample_frac left at 0 ("use the default") must never raise
	// SampleTooSmall: only an explicitly supplied fraction can.
	points := makePoints(10, 2)
	rnd := rand.New(rand.NewSource(1))
	_, err := seedKMeansPP(context.Background(), newMemStore(), points, 3, vector.L2Norm, 0, rnd)
	if err != nil {
		t.Fatalf("seedKMeansPP: %v", err)
	}
}
