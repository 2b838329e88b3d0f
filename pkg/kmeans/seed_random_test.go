package kmeans

import (
	"errors"
	"math/rand"
	"testing"
)

func makePoints(n, dim int) []Point {
	points := make([]Point, n)
	for i := 0; i < n; i++ {
		v := sp(dim, map[int]float64{0: float64(i)})
		points[i] = Point{PID: int64(i + 1), Coords: v}
	}
	return points
}

func TestSeedRandomReturnsK(t *testing.T) {
	points := makePoints(50, 3)
	rnd := rand.New(rand.NewSource(1))
	centroids, err := seedRandom(points, 5, rnd)
	if err != nil {
		t.Fatalf("seedRandom: %v", err)
	}
	if len(centroids) != 5 {
		t.Fatalf("expected 5 centroids, got %d", len(centroids))
	}
	seen := map[int]bool{}
	for _, c := range centroids {
		if seen[c.CID] {
			t.Errorf("duplicate centroid id %d", c.CID)
		}
		seen[c.CID] = true
	}
}

func TestSeedRandomInsufficientPoints(t *testing.T) {
	points := makePoints(3, 2)
	rnd := rand.New(rand.NewSource(1))
	_, err := seedRandom(points, 5, rnd)
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestSeedRandomRejectsNonPositiveK(t *testing.T) {
	points := makePoints(10, 2)
	rnd := rand.New(rand.NewSource(1))
	_, err := seedRandom(points, 0, rnd)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
