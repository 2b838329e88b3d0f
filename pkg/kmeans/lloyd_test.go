package kmeans

import (
	"context"
	"testing"

	"github.com/clusterkit/kmeans/pkg/vector"
)

func TestRunLloydConverges(t *testing.T) {
	points := twoBlobs(25)
	centroids := []Centroid{
		{CID: 1, Coords: points[0].Coords},
		{CID: 2, Coords: points[len(points)-1].Coords},
	}

	res, err := runLloyd(context.Background(), newMemStore(), points, centroids, vector.L2Norm, 1, 20, 0.001, nil)
	if err != nil {
		t.Fatalf("runLloyd: %v", err)
	}
	if res.IterationsRun == 0 {
		t.Fatal("expected at least one iteration")
	}
	if res.Convergence.Tail() > 0.001 {
		t.Errorf("expected convergence, final fraction = %v", res.Convergence.Tail())
	}

	byCID := map[int]int{}
	for _, p := range res.Points {
		byCID[p.CID]++
	}
	if len(byCID) != 2 {
		t.Errorf("expected both clusters populated, got %v", byCID)
	}
}

func TestRunLloydRespectsMaxIter(t *testing.T) {
	points := twoBlobs(25)
	centroids := []Centroid{
		{CID: 1, Coords: points[0].Coords},
		{CID: 2, Coords: points[len(points)-1].Coords},
	}
	res, err := runLloyd(context.Background(), newMemStore(), points, centroids, vector.L2Norm, 1, 1, 0, nil)
	if err != nil {
		t.Fatalf("runLloyd: %v", err)
	}
	if res.IterationsRun != 1 {
		t.Errorf("expected exactly 1 iteration, got %d", res.IterationsRun)
	}
}

func TestRunLloydOrphanRetention(t *testing.T) {
	// Three centroids, only two reachable clusters: the third should
	// keep its original position rather than disappearing.
	points := twoBlobs(10)
	far := Centroid{CID: 3, Coords: sp(1, map[int]float64{0: -10000})}
	centroids := []Centroid{
		{CID: 1, Coords: points[0].Coords},
		{CID: 2, Coords: points[len(points)-1].Coords},
		far,
	}
	res, err := runLloyd(context.Background(), newMemStore(), points, centroids, vector.L2Norm, 1, 5, 0.001, nil)
	if err != nil {
		t.Fatalf("runLloyd: %v", err)
	}
	var got Centroid
	for _, c := range res.Centroids {
		if c.CID == 3 {
			got = c
		}
	}
	if got.Coords.At(0) != far.Coords.At(0) {
		t.Errorf("expected orphan centroid to retain its position, got %v", got.Coords.At(0))
	}
}

func TestRunLloydCancelledContext(t *testing.T) {
	points := twoBlobs(10)
	centroids := []Centroid{
		{CID: 1, Coords: points[0].Coords},
		{CID: 2, Coords: points[len(points)-1].Coords},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := runLloyd(ctx, newMemStore(), points, centroids, vector.L2Norm, 1, 5, 0.001, nil)
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
}

func TestRunLloydHonorsCanopyRestriction(t *testing.T) {
	points := twoBlobs(10)
	// Force every point into canopy 1 only, so the assignment step
	// must never choose centroid 2 even though it would otherwise be
	// closer for the second blob.
	for i := range points {
		points[i].Canopies = map[int]struct{}{1: {}}
	}
	centroids := []Centroid{
		{CID: 1, Coords: points[0].Coords},
		{CID: 2, Coords: points[len(points)-1].Coords},
	}
	res, err := runLloyd(context.Background(), newMemStore(), points, centroids, vector.L2Norm, 1, 5, 0.001, nil)
	if err != nil {
		t.Fatalf("runLloyd: %v", err)
	}
	for _, p := range res.Points {
		if p.CID != 1 {
			t.Errorf("expected all points restricted to canopy 1, point %d got cid %d", p.PID, p.CID)
		}
	}
}
