package badger

import (
	"context"
	"testing"

	"github.com/clusterkit/kmeans/pkg/kmeans"
	"github.com/clusterkit/kmeans/pkg/vector"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndScanPointsOrdersByPID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	points := []kmeans.Point{
		{PID: 3, Coords: vector.FromDense([]float64{3})},
		{PID: 1, Coords: vector.FromDense([]float64{1})},
		{PID: 2, Coords: vector.FromDense([]float64{2})},
	}
	if err := s.PutPoints(ctx, "points", points); err != nil {
		t.Fatalf("PutPoints: %v", err)
	}

	got, err := s.ScanPoints(ctx, "points")
	if err != nil {
		t.Fatalf("ScanPoints: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got))
	}
	for i, p := range got {
		if p.PID != int64(i+1) {
			t.Errorf("expected ascending pid order, got %v at index %d", p.PID, i)
		}
	}
}

func TestTruncateClearsTable(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	s.PutPoints(ctx, "points", []kmeans.Point{{PID: 1, Coords: vector.FromDense([]float64{1})}})

	if err := s.Truncate(ctx, "points"); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	got, err := s.ScanPoints(ctx, "points")
	if err != nil {
		t.Fatalf("ScanPoints: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty table after truncate, got %d rows", len(got))
	}
}

func TestCumulativeWeightsIsOrderedAndMonotonic(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	points := []kmeans.Point{
		{PID: 1, Coords: vector.FromDense([]float64{1})},
		{PID: 2, Coords: vector.FromDense([]float64{1})},
		{PID: 3, Coords: vector.FromDense([]float64{1})},
	}
	s.PutPoints(ctx, "points", points)

	ids, cum, err := s.CumulativeWeights(ctx, "points", func(p kmeans.Point) float64 { return 1.0 })
	if err != nil {
		t.Fatalf("CumulativeWeights: %v", err)
	}
	want := []int64{1, 2, 3}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
	for i := 1; i < len(cum); i++ {
		if cum[i] < cum[i-1] {
			t.Errorf("expected non-decreasing cumulative sum, got %v", cum)
		}
	}
	if cum[len(cum)-1] != 3 {
		t.Errorf("expected final cumulative sum 3, got %v", cum[len(cum)-1])
	}
}

func TestGroupedAggregateGroupsByCID(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	points := []kmeans.Point{
		{PID: 1, Coords: vector.FromDense([]float64{1}), CID: 1},
		{PID: 2, Coords: vector.FromDense([]float64{3}), CID: 1},
		{PID: 3, Coords: vector.FromDense([]float64{10}), CID: 2},
	}
	s.PutPoints(ctx, "points", points)

	sums, err := s.GroupedAggregate(ctx, "points", func(pts []kmeans.Point) vector.Sparse {
		return vector.Aggregate(vector.L2Norm, 1, coordsOfPoints(pts))
	})
	if err != nil {
		t.Fatalf("GroupedAggregate: %v", err)
	}
	if got := sums[1].At(0); got != 2 {
		t.Errorf("expected mean 2 for cid 1, got %v", got)
	}
	if got := sums[2].At(0); got != 10 {
		t.Errorf("expected mean 10 for cid 2, got %v", got)
	}
}

func coordsOfPoints(points []kmeans.Point) []vector.Sparse {
	out := make([]vector.Sparse, len(points))
	for i, p := range points {
		out[i] = p.Coords
	}
	return out
}

func TestCreateOutputRejectsExistingTable(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	s.PutPoints(ctx, "out_points", []kmeans.Point{{PID: 1, Coords: vector.FromDense([]float64{1})}})

	if err := s.CreateOutput(ctx, "out_points", "out_centroids"); err == nil {
		t.Fatal("expected error for pre-existing output table")
	}
}

func TestLoadRelationThenScanAsSource(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	coords := []vector.Sparse{vector.FromDense([]float64{1, 2}), vector.FromDense([]float64{3, 4})}
	if err := s.LoadRelation(ctx, "raw", coords, nil); err != nil {
		t.Fatalf("LoadRelation: %v", err)
	}

	var rows []kmeans.SourceRow
	err := s.Scan(ctx, "raw", "coords", "", func(row kmeans.SourceRow) error {
		rows = append(rows, row)
		return nil
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}
