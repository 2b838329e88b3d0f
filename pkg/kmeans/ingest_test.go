package kmeans

import (
	"context"
	"errors"
	"testing"

	"github.com/clusterkit/kmeans/pkg/vector"
)

func sp(dim int, vals map[int]float64) vector.Sparse {
	v := vector.New(dim)
	for i, x := range vals {
		v.Values[i] = x
	}
	return v
}

func TestIngestSynthesizesIDs(t *testing.T) {
	src := NewSliceSource([]vector.Sparse{
		sp(2, map[int]float64{0: 1}),
		sp(2, map[int]float64{1: 2}),
	}, nil)

	points, report, err := ingest(context.Background(), src, "points", "coords", "")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if report.Original != 2 || report.Kept != 2 || report.Dimension != 2 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if points[0].PID != 1 || points[1].PID != 2 {
		t.Errorf("expected dense 1..N ids, got %d, %d", points[0].PID, points[1].PID)
	}
}

func TestIngestDropsNullRows(t *testing.T) {
	v := vector.New(2)
	v.Values[0] = 1
	nanVec := vector.New(2)
	nanVec.Values[0] = nan()

	src := NewSliceSource([]vector.Sparse{v, nanVec}, nil)
	points, report, err := ingest(context.Background(), src, "points", "coords", "")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if report.Original != 2 || report.Kept != 1 {
		t.Fatalf("expected one row dropped, got %+v", report)
	}
	if len(points) != 1 {
		t.Fatalf("expected 1 surviving point, got %d", len(points))
	}
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestIngestRejectsInconsistentDimension(t *testing.T) {
	src := NewSliceSource([]vector.Sparse{
		sp(2, map[int]float64{0: 1}),
		sp(3, map[int]float64{0: 1}),
	}, nil)

	_, _, err := ingest(context.Background(), src, "points", "coords", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIngestRejectsEmptyResult(t *testing.T) {
	src := NewSliceSource(nil, nil)
	_, _, err := ingest(context.Background(), src, "points", "coords", "")
	if !errors.Is(err, ErrInsufficientPoints) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
}

func TestIngestPreservesGivenIDs(t *testing.T) {
	src := NewSliceSource([]vector.Sparse{
		sp(1, map[int]float64{0: 1}),
		sp(1, map[int]float64{0: 2}),
	}, []int64{100, 200})

	points, _, err := ingest(context.Background(), src, "points", "coords", "id")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if points[0].PID != 100 || points[1].PID != 200 {
		t.Errorf("expected given ids preserved, got %d, %d", points[0].PID, points[1].PID)
	}
}
