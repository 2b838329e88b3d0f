package kmeans

import (
	"context"
	"fmt"

	"github.com/clusterkit/kmeans/pkg/vector"
)

// ingestReport is the (original_count, kept_count, dimension) triple
// §4.3 asks the ingest step to report alongside the working point set.
type ingestReport struct {
	Original  int
	Kept      int
	Dimension int
}

// ingest builds the working point set from src: it synthesizes a dense
// id column when the caller gave none, drops any row whose coordinate
// vector contains a null or NaN, and verifies every surviving row
// shares one dimension.
func ingest(ctx context.Context, src PointSource, relation, dataCol, idCol string) ([]Point, ingestReport, error) {
	var (
		points   []Point
		original int
		nextPID  int64 = 1
		minDim         = -1
		maxDim         = -1
	)

	err := src.Scan(ctx, relation, dataCol, idCol, func(row SourceRow) error {
		original++

		if row.Coords.HasNull() {
			return nil
		}

		pid := nextPID
		if row.ID != nil {
			pid = *row.ID
		}
		nextPID++

		dim := row.Coords.Dim
		if minDim == -1 || dim < minDim {
			minDim = dim
		}
		if dim > maxDim {
			maxDim = dim
		}

		points = append(points, Point{PID: pid, Coords: row.Coords})
		return nil
	})
	if err != nil {
		return nil, ingestReport{}, newErr(ErrKindInvalidInput, fmt.Sprintf("scanning %q", relation), err)
	}

	if len(points) == 0 {
		return nil, ingestReport{}, newErr(ErrKindInsufficientPoints, fmt.Sprintf("relation %q has no usable rows after dropping nulls", relation), nil)
	}
	if minDim != maxDim {
		return nil, ingestReport{}, newErr(ErrKindInvalidInput, fmt.Sprintf("inconsistent dimension across rows: min=%d max=%d", minDim, maxDim), nil)
	}

	report := ingestReport{Original: original, Kept: len(points), Dimension: maxDim}
	return points, report, nil
}

// sliceSource adapts an in-memory slice of vectors to PointSource, for
// callers (and tests) that already hold their points and have no
// relational backend to scan.
type sliceSource struct {
	rows []SourceRow
}

// NewSliceSource builds a PointSource over coords already resident in
// memory. ids may be nil, in which case ingest synthesizes them.
func NewSliceSource(coords []vector.Sparse, ids []int64) PointSource {
	rows := make([]SourceRow, len(coords))
	for i, c := range coords {
		row := SourceRow{Coords: c}
		if ids != nil {
			id := ids[i]
			row.ID = &id
		}
		rows[i] = row
	}
	return &sliceSource{rows: rows}
}

func (s *sliceSource) Scan(ctx context.Context, relation, dataCol, idCol string, fn func(SourceRow) error) error {
	for _, row := range s.rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(row); err != nil {
			return err
		}
	}
	return nil
}
