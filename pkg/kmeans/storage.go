package kmeans

import (
	"context"

	"github.com/clusterkit/kmeans/pkg/vector"
)

// SourceRow is a single row read from a point-producing source: an
// optional caller-supplied id and the coordinate vector.
type SourceRow struct {
	ID     *int64
	Coords vector.Sparse
}

// PointSource is the read side of the storage collaborator contract
// (§6.4): something that can scan a relation's data (and optional id)
// column and stream rows to fn. Returning a non-nil error from fn
// stops the scan and propagates the error to the caller.
type PointSource interface {
	Scan(ctx context.Context, relation, dataCol, idCol string, fn func(SourceRow) error) error
}

// RelationStore is the write/aggregate side of the storage
// collaborator contract (§6.4): temporary-table materialization,
// grouped aggregation with a caller-supplied reducer, an ordered
// window sufficient to produce cumulative sums (used by the weighted
// sampling in k-means++), and output-table creation.
//
// All methods are keyed by a table name rather than taking the points
// directly, so a real implementation is free to spill to disk between
// calls instead of holding the whole working set in memory.
type RelationStore interface {
	// Truncate clears a table's contents, creating it if absent.
	Truncate(ctx context.Context, name string) error
	// Drop removes a table entirely.
	Drop(ctx context.Context, name string) error
	// PutPoints overwrites a table's contents with points.
	PutPoints(ctx context.Context, name string, points []Point) error
	// ScanPoints returns every point currently in a table.
	ScanPoints(ctx context.Context, name string) ([]Point, error)
	// GroupedAggregate groups a table's points by their current CID
	// and applies reduce to each group, the way a GROUP BY with a
	// user-defined aggregate function would in a relational engine.
	GroupedAggregate(ctx context.Context, name string, reduce func([]Point) vector.Sparse) (map[int]vector.Sparse, error)
	// CumulativeWeights returns a table's point ids in ascending pid
	// order along with the running (cumulative) sum of weight(point)
	// in that same order — the ordered window function the spec
	// requires for the k-means++ weighted draw.
	CumulativeWeights(ctx context.Context, name string, weight func(Point) float64) (ids []int64, cumsum []float64, err error)
	// CreateOutput declares the two output tables up front so name
	// collisions surface as ErrOutputExists before any phase runs.
	CreateOutput(ctx context.Context, pointsTable, centroidsTable string) error
	// WriteOutput materializes the final assignment and centroids.
	WriteOutput(ctx context.Context, pointsTable string, points []Point, centroidsTable string, centroids []Centroid) error
}
