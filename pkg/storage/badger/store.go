// Package badger implements the clustering engine's storage
// collaborator contract (pkg/kmeans.PointSource and RelationStore) on
// top of an embedded BadgerDB instance, so a run's working point set,
// canopy tables, and output tables all get real crash-safe temp-table
// semantics instead of living only in process memory.
package badger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/clusterkit/kmeans/pkg/kmeans"
	"github.com/clusterkit/kmeans/pkg/vector"
)

// Store adapts a BadgerDB instance to kmeans.PointSource and
// kmeans.RelationStore. Every table is a key prefix; every row's key
// orders lexicographically by point id, which is what lets
// CumulativeWeights implement an ordered window function with a
// simple forward scan.
type Store struct {
	db *badgerdb.DB
}

// Open opens (creating if absent) a BadgerDB instance rooted at dir.
func Open(dir string) (*Store, error) {
	opts := badgerdb.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open %q: %w", dir, err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a Badger instance that never touches disk, for
// tests and short-lived CLI invocations.
func OpenInMemory() (*Store, error) {
	opts := badgerdb.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open in-memory: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

func tablePrefix(table string) []byte {
	return append([]byte(table), 0x00)
}

// rowKey orders lexicographically by pid ascending: the sign bit is
// flipped so negative ids, were they ever used, would still sort
// before positive ones.
func rowKey(table string, pid int64) []byte {
	key := tablePrefix(table)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(pid)^(1<<63))
	return append(key, buf[:]...)
}

type pointRecord struct {
	PID    int64           `json:"pid"`
	Dim    int             `json:"dim"`
	Coords map[int]float64 `json:"coords"`
	CID    int             `json:"cid"`
}

func encodePoint(p kmeans.Point) ([]byte, error) {
	rec := pointRecord{PID: p.PID, Dim: p.Coords.Dim, Coords: p.Coords.Values, CID: p.CID}
	return json.Marshal(rec)
}

func decodePoint(data []byte) (kmeans.Point, error) {
	var rec pointRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return kmeans.Point{}, err
	}
	coords := vector.New(rec.Dim)
	for i, x := range rec.Coords {
		coords.Values[i] = x
	}
	return kmeans.Point{PID: rec.PID, Coords: coords, CID: rec.CID}, nil
}

// Truncate clears every row under table, creating it (as empty) if it
// did not already exist.
func (s *Store) Truncate(ctx context.Context, table string) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		return deletePrefix(txn, tablePrefix(table))
	})
}

// Drop removes a table entirely; for this key-prefix scheme that is
// the same operation as Truncate, since there is no separate
// metadata record marking a table's existence.
func (s *Store) Drop(ctx context.Context, table string) error {
	return s.Truncate(ctx, table)
}

func deletePrefix(txn *badgerdb.Txn, prefix []byte) error {
	it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
	defer it.Close()

	var keys [][]byte
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		keys = append(keys, append([]byte(nil), it.Item().Key()...))
	}
	for _, k := range keys {
		if err := txn.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

// PutPoints overwrites table's contents with points.
func (s *Store) PutPoints(ctx context.Context, table string, points []kmeans.Point) error {
	return s.db.Update(func(txn *badgerdb.Txn) error {
		if err := deletePrefix(txn, tablePrefix(table)); err != nil {
			return err
		}
		for _, p := range points {
			data, err := encodePoint(p)
			if err != nil {
				return err
			}
			if err := txn.Set(rowKey(table, p.PID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// ScanPoints returns every point in table, ordered by ascending pid.
func (s *Store) ScanPoints(ctx context.Context, table string) ([]kmeans.Point, error) {
	var out []kmeans.Point
	err := s.db.View(func(txn *badgerdb.Txn) error {
		prefix := tablePrefix(table)
		it := txn.NewIterator(badgerdb.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			p, err := decodePoint(val)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return nil
	})
	return out, err
}

// GroupedAggregate groups table's rows by CID and applies reduce to
// each group — the storage layer's stand-in for a GROUP BY with a
// user-supplied aggregate function.
func (s *Store) GroupedAggregate(ctx context.Context, table string, reduce func([]kmeans.Point) vector.Sparse) (map[int]vector.Sparse, error) {
	points, err := s.ScanPoints(ctx, table)
	if err != nil {
		return nil, err
	}
	groups := make(map[int][]kmeans.Point)
	for _, p := range points {
		groups[p.CID] = append(groups[p.CID], p)
	}
	out := make(map[int]vector.Sparse, len(groups))
	for cid, pts := range groups {
		out[cid] = reduce(pts)
	}
	return out, nil
}

// CumulativeWeights returns table's point ids in ascending pid order
// along with the running sum of weight(point) in that order. Rows come
// back from Badger already pid-ordered, so this is a single forward
// pass — the ordered window function the weighted k-means++ draw
// needs.
func (s *Store) CumulativeWeights(ctx context.Context, table string, weight func(kmeans.Point) float64) ([]int64, []float64, error) {
	points, err := s.ScanPoints(ctx, table)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]int64, len(points))
	cum := make([]float64, len(points))
	var total float64
	for i, p := range points {
		total += weight(p)
		ids[i] = p.PID
		cum[i] = total
	}
	return ids, cum, nil
}

// CreateOutput declares the two output tables, failing if either
// already has rows.
func (s *Store) CreateOutput(ctx context.Context, pointsTable, centroidsTable string) error {
	for _, name := range []string{pointsTable, centroidsTable} {
		if name == "" {
			continue
		}
		existing, err := s.ScanPoints(ctx, name)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return fmt.Errorf("badger: output table %q already has rows", name)
		}
	}
	return nil
}

// WriteOutput materializes the final assignment and centroids.
// Centroids are stored as points keyed by centroid id, so both tables
// share one encoding.
func (s *Store) WriteOutput(ctx context.Context, pointsTable string, points []kmeans.Point, centroidsTable string, centroids []kmeans.Centroid) error {
	if pointsTable != "" {
		if err := s.PutPoints(ctx, pointsTable, points); err != nil {
			return err
		}
	}
	if centroidsTable != "" {
		asPoints := make([]kmeans.Point, len(centroids))
		for i, c := range centroids {
			asPoints[i] = kmeans.Point{PID: int64(c.CID), Coords: c.Coords, CID: c.CID}
		}
		if err := s.PutPoints(ctx, centroidsTable, asPoints); err != nil {
			return err
		}
	}
	return nil
}

// Scan implements kmeans.PointSource by reading an already-loaded
// relation table back as source rows. dataCol and idCol are accepted
// for interface parity with a columnar backend but unused here: a
// Badger-backed relation is always whole-row, not column-addressed.
func (s *Store) Scan(ctx context.Context, relation, dataCol, idCol string, fn func(kmeans.SourceRow) error) error {
	points, err := s.ScanPoints(ctx, relation)
	if err != nil {
		return err
	}
	for _, p := range points {
		if err := ctx.Err(); err != nil {
			return err
		}
		pid := p.PID
		if err := fn(kmeans.SourceRow{ID: &pid, Coords: p.Coords}); err != nil {
			return err
		}
	}
	return nil
}

// LoadRelation seeds a relation table from in-memory vectors, the way
// a CLI "load" step would stage a CSV or Parquet file into Badger
// before a clustering run scans it.
func (s *Store) LoadRelation(ctx context.Context, relation string, coords []vector.Sparse, ids []int64) error {
	points := make([]kmeans.Point, len(coords))
	for i, c := range coords {
		pid := int64(i + 1)
		if ids != nil {
			pid = ids[i]
		}
		points[i] = kmeans.Point{PID: pid, Coords: c}
	}
	return s.PutPoints(ctx, relation, points)
}
