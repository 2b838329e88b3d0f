// Package pinecone adapts a Pinecone index to kmeans.PointSource, so a
// cluster run can ingest directly from vectors already living in a
// managed index instead of a locally staged relation.
package pinecone

import (
	"context"
	"fmt"
	"strconv"

	"github.com/pinecone-io/go-pinecone/v3/pinecone"

	"github.com/clusterkit/kmeans/pkg/kmeans"
	"github.com/clusterkit/kmeans/pkg/vector"
)

// Config names the Pinecone index and namespace to read from.
type Config struct {
	APIKey    string
	IndexName string
	IndexHost string
	Namespace string
	PageSize  uint32
}

// Source scans every vector in one Pinecone namespace as the
// clustering engine's point set.
type Source struct {
	cfg     Config
	idxConn *pinecone.IndexConnection
}

// NewSource connects to the configured index and resolves its host if
// only a name was given.
func NewSource(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("pinecone: API key is required")
	}
	if cfg.IndexName == "" && cfg.IndexHost == "" {
		return nil, fmt.Errorf("pinecone: index name or host is required")
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 100
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("pinecone: creating client: %w", err)
	}

	host := cfg.IndexHost
	if host == "" {
		idx, err := pc.DescribeIndex(ctx, cfg.IndexName)
		if err != nil {
			return nil, fmt.Errorf("pinecone: describing index %q: %w", cfg.IndexName, err)
		}
		host = idx.Host
	}

	idxConn, err := pc.Index(pinecone.NewIndexConnParams{Host: host, Namespace: cfg.Namespace})
	if err != nil {
		return nil, fmt.Errorf("pinecone: connecting to index: %w", err)
	}

	return &Source{cfg: cfg, idxConn: idxConn}, nil
}

// Scan pages through every vector id in the namespace, fetches its
// values in batches, and streams each as a SourceRow. relation,
// dataCol, and idCol are accepted for kmeans.PointSource parity but
// unused — a Pinecone namespace has no columns to name.
func (s *Source) Scan(ctx context.Context, relation, dataCol, idCol string, fn func(kmeans.SourceRow) error) error {
	var nextToken *string
	for {
		limit := s.cfg.PageSize
		listResp, err := s.idxConn.ListVectors(ctx, &pinecone.ListVectorsRequest{
			Limit:           &limit,
			PaginationToken: nextToken,
		})
		if err != nil {
			return fmt.Errorf("pinecone: listing vectors: %w", err)
		}
		if len(listResp.VectorIds) == 0 {
			return nil
		}

		ids := make([]string, len(listResp.VectorIds))
		for i, id := range listResp.VectorIds {
			ids[i] = *id
		}

		fetchResp, err := s.idxConn.FetchVectors(ctx, ids)
		if err != nil {
			return fmt.Errorf("pinecone: fetching vectors: %w", err)
		}
		for _, id := range ids {
			v, ok := fetchResp.Vectors[id]
			if !ok || v.Values == nil {
				continue
			}
			row := kmeans.SourceRow{Coords: vector.FromDense(float64SliceOf(*v.Values))}
			if pid, err := strconv.ParseInt(id, 10, 64); err == nil {
				row.ID = &pid
			}
			if err := fn(row); err != nil {
				return err
			}
		}

		if listResp.Pagination == nil || listResp.Pagination.Next == "" {
			return nil
		}
		nextToken = &listResp.Pagination.Next
	}
}

func float64SliceOf(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, x := range values {
		out[i] = float64(x)
	}
	return out
}
