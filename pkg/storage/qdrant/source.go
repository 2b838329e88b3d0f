// Package qdrant adapts a Qdrant collection to kmeans.PointSource, so
// a cluster run can ingest directly from vectors already stored in a
// running Qdrant instance.
package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/clusterkit/kmeans/pkg/kmeans"
	"github.com/clusterkit/kmeans/pkg/vector"
)

// Config names the Qdrant collection to scroll through.
type Config struct {
	Host       string
	GRPCPort   int
	APIKey     string
	Collection string
	UseTLS     bool
	PageSize   uint32
}

// Source scrolls through every point in one Qdrant collection.
type Source struct {
	cfg    Config
	conn   *grpc.ClientConn
	points pb.PointsClient
}

// NewSource dials the Qdrant gRPC endpoint and prepares a points
// client for scrolling.
func NewSource(ctx context.Context, cfg Config) (*Source, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("qdrant: host is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection is required")
	}
	if cfg.GRPCPort <= 0 {
		cfg.GRPCPort = 6334
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 100
	}

	var opts []grpc.DialOption
	if cfg.UseTLS {
		opts = append(opts, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{})))
	} else {
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.GRPCPort)
	conn, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("qdrant: connecting to %s: %w", addr, err)
	}

	return &Source{cfg: cfg, conn: conn, points: pb.NewPointsClient(conn)}, nil
}

// Close releases the underlying gRPC connection.
func (s *Source) Close() error { return s.conn.Close() }

// Scan pages through the collection via Scroll, converting every
// retrieved point to a SourceRow. relation, dataCol, and idCol are
// accepted for kmeans.PointSource parity but unused — a Qdrant
// collection has no columns to name.
func (s *Source) Scan(ctx context.Context, relation, dataCol, idCol string, fn func(kmeans.SourceRow) error) error {
	if s.cfg.APIKey != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", s.cfg.APIKey)
	}

	var offset *pb.PointId
	withVectors := pb.WithVectorsSelector{SelectorOptions: &pb.WithVectorsSelector_Enable{Enable: true}}

	for {
		limit := s.cfg.PageSize
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: s.cfg.Collection,
			Limit:          &limit,
			Offset:         offset,
			WithVectors:    &withVectors,
		})
		if err != nil {
			return fmt.Errorf("qdrant: scrolling collection %q: %w", s.cfg.Collection, err)
		}
		if len(resp.Result) == 0 {
			return nil
		}

		for _, p := range resp.Result {
			row, ok := sourceRowOf(p)
			if !ok {
				continue
			}
			if err := fn(row); err != nil {
				return err
			}
		}

		if resp.NextPageOffset == nil {
			return nil
		}
		offset = resp.NextPageOffset
	}
}

func sourceRowOf(p *pb.RetrievedPoint) (kmeans.SourceRow, bool) {
	vecOut := p.GetVectors()
	if vecOut == nil || vecOut.GetVector() == nil {
		return kmeans.SourceRow{}, false
	}
	data := vecOut.GetVector().GetData()
	row := kmeans.SourceRow{Coords: vector.FromDense(float64SliceOf(data))}
	if id := p.GetId(); id != nil {
		if num := id.GetNum(); num != 0 {
			pid := int64(num)
			row.ID = &pid
		}
	}
	return row, true
}

func float64SliceOf(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, x := range values {
		out[i] = float64(x)
	}
	return out
}
