// Package kmeans implements the clustering engine: ingest, centroid
// seeding (uniform random, k-means++, canopy-restricted), Lloyd
// iteration to a fixed point, and the optional cost/silhouette
// evaluation pass.
package kmeans

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/clusterkit/kmeans/pkg/observability"
	"github.com/clusterkit/kmeans/pkg/sampling"
	"github.com/clusterkit/kmeans/pkg/vector"
)

// Engine ties a point source and a relation store to the core
// algorithms so Run can be invoked against any storage backend that
// satisfies the two collaborator contracts.
type Engine struct {
	Source PointSource
	Store  RelationStore
	Logger *observability.Logger
}

// NewEngine builds an Engine. A nil logger gets a default one so
// callers never need a nil check before logging.
func NewEngine(source PointSource, store RelationStore, logger *observability.Logger) *Engine {
	if logger == nil {
		logger = observability.NewDefaultLogger()
	}
	return &Engine{Source: source, Store: store, Logger: logger}
}

// Run executes one full clustering pass against opts: validate, ingest,
// seed, iterate to a fixed point, optionally evaluate, and materialize
// the output tables.
func (e *Engine) Run(ctx context.Context, opts Options) (Result, error) {
	start := time.Now()

	if err := e.validate(opts); err != nil {
		return Result{}, err
	}

	log := e.Logger.WithFields(map[string]interface{}{
		"src_relation": opts.SrcRelation,
		"init_method":  string(opts.InitMethod),
	})

	points, report, err := ingest(ctx, e.Source, opts.SrcRelation, opts.SrcColData, opts.SrcColID)
	if err != nil {
		return Result{}, err
	}
	log.Info("ingest complete", map[string]interface{}{
		"original_count": report.Original,
		"kept_count":     report.Kept,
		"dimension":      report.Dimension,
	})

	metric, err := vector.Canonical(opts.DistMetric)
	if err != nil {
		return Result{}, newErr(ErrKindUnknownMetric, string(opts.DistMetric), err)
	}

	rnd := rand.New(rand.NewSource(opts.RandSeed))
	if opts.RandSeed == 0 {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	centroids, seededPoints, k, initMethod, err := e.seed(ctx, points, opts, metric, rnd)
	if err != nil {
		return Result{}, err
	}

	var onIter func(int, float64)
	if opts.Verbose {
		onIter = func(iter int, frac float64) {
			log.Debug("lloyd iteration", map[string]interface{}{"iteration": iter, "reassigned_fraction": frac})
		}
	}

	lloyd, err := runLloyd(ctx, e.Store, seededPoints, centroids, metric, report.Dimension, opts.maxIter(), opts.convThreshold(), onIter)
	if err != nil {
		return Result{}, err
	}
	log.Info("lloyd converged", map[string]interface{}{
		"iterations": lloyd.IterationsRun,
		"final_frac": lloyd.Convergence.Tail(),
	})

	var cost, silhouette *float64
	if opts.Evaluate {
		c, s, err := evaluate(metric, lloyd.Points, lloyd.Centroids)
		if err != nil {
			return Result{}, err
		}
		cost, silhouette = &c, s
	}

	if err := e.writeOutputs(ctx, opts, lloyd.Points, lloyd.Centroids); err != nil {
		return Result{}, err
	}

	elapsed := time.Since(start)
	pointsPerSec := 0.0
	if elapsed.Seconds() > 0 {
		pointsPerSec = float64(report.Kept) / elapsed.Seconds()
	}

	return Result{
		SrcRelation:   opts.SrcRelation,
		KeptPoints:    report.Kept,
		InitMethod:    initMethod,
		K:             k,
		DistMetric:    metric,
		IterationsRun: lloyd.IterationsRun,
		Cost:          cost,
		Silhouette:    silhouette,
		OutPoints:     opts.OutPoints,
		OutCentroids:  opts.OutCentroid,
		Convergence:   lloyd.Convergence,
		DurationSecs:  elapsed.Seconds(),
		PointsPerSec:  pointsPerSec,
		points:        lloyd.Points,
		centroids:     lloyd.Centroids,
	}, nil
}

func (e *Engine) validate(opts Options) error {
	if err := sampling.ValidateRelationName(opts.SrcRelation); err != nil {
		return newErr(ErrKindInvalidInput, "src_relation", err)
	}
	if opts.OutPoints != "" {
		if err := sampling.ValidateRelationName(opts.OutPoints); err != nil {
			return newErr(ErrKindInvalidInput, "out_points", err)
		}
	}
	if opts.OutCentroid != "" {
		if err := sampling.ValidateRelationName(opts.OutCentroid); err != nil {
			return newErr(ErrKindInvalidInput, "out_centroids", err)
		}
	}
	if opts.InitCentroids == nil {
		switch opts.InitMethod {
		case InitRandom, InitKMeansPP, InitCanopy:
		default:
			return newErr(ErrKindUnknownInitMethod, string(opts.InitMethod), nil)
		}
		// Canopy mode derives its centroid count from the surviving
		// canopies themselves, so it is the one init method that never
		// needs a caller-supplied k.
		if opts.InitMethod != InitCanopy && opts.K <= 0 {
			return newErr(ErrKindInvalidInput, "k must be positive when init_centroids is not supplied", nil)
		}
	}
	return nil
}

// seed dispatches to the requested seeding strategy, or skips seeding
// entirely when the caller supplied explicit initial centroids.
func (e *Engine) seed(ctx context.Context, points []Point, opts Options, metric vector.Metric, rnd *rand.Rand) ([]Centroid, []Point, int, InitMethod, error) {
	if opts.InitCentroids != nil {
		return opts.InitCentroids, points, len(opts.InitCentroids), "explicit", nil
	}

	switch opts.InitMethod {
	case InitRandom:
		c, err := seedRandom(points, opts.K, rnd)
		return c, points, opts.K, InitRandom, err
	case InitKMeansPP:
		c, err := seedKMeansPP(ctx, e.Store, points, opts.K, metric, opts.SampleFrac, rnd)
		return c, points, opts.K, InitKMeansPP, err
	case InitCanopy:
		c, out, err := seedCanopy(points, metric, opts.T1, opts.T2, rnd)
		return c, out, len(c), InitCanopy, err
	default:
		return nil, nil, 0, "", newErr(ErrKindUnknownInitMethod, string(opts.InitMethod), nil)
	}
}

func (e *Engine) writeOutputs(ctx context.Context, opts Options, points []Point, centroids []Centroid) error {
	if opts.OutPoints == "" && opts.OutCentroid == "" {
		return nil
	}
	if err := e.Store.CreateOutput(ctx, opts.OutPoints, opts.OutCentroid); err != nil {
		return newErr(ErrKindOutputExists, fmt.Sprintf("%s / %s", opts.OutPoints, opts.OutCentroid), err)
	}
	return e.Store.WriteOutput(ctx, opts.OutPoints, points, opts.OutCentroid, centroids)
}
