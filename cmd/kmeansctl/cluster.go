package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clusterkit/kmeans/pkg/kmeans"
	"github.com/clusterkit/kmeans/pkg/observability"
	"github.com/clusterkit/kmeans/pkg/storage/badger"
	"github.com/clusterkit/kmeans/pkg/vector"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Run k-means clustering over a JSONL vector file",
	Long: `Loads vectors from a JSONL file, clusters them with one of three
seeding strategies, and prints the resulting record.

Example:
  kmeansctl cluster --file points.jsonl --k 8 --init kmeans++ --evaluate`,
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().StringP("file", "f", "", "path to JSONL file of {id, values} rows (required)")
	clusterCmd.Flags().IntP("k", "k", 0, "number of clusters")
	clusterCmd.Flags().String("init", "kmeans++", "seeding strategy: random, kmeans++, canopy")
	clusterCmd.Flags().String("metric", "l2norm", "distance metric: l1norm, l2norm, cosine, tanimoto")
	clusterCmd.Flags().Int("max-iter", 0, "maximum Lloyd iterations (0 = default)")
	clusterCmd.Flags().Float64("conv-threshold", 0, "reassignment-fraction convergence threshold (0 = default)")
	clusterCmd.Flags().Float64("sample-frac", 0, "k-means++ sub-sample fraction (0 = default)")
	clusterCmd.Flags().Float64("t1", 0, "canopy loose threshold (0 = estimate)")
	clusterCmd.Flags().Float64("t2", 0, "canopy tight threshold (0 = estimate)")
	clusterCmd.Flags().Bool("evaluate", false, "compute total cost and simplified silhouette")
	clusterCmd.Flags().Int64("seed", 0, "random seed (0 = process entropy)")

	clusterCmd.MarkFlagRequired("file")
	clusterCmd.MarkFlagRequired("k")
}

func runCluster(cmd *cobra.Command, args []string) error {
	filePath, _ := cmd.Flags().GetString("file")
	k, _ := cmd.Flags().GetInt("k")
	initMethod, _ := cmd.Flags().GetString("init")
	metric, _ := cmd.Flags().GetString("metric")
	maxIter, _ := cmd.Flags().GetInt("max-iter")
	convThreshold, _ := cmd.Flags().GetFloat64("conv-threshold")
	sampleFrac, _ := cmd.Flags().GetFloat64("sample-frac")
	t1, _ := cmd.Flags().GetFloat64("t1")
	t2, _ := cmd.Flags().GetFloat64("t2")
	evaluate, _ := cmd.Flags().GetBool("evaluate")
	seed, _ := cmd.Flags().GetInt64("seed")
	verbose := viper.GetBool("verbose")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\ninterrupted, cancelling run...")
		cancel()
	}()

	if verbose {
		fmt.Fprintf(os.Stderr, "loading vectors from %s...\n", filePath)
	}
	coords, ids, err := loadPointsFromFile(filePath)
	if err != nil {
		return fmt.Errorf("loading vectors: %w", err)
	}
	if len(coords) == 0 {
		fmt.Println("no vectors found in file")
		return nil
	}

	store, err := badger.OpenInMemory()
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer store.Close()

	if err := store.LoadRelation(ctx, "points", coords, ids); err != nil {
		return fmt.Errorf("loading relation: %w", err)
	}

	logger := observability.NewDefaultLogger()
	engine := kmeans.NewEngine(store, store, logger)

	var bar *progressbar.ProgressBar
	if verbose {
		bar = progressbar.NewOptions(maxIterOrDefault(maxIter),
			progressbar.OptionSetDescription("Clustering"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("iterations"),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}

	opts := kmeans.Options{
		SrcRelation:   "points",
		SrcColData:    "values",
		InitMethod:    kmeans.InitMethod(initMethod),
		K:             k,
		SampleFrac:    sampleFrac,
		T1:            t1,
		T2:            t2,
		DistMetric:    vector.Metric(metric),
		MaxIter:       maxIter,
		ConvThreshold: convThreshold,
		Evaluate:      evaluate,
		Verbose:       verbose,
		RandSeed:      seed,
	}

	start := time.Now()
	result, err := engine.Run(ctx, opts)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}

	printClusterReport(result, time.Since(start))
	return nil
}

func maxIterOrDefault(maxIter int) int {
	if maxIter <= 0 {
		return 20
	}
	return maxIter
}

func printClusterReport(result kmeans.Result, wall time.Duration) {
	fmt.Println()
	fmt.Println("=== Clustering Result ===")
	fmt.Println()
	fmt.Printf("Source relation:   %s\n", result.SrcRelation)
	fmt.Printf("Points kept:       %d\n", result.KeptPoints)
	fmt.Printf("Init method:       %s\n", result.InitMethod)
	fmt.Printf("k:                 %d\n", result.K)
	fmt.Printf("Distance metric:   %s\n", result.DistMetric)
	fmt.Printf("Iterations run:    %d\n", result.IterationsRun)
	if result.Cost != nil {
		fmt.Printf("Total cost:        %.6f\n", *result.Cost)
	}
	if result.Silhouette != nil {
		fmt.Printf("Silhouette:        %.4f\n", *result.Silhouette)
	}
	fmt.Printf("Points/sec:        %.1f\n", result.PointsPerSec)
	fmt.Printf("Wall time:         %v\n", wall)
	fmt.Println()

	clusters := result.Clusters()
	fmt.Printf("Clusters (%d), largest first:\n", len(clusters))
	for i, c := range clusters {
		if i >= 10 {
			fmt.Printf("  ... and %d more\n", len(clusters)-10)
			break
		}
		fmt.Printf("  centroid %-4d  %d points\n", c.Centroid.CID, len(c.Points))
	}
}
