package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/clusterkit/kmeans/pkg/kmeans"
	"github.com/clusterkit/kmeans/pkg/vector"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score an existing clustering's cost and silhouette",
	Long: `Loads a point file and a centroid file (both JSONL) and reports the
total within-cluster cost and the simplified silhouette coefficient.
Points are nearest-assigned to a centroid before scoring, so this
works equally well on raw vectors or on a previous run's output.

Example:
  kmeansctl evaluate --points clustered.jsonl --centroids centroids.jsonl --metric cosine`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().String("points", "", "path to JSONL file of {id, values} rows (required; points are nearest-assigned, any cid field is ignored)")
	evaluateCmd.Flags().String("centroids", "", "path to JSONL file of {id, values} centroid rows (required)")
	evaluateCmd.Flags().String("metric", "l2norm", "distance metric: l1norm, l2norm, cosine, tanimoto")

	evaluateCmd.MarkFlagRequired("points")
	evaluateCmd.MarkFlagRequired("centroids")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	pointsPath, _ := cmd.Flags().GetString("points")
	centroidsPath, _ := cmd.Flags().GetString("centroids")
	metric, _ := cmd.Flags().GetString("metric")

	pointCoords, pointIDs, err := loadPointsFromFile(pointsPath)
	if err != nil {
		return fmt.Errorf("loading points: %w", err)
	}
	centroidCoords, centroidIDs, err := loadPointsFromFile(centroidsPath)
	if err != nil {
		return fmt.Errorf("loading centroids: %w", err)
	}

	centroids := make([]kmeans.Centroid, len(centroidCoords))
	for i, c := range centroidCoords {
		cid := i + 1
		if centroidIDs != nil {
			cid = int(centroidIDs[i])
		}
		centroids[i] = kmeans.Centroid{CID: cid, Coords: c}
	}

	points := make([]kmeans.Point, len(pointCoords))
	for i, c := range pointCoords {
		pid := int64(i + 1)
		if pointIDs != nil {
			pid = pointIDs[i]
		}
		points[i] = kmeans.Point{PID: pid, Coords: c}
	}

	cost, silhouette, err := kmeans.EvaluateAssignment(vector.Metric(metric), points, centroids)
	if err != nil {
		return fmt.Errorf("evaluating: %w", err)
	}

	fmt.Println()
	fmt.Println("=== Evaluation ===")
	fmt.Printf("Points:      %d\n", len(points))
	fmt.Printf("Centroids:   %d\n", len(centroids))
	fmt.Printf("Total cost:  %.6f\n", cost)
	if silhouette != nil {
		fmt.Printf("Silhouette:  %.4f\n", *silhouette)
	} else {
		fmt.Println("Silhouette:  undefined (fewer than 2 clusters)")
	}
	return nil
}
