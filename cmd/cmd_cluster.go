// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/feravila/itinera/cluster"
	"github.com/feravila/itinera/ingest"
	"github.com/feravila/itinera/poi"
	"github.com/feravila/itinera/spatial"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group POIs into geographically coherent clusters",
}

// loadRecords reads records from the given file, or from the local store
// when no file is named.
func loadRecords(args []string) ([]poi.Record, error) {
	if len(args) > 0 {
		return ingest.ParseProviderFile(args[0])
	}

	db, repo, err := openRepository()
	if err != nil {
		return nil, err
	}
	defer db.Close()

	stored, err := repo.GetAllSorted()
	if err != nil {
		return nil, err
	}

	records := make([]poi.Record, len(stored))
	for i, p := range stored {
		records[i] = p.Record()
	}

	return records, nil
}

type clusterOutput struct {
	ClusterID int            `json:"cluster_id"`
	Size      int            `json:"size"`
	Center    *spatial.Point `json:"center,omitempty"`
	POIs      []poi.Record   `json:"pois"`
}

func printAssignment(a cluster.Assignment) error {
	out := struct {
		Clusters  []clusterOutput `json:"clusters"`
		Unlocated []poi.Record    `json:"unlocated,omitempty"`
		Noise     []poi.Record    `json:"noise,omitempty"`
	}{
		Clusters:  make([]clusterOutput, 0, len(a.Clusters)),
		Unlocated: a.Unlocated,
		Noise:     a.Noise,
	}

	ids := make([]int, 0, len(a.Clusters))
	for id := range a.Clusters {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	for _, id := range ids {
		members := a.Clusters[id]

		co := clusterOutput{ClusterID: id, Size: len(members), POIs: members}
		if center, ok := cluster.Center(members); ok {
			co.Center = &center
		}

		out.Clusters = append(out.Clusters, co)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	return enc.Encode(out)
}

var proximityOptions = struct {
	radiusKM float64
	target   int
}{}

var clusterProximityCmd = &cobra.Command{
	Use:   "proximity [file]",
	Short: "Cluster POIs by walking-distance connectivity",
	Long: `Builds a proximity graph over the POIs and reports its connected
components as clusters. With --target, small clusters are merged into
their nearest neighbor until the requested count is reached.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if proximityOptions.radiusKM <= 0 {
			return fmt.Errorf("--radius-km must be positive, got %f", proximityOptions.radiusKM)
		}

		records, err := loadRecords(args)
		if err != nil {
			return err
		}

		return printAssignment(
			cluster.ByProximity(records, proximityOptions.radiusKM, proximityOptions.target),
		)
	},
}

var densityOptions = struct {
	minClusterSize int
	minSamples     int
	maxClusters    int
	keepNoise      bool
}{}

var clusterDensityCmd = &cobra.Command{
	Use:   "density [file]",
	Short: "Cluster POIs by spatial density",
	Long: `Groups POIs with a hierarchical density-based algorithm over
great-circle distances. Outliers are reassigned to the nearest cluster
unless --keep-noise is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(_ *cobra.Command, args []string) error {
		if densityOptions.minClusterSize < 2 {
			return fmt.Errorf("--min-cluster-size must be at least 2, got %d", densityOptions.minClusterSize)
		}

		records, err := loadRecords(args)
		if err != nil {
			return err
		}

		return printAssignment(cluster.ByDensity(
			records,
			densityOptions.minClusterSize,
			densityOptions.minSamples,
			densityOptions.maxClusters,
			!densityOptions.keepNoise,
		))
	},
}

func init() {
	clusterProximityCmd.Flags().Float64Var(&proximityOptions.radiusKM, "radius-km", 2.0, "walking-distance radius in kilometers")
	clusterProximityCmd.Flags().IntVar(&proximityOptions.target, "target", 0, "merge down to this many clusters (0 = no merging)")

	clusterDensityCmd.Flags().IntVar(&densityOptions.minClusterSize, "min-cluster-size", 3, "smallest group reported as a cluster")
	clusterDensityCmd.Flags().IntVar(&densityOptions.minSamples, "min-samples", 0, "neighbors used for the density estimate (0 = 1)")
	clusterDensityCmd.Flags().IntVar(&densityOptions.maxClusters, "max-clusters", 0, "merge down to this many clusters (0 = no merging)")
	clusterDensityCmd.Flags().BoolVar(&densityOptions.keepNoise, "keep-noise", false, "report outliers separately instead of reassigning them")

	clusterCmd.AddCommand(clusterProximityCmd)
	clusterCmd.AddCommand(clusterDensityCmd)
	rootCmd.AddCommand(clusterCmd)
}
