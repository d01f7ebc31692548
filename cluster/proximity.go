// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"github.com/feravila/itinera/poi"
	"github.com/feravila/itinera/spatial"
)

// ByProximity clusters records by connecting every pair within radiusKM of
// each other (planar degree-space approximation) and labeling connected
// components. When targetClusters is positive, the smallest clusters are then
// merged into their nearest neighbors until the count reaches the target.
//
// Edge construction is O(N²) in the number of located records; acceptable at
// city/itinerary scale, a known limit beyond that.
//
// Records without valid coordinates end up in the Unlocated bucket. When no
// record has valid coordinates at all, the result degrades to a single
// cluster holding the raw input instead of an empty clustering.
func ByProximity(records []poi.Record, radiusKM float64, targetClusters int) Assignment {
	if len(records) == 0 {
		return Assignment{Clusters: map[int][]poi.Record{}}
	}

	located := poi.ExtractCoordinates(records)
	if len(located.Points) == 0 {
		return Assignment{Clusters: map[int][]poi.Record{1: records}}
	}

	clusters := labelComponents(buildAdjacency(located.Points, radiusKM))

	if targetClusters > 0 {
		mergeToTarget(clusters, located.Points, targetClusters)
	}

	_, unlocated := poi.Split(records)

	return Assignment{
		Clusters:  assemble(reindex(clusters), records, located.Indices),
		Unlocated: unlocated,
	}
}

// buildAdjacency connects every pair of points whose Euclidean degree-space
// distance is within radiusKM converted by the fixed degrees-per-kilometer
// constant.
func buildAdjacency(pts []spatial.Point, radiusKM float64) [][]int {
	threshold := radiusKM * spatial.DegreesPerKM

	adj := make([][]int, len(pts))

	for i := 0; i < len(pts); i++ {
		for j := i + 1; j < len(pts); j++ {
			if pts[i].DegreeDistance(pts[j]) <= threshold {
				adj[i] = append(adj[i], j)
				adj[j] = append(adj[j], i)
			}
		}
	}

	return adj
}

// labelComponents performs breadth-first connected-component labeling.
// Cluster ids grow monotonically from 1 in point-index order; a point with no
// edges forms its own singleton cluster.
func labelComponents(adj [][]int) map[int][]int {
	labels := make([]int, len(adj))
	clusters := make(map[int][]int)
	next := 0

	for i := range adj {
		if labels[i] != 0 {
			continue
		}

		next++
		labels[i] = next
		queue := []int{i}

		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]

			clusters[next] = append(clusters[next], u)

			for _, v := range adj[u] {
				if labels[v] == 0 {
					labels[v] = next
					queue = append(queue, v)
				}
			}
		}
	}

	return clusters
}
