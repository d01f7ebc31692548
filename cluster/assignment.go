// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

// Package cluster groups points of interest into geographically coherent
// clusters for day-by-day itinerary construction. It offers two independent
// strategies: a proximity graph with connected-component labeling and
// merge-to-target balancing, and a hierarchical density-based clustering with
// outlier reassignment. All operations are pure computations over in-memory
// collections; the package performs no I/O and is safe for concurrent use.
package cluster

import (
	"math"
	"sort"

	"github.com/feravila/itinera/poi"
	"github.com/feravila/itinera/spatial"
)

// Assignment maps contiguous 1-based cluster identifiers to their member
// records. Unlocated carries the input records that had no usable
// coordinates; Noise is only populated by the density strategy when outlier
// reassignment is disabled. The union of Clusters, Unlocated and Noise always
// equals the input record set exactly.
type Assignment struct {
	Clusters  map[int][]poi.Record
	Unlocated []poi.Record
	Noise     []poi.Record
}

// IDs returns the cluster identifiers in ascending order.
func (a Assignment) IDs() []int {
	ids := make([]int, 0, len(a.Clusters))
	for id := range a.Clusters {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	return ids
}

// Size returns the number of records across all clusters.
func (a Assignment) Size() int {
	n := 0
	for _, members := range a.Clusters {
		n += len(members)
	}

	return n
}

// Center computes the arithmetic mean coordinate over the records with valid
// coordinates. The second return is false when no record is located.
func Center(records []poi.Record) (spatial.Point, bool) {
	located := poi.ExtractCoordinates(records)
	if len(located.Points) == 0 {
		return spatial.Point{}, false
	}

	return centroid(located.Points), true
}

func centroid(pts []spatial.Point) spatial.Point {
	var sumLat, sumLng float64

	for _, p := range pts {
		sumLat += p.Lat
		sumLng += p.Lng
	}

	n := float64(len(pts))

	return spatial.Point{Lat: sumLat / n, Lng: sumLng / n}
}

func centroidOf(members []int, pts []spatial.Point) spatial.Point {
	var sumLat, sumLng float64

	for _, i := range members {
		sumLat += pts[i].Lat
		sumLng += pts[i].Lng
	}

	n := float64(len(members))

	return spatial.Point{Lat: sumLat / n, Lng: sumLng / n}
}

// mergeToTarget merges the smallest cluster into the one with the nearest
// centroid (Euclidean degree-space) until the cluster count reaches target.
// Ties on size and on distance break toward the lowest identifier so the
// result does not depend on map iteration order. Stops at one cluster when
// target cannot be reached. POI count is conserved across every merge.
func mergeToTarget(clusters map[int][]int, pts []spatial.Point, target int) {
	if target < 1 {
		target = 1
	}

	for len(clusters) > target && len(clusters) > 1 {
		smallest := -1

		for id, members := range clusters {
			if smallest == -1 ||
				len(members) < len(clusters[smallest]) ||
				(len(members) == len(clusters[smallest]) && id < smallest) {
				smallest = id
			}
		}

		from := centroidOf(clusters[smallest], pts)

		nearest := -1
		best := math.MaxFloat64

		for id, members := range clusters {
			if id == smallest {
				continue
			}

			d := from.DegreeDistance(centroidOf(members, pts))
			if d < best || (d == best && (nearest == -1 || id < nearest)) {
				best = d
				nearest = id
			}
		}

		clusters[nearest] = append(clusters[nearest], clusters[smallest]...)
		delete(clusters, smallest)
	}
}

// reindex renumbers clusters to a contiguous 1..K range in ascending order of
// their original identifiers.
func reindex(clusters map[int][]int) map[int][]int {
	ids := make([]int, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	out := make(map[int][]int, len(ids))
	for k, id := range ids {
		out[k+1] = clusters[id]
	}

	return out
}

// assemble maps point-index clusters back to the original records through the
// located index list.
func assemble(clusters map[int][]int, records []poi.Record, indices []int) map[int][]poi.Record {
	out := make(map[int][]poi.Record, len(clusters))

	for id, members := range clusters {
		group := make([]poi.Record, 0, len(members))
		for _, i := range members {
			group = append(group, records[indices[i]])
		}

		out[id] = group
	}

	return out
}
