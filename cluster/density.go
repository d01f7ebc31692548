// Copyright 2026 The Itinera Authors
// SPDX-License-Identifier: Apache-2.0

package cluster

import (
	"math"
	"sort"

	"github.com/feravila/itinera/poi"
	"github.com/feravila/itinera/spatial"
)

// ByDensity clusters records with a hierarchical density-based algorithm over
// true great-circle distances. minClusterSize is the smallest group the
// hierarchy will report as a cluster; minSamples controls how conservative
// the density estimate is (the core distance of a point is the distance to
// its minSamples-th nearest neighbor). The number of clusters is determined
// automatically; points in no sufficiently dense neighborhood come out as
// noise.
//
// When assignNoise is true (the operating default for itinerary building)
// every noise record is reassigned to the cluster with the nearest centroid
// by great-circle distance, so distant-but-significant destinations are never
// dropped; with assignNoise false the outliers are reported in the Noise
// bucket instead. When maxClusters is positive, an over-large cluster count
// is reduced by the same smallest-cluster merge heuristic as the proximity
// strategy.
func ByDensity(records []poi.Record, minClusterSize, minSamples int, maxClusters int, assignNoise bool) Assignment {
	if len(records) == 0 {
		return Assignment{Clusters: map[int][]poi.Record{}}
	}

	located := poi.ExtractCoordinates(records)
	if len(located.Points) == 0 {
		return Assignment{Clusters: map[int][]poi.Record{1: records}}
	}

	labels := densityLabels(located.Points, minClusterSize, minSamples)

	clusters := make(map[int][]int)

	var noise []int

	for i, label := range labels {
		if label < 0 {
			noise = append(noise, i)
		} else {
			clusters[label] = append(clusters[label], i)
		}
	}

	// Degenerate input for the density estimate: fall back to a single
	// cluster rather than reporting everything as noise.
	if len(clusters) == 0 {
		all := make([]int, len(located.Points))
		for i := range all {
			all[i] = i
		}

		clusters[1] = all
		noise = nil
	}

	var noiseRecords []poi.Record

	switch {
	case assignNoise:
		reassignNoise(clusters, noise, located.Points)
	default:
		for _, i := range noise {
			noiseRecords = append(noiseRecords, records[located.Indices[i]])
		}
	}

	if maxClusters > 0 {
		mergeToTarget(clusters, located.Points, maxClusters)
	}

	_, unlocated := poi.Split(records)

	return Assignment{
		Clusters:  assemble(reindex(clusters), records, located.Indices),
		Unlocated: unlocated,
		Noise:     noiseRecords,
	}
}

// reassignNoise appends each noise point to the cluster whose centroid is
// nearest by great-circle distance, ties toward the lowest cluster id.
func reassignNoise(clusters map[int][]int, noise []int, pts []spatial.Point) {
	if len(noise) == 0 || len(clusters) == 0 {
		return
	}

	ids := make([]int, 0, len(clusters))
	for id := range clusters {
		ids = append(ids, id)
	}

	sort.Ints(ids)

	centroids := make(map[int]spatial.Point, len(ids))
	for _, id := range ids {
		centroids[id] = centroidOf(clusters[id], pts)
	}

	for _, i := range noise {
		nearest := ids[0]
		best := pts[i].HaversineKM(centroids[ids[0]])

		for _, id := range ids[1:] {
			if d := pts[i].HaversineKM(centroids[id]); d < best {
				best = d
				nearest = id
			}
		}

		clusters[nearest] = append(clusters[nearest], i)
	}
}

// densityLabels computes flat cluster labels for the points. Labels start at
// 1 in order of each cluster's first point index; -1 marks noise.
//
// The hierarchy is the classic density-based construction: core distances
// from the minSamples-th nearest neighbor, a minimum spanning tree over
// mutual reachability distances, single-linkage merging in edge-weight order,
// condensation by minClusterSize, and flat extraction of the subtrees with
// maximum stability (excess of mass).
func densityLabels(pts []spatial.Point, minClusterSize, minSamples int) []int {
	n := len(pts)

	labels := make([]int, n)
	for i := range labels {
		labels[i] = -1
	}

	if minClusterSize < 2 {
		minClusterSize = 2
	}

	if minSamples < 1 {
		minSamples = 1
	}

	if n < minClusterSize {
		return labels
	}

	dist := pairwiseKM(pts)
	core := coreDistances(dist, minSamples)
	edges := reachabilityMST(dist, core)

	sort.Slice(edges, func(i, j int) bool { return edges[i].w < edges[j].w })

	tree := singleLinkage(edges, n)
	condensed := condenseTree(tree, n, minClusterSize)
	selected := selectClusters(condensed)

	next := 0

	for _, cid := range selected {
		next++
		for _, f := range subtreeFallouts(condensed, cid) {
			labels[f.point] = next
		}
	}

	return relabelByFirstIndex(labels)
}

func pairwiseKM(pts []spatial.Point) [][]float64 {
	n := len(pts)

	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}

	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := pts[i].HaversineKM(pts[j])
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	return dist
}

// coreDistances returns, for each point, the distance to its minSamples-th
// nearest neighbor (the point itself counts as the zeroth).
func coreDistances(dist [][]float64, minSamples int) []float64 {
	n := len(dist)

	k := minSamples
	if k > n-1 {
		k = n - 1
	}

	core := make([]float64, n)
	row := make([]float64, n)

	for i := 0; i < n; i++ {
		copy(row, dist[i])
		sort.Float64s(row)
		core[i] = row[k]
	}

	return core
}

type mstEdge struct {
	a, b int
	w    float64
}

// reachabilityMST builds a minimum spanning tree over the mutual
// reachability distance max(core(a), core(b), d(a, b)) with Prim's
// algorithm. O(N²), same bound as the distance matrix itself.
func reachabilityMST(dist [][]float64, core []float64) []mstEdge {
	n := len(dist)

	inTree := make([]bool, n)
	bestW := make([]float64, n)
	bestFrom := make([]int, n)

	for i := range bestW {
		bestW[i] = math.MaxFloat64
		bestFrom[i] = -1
	}

	edges := make([]mstEdge, 0, n-1)

	current := 0
	inTree[0] = true

	for len(edges) < n-1 {
		for j := 0; j < n; j++ {
			if inTree[j] {
				continue
			}

			w := dist[current][j]
			if core[current] > w {
				w = core[current]
			}

			if core[j] > w {
				w = core[j]
			}

			if w < bestW[j] {
				bestW[j] = w
				bestFrom[j] = current
			}
		}

		next := -1
		for j := 0; j < n; j++ {
			if !inTree[j] && (next == -1 || bestW[j] < bestW[next]) {
				next = j
			}
		}

		edges = append(edges, mstEdge{a: bestFrom[next], b: next, w: bestW[next]})
		inTree[next] = true
		current = next
	}

	return edges
}

// slNode is a merge in the single-linkage dendrogram. Child ids below n refer
// to leaves (points); ids from n upward refer to earlier merges.
type slNode struct {
	left, right int
	w           float64
	size        int
}

// singleLinkage folds the weight-sorted MST edges into a dendrogram. The
// returned slice holds the n-1 internal nodes; the last one is the root.
func singleLinkage(edges []mstEdge, n int) []slNode {
	parent := make([]int, n)
	nodeOf := make([]int, n)

	for i := 0; i < n; i++ {
		parent[i] = i
		nodeOf[i] = i
	}

	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}

		return x
	}

	nodes := make([]slNode, 0, n-1)

	for _, e := range edges {
		ra, rb := find(e.a), find(e.b)

		left, right := nodeOf[ra], nodeOf[rb]

		sizeLeft, sizeRight := 1, 1
		if left >= n {
			sizeLeft = nodes[left-n].size
		}

		if right >= n {
			sizeRight = nodes[right-n].size
		}

		nodes = append(nodes, slNode{
			left:  left,
			right: right,
			w:     e.w,
			size:  sizeLeft + sizeRight,
		})

		parent[ra] = rb
		nodeOf[find(rb)] = n + len(nodes) - 1
	}

	return nodes
}

type pointFallout struct {
	point  int
	lambda float64
}

// condensedCluster is a node of the condensed tree: a cluster of at least
// minClusterSize points, the lambda (1/distance) at which it was born, the
// points that fell out of it and the lambda at which they did, and the
// clusters it split into, if any.
type condensedCluster struct {
	birth     float64
	death     float64
	passed    int // points handed to children at the split
	children  []int
	fallouts  []pointFallout
	stability float64
}

// condenseTree walks the dendrogram from the root and keeps only the
// structure relevant at minClusterSize: a split where both sides reach the
// minimum size births two child clusters; a smaller side simply falls out of
// the current cluster at the split's lambda.
func condenseTree(tree []slNode, n, minClusterSize int) []condensedCluster {
	clusters := []condensedCluster{{birth: 0}}

	type frame struct {
		node    int // dendrogram node id (>= n, always an internal node)
		cluster int
	}

	root := n + len(tree) - 1
	stack := []frame{{node: root, cluster: 0}}

	for len(stack) > 0 {
		fr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := tree[fr.node-n]

		lambda := math.MaxFloat64
		if node.w > 0 {
			lambda = 1 / node.w
		}

		sizeOf := func(child int) int {
			if child < n {
				return 1
			}

			return tree[child-n].size
		}

		left, right := node.left, node.right
		sizeLeft, sizeRight := sizeOf(left), sizeOf(right)

		switch {
		case sizeLeft >= minClusterSize && sizeRight >= minClusterSize:
			// True split: the current cluster dies here and two new
			// ones are born.
			for _, child := range []int{left, right} {
				clusters = append(clusters, condensedCluster{birth: lambda})
				id := len(clusters) - 1
				clusters[fr.cluster].children = append(clusters[fr.cluster].children, id)
				stack = append(stack, frame{node: child, cluster: id})
			}

			clusters[fr.cluster].death = lambda
			clusters[fr.cluster].passed = sizeLeft + sizeRight
		case sizeLeft >= minClusterSize:
			dropLeaves(tree, n, right, lambda, &clusters[fr.cluster])
			stack = append(stack, frame{node: left, cluster: fr.cluster})
		case sizeRight >= minClusterSize:
			dropLeaves(tree, n, left, lambda, &clusters[fr.cluster])
			stack = append(stack, frame{node: right, cluster: fr.cluster})
		default:
			// Terminal collapse: everything below drops out here.
			dropLeaves(tree, n, left, lambda, &clusters[fr.cluster])
			dropLeaves(tree, n, right, lambda, &clusters[fr.cluster])
		}
	}

	for i := range clusters {
		c := &clusters[i]

		for _, f := range c.fallouts {
			c.stability += f.lambda - c.birth
		}

		if c.passed > 0 {
			c.stability += (c.death - c.birth) * float64(c.passed)
		}
	}

	return clusters
}

// dropLeaves records every leaf under node as falling out of cluster at
// lambda.
func dropLeaves(tree []slNode, n, node int, lambda float64, cluster *condensedCluster) {
	stack := []int{node}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if cur < n {
			cluster.fallouts = append(cluster.fallouts, pointFallout{point: cur, lambda: lambda})

			continue
		}

		stack = append(stack, tree[cur-n].left, tree[cur-n].right)
	}
}

// selectClusters picks the flat clustering with maximum total stability
// (excess of mass): walking bottom-up, a cluster replaces its descendants
// when its own stability is at least the sum of theirs. The root is not a
// candidate; callers handle the no-cluster case.
func selectClusters(clusters []condensedCluster) []int {
	if len(clusters) == 1 {
		return nil
	}

	subtree := make([]float64, len(clusters))
	selected := make([]bool, len(clusters))

	// Children always carry a higher id than their parent, so descending id
	// order is a bottom-up traversal.
	for id := len(clusters) - 1; id >= 1; id-- {
		sum := 0.0
		for _, child := range clusters[id].children {
			sum += subtree[child]
		}

		if len(clusters[id].children) == 0 || clusters[id].stability >= sum {
			selected[id] = true
			subtree[id] = clusters[id].stability

			unselectDescendants(clusters, selected, id)
		} else {
			subtree[id] = sum
		}
	}

	var out []int

	for id := 1; id < len(clusters); id++ {
		if selected[id] {
			out = append(out, id)
		}
	}

	return out
}

func unselectDescendants(clusters []condensedCluster, selected []bool, id int) {
	stack := append([]int(nil), clusters[id].children...)

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		selected[cur] = false
		stack = append(stack, clusters[cur].children...)
	}
}

// subtreeFallouts collects the points of a selected cluster: everything that
// fell out of it or of any cluster below it.
func subtreeFallouts(clusters []condensedCluster, id int) []pointFallout {
	var out []pointFallout

	stack := []int{id}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		out = append(out, clusters[cur].fallouts...)
		stack = append(stack, clusters[cur].children...)
	}

	return out
}

// relabelByFirstIndex renumbers positive labels to 1..K in order of first
// appearance by point index, which keeps output independent of selection
// order.
func relabelByFirstIndex(labels []int) []int {
	mapping := make(map[int]int)
	next := 0

	for i, label := range labels {
		if label < 0 {
			continue
		}

		if _, ok := mapping[label]; !ok {
			next++
			mapping[label] = next
		}

		labels[i] = mapping[label]
	}

	return labels
}
