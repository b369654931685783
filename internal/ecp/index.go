package ecp

import (
	"time"

	"gonum.org/v1/gonum/floats"
)

// node is a leader in the cluster tree. Internal nodes hold children, leaves
// hold the dataset ids of their members. The root is virtual: its leader is -1.
type node struct {
	leader   int
	children []*node
	members  []int
}

func (n *node) isLeaf() bool {
	return len(n.children) == 0
}

// Index is an immutable eCP cluster tree over a copied dataset. It is safe for
// concurrent searches.
type Index struct {
	metric Metric
	dim    int
	params BuildParams

	points [][]float64
	norms  []float64 // only populated for Angular

	root   *node
	leaves []*node
	depth  int

	stats Stats
}

// Stats describes the shape of a built index.
type Stats struct {
	Points      int   `json:"points"`
	Dimension   int   `json:"dimension"`
	Depth       int   `json:"depth"`
	LevelSizes  []int `json:"level_sizes"`
	Leaves      int   `json:"leaves"`
	Assignments int   `json:"assignments"`

	MinLeaf  int     `json:"min_leaf"`
	MaxLeaf  int     `json:"max_leaf"`
	MeanLeaf float64 `json:"mean_leaf"`

	Insertions           int `json:"insertions"`
	ClusterReclusterings int `json:"cluster_reclusterings"`
	NodeReclusterings    int `json:"node_reclusterings"`
	Growths              int `json:"growths"`

	BuildDuration time.Duration `json:"build_duration"`
}

func (ix *Index) Metric() Metric { return ix.metric }

func (ix *Index) Dimension() int { return ix.dim }

func (ix *Index) Len() int { return len(ix.points) }

// Params returns the resolved build parameters.
func (ix *Index) Params() BuildParams { return ix.params }

// Leaves is the number of leaf clusters. Searching with B >= Leaves is exhaustive.
func (ix *Index) Leaves() int { return len(ix.leaves) }

// Stats returns a copy of the index statistics.
func (ix *Index) Stats() Stats {
	s := ix.stats
	s.LevelSizes = append([]int(nil), ix.stats.LevelSizes...)
	return s
}

// LeafMembers returns the member ids of every leaf in traversal order.
func (ix *Index) LeafMembers() [][]int {
	out := make([][]int, len(ix.leaves))
	for i, leaf := range ix.leaves {
		out[i] = append([]int(nil), leaf.members...)
	}
	return out
}

// collectLeaves records leaves in depth-first order and the node count per level.
func (ix *Index) collectLeaves() {
	ix.leaves = ix.leaves[:0]
	var sizes []int
	var walk func(n *node, level int)
	walk = func(n *node, level int) {
		for len(sizes) <= level {
			sizes = append(sizes, 0)
		}
		sizes[level]++
		if n.isLeaf() {
			ix.leaves = append(ix.leaves, n)
			return
		}
		for _, c := range n.children {
			walk(c, level+1)
		}
	}
	for _, c := range ix.root.children {
		walk(c, 0)
	}
	ix.depth = len(sizes)
	ix.stats.LevelSizes = sizes
}

func (ix *Index) computeStats() {
	s := &ix.stats
	s.Points = len(ix.points)
	s.Dimension = ix.dim
	s.Depth = ix.depth
	s.Leaves = len(ix.leaves)
	s.Assignments = 0

	sizes := make([]float64, len(ix.leaves))
	for i, leaf := range ix.leaves {
		sizes[i] = float64(len(leaf.members))
		s.Assignments += len(leaf.members)
	}
	if len(sizes) > 0 {
		s.MinLeaf = int(floats.Min(sizes))
		s.MaxLeaf = int(floats.Max(sizes))
		s.MeanLeaf = floats.Sum(sizes) / float64(len(sizes))
	}
}
