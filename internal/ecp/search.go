package ecp

import (
	"container/heap"
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	pkgerrors "ecpbench/pkg/errors"

	"github.com/bits-and-blooms/bitset"
)

const scanChunk = 2048

// Neighbor is one search hit. Distance is in the metric's native unit: squared
// L2 for Euclidean, radians for Angular.
type Neighbor struct {
	ID       int     `json:"id"`
	Distance float64 `json:"distance"`
}

func (n Neighbor) before(o Neighbor) bool {
	if n.Distance != o.Distance {
		return n.Distance < o.Distance
	}
	return n.ID < o.ID
}

// Search returns up to q.K neighbors of query found in the q.B closest leaf
// clusters, ordered by distance then id. The leaf visiting order does not
// depend on B, so a larger B always scans a superset of a smaller one.
func (ix *Index) Search(ctx context.Context, query []float64, q QueryParams) ([]Neighbor, error) {
	if q.K <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", pkgerrors.ErrInvalidArgument, q.K)
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query has %d coordinates, index has %d",
			pkgerrors.ErrDimensionMismatch, len(query), ix.dim)
	}

	k := min(q.K, len(ix.points))
	b := min(max(q.B, 1), len(ix.leaves))
	workers := q.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	qn := ix.norm(query)
	cands := ix.candidates(ix.visit(query, qn, b))
	return ix.scan(ctx, query, qn, cands, k, workers)
}

// visit walks the tree best-first by leader distance and returns the first b
// leaves it reaches.
func (ix *Index) visit(q []float64, qn float64, b int) []*node {
	frontier := &nodeQueue{}
	for _, c := range ix.root.children {
		heap.Push(frontier, scored{n: c, d: ix.dist(q, qn, c.leader, math.Inf(1))})
	}

	leaves := make([]*node, 0, b)
	for frontier.Len() > 0 && len(leaves) < b {
		s := heap.Pop(frontier).(scored)
		if s.n.isLeaf() {
			leaves = append(leaves, s.n)
			continue
		}
		for _, c := range s.n.children {
			heap.Push(frontier, scored{n: c, d: ix.dist(q, qn, c.leader, math.Inf(1))})
		}
	}
	return leaves
}

// candidates merges the members of leaves, dropping replicas.
func (ix *Index) candidates(leaves []*node) []int {
	seen := bitset.New(uint(len(ix.points)))
	for _, leaf := range leaves {
		for _, id := range leaf.members {
			seen.Set(uint(id))
		}
	}
	out := make([]int, 0, seen.Count())
	for i, ok := seen.NextSet(0); ok; i, ok = seen.NextSet(i + 1) {
		out = append(out, int(i))
	}
	return out
}

// scan ranks cands exhaustively. Each chunk keeps its own bounded heap and the
// partial results are merged once all chunks finish.
func (ix *Index) scan(ctx context.Context, q []float64, qn float64, cands []int, k, workers int) ([]Neighbor, error) {
	partial := make([]neighborHeap, ceilDiv(len(cands), scanChunk))
	err := forChunks(ctx, len(cands), scanChunk, workers, func(chunk, lo, hi int) error {
		h := make(neighborHeap, 0, min(k, hi-lo))
		for _, id := range cands[lo:hi] {
			bound := math.Inf(1)
			if len(h) == k {
				bound = h[0].Distance
			}
			nb := Neighbor{ID: id, Distance: ix.dist(q, qn, id, bound)}
			switch {
			case len(h) < k:
				heap.Push(&h, nb)
			case nb.before(h[0]):
				h[0] = nb
				heap.Fix(&h, 0)
			}
		}
		partial[chunk] = h
		return nil
	})
	if err != nil {
		return nil, err
	}

	var out []Neighbor
	for _, h := range partial {
		out = append(out, h...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].before(out[j]) })
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// neighborHeap is a max-heap: the root is the worst neighbor kept so far.
type neighborHeap []Neighbor

func (h neighborHeap) Len() int           { return len(h) }
func (h neighborHeap) Less(i, j int) bool { return h[j].before(h[i]) }
func (h neighborHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *neighborHeap) Push(x any)        { *h = append(*h, x.(Neighbor)) }
func (h *neighborHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// nodeQueue is a min-heap of leaders by distance to the query.
type nodeQueue []scored

func (q nodeQueue) Len() int           { return len(q) }
func (q nodeQueue) Less(i, j int) bool { return q[i].before(q[j]) }
func (q nodeQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *nodeQueue) Push(x any)        { *q = append(*q, x.(scored)) }
func (q *nodeQueue) Pop() any {
	old := *q
	n := len(old)
	x := old[n-1]
	*q = old[:n-1]
	return x
}
