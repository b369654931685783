package ecp

import (
	"context"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// dist compares q against stored point id. Under early halt a Euclidean result
// above bound is partial and only good for rejecting the point.
func (ix *Index) dist(q []float64, qn float64, id int, bound float64) float64 {
	p := ix.points[id]
	if ix.metric == Angular {
		return angle(q, p, qn, ix.norms[id])
	}
	if !ix.params.EarlyHalt {
		bound = math.Inf(1)
	}
	return squaredL2(q, p, bound)
}

func (ix *Index) norm(q []float64) float64 {
	if ix.metric != Angular {
		return 0
	}
	return floats.Norm(q, 2)
}

// scored pairs a node with the distance from the current query to its leader.
type scored struct {
	n *node
	d float64
}

// before orders by distance, then by leader id so ties are deterministic.
func (s scored) before(o scored) bool {
	if s.d != o.d {
		return s.d < o.d
	}
	return s.n.leader < o.n.leader
}

// rank returns the width closest candidates in ascending order. With slack > 0
// candidates farther than slack times the best distance are dropped too.
func (ix *Index) rank(q []float64, qn float64, cands []*node, width int, slack float64) []scored {
	best := make([]scored, 0, min(width, len(cands))+1)
	for _, c := range cands {
		bound := math.Inf(1)
		if len(best) == width {
			bound = best[width-1].d
		}
		if slack > 0 && len(best) > 0 {
			bound = math.Min(bound, slack*best[0].d)
		}

		s := scored{n: c, d: ix.dist(q, qn, c.leader, bound)}
		if len(best) == width && !s.before(best[width-1]) {
			continue
		}
		if slack > 0 && len(best) > 0 && s.d > slack*best[0].d {
			continue
		}

		i := sort.Search(len(best), func(i int) bool { return s.before(best[i]) })
		best = append(best, scored{})
		copy(best[i+1:], best[i:])
		best[i] = s
		if len(best) > width {
			best = best[:width]
		}
	}

	if slack > 0 && len(best) > 0 {
		limit := slack * best[0].d
		for i := 1; i < len(best); i++ {
			if best[i].d > limit {
				best = best[:i]
				break
			}
		}
	}
	return best
}

// nearest returns the candidate whose leader is closest to stored point id.
func (ix *Index) nearest(id int, cands []*node) *node {
	q := ix.points[id]
	return ix.rank(q, ix.norm(q), cands, 1, 0)[0].n
}

// leafCandidates descends with a beam of the given width and returns every leaf
// reachable from the final beam.
func (ix *Index) leafCandidates(q []float64, qn float64, width int) []*node {
	var leaves []*node
	frontier := []*node{ix.root}
	for len(frontier) > 0 {
		var internal []*node
		for _, n := range frontier {
			for _, c := range n.children {
				if c.isLeaf() {
					leaves = append(leaves, c)
				} else {
					internal = append(internal, c)
				}
			}
		}
		if len(internal) == 0 {
			break
		}
		ranked := ix.rank(q, qn, internal, width, 0)
		frontier = frontier[:0]
		for _, s := range ranked {
			frontier = append(frontier, s.n)
		}
	}
	return leaves
}

// forChunks runs fn over [0, n) in chunks of at most size items using at most
// workers goroutines. Each call owns its [lo, hi) slots.
func forChunks(ctx context.Context, n, size, workers int, fn func(chunk, lo, hi int) error) error {
	if n == 0 {
		return ctx.Err()
	}
	chunks := ceilDiv(n, size)
	if chunks == 1 || workers <= 1 {
		for c := 0; c < chunks; c++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(c, c*size, min((c+1)*size, n)); err != nil {
				return err
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(c, c*size, min((c+1)*size, n))
		})
	}
	return g.Wait()
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
