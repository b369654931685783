package ecp

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	pkgerrors "ecpbench/pkg/errors"
	"ecpbench/pkg/logger"

	"github.com/bits-and-blooms/bitset"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

const assignChunk = 1024

type builder struct {
	ix  *Index
	p   BuildParams
	rng *rand.Rand
	log *zap.SugaredLogger
}

// Build constructs an index over dataset. The dataset is copied; the caller's
// slices are never retained or modified. Degenerate parameters or data fail
// with ErrConfiguration before any work is done.
func Build(ctx context.Context, dataset [][]float64, metric Metric, params BuildParams) (*Index, error) {
	start := time.Now()
	if !metric.valid() {
		return nil, configErr("unknown metric %d", int(metric))
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	dim, err := datasetDimension(dataset)
	if err != nil {
		return nil, err
	}

	p := params.resolved()
	ix := &Index{
		metric: metric,
		dim:    dim,
		params: p,
		root:   &node{leader: -1},
	}
	ix.load(dataset)

	b := &builder{
		ix:  ix,
		p:   p,
		rng: newRand(p.Seed),
		log: logger.With("metric", metric.String(), "points", len(dataset)),
	}

	n := len(dataset)
	sampleSize := min(n, int(math.Ceil(p.Percentage*float64(n))))
	if sampleSize < 1 {
		return nil, configErr("sample of %d points with percentage %v is empty", n, p.Percentage)
	}

	if p.BatchBuild {
		err = b.batch(ctx, sampleSize)
	} else {
		err = b.incremental(ctx, sampleSize)
	}
	if err != nil {
		return nil, err
	}

	ix.collectLeaves()
	ix.computeStats()
	ix.stats.BuildDuration = time.Since(start)

	b.log.Infow("eCP index built",
		"batch", p.BatchBuild,
		"depth", ix.stats.Depth,
		"leaves", ix.stats.Leaves,
		"mean_leaf", ix.stats.MeanLeaf,
		"reclusterings", ix.stats.ClusterReclusterings+ix.stats.NodeReclusterings,
		"duration", ix.stats.BuildDuration,
	)
	return ix, nil
}

func datasetDimension(dataset [][]float64) (int, error) {
	if len(dataset) == 0 {
		return 0, fmt.Errorf("%w: %w", pkgerrors.ErrConfiguration, pkgerrors.ErrEmptyDataset)
	}
	dim := len(dataset[0])
	if dim == 0 {
		return 0, configErr("points have no coordinates")
	}
	for i, v := range dataset {
		if len(v) != dim {
			return 0, fmt.Errorf("%w: %w: point %d has %d coordinates, expected %d",
				pkgerrors.ErrConfiguration, pkgerrors.ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}

// load copies the dataset into one contiguous block and caches norms for Angular.
func (ix *Index) load(dataset [][]float64) {
	block := make([]float64, len(dataset)*ix.dim)
	ix.points = make([][]float64, len(dataset))
	for i, v := range dataset {
		p := block[i*ix.dim : (i+1)*ix.dim : (i+1)*ix.dim]
		copy(p, v)
		ix.points[i] = p
	}
	if ix.metric == Angular {
		ix.norms = make([]float64, len(dataset))
		for i, p := range ix.points {
			ix.norms[i] = floats.Norm(p, 2)
		}
	}
}

// levelSizes lists leader counts from the top level down to the leaf level.
// Every level above the leaves shrinks by span until at most span leaders remain.
func levelSizes(leaves, span int) []int {
	sizes := []int{leaves}
	for last := leaves; last > span; {
		last = ceilDiv(last, span)
		sizes = append(sizes, last)
	}
	for i, j := 0, len(sizes)-1; i < j; i, j = i+1, j-1 {
		sizes[i], sizes[j] = sizes[j], sizes[i]
	}
	return sizes
}

func (b *builder) batch(ctx context.Context, sampleSize int) error {
	n := len(b.ix.points)
	sample := pick(b.rng, seq(n), sampleSize)
	leafCount := min(max(ceilDiv(n, b.p.SC), 1), sampleSize)

	leaves, err := b.skeleton(ctx, sample, leafCount)
	if err != nil {
		return err
	}
	rest := seedLeaves(leaves, seq(n), n)
	return b.assign(ctx, rest, b.p.beamWidth(), b.p.NPol == MultiAssign)
}

// seedLeaves stores every leaf's leader in that leaf, so no leaf is empty, and
// returns the ids that still need a leaf.
func seedLeaves(leaves []*node, ids []int, n int) []int {
	leaders := bitset.New(uint(n))
	for _, leaf := range leaves {
		leaf.members = append(leaf.members, leaf.leader)
		leaders.Set(uint(leaf.leader))
	}
	rest := make([]int, 0, len(ids))
	for _, id := range ids {
		if !leaders.Test(uint(id)) {
			rest = append(rest, id)
		}
	}
	return rest
}

// skeleton picks leaders for every level from sample and links each level to
// the nearest leader of the level above, bottom-up. It returns the leaves.
func (b *builder) skeleton(ctx context.Context, sample []int, leafCount int) ([]*node, error) {
	sizes := levelSizes(leafCount, b.p.Span)
	depth := len(sizes)

	leaders := make([][]int, depth)
	leaders[depth-1] = pick(b.rng, sample, sizes[depth-1])
	for lvl := depth - 2; lvl >= 0; lvl-- {
		leaders[lvl] = pick(b.rng, leaders[lvl+1], sizes[lvl])
	}

	leaves := newNodes(leaders[depth-1])
	lower := leaves
	for lvl := depth - 2; lvl >= 0; lvl-- {
		upper := newNodes(leaders[lvl])
		parents := make([]*node, len(lower))
		err := forChunks(ctx, len(lower), assignChunk, b.p.Workers, func(_, lo, hi int) error {
			for i := lo; i < hi; i++ {
				parents[i] = b.ix.nearest(lower[i].leader, upper)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		for i, child := range lower {
			parents[i].children = append(parents[i].children, child)
		}

		// A leader that lost its own point to a duplicate can end up childless.
		lower = upper[:0]
		for _, n := range upper {
			if len(n.children) > 0 {
				lower = append(lower, n)
			}
		}
		b.log.Debugw("level linked", "level", lvl, "leaders", len(lower))
	}
	b.ix.root.children = lower
	return leaves, nil
}

func newNodes(leaders []int) []*node {
	nodes := make([]*node, len(leaders))
	for i, id := range leaders {
		nodes[i] = &node{leader: id}
	}
	return nodes
}

// assign places every id into the leaves chosen by the descent policy. Targets
// are computed in parallel into disjoint slots and merged on one goroutine.
func (b *builder) assign(ctx context.Context, ids []int, width int, multi bool) error {
	targets := make([][]*node, len(ids))
	err := forChunks(ctx, len(ids), assignChunk, b.p.Workers, func(_, lo, hi int) error {
		for i := lo; i < hi; i++ {
			targets[i] = b.leavesFor(ids[i], width, multi)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for i, leaves := range targets {
		for _, leaf := range leaves {
			leaf.members = append(leaf.members, ids[i])
		}
	}
	return nil
}

func (b *builder) leavesFor(id, width int, multi bool) []*node {
	q := b.ix.points[id]
	qn := b.ix.norm(q)
	cands := b.ix.leafCandidates(q, qn, width)

	var ranked []scored
	if multi {
		ranked = b.ix.rank(q, qn, cands, b.p.Replicas, b.p.Slack)
	} else {
		ranked = b.ix.rank(q, qn, cands, 1, 0)
	}
	out := make([]*node, len(ranked))
	for i, s := range ranked {
		out[i] = s.n
	}
	return out
}
