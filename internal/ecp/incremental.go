package ecp

import (
	"context"

	"github.com/bits-and-blooms/bitset"
)

// bounds are the lo/hi sizes a leaf or internal node may reach before it is
// reclustered during incremental construction: 30% below and above target.
type bounds struct {
	lo, hi int
}

func boundsFor(target int) bounds {
	return bounds{
		lo: max(1, ceilDiv(target*7, 10)),
		hi: ceilDiv(target*13, 10),
	}
}

// incremental seeds a tree from the sample and inserts the remaining points one
// at a time in dataset order, reclustering as leaves and nodes overflow.
func (b *builder) incremental(ctx context.Context, sampleSize int) error {
	n := len(b.ix.points)
	sample := pick(b.rng, seq(n), sampleSize)
	leafCount := min(max(ceilDiv(sampleSize, b.p.SC), 1), sampleSize)

	leaves, err := b.skeleton(ctx, sample, leafCount)
	if err != nil {
		return err
	}
	if err := b.assign(ctx, seedLeaves(leaves, sample, n), 1, false); err != nil {
		return err
	}

	seeded := bitset.New(uint(n))
	for _, id := range sample {
		seeded.Set(uint(id))
	}

	lb, nb := boundsFor(b.p.SC), boundsFor(b.p.Span)
	for id := 0; id < n; id++ {
		if seeded.Test(uint(id)) {
			continue
		}
		if id%assignChunk == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		b.insert(id, lb, nb)
	}

	b.log.Debugw("incremental inserts done",
		"inserted", b.ix.stats.Insertions,
		"cluster_reclusterings", b.ix.stats.ClusterReclusterings,
		"node_reclusterings", b.ix.stats.NodeReclusterings,
		"growths", b.ix.stats.Growths,
	)

	if b.p.NPol == MultiAssign {
		return b.replicate(ctx)
	}
	return nil
}

// insert appends id to its nearest leaf and walks back up the path reclustering
// every level whose policy reports an overflow.
func (b *builder) insert(id int, lb, nb bounds) {
	path := b.pathTo(id)
	target := path[len(path)-1]
	target.members = append(target.members, id)
	b.ix.stats.Insertions++

	parent := path[len(path)-2]
	if !overflow(b.p.ClusterPolicy, len(target.members), parent, lb.hi, memberCount) {
		return
	}
	b.reclusterLeaves(parent, lb)

	for i := len(path) - 2; ; i-- {
		if i == 0 {
			if len(path[0].children) > nb.hi {
				b.grow(nb)
			}
			return
		}
		up := path[i-1]
		if !overflow(b.p.NodePolicy, len(path[i].children), up, nb.hi, childCount) {
			return
		}
		b.reclusterNodes(up, nb)
	}
}

// pathTo follows the closest leader from the root down to a leaf.
func (b *builder) pathTo(id int) []*node {
	q := b.ix.points[id]
	qn := b.ix.norm(q)
	path := []*node{b.ix.root}
	for n := b.ix.root; !n.isLeaf(); {
		n = b.ix.rank(q, qn, n.children, 1, 0)[0].n
		path = append(path, n)
	}
	return path
}

func memberCount(parent *node) int {
	total := 0
	for _, c := range parent.children {
		total += len(c.members)
	}
	return total
}

func childCount(parent *node) int {
	total := 0
	for _, c := range parent.children {
		total += len(c.children)
	}
	return total
}

func overflow(policy ReclusterPolicy, size int, parent *node, hi int, subtree func(*node) int) bool {
	if policy == Absolute {
		return size > hi
	}
	return subtree(parent) > len(parent.children)*hi
}

// reclusterLeaves replaces the leaf children of parent with ceil(n/lo) new
// leaves led by random members, then redistributes the remaining members.
func (b *builder) reclusterLeaves(parent *node, lb bounds) {
	var ids []int
	for _, c := range parent.children {
		ids = append(ids, c.members...)
	}

	chosen := pick(b.rng, seq(len(ids)), ceilDiv(len(ids), lb.lo))
	taken := bitset.New(uint(len(ids)))
	fresh := make([]*node, len(chosen))
	for i, pos := range chosen {
		fresh[i] = &node{leader: ids[pos], members: []int{ids[pos]}}
		taken.Set(uint(pos))
	}
	for pos, id := range ids {
		if taken.Test(uint(pos)) {
			continue
		}
		n := b.ix.nearest(id, fresh)
		n.members = append(n.members, id)
	}

	parent.children = fresh
	b.ix.stats.ClusterReclusterings++
}

// reclusterNodes regroups the grandchildren of parent under ceil(n/lo) new
// internal nodes led by random grandchildren.
func (b *builder) reclusterNodes(parent *node, nb bounds) {
	var grand []*node
	for _, c := range parent.children {
		grand = append(grand, c.children...)
	}

	chosen := pick(b.rng, seq(len(grand)), ceilDiv(len(grand), nb.lo))
	taken := bitset.New(uint(len(grand)))
	fresh := make([]*node, 0, len(chosen))
	for _, pos := range chosen {
		fresh = append(fresh, &node{leader: grand[pos].leader, children: []*node{grand[pos]}})
		taken.Set(uint(pos))
	}
	for pos, g := range grand {
		if taken.Test(uint(pos)) {
			continue
		}
		n := b.ix.nearest(g.leader, fresh)
		n.children = append(n.children, g)
	}

	parent.children = fresh
	b.ix.stats.NodeReclusterings++
}

// grow adds a level above the current top and reclusters it.
func (b *builder) grow(nb bounds) {
	top := b.ix.root
	b.ix.root = &node{leader: -1, children: []*node{top}}
	b.reclusterNodes(b.ix.root, nb)
	b.ix.stats.Growths++
}

// replicate adds each point to further leaves within slack of its best one
// until it sits in at most Replicas leaves.
func (b *builder) replicate(ctx context.Context) error {
	home := make([]*node, len(b.ix.points))
	var walk func(n *node)
	walk = func(n *node) {
		if n.isLeaf() {
			for _, id := range n.members {
				home[id] = n
			}
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(b.ix.root)

	extra := make([][]*node, len(home))
	err := forChunks(ctx, len(home), assignChunk, b.p.Workers, func(_, lo, hi int) error {
		for id := lo; id < hi; id++ {
			room := b.p.Replicas - 1
			for _, leaf := range b.leavesFor(id, b.p.beamWidth(), true) {
				if room == 0 {
					break
				}
				if leaf != home[id] {
					extra[id] = append(extra[id], leaf)
					room--
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	for id, leaves := range extra {
		for _, leaf := range leaves {
			leaf.members = append(leaf.members, id)
		}
	}
	return nil
}
