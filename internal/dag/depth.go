package dag

// propagateDepth restores the depth invariant after an edge into start changed:
//
//	depth(n) = 0                                      if n has no zero-weight predecessor
//	depth(n) = 1 + max(depth(p) | p zero-weight pred) otherwise
//
// It runs an explicit worklist to a fixed point. When a node's depth drops, only
// successors whose depth was exactly old+1 can lose their justification; when it
// rises, only successors below new+1 need to be pushed forward.
func (g *Graph) propagateDepth(start int) {
	limit := len(g.nodes)
	budget := limit*limit + len(g.nodes) + 16
	queue := []int{start}
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]

		if budget--; budget < 0 {
			g.cyclic = true
			return
		}

		n := g.nodes[idx]
		d := g.derivedDepth(idx)
		if d == n.depth {
			continue
		}
		old := n.depth
		n.depth = d
		if d > limit {
			// Longer than any simple path: a zero-weight cycle. Stop here.
			g.cyclic = true
			continue
		}

		for s, w := range g.succ[idx] {
			if w != 0 {
				continue
			}
			sd := g.nodes[s].depth
			if (d < old && sd == old+1) || (d > old && sd < d+1) {
				queue = append(queue, s)
			}
		}
	}
}

func (g *Graph) derivedDepth(idx int) int {
	d := 0
	for p, w := range g.pred[idx] {
		if w != 0 {
			continue
		}
		if pd := g.nodes[p].depth + 1; pd > d {
			d = pd
		}
	}
	return d
}

// RecomputeDepths derives every depth from scratch in topological order of the
// zero-weight subgraph. It returns false, leaving depths untouched, when that
// subgraph has a cycle.
func (g *Graph) RecomputeDepths() bool {
	depths, ok := g.referenceDepths()
	if !ok {
		g.cyclic = true
		return false
	}
	for i, n := range g.nodes {
		n.depth = depths[i]
	}
	g.cyclic = false
	return true
}

// referenceDepths computes depths with Kahn's algorithm without touching the
// incremental state.
func (g *Graph) referenceDepths() ([]int, bool) {
	indeg := make([]int, len(g.nodes))
	for i := range g.nodes {
		for _, w := range g.pred[i] {
			if w == 0 {
				indeg[i]++
			}
		}
	}
	depths := make([]int, len(g.nodes))
	queue := make([]int, 0, len(g.nodes))
	for i, d := range indeg {
		if d == 0 {
			queue = append(queue, i)
		}
	}
	seen := 0
	for len(queue) > 0 {
		idx := queue[0]
		queue = queue[1:]
		seen++
		for s, w := range g.succ[idx] {
			if w != 0 {
				continue
			}
			if depths[idx]+1 > depths[s] {
				depths[s] = depths[idx] + 1
			}
			if indeg[s]--; indeg[s] == 0 {
				queue = append(queue, s)
			}
		}
	}
	return depths, seen == len(g.nodes)
}
