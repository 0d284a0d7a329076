package dag

// Traversal bookkeeping for Kahn-style one-pass algorithms. Every node keeps
// the set of same-iteration neighbours it has not handled yet; the sets are
// independent of depth and are refilled by Reset.

// Handle marks the edge between a and b as processed from both endpoints.
func (g *Graph) Handle(a, b *Node) {
	if !g.owns(a) || !g.owns(b) {
		return
	}
	g.handle(a.index, b.index)
	g.handle(b.index, a.index)
}

func (g *Graph) handle(self, other int) bool {
	if _, ok := g.pendingSucc[self][other]; ok {
		delete(g.pendingSucc[self], other)
		return true
	}
	if _, ok := g.pendingPred[self][other]; ok {
		delete(g.pendingPred[self], other)
		return true
	}
	return false
}

// Top reports whether n has no unhandled same-iteration predecessor.
func (g *Graph) Top(n *Node) bool {
	return g.owns(n) && len(g.pendingPred[n.index]) == 0
}

// Bottom reports whether n has no unhandled same-iteration successor.
func (g *Graph) Bottom(n *Node) bool {
	return g.owns(n) && len(g.pendingSucc[n.index]) == 0
}

// Reset marks every same-iteration edge as unhandled again.
func (g *Graph) Reset() {
	for i := range g.nodes {
		g.pendingSucc[i] = make(map[int]struct{})
		g.pendingPred[i] = make(map[int]struct{})
	}
	for p := range g.nodes {
		for s, w := range g.succ[p] {
			if w == 0 {
				g.pendingSucc[p][s] = struct{}{}
				g.pendingPred[s][p] = struct{}{}
			}
		}
	}
}

// Validate checks that the zero-weight subgraph is a DAG whose roots reach
// every node. An unweighted shortest-path search from each root must cover the
// graph, and a Kahn pass must consume every node. Offending nodes are listed in
// the returned *GraphError. Traversal state is reset on return.
func (g *Graph) Validate() error {
	if g.cyclic {
		g.RecomputeDepths()
	}

	reached := g.reachFromRoots()
	var unreached []string
	for i, n := range g.nodes {
		if reached[i] < 0 {
			unreached = append(unreached, n.id)
		}
	}
	if len(unreached) > 0 {
		return &GraphError{Kind: ErrUnreachable, Nodes: unreached}
	}

	if left := g.kahn(); len(left) > 0 {
		return &GraphError{Kind: ErrCycle, Nodes: left}
	}
	if g.cyclic {
		return &GraphError{Kind: ErrCycle}
	}
	return nil
}

// reachFromRoots returns, per node, the smallest number of zero-weight edges
// from any root, or -1 when no root reaches it.
func (g *Graph) reachFromRoots() []int {
	dist := make([]int, len(g.nodes))
	queue := make([]int, 0, len(g.nodes))
	for i, n := range g.nodes {
		dist[i] = -1
		if g.Root(n) {
			dist[i] = 0
			queue = append(queue, i)
		}
	}
	for len(queue) > 0 {
		u := queue[0]
		queue = queue[1:]
		for _, s := range sortedKeys(g.succ[u]) {
			if g.succ[u][s] != 0 || dist[s] >= 0 {
				continue
			}
			dist[s] = dist[u] + 1
			queue = append(queue, s)
		}
	}
	return dist
}

// kahn consumes the zero-weight subgraph through the traversal bookkeeping and
// returns the ids of nodes it could not reach a Top state for.
func (g *Graph) kahn() []string {
	g.Reset()
	defer g.Reset()

	done := make([]bool, len(g.nodes))
	var queue []*Node
	for _, n := range g.nodes {
		if g.Top(n) {
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		done[n.index] = true
		for _, s := range g.Successors(n) {
			g.Handle(n, s)
			if g.Top(s) && !done[s.index] {
				queue = append(queue, s)
			}
		}
	}

	var left []string
	for i, n := range g.nodes {
		if !done[i] {
			left = append(left, n.id)
		}
	}
	return left
}
