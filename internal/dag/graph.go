package dag

import (
	"fmt"
	"sort"
	"strings"
)

// Graph is a weighted directed multigraph of operations. Edge weights are
// iteration distances: 0 is a same-iteration dependency, N > 0 crosses N
// iteration boundaries.
//
// Nodes live in an arena addressed by Node.Index. Adjacency is stored as
// index-keyed weight maps next to the arena. A Graph is owned by one algorithm
// at a time and is not safe for concurrent use.
type Graph struct {
	nodes []*Node
	byID  map[string]int

	succ []map[int]int // node index → successor index → weight
	pred []map[int]int // node index → predecessor index → weight

	// Same-iteration neighbours not yet handled by a traversal (see Handle).
	pendingSucc []map[int]struct{}
	pendingPred []map[int]struct{}

	// cyclic is set when depth propagation ran past the node count, which
	// only happens with a cycle of zero-weight edges.
	cyclic bool
}

// New allocates an empty Graph.
func New() *Graph {
	return &Graph{byID: make(map[string]int)}
}

// Add inserts n if no node with its id exists and returns the canonical node
// for that id. It returns nil for a nil node or an empty id.
func (g *Graph) Add(n *Node) *Node {
	if n == nil || n.id == "" {
		return nil
	}
	if i, ok := g.byID[n.id]; ok {
		return g.nodes[i]
	}
	if n.index >= 0 {
		// n belongs to another graph; never share it.
		n = NewNode(n.id, n.typ)
	}
	n.index = len(g.nodes)
	n.depth = 0
	g.byID[n.id] = n.index
	g.nodes = append(g.nodes, n)
	g.succ = append(g.succ, make(map[int]int))
	g.pred = append(g.pred, make(map[int]int))
	g.pendingSucc = append(g.pendingSucc, make(map[int]struct{}))
	g.pendingPred = append(g.pendingPred, make(map[int]struct{}))
	return n
}

// Get returns the node with the given id, or nil.
func (g *Graph) Get(id string) *Node {
	if i, ok := g.byID[id]; ok {
		return g.nodes[i]
	}
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Nodes returns all nodes in arena order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Link adds both endpoints and creates or overwrites the edge pred→succ with
// weight w. It returns the canonical successor.
func (g *Graph) Link(pred, succ *Node, w int) (*Node, error) {
	p, s, err := g.endpoints(pred, succ, w)
	if err != nil {
		return nil, err
	}
	g.setEdge(p.index, s.index, w)
	return s, nil
}

// RLink is Link for bottom-up construction: it returns the canonical predecessor.
func (g *Graph) RLink(pred, succ *Node, w int) (*Node, error) {
	p, s, err := g.endpoints(pred, succ, w)
	if err != nil {
		return nil, err
	}
	g.setEdge(p.index, s.index, w)
	return p, nil
}

func (g *Graph) endpoints(pred, succ *Node, w int) (*Node, *Node, error) {
	if w < 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrNegativeWeight, w)
	}
	p := g.Add(pred)
	if p == nil {
		return nil, nil, fmt.Errorf("%w: predecessor", ErrInvalidNode)
	}
	s := g.Add(succ)
	if s == nil {
		return nil, nil, fmt.Errorf("%w: successor", ErrInvalidNode)
	}
	return p, s, nil
}

// SetWeight overwrites the weight of the existing edge pred→succ.
func (g *Graph) SetWeight(pred, succ *Node, w int) error {
	if w < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeWeight, w)
	}
	if !g.owns(pred) || !g.owns(succ) {
		return ErrInvalidNode
	}
	if _, ok := g.succ[pred.index][succ.index]; !ok {
		return fmt.Errorf("%w: %s -> %s", ErrNoEdge, pred.id, succ.id)
	}
	g.setEdge(pred.index, succ.index, w)
	return nil
}

// Unlink removes the edge a→b if it exists, otherwise the edge b→a.
// It reports whether an edge was removed.
func (g *Graph) Unlink(a, b *Node) bool {
	if !g.owns(a) || !g.owns(b) {
		return false
	}
	if _, ok := g.succ[a.index][b.index]; ok {
		g.removeEdge(a.index, b.index)
		return true
	}
	if _, ok := g.pred[a.index][b.index]; ok {
		g.removeEdge(b.index, a.index)
		return true
	}
	return false
}

func (g *Graph) setEdge(p, s, w int) {
	old, existed := g.succ[p][s]
	if existed && old == w {
		return
	}
	g.succ[p][s] = w
	g.pred[s][p] = w
	if w == 0 {
		g.pendingSucc[p][s] = struct{}{}
		g.pendingPred[s][p] = struct{}{}
		if g.nodes[p].depth+1 > g.nodes[s].depth {
			g.propagateDepth(s)
		}
		return
	}
	delete(g.pendingSucc[p], s)
	delete(g.pendingPred[s], p)
	if existed && old == 0 {
		g.propagateDepth(s)
	}
}

func (g *Graph) removeEdge(p, s int) {
	w := g.succ[p][s]
	delete(g.succ[p], s)
	delete(g.pred[s], p)
	delete(g.pendingSucc[p], s)
	delete(g.pendingPred[s], p)
	if w == 0 && g.nodes[s].depth == g.nodes[p].depth+1 {
		g.propagateDepth(s)
	}
}

func (g *Graph) owns(n *Node) bool {
	return n != nil && n.index >= 0 && n.index < len(g.nodes) && g.nodes[n.index] == n
}

// Weight returns the weight of edge pred→succ and whether it exists.
func (g *Graph) Weight(pred, succ *Node) (int, bool) {
	if !g.owns(pred) || !g.owns(succ) {
		return 0, false
	}
	w, ok := g.succ[pred.index][succ.index]
	return w, ok
}

// Out returns all outgoing edges of n ordered by successor index.
func (g *Graph) Out(n *Node) []Edge {
	if !g.owns(n) {
		return nil
	}
	out := make([]Edge, 0, len(g.succ[n.index]))
	for _, s := range sortedKeys(g.succ[n.index]) {
		out = append(out, Edge{Pred: n, Succ: g.nodes[s], Weight: g.succ[n.index][s]})
	}
	return out
}

// In returns all incoming edges of n ordered by predecessor index.
func (g *Graph) In(n *Node) []Edge {
	if !g.owns(n) {
		return nil
	}
	out := make([]Edge, 0, len(g.pred[n.index]))
	for _, p := range sortedKeys(g.pred[n.index]) {
		out = append(out, Edge{Pred: g.nodes[p], Succ: n, Weight: g.pred[n.index][p]})
	}
	return out
}

// Successors returns the same-iteration successors of n (weight 0).
func (g *Graph) Successors(n *Node) []*Node {
	return g.zeroWeight(g.succ, n)
}

// Predecessors returns the same-iteration predecessors of n (weight 0).
func (g *Graph) Predecessors(n *Node) []*Node {
	return g.zeroWeight(g.pred, n)
}

func (g *Graph) zeroWeight(adj []map[int]int, n *Node) []*Node {
	if !g.owns(n) {
		return nil
	}
	var out []*Node
	for _, i := range sortedKeys(adj[n.index]) {
		if adj[n.index][i] == 0 {
			out = append(out, g.nodes[i])
		}
	}
	return out
}

// Root reports whether n has no same-iteration predecessor.
func (g *Graph) Root(n *Node) bool {
	if !g.owns(n) {
		return false
	}
	return !hasZero(g.pred[n.index])
}

// Leaf reports whether n has no same-iteration successor.
func (g *Graph) Leaf(n *Node) bool {
	if !g.owns(n) {
		return false
	}
	return !hasZero(g.succ[n.index])
}

func hasZero(adj map[int]int) bool {
	for _, w := range adj {
		if w == 0 {
			return true
		}
	}
	return false
}

// Edges returns every edge ordered by predecessor, then successor index.
func (g *Graph) Edges() []Edge {
	var out []Edge
	for _, n := range g.nodes {
		out = append(out, g.Out(n)...)
	}
	return out
}

// Restore sets the weight of every listed edge, typically a snapshot taken
// with Edges. Edges must already exist. Raised weights are applied before
// lowered ones so no intermediate state has more zero-weight edges than
// either endpoint state.
func (g *Graph) Restore(edges []Edge) error {
	for _, raise := range []bool{true, false} {
		for _, e := range edges {
			cur, ok := g.Weight(e.Pred, e.Succ)
			if ok && (e.Weight > cur) != raise {
				continue
			}
			if err := g.SetWeight(e.Pred, e.Succ, e.Weight); err != nil {
				return fmt.Errorf("restore %s -> %s: %w", e.Pred, e.Succ, err)
			}
		}
	}
	return nil
}

// CriticalPath returns the largest depth over all nodes: the longest
// same-iteration path counted in edges.
func (g *Graph) CriticalPath() int {
	longest := 0
	for _, n := range g.nodes {
		if n.depth > longest {
			longest = n.depth
		}
	}
	return longest
}

// String dumps every node with its kind and weighted neighbours.
func (g *Graph) String() string {
	var b strings.Builder
	for _, n := range g.nodes {
		fmt.Fprintf(&b, "%s (%s, depth %d):\n", n.id, n.typ.Kind, n.depth)
		if out := g.Out(n); len(out) > 0 {
			b.WriteString("  successors\n")
			for _, e := range out {
				fmt.Fprintf(&b, "    %s\t%d\n", e.Succ.id, e.Weight)
			}
		}
		if in := g.In(n); len(in) > 0 {
			b.WriteString("  predecessors\n")
			for _, e := range in {
				fmt.Fprintf(&b, "    %s\t%d\n", e.Pred.id, e.Weight)
			}
		}
	}
	fmt.Fprintf(&b, "nodes: %d", len(g.nodes))
	return b.String()
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
