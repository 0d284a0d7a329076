// Package dotgraph reads the DOT subset used to describe dataflow graphs.
// Edges carry an iteration distance in their "weight" attribute; nodes carry
// their operation kind in "kind" (or "label").
package dotgraph

import (
	"strings"
	"unicode"
)

// Node is a declared or referenced operation.
type Node struct {
	ID   string
	Kind string
}

// Edge is a directed dependency with its iteration distance.
type Edge struct {
	From   string
	To     string
	Weight int
}

// Graph is the parsed description in declaration order.
type Graph struct {
	Name  string
	Nodes []Node
	Edges []Edge
	index map[string]int
}

func newGraph() *Graph {
	return &Graph{index: make(map[string]int)}
}

// Kind returns the operation kind of node id.
func (g *Graph) Kind(id string) string {
	if i, ok := g.index[id]; ok {
		return g.Nodes[i].Kind
	}
	return KindFromID(id)
}

func (g *Graph) declareNode(id, kind string) {
	i, ok := g.index[id]
	if !ok {
		if kind == "" {
			kind = KindFromID(id)
		}
		g.index[id] = len(g.Nodes)
		g.Nodes = append(g.Nodes, Node{ID: id, Kind: kind})
		return
	}
	if kind != "" {
		g.Nodes[i].Kind = kind
	}
}

func (g *Graph) addEdge(from, to string, weight int) {
	g.declareNode(from, "")
	g.declareNode(to, "")
	g.Edges = append(g.Edges, Edge{From: from, To: to, Weight: weight})
}

// KindFromID derives an operation kind from a node id with no explicit kind:
// the leading letters, upper-cased ("mul_3" → "MUL", "add12" → "ADD").
func KindFromID(id string) string {
	end := strings.IndexFunc(id, func(r rune) bool { return !unicode.IsLetter(r) })
	if end == 0 {
		return strings.ToUpper(id)
	}
	if end < 0 {
		end = len(id)
	}
	return strings.ToUpper(id[:end])
}
