package dag

import (
	"github.com/gyaneshwarpardhi/pipesched/internal/resource"
)

// Node is a single operation of the dataflow graph.
//
// A Node only carries its identity, resource type and depth. Adjacency lives in
// the owning Graph, keyed by the node's arena index.
type Node struct {
	id    string
	index int
	typ   resource.Type
	depth int
}

// NewNode creates a node that does not belong to any graph yet.
// Graph.Add returns the canonical instance for its id.
func NewNode(id string, typ resource.Type) *Node {
	return &Node{id: id, index: -1, typ: typ}
}

func (n *Node) ID() string { return n.id }
func (n *Node) Type() resource.Type { return n.typ }
func (n *Node) Kind() string { return n.typ.Kind }
func (n *Node) Delay() int { return n.typ.Delay }
func (n *Node) String() string { return n.id }

// Index is the node's stable position in the graph arena, -1 if not added.
func (n *Node) Index() int { return n.index }

// Depth is the length of the longest same-iteration path from a root to this
// node. It is maintained by the graph on every edge mutation.
func (n *Node) Depth() int { return n.depth }

// SetType replaces the node's resource type.
func (n *Node) SetType(typ resource.Type) { n.typ = typ }

// Edge is a directed edge with its iteration distance.
type Edge struct {
	Pred   *Node
	Succ   *Node
	Weight int
}
