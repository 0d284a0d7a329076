package dag

import (
	"fmt"

	"github.com/gyaneshwarpardhi/pipesched/internal/dotgraph"
	"github.com/gyaneshwarpardhi/pipesched/internal/resource"
)

// Build constructs a Graph from a parsed description. Operation kinds are
// resolved to resource types through lib; unknown kinds get the default delay.
func Build(desc *dotgraph.Graph, lib *resource.Library) (*Graph, error) {
	g := New()
	for _, n := range desc.Nodes {
		if g.Add(NewNode(n.ID, lib.Lookup(n.Kind))) == nil {
			return nil, fmt.Errorf("node %q: %w", n.ID, ErrInvalidNode)
		}
	}
	for _, e := range desc.Edges {
		pred := NewNode(e.From, lib.Lookup(desc.Kind(e.From)))
		succ := NewNode(e.To, lib.Lookup(desc.Kind(e.To)))
		if _, err := g.Link(pred, succ, e.Weight); err != nil {
			return nil, fmt.Errorf("edge %s -> %s: %w", e.From, e.To, err)
		}
	}
	return g, nil
}
