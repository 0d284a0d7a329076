// Package retime searches for retimings of a cyclic dataflow graph: edge
// weight redistributions that keep every cycle's total weight while
// shortening a cost such as the same-iteration critical path.
package retime

import (
	"errors"
	"fmt"

	"github.com/gyaneshwarpardhi/pipesched/internal/dag"
)

// ErrNotRotatable is returned by Rotate when a weight would become negative.
var ErrNotRotatable = errors.New("node cannot be rotated")

// Direction of a rotation.
type Direction int

const (
	// Forward moves one unit of delay from the outgoing edges of a node to
	// its incoming edges.
	Forward Direction = iota
	// Backward moves one unit of delay from the incoming edges to the
	// outgoing edges.
	Backward
)

// Opposite returns the direction that undoes d.
func (d Direction) Opposite() Direction {
	if d == Forward {
		return Backward
	}
	return Forward
}

func (d Direction) String() string {
	if d == Forward {
		return "forward"
	}
	return "backward"
}

// CanRotate reports whether n can be rotated in dir without producing a
// negative weight. Self-loops never change under rotation and are ignored.
func CanRotate(g *dag.Graph, n *dag.Node, dir Direction) bool {
	var shrinking []dag.Edge
	if dir == Forward {
		shrinking = g.Out(n)
	} else {
		shrinking = g.In(n)
	}
	for _, e := range shrinking {
		if e.Pred != e.Succ && e.Weight < 1 {
			return false
		}
	}
	return true
}

// Rotate applies one rotation to n. Every weight change is computed from a
// snapshot taken before the first mutation, and increments are applied before
// decrements. Rotating n in dir.Opposite() restores all weights exactly.
func Rotate(g *dag.Graph, n *dag.Node, dir Direction) error {
	if !CanRotate(g, n, dir) {
		return fmt.Errorf("%w: %s %s", ErrNotRotatable, n, dir)
	}
	grow, shrink := g.In(n), g.Out(n)
	if dir == Backward {
		grow, shrink = shrink, grow
	}
	for _, e := range grow {
		if e.Pred == e.Succ {
			continue
		}
		if err := g.SetWeight(e.Pred, e.Succ, e.Weight+1); err != nil {
			return err
		}
	}
	for _, e := range shrink {
		if e.Pred == e.Succ {
			continue
		}
		if err := g.SetWeight(e.Pred, e.Succ, e.Weight-1); err != nil {
			return err
		}
	}
	return nil
}
