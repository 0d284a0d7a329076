package schedule

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/gyaneshwarpardhi/pipesched/internal/dag"
)

// ErrInfeasible is returned when no complete schedule exists for the given
// resource constraints. Schedulers never return a partial schedule with it.
var ErrInfeasible = errors.New("no feasible schedule")

// Scheduler assigns a start time and resource to every node of a graph.
type Scheduler interface {
	Schedule(g *dag.Graph) (*Schedule, error)
}

// Interval is the half-open time range [Start, End) a node occupies.
type Interval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Slot is the placement of one node.
type Slot struct {
	Node     *dag.Node `json:"-"`
	Interval
	Resource string `json:"resource"`
}

// Schedule maps nodes to their placement.
type Schedule struct {
	slots map[string]*Slot
}

// New creates an empty schedule.
func New() *Schedule {
	return &Schedule{slots: make(map[string]*Slot)}
}

// Add places n in iv on resource res, replacing any earlier placement.
func (s *Schedule) Add(n *dag.Node, iv Interval, res string) {
	s.slots[n.ID()] = &Slot{Node: n, Interval: iv, Resource: res}
}

// Get returns the placement of node id.
func (s *Schedule) Get(id string) (Slot, bool) {
	sl, ok := s.slots[id]
	if !ok {
		return Slot{}, false
	}
	return *sl, true
}

// Len returns the number of placed nodes.
func (s *Schedule) Len() int {
	return len(s.slots)
}

// Makespan is the completion time of the last node, 0 for an empty schedule.
func (s *Schedule) Makespan() int {
	m := 0
	for _, sl := range s.slots {
		if sl.End > m {
			m = sl.End
		}
	}
	return m
}

// Slots returns all placements ordered by start time, resource and node id.
func (s *Schedule) Slots() []Slot {
	out := make([]Slot, 0, len(s.slots))
	for _, sl := range s.slots {
		out = append(out, *sl)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.Resource != b.Resource {
			return a.Resource < b.Resource
		}
		return a.Node.ID() < b.Node.ID()
	})
	return out
}

type slotJSON struct {
	Node     string `json:"node"`
	Kind     string `json:"kind"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
	Resource string `json:"resource"`
}

// MarshalJSON exports the schedule with its makespan.
func (s *Schedule) MarshalJSON() ([]byte, error) {
	slots := s.Slots()
	out := struct {
		Makespan int        `json:"makespan"`
		Slots    []slotJSON `json:"slots"`
	}{Makespan: s.Makespan(), Slots: make([]slotJSON, 0, len(slots))}
	for _, sl := range slots {
		out.Slots = append(out.Slots, slotJSON{
			Node:     sl.Node.ID(),
			Kind:     sl.Node.Kind(),
			Start:    sl.Start,
			End:      sl.End,
			Resource: sl.Resource,
		})
	}
	return json.Marshal(out)
}

// Verify checks that every node of g is placed, every same-iteration
// predecessor completes before its successor starts, and no two placements on
// one resource overlap.
func (s *Schedule) Verify(g *dag.Graph) error {
	for _, n := range g.Nodes() {
		sl, ok := s.slots[n.ID()]
		if !ok {
			return fmt.Errorf("node %s is not scheduled", n.ID())
		}
		if sl.End-sl.Start != n.Delay() {
			return fmt.Errorf("node %s occupies %d steps, delay is %d", n.ID(), sl.End-sl.Start, n.Delay())
		}
		for _, p := range g.Predecessors(n) {
			ps, ok := s.slots[p.ID()]
			if !ok {
				return fmt.Errorf("predecessor %s of %s is not scheduled", p.ID(), n.ID())
			}
			if ps.End > sl.Start {
				return fmt.Errorf("node %s starts at %d before predecessor %s completes at %d", n.ID(), sl.Start, p.ID(), ps.End)
			}
		}
	}

	byRes := make(map[string][]Slot)
	for _, sl := range s.Slots() {
		byRes[sl.Resource] = append(byRes[sl.Resource], sl)
	}
	for res, slots := range byRes {
		for i := 1; i < len(slots); i++ {
			if slots[i].Start < slots[i-1].End {
				return fmt.Errorf("resource %s runs %s and %s concurrently", res, slots[i-1].Node.ID(), slots[i].Node.ID())
			}
		}
	}
	return nil
}
