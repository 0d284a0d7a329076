package schedule

import (
	"fmt"
	"sort"

	"github.com/gyaneshwarpardhi/pipesched/internal/dag"
	"github.com/gyaneshwarpardhi/pipesched/internal/resource"
)

// ListScheduler is a priority-list, resource-constrained scheduler. Nodes are
// ranked by the length of the longest same-iteration path starting at them;
// at every time step each idle resource takes the most urgent ready node it
// can execute.
type ListScheduler struct {
	Constraints *resource.Constraints
}

// NewListScheduler creates a list scheduler over the given constraint table.
func NewListScheduler(rc *resource.Constraints) *ListScheduler {
	return &ListScheduler{Constraints: rc}
}

// Schedule computes a schedule for g. Per-node bookkeeping lives in slices
// local to this call, indexed by Node.Index.
func (ls *ListScheduler) Schedule(g *dag.Graph) (*Schedule, error) {
	if ls.Constraints == nil {
		return nil, fmt.Errorf("list scheduler: no resource constraints given")
	}
	nodes := g.Nodes()
	for _, n := range nodes {
		if !ls.Constraints.Covers(n.Kind()) {
			return nil, fmt.Errorf("%w: no resource executes %s (node %s)", ErrInfeasible, n.Kind(), n.ID())
		}
	}

	pool := priorityOrder(g)
	instances := ls.Constraints.Instances()
	busyUntil := make([]int, len(instances))
	finish := make([]int, len(nodes))
	placed := make([]bool, len(nodes))

	sched := New()
	for t := 0; len(pool) > 0; t++ {
		free, planned := 0, 0
		for r, inst := range instances {
			if busyUntil[r] > t {
				continue
			}
			free++
			for i, n := range pool {
				if !inst.Executes(n.Kind()) || !ready(g, n, t, placed, finish) {
					continue
				}
				end := t + n.Delay()
				sched.Add(n, Interval{Start: t, End: end}, inst.Name)
				busyUntil[r] = end
				finish[n.Index()] = end
				placed[n.Index()] = true
				pool = append(pool[:i], pool[i+1:]...)
				planned++
				break
			}
		}
		// Every resource idle and nothing placed: the remaining nodes wait on
		// each other. Validated graphs never get here; a zero-weight cycle does.
		if free == len(instances) && planned == 0 {
			return nil, fmt.Errorf("%w: no progress at time %d with %d nodes left", ErrInfeasible, t, len(pool))
		}
	}
	return sched, nil
}

// ready reports whether every same-iteration predecessor of n is placed and
// complete by t.
func ready(g *dag.Graph, n *dag.Node, t int, placed []bool, finish []int) bool {
	for _, p := range g.Predecessors(n) {
		if !placed[p.Index()] || finish[p.Index()] > t {
			return false
		}
	}
	return true
}

// priorityOrder ranks nodes by priority(n) = delay(n) + max priority over its
// same-iteration successors. Visiting nodes deepest first guarantees every
// successor is ranked before its predecessors. Ties keep arena order.
func priorityOrder(g *dag.Graph) []*dag.Node {
	nodes := g.Nodes()
	byDepth := make([]*dag.Node, len(nodes))
	copy(byDepth, nodes)
	sort.SliceStable(byDepth, func(i, j int) bool {
		return byDepth[i].Depth() > byDepth[j].Depth()
	})

	prio := make([]int, len(nodes))
	for _, n := range byDepth {
		best := 0
		for _, s := range g.Successors(n) {
			if prio[s.Index()] > best {
				best = prio[s.Index()]
			}
		}
		prio[n.Index()] = n.Delay() + best
	}

	sort.SliceStable(nodes, func(i, j int) bool {
		return prio[nodes[i].Index()] > prio[nodes[j].Index()]
	})
	return nodes
}
