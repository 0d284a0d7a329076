package retime

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gyaneshwarpardhi/pipesched/internal/dag"
	"github.com/gyaneshwarpardhi/pipesched/internal/schedule"
)

// Names of the built-in cost functions.
const (
	CostCriticalPath   = "critical-path"
	CostScheduleLength = "schedule-length"
)

// CostFunc scores a graph state; lower is better.
type CostFunc interface {
	Name() string
	Cost(g *dag.Graph) int
}

// CriticalPath scores a graph by its longest same-iteration path.
type CriticalPath struct{}

func (CriticalPath) Name() string { return CostCriticalPath }
func (CriticalPath) Cost(g *dag.Graph) int { return g.CriticalPath() }

// ScheduleLength scores a graph by the makespan of its schedule.
//
// An infeasible state costs 0 and is therefore indistinguishable from a
// perfect one. Keep constraints loose enough that every retiming of the
// graph stays feasible.
type ScheduleLength struct {
	Scheduler schedule.Scheduler
}

func (ScheduleLength) Name() string { return CostScheduleLength }

func (c ScheduleLength) Cost(g *dag.Graph) int {
	s, err := c.Scheduler.Schedule(g)
	if err != nil {
		return 0
	}
	return s.Makespan()
}

// Registry maps cost function names to implementations.
// It is safe for concurrent reads; Register should only be called at startup.
type Registry struct {
	mu    sync.RWMutex
	costs map[string]CostFunc
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{costs: make(map[string]CostFunc)}
}

// DefaultRegistry holds the critical-path cost and, when s is not nil, the
// schedule-length cost backed by s.
func DefaultRegistry(s schedule.Scheduler) *Registry {
	r := NewRegistry()
	r.Register(CriticalPath{})
	if s != nil {
		r.Register(ScheduleLength{Scheduler: s})
	}
	return r
}

// Register adds a cost function. Panics on a duplicate name.
func (r *Registry) Register(c CostFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.costs[c.Name()]; exists {
		panic(fmt.Sprintf("cost registry: duplicate name %q", c.Name()))
	}
	r.costs[c.Name()] = c
}

// Get returns the cost function registered under name.
func (r *Registry) Get(name string) (CostFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.costs[name]
	if !ok {
		return nil, fmt.Errorf("no cost function registered as %q", name)
	}
	return c, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.costs))
	for k := range r.costs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
