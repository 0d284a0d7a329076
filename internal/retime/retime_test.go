package retime_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pipesched/internal/dag"
	"github.com/gyaneshwarpardhi/pipesched/internal/resource"
	"github.com/gyaneshwarpardhi/pipesched/internal/retime"
	"github.com/gyaneshwarpardhi/pipesched/internal/schedule"
)

var opType = resource.Type{Kind: "OP", Delay: 1}

type edge struct {
	from, to string
	w        int
}

func build(t *testing.T, edges ...edge) *dag.Graph {
	t.Helper()
	g := dag.New()
	for _, e := range edges {
		_, err := g.Link(dag.NewNode(e.from, opType), dag.NewNode(e.to, opType), e.w)
		require.NoError(t, err)
	}
	require.NoError(t, g.Validate())
	return g
}

// randomGraph links same-iteration edges forward in index order only, and
// closes cycles with weighted back edges.
func randomGraph(t *testing.T, r *rand.Rand, size int) *dag.Graph {
	t.Helper()
	g := dag.New()
	for i := 0; i < size; i++ {
		g.Add(dag.NewNode(fmt.Sprintf("n%d", i), opType))
	}
	nodes := g.Nodes()
	for i := 1; i < size; i++ {
		_, err := g.Link(nodes[r.IntN(i)], nodes[i], 0)
		require.NoError(t, err)
	}
	for e := 0; e < size; e++ {
		a, b := r.IntN(size), r.IntN(size)
		if a > b {
			_, err := g.Link(nodes[a], nodes[b], 1+r.IntN(3))
			require.NoError(t, err)
		}
	}
	require.NoError(t, g.Validate())
	return g
}

func weights(g *dag.Graph) []int {
	var out []int
	for _, e := range g.Edges() {
		out = append(out, e.Weight)
	}
	return out
}

func cycleSum(t *testing.T, g *dag.Graph, ids ...string) int {
	t.Helper()
	sum := 0
	for i, id := range ids {
		w, ok := g.Weight(g.Get(id), g.Get(ids[(i+1)%len(ids)]))
		require.True(t, ok, "edge %s -> %s", id, ids[(i+1)%len(ids)])
		sum += w
	}
	return sum
}

func TestRotate(t *testing.T) {
	g := build(t,
		edge{"a", "b", 0},
		edge{"b", "c", 1},
		edge{"c", "a", 2},
		edge{"b", "b", 1},
	)
	b := g.Get("b")

	assert.False(t, retime.CanRotate(g, b, retime.Backward), "a -> b has weight 0")
	require.True(t, retime.CanRotate(g, b, retime.Forward), "self-loop is ignored")
	require.NoError(t, retime.Rotate(g, b, retime.Forward))

	w, _ := g.Weight(g.Get("a"), b)
	assert.Equal(t, 1, w)
	w, _ = g.Weight(b, g.Get("c"))
	assert.Equal(t, 0, w)
	w, _ = g.Weight(b, b)
	assert.Equal(t, 1, w, "self-loop weight never changes")

	err := retime.Rotate(g, b, retime.Forward)
	assert.ErrorIs(t, err, retime.ErrNotRotatable)
	assert.Equal(t, "forward", retime.Forward.String())
	assert.Equal(t, retime.Forward, retime.Backward.Opposite())
}

func TestRotate_InverseRestoresWeights(t *testing.T) {
	for seed := uint64(1); seed <= 30; seed++ {
		r := rand.New(rand.NewPCG(seed, 3))
		g := randomGraph(t, r, 4+r.IntN(12))
		for _, n := range g.Nodes() {
			for _, dir := range []retime.Direction{retime.Forward, retime.Backward} {
				if !retime.CanRotate(g, n, dir) {
					continue
				}
				before := g.Edges()
				require.NoError(t, retime.Rotate(g, n, dir))
				require.True(t, retime.CanRotate(g, n, dir.Opposite()))
				require.NoError(t, retime.Rotate(g, n, dir.Opposite()))
				require.Equal(t, before, g.Edges(), "seed %d node %s %s", seed, n, dir)
			}
		}
	}
}

func TestRotate_ConservesCycleSums(t *testing.T) {
	// Two cycles sharing the edge b -> c.
	g := build(t,
		edge{"a", "b", 0},
		edge{"b", "c", 0},
		edge{"c", "a", 3},
		edge{"c", "d", 0},
		edge{"d", "b", 1},
	)
	outer := cycleSum(t, g, "a", "b", "c")
	inner := cycleSum(t, g, "b", "c", "d")

	r := rand.New(rand.NewPCG(9, 9))
	nodes := g.Nodes()
	for step := 0; step < 500; step++ {
		n := nodes[r.IntN(len(nodes))]
		dir := retime.Direction(r.IntN(2))
		if retime.CanRotate(g, n, dir) {
			require.NoError(t, retime.Rotate(g, n, dir))
		}
		require.Equal(t, outer, cycleSum(t, g, "a", "b", "c"))
		require.Equal(t, inner, cycleSum(t, g, "b", "c", "d"))
		require.NoError(t, g.Validate())
	}
}

func TestAnneal_ChainWithBackEdge(t *testing.T) {
	ids := []string{"v0", "v1", "v2", "v3", "v4"}
	for seed := uint64(1); seed <= 10; seed++ {
		g := build(t,
			edge{"v0", "v1", 0},
			edge{"v1", "v2", 0},
			edge{"v2", "v3", 0},
			edge{"v3", "v4", 0},
			edge{"v4", "v0", 2},
		)
		require.Equal(t, 4, g.CriticalPath())

		res, err := retime.NewAnnealer(g, retime.Options{
			Quality: 4,
			Rand:    rand.New(rand.NewPCG(seed, 1)),
		}).Run(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 4, res.StartCost)
		assert.Less(t, res.FinalCost, res.StartCost, "seed %d", seed)
		assert.Equal(t, res.FinalCost, g.CriticalPath())
		assert.Equal(t, 2, cycleSum(t, g, ids...), "seed %d", seed)
		assert.Less(t, res.FinalTemperature, retime.MinTemperature)
		assert.Positive(t, res.Iterations)
		assert.NoError(t, g.Validate())
	}
}

func TestAnneal_NeverRegresses(t *testing.T) {
	for seed := uint64(1); seed <= 25; seed++ {
		r := rand.New(rand.NewPCG(seed, 5))
		g := randomGraph(t, r, 3+r.IntN(15))

		res, err := retime.NewAnnealer(g, retime.Options{Quality: 2, Rand: r}).Run(context.Background())
		require.NoError(t, err)
		assert.LessOrEqual(t, res.FinalCost, res.StartCost, "seed %d", seed)
		assert.Equal(t, res.FinalCost, g.CriticalPath(), "seed %d", seed)
		assert.NoError(t, g.Validate(), "seed %d", seed)
	}
}

func TestAnneal_Deterministic(t *testing.T) {
	run := func() ([]int, retime.Result) {
		g := randomGraph(t, rand.New(rand.NewPCG(42, 42)), 12)
		res, err := retime.NewAnnealer(g, retime.Options{
			Quality: 2,
			Rand:    rand.New(rand.NewPCG(7, 7)),
		}).Run(context.Background())
		require.NoError(t, err)
		return weights(g), res
	}
	w1, r1 := run()
	w2, r2 := run()
	assert.Equal(t, r1, r2)
	assert.Equal(t, w1, w2)
}

func TestAnneal_ScheduleLengthCost(t *testing.T) {
	g := build(t,
		edge{"m0", "m1", 0},
		edge{"m1", "m2", 0},
		edge{"m2", "m3", 0},
		edge{"m3", "m0", 3},
	)
	rc := resource.NewConstraints()
	rc.Add("u0", "OP")
	rc.Add("u1", "OP")
	cost := retime.ScheduleLength{Scheduler: schedule.NewListScheduler(rc)}
	require.Equal(t, 4, cost.Cost(g))

	res, err := retime.NewAnnealer(g, retime.Options{
		Quality: 3,
		Rand:    rand.New(rand.NewPCG(2, 2)),
		Cost:    cost,
	}).Run(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, res.FinalCost, res.StartCost)
	assert.Equal(t, res.FinalCost, cost.Cost(g))
	assert.Equal(t, 3, cycleSum(t, g, "m0", "m1", "m2", "m3"))
}

func TestScheduleLength_InfeasibleCostsZero(t *testing.T) {
	g := build(t, edge{"a", "b", 0})
	cost := retime.ScheduleLength{Scheduler: schedule.NewListScheduler(resource.NewConstraints())}
	assert.Equal(t, 0, cost.Cost(g))
}

func TestAnneal_NothingToDo(t *testing.T) {
	res, err := retime.NewAnnealer(dag.New(), retime.Options{Quality: 3}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, retime.Result{}, res)

	// Zero cost means zero starting temperature.
	g := build(t, edge{"a", "b", 1}, edge{"b", "a", 1})
	res, err = retime.NewAnnealer(g, retime.Options{Quality: 3}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, res.Iterations)

	// Zero quality leaves the graph alone.
	g = build(t, edge{"a", "b", 0}, edge{"b", "c", 0}, edge{"c", "a", 2})
	before := g.Edges()
	res, err = retime.NewAnnealer(g, retime.Options{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, retime.Result{StartCost: 2, FinalCost: 2}, res)
	assert.Equal(t, before, g.Edges())
}

func TestAnneal_Cancelled(t *testing.T) {
	g := randomGraph(t, rand.New(rand.NewPCG(1, 1)), 10)
	start := g.CriticalPath()
	before := g.Edges()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := retime.NewAnnealer(g, retime.Options{Quality: 100}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, start, res.StartCost)
	assert.Equal(t, start, res.FinalCost)
	assert.Equal(t, 0, res.Iterations)
	assert.Equal(t, before, g.Edges())
}

func TestRegistry(t *testing.T) {
	reg := retime.DefaultRegistry(schedule.NewListScheduler(resource.NewConstraints()))
	assert.Equal(t, []string{retime.CostCriticalPath, retime.CostScheduleLength}, reg.Names())

	c, err := reg.Get(retime.CostCriticalPath)
	require.NoError(t, err)
	assert.Equal(t, retime.CriticalPath{}, c)

	_, err = reg.Get("area")
	assert.ErrorContains(t, err, `"area"`)

	assert.Panics(t, func() { reg.Register(retime.CriticalPath{}) })
	assert.Equal(t, []string{retime.CostCriticalPath}, retime.DefaultRegistry(nil).Names())
}
