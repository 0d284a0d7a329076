package retime

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/gyaneshwarpardhi/pipesched/internal/ctxlog"
	"github.com/gyaneshwarpardhi/pipesched/internal/dag"
)

const (
	// MinTemperature ends the anneal once the temperature falls below it.
	MinTemperature = 0.1
	// DefaultDirChangeInterval is the default upper bound, in candidate-list
	// passes, between two draws of the rotation direction.
	DefaultDirChangeInterval = 5

	cancelCheckEvery = 64
)

// Options configure an Annealer.
type Options struct {
	// Quality is the epoch length in full passes over the candidate list.
	// Zero disables annealing.
	Quality int
	// Rand drives every random decision. Nil uses a fixed seed.
	Rand *rand.Rand
	// Cost defaults to CriticalPath.
	Cost CostFunc
	// DirChangeInterval defaults to DefaultDirChangeInterval.
	DirChangeInterval int
	// Logger defaults to the logger carried by the Run context.
	Logger *slog.Logger
}

// Result summarises one anneal.
type Result struct {
	StartCost        int     `json:"start_cost"`
	FinalCost        int     `json:"final_cost"`
	Iterations       int     `json:"iterations"`
	Epochs           int     `json:"epochs"`
	Accepted         int     `json:"accepted"`
	FinalTemperature float64 `json:"final_temperature"`
}

// Annealer retimes a graph in place by simulated annealing over rotations.
type Annealer struct {
	g    *dag.Graph
	opts Options
	rnd  *rand.Rand

	order  []*dag.Node
	cursor int
	passes int
}

// NewAnnealer prepares an anneal of g. The graph must have passed
// dag.Graph.Validate.
func NewAnnealer(g *dag.Graph, opts Options) *Annealer {
	if opts.Cost == nil {
		opts.Cost = CriticalPath{}
	}
	if opts.DirChangeInterval < 1 {
		opts.DirChangeInterval = DefaultDirChangeInterval
	}
	rnd := opts.Rand
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(0, 0))
	}
	return &Annealer{g: g, opts: opts, rnd: rnd, order: g.Nodes()}
}

// Run anneals until the temperature drops below MinTemperature, no node can
// be rotated in either direction, or ctx is done. The lowest-cost state seen
// is restored before returning, so FinalCost never exceeds StartCost. On
// cancellation the partial result is returned together with ctx.Err().
func (a *Annealer) Run(ctx context.Context) (Result, error) {
	log := a.opts.Logger
	if log == nil {
		log = ctxlog.FromContext(ctx)
	}
	log = log.With("cost", a.opts.Cost.Name())

	cost := a.opts.Cost.Cost(a.g)
	res := Result{StartCost: cost, FinalCost: cost}
	if a.opts.Quality < 1 {
		return res, nil
	}
	best, bestEdges := cost, a.g.Edges()

	a.rnd.Shuffle(len(a.order), a.swap)
	a.cursor, a.passes = 0, 0

	dir := a.drawDirection()
	nextDraw := a.nextDirectionDraw()
	temp := float64(cost) / math.Ln2
	var runErr error

anneal:
	for temp >= MinTemperature {
		epochStart := a.passes
		attempts, accepted := 0, 0
		for a.passes-epochStart < a.opts.Quality {
			if res.Iterations%cancelCheckEvery == 0 {
				if err := ctx.Err(); err != nil {
					runErr = err
					break anneal
				}
			}
			if a.progress() >= nextDraw {
				dir = a.drawDirection()
				nextDraw = a.nextDirectionDraw()
			}

			n := a.next(dir)
			if n == nil {
				dir = dir.Opposite()
				if n = a.next(dir); n == nil {
					log.Debug("no rotation possible", "iterations", res.Iterations)
					break anneal
				}
			}
			if err := Rotate(a.g, n, dir); err != nil {
				return res, fmt.Errorf("rotate %s: %w", n, err)
			}
			res.Iterations++
			attempts++

			next := a.opts.Cost.Cost(a.g)
			delta := float64(next - cost)
			if delta <= 0 || a.rnd.Float64() < math.Exp(-delta/temp) {
				cost = next
				accepted++
				if cost < best {
					best, bestEdges = cost, a.g.Edges()
				}
				continue
			}
			if err := Rotate(a.g, n, dir.Opposite()); err != nil {
				return res, fmt.Errorf("revert %s: %w", n, err)
			}
		}

		res.Epochs++
		res.Accepted += accepted
		ratio := 0.0
		if attempts > 0 {
			ratio = float64(accepted) / float64(attempts)
		}
		temp *= coolingFactor(ratio)
		log.Debug("anneal epoch",
			"epoch", res.Epochs,
			"acceptance", ratio,
			"temperature", temp,
			"current", cost,
			"best", best,
		)
	}

	if cost > best {
		if err := a.g.Restore(bestEdges); err != nil {
			return res, fmt.Errorf("restore best state: %w", err)
		}
		cost = best
	}
	res.FinalCost = cost
	res.FinalTemperature = temp
	log.Info("anneal finished",
		"start", res.StartCost,
		"final", res.FinalCost,
		"iterations", res.Iterations,
		"epochs", res.Epochs,
	)
	return res, runErr
}

// coolingFactor maps an epoch's acceptance ratio to the temperature
// multiplier: fast cooling while almost everything is accepted, slow cooling
// in the productive middle range.
func coolingFactor(ratio float64) float64 {
	switch {
	case ratio > 0.96:
		return 0.5
	case ratio > 0.8:
		return 0.9
	case ratio > 0.15:
		return 0.95
	default:
		return 0.8
	}
}

// next returns the next node of the shuffled candidate list that can rotate
// in dir. It scans the rest of the current ordering and, if that fails, one
// complete fresh ordering; nil means no node is eligible.
func (a *Annealer) next(dir Direction) *dag.Node {
	for round := 0; round < 2; round++ {
		for a.cursor < len(a.order) {
			n := a.order[a.cursor]
			a.cursor++
			if CanRotate(a.g, n, dir) {
				return n
			}
		}
		a.reshuffle()
	}
	return nil
}

func (a *Annealer) reshuffle() {
	a.rnd.Shuffle(len(a.order), a.swap)
	a.cursor = 0
	a.passes++
}

func (a *Annealer) swap(i, j int) {
	a.order[i], a.order[j] = a.order[j], a.order[i]
}

func (a *Annealer) drawDirection() Direction {
	if a.rnd.IntN(2) == 0 {
		return Forward
	}
	return Backward
}

// progress counts candidate-list passes, including the fraction of the
// current one already scanned.
func (a *Annealer) progress() float64 {
	if len(a.order) == 0 {
		return float64(a.passes)
	}
	return float64(a.passes) + float64(a.cursor)/float64(len(a.order))
}

func (a *Annealer) nextDirectionDraw() float64 {
	return a.progress() + float64(a.opts.DirChangeInterval)*a.rnd.Float64()
}
