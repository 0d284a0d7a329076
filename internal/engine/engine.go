package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/pipesched/internal/config"
	"github.com/gyaneshwarpardhi/pipesched/internal/ctxlog"
	"github.com/gyaneshwarpardhi/pipesched/internal/dag"
	"github.com/gyaneshwarpardhi/pipesched/internal/dotgraph"
	"github.com/gyaneshwarpardhi/pipesched/internal/job"
	"github.com/gyaneshwarpardhi/pipesched/internal/metrics"
	"github.com/gyaneshwarpardhi/pipesched/internal/resource"
	"github.com/gyaneshwarpardhi/pipesched/internal/retime"
	"github.com/gyaneshwarpardhi/pipesched/internal/schedule"
)

// Job outcomes, used as the status metric label.
const (
	StatusOK         = "ok"
	StatusInfeasible = "infeasible"
	StatusFailed     = "failed"
)

var (
	// ErrQueueFull is returned when a job cannot be enqueued without blocking.
	ErrQueueFull = errors.New("job queue full")
	// ErrExportName is returned when a job name cannot be used as an export
	// file name inside the output directory.
	ErrExportName = errors.New("invalid export name")
)

// Result is the outcome of processing a single job.
type Result struct {
	JobID      string             `json:"job_id"`
	Name       string             `json:"name"`
	Path       string             `json:"path,omitempty"`
	Status     string             `json:"status"`
	Nodes      int                `json:"nodes"`
	Retime     retime.Result      `json:"retime"`
	TimedOut   bool               `json:"timed_out,omitempty"`
	Makespan   int                `json:"makespan"`
	Schedule   *schedule.Schedule `json:"schedule,omitempty"`
	Output     string             `json:"output,omitempty"`
	DurationMs int64              `json:"duration_ms"`
	Error      string             `json:"error,omitempty"`
}

// Feasible reports whether a schedule was produced.
func (r *Result) Feasible() bool {
	return r.Schedule != nil
}

// Engine runs graph jobs on a bounded worker pool. Each job owns its graph;
// nothing is shared between workers.
type Engine struct {
	pool   *workerPool[*jobWork]
	conf   config.EngineConf
	output string
}

type jobWork struct {
	ctx     context.Context
	job     *job.Job
	resultC chan *Result
}

// New creates an Engine using conf and starts its worker pool. When output is
// not empty, every feasible schedule is exported there as JSON.
func New(ctx context.Context, conf config.EngineConf, output string) *Engine {
	e := &Engine{conf: conf, output: output}
	e.pool = newWorkerPool(
		ctx,
		max(conf.Workers, 1),
		max(conf.QueueDepth, 1),
		func(ctx context.Context, w *jobWork) {
			jctx := w.ctx
			if jctx == nil {
				jctx = ctx
			}
			w.resultC <- e.Process(jctx, w.job)
		},
	)
	return e
}

// ProcessSync enqueues j and waits for its result. It fails fast with
// ErrQueueFull instead of blocking on a full queue.
func (e *Engine) ProcessSync(ctx context.Context, j *job.Job) (*Result, error) {
	w := &jobWork{ctx: ctx, job: j, resultC: make(chan *Result, 1)}
	if !e.pool.Submit(w) {
		metrics.JobsDropped.Inc()
		return nil, fmt.Errorf("%w (capacity %d)", ErrQueueFull, e.pool.QueueCap())
	}
	metrics.JobsEnqueued.Inc()

	select {
	case res := <-w.resultC:
		return res, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ProcessAll runs every job and returns the results in input order. It blocks
// while the queue is full.
func (e *Engine) ProcessAll(ctx context.Context, jobs []*job.Job) ([]*Result, error) {
	works := make([]*jobWork, 0, len(jobs))
	for _, j := range jobs {
		w := &jobWork{ctx: ctx, job: j, resultC: make(chan *Result, 1)}
		if err := e.pool.SubmitWait(ctx, w); err != nil {
			return nil, err
		}
		metrics.JobsEnqueued.Inc()
		works = append(works, w)
	}
	out := make([]*Result, 0, len(works))
	for _, w := range works {
		select {
		case res := <-w.resultC:
			out = append(out, res)
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

// QueueUtilization returns queue used / capacity (0–1).
func (e *Engine) QueueUtilization() float64 {
	if e.pool.QueueCap() == 0 {
		return 0
	}
	return float64(e.pool.QueueLen()) / float64(e.pool.QueueCap())
}

// Process runs the full pipeline for one job in the calling goroutine:
// parse, build, validate, retime, schedule and export. Failures are recorded
// on the result.
func (e *Engine) Process(ctx context.Context, j *job.Job) *Result {
	start := time.Now()
	log := ctxlog.FromContext(ctx).With("job", j.Name, "job_id", j.ID)
	ctx = ctxlog.WithLogger(ctx, log)

	res := &Result{JobID: j.ID, Name: j.Name, Path: j.Path}
	err := e.run(ctx, j, res)

	res.DurationMs = time.Since(start).Milliseconds()
	switch {
	case err != nil:
		res.Status = StatusFailed
		res.Error = err.Error()
		log.Warn("job failed", "err", err)
	case res.Schedule == nil:
		res.Status = StatusInfeasible
	default:
		res.Status = StatusOK
		log.Info("job done",
			"nodes", res.Nodes,
			"cost_before", res.Retime.StartCost,
			"cost_after", res.Retime.FinalCost,
			"makespan", res.Makespan,
			"duration_ms", res.DurationMs,
		)
	}

	metrics.JobsProcessed.WithLabelValues(res.Status).Inc()
	metrics.JobDuration.Observe(float64(res.DurationMs))
	return res
}

func (e *Engine) run(ctx context.Context, j *job.Job, res *Result) error {
	log := ctxlog.FromContext(ctx)

	desc, err := parse(j)
	if err != nil {
		return err
	}
	lib := j.Library
	if lib == nil {
		lib = resource.NewLibrary()
	}
	g, err := dag.Build(desc, lib)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	res.Nodes = g.Len()
	if err := g.Validate(); err != nil {
		return fmt.Errorf("validate: %w", err)
	}
	if j.Constraints == nil {
		return fmt.Errorf("no resource constraints")
	}

	scheduler := schedule.NewListScheduler(j.Constraints)
	costName := j.Settings.Cost
	if costName == "" {
		costName = retime.CostCriticalPath
	}
	cost, err := retime.DefaultRegistry(scheduler).Get(costName)
	if err != nil {
		return err
	}

	actx := ctx
	if e.conf.TimeoutMs > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, time.Duration(e.conf.TimeoutMs)*time.Millisecond)
		defer cancel()
	}
	seed := j.Settings.Seed
	rr, err := retime.NewAnnealer(g, retime.Options{
		Quality:           j.Settings.Quality,
		Rand:              rand.New(rand.NewPCG(seed, seed)),
		Cost:              cost,
		DirChangeInterval: j.Settings.DirChangeInterval,
		Logger:            log,
	}).Run(actx)
	res.Retime = rr
	metrics.AnnealIterations.WithLabelValues(cost.Name()).Add(float64(rr.Iterations))
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			return fmt.Errorf("retime: %w", err)
		}
		res.TimedOut = true
		log.Warn("anneal deadline reached, keeping best retiming", "timeout_ms", e.conf.TimeoutMs)
	}
	if rr.StartCost > 0 {
		metrics.CostReduction.Observe(float64(rr.StartCost-rr.FinalCost) / float64(rr.StartCost))
	}

	s, err := scheduler.Schedule(g)
	if errors.Is(err, schedule.ErrInfeasible) {
		log.Warn("no feasible schedule", "err", err)
		return nil
	}
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	res.Schedule = s
	res.Makespan = s.Makespan()
	metrics.Makespan.Observe(float64(res.Makespan))

	if e.output != "" {
		path, err := e.export(res)
		if err != nil {
			return err
		}
		res.Output = path
	}
	return nil
}

func parse(j *job.Job) (*dotgraph.Graph, error) {
	if j.Path == "" {
		desc, err := dotgraph.Parse(j.Source)
		if err != nil {
			return nil, fmt.Errorf("parse: %w", err)
		}
		return desc, nil
	}
	return dotgraph.ParseFile(j.Path)
}

// export writes <output>/<name>.schedule.json.
func (e *Engine) export(res *Result) (string, error) {
	doc := struct {
		Name     string             `json:"name"`
		Nodes    int                `json:"nodes"`
		Retime   retime.Result      `json:"retime"`
		Schedule *schedule.Schedule `json:"schedule"`
	}{res.Name, res.Nodes, res.Retime, res.Schedule}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode schedule: %w", err)
	}
	path, err := e.exportPath(res.Name)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write schedule: %w", err)
	}
	return path, nil
}

// exportPath maps a job name onto a file directly inside the output
// directory. Directory components of the name are dropped.
func (e *Engine) exportPath(name string) (string, error) {
	base := filepath.Base(filepath.FromSlash(strings.ReplaceAll(name, `\`, "/")))
	if base == "." || base == ".." || !filepath.IsLocal(base) {
		return "", fmt.Errorf("%w: %q", ErrExportName, name)
	}
	path := filepath.Join(e.output, base+".schedule.json")
	rel, err := filepath.Rel(e.output, path)
	if err != nil || !filepath.IsLocal(rel) || filepath.Dir(rel) != "." {
		return "", fmt.Errorf("%w: %q", ErrExportName, name)
	}
	return path, nil
}

// Shutdown drains the pool gracefully.
func (e *Engine) Shutdown() {
	e.pool.Drain()
}
