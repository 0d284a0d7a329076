// Package report writes per-input summary rows and a terminal summary for a
// batch of engine results.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/gyaneshwarpardhi/pipesched/internal/engine"
)

// Header names the columns of a summary row.
var Header = []string{"file", "nodes", "cost_before", "cost_after", "makespan", "iterations"}

var (
	bold   = color.New(color.Bold).SprintFunc()
	green  = color.New(color.FgGreen).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// Writer emits semicolon-separated summary rows.
type Writer struct {
	w *csv.Writer
}

// NewWriter creates a Writer on w and emits the header row.
func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	cw.Comma = ';'
	if err := cw.Write(Header); err != nil {
		return nil, err
	}
	return &Writer{w: cw}, nil
}

// Write emits one row per result. Infeasible results show "-" as makespan;
// failed results carry their error in a trailing column.
func (w *Writer) Write(results ...*engine.Result) error {
	for _, r := range results {
		if err := w.w.Write(Row(r)); err != nil {
			return err
		}
	}
	w.w.Flush()
	return w.w.Error()
}

// Row formats a single result.
func Row(r *engine.Result) []string {
	file := r.Path
	if file == "" {
		file = r.Name
	}
	makespan := "-"
	if r.Feasible() {
		makespan = strconv.Itoa(r.Makespan)
	}
	row := []string{
		file,
		strconv.Itoa(r.Nodes),
		strconv.Itoa(r.Retime.StartCost),
		strconv.Itoa(r.Retime.FinalCost),
		makespan,
		strconv.Itoa(r.Retime.Iterations),
	}
	if r.Error != "" {
		row = append(row, r.Error)
	}
	return row
}

// Summary tallies a batch.
type Summary struct {
	Total      int
	OK         int
	Infeasible int
	Failed     int
	CostBefore int
	CostAfter  int
}

// Summarize counts outcomes and sums costs over successful results.
func Summarize(results []*engine.Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case engine.StatusOK:
			s.OK++
		case engine.StatusInfeasible:
			s.Infeasible++
		default:
			s.Failed++
			continue
		}
		s.CostBefore += r.Retime.StartCost
		s.CostAfter += r.Retime.FinalCost
	}
	return s
}

// Print writes a human-readable summary line.
func (s Summary) Print(w io.Writer) {
	fmt.Fprintf(w, "%s %d inputs: %s", bold("pipesched:"), s.Total, green(fmt.Sprintf("%d scheduled", s.OK)))
	if s.Infeasible > 0 {
		fmt.Fprintf(w, ", %s", yellow(fmt.Sprintf("%d infeasible", s.Infeasible)))
	}
	if s.Failed > 0 {
		fmt.Fprintf(w, ", %s", red(fmt.Sprintf("%d failed", s.Failed)))
	}
	if s.CostBefore > 0 {
		reduction := 100 * float64(s.CostBefore-s.CostAfter) / float64(s.CostBefore)
		fmt.Fprintf(w, " %s", dim(fmt.Sprintf("[cost %d → %d, -%.1f%%]", s.CostBefore, s.CostAfter, reduction)))
	}
	fmt.Fprintln(w)
}
