package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/pipesched/internal/dag"
	"github.com/gyaneshwarpardhi/pipesched/internal/dotgraph"
	"github.com/gyaneshwarpardhi/pipesched/internal/job"
	"github.com/gyaneshwarpardhi/pipesched/internal/resource"
)

func validateCmd() *cobra.Command {
	var constraints string

	cmd := &cobra.Command{
		Use:   "validate <file|dir>...",
		Short: "Parse and check graphs without retiming them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lib := resource.NewLibrary()
			var rc *resource.Constraints
			if constraints != "" {
				var err error
				if lib, rc, err = resource.Load(constraints); err != nil {
					return err
				}
			}

			ok := color.New(color.FgGreen).SprintFunc()
			bad := color.New(color.FgRed).SprintFunc()
			out := cmd.OutOrStdout()
			failed := 0
			for _, arg := range args {
				paths, err := job.Discover(arg)
				if err != nil {
					return err
				}
				for _, p := range paths {
					g, err := checkGraph(p, lib, rc)
					if err != nil {
						failed++
						fmt.Fprintf(out, "%s %s: %v\n", bad("FAIL"), p, err)
						continue
					}
					fmt.Fprintf(out, "%s %s (%d nodes, critical path %d)\n", ok("ok"), p, g.Len(), g.CriticalPath())
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d graphs failed validation", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&constraints, "constraints", "c", "", "Also check that every operation kind has a resource")

	return cmd
}

func checkGraph(path string, lib *resource.Library, rc *resource.Constraints) (*dag.Graph, error) {
	desc, err := dotgraph.ParseFile(path)
	if err != nil {
		return nil, err
	}
	g, err := dag.Build(desc, lib)
	if err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if rc != nil {
		for _, n := range g.Nodes() {
			if !rc.Covers(n.Kind()) {
				return nil, fmt.Errorf("no resource executes %s (node %s)", n.Kind(), n.ID())
			}
		}
	}
	return g, nil
}
