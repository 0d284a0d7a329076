package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/pipesched/internal/config"
	"github.com/gyaneshwarpardhi/pipesched/internal/engine"
	"github.com/gyaneshwarpardhi/pipesched/internal/job"
	"github.com/gyaneshwarpardhi/pipesched/internal/report"
	"github.com/gyaneshwarpardhi/pipesched/internal/resource"
)

func runCmd() *cobra.Command {
	var (
		flags runFlags
		watch bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Retime and schedule every input graph and report one row per input",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader, err := loadConfig(cmd, &flags)
			if err != nil {
				return err
			}
			ctx, cancel := signalContext()
			defer cancel()

			cfg := loader.Config()
			batchErr := runBatch(ctx, cfg, cmd.OutOrStdout(), cmd.ErrOrStderr())
			if !watch {
				return batchErr
			}
			if batchErr != nil {
				slog.Warn("batch finished with errors", "err", batchErr)
			}

			changed := make(chan *config.RunConfig, 1)
			loader.OnChange(func(c *config.RunConfig) {
				select {
				case changed <- c:
				default:
				}
			})
			stop, err := loader.Watch(cfg.Input, cfg.Constraints)
			if err != nil {
				return err
			}
			defer stop()
			slog.Info("watching for changes", "input", cfg.Input, "constraints", cfg.Constraints)

			for {
				select {
				case <-ctx.Done():
					return nil
				case c := <-changed:
					if err := config.Validate(c); err != nil {
						slog.Warn("rerun skipped: config invalid", "err", err)
						continue
					}
					if err := runBatch(ctx, c, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
						slog.Warn("batch finished with errors", "err", err)
					}
				}
			}
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-run whenever the config, constraints or inputs change")

	return cmd
}

// runBatch processes every graph under cfg.Input, writes the summary rows and
// prints a colored tally to errOut.
func runBatch(ctx context.Context, cfg *config.RunConfig, out, errOut io.Writer) error {
	lib, rc, err := resource.Load(cfg.Constraints)
	if err != nil {
		return err
	}
	paths, err := job.Discover(cfg.Input)
	if err != nil {
		return err
	}
	settings := job.Settings{
		Quality:           cfg.Retime.Quality,
		Cost:              cfg.Retime.Cost,
		Seed:              cfg.Retime.Seed,
		DirChangeInterval: cfg.Retime.DirChangeInterval,
	}
	jobs := make([]*job.Job, 0, len(paths))
	for _, p := range paths {
		jobs = append(jobs, job.FromFile(p, settings, lib, rc))
	}

	eng := engine.New(ctx, cfg.Engine, cfg.Output)
	results, err := eng.ProcessAll(ctx, jobs)
	eng.Shutdown()
	if err != nil {
		return err
	}

	if cfg.Report != "" {
		f, err := os.Create(cfg.Report)
		if err != nil {
			return fmt.Errorf("open report: %w", err)
		}
		defer f.Close()
		out = f
	}
	w, err := report.NewWriter(out)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if err := w.Write(results...); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	summary := report.Summarize(results)
	summary.Print(errOut)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d inputs failed", summary.Failed, summary.Total)
	}
	return nil
}
