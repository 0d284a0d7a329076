package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gyaneshwarpardhi/pipesched/internal/config"
	"github.com/gyaneshwarpardhi/pipesched/internal/retime"
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "pipesched",
		Short: "Retime and schedule cyclic dataflow graphs",
		Long: `pipesched reads dataflow graphs in DOT form, redistributes their pipeline
registers by simulated annealing to shorten the same-iteration critical path,
and produces resource-constrained list schedules.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Run configuration YAML")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(validateCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(w io.Writer) {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// runFlags are the command-line overrides of config file values. Only flags
// set explicitly replace file values.
type runFlags struct {
	input, constraints, output, report string
	quality, workers, queueDepth       int
	dirChangeInterval                  int
	scheduleCost                       bool
	seed                               uint64
	timeout                            string
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "Graph file or directory of .dot files")
	cmd.Flags().StringVarP(&f.constraints, "constraints", "c", "", "Resource constraint file (.yaml or .hcl)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Directory for schedule JSON exports")
	cmd.Flags().StringVar(&f.report, "report", "", "Summary rows file (default stdout)")
	cmd.Flags().IntVarP(&f.quality, "quality", "q", config.DefaultQuality, "Anneal epoch length in candidate-list passes")
	cmd.Flags().BoolVar(&f.scheduleCost, "schedule-cost", false, "Retime against schedule length instead of critical path")
	cmd.Flags().Uint64Var(&f.seed, "seed", 0, "Random seed")
	cmd.Flags().IntVar(&f.workers, "workers", config.DefaultWorkers, "Concurrent jobs")
	cmd.Flags().IntVar(&f.queueDepth, "queue-depth", config.DefaultQueueDepth, "Job queue capacity")
	cmd.Flags().IntVar(&f.dirChangeInterval, "dir-change-interval", retime.DefaultDirChangeInterval, "Max passes between rotation direction draws")
	cmd.Flags().StringVar(&f.timeout, "timeout", "", "Per-job anneal deadline, e.g. 30s")
}

func (f *runFlags) override(cmd *cobra.Command) (config.Override, error) {
	timeoutMs := -1
	if cmd.Flags().Changed("timeout") {
		d, err := parseTimeout(f.timeout)
		if err != nil {
			return nil, err
		}
		timeoutMs = d
	}
	changed := cmd.Flags().Changed
	return func(c *config.RunConfig) {
		if changed("input") {
			c.Input = f.input
		}
		if changed("constraints") {
			c.Constraints = f.constraints
		}
		if changed("output") {
			c.Output = f.output
		}
		if changed("report") {
			c.Report = f.report
		}
		if changed("quality") {
			c.Retime.Quality = f.quality
		}
		if changed("schedule-cost") && f.scheduleCost {
			c.Retime.Cost = retime.CostScheduleLength
		}
		if changed("seed") {
			c.Retime.Seed = f.seed
		}
		if changed("dir-change-interval") {
			c.Retime.DirChangeInterval = f.dirChangeInterval
		}
		if changed("workers") {
			c.Engine.Workers = f.workers
		}
		if changed("queue-depth") {
			c.Engine.QueueDepth = f.queueDepth
		}
		if timeoutMs >= 0 {
			c.Engine.TimeoutMs = timeoutMs
		}
	}, nil
}

func loadConfig(cmd *cobra.Command, f *runFlags) (*config.Loader, error) {
	override, err := f.override(cmd)
	if err != nil {
		return nil, err
	}
	loader, err := config.NewLoader(flagConfig, override)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(loader.Config()); err != nil {
		return nil, err
	}
	return loader, nil
}

func parseTimeout(s string) (int, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse timeout: %w", err)
	}
	if d < 0 {
		return 0, fmt.Errorf("timeout must not be negative, got %s", d)
	}
	return int(d.Milliseconds()), nil
}
