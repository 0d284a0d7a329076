package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/gyaneshwarpardhi/pipesched/internal/retime"
)

var knownCosts = map[string]bool{
	retime.CostCriticalPath:   true,
	retime.CostScheduleLength: true,
}

// Validate checks the config for:
//   - Required fields (input, constraints)
//   - Existence of the input, constraints and output paths
//   - A known cost function and non-negative tuning values
//
// Every problem found is reported in one error.
func Validate(cfg *RunConfig) error {
	return validate(cfg, true)
}

// ValidateServer is Validate for the HTTP server: requests carry their own
// graphs, and constraints may come with each request instead of the config.
func ValidateServer(cfg *RunConfig) error {
	return validate(cfg, false)
}

func validate(cfg *RunConfig, batch bool) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	if cfg.Input == "" {
		if batch {
			errs = append(errs, "input is required")
		}
	} else if _, err := os.Stat(cfg.Input); err != nil {
		errs = append(errs, fmt.Sprintf("input: %s", err))
	}
	if cfg.Constraints == "" {
		if batch {
			errs = append(errs, "constraints is required")
		}
	} else if fi, err := os.Stat(cfg.Constraints); err != nil {
		errs = append(errs, fmt.Sprintf("constraints: %s", err))
	} else if fi.IsDir() {
		errs = append(errs, fmt.Sprintf("constraints: %s is a directory", cfg.Constraints))
	}
	if cfg.Output != "" {
		if fi, err := os.Stat(cfg.Output); err != nil {
			errs = append(errs, fmt.Sprintf("output: %s", err))
		} else if !fi.IsDir() {
			errs = append(errs, fmt.Sprintf("output: %s is not a directory", cfg.Output))
		}
	}

	if !knownCosts[cfg.Retime.Cost] {
		errs = append(errs, fmt.Sprintf("retime.cost: unknown cost function %q", cfg.Retime.Cost))
	}
	if cfg.Retime.Quality < 0 {
		errs = append(errs, fmt.Sprintf("retime.quality must not be negative, got %d", cfg.Retime.Quality))
	}
	if cfg.Retime.DirChangeInterval < 0 {
		errs = append(errs, fmt.Sprintf("retime.dir_change_interval must not be negative, got %d", cfg.Retime.DirChangeInterval))
	}
	if cfg.Engine.Workers < 1 {
		errs = append(errs, fmt.Sprintf("engine.workers must be at least 1, got %d", cfg.Engine.Workers))
	}
	if cfg.Engine.QueueDepth < 1 {
		errs = append(errs, fmt.Sprintf("engine.queue_depth must be at least 1, got %d", cfg.Engine.QueueDepth))
	}
	if cfg.Engine.TimeoutMs < 0 {
		errs = append(errs, fmt.Sprintf("engine.timeout_ms must not be negative, got %d", cfg.Engine.TimeoutMs))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
