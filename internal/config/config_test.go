package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoader_DefaultsAndOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.yaml", `
version: "1"
input: graphs
constraints: rc.yaml
retime:
  cost: schedule-length
  seed: 7
engine:
  workers: 2
`)

	l, err := NewLoader(path, func(c *RunConfig) { c.Retime.Seed = 99 })
	require.NoError(t, err)
	cfg := l.Config()

	assert.Equal(t, "graphs", cfg.Input)
	assert.Equal(t, "schedule-length", cfg.Retime.Cost)
	assert.Equal(t, uint64(99), cfg.Retime.Seed, "overrides win over the file")
	assert.Equal(t, DefaultQuality, cfg.Retime.Quality)
	assert.Equal(t, 2, cfg.Engine.Workers)
	assert.Equal(t, DefaultQueueDepth, cfg.Engine.QueueDepth)
}

func TestLoader_NoFile(t *testing.T) {
	l, err := NewLoader("", func(c *RunConfig) { c.Input = "x.dot" })
	require.NoError(t, err)
	assert.Equal(t, "x.dot", l.Config().Input)
	assert.Equal(t, DefaultCost, l.Config().Retime.Cost)
}

func TestLoader_OverrideDisablesAnnealing(t *testing.T) {
	l, err := NewLoader("", func(c *RunConfig) { c.Retime.Quality = 0 })
	require.NoError(t, err)
	assert.Equal(t, 0, l.Config().Retime.Quality)
	assert.NoError(t, validate(l.Config(), false))
}

func TestLoader_Errors(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config")

	path := writeFile(t, t.TempDir(), "bad.yaml", "retime: [1, 2")
	_, err = NewLoader(path)
	assert.ErrorContains(t, err, "parse config")
}

func TestLoader_ReloadNotifies(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.yaml", "input: a.dot\n")
	l, err := NewLoader(path)
	require.NoError(t, err)

	var got []string
	l.OnChange(func(c *RunConfig) { got = append(got, c.Input) })

	writeFile(t, dir, "run.yaml", "input: b.dot\n")
	cfg, err := l.Reload()
	require.NoError(t, err)
	assert.Equal(t, "b.dot", cfg.Input)
	assert.Equal(t, []string{"b.dot"}, got)
	assert.Same(t, cfg, l.Config())
}

func TestLoader_Watch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.yaml", "input: a.dot\n")
	l, err := NewLoader(path)
	require.NoError(t, err)

	changed := make(chan string, 16)
	l.OnChange(func(c *RunConfig) { changed <- c.Input })

	stop, err := l.Watch()
	require.NoError(t, err)
	defer stop()

	writeFile(t, dir, "run.yaml", "input: c.dot\n")
	timeout := time.After(5 * time.Second)
	for {
		select {
		case in := <-changed:
			if in == "c.dot" {
				return
			}
		case <-timeout:
			t.Fatal("no reload after write")
		}
	}
}

func TestLoader_WatchNestedInput(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "run.yaml", "input: graphs\n")
	nested := filepath.Join(dir, "graphs", "deep")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	l, err := NewLoader(path)
	require.NoError(t, err)

	changed := make(chan struct{}, 16)
	l.OnChange(func(*RunConfig) { changed <- struct{}{} })

	stop, err := l.Watch(filepath.Join(dir, "graphs"))
	require.NoError(t, err)
	defer stop()

	writeFile(t, nested, "g.dot", "digraph { a -> b }")
	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after write in a nested input directory")
	}
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	input := writeFile(t, dir, "g.dot", "digraph { a -> b }")
	rc := writeFile(t, dir, "rc.yaml", "resources: []")

	valid := func() *RunConfig {
		cfg := &RunConfig{Input: input, Constraints: rc, Output: dir}
		ApplyDefaults(cfg)
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Validate(valid()))
	})

	tests := []struct {
		name   string
		mutate func(*RunConfig)
		want   string
	}{
		{"missing input", func(c *RunConfig) { c.Input = "" }, "input is required"},
		{"absent input", func(c *RunConfig) { c.Input = filepath.Join(dir, "nope.dot") }, "input:"},
		{"missing constraints", func(c *RunConfig) { c.Constraints = "" }, "constraints is required"},
		{"constraints dir", func(c *RunConfig) { c.Constraints = dir }, "is a directory"},
		{"output file", func(c *RunConfig) { c.Output = input }, "is not a directory"},
		{"unknown cost", func(c *RunConfig) { c.Retime.Cost = "area" }, `unknown cost function "area"`},
		{"negative quality", func(c *RunConfig) { c.Retime.Quality = -1 }, "retime.quality"},
		{"no workers", func(c *RunConfig) { c.Engine.Workers = 0 }, "engine.workers"},
		{"negative timeout", func(c *RunConfig) { c.Engine.TimeoutMs = -5 }, "engine.timeout_ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.ErrorContains(t, Validate(cfg), tt.want)
		})
	}

	t.Run("aggregates", func(t *testing.T) {
		err := Validate(&RunConfig{Version: "1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input is required")
		assert.Contains(t, err.Error(), "constraints is required")
		assert.Contains(t, err.Error(), "engine.workers")
	})
}

func TestValidateServer(t *testing.T) {
	cfg := &RunConfig{}
	ApplyDefaults(cfg)
	assert.NoError(t, ValidateServer(cfg), "input and constraints are optional")
	assert.Error(t, Validate(cfg))

	cfg.Constraints = filepath.Join(t.TempDir(), "missing.yaml")
	assert.ErrorContains(t, ValidateServer(cfg), "constraints:")
}
