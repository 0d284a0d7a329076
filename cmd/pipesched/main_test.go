package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/pipesched/internal/config"
	"github.com/gyaneshwarpardhi/pipesched/internal/resource"
)

const constraintsHCL = `
type "MUL" {
  delay = 2
}

resource "alu" {
  kinds = ["ADD", "SUB"]
  count = 2
}

resource "mul" {
  kinds = ["MUL"]
}
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rc.hcl"), constraintsHCL)
	writeFile(t, filepath.Join(dir, "in", "iir.dot"), `digraph iir {
  add0 -> mul0 -> add1 -> sub0
  sub0 -> add0 [weight=2]
}`)
	writeFile(t, filepath.Join(dir, "in", "div.dot"), "digraph { add0 -> div0 }")
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0o755))

	cfg := &config.RunConfig{
		Input:       filepath.Join(dir, "in"),
		Constraints: filepath.Join(dir, "rc.hcl"),
		Output:      out,
	}
	config.ApplyDefaults(cfg)
	cfg.Retime.Quality = 2
	require.NoError(t, config.Validate(cfg))

	var rows, tally bytes.Buffer
	require.NoError(t, runBatch(context.Background(), cfg, &rows, &tally))

	lines := strings.Split(strings.TrimSpace(rows.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "file;nodes;cost_before;cost_after;makespan;iterations", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], filepath.Join(dir, "in", "div.dot")+";2;1;"), lines[1])
	assert.Contains(t, lines[1], ";-;", "div has no resource")
	assert.True(t, strings.HasPrefix(lines[2], filepath.Join(dir, "in", "iir.dot")+";4;3;"), lines[2])

	assert.FileExists(t, filepath.Join(out, "iir.schedule.json"))
	assert.NoFileExists(t, filepath.Join(out, "div.schedule.json"))
	assert.Contains(t, tally.String(), "1 infeasible")
}

func TestRunBatch_FailedInputs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "rc.hcl"), constraintsHCL)
	writeFile(t, filepath.Join(dir, "loop.dot"), "digraph { add0 -> add1; add1 -> add2; add2 -> add1 }")

	cfg := &config.RunConfig{Input: filepath.Join(dir, "loop.dot"), Constraints: filepath.Join(dir, "rc.hcl")}
	config.ApplyDefaults(cfg)

	var rows, tally bytes.Buffer
	err := runBatch(context.Background(), cfg, &rows, &tally)
	assert.ErrorContains(t, err, "1 of 1 inputs failed")
	assert.Contains(t, rows.String(), "same-iteration cycle")
}

func TestCheckGraph(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "g.dot")
	writeFile(t, path, "digraph { add0 -> mul0; mul0 -> add0 [weight=1] }")

	g, err := checkGraph(path, resource.NewLibrary(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())

	rc := resource.NewConstraints()
	rc.Add("alu", "ADD")
	_, err = checkGraph(path, resource.NewLibrary(), rc)
	assert.ErrorContains(t, err, "no resource executes MUL")
}

func TestParseTimeout(t *testing.T) {
	ms, err := parseTimeout("1.5s")
	require.NoError(t, err)
	assert.Equal(t, 1500, ms)

	_, err = parseTimeout("soon")
	assert.Error(t, err)
	_, err = parseTimeout("-1s")
	assert.Error(t, err)
}
