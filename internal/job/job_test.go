package job

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromFile(t *testing.T) {
	j := FromFile("bench/fir16.dot", Settings{Quality: 3}, nil, nil)
	assert.Equal(t, "fir16", j.Name)
	assert.Equal(t, "bench/fir16.dot", j.Path)
	assert.Equal(t, 3, j.Settings.Quality)
	_, err := uuid.Parse(j.ID)
	assert.NoError(t, err)
}

func TestFromSource(t *testing.T) {
	j := FromSource("", "digraph {}", Settings{}, nil, nil)
	assert.Equal(t, j.ID, j.Name, "unnamed jobs are named by id")
	assert.Empty(t, j.Path)

	j = FromSource("inline", "digraph {}", Settings{}, nil, nil)
	assert.Equal(t, "inline", j.Name)
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, p := range []string{"b.dot", "a.DOT", "notes.txt", "sub/c.dot"} {
		full := filepath.Join(dir, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("digraph {}"), 0o644))
	}

	got, err := Discover(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.DOT"),
		filepath.Join(dir, "b.dot"),
		filepath.Join(dir, "sub", "c.dot"),
	}, got)

	single, err := Discover(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Len(t, single, 1, "an explicit file is taken as is")

	_, err = Discover(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
