// Package job describes one unit of driver work: a single input graph with
// the settings to optimize and schedule it under.
package job

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gyaneshwarpardhi/pipesched/internal/resource"
)

// Settings tune the retiming of one job.
type Settings struct {
	Quality           int    `json:"quality"`
	Cost              string `json:"cost"`
	Seed              uint64 `json:"seed"`
	DirChangeInterval int    `json:"dir_change_interval,omitempty"`
}

// Job is the canonical input model for the engine. Exactly one of Path or
// Source is set.
type Job struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Path        string                `json:"path,omitempty"`
	Source      string                `json:"-"` // inline DOT text
	Settings    Settings              `json:"settings"`
	Library     *resource.Library     `json:"-"`
	Constraints *resource.Constraints `json:"-"`
	SubmittedAt time.Time             `json:"submitted_at"`
}

// FromFile creates a job for the graph file at path. Its name is the file
// name without extension.
func FromFile(path string, s Settings, lib *resource.Library, rc *resource.Constraints) *Job {
	return &Job{
		ID:          uuid.NewString(),
		Name:        strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		Path:        path,
		Settings:    s,
		Library:     lib,
		Constraints: rc,
		SubmittedAt: time.Now(),
	}
}

// FromSource creates a job for inline DOT text.
func FromSource(name, src string, s Settings, lib *resource.Library, rc *resource.Constraints) *Job {
	id := uuid.NewString()
	if name == "" {
		name = id
	}
	return &Job{
		ID:          id,
		Name:        name,
		Source:      src,
		Settings:    s,
		Library:     lib,
		Constraints: rc,
		SubmittedAt: time.Now(),
	}
}

// Discover returns the .dot files at root: root itself when it is a file,
// otherwise every .dot file below it in lexical order.
func Discover(root string) ([]string, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return []string{root}, nil
	}
	var out []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".dot") {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	return out, nil
}
