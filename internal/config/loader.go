package config

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/pipesched/internal/retime"
)

// Default values applied to zero fields after every load.
const (
	DefaultVersion    = "1"
	DefaultQuality    = 10
	DefaultCost       = retime.CostCriticalPath
	DefaultWorkers    = 4
	DefaultQueueDepth = 1000
)

// Override adjusts a freshly loaded config, typically with command-line flags.
// Overrides run after defaults, so they may set zero values such as quality 0.
type Override func(*RunConfig)

// Loader reads a YAML config file and watches it, and any related files, for
// changes. An empty path yields a config built from overrides and defaults.
type Loader struct {
	path      string
	overrides []Override
	mu        sync.RWMutex
	current   *RunConfig
	onChange  []func(*RunConfig)
	watcher   *fsnotify.Watcher
}

// NewLoader creates a Loader and performs the initial load.
func NewLoader(path string, overrides ...Override) (*Loader, error) {
	l := &Loader{path: path, overrides: overrides}
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.current = cfg
	return l, nil
}

// Config returns the current (latest) configuration.
func (l *Loader) Config() *RunConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current
}

// OnChange registers a callback invoked whenever the config reloads.
func (l *Loader) OnChange(fn func(*RunConfig)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.onChange = append(l.onChange, fn)
}

// Watch starts a background goroutine that reloads the config whenever the
// config file or one of extra (files or directories) is written or created.
// Directories are watched with all their subdirectories, including ones
// created later.
// Call the returned stop function to clean up.
func (l *Loader) Watch(extra ...string) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watcher: %w", err)
	}
	paths := extra
	if l.path != "" {
		paths = append([]string{l.path}, extra...)
	}
	for _, p := range paths {
		if err := addTree(w, p); err != nil {
			w.Close()
			return nil, fmt.Errorf("config watcher add %s: %w", p, err)
		}
	}
	l.watcher = w

	done := make(chan struct{})
	go func() {
		defer w.Close()
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Has(fsnotify.Create) {
					if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
						if err := addTree(w, ev.Name); err != nil {
							slog.Warn("config watcher add failed", "path", ev.Name, "err", err)
						}
					}
				}
				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					if _, err := l.Reload(); err != nil {
						slog.Warn("config reload failed, keeping previous config", "path", ev.Name, "err", err)
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "err", err)
			case <-done:
				return
			}
		}
	}()

	return func() { close(done) }, nil
}

// addTree watches p and, when p is a directory, every directory below it.
func addTree(w *fsnotify.Watcher, p string) error {
	fi, err := os.Stat(p)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return w.Add(p)
	}
	return filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}

// Reload forces an immediate re-read of the config file.
func (l *Loader) Reload() (*RunConfig, error) {
	cfg, err := l.load()
	if err != nil {
		return nil, err
	}
	l.mu.Lock()
	l.current = cfg
	callbacks := make([]func(*RunConfig), len(l.onChange))
	copy(callbacks, l.onChange)
	l.mu.Unlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return cfg, nil
}

func (l *Loader) load() (*RunConfig, error) {
	var cfg RunConfig
	if l.path != "" {
		data, err := os.ReadFile(l.path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", l.path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", l.path, err)
		}
	}
	ApplyDefaults(&cfg)
	for _, o := range l.overrides {
		o(&cfg)
	}
	return &cfg, nil
}

// ApplyDefaults fills zero fields. A zero quality in the file means the
// default; only an override can disable annealing.
func ApplyDefaults(cfg *RunConfig) {
	if cfg.Version == "" {
		cfg.Version = DefaultVersion
	}
	if cfg.Retime.Quality == 0 {
		cfg.Retime.Quality = DefaultQuality
	}
	if cfg.Retime.Cost == "" {
		cfg.Retime.Cost = DefaultCost
	}
	if cfg.Engine.Workers == 0 {
		cfg.Engine.Workers = DefaultWorkers
	}
	if cfg.Engine.QueueDepth == 0 {
		cfg.Engine.QueueDepth = DefaultQueueDepth
	}
}
