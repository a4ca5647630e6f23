package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
)

// ReloadFunc receives the reloaded package descriptor, or the error that kept
// the project file from loading
type ReloadFunc func(pkg *types.PackageDescriptor, err error)

// Reloader watches a project file and reloads it after it changed
type Reloader struct {
	projectFile string
	debounce    time.Duration
	watcher     *fsnotify.Watcher
	logger      logger.Logger
}

// NewReloader watches the directory holding projectFile. Bursts of events
// within debounce trigger a single reload.
func NewReloader(projectFile string, debounce time.Duration, log logger.Logger) (*Reloader, error) {
	if log == nil {
		log = logger.Discard()
	}
	abs, err := filepath.Abs(projectFile)
	if err != nil {
		return nil, &Error{File: projectFile, Msg: err.Error()}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	// editors replace files by renaming, so the directory is watched
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch project directory: %w", err)
	}

	return &Reloader{
		projectFile: abs,
		debounce:    debounce,
		watcher:     watcher,
		logger:      log,
	}, nil
}

// Close stops watching
func (r *Reloader) Close() error {
	return r.watcher.Close()
}

// Run calls fn from the calling goroutine after every settled change of the
// project file until ctx is done
func (r *Reloader) Run(ctx context.Context, fn ReloadFunc) error {
	var settled <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != r.projectFile || event.Op == fsnotify.Chmod {
				continue
			}
			r.logger.Debug("Project file event", logger.WithField("event", event.String()))
			settled = time.After(r.debounce)

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.logger.Error("Project file watcher error", logger.WithError(err))

		case <-settled:
			settled = nil
			pkg, err := Load(r.projectFile)
			if err != nil {
				r.logger.Warn("Failed to reload project file", logger.WithError(err))
			} else {
				r.logger.Info("Project file reloaded", logger.WithField("package", pkg.ImportName()))
			}
			fn(pkg, err)
		}
	}
}
