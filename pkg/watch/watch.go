// Package watch triggers rebuilds when the library sources change
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/utils"
)

// DefaultSettlingDelay is used when no delay is configured
const DefaultSettlingDelay = 300 * time.Millisecond

// hiddenPaths excludes dot files and dot directories at any depth
var hiddenPaths = []string{"**/.*", "**/.*/**"}

// ChangeFunc handles one settled batch of changed paths
type ChangeFunc func(ctx context.Context, changed []string)

// Watcher watches a source tree recursively with fsnotify
type Watcher struct {
	root       string
	skip       []string
	exclusions *utils.ExclusionMatcher
	settling   time.Duration
	watcher    *fsnotify.Watcher
	logger     logger.Logger
}

// New creates a watcher for root. Directories in skip and the default
// exclusions are never watched.
func New(root string, skip []string, settling time.Duration, log logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Discard()
	}
	if settling <= 0 {
		settling = DefaultSettlingDelay
	}

	exclusions, err := utils.NewExclusionMatcher(append(utils.GetDefaultExclusions(), hiddenPaths...))
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		root:       root,
		skip:       skip,
		exclusions: exclusions,
		settling:   settling,
		watcher:    fw,
		logger:     log,
	}
	if err := w.addDirectory(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", root, err)
	}
	return w, nil
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// Run calls fn once per settled batch of changes until ctx is done. Batches
// never overlap; changes made while fn runs form the next batch.
func (w *Watcher) Run(ctx context.Context, fn ChangeFunc) error {
	defer w.watcher.Close()

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.settling)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if w.isExcluded(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addDirectory(event.Name); err != nil {
						w.logger.Warn("Failed to watch directory", logger.WithField("path", event.Name), logger.WithError(err))
					}
				}
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.settling)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for path := range pending {
				changed = append(changed, path)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})

			w.logger.Debug("Changes settled", logger.WithField("files", len(changed)))
			fn(ctx, changed)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", logger.WithError(err))
		}
	}
}

// addDirectory watches dir and every non-excluded sub-directory
func (w *Watcher) addDirectory(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.isExcluded(path) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		w.logger.Debug("Watching directory", logger.WithField("path", path))
		return nil
	})
}

func (w *Watcher) isExcluded(path string) bool {
	if utils.IsWithinAny(w.skip, path) {
		return true
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		return false
	}
	return rel != "." && w.exclusions.IsExcluded(rel)
}
