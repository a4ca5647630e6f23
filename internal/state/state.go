// Package state records the progress of a build and persists it for `zuz status`
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
)

// Files below the project's state directory
const (
	FileName     = "state.json"
	LockFileName = "build.lock"
)

// EntryState is the persisted state of one entry point
type EntryState struct {
	ID        string            `json:"id"`
	Depth     int               `json:"depth"`
	Status    types.BuildStatus `json:"status"`
	Duration  time.Duration     `json:"duration,omitempty"`
	LastError string            `json:"lastError,omitempty"`
}

// BuildState is the persisted state of the last build
type BuildState struct {
	BuildID    string            `json:"buildId"`
	Package    string            `json:"package"`
	ProcessID  int               `json:"processId"`
	Status     types.BuildStatus `json:"status"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
	LastError  string            `json:"lastError,omitempty"`
	Entries    []EntryState      `json:"entries"`
}

// Tracker collects scheduling events of one build. It is safe for concurrent use.
type Tracker struct {
	path   string
	logger logger.Logger

	mu      sync.Mutex
	state   BuildState
	entries map[string]*EntryState
}

// Dir returns the state directory of a project
func Dir(projectDir string) string {
	return filepath.Join(projectDir, ".zuz")
}

// LockPath returns the path of the lock file held while a project builds
func LockPath(projectDir string) string {
	return filepath.Join(Dir(projectDir), LockFileName)
}

// NewTracker starts tracking a build of pkg
func NewTracker(pkg *types.PackageDescriptor, buildID string, log logger.Logger) *Tracker {
	if log == nil {
		log = logger.Discard()
	}
	return &Tracker{
		path:   filepath.Join(Dir(pkg.ProjectDir), FileName),
		logger: log,
		state: BuildState{
			BuildID:   buildID,
			Package:   pkg.ImportName(),
			ProcessID: os.Getpid(),
			Status:    types.BuildStatusBuilding,
			StartedAt: time.Now(),
		},
		entries: make(map[string]*EntryState),
	}
}

// WaveStarted marks the members of a wave pending
func (t *Tracker) WaveStarted(depth int, entries []*types.EntryPoint) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, ep := range entries {
		t.entries[ep.ID] = &EntryState{ID: ep.ID, Depth: depth, Status: types.BuildStatusPending}
	}
}

// EntryStarted marks an entry point building
func (t *Tracker) EntryStarted(ep *types.EntryPoint) {
	t.update(ep, func(s *EntryState) {
		s.Status = types.BuildStatusBuilding
	})
}

// EntryFinished records the outcome of an entry point
func (t *Tracker) EntryFinished(ep *types.EntryPoint, status types.BuildStatus, err error, d time.Duration) {
	t.update(ep, func(s *EntryState) {
		s.Status = status
		s.Duration = d
		if err != nil {
			s.LastError = err.Error()
		}
	})
}

func (t *Tracker) update(ep *types.EntryPoint, fn func(*EntryState)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.entries[ep.ID]
	if !ok {
		s = &EntryState{ID: ep.ID}
		t.entries[ep.ID] = s
	}
	fn(s)
}

// Finish records the outcome of the whole build
func (t *Tracker) Finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state.FinishedAt = time.Now()
	t.state.Status = types.BuildStatusSucceeded
	if err != nil {
		t.state.Status = types.BuildStatusFailed
		t.state.LastError = err.Error()
	}
}

// Snapshot returns the current state with entries ordered by depth and ID
func (t *Tracker) Snapshot() BuildState {
	t.mu.Lock()
	defer t.mu.Unlock()

	s := t.state
	s.Entries = make([]EntryState, 0, len(t.entries))
	for _, e := range t.entries {
		s.Entries = append(s.Entries, *e)
	}
	sort.Slice(s.Entries, func(i, j int) bool {
		if s.Entries[i].Depth != s.Entries[j].Depth {
			return s.Entries[i].Depth < s.Entries[j].Depth
		}
		return s.Entries[i].ID < s.Entries[j].ID
	})
	return s
}

// Save writes the snapshot atomically
func (t *Tracker) Save() error {
	data, err := json.MarshalIndent(t.Snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tempFile := t.path + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	if err := os.Rename(tempFile, t.path); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to rename state file: %w", err)
	}
	t.logger.Debug("Saved build state", logger.WithField("path", t.path))
	return nil
}

// Load reads the state of the last build of a project
func Load(projectDir string) (*BuildState, error) {
	data, err := os.ReadFile(filepath.Join(Dir(projectDir), FileName))
	if err != nil {
		return nil, err
	}
	var s BuildState
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}
	return &s, nil
}
