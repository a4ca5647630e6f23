package engine

import (
	"sort"
	"sync"
	"time"

	"github.com/zuzpack/zuz/internal/state"
	"github.com/zuzpack/zuz/pkg/types"
)

// Priorities orders the members of a wave by their last known build time,
// slowest first, so a bounded wave does not end on one long straggler.
// Entry points without history go first. It records durations as an Observer.
type Priorities struct {
	mu        sync.RWMutex
	durations map[string]time.Duration
}

// NewPriorities seeds build times from a previous build, which may be nil
func NewPriorities(previous *state.BuildState) *Priorities {
	p := &Priorities{durations: make(map[string]time.Duration)}
	if previous == nil {
		return p
	}
	for _, e := range previous.Entries {
		if e.Status == types.BuildStatusSucceeded {
			p.durations[e.ID] = e.Duration
		}
	}
	return p
}

// Order returns a reordered copy of entries; ties keep their input order
func (p *Priorities) Order(entries []*types.EntryPoint) []*types.EntryPoint {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ordered := append([]*types.EntryPoint(nil), entries...)
	sort.SliceStable(ordered, func(i, j int) bool {
		di, iok := p.durations[ordered[i].ID]
		dj, jok := p.durations[ordered[j].ID]
		if iok != jok {
			return !iok
		}
		return di > dj
	})
	return ordered
}

// Duration returns the last recorded build time of an entry point
func (p *Priorities) Duration(id string) (time.Duration, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	d, ok := p.durations[id]
	return d, ok
}

func (p *Priorities) WaveStarted(int, []*types.EntryPoint) {}

func (p *Priorities) EntryStarted(*types.EntryPoint) {}

// EntryFinished records the build time of a successful entry point
func (p *Priorities) EntryFinished(ep *types.EntryPoint, status types.BuildStatus, _ error, d time.Duration) {
	if status != types.BuildStatusSucceeded {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.durations[ep.ID] = d
}
