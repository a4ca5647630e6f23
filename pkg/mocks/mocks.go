// Package mocks provides test doubles for the build engine. The gomock files
// next to this one are generated; the types here are written by hand.
package mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zuzpack/zuz/pkg/types"
)

// MockScanner is a hand-written graph.Scanner returning fixed imports per entry point
type MockScanner struct {
	mu      sync.Mutex
	imports map[string][]string
	errors  map[string]error
	scanned []string
}

// NewMockScanner creates a scanner returning imports keyed by entry point ID
func NewMockScanner(imports map[string][]string) *MockScanner {
	if imports == nil {
		imports = make(map[string][]string)
	}
	return &MockScanner{imports: imports, errors: make(map[string]error)}
}

// SetError makes scanning the entry point fail
func (m *MockScanner) SetError(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[id] = err
}

// Scan implements graph.Scanner
func (m *MockScanner) Scan(ctx context.Context, ep *types.EntryPoint, _ []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanned = append(m.scanned, ep.ID)
	if err := m.errors[ep.ID]; err != nil {
		return nil, err
	}
	return append([]string(nil), m.imports[ep.ID]...), nil
}

// Scanned returns the IDs scanned so far, in call order
func (m *MockScanner) Scanned() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.scanned...)
}

// ObserverEvent is one callback received by MockObserver
type ObserverEvent struct {
	Kind   string
	Depth  int
	Entry  string
	Status types.BuildStatus
	Err    error
}

func (e ObserverEvent) String() string {
	switch e.Kind {
	case "wave":
		return fmt.Sprintf("wave %d", e.Depth)
	case "finished":
		return fmt.Sprintf("finished %s %s", e.Entry, e.Status)
	default:
		return e.Kind + " " + e.Entry
	}
}

// MockObserver records scheduling callbacks
type MockObserver struct {
	mu     sync.Mutex
	events []ObserverEvent
}

// NewMockObserver creates an empty recorder
func NewMockObserver() *MockObserver {
	return &MockObserver{}
}

func (m *MockObserver) record(e ObserverEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

// WaveStarted implements engine.Observer
func (m *MockObserver) WaveStarted(depth int, _ []*types.EntryPoint) {
	m.record(ObserverEvent{Kind: "wave", Depth: depth})
}

// EntryStarted implements engine.Observer
func (m *MockObserver) EntryStarted(ep *types.EntryPoint) {
	m.record(ObserverEvent{Kind: "started", Entry: ep.ID})
}

// EntryFinished implements engine.Observer
func (m *MockObserver) EntryFinished(ep *types.EntryPoint, status types.BuildStatus, err error, _ time.Duration) {
	m.record(ObserverEvent{Kind: "finished", Entry: ep.ID, Status: status, Err: err})
}

// Events returns a copy of the recorded callbacks
func (m *MockObserver) Events() []ObserverEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ObserverEvent(nil), m.events...)
}

// Finished returns the final status of every entry point that finished
func (m *MockObserver) Finished() map[string]types.BuildStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]types.BuildStatus)
	for _, e := range m.events {
		if e.Kind == "finished" {
			out[e.Entry] = e.Status
		}
	}
	return out
}
