package engine_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/zuzpack/zuz/internal/engine"
	"github.com/zuzpack/zuz/internal/state"
	"github.com/zuzpack/zuz/pkg/graph"
	"github.com/zuzpack/zuz/pkg/mocks"
	"github.com/zuzpack/zuz/pkg/types"
)

func newDescriptor(t *testing.T) *types.PackageDescriptor {
	t.Helper()
	root := t.TempDir()
	temp := filepath.Join(root, "dist", "temp")
	return &types.PackageDescriptor{
		Namespace:        "@zuz",
		Name:             "lib",
		Version:          "1.0.0",
		ProjectDir:       root,
		SourceRoot:       filepath.Join(root, "src"),
		EntryFile:        "public_api.ts",
		OutDir:           filepath.Join(root, "dist"),
		TempDir:          temp,
		PackagesTemp:     filepath.Join(temp, "packages"),
		BundlesTemp:      filepath.Join(temp, "bundles"),
		GlobalNamespace:  "ng",
		FrameworkVersion: "^5.0.0",
	}
}

// newPlan builds a plan from waves of secondary IDs followed by the primary
func newPlan(t *testing.T, waves ...[]string) *graph.Plan {
	t.Helper()
	pkg := newDescriptor(t)
	plan := &graph.Plan{}
	for depth, ids := range waves {
		group := graph.DepthGroup{Depth: depth}
		for _, id := range ids {
			group.Entries = append(group.Entries, types.NewEntryPoint(pkg, id, "public_api.ts"))
		}
		plan.Groups = append(plan.Groups, group)
	}
	plan.Groups = append(plan.Groups, graph.DepthGroup{
		Depth:   len(waves),
		Entries: []*types.EntryPoint{types.NewEntryPoint(pkg, "", "public_api.ts")},
	})
	return plan
}

type taskLog struct {
	mu     sync.Mutex
	events []string
}

func (l *taskLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, fmt.Sprintf(format, args...))
}

func (l *taskLog) index(event string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.events {
		if e == event {
			return i
		}
	}
	return -1
}

func TestWaveScheduler_WavesRunInOrder(t *testing.T) {
	plan := newPlan(t, []string{"a", "b", "c"}, []string{"d"})
	var log taskLog

	s := engine.NewWaveScheduler(0, nil, nil)
	err := s.Run(context.Background(), plan, func(ctx context.Context, ep *types.EntryPoint) error {
		log.add("start %s", ep.DisplayName())
		time.Sleep(10 * time.Millisecond)
		log.add("end %s", ep.DisplayName())
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, first := range []string{"a", "b", "c"} {
		if log.index("end "+first) > log.index("start d") {
			t.Errorf("%s finished after d started: %v", first, log.events)
		}
	}
	if log.index("end d") > log.index("start <primary>") {
		t.Errorf("primary started before its dependencies finished: %v", log.events)
	}
	if len(log.events) != 10 {
		t.Errorf("expected 10 events, got %v", log.events)
	}
}

func TestWaveScheduler_ConcurrencyBound(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		want        int32
	}{
		{"bounded", 2, 2},
		{"serial", 1, 1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			plan := newPlan(t, []string{"a", "b", "c", "d", "e", "f"})
			var active, peak atomic.Int32

			s := engine.NewWaveScheduler(tt.concurrency, nil, nil)
			err := s.Run(context.Background(), plan, func(ctx context.Context, ep *types.EntryPoint) error {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				active.Add(-1)
				return nil
			})
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}
			if got := peak.Load(); got > tt.want {
				t.Errorf("expected at most %d concurrent tasks, got %d", tt.want, got)
			}
		})
	}
}

func TestWaveScheduler_Unbounded(t *testing.T) {
	plan := newPlan(t, []string{"a", "b", "c", "d"})
	var started sync.WaitGroup
	started.Add(4)
	all := make(chan struct{})
	go func() {
		started.Wait()
		close(all)
	}()

	s := engine.NewWaveScheduler(0, nil, nil)
	err := s.Run(context.Background(), plan, func(ctx context.Context, ep *types.EntryPoint) error {
		if ep.IsPrimary() {
			return nil
		}
		started.Done()
		select {
		case <-all:
			return nil
		case <-time.After(5 * time.Second):
			return errors.New("wave members did not run concurrently")
		}
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestWaveScheduler_FailureStopsLaterWaves(t *testing.T) {
	plan := newPlan(t, []string{"a", "b"}, []string{"c"})
	errBoom := errors.New("boom")
	observer := mocks.NewMockObserver()
	var calls []string
	var mu sync.Mutex

	s := engine.NewWaveScheduler(1, nil, observer)
	err := s.Run(context.Background(), plan, func(ctx context.Context, ep *types.EntryPoint) error {
		mu.Lock()
		calls = append(calls, ep.DisplayName())
		mu.Unlock()
		if ep.ID == "a" {
			return errBoom
		}
		return nil
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if diff := cmp.Diff([]string{"a"}, calls); diff != "" {
		t.Errorf("unexpected task calls (-want +got):\n%s", diff)
	}
	want := map[string]types.BuildStatus{
		"a": types.BuildStatusFailed,
		"b": types.BuildStatusPending,
	}
	if diff := cmp.Diff(want, observer.Finished()); diff != "" {
		t.Errorf("unexpected outcomes (-want +got):\n%s", diff)
	}
	for _, e := range observer.Events() {
		if e.Kind == "wave" && e.Depth > 0 {
			t.Errorf("wave %d started after a failure", e.Depth)
		}
	}
}

func TestWaveScheduler_RunningSiblingsFinish(t *testing.T) {
	plan := newPlan(t, []string{"a", "b"})
	errBoom := errors.New("boom")
	started := make(chan struct{})
	var finished atomic.Bool

	s := engine.NewWaveScheduler(0, nil, nil)
	err := s.Run(context.Background(), plan, func(ctx context.Context, ep *types.EntryPoint) error {
		switch ep.ID {
		case "a":
			close(started)
			time.Sleep(50 * time.Millisecond)
			finished.Store(ctx.Err() == nil)
			return nil
		case "b":
			<-started
			return errBoom
		}
		return nil
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if !finished.Load() {
		t.Error("running sibling was interrupted")
	}
}

func TestWaveScheduler_CanceledBetweenWaves(t *testing.T) {
	plan := newPlan(t, []string{"a"})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var primaryRan atomic.Bool
	s := engine.NewWaveScheduler(0, nil, nil)
	err := s.Run(ctx, plan, func(ctx context.Context, ep *types.EntryPoint) error {
		if ep.IsPrimary() {
			primaryRan.Store(true)
			return nil
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if !strings.Contains(err.Error(), "before wave 1") {
		t.Errorf("expected wave in error, got %v", err)
	}
	if primaryRan.Load() {
		t.Error("primary ran after cancellation")
	}
}

func TestWaveScheduler_PanicFailsWave(t *testing.T) {
	plan := newPlan(t)
	s := engine.NewWaveScheduler(0, nil, nil)
	err := s.Run(context.Background(), plan, func(ctx context.Context, ep *types.EntryPoint) error {
		panic("kaboom")
	})
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Errorf("expected recovered panic, got %v", err)
	}
}

func TestWaveScheduler_Priorities(t *testing.T) {
	plan := newPlan(t, []string{"a", "b", "c", "d"})
	previous := &state.BuildState{Entries: []state.EntryState{
		{ID: "a", Status: types.BuildStatusSucceeded, Duration: time.Second},
		{ID: "b", Status: types.BuildStatusSucceeded, Duration: 3 * time.Second},
		{ID: "c", Status: types.BuildStatusSucceeded, Duration: 2 * time.Second},
	}}

	var mu sync.Mutex
	var order []string
	s := engine.NewWaveScheduler(1, nil, nil).WithPriorities(engine.NewPriorities(previous))
	err := s.Run(context.Background(), plan, func(ctx context.Context, ep *types.EntryPoint) error {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, ep.DisplayName())
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"d", "b", "c", "a", "<primary>"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("unexpected start order (-want +got):\n%s", diff)
	}
}

func TestWaveScheduler_ObserverSeesEveryEntry(t *testing.T) {
	plan := newPlan(t, []string{"a", "b"}, []string{"c"})
	observer := mocks.NewMockObserver()

	s := engine.NewWaveScheduler(2, nil, observer)
	if err := s.Run(context.Background(), plan, func(context.Context, *types.EntryPoint) error { return nil }); err != nil {
		t.Fatal(err)
	}

	want := map[string]types.BuildStatus{
		"a": types.BuildStatusSucceeded,
		"b": types.BuildStatusSucceeded,
		"c": types.BuildStatusSucceeded,
		"":  types.BuildStatusSucceeded,
	}
	if diff := cmp.Diff(want, observer.Finished()); diff != "" {
		t.Errorf("unexpected outcomes (-want +got):\n%s", diff)
	}
	waves := 0
	for _, e := range observer.Events() {
		if e.Kind == "wave" {
			waves++
		}
	}
	if waves != 3 {
		t.Errorf("expected 3 waves, got %d", waves)
	}
}
