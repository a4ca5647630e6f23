package engine

import (
	"context"
	"fmt"
	"time"

	zctx "github.com/zuzpack/zuz/pkg/context"
	"github.com/zuzpack/zuz/pkg/graph"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
)

// Task builds one entry point
type Task func(ctx context.Context, ep *types.EntryPoint) error

// WaveScheduler runs the depth groups of a plan in ascending order. Members of
// a group run concurrently and the whole group finishes before the next starts.
type WaveScheduler struct {
	concurrency int
	logger      logger.Logger
	observer    Observer
	priorities  *Priorities
}

// NewWaveScheduler creates a scheduler running at most concurrency entry
// points at once; concurrency <= 0 means unbounded
func NewWaveScheduler(concurrency int, log logger.Logger, observer Observer) *WaveScheduler {
	if log == nil {
		log = logger.Discard()
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &WaveScheduler{
		concurrency: concurrency,
		logger:      log,
		observer:    observer,
	}
}

// WithPriorities makes the scheduler start the members of each wave in the
// order given by p
func (s *WaveScheduler) WithPriorities(p *Priorities) *WaveScheduler {
	s.priorities = p
	return s
}

// Run executes task for every entry point of the plan. After a failure the
// running siblings finish, nothing else starts and the first error is returned.
// ctx is checked between waves only; running tasks are never interrupted.
func (s *WaveScheduler) Run(ctx context.Context, plan *graph.Plan, task Task) error {
	for _, group := range plan.Groups {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("build interrupted before wave %d: %w", group.Depth, err)
		}
		if err := s.runWave(ctx, group, task); err != nil {
			return err
		}
	}
	return nil
}

func (s *WaveScheduler) runWave(ctx context.Context, group graph.DepthGroup, task Task) error {
	waveCtx := zctx.WithWave(ctx, group.Depth)
	ids := make([]string, len(group.Entries))
	for i, ep := range group.Entries {
		ids[i] = ep.DisplayName()
	}
	s.logger.Info(fmt.Sprintf("Wave %d: building %d entry point(s)", group.Depth, len(group.Entries)),
		logger.WithField("entries", ids))
	s.observer.WaveStarted(group.Depth, group.Entries)

	// the group context only stops members from starting after a failure
	g, failed := NewSafeGroup(ctx, s.logger)
	g.SetLimit(s.concurrency)

	entries := group.Entries
	if s.priorities != nil {
		entries = s.priorities.Order(entries)
	}
	for _, ep := range entries {
		ep := ep
		g.Go(func() error {
			if failed.Err() != nil {
				s.observer.EntryFinished(ep, types.BuildStatusPending, nil, 0)
				return ctx.Err()
			}

			entryCtx := zctx.WithEntryPoint(waveCtx, ep.ID)
			s.observer.EntryStarted(ep)
			start := time.Now()
			err := task(entryCtx, ep)
			status := types.BuildStatusSucceeded
			if err != nil {
				status = types.BuildStatusFailed
			}
			s.observer.EntryFinished(ep, status, err, time.Since(start))
			return err
		})
	}

	if err := g.Wait(); err != nil {
		s.logger.Error(fmt.Sprintf("Wave %d failed", group.Depth), logger.WithError(err))
		return err
	}
	return nil
}
