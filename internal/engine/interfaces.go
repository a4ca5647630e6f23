package engine

import (
	"time"

	"github.com/zuzpack/zuz/pkg/types"
)

// Observer is told about scheduling progress. Entry callbacks of one wave
// arrive from concurrent goroutines.
type Observer interface {
	WaveStarted(depth int, entries []*types.EntryPoint)
	EntryStarted(ep *types.EntryPoint)
	// EntryFinished reports BuildStatusPending for members skipped after a
	// sibling failed
	EntryFinished(ep *types.EntryPoint, status types.BuildStatus, err error, duration time.Duration)
}

type nopObserver struct{}

func (nopObserver) WaveStarted(int, []*types.EntryPoint) {}
func (nopObserver) EntryStarted(*types.EntryPoint)       {}
func (nopObserver) EntryFinished(*types.EntryPoint, types.BuildStatus, error, time.Duration) {
}

// Observers fans callbacks out to several observers
type Observers []Observer

func (o Observers) WaveStarted(depth int, entries []*types.EntryPoint) {
	for _, obs := range o {
		obs.WaveStarted(depth, entries)
	}
}

func (o Observers) EntryStarted(ep *types.EntryPoint) {
	for _, obs := range o {
		obs.EntryStarted(ep)
	}
}

func (o Observers) EntryFinished(ep *types.EntryPoint, status types.BuildStatus, err error, d time.Duration) {
	for _, obs := range o {
		obs.EntryFinished(ep, status, err, d)
	}
}
