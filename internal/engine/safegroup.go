package engine

import (
	"context"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/zuzpack/zuz/pkg/logger"
)

// SafeGroup wraps errgroup.Group with panic recovery, so a panicking
// pipeline fails its wave instead of the whole process
type SafeGroup struct {
	group  *errgroup.Group
	logger logger.Logger
}

// NewSafeGroup creates a SafeGroup whose context is canceled on the first error
func NewSafeGroup(ctx context.Context, log logger.Logger) (*SafeGroup, context.Context) {
	g, ctx := errgroup.WithContext(ctx)
	return &SafeGroup{group: g, logger: log}, ctx
}

// NewSafeGroupWithoutCancel creates a SafeGroup whose members keep running
// after a sibling failed
func NewSafeGroupWithoutCancel(log logger.Logger) *SafeGroup {
	return &SafeGroup{group: &errgroup.Group{}, logger: log}
}

// Go runs fn in a new goroutine. A panic is converted to an error and logged
// with its stack trace.
func (sg *SafeGroup) Go(fn func() error) {
	sg.group.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				sg.logger.Error("Goroutine panic recovered",
					logger.WithField("panic", r),
					logger.WithField("stack_trace", string(debug.Stack())))
				err = fmt.Errorf("goroutine panic: %v", r)
			}
		}()
		return fn()
	})
}

// SetLimit bounds the number of concurrent goroutines; n <= 0 removes the bound
func (sg *SafeGroup) SetLimit(n int) {
	if n <= 0 {
		n = -1
	}
	sg.group.SetLimit(n)
}

// Wait blocks until every goroutine returned and yields the first error
func (sg *SafeGroup) Wait() error {
	return sg.group.Wait()
}
