package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/zuzpack/zuz/internal/state"
	"github.com/zuzpack/zuz/pkg/process"
	"github.com/zuzpack/zuz/pkg/types"
)

// ErrBuildFailed is returned by wait when the awaited build failed
var ErrBuildFailed = errors.New("build failed")

func (c *CLI) newWaitCmd() *cobra.Command {
	var timeout time.Duration
	var pollInterval time.Duration

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Wait for the running build to finish",
		Long: `Wait until the last recorded build is no longer running and exit with an
error if it failed. Useful next to "zuz watch" in scripts.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}
			return c.runWait(ctx, pollInterval)
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 5*time.Minute, "give up after this long (0 waits forever)")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", time.Second, "state polling interval")

	return cmd
}

func (c *CLI) runWait(ctx context.Context, pollInterval time.Duration) error {
	dir, err := c.projectDir()
	if err != nil {
		return err
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		s, err := state.Load(dir)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return err
		case s.Status == types.BuildStatusSucceeded:
			fmt.Fprintf(c.output, "✓ %s built (%s)\n", s.Package, s.BuildID)
			return nil
		case s.Status == types.BuildStatusFailed:
			return fmt.Errorf("%w: %s", ErrBuildFailed, s.LastError)
		case !process.IsRunning(s.ProcessID):
			return fmt.Errorf("%w: build process %d exited before finishing", ErrBuildFailed, s.ProcessID)
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for build: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
