package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/zuzpack/zuz/internal/engine"
	"github.com/zuzpack/zuz/pkg/config"
	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/watch"
)

func (c *CLI) newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Build, then rebuild whenever sources change",
		Long: `Build the library once and watch the source root and the project file. Each
settled batch of changes triggers one full rebuild. Failed builds are logged and watching
continues until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context())
		},
	}
}

func (c *CLI) runWatch(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	pkg, err := c.loadPackage()
	if err != nil {
		return err
	}
	p, err := c.newPackager(pkg)
	if err != nil {
		return err
	}

	w, err := watch.New(pkg.SourceRoot, []string{pkg.OutDir}, c.settings.SettlingDelay, c.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	reloader, err := config.NewReloader(c.config.ProjectFile, c.settings.SettlingDelay, c.logger)
	if err != nil {
		return err
	}
	defer reloader.Close()

	// builds never overlap; a reload swaps the packager between builds
	var mu sync.Mutex
	c.rebuild(ctx, p)
	c.printInfo(fmt.Sprintf("Watching %s", pkg.SourceRoot))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return reloader.Run(gctx, func(next *types.PackageDescriptor, err error) {
			if err != nil {
				c.printWarning(fmt.Sprintf("Keeping the previous project settings: %v", err))
				return
			}
			if next.SourceRoot != pkg.SourceRoot {
				c.printWarning("The source root moved, restart watch to follow it")
			}
			np, err := c.newPackager(next)
			if err != nil {
				c.printWarning(err.Error())
				return
			}

			mu.Lock()
			defer mu.Unlock()
			p = np
			c.printInfo(fmt.Sprintf("%s changed, rebuilding", filepath.Base(c.config.ProjectFile)))
			c.rebuild(gctx, p)
		})
	})
	g.Go(func() error {
		return w.Run(gctx, func(ctx context.Context, changed []string) {
			mu.Lock()
			defer mu.Unlock()
			c.printInfo(fmt.Sprintf("%d file(s) changed, rebuilding", len(changed)))
			c.rebuild(ctx, p)
		})
	})

	err = g.Wait()
	c.printInfo("Stopped watching")
	return err
}

// rebuild runs one build; failures are reported by the packager and do not
// stop watching
func (c *CLI) rebuild(ctx context.Context, p *engine.Packager) {
	if _, err := p.Build(ctx); err != nil && ctx.Err() == nil {
		c.printWarning("Waiting for changes to fix the build")
	}
}
