package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/zuzpack/zuz/internal/state"
	"github.com/zuzpack/zuz/pkg/assets"
	"github.com/zuzpack/zuz/pkg/bundle"
	"github.com/zuzpack/zuz/pkg/catalog"
	"github.com/zuzpack/zuz/pkg/compiler"
	"github.com/zuzpack/zuz/pkg/config"
	zctx "github.com/zuzpack/zuz/pkg/context"
	"github.com/zuzpack/zuz/pkg/globals"
	"github.com/zuzpack/zuz/pkg/graph"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/process"
	"github.com/zuzpack/zuz/pkg/release"
	"github.com/zuzpack/zuz/pkg/types"
)

// Result summarizes a successful build
type Result struct {
	BuildID  string
	Catalog  *catalog.Catalog
	Plan     *graph.Plan
	Duration time.Duration
}

// Packager builds one package from its sources into the release layout
type Packager struct {
	pkg      *types.PackageDescriptor
	settings *config.Settings
	deps     Dependencies
	logger   logger.Logger

	priorities *Priorities
}

// NewPackager creates a packager. Every dependency except Notifier and
// Observer is required.
func NewPackager(pkg *types.PackageDescriptor, settings *config.Settings, log logger.Logger, deps Dependencies) *Packager {
	if deps.Compiler == nil {
		panic("Compiler dependency is required")
	}
	if deps.Scanner == nil {
		panic("Scanner dependency is required")
	}
	if deps.Bundler == nil || deps.Minifier == nil || deps.Remapper == nil {
		panic("Bundler, Minifier and Remapper dependencies are required")
	}
	if log == nil {
		log = logger.Discard()
	}
	previous, err := state.Load(pkg.ProjectDir)
	if err != nil {
		previous = nil
	}
	return &Packager{
		pkg:        pkg,
		settings:   settings,
		deps:       deps,
		logger:     log,
		priorities: NewPriorities(previous),
	}
}

// Plan discovers the entry points and levels them into waves without building
func (p *Packager) Plan(ctx context.Context) (*catalog.Catalog, *graph.Plan, error) {
	cat, err := catalog.Discover(p.pkg)
	if err != nil {
		return nil, nil, err
	}
	g, err := graph.Build(ctx, cat, p.deps.Scanner, p.logger)
	if err != nil {
		return nil, nil, err
	}
	plan, err := graph.Level(cat, g)
	if err != nil {
		return nil, nil, err
	}
	return cat, plan, nil
}

// Build runs a complete build. The release is composed only after every wave
// succeeded; a failed build leaves the staging directory in place.
func (p *Packager) Build(ctx context.Context) (result *Result, err error) {
	ctx = zctx.EnrichContext(ctx)
	buildID := zctx.GetBuildID(ctx)
	log := logger.WithContext(ctx, p.logger)
	start := time.Now()

	lock, err := process.Acquire(state.LockPath(p.pkg.ProjectDir))
	if err != nil {
		return nil, fmt.Errorf("cannot build %s: %w", p.pkg.ImportName(), err)
	}
	defer func() {
		if err := lock.Release(); err != nil {
			p.logger.Warn("Failed to release build lock", logger.WithError(err))
		}
	}()

	tracker := state.NewTracker(p.pkg, buildID, p.logger)
	if err := tracker.Save(); err != nil {
		p.logger.Warn("Failed to save build state", logger.WithError(err))
	}
	defer func() {
		p.finish(tracker, result, err, time.Since(start))
	}()

	log.Info(fmt.Sprintf("Building %s %s", p.pkg.ImportName(), p.pkg.Version))

	if p.settings.Clean {
		if err := os.RemoveAll(p.pkg.OutDir); err != nil {
			return nil, types.FilesystemError("remove", p.pkg.OutDir, err)
		}
	}

	cat, plan, err := p.Plan(ctx)
	if err != nil {
		return nil, err
	}
	log.Info(fmt.Sprintf("Planned %d entry point(s) in %d wave(s)", plan.Size(), len(plan.Groups)))

	if err := assets.Prepare(ctx, p.pkg, p.logger); err != nil {
		return nil, err
	}

	assembler := bundle.NewAssembler(p.pkg, globals.Resolve(p.pkg, cat),
		p.deps.Bundler, p.deps.Minifier, p.deps.Remapper, p.logger).
		WithUniversalDialect(compiler.EmittedDialect(p.deps.Compiler, types.DialectES5))
	pipeline := NewPipeline(cat, p.deps.Compiler, assembler, p.logger)

	observers := Observers{tracker, p.priorities}
	if p.deps.Observer != nil {
		observers = append(observers, p.deps.Observer)
	}
	scheduler := NewWaveScheduler(p.settings.Concurrency, p.logger, observers).WithPriorities(p.priorities)
	if err := scheduler.Run(ctx, plan, pipeline.Build); err != nil {
		return nil, err
	}

	if err := release.Compose(ctx, p.pkg, cat, p.logger); err != nil {
		return nil, err
	}

	if !p.settings.KeepTemp {
		if err := os.RemoveAll(p.pkg.TempDir); err != nil {
			return nil, types.FilesystemError("remove", p.pkg.TempDir, err)
		}
	}

	return &Result{
		BuildID:  buildID,
		Catalog:  cat,
		Plan:     plan,
		Duration: time.Since(start),
	}, nil
}

func (p *Packager) finish(tracker *state.Tracker, result *Result, err error, d time.Duration) {
	tracker.Finish(err)
	if saveErr := tracker.Save(); saveErr != nil {
		p.logger.Warn("Failed to save build state", logger.WithError(saveErr))
	}

	if err != nil {
		p.logger.Error("Build failed", logger.WithError(err))
		if p.deps.Notifier != nil {
			p.deps.Notifier.NotifyBuildFailure(p.pkg.ImportName(), err)
		}
		return
	}

	p.logger.Success(fmt.Sprintf("Built %s in %s", p.pkg.ImportName(), d.Round(time.Millisecond)))
	if p.deps.Notifier != nil {
		p.deps.Notifier.NotifyBuildSuccess(p.pkg.ImportName(), result.Plan.Size(), d)
	}
}
