package engine

import (
	"context"
	"path/filepath"

	"github.com/zuzpack/zuz/pkg/assets"
	"github.com/zuzpack/zuz/pkg/catalog"
	"github.com/zuzpack/zuz/pkg/compiler"
	zctx "github.com/zuzpack/zuz/pkg/context"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
)

// Pipeline stage names preceding the bundle stages
const (
	StageCompile = "compile"
	StageInline  = "inline"
)

// EntryAssembler turns the compiled outputs of an entry point into bundles
type EntryAssembler interface {
	Assemble(ctx context.Context, ep *types.EntryPoint) (*types.ArtifactSet, error)
}

// Pipeline is the compile-then-bundle task run for every entry point
type Pipeline struct {
	cat       *catalog.Catalog
	compiler  compiler.Compiler
	assembler EntryAssembler
	logger    logger.Logger
}

// NewPipeline creates the per-entry pipeline
func NewPipeline(cat *catalog.Catalog, c compiler.Compiler, a EntryAssembler, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}
	return &Pipeline{cat: cat, compiler: c, assembler: a, logger: log}
}

// Build compiles ep to both dialects concurrently, inlines component
// resources into both outputs and their metadata and assembles the bundles
func (p *Pipeline) Build(ctx context.Context, ep *types.EntryPoint) error {
	log := logger.WithContext(ctx, p.logger.WithEntry(ep.ID))
	log.Info("Building entry point")

	compileCtx := zctx.WithStage(ctx, StageCompile)
	g := NewSafeGroupWithoutCancel(p.logger)
	for _, d := range types.Dialects {
		d := d
		g.Go(func() error {
			err := p.compiler.Compile(compileCtx, compiler.Request{
				Entry:   ep,
				Dialect: d,
				OutDir:  ep.CompiledDir(d),
				Exclude: p.sourceExclusions(ep),
			})
			return types.NewStageError(ep, StageCompile+"-"+string(d), types.ErrCompilation, err)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("Compilation failed", logger.WithError(err))
		return err
	}

	for _, d := range types.Dialects {
		n, err := assets.InlineResources(ep.CompiledDir(d), p.compiledExclusions(ep, d))
		if err != nil {
			return types.NewStageError(ep, StageInline, types.ErrFilesystem, err)
		}
		log.Debug("Inlined component resources", logger.WithField("dialect", d), logger.WithField("modules", n))
	}
	// typings and metadata are published from the ES2015 tree only
	if n, err := assets.InlineMetadata(ep.CompiledDir(types.DialectES2015)); err != nil {
		return types.NewStageError(ep, StageInline, types.ErrFilesystem, err)
	} else if n > 0 {
		log.Debug("Inlined metadata resources", logger.WithField("files", n))
	}

	artifacts, err := p.assembler.Assemble(ctx, ep)
	if err != nil {
		return err
	}
	log.Success("Entry point built", logger.WithField("umd", filepath.Base(artifacts.UMD)))
	return nil
}

// sourceExclusions returns the source directories of the other entry points
// nested below ep
func (p *Pipeline) sourceExclusions(ep *types.EntryPoint) []string {
	if ep.IsPrimary() {
		return p.cat.SecondaryDirs()
	}
	return nil
}

// compiledExclusions returns the compiled directories of the other entry
// points nested below the compiled directory of ep
func (p *Pipeline) compiledExclusions(ep *types.EntryPoint, d types.Dialect) []string {
	if !ep.IsPrimary() {
		return nil
	}
	dirs := make([]string, 0, len(p.cat.Secondary)+1)
	for _, s := range p.cat.Secondary {
		dirs = append(dirs, s.CompiledDir(d))
	}
	if d == types.DialectES2015 {
		dirs = append(dirs, ep.CompiledDir(types.DialectES5))
	}
	return dirs
}
