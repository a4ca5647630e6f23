// Package bundle assembles the four bundles of an entry point: ES2015 and
// ES5 flat ES modules, a universal module and its minified copy
package bundle

//go:generate mockgen -destination=../mocks/bundle.go -package=mocks github.com/zuzpack/zuz/pkg/bundle Bundler,Minifier,Remapper

import (
	"context"

	zctx "github.com/zuzpack/zuz/pkg/context"
	"github.com/zuzpack/zuz/pkg/globals"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
)

// Stage names, in execution order
const (
	StageFESM2015 = "fesm2015"
	StageFESM5    = "fesm5"
	StageUMD      = "umd"
	StageUMDMin   = "umd-min"
	StageRemap    = "remap"
)

// Stages lists every stage of the assembler in execution order
var Stages = []string{StageFESM2015, StageFESM5, StageUMD, StageUMDMin, StageRemap}

// Format is the module format of a bundle
type Format string

const (
	FormatESM Format = "esm"
	FormatUMD Format = "umd"
)

// Options describes one bundle
type Options struct {
	Entry   string
	Outfile string
	Format  Format
	Target  types.Dialect
	// ModuleName is the global the universal bundle registers its exports on.
	ModuleName string
	// Externals are module IDs left as imports.
	Externals []string
	// Globals maps externals to the global names a universal bundle reads.
	Globals map[string]string
	// Aliases maps module IDs to files bundled in their place.
	Aliases map[string]string
}

// Bundler writes a single-file bundle and its source map
type Bundler interface {
	Bundle(ctx context.Context, opts Options) error
}

// Minifier writes a minified copy of src to dest with a source map chained
// from the source map of src
type Minifier interface {
	Minify(ctx context.Context, src, dest string) error
}

// Remapper rewrites the source map of file so it resolves to authored sources
type Remapper interface {
	Remap(ctx context.Context, file string) error
}

// Assembler runs the bundle stages of one entry point
type Assembler struct {
	pkg       *types.PackageDescriptor
	universal types.Dialect
	globals   *globals.Map
	bundler   Bundler
	minifier  Minifier
	remapper  Remapper
	log       logger.Logger
}

// NewAssembler creates an assembler sharing one globals table across entry points
func NewAssembler(
	pkg *types.PackageDescriptor,
	g *globals.Map,
	bundler Bundler,
	minifier Minifier,
	remapper Remapper,
	log logger.Logger,
) *Assembler {
	if log == nil {
		log = logger.Discard()
	}
	return &Assembler{
		pkg:       pkg,
		universal: types.DialectES5,
		globals:   g,
		bundler:   bundler,
		minifier:  minifier,
		remapper:  remapper,
		log:       log,
	}
}

// WithUniversalDialect sets the syntax level of the es5 module bundle and the
// universal bundle. It defaults to es5 and is raised when the compiler cannot
// emit es5 syntax.
func (a *Assembler) WithUniversalDialect(d types.Dialect) *Assembler {
	a.universal = d
	return a
}

// Assemble produces the artifact set of ep from its compiled outputs. The
// stages run strictly in order and the first failure stops the entry point
// with a *types.StageError; artifacts already written stay in place.
func (a *Assembler) Assemble(ctx context.Context, ep *types.EntryPoint) (*types.ArtifactSet, error) {
	log := a.log.WithEntry(ep.ID)
	moduleName := a.pkg.ModuleName(ep.ID)
	externals := a.globals.ModuleExternals()
	universal := a.globals.UniversalExternals(ep)

	stages := []struct {
		name string
		kind error
		run  func(ctx context.Context) error
	}{
		{StageFESM2015, types.ErrBundling, func(ctx context.Context) error {
			return a.bundler.Bundle(ctx, Options{
				Entry:      ep.CompiledEntry(types.DialectES2015),
				Outfile:    ep.Bundles.ES2015,
				Format:     FormatESM,
				Target:     types.DialectES2015,
				ModuleName: moduleName,
				Externals:  externals,
			})
		}},
		{StageFESM5, types.ErrBundling, func(ctx context.Context) error {
			return a.bundler.Bundle(ctx, Options{
				Entry:      ep.CompiledEntry(types.DialectES5),
				Outfile:    ep.Bundles.ES5,
				Format:     FormatESM,
				Target:     a.universal,
				ModuleName: moduleName,
				Externals:  externals,
			})
		}},
		{StageUMD, types.ErrBundling, func(ctx context.Context) error {
			return a.bundler.Bundle(ctx, Options{
				Entry:      ep.Bundles.ES5,
				Outfile:    ep.Bundles.UMD,
				Format:     FormatUMD,
				Target:     a.universal,
				ModuleName: moduleName,
				Externals:  globals.SortedIDs(universal.Globals),
				Globals:    universal.Globals,
				Aliases:    universal.Aliases,
			})
		}},
		{StageUMDMin, types.ErrMinification, func(ctx context.Context) error {
			return a.minifier.Minify(ctx, ep.Bundles.UMD, ep.Bundles.UMDMin)
		}},
		{StageRemap, types.ErrRemap, func(ctx context.Context) error {
			for _, file := range ep.Bundles.Files() {
				if err := a.remapper.Remap(ctx, file); err != nil {
					return err
				}
			}
			return nil
		}},
	}

	for _, stage := range stages {
		stageCtx := zctx.WithStage(ctx, stage.name)
		if err := stage.run(stageCtx); err != nil {
			err = types.NewStageError(ep, stage.name, stage.kind, err)
			logger.WithContext(stageCtx, log).Error("Stage failed", logger.WithError(err))
			return nil, err
		}
		logger.WithContext(stageCtx, log).Debug("Stage completed")
	}

	artifacts := ep.Bundles
	return &artifacts, nil
}
