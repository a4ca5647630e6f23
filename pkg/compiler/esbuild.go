package compiler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/zuzpack/zuz/pkg/esbuildutil"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/utils"
)

const compileTsconfig = `{"compilerOptions":{"experimentalDecorators":true,"useDefineForClassFields":false,"importHelpers":true}}`

var (
	sourceFiles  = utils.MustPatternMatcher("**/*.ts")
	ignoredFiles = utils.MustPatternMatcher("**/*.d.ts", "**/*.spec.ts")
)

// Esbuild transpiles every source module of an entry point file by file,
// keeping the directory layout of the sources
type Esbuild struct {
	log logger.Logger
}

// NewEsbuild creates the esbuild compiler backend
func NewEsbuild(log logger.Logger) *Esbuild {
	if log == nil {
		log = logger.Discard()
	}
	return &Esbuild{log: log}
}

// EmittedDialect reports ES2015 for the es5 dialect, see EsbuildTarget
func (c *Esbuild) EmittedDialect(d types.Dialect) types.Dialect {
	if d == types.DialectES5 {
		return types.DialectES2015
	}
	return d
}

// Compile implements Compiler
func (c *Esbuild) Compile(ctx context.Context, req Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ep := req.Entry

	skip := append([]string{filepath.Join(ep.SourceDir, "node_modules")}, req.Exclude...)
	files, err := utils.FindFiles(ep.SourceDir, sourceFiles, skip...)
	if err != nil {
		return err
	}

	entries := make([]string, 0, len(files))
	for _, rel := range files {
		if ignoredFiles.Match(rel) {
			continue
		}
		entries = append(entries, filepath.Join(ep.SourceDir, rel))
	}
	if len(entries) == 0 {
		return fmt.Errorf("no source modules found in %s", ep.SourceDir)
	}

	ret := api.Build(api.BuildOptions{
		EntryPoints:    entries,
		AbsWorkingDir:  ep.SourceDir,
		Outdir:         req.OutDir,
		Outbase:        ep.SourceDir,
		Bundle:         false,
		Write:          true,
		Format:         api.FormatESModule,
		Platform:       api.PlatformNeutral,
		Target:         EsbuildTarget(req.Dialect),
		Sourcemap:      api.SourceMapLinked,
		SourcesContent: api.SourcesContentInclude,
		LogLevel:       api.LogLevelSilent,
		TsconfigRaw:    compileTsconfig,
	})
	if len(ret.Errors) > 0 {
		return esbuildutil.MessagesError(ret.Errors)
	}

	entryFile, err := filepath.Rel(ep.SourceDir, ep.EntryFile)
	if err != nil {
		return err
	}
	if err := writeIndex(req.OutDir, entryFile); err != nil {
		return err
	}

	c.log.Debug("compiled entry point",
		logger.WithField("dialect", req.Dialect),
		logger.WithField("modules", len(entries)))
	return nil
}

// writeIndex writes the flat module index re-exporting the entry module
func writeIndex(outDir, entryFile string) error {
	module := strings.TrimSuffix(filepath.ToSlash(entryFile), filepath.Ext(entryFile))
	if module == "index" {
		return nil
	}
	index := filepath.Join(outDir, "index.js")
	content := fmt.Sprintf("export * from './%s';\n", module)
	if err := utils.WriteFile(index, []byte(content)); err != nil {
		return types.FilesystemError("write", index, err)
	}
	return nil
}
