package bundle

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/zuzpack/zuz/pkg/esbuildutil"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/sourcemap"
	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/utils"
)

// Esbuild bundles with esbuild. ES module bundles keep every bare specifier
// external; universal bundles keep only the globals external and inline the
// rest.
type Esbuild struct {
	log logger.Logger
}

// NewEsbuild creates the esbuild bundler
func NewEsbuild(log logger.Logger) *Esbuild {
	if log == nil {
		log = logger.Discard()
	}
	return &Esbuild{log: log}
}

// syntaxTarget maps a dialect to the syntax level esbuild emits a bundle at.
// Input newer than the target that esbuild cannot lower fails the build.
func syntaxTarget(d types.Dialect) api.Target {
	switch d {
	case types.DialectES5:
		return api.ES5
	case types.DialectES2015:
		return api.ES2015
	default:
		return api.ESNext
	}
}

// Bundle implements Bundler
func (b *Esbuild) Bundle(ctx context.Context, opts Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	switch opts.Format {
	case FormatESM:
		return b.bundleESM(opts)
	case FormatUMD:
		return b.bundleUMD(opts)
	default:
		return fmt.Errorf("unsupported bundle format %q", opts.Format)
	}
}

func (b *Esbuild) bundleESM(opts Options) error {
	ret := api.Build(api.BuildOptions{
		EntryPoints:    []string{opts.Entry},
		AbsWorkingDir:  filepath.Dir(opts.Entry),
		Outfile:        opts.Outfile,
		Bundle:         true,
		Write:          true,
		Format:         api.FormatESModule,
		Platform:       api.PlatformNeutral,
		Target:         syntaxTarget(opts.Target),
		Sourcemap:      api.SourceMapLinked,
		SourcesContent: api.SourcesContentInclude,
		LogLevel:       api.LogLevelSilent,
		Metafile:       true,
		Plugins:        []api.Plugin{resolvePlugin(opts, true)},
	})
	if len(ret.Errors) > 0 {
		return esbuildutil.MessagesError(ret.Errors)
	}

	b.logImports(opts, ret.Metafile)
	return nil
}

func (b *Esbuild) bundleUMD(opts Options) error {
	ret := api.Build(api.BuildOptions{
		EntryPoints:    []string{opts.Entry},
		AbsWorkingDir:  filepath.Dir(opts.Entry),
		Outfile:        opts.Outfile,
		Bundle:         true,
		Write:          false,
		Format:         api.FormatCommonJS,
		Platform:       api.PlatformBrowser,
		MainFields:     []string{"module", "main"},
		Target:         syntaxTarget(opts.Target),
		Sourcemap:      api.SourceMapExternal,
		SourcesContent: api.SourcesContentInclude,
		LogLevel:       api.LogLevelSilent,
		Metafile:       true,
		Plugins:        []api.Plugin{resolvePlugin(opts, false)},
	})
	if len(ret.Errors) > 0 {
		return esbuildutil.MessagesError(ret.Errors)
	}

	var code, mapData []byte
	for _, out := range ret.OutputFiles {
		if strings.HasSuffix(out.Path, ".map") {
			mapData = out.Contents
		} else {
			code = out.Contents
		}
	}
	if code == nil || mapData == nil {
		return fmt.Errorf("esbuild produced no output for %s", opts.Entry)
	}

	meta, err := esbuildutil.ParseMetafile(ret.Metafile)
	if err != nil {
		return err
	}
	deps := meta.ExternalImports()
	for _, dep := range deps {
		if _, ok := opts.Globals[dep]; !ok {
			return fmt.Errorf("no global name for external module %q", dep)
		}
	}

	wrapper := umdWrapper{moduleName: opts.ModuleName, deps: deps, globals: opts.Globals}
	header := wrapper.header()
	base := filepath.Base(opts.Outfile)

	var out strings.Builder
	out.WriteString(header)
	out.Write(code)
	if len(code) > 0 && code[len(code)-1] != '\n' {
		out.WriteByte('\n')
	}
	out.WriteString(wrapper.footer())
	out.WriteString("//# sourceMappingURL=" + base + ".map\n")

	m, err := sourcemap.Parse(mapData)
	if err != nil {
		return err
	}
	m.ShiftLines(strings.Count(header, "\n"))
	m.File = base
	mapOut, err := m.Marshal()
	if err != nil {
		return err
	}

	if err := utils.WriteFile(opts.Outfile, []byte(out.String())); err != nil {
		return types.FilesystemError("write", opts.Outfile, err)
	}
	mapFile := types.MapFile(opts.Outfile)
	if err := utils.WriteFile(mapFile, mapOut); err != nil {
		return types.FilesystemError("write", mapFile, err)
	}

	b.log.Debug("Wrote universal bundle",
		logger.WithField("file", base),
		logger.WithField("globals", len(deps)))
	return nil
}

func (b *Esbuild) logImports(opts Options, metafile string) {
	meta, err := esbuildutil.ParseMetafile(metafile)
	if err != nil {
		return
	}
	b.log.Debug("Wrote module bundle",
		logger.WithField("file", filepath.Base(opts.Outfile)),
		logger.WithField("modules", len(meta.Inputs)),
		logger.WithField("externals", strings.Join(meta.ExternalImports(), ",")))
}

// resolvePlugin applies aliases and marks externals. With externalizeBare set
// every bare specifier is external, not only the listed ones.
func resolvePlugin(opts Options, externalizeBare bool) api.Plugin {
	externals := make(map[string]struct{}, len(opts.Externals))
	for _, id := range opts.Externals {
		externals[id] = struct{}{}
	}

	return api.Plugin{
		Name: "zuz-externals",
		Setup: func(build api.PluginBuild) {
			build.OnResolve(api.OnResolveOptions{Filter: ".*"}, func(args api.OnResolveArgs) (api.OnResolveResult, error) {
				if args.Kind == api.ResolveEntryPoint {
					return api.OnResolveResult{}, nil
				}
				if alias, ok := opts.Aliases[args.Path]; ok {
					return api.OnResolveResult{Path: alias}, nil
				}
				if _, ok := externals[args.Path]; ok {
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				}
				if externalizeBare && isBareSpecifier(args.Path) {
					return api.OnResolveResult{Path: args.Path, External: true}, nil
				}
				return api.OnResolveResult{}, nil
			})
		},
	}
}

func isBareSpecifier(path string) bool {
	return !strings.HasPrefix(path, ".") && !filepath.IsAbs(path) && !strings.HasPrefix(path, "/")
}
