package graph

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/zuzpack/zuz/pkg/esbuildutil"
	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/utils"
)

// scanTsconfig keeps imports that are only used as values from being elided,
// so every runtime import reaches the resolver. "import type" is still dropped.
const scanTsconfig = `{"compilerOptions":{"experimentalDecorators":true,"verbatimModuleSyntax":true}}`

// EsbuildScanner collects import specifiers with the esbuild parser. It walks
// the module graph of an entry point through a resolver plugin and records
// every bare specifier without loading it.
type EsbuildScanner struct{}

// NewEsbuildScanner creates an import scanner backed by esbuild
func NewEsbuildScanner() *EsbuildScanner {
	return &EsbuildScanner{}
}

// Scan returns the sorted, de-duplicated bare specifiers imported by the
// entry point's modules. Import statements, re-exports, dynamic import()
// and require() calls are all included.
func (s *EsbuildScanner) Scan(ctx context.Context, ep *types.EntryPoint, exclude []string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var mu sync.Mutex
	seen := make(map[string]struct{})

	onResolve := func(args api.OnResolveArgs) (api.OnResolveResult, error) {
		if args.Kind == api.ResolveEntryPoint {
			return api.OnResolveResult{}, nil
		}

		if isRelativeSpecifier(args.Path) {
			target := filepath.Join(args.ResolveDir, args.Path)
			if !utils.IsWithin(ep.SourceDir, target) || utils.IsWithinAny(exclude, target) {
				return api.OnResolveResult{Path: args.Path, External: true}, nil
			}
			return api.OnResolveResult{}, nil
		}

		if filepath.IsAbs(args.Path) {
			return api.OnResolveResult{Path: args.Path, External: true}, nil
		}

		mu.Lock()
		seen[args.Path] = struct{}{}
		mu.Unlock()
		return api.OnResolveResult{Path: args.Path, External: true}, nil
	}

	ret := api.Build(api.BuildOptions{
		EntryPoints:   []string{ep.EntryFile},
		AbsWorkingDir: ep.SourceDir,
		Bundle:        true,
		Write:         false,
		Format:        api.FormatESModule,
		Platform:      api.PlatformNeutral,
		Target:        api.ESNext,
		LogLevel:      api.LogLevelSilent,
		TsconfigRaw:   scanTsconfig,
		Loader: map[string]api.Loader{
			".html": api.LoaderText,
			".css":  api.LoaderText,
		},
		Plugins: []api.Plugin{
			{
				Name: "zuz-import-scanner",
				Setup: func(build api.PluginBuild) {
					build.OnResolve(api.OnResolveOptions{Filter: ".*"}, onResolve)
				},
			},
		},
	})
	if len(ret.Errors) > 0 {
		return nil, esbuildutil.MessagesError(ret.Errors)
	}

	specs := make([]string, 0, len(seen))
	for spec := range seen {
		specs = append(specs, spec)
	}
	sort.Strings(specs)
	return specs, nil
}

func isRelativeSpecifier(path string) bool {
	return path == "." || path == ".." || strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../")
}
