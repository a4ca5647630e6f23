package engine

import (
	"github.com/zuzpack/zuz/pkg/bundle"
	"github.com/zuzpack/zuz/pkg/compiler"
	"github.com/zuzpack/zuz/pkg/config"
	"github.com/zuzpack/zuz/pkg/graph"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/notifier"
	"github.com/zuzpack/zuz/pkg/sourcemap"
	"github.com/zuzpack/zuz/pkg/types"
)

// Dependencies are the replaceable collaborators of a Packager
type Dependencies struct {
	Compiler compiler.Compiler
	Scanner  graph.Scanner
	Bundler  bundle.Bundler
	Minifier bundle.Minifier
	Remapper bundle.Remapper
	Notifier *notifier.BuildNotifier
	// Observer is optional and receives scheduling events next to the
	// build state tracker
	Observer Observer
}

// DependencyFactory creates the default collaborators for the settings of a build
type DependencyFactory struct {
	pkg      *types.PackageDescriptor
	settings *config.Settings
	logger   logger.Logger
}

// NewDependencyFactory creates a new dependency factory
func NewDependencyFactory(pkg *types.PackageDescriptor, settings *config.Settings, log logger.Logger) *DependencyFactory {
	if log == nil {
		log = logger.Discard()
	}
	return &DependencyFactory{pkg: pkg, settings: settings, logger: log}
}

// CreateDefaults creates every collaborator from the settings. It fails only
// when the exec compiler's command template is invalid.
func (f *DependencyFactory) CreateDefaults() (Dependencies, error) {
	c, err := f.createCompiler()
	if err != nil {
		return Dependencies{}, err
	}
	return f.createDefaults(c), nil
}

// CreateWithOverrides creates the defaults and replaces those set in overrides.
// An overriding compiler skips parsing the configured compile command.
func (f *DependencyFactory) CreateWithOverrides(overrides Dependencies) (Dependencies, error) {
	c := overrides.Compiler
	if c == nil {
		var err error
		if c, err = f.createCompiler(); err != nil {
			return Dependencies{}, err
		}
	}
	return applyOverrides(f.createDefaults(c), overrides), nil
}

func (f *DependencyFactory) createDefaults(c compiler.Compiler) Dependencies {
	return Dependencies{
		Compiler: c,
		Scanner:  graph.NewEsbuildScanner(),
		Bundler:  bundle.NewEsbuild(f.logger),
		Minifier: bundle.NewEsbuildMinifier(f.logger).WithDialect(compiler.EmittedDialect(c, types.DialectES5)),
		Remapper: sourcemap.NewRemapper(f.logger),
		Notifier: notifier.New(notifier.Config{Enabled: f.settings.Notify}, f.logger),
	}
}

func applyOverrides(deps, overrides Dependencies) Dependencies {
	if overrides.Scanner != nil {
		deps.Scanner = overrides.Scanner
	}
	if overrides.Bundler != nil {
		deps.Bundler = overrides.Bundler
	}
	if overrides.Minifier != nil {
		deps.Minifier = overrides.Minifier
	}
	if overrides.Remapper != nil {
		deps.Remapper = overrides.Remapper
	}
	if overrides.Notifier != nil {
		deps.Notifier = overrides.Notifier
	}
	if overrides.Observer != nil {
		deps.Observer = overrides.Observer
	}
	return deps
}

func (f *DependencyFactory) createCompiler() (compiler.Compiler, error) {
	switch f.settings.Compiler {
	case config.CompilerExec:
		c, err := compiler.NewExec(f.pkg, f.settings.CompileCommand, f.logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return compiler.NewEsbuild(f.logger), nil
	}
}
