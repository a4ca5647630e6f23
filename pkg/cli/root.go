// Package cli provides the command-line interface for zuz
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zuzpack/zuz/internal/engine"
	"github.com/zuzpack/zuz/pkg/config"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
)

// CLI encapsulates the command-line interface without global state
type CLI struct {
	config   *Config
	rootCmd  *cobra.Command
	logger   logger.Logger
	settings *config.Settings
	output   io.Writer
	errorOut io.Writer
}

// NewCLI creates a new CLI instance with the given configuration
func NewCLI(cfg *Config) *CLI {
	if cfg == nil {
		cfg = NewConfig()
	}

	cli := &CLI{
		config:   cfg,
		output:   os.Stdout,
		errorOut: os.Stderr,
	}

	cli.setupCommands()
	return cli
}

// NewCLIWithOutput creates a CLI with custom output writers (for testing)
func NewCLIWithOutput(cfg *Config, output, errorOut io.Writer) *CLI {
	cli := NewCLI(cfg)
	cli.output = output
	cli.errorOut = errorOut
	cli.rootCmd.SetOut(output)
	cli.rootCmd.SetErr(errorOut)
	return cli
}

// Execute runs the CLI with the given arguments
func (c *CLI) Execute(args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.Execute()
}

// ExecuteContext runs the CLI with context support
func (c *CLI) ExecuteContext(ctx context.Context, args []string) error {
	c.rootCmd.SetArgs(args)
	return c.rootCmd.ExecuteContext(ctx)
}

func (c *CLI) setupCommands() {
	c.rootCmd = &cobra.Command{
		Use:   "zuz",
		Short: "Build multi-entry-point libraries in dependency order",
		Long: `📦 zuz - Depth-ordered packaging of multi-entry-point libraries

zuz discovers the entry points of a library, orders them by their imports of
each other and builds every depth level in parallel into ES2015, ES5 and UMD
bundles with source maps. Without a subcommand it runs a build.`,

		PersistentPreRunE: c.initializeConfig,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context())
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	c.setupFlags()

	c.rootCmd.Version = c.config.Version
	c.rootCmd.SetVersionTemplate("📦 zuz v{{.Version}}\n")

	c.rootCmd.AddCommand(c.newBuildCmd())
	c.rootCmd.AddCommand(c.newWatchCmd())
	c.rootCmd.AddCommand(c.newGraphCmd())
	c.rootCmd.AddCommand(c.newValidateCmd())
	c.rootCmd.AddCommand(c.newConfigCmd())
	c.rootCmd.AddCommand(c.newStatusCmd())
	c.rootCmd.AddCommand(c.newWaitCmd())
	c.rootCmd.AddCommand(c.newInitCmd())
	c.rootCmd.AddCommand(c.newVersionCmd())
}

func (c *CLI) setupFlags() {
	flags := c.rootCmd.PersistentFlags()

	flags.StringVarP(&c.config.ProjectFile, "project", "p", c.config.ProjectFile, "library project file")
	flags.StringVar(&c.config.SettingsFile, "config", "", "settings file (default: zuz.yaml next to the project file)")
	flags.StringVarP(&c.config.Verbosity, "verbosity", "v", "", "log level (debug, info, warn, error)")
	flags.IntVar(&c.config.Concurrency, "concurrency", 0, "entry points built at once per wave (0 = unbounded)")
	flags.StringVar(&c.config.Compiler, "compiler", "", "compiler backend (esbuild, exec)")
}

// initializeConfig resolves the settings from defaults, the settings file,
// ZUZ_* environment variables and flags, in increasing precedence
func (c *CLI) initializeConfig(cmd *cobra.Command, args []string) error {
	v := config.NewViper(filepath.Dir(c.config.ProjectFile))
	if c.config.SettingsFile != "" {
		v.SetConfigFile(c.config.SettingsFile)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if c.config.SettingsFile != "" || !errors.As(err, &notFound) {
			return &config.Error{File: c.settingsFileName(), Msg: fmt.Sprintf("failed to read settings: %v", err)}
		}
	}

	flags := cmd.Flags()
	if flags.Changed("concurrency") {
		v.Set("concurrency", c.config.Concurrency)
	}
	if flags.Changed("compiler") {
		v.Set("compiler", c.config.Compiler)
	}
	if c.config.Verbosity != "" {
		v.Set("logLevel", c.config.Verbosity)
	}

	settings, err := config.LoadSettings(v)
	if err != nil {
		return err
	}
	c.settings = settings
	c.logger = logger.CreateLoggerWithOutput(settings.LogFile, settings.LogLevel, c.errorOut)

	if used := v.ConfigFileUsed(); used != "" {
		c.logger.Debug("Using settings file", logger.WithField("file", used))
	}
	return nil
}

func (c *CLI) settingsFileName() string {
	if c.config.SettingsFile != "" {
		return c.config.SettingsFile
	}
	return config.SettingsFileName + ".yaml"
}

// projectDir returns the absolute directory of the project file
func (c *CLI) projectDir() (string, error) {
	abs, err := filepath.Abs(c.config.ProjectFile)
	if err != nil {
		return "", &config.Error{File: c.config.ProjectFile, Msg: err.Error()}
	}
	return filepath.Dir(abs), nil
}

func (c *CLI) loadPackage() (*types.PackageDescriptor, error) {
	return config.Load(c.config.ProjectFile)
}

func (c *CLI) newPackager(pkg *types.PackageDescriptor) (*engine.Packager, error) {
	deps, err := engine.NewDependencyFactory(pkg, c.settings, c.logger).CreateDefaults()
	if err != nil {
		return nil, err
	}
	return engine.NewPackager(pkg, c.settings, c.logger, deps), nil
}

// Helper methods for structured output

func (c *CLI) printSuccess(message string) {
	c.logger.Success(message)
}

func (c *CLI) printInfo(message string) {
	c.logger.Info(message)
}

func (c *CLI) printWarning(message string) {
	c.logger.Warn(message)
}

// ExecuteWithVersion runs the CLI on the process arguments
func ExecuteWithVersion(ctx context.Context, version string) error {
	cfg := NewConfig()
	cfg.Version = version
	return NewCLI(cfg).ExecuteContext(ctx, os.Args[1:])
}
