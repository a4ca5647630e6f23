package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/zuzpack/zuz/internal/state"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/process"
	"github.com/zuzpack/zuz/pkg/types"
)

func (c *CLI) newBuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "build",
		Short: "Build the library once",
		Long: `Build every entry point in dependency order and compose the release
in the output directory. This is the default command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context())
		},
	}
}

func (c *CLI) newGraphCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graph",
		Short: "Print the build waves without building",
		Long:  `Discover the entry points, resolve their imports of each other and print the depth groups built as waves.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGraph(cmd.Context())
		},
	}
}

func (c *CLI) newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the project file and the entry point graph",
		Long:  `Check that the project file is valid, every entry point is found and the entry points do not import each other in a cycle.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runValidate(cmd.Context())
		},
	}
}

func (c *CLI) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective settings",
		Long:  `Print the settings after applying zuz.yaml, ZUZ_* environment variables and flags, in settings file form.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := c.settings.YAML()
			if err != nil {
				return fmt.Errorf("failed to render settings: %w", err)
			}
			_, err = c.output.Write(data)
			return err
		},
	}
}

func (c *CLI) newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the result of the last build",
		Long:  `Display the outcome of the last build and of each of its entry points.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runStatus()
		},
	}
}

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of zuz",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.output, "📦 zuz v%s\n", c.config.Version)
		},
	}
}

// Implementation functions

func (c *CLI) runBuild(ctx context.Context) error {
	pkg, err := c.loadPackage()
	if err != nil {
		return err
	}
	p, err := c.newPackager(pkg)
	if err != nil {
		return err
	}

	result, err := p.Build(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.output, "📦 %s %s: %d entry point(s) in %d wave(s), %s\n",
		pkg.ImportName(), pkg.Version, result.Plan.Size(), len(result.Plan.Groups),
		result.Duration.Round(time.Millisecond))
	return nil
}

func (c *CLI) runGraph(ctx context.Context) error {
	pkg, err := c.loadPackage()
	if err != nil {
		return err
	}
	p, err := c.newPackager(pkg)
	if err != nil {
		return err
	}
	_, plan, err := p.Plan(ctx)
	if err != nil {
		return err
	}

	console := logger.NewConsole(c.output)
	console.Heading(fmt.Sprintf("%s %s", pkg.ImportName(), pkg.Version))

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WAVE\tENTRY POINTS")
	fmt.Fprintln(w, "----\t------------")
	for _, group := range plan.Groups {
		names := make([]string, len(group.Entries))
		for i, ep := range group.Entries {
			names[i] = ep.DisplayName()
		}
		fmt.Fprintf(w, "%d\t%s\n", group.Depth, strings.Join(names, ", "))
	}
	return w.Flush()
}

func (c *CLI) runValidate(ctx context.Context) error {
	pkg, err := c.loadPackage()
	if err != nil {
		return err
	}
	p, err := c.newPackager(pkg)
	if err != nil {
		return err
	}
	cat, plan, err := p.Plan(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.output, "✓ %s is valid: %d secondary entry point(s), %d wave(s)\n",
		c.config.ProjectFile, len(cat.Secondary), len(plan.Groups))
	return nil
}

func (c *CLI) runStatus() error {
	dir, err := c.projectDir()
	if err != nil {
		return err
	}
	s, err := state.Load(dir)
	if errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintln(c.output, "No build recorded")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(c.output, "%s  %s  started %s\n", s.Package, colorStatus(s.Status), s.StartedAt.Format("2006-01-02 15:04:05"))
	if s.Status == types.BuildStatusBuilding && !process.IsRunning(s.ProcessID) {
		fmt.Fprintf(c.output, "interrupted: build process %d is gone\n", s.ProcessID)
	}
	if s.LastError != "" {
		fmt.Fprintf(c.output, "error: %s\n", s.LastError)
	}
	fmt.Fprintln(c.output)

	w := tabwriter.NewWriter(c.output, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY POINT\tWAVE\tSTATUS\tDURATION")
	fmt.Fprintln(w, "-----------\t----\t------\t--------")
	for _, e := range s.Entries {
		name := e.ID
		if name == "" {
			name = "<primary>"
		}
		duration := "-"
		if e.Duration > 0 {
			duration = e.Duration.Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", name, e.Depth, colorStatus(e.Status), duration)
	}
	return w.Flush()
}

func colorStatus(status types.BuildStatus) string {
	s := string(status)
	switch status {
	case types.BuildStatusSucceeded:
		return color.GreenString(s)
	case types.BuildStatusFailed:
		return color.RedString(s)
	case types.BuildStatusBuilding:
		return color.YellowString(s)
	default:
		return color.WhiteString(s)
	}
}
