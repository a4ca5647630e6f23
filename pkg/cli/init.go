package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/jsonc"

	"github.com/zuzpack/zuz/pkg/config"
	"github.com/zuzpack/zuz/pkg/utils"
)

// entryCandidates are looked up, in order, when init detects the primary entry file
var entryCandidates = []string{
	"src/public_api.ts",
	"src/index.ts",
	"public_api.ts",
	"index.ts",
}

type initProject struct {
	Name    string  `json:"name"`
	Version string  `json:"version,omitempty"`
	Lib     initLib `json:"lib"`
}

type initLib struct {
	Entry  string `json:"entry"`
	OutDir string `json:"outDir"`
}

func (c *CLI) newInitCmd() *cobra.Command {
	var name string
	var entry string
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a project file and default settings",
		Long: `Create the library project file and a zuz.yaml with the default settings.
The package name and version are taken from package.json when present and the
entry file is detected from common locations.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runInit(name, entry, force)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "package name as <namespace>/<name>")
	cmd.Flags().StringVar(&entry, "entry", "", "primary entry file relative to the project file")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite existing files")

	return cmd
}

func (c *CLI) runInit(name, entry string, force bool) error {
	dir, err := c.projectDir()
	if err != nil {
		return err
	}
	projectPath := filepath.Join(dir, filepath.Base(c.config.ProjectFile))
	if utils.FileExists(projectPath) && !force {
		return &config.Error{File: projectPath, Msg: "project file already exists, use --force to overwrite"}
	}

	pkgName, version := readPackageJSON(dir)
	if name == "" {
		name = pkgName
	}
	if !strings.HasPrefix(name, "@") || !strings.Contains(name, "/") {
		return &config.Error{File: projectPath, Field: "name", Msg: "pass --name <namespace>/<name>"}
	}

	if entry == "" {
		entry = detectEntry(dir)
	}
	if entry == "" {
		return &config.Error{File: projectPath, Field: "lib.entry", Msg: "no entry file found, pass --entry"}
	}

	project := initProject{
		Name:    name,
		Version: version,
		Lib:     initLib{Entry: filepath.ToSlash(entry), OutDir: config.DefaultOutDir},
	}
	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project file: %w", err)
	}
	if err := os.WriteFile(projectPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write project file: %w", err)
	}
	c.printSuccess(fmt.Sprintf("Created %s", projectPath))

	settingsPath := filepath.Join(dir, config.SettingsFileName+".yaml")
	if utils.FileExists(settingsPath) && !force {
		c.printInfo(fmt.Sprintf("Keeping existing %s", settingsPath))
		return nil
	}
	settings, err := config.LoadSettings(config.NewViper(dir))
	if err != nil {
		return err
	}
	yaml, err := settings.YAML()
	if err != nil {
		return fmt.Errorf("failed to render settings: %w", err)
	}
	if err := os.WriteFile(settingsPath, yaml, 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	c.printSuccess(fmt.Sprintf("Created %s", settingsPath))
	return nil
}

func detectEntry(dir string) string {
	for _, candidate := range entryCandidates {
		if utils.FileExists(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
	return ""
}

func readPackageJSON(dir string) (name, version string) {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return "", ""
	}
	var pkg struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &pkg); err != nil {
		return "", ""
	}
	return pkg.Name, pkg.Version
}
