// Package config loads the library project file and the tool settings
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/tidwall/jsonc"

	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/utils"
)

const (
	// DefaultProjectFile is the project file looked up when none is given
	DefaultProjectFile = "ng-library.json"

	DefaultOutDir           = "dist"
	DefaultGlobalNamespace  = "ng"
	DefaultFrameworkVersion = "^5.0.0"
)

// Error reports an invalid or missing project setting
type Error struct {
	File  string
	Field string
	Msg   string
}

func (e *Error) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Msg)
}

// Unwrap classifies every config error as a configuration error
func (e *Error) Unwrap() error {
	return types.ErrConfiguration
}

type libOptions struct {
	Entry                             string            `json:"entry"`
	OutDir                            string            `json:"outDir"`
	ExportsSecondaryEntryPointsAtRoot *bool             `json:"exportsSecondaryEntryPointsAtRoot"`
	GlobalNamespace                   string            `json:"globalNamespace"`
	FrameworkVersion                  string            `json:"frameworkVersion"`
	Globals                           map[string]string `json:"globals"`
}

type projectFile struct {
	Name    string      `json:"name"`
	Version string      `json:"version"`
	Lib     *libOptions `json:"lib"`
}

// Load reads a project file and resolves it into an immutable package descriptor
func Load(path string) (*types.PackageDescriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &Error{File: path, Msg: err.Error()}
	}

	info, err := os.Stat(abs)
	if err != nil || info.IsDir() {
		return nil, &Error{File: path, Msg: "project file not found"}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, &Error{File: path, Msg: fmt.Sprintf("failed to read project file: %v", err)}
	}

	var pf projectFile
	if err := json.Unmarshal(jsonc.ToJSON(data), &pf); err != nil {
		return nil, &Error{File: path, Msg: fmt.Sprintf("failed to parse project file: %v", err)}
	}

	return resolve(abs, &pf)
}

func resolve(file string, pf *projectFile) (*types.PackageDescriptor, error) {
	basePath := filepath.Dir(file)

	if pf.Lib == nil {
		return nil, &Error{File: file, Field: "lib", Msg: "missing lib options"}
	}
	lib := pf.Lib

	namespace, name, ok := strings.Cut(pf.Name, "/")
	if !ok || namespace == "" || name == "" || strings.Contains(name, "/") {
		return nil, &Error{File: file, Field: "name", Msg: fmt.Sprintf("expected <namespace>/<name>, got %q", pf.Name)}
	}

	if lib.Entry == "" {
		return nil, &Error{File: file, Field: "lib.entry", Msg: "entry is required"}
	}
	entryPath := filepath.Join(basePath, lib.Entry)
	if info, err := os.Stat(entryPath); err != nil || info.IsDir() {
		return nil, &Error{File: file, Field: "lib.entry", Msg: fmt.Sprintf("entry file %s does not exist", entryPath)}
	}

	version := pf.Version
	if version == "" {
		version = packageJSONVersion(basePath)
	}
	if version == "" {
		return nil, &Error{File: file, Field: "version", Msg: "version is required"}
	}
	if _, err := semver.NewVersion(version); err != nil {
		return nil, &Error{File: file, Field: "version", Msg: fmt.Sprintf("invalid version %q: %v", version, err)}
	}

	framework := lib.FrameworkVersion
	if framework == "" {
		framework = DefaultFrameworkVersion
	}
	if _, err := semver.NewConstraint(framework); err != nil {
		return nil, &Error{File: file, Field: "lib.frameworkVersion", Msg: fmt.Sprintf("invalid range %q: %v", framework, err)}
	}

	outDir := filepath.Join(basePath, DefaultOutDir)
	if lib.OutDir != "" {
		outDir = filepath.Join(basePath, lib.OutDir)
	}
	if utils.IsWithin(outDir, basePath) || utils.IsWithin(outDir, filepath.Dir(entryPath)) {
		return nil, &Error{File: file, Field: "lib.outDir", Msg: "output directory must not contain the sources"}
	}

	atRoot := true
	if lib.ExportsSecondaryEntryPointsAtRoot != nil {
		atRoot = *lib.ExportsSecondaryEntryPointsAtRoot
	}

	namespaceGlobal := lib.GlobalNamespace
	if namespaceGlobal == "" {
		namespaceGlobal = DefaultGlobalNamespace
	}

	extras := make(map[string]string, len(lib.Globals))
	for id, global := range lib.Globals {
		extras[id] = global
	}

	temp := filepath.Join(outDir, "temp")
	return &types.PackageDescriptor{
		Namespace:              namespace,
		Name:                   name,
		Version:                version,
		ProjectDir:             basePath,
		SourceRoot:             filepath.Dir(entryPath),
		EntryFile:              filepath.Base(entryPath),
		OutDir:                 outDir,
		TempDir:                temp,
		PackagesTemp:           filepath.Join(temp, "packages"),
		BundlesTemp:            filepath.Join(temp, "bundles"),
		ExportsSecondaryAtRoot: atRoot,
		GlobalNamespace:        namespaceGlobal,
		FrameworkVersion:       framework,
		ExtraGlobals:           extras,
	}, nil
}

// packageJSONVersion returns the version of a package.json next to the project file, if any
func packageJSONVersion(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return ""
	}
	var pkg struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &pkg); err != nil {
		return ""
	}
	return pkg.Version
}

// IsConfigError reports whether err is a configuration error
func IsConfigError(err error) bool {
	return errors.Is(err, types.ErrConfiguration)
}
