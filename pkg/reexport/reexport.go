// Package reexport writes the stub typings, metadata and package files that
// redirect module resolution from the release root to the real artifacts
package reexport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/zuzpack/zuz/pkg/catalog"
	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/utils"
)

// typingFiles are copied from the compiled output into each secondary entry point
var typingFiles = utils.MustPatternMatcher("**/*.d.ts", "**/*.metadata.json")

type metadataExport struct {
	From string `json:"from"`
}

// Metadata is a metadata file that only re-exports other modules
type Metadata struct {
	Symbolic                string           `json:"__symbolic"`
	Version                 int              `json:"version"`
	Metadata                map[string]any   `json:"metadata"`
	Exports                 []metadataExport `json:"exports"`
	FlatModuleIndexRedirect bool             `json:"flatModuleIndexRedirect"`
	ImportAs                string           `json:"importAs"`
}

// NewMetadata creates a re-export metadata file
func NewMetadata(importAs string, from ...string) Metadata {
	m := Metadata{
		Symbolic:                "module",
		Version:                 4,
		Metadata:                map[string]any{},
		Exports:                 make([]metadataExport, len(from)),
		FlatModuleIndexRedirect: true,
		ImportAs:                importAs,
	}
	for i, f := range from {
		m.Exports[i] = metadataExport{From: f}
	}
	return m
}

// EntryPackageJSON lists the bundle locations of a secondary entry point
type EntryPackageJSON struct {
	Name    string `json:"name"`
	Typings string `json:"typings"`
	Main    string `json:"main"`
	Module  string `json:"module"`
	ES2015  string `json:"es2015"`
}

// Typings returns the content of a typings file re-exporting from
func Typings(from string) string {
	return "\nexport * from '" + from + "';\n"
}

// Generate writes the re-export files of the package root and of every
// secondary entry point into outDir. The output only depends on its inputs.
func Generate(pkg *types.PackageDescriptor, cat *catalog.Catalog, outDir string) error {
	name := pkg.Name

	if err := writeText(filepath.Join(outDir, name+".d.ts"), Typings("./typings/index")); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(outDir, name+".metadata.json"), NewMetadata(pkg.ImportName(), "./typings/index")); err != nil {
		return err
	}

	for _, ep := range cat.Secondary {
		if err := generateSecondary(pkg, ep, outDir); err != nil {
			return err
		}
	}

	if !pkg.ExportsSecondaryAtRoot || len(cat.Secondary) == 0 {
		return nil
	}

	lines := make([]string, 0, len(cat.Secondary))
	from := make([]string, 0, len(cat.Secondary)+1)
	for _, ep := range cat.Secondary {
		lines = append(lines, "export * from './"+ep.ID+"';")
		from = append(from, "./"+ep.ID)
	}
	from = append(from, "./typings/index")

	rootTypings := filepath.Join(outDir, name+".d.ts")
	if err := appendText(rootTypings, strings.Join(lines, "\n")); err != nil {
		return err
	}
	return writeJSON(filepath.Join(outDir, name+".metadata.json"), NewMetadata(pkg.ImportName(), from...))
}

func generateSecondary(pkg *types.PackageDescriptor, ep *types.EntryPoint, outDir string) error {
	id := ep.ID
	entryDir := filepath.Join(outDir, id)
	importAs := pkg.ImportPath(id)

	err := writeJSON(filepath.Join(entryDir, "package.json"), EntryPackageJSON{
		Name:    importAs,
		Typings: "../" + id + ".d.ts",
		Main:    "../bundles/" + pkg.Name + "-" + id + ".umd.js",
		Module:  "../esm5/" + id + ".es5.js",
		ES2015:  "../esm2015/" + id + ".js",
	})
	if err != nil {
		return err
	}

	compiled := ep.CompiledDir(types.DialectES2015)
	if utils.DirectoryExists(compiled) {
		if _, err := utils.CopyMatching(compiled, filepath.Join(entryDir, "typings"), typingFiles); err != nil {
			return types.FilesystemError("copy", compiled, err)
		}
	}

	if err := writeText(filepath.Join(entryDir, "index.d.ts"), Typings("./typings/index")); err != nil {
		return err
	}
	if err := writeJSON(filepath.Join(entryDir, "index.metadata.json"), NewMetadata(importAs, "./typings/index")); err != nil {
		return err
	}

	if err := writeText(filepath.Join(outDir, id+".d.ts"), Typings("./"+id+"/index")); err != nil {
		return err
	}
	return writeJSON(filepath.Join(outDir, id+".metadata.json"), NewMetadata(importAs, "./"+id+"/index"))
}

func writeText(path, content string) error {
	if err := utils.WriteFile(path, []byte(content)); err != nil {
		return types.FilesystemError("write", path, err)
	}
	return nil
}

func appendText(path, content string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return types.FilesystemError("append", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return types.FilesystemError("append", path, err)
	}
	if err := f.Close(); err != nil {
		return types.FilesystemError("append", path, err)
	}
	return nil
}

// writeJSON writes v indented by two spaces without a trailing newline
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeText(path, string(data))
}
