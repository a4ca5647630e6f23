// Package types provides the core data model shared by every zuz package
package types

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Dialect represents a target module dialect for compilation and bundling
type Dialect string

const (
	DialectES2015 Dialect = "es2015"
	DialectES5    Dialect = "es5"
)

// Dialects lists every dialect an entry point is compiled to, in build order
var Dialects = []Dialect{DialectES2015, DialectES5}

// BuildStatus represents the outcome of an entry point pipeline
type BuildStatus string

const (
	BuildStatusPending   BuildStatus = "pending"
	BuildStatusBuilding  BuildStatus = "building"
	BuildStatusSucceeded BuildStatus = "succeeded"
	BuildStatusFailed    BuildStatus = "failed"
)

// PackageDescriptor is the resolved configuration of one build.
// It is created once by config.Load and never mutated afterwards.
type PackageDescriptor struct {
	Namespace string
	Name      string
	Version   string

	// ProjectDir holds the project file, README.md and package.json.
	ProjectDir string
	// SourceRoot is the directory holding the primary entry file.
	SourceRoot string
	// EntryFile is the primary entry file, relative to SourceRoot.
	EntryFile string

	OutDir       string
	TempDir      string
	PackagesTemp string
	BundlesTemp  string

	ExportsSecondaryAtRoot bool
	GlobalNamespace        string
	FrameworkVersion       string
	ExtraGlobals           map[string]string
}

// ImportName returns the package import name, e.g. "@zuz/lib"
func (p *PackageDescriptor) ImportName() string {
	return p.Namespace + "/" + p.Name
}

// ImportPath returns the import path of an entry point
func (p *PackageDescriptor) ImportPath(id string) string {
	if id == "" {
		return p.ImportName()
	}
	return p.ImportName() + "/" + id
}

// ModuleName returns the global name a UMD bundle of the entry point registers
func (p *PackageDescriptor) ModuleName(id string) string {
	if id == "" {
		return p.GlobalNamespace + "." + p.Name
	}
	return p.GlobalNamespace + "." + p.Name + "." + DashCaseToCamelCase(id)
}

// EntryFilePath returns the absolute path of the primary entry file
func (p *PackageDescriptor) EntryFilePath() string {
	return filepath.Join(p.SourceRoot, p.EntryFile)
}

// ArtifactSet holds the four bundle files produced for one entry point.
// Every file has a source map sibling at <file>.map.
type ArtifactSet struct {
	ES2015 string
	ES5    string
	UMD    string
	UMDMin string
}

// Files returns the bundle files in production order
func (a ArtifactSet) Files() []string {
	return []string{a.ES2015, a.ES5, a.UMD, a.UMDMin}
}

// MapFile returns the source map path of a bundle file
func MapFile(file string) string {
	return file + ".map"
}

// EntryPoint is an independently importable module boundary of the package.
// All fields are fixed at construction.
type EntryPoint struct {
	// ID is empty for the primary entry point, otherwise the sub-directory name.
	ID        string
	SourceDir string
	// EntryFile is the absolute path of the entry module.
	EntryFile string
	Bundles   ArtifactSet

	compiledDirs map[Dialect]string
}

// NewEntryPoint derives all output locations of an entry point from the
// descriptor. A relative entryFile is resolved against the entry point's
// source directory.
func NewEntryPoint(pkg *PackageDescriptor, id, entryFile string) *EntryPoint {
	sourceDir := filepath.Join(pkg.SourceRoot, id)
	if !filepath.IsAbs(entryFile) {
		entryFile = filepath.Join(sourceDir, entryFile)
	}
	ep := &EntryPoint{
		ID:        id,
		SourceDir: sourceDir,
		EntryFile: entryFile,
		compiledDirs: map[Dialect]string{
			DialectES2015: filepath.Join(pkg.PackagesTemp, id),
			DialectES5:    filepath.Join(pkg.PackagesTemp, "esm5", id),
		},
	}

	name := pkg.Name
	if id == "" {
		ep.Bundles = ArtifactSet{
			ES2015: filepath.Join(pkg.BundlesTemp, name+".js"),
			ES5:    filepath.Join(pkg.BundlesTemp, name+".es5.js"),
			UMD:    filepath.Join(pkg.BundlesTemp, name+".umd.js"),
			UMDMin: filepath.Join(pkg.BundlesTemp, name+".umd.min.js"),
		}
	} else {
		ep.Bundles = ArtifactSet{
			ES2015: filepath.Join(pkg.BundlesTemp, name, id+".js"),
			ES5:    filepath.Join(pkg.BundlesTemp, name, id+".es5.js"),
			UMD:    filepath.Join(pkg.BundlesTemp, name+"-"+id+".umd.js"),
			UMDMin: filepath.Join(pkg.BundlesTemp, name+"-"+id+".umd.min.js"),
		}
	}
	return ep
}

// IsPrimary reports whether this is the package root entry point
func (e *EntryPoint) IsPrimary() bool {
	return e.ID == ""
}

// DisplayName returns a printable name; the primary entry point has an empty ID
func (e *EntryPoint) DisplayName() string {
	if e.IsPrimary() {
		return "<primary>"
	}
	return e.ID
}

// CompiledDir returns the directory the compiler writes the dialect's output to
func (e *EntryPoint) CompiledDir(d Dialect) string {
	return e.compiledDirs[d]
}

// CompiledEntry returns the flat module index produced by the compiler for the dialect
func (e *EntryPoint) CompiledEntry(d Dialect) string {
	return filepath.Join(e.compiledDirs[d], "index.js")
}

var dashLetter = regexp.MustCompile(`-([a-z])`)

// DashCaseToCamelCase converts "drag-drop" to "dragDrop"
func DashCaseToCamelCase(s string) string {
	return dashLetter.ReplaceAllStringFunc(s, func(m string) string {
		return strings.ToUpper(m[1:])
	})
}
