// Package catalog discovers the entry points of a library package
package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zuzpack/zuz/pkg/types"
)

// DefaultEntryFiles are the entry file names recognized in secondary directories,
// after the primary entry file's own base name
var DefaultEntryFiles = []string{"public_api.ts", "index.ts"}

// Catalog is the immutable set of entry points of one package
type Catalog struct {
	Package   *types.PackageDescriptor
	Primary   *types.EntryPoint
	Secondary []*types.EntryPoint

	byID map[string]*types.EntryPoint
}

// Discover finds the primary entry point and one secondary entry point per
// immediate sub-directory of the source root holding a recognized entry file
func Discover(pkg *types.PackageDescriptor) (*Catalog, error) {
	entry := pkg.EntryFilePath()
	if info, err := os.Stat(entry); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: primary entry file %s not found", types.ErrConfiguration, entry)
	}

	cat := &Catalog{
		Package: pkg,
		Primary: types.NewEntryPoint(pkg, "", entry),
		byID:    make(map[string]*types.EntryPoint),
	}
	cat.byID[""] = cat.Primary

	dirs, err := os.ReadDir(pkg.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to read source root %s: %w", pkg.SourceRoot, err)
	}

	candidates := entryFileNames(pkg.EntryFile)
	for _, d := range dirs {
		if !d.IsDir() || skipDir(pkg, d.Name()) {
			continue
		}

		dir := filepath.Join(pkg.SourceRoot, d.Name())
		for _, name := range candidates {
			file := filepath.Join(dir, name)
			if info, err := os.Stat(file); err == nil && !info.IsDir() {
				ep := types.NewEntryPoint(pkg, d.Name(), file)
				cat.Secondary = append(cat.Secondary, ep)
				cat.byID[ep.ID] = ep
				break
			}
		}
	}

	sort.Slice(cat.Secondary, func(i, j int) bool {
		return cat.Secondary[i].ID < cat.Secondary[j].ID
	})
	return cat, nil
}

// New builds a catalog from already-known entry points
func New(pkg *types.PackageDescriptor, primary *types.EntryPoint, secondary ...*types.EntryPoint) *Catalog {
	cat := &Catalog{
		Package:   pkg,
		Primary:   primary,
		Secondary: append([]*types.EntryPoint(nil), secondary...),
		byID:      map[string]*types.EntryPoint{"": primary},
	}
	sort.Slice(cat.Secondary, func(i, j int) bool {
		return cat.Secondary[i].ID < cat.Secondary[j].ID
	})
	for _, ep := range cat.Secondary {
		cat.byID[ep.ID] = ep
	}
	return cat
}

// Get returns the entry point with the given ID
func (c *Catalog) Get(id string) (*types.EntryPoint, bool) {
	ep, ok := c.byID[id]
	return ep, ok
}

// All returns the secondary entry points followed by the primary
func (c *Catalog) All() []*types.EntryPoint {
	all := make([]*types.EntryPoint, 0, len(c.Secondary)+1)
	all = append(all, c.Secondary...)
	return append(all, c.Primary)
}

// SecondaryIDs returns the sorted IDs of all secondary entry points
func (c *Catalog) SecondaryIDs() []string {
	ids := make([]string, len(c.Secondary))
	for i, ep := range c.Secondary {
		ids[i] = ep.ID
	}
	return ids
}

// SecondaryDirs returns the source directories of all secondary entry points
func (c *Catalog) SecondaryDirs() []string {
	dirs := make([]string, len(c.Secondary))
	for i, ep := range c.Secondary {
		dirs[i] = ep.SourceDir
	}
	return dirs
}

func entryFileNames(primary string) []string {
	names := []string{primary}
	for _, n := range DefaultEntryFiles {
		if n != primary {
			names = append(names, n)
		}
	}
	return names
}

func skipDir(pkg *types.PackageDescriptor, name string) bool {
	if strings.HasPrefix(name, ".") || name == "node_modules" {
		return true
	}
	dir := filepath.Join(pkg.SourceRoot, name)
	rel, err := filepath.Rel(dir, pkg.OutDir)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
