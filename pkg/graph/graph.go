// Package graph builds the intra-package dependency graph of entry points and
// levels it into depth groups
package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/zuzpack/zuz/pkg/catalog"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
)

// Edge records that From imports To. IDs are entry point IDs.
type Edge struct {
	From string
	To   string
}

// Graph is a directed graph over entry point IDs
type Graph struct {
	nodes []string
	deps  map[string]map[string]struct{}
}

// New creates a graph with the given nodes and no edges
func New(ids ...string) *Graph {
	g := &Graph{deps: make(map[string]map[string]struct{})}
	for _, id := range ids {
		g.addNode(id)
	}
	return g
}

func (g *Graph) addNode(id string) {
	if _, ok := g.deps[id]; ok {
		return
	}
	g.deps[id] = make(map[string]struct{})
	g.nodes = append(g.nodes, id)
	sort.Strings(g.nodes)
}

// AddEdge records that from depends on to, adding missing nodes
func (g *Graph) AddEdge(from, to string) {
	g.addNode(from)
	g.addNode(to)
	g.deps[from][to] = struct{}{}
}

// Nodes returns all node IDs in sorted order
func (g *Graph) Nodes() []string {
	return append([]string(nil), g.nodes...)
}

// Dependencies returns the sorted direct dependencies of id
func (g *Graph) Dependencies(id string) []string {
	deps := make([]string, 0, len(g.deps[id]))
	for d := range g.deps[id] {
		deps = append(deps, d)
	}
	sort.Strings(deps)
	return deps
}

// Edges returns every edge sorted by (From, To)
func (g *Graph) Edges() []Edge {
	var edges []Edge
	for _, from := range g.nodes {
		for _, to := range g.Dependencies(from) {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// Scanner lists the bare module specifiers an entry point's sources import.
// Relative imports are followed inside the entry point's own directory and
// never into the excluded directories.
type Scanner interface {
	Scan(ctx context.Context, ep *types.EntryPoint, exclude []string) ([]string, error)
}

// Build scans every entry point of the catalog and records an edge for each
// import of another entry point of the same package
func Build(ctx context.Context, cat *catalog.Catalog, scanner Scanner, log logger.Logger) (*Graph, error) {
	if log == nil {
		log = logger.Discard()
	}

	entries := cat.All()
	specifiers := make([][]string, len(entries))

	g := new(errgroup.Group)
	for i, ep := range entries {
		i, ep := i, ep
		exclude := excludedDirs(cat, ep)
		g.Go(func() error {
			specs, err := scanner.Scan(ctx, ep, exclude)
			if err != nil {
				return fmt.Errorf("failed to scan imports of %s: %w", ep.DisplayName(), err)
			}
			specifiers[i] = specs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	graph := New()
	for _, ep := range entries {
		graph.addNode(ep.ID)
	}

	root := cat.Package.ImportName()
	for i, ep := range entries {
		epLog := log.WithEntry(ep.ID)
		for _, spec := range specifiers[i] {
			if spec == root {
				if !ep.IsPrimary() {
					epLog.Warn("secondary entry point imports the package root; ignoring",
						logger.WithField("import", spec))
				}
				continue
			}

			sub, ok := strings.CutPrefix(spec, root+"/")
			if !ok {
				continue
			}
			id, _, _ := strings.Cut(sub, "/")

			if id == ep.ID {
				epLog.Debug("ignoring self reference", logger.WithField("import", spec))
				continue
			}
			if _, known := cat.Get(id); !known || id == "" {
				epLog.Debug("ignoring import of unknown entry point", logger.WithField("import", spec))
				continue
			}
			graph.AddEdge(ep.ID, id)
		}
	}

	return graph, nil
}

// excludedDirs returns the directories a scan of ep must not follow relative imports into
func excludedDirs(cat *catalog.Catalog, ep *types.EntryPoint) []string {
	if ep.IsPrimary() {
		return cat.SecondaryDirs()
	}
	return nil
}
