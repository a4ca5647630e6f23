package sourcemap

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zuzpack/zuz/pkg/logger"
)

var sourceMappingURL = regexp.MustCompile(`(?m)^[ \t]*//[#@] sourceMappingURL=(\S+)[ \t]*$`)

// Remapper rewrites the source map of a generated file so that it points
// through every intermediate map at the original sources
type Remapper struct {
	log logger.Logger
}

// NewRemapper creates a remapper
func NewRemapper(log logger.Logger) *Remapper {
	if log == nil {
		log = logger.Discard()
	}
	return &Remapper{log: log}
}

// node is one file of a map chain. Leaves have no map.
type node struct {
	path    string
	content *string
	m       *Map
	lines   Lines
	sources []*node

	mapPath string
	inline  bool
}

type chain struct {
	cache map[string]*node
}

// Remap loads file, follows its source map and every source map of its
// sources, and writes the flattened map back where it was found. Running it
// twice yields the same map.
func (r *Remapper) Remap(ctx context.Context, file string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c := &chain{cache: make(map[string]*node)}
	top, err := c.load(file, nil)
	if err != nil {
		return err
	}
	if top.m == nil {
		return fmt.Errorf("%s has no source map", file)
	}

	flat, err := c.flatten(top)
	if err != nil {
		return fmt.Errorf("failed to remap %s: %w", file, err)
	}

	data, err := flat.Marshal()
	if err != nil {
		return err
	}

	r.log.Debug("remapped source map",
		logger.WithField("file", filepath.Base(file)),
		logger.WithField("inline", top.inline),
		logger.WithField("sources", len(flat.Sources)))

	if top.inline {
		src := *top.content
		loc := sourceMappingURL.FindAllStringSubmatchIndex(src, -1)
		last := loc[len(loc)-1]
		encoded := "data:application/json;charset=utf-8;base64," + base64.StdEncoding.EncodeToString(data)
		out := src[:last[2]] + encoded + src[last[3]:]
		return os.WriteFile(file, []byte(out), 0644)
	}
	return os.WriteFile(top.mapPath, data, 0644)
}

// load reads a file of the chain. fallback is the content embedded in the
// parent map, used when the file is not on disk.
func (c *chain) load(path string, fallback *string) (*node, error) {
	if n, ok := c.cache[path]; ok {
		return n, nil
	}

	n := &node{path: path}
	c.cache[path] = n

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		n.content = fallback
		return n, nil
	}
	content := string(data)
	n.content = &content

	if err := n.readMap(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if n.m == nil {
		if fallback != nil {
			n.content = fallback
		}
		return n, nil
	}

	lines, err := DecodeMappings(n.m.Mappings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", n.mapPath, err)
	}
	n.lines = lines

	base := filepath.Dir(n.mapPath)
	if n.m.SourceRoot != "" {
		base = resolvePath(base, n.m.SourceRoot)
	}
	n.sources = make([]*node, len(n.m.Sources))
	for i, source := range n.m.Sources {
		var embedded *string
		if s, ok := n.m.Content(i); ok {
			embedded = &s
		}
		child, err := c.load(resolvePath(base, source), embedded)
		if err != nil {
			return nil, err
		}
		n.sources[i] = child
	}
	return n, nil
}

// readMap finds the map of a file: a sibling "<file>.map" or the file's
// sourceMappingURL comment
func (n *node) readMap() error {
	candidates := []string{n.path + ".map"}

	var inlineData []byte
	if matches := sourceMappingURL.FindAllStringSubmatch(*n.content, -1); len(matches) > 0 {
		ref := matches[len(matches)-1][1]
		if strings.HasPrefix(ref, "data:") {
			comma := strings.IndexByte(ref, ',')
			if comma < 0 {
				return fmt.Errorf("malformed inline source map")
			}
			payload := ref[comma+1:]
			if strings.Contains(ref[:comma], ";base64") {
				decoded, err := base64.StdEncoding.DecodeString(payload)
				if err != nil {
					return fmt.Errorf("malformed inline source map: %w", err)
				}
				inlineData = decoded
			} else {
				unescaped, err := url.PathUnescape(payload)
				if err != nil {
					return fmt.Errorf("malformed inline source map: %w", err)
				}
				inlineData = []byte(unescaped)
			}
		} else {
			candidates = append([]string{resolvePath(filepath.Dir(n.path), ref)}, candidates...)
		}
	}

	if inlineData != nil {
		m, err := Parse(inlineData)
		if err != nil {
			return err
		}
		n.m, n.mapPath, n.inline = m, n.path, true
		return nil
	}

	for _, candidate := range candidates {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		m, err := Parse(data)
		if err != nil {
			return fmt.Errorf("%s: %w", candidate, err)
		}
		n.m, n.mapPath = m, candidate
		return nil
	}
	return nil
}

// maxChainDepth bounds map chains that reference themselves
const maxChainDepth = 32

// trace follows a position of n down to a leaf
func (n *node) trace(line, column, name int, names []string, depth int) (*node, int, int, string, bool) {
	nameText := ""
	if name >= 0 && name < len(names) {
		nameText = names[name]
	}
	if n.m == nil {
		return n, line, column, nameText, true
	}
	if depth >= maxChainDepth {
		return nil, 0, 0, "", false
	}

	seg, ok := n.lines.Lookup(line, column)
	if !ok || !seg.Mapped() || seg.Source >= len(n.sources) {
		return nil, 0, 0, "", false
	}

	leaf, l, col, inner, ok := n.sources[seg.Source].trace(seg.Line, seg.Column, seg.Name, n.m.Names, depth+1)
	if !ok {
		return nil, 0, 0, "", false
	}
	if inner == "" {
		inner = nameText
	}
	return leaf, l, col, inner, true
}

// flatten rewrites the top map so that each segment points at a leaf
func (c *chain) flatten(top *node) (*Map, error) {
	out := &Map{Version: 3, File: top.m.File}
	base := filepath.Dir(top.mapPath)

	sourceIndex := make(map[*node]int)
	nameIndex := make(map[string]int)
	hasContent := false

	lines := make(Lines, len(top.lines))
	for i, segments := range top.lines {
		var traced []Segment
		for _, seg := range segments {
			if !seg.Mapped() || seg.Source >= len(top.sources) {
				continue
			}
			leaf, line, column, name, ok := top.sources[seg.Source].trace(seg.Line, seg.Column, seg.Name, top.m.Names, 1)
			if !ok {
				continue
			}
			if name == "" && seg.Name >= 0 && seg.Name < len(top.m.Names) {
				name = top.m.Names[seg.Name]
			}

			src, seen := sourceIndex[leaf]
			if !seen {
				src = len(out.Sources)
				sourceIndex[leaf] = src
				out.Sources = append(out.Sources, relativeSource(base, leaf.path))
				out.SourcesContent = append(out.SourcesContent, leaf.content)
				if leaf.content != nil {
					hasContent = true
				}
			}

			nameIdx := -1
			if name != "" {
				idx, seen := nameIndex[name]
				if !seen {
					idx = len(out.Names)
					nameIndex[name] = idx
					out.Names = append(out.Names, name)
				}
				nameIdx = idx
			}

			traced = append(traced, Segment{
				GenColumn: seg.GenColumn,
				Source:    src,
				Line:      line,
				Column:    column,
				Name:      nameIdx,
			})
		}
		lines[i] = traced
	}

	if !hasContent {
		out.SourcesContent = nil
	}
	out.Mappings = EncodeMappings(lines)
	return out, nil
}

func resolvePath(base, ref string) string {
	ref = strings.TrimPrefix(ref, "file://")
	if filepath.IsAbs(ref) {
		return filepath.Clean(ref)
	}
	return filepath.Join(base, filepath.FromSlash(ref))
}

// Rebase rewrites the sources of a map that was written next to files in from
// so they resolve from to. Sources given as URLs are kept.
func (m *Map) Rebase(from, to string) {
	for i, src := range m.Sources {
		if m.SourceRoot != "" {
			src = strings.TrimSuffix(m.SourceRoot, "/") + "/" + src
		}
		if strings.Contains(src, "://") && !strings.HasPrefix(src, "file://") {
			m.Sources[i] = src
			continue
		}
		m.Sources[i] = relativeSource(to, resolvePath(from, src))
	}
	m.SourceRoot = ""
}

func relativeSource(base, path string) string {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// ShiftLines moves every mapping down by n generated lines, for output that
// gained n lines of header
func (m *Map) ShiftLines(n int) {
	if n <= 0 {
		return
	}
	m.Mappings = strings.Repeat(";", n) + m.Mappings
}
