// Package sourcemap reads, writes and chains version 3 source maps
package sourcemap

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Map is a version 3 source map
type Map struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	SourceRoot     string    `json:"sourceRoot,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent,omitempty"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

// Segment is one decoded mapping. Source and Name are -1 when absent.
type Segment struct {
	GenColumn int
	Source    int
	Line      int
	Column    int
	Name      int
}

// Mapped reports whether the segment points into a source
func (s Segment) Mapped() bool {
	return s.Source >= 0
}

// Lines holds the decoded segments of each generated line
type Lines [][]Segment

// Parse decodes a JSON source map
func Parse(data []byte) (*Map, error) {
	var m Map
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid source map: %w", err)
	}
	if m.Version != 3 {
		return nil, fmt.Errorf("unsupported source map version %d", m.Version)
	}
	return &m, nil
}

// Marshal encodes the map as JSON
func (m *Map) Marshal() ([]byte, error) {
	if m.Sources == nil {
		m.Sources = []string{}
	}
	if m.Names == nil {
		m.Names = []string{}
	}
	return json.Marshal(m)
}

// Content returns the embedded content of source i, if any
func (m *Map) Content(i int) (string, bool) {
	if i < 0 || i >= len(m.SourcesContent) || m.SourcesContent[i] == nil {
		return "", false
	}
	return *m.SourcesContent[i], true
}

// DecodeMappings decodes a "mappings" string. Source, line, column and name
// fields are delta-encoded across the whole map; generated columns restart
// on every line.
func DecodeMappings(mappings string) (Lines, error) {
	groups := strings.Split(mappings, ";")
	lines := make(Lines, len(groups))
	var source, line, column, name int

	for i, group := range groups {
		genColumn := 0
		var segments []Segment

		for _, raw := range strings.Split(group, ",") {
			if raw == "" {
				continue
			}

			var fields [5]int
			n := 0
			for rest := raw; rest != ""; n++ {
				if n == 5 {
					return nil, fmt.Errorf("segment %q has more than 5 fields", raw)
				}
				v, used, err := DecodeVLQ(rest)
				if err != nil {
					return nil, err
				}
				fields[n] = v
				rest = rest[used:]
			}

			genColumn += fields[0]
			seg := Segment{GenColumn: genColumn, Source: -1, Name: -1}
			switch n {
			case 1:
			case 4, 5:
				source += fields[1]
				line += fields[2]
				column += fields[3]
				seg.Source, seg.Line, seg.Column = source, line, column
				if n == 5 {
					name += fields[4]
					seg.Name = name
				}
			default:
				return nil, fmt.Errorf("segment %q has %d fields", raw, n)
			}
			segments = append(segments, seg)
		}

		sort.SliceStable(segments, func(a, b int) bool {
			return segments[a].GenColumn < segments[b].GenColumn
		})
		lines[i] = segments
	}

	return lines, nil
}

// EncodeMappings encodes decoded lines back into a "mappings" string
func EncodeMappings(lines Lines) string {
	var b strings.Builder
	var source, line, column, name int

	for i, segments := range lines {
		if i > 0 {
			b.WriteByte(';')
		}
		genColumn := 0
		for j, seg := range segments {
			if j > 0 {
				b.WriteByte(',')
			}
			EncodeVLQ(&b, seg.GenColumn-genColumn)
			genColumn = seg.GenColumn
			if !seg.Mapped() {
				continue
			}
			EncodeVLQ(&b, seg.Source-source)
			EncodeVLQ(&b, seg.Line-line)
			EncodeVLQ(&b, seg.Column-column)
			source, line, column = seg.Source, seg.Line, seg.Column
			if seg.Name >= 0 {
				EncodeVLQ(&b, seg.Name-name)
				name = seg.Name
			}
		}
	}
	return b.String()
}

// Lookup returns the segment of line covering column: the one with the
// greatest generated column not after it
func (l Lines) Lookup(line, column int) (Segment, bool) {
	if line < 0 || line >= len(l) {
		return Segment{}, false
	}
	segments := l[line]
	lo, hi := 0, len(segments)
	for lo < hi {
		mid := (lo + hi) / 2
		if segments[mid].GenColumn <= column {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == 0 {
		return Segment{}, false
	}
	return segments[lo-1], true
}
