// Package esbuildutil holds helpers shared by the stages that drive esbuild
package esbuildutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/evanw/esbuild/pkg/api"
)

// MessagesError joins esbuild messages into one error, each prefixed with
// its location when esbuild reports one
func MessagesError(msgs []api.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	errs := make([]error, 0, len(msgs))
	for _, msg := range msgs {
		if msg.Location != nil {
			errs = append(errs, fmt.Errorf("%s:%d:%d: %s", msg.Location.File, msg.Location.Line, msg.Location.Column, msg.Text))
		} else {
			errs = append(errs, errors.New(msg.Text))
		}
	}
	return errors.Join(errs...)
}

// Metafile is the subset of esbuild's metafile the bundler reports on
type Metafile struct {
	Inputs map[string]struct {
		Bytes int `json:"bytes"`
	} `json:"inputs"`
	Outputs map[string]struct {
		Bytes   int `json:"bytes"`
		Imports []struct {
			Path     string `json:"path"`
			Kind     string `json:"kind"`
			External bool   `json:"external"`
		} `json:"imports"`
		EntryPoint string `json:"entryPoint"`
	} `json:"outputs"`
}

// ParseMetafile decodes the metafile of a build result
func ParseMetafile(data string) (*Metafile, error) {
	var m Metafile
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return nil, fmt.Errorf("invalid metafile: %w", err)
	}
	return &m, nil
}

// ExternalImports returns the sorted, de-duplicated external imports of
// every output
func (m *Metafile) ExternalImports() []string {
	seen := make(map[string]struct{})
	for _, out := range m.Outputs {
		for _, imp := range out.Imports {
			if imp.External {
				seen[imp.Path] = struct{}{}
			}
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
