package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// PatternMatcher matches slash-separated relative paths against glob patterns
type PatternMatcher struct {
	patterns []string
	globs    []glob.Glob
}

// NewPatternMatcher compiles patterns. "*" stays inside one path segment,
// "**" crosses segments.
func NewPatternMatcher(patterns []string) (*PatternMatcher, error) {
	var expanded []string
	for _, pattern := range patterns {
		expanded = append(expanded, ExpandPattern(pattern)...)
	}

	pm := &PatternMatcher{
		patterns: expanded,
		globs:    make([]glob.Glob, 0, len(expanded)),
	}
	for _, pattern := range expanded {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
		}
		pm.globs = append(pm.globs, g)
	}
	return pm, nil
}

// MustPatternMatcher is NewPatternMatcher for static patterns
func MustPatternMatcher(patterns ...string) *PatternMatcher {
	pm, err := NewPatternMatcher(patterns)
	if err != nil {
		panic(err)
	}
	return pm
}

// Match checks if a path matches any pattern
func (pm *PatternMatcher) Match(path string) bool {
	path = filepath.ToSlash(path)
	for _, g := range pm.globs {
		if g.Match(path) {
			return true
		}
	}
	return false
}

// GetMatchingPaths returns all paths that match any pattern
func (pm *PatternMatcher) GetMatchingPaths(paths []string) []string {
	var matches []string
	for _, path := range paths {
		if pm.Match(path) {
			matches = append(matches, path)
		}
	}
	return matches
}

// ExpandPattern adds the root-level variant of a leading "**/" pattern,
// since "**/x" alone requires at least one directory
func ExpandPattern(pattern string) []string {
	pattern = filepath.ToSlash(pattern)
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok && rest != "" {
		return []string{pattern, rest}
	}
	return []string{pattern}
}

// ExclusionMatcher decides which paths a watcher ignores
type ExclusionMatcher struct {
	matcher *PatternMatcher
}

// NewExclusionMatcher creates an exclusion matcher. Bare names such as
// "node_modules" exclude that directory at any depth.
func NewExclusionMatcher(patterns []string) (*ExclusionMatcher, error) {
	all := make([]string, 0, len(patterns)*2)
	for _, pattern := range patterns {
		if !strings.ContainsAny(pattern, "*/") {
			all = append(all, "**/"+pattern, "**/"+pattern+"/**")
			continue
		}
		all = append(all, pattern)
	}

	matcher, err := NewPatternMatcher(all)
	if err != nil {
		return nil, err
	}
	return &ExclusionMatcher{matcher: matcher}, nil
}

// IsExcluded checks if a path should be excluded
func (em *ExclusionMatcher) IsExcluded(path string) bool {
	return em.matcher.Match(path)
}

// GetDefaultExclusions returns the paths a library source tree never needs watched
func GetDefaultExclusions() []string {
	return []string{
		".git",
		".svn",
		".hg",
		"node_modules",
		".cache",
		"coverage",
		".idea",
		".vscode",
		"*.swp",
		"*~",
		".DS_Store",
		"*.log",
		"*.tmp",
	}
}
