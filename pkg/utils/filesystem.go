// Package utils provides filesystem and glob helpers shared by the build stages
package utils

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// CopyFile copies a file from src to dst, creating parent directories
func CopyFile(src, dst string) error {
	sourceFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer sourceFile.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}

	destFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(destFile, sourceFile); err != nil {
		destFile.Close()
		return err
	}
	return destFile.Close()
}

// WriteFile writes data to path, creating parent directories
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// FileExists checks if a regular file exists
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// DirectoryExists checks if a directory exists
func DirectoryExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// IsWithin reports whether target is dir or lies below it
func IsWithin(dir, target string) bool {
	rel, err := filepath.Rel(dir, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// IsWithinAny reports whether target lies within any of dirs
func IsWithinAny(dirs []string, target string) bool {
	for _, dir := range dirs {
		if IsWithin(dir, target) {
			return true
		}
	}
	return false
}

// FindFiles returns the sorted paths, relative to root, of the regular files
// matching the matcher. Directories in skip are not descended into.
func FindFiles(root string, matcher *PatternMatcher, skip ...string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && IsWithinAny(skip, path) {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if matcher.Match(rel) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}
	sort.Strings(files)
	return files, nil
}

// CopyMatching copies every file under src matching the matcher to the same
// relative path under dst and returns the copied relative paths
func CopyMatching(src, dst string, matcher *PatternMatcher, skip ...string) ([]string, error) {
	files, err := FindFiles(src, matcher, skip...)
	if err != nil {
		return nil, err
	}
	for _, rel := range files {
		if err := CopyFile(filepath.Join(src, rel), filepath.Join(dst, rel)); err != nil {
			return nil, fmt.Errorf("failed to copy %s: %w", rel, err)
		}
	}
	return files, nil
}
