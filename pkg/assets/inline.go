package assets

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/utils"
)

var (
	jsFiles       = utils.MustPatternMatcher("**/*.js")
	templateURL   = regexp.MustCompile(`templateUrl:\s*['"]([^'"]+?\.html)['"]`)
	styleURLs     = regexp.MustCompile(`styleUrls:\s*(\[[\s\S]*?\])`)
	stringLiteral = regexp.MustCompile(`'([^']*)'|"([^"]*)"`)
	lineBreaks    = regexp.MustCompile(`([\n\r]\s*)+`)
)

// InlineResources replaces templateUrl and styleUrls of the compiled
// components below dir with the content of the referenced files, which are
// resolved relative to each compiled module. Directories in exclude are
// skipped. It returns the number of rewritten modules.
func InlineResources(dir string, exclude []string) (int, error) {
	files, err := utils.FindFiles(dir, jsFiles, exclude...)
	if err != nil {
		return 0, err
	}

	rewritten := 0
	for _, rel := range files {
		path := filepath.Join(dir, rel)
		changed, err := inlineFile(path)
		if err != nil {
			return rewritten, fmt.Errorf("failed to inline resources of %s: %w", rel, err)
		}
		if changed {
			rewritten++
		}
	}
	return rewritten, nil
}

func inlineFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, types.FilesystemError("read", path, err)
	}
	content := string(data)
	dir := filepath.Dir(path)

	out, err := replaceAll(templateURL, content, func(groups []string) (string, error) {
		template, err := loadResource(filepath.Join(dir, groups[1]))
		if err != nil {
			return "", err
		}
		return `template: "` + template + `"`, nil
	})
	if err != nil {
		return false, err
	}

	out, err = replaceAll(styleURLs, out, func(groups []string) (string, error) {
		var styles []string
		for _, lit := range stringLiteral.FindAllStringSubmatch(groups[1], -1) {
			url := lit[1] + lit[2]
			style, err := loadResource(filepath.Join(dir, url))
			if err != nil {
				return "", err
			}
			styles = append(styles, style)
		}
		return `styles: ["` + strings.Join(styles, " ") + `"]`, nil
	})
	if err != nil {
		return false, err
	}

	if out == content {
		return false, nil
	}
	if err := os.WriteFile(path, []byte(out), 0644); err != nil {
		return false, types.FilesystemError("write", path, err)
	}
	return true, nil
}

// loadResource reads a resource as one line with double quotes escaped
func loadResource(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", types.FilesystemError("read", path, err)
	}
	content := lineBreaks.ReplaceAllString(string(data), " ")
	return strings.ReplaceAll(content, `"`, `\"`), nil
}

// replaceAll is regexp.ReplaceAllStringFunc with submatches and errors
func replaceAll(re *regexp.Regexp, s string, fn func(groups []string) (string, error)) (string, error) {
	matches := re.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		groups := make([]string, len(m)/2)
		for i := range groups {
			if m[2*i] >= 0 {
				groups[i] = s[m[2*i]:m[2*i+1]]
			}
		}
		replacement, err := fn(groups)
		if err != nil {
			return "", err
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(replacement)
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String(), nil
}
