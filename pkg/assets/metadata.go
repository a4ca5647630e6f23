package assets

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/utils"
)

var metadataFiles = utils.MustPatternMatcher("**/*.metadata.json")

// InlineMetadata replaces templateUrl and styleUrls in every metadata file
// below dir with template and styles holding the referenced content. URLs
// resolve relative to the metadata file. It returns the number of rewritten
// files.
func InlineMetadata(dir string) (int, error) {
	files, err := utils.FindFiles(dir, metadataFiles)
	if err != nil {
		return 0, err
	}

	rewritten := 0
	for _, rel := range files {
		path := filepath.Join(dir, rel)
		changed, err := inlineMetadataFile(path)
		if err != nil {
			return rewritten, fmt.Errorf("failed to inline metadata of %s: %w", rel, err)
		}
		if changed {
			rewritten++
		}
	}
	return rewritten, nil
}

func inlineMetadataFile(path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, types.FilesystemError("read", path, err)
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return false, err
	}

	changed, err := inlineNode(doc, filepath.Dir(path))
	if err != nil || !changed {
		return false, err
	}

	var out bytes.Buffer
	enc := json.NewEncoder(&out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return false, err
	}
	if err := os.WriteFile(path, bytes.TrimSuffix(out.Bytes(), []byte("\n")), 0644); err != nil {
		return false, types.FilesystemError("write", path, err)
	}
	return true, nil
}

func inlineNode(node any, dir string) (bool, error) {
	changed := false
	switch n := node.(type) {
	case map[string]any:
		if url, ok := n["templateUrl"].(string); ok {
			content, err := os.ReadFile(filepath.Join(dir, url))
			if err != nil {
				return false, types.FilesystemError("read", url, err)
			}
			n["template"] = string(content)
			delete(n, "templateUrl")
			changed = true
		}
		if urls, ok := n["styleUrls"].([]any); ok {
			styles := make([]any, 0, len(urls))
			for _, u := range urls {
				url, ok := u.(string)
				if !ok {
					continue
				}
				content, err := os.ReadFile(filepath.Join(dir, url))
				if err != nil {
					return false, types.FilesystemError("read", url, err)
				}
				styles = append(styles, string(content))
			}
			n["styles"] = styles
			delete(n, "styleUrls")
			changed = true
		}
		for _, v := range n {
			c, err := inlineNode(v, dir)
			if err != nil {
				return false, err
			}
			changed = changed || c
		}
	case []any:
		for _, v := range n {
			c, err := inlineNode(v, dir)
			if err != nil {
				return false, err
			}
			changed = changed || c
		}
	}
	return changed, nil
}
