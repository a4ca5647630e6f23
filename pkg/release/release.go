// Package release composes the publishable package from the staging tree
package release

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/zuzpack/zuz/pkg/assets"
	"github.com/zuzpack/zuz/pkg/catalog"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/reexport"
	"github.com/zuzpack/zuz/pkg/sourcemap"
	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/utils"
)

// Version placeholders replaced in every released file
const (
	VersionPlaceholder   = "0.0.0-PLACEHOLDER"
	FrameworkPlaceholder = "0.0.0-NG"
)

var (
	typingFiles = utils.MustPatternMatcher("**/*.d.ts", "**/*.metadata.json")
	allFiles    = utils.MustPatternMatcher("**")
)

// copyStep copies the files of from matching the patterns into the output sub-directory to
type copyStep struct {
	from     string
	to       string
	patterns []string
	exclude  []string
}

// Compose writes the release into pkg.OutDir. It runs only after every entry
// point was built.
func Compose(ctx context.Context, pkg *types.PackageDescriptor, cat *catalog.Catalog, log logger.Logger) error {
	if log == nil {
		log = logger.Discard()
	}
	out := pkg.OutDir

	inlined, err := assets.InlineMetadata(pkg.PackagesTemp)
	if err != nil {
		return err
	}
	log.Debug("Inlined component metadata", logger.WithField("files", inlined))

	esm5Temp := filepath.Join(pkg.PackagesTemp, "esm5")
	if _, err := utils.CopyMatching(pkg.PackagesTemp, filepath.Join(out, "typings"), typingFiles, esm5Temp); err != nil {
		return types.FilesystemError("copy", pkg.PackagesTemp, err)
	}

	for _, step := range copySteps(pkg) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := copyFiles(step, out); err != nil {
			return err
		}
	}

	if err := FillPackageJSON(pkg, filepath.Join(out, "package.json")); err != nil {
		return err
	}

	replaced, err := ReplacePlaceholders(out, pkg.Version, pkg.FrameworkVersion, pkg.TempDir)
	if err != nil {
		return err
	}
	log.Debug("Replaced version placeholders", logger.WithField("files", replaced))

	if err := reexport.Generate(pkg, cat, out); err != nil {
		return err
	}

	log.Info("Release composed", logger.WithField("outDir", out))
	return nil
}

func copySteps(pkg *types.PackageDescriptor) []copyStep {
	name := glob.QuoteMeta(pkg.Name)
	secondary := filepath.Join(pkg.BundlesTemp, pkg.Name)

	var umd []string
	for _, suffix := range []string{".umd.js", ".umd.min.js"} {
		for _, m := range []string{"", ".map"} {
			umd = append(umd, name+suffix+m, name+"-*"+suffix+m)
		}
	}

	return []copyStep{
		{from: pkg.BundlesTemp, to: "bundles", patterns: umd},
		{from: pkg.BundlesTemp, to: "esm5", patterns: []string{name + ".es5.js", name + ".es5.js.map"}},
		{from: secondary, to: "esm5", patterns: []string{"*.es5.js", "*.es5.js.map"}},
		{from: pkg.BundlesTemp, to: "esm2015", patterns: []string{name + ".js", name + ".js.map"}},
		{
			from:     secondary,
			to:       "esm2015",
			patterns: []string{"*.js", "*.js.map"},
			exclude:  []string{"*.es5.js", "*.es5.js.map", "*.umd.js", "*.umd.js.map"},
		},
		{from: pkg.ProjectDir, to: ".", patterns: []string{"README.md", "package.json"}},
	}
}

// copyFiles copies the top-level files of step.from that match
func copyFiles(step copyStep, out string) error {
	if !utils.DirectoryExists(step.from) {
		return nil
	}
	include, err := utils.NewPatternMatcher(step.patterns)
	if err != nil {
		return err
	}
	exclude, err := utils.NewPatternMatcher(step.exclude)
	if err != nil {
		return err
	}

	entries, err := os.ReadDir(step.from)
	if err != nil {
		return types.FilesystemError("read", step.from, err)
	}
	for _, e := range entries {
		if e.IsDir() || !include.Match(e.Name()) || exclude.Match(e.Name()) {
			continue
		}
		src := filepath.Join(step.from, e.Name())
		dst := filepath.Join(out, step.to, e.Name())
		if strings.HasSuffix(e.Name(), ".map") {
			if err := copyMap(src, dst); err != nil {
				return err
			}
			continue
		}
		if err := utils.CopyFile(src, dst); err != nil {
			return types.FilesystemError("copy", src, err)
		}
	}
	return nil
}

// copyMap copies a source map and rebases its sources onto the directory of dst
func copyMap(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return types.FilesystemError("read", src, err)
	}
	m, err := sourcemap.Parse(data)
	if err != nil {
		return fmt.Errorf("%s: %w", src, err)
	}
	m.Rebase(filepath.Dir(src), filepath.Dir(dst))
	if data, err = m.Marshal(); err != nil {
		return err
	}
	if err := utils.WriteFile(dst, data); err != nil {
		return types.FilesystemError("write", dst, err)
	}
	return nil
}

// ReplacePlaceholders substitutes the version placeholders in every file below
// dir outside skip and returns the number of changed files
func ReplacePlaceholders(dir, version, framework string, skip ...string) (int, error) {
	files, err := utils.FindFiles(dir, allFiles, skip...)
	if err != nil {
		return 0, err
	}

	replacements := []struct{ from, to []byte }{
		{[]byte(FrameworkPlaceholder), []byte(framework)},
		{[]byte(VersionPlaceholder), []byte(version)},
	}

	changed := 0
	for _, rel := range files {
		path := filepath.Join(dir, rel)
		data, err := os.ReadFile(path)
		if err != nil {
			return changed, types.FilesystemError("read", path, err)
		}
		updated := data
		for _, r := range replacements {
			updated = bytes.ReplaceAll(updated, r.from, r.to)
		}
		if bytes.Equal(updated, data) {
			continue
		}
		if err := os.WriteFile(path, updated, 0644); err != nil {
			return changed, types.FilesystemError("write", path, err)
		}
		changed++
	}
	return changed, nil
}
