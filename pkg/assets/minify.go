// Package assets minifies component templates and stylesheets into the
// compiled output trees and inlines them into the compiled components
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
	"golang.org/x/net/html"

	"github.com/zuzpack/zuz/pkg/esbuildutil"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
	"github.com/zuzpack/zuz/pkg/utils"
)

var (
	htmlFiles  = utils.MustPatternMatcher("**/*.html")
	cssFiles   = utils.MustPatternMatcher("**/*.css")
	whitespace = regexp.MustCompile(`\s+`)
)

// rawTextElements keep their whitespace
var rawTextElements = map[string]bool{
	"pre":      true,
	"textarea": true,
	"script":   true,
	"style":    true,
}

// MinifyHTML removes comments and collapses whitespace. Tags are written as
// authored so attribute case and quoting survive.
func MinifyHTML(src []byte) ([]byte, error) {
	z := html.NewTokenizer(bytes.NewReader(src))
	var out bytes.Buffer
	preserve := 0

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, err
			}
			return bytes.TrimSpace(out.Bytes()), nil
		case html.CommentToken:
			continue
		case html.TextToken:
			raw := z.Raw()
			if preserve > 0 {
				out.Write(raw)
				continue
			}
			text := whitespace.ReplaceAll(raw, []byte(" "))
			if len(bytes.TrimSpace(text)) == 0 && bytes.ContainsAny(raw, "\r\n") {
				continue
			}
			out.Write(text)
		case html.StartTagToken:
			name, _ := z.TagName()
			out.Write(z.Raw())
			if rawTextElements[string(name)] {
				preserve++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if rawTextElements[string(name)] && preserve > 0 {
				preserve--
			}
			out.Write(z.Raw())
		default:
			out.Write(z.Raw())
		}
	}
}

// MinifyCSS minifies a stylesheet with esbuild's CSS printer
func MinifyCSS(src []byte, file string) ([]byte, error) {
	ret := api.Transform(string(src), api.TransformOptions{
		Loader:           api.LoaderCSS,
		Sourcefile:       file,
		MinifyWhitespace: true,
		MinifySyntax:     true,
		LogLevel:         api.LogLevelSilent,
	})
	if len(ret.Errors) > 0 {
		return nil, esbuildutil.MessagesError(ret.Errors)
	}
	return bytes.TrimSpace(ret.Code), nil
}

// Prepare minifies every template and stylesheet below the source root into
// the compiled root of each dialect at the same relative path
func Prepare(ctx context.Context, pkg *types.PackageDescriptor, log logger.Logger) error {
	if log == nil {
		log = logger.Discard()
	}
	skip := []string{pkg.OutDir, filepath.Join(pkg.SourceRoot, "node_modules")}

	kinds := []struct {
		matcher *utils.PatternMatcher
		minify  func(src []byte, file string) ([]byte, error)
	}{
		{htmlFiles, func(src []byte, _ string) ([]byte, error) { return MinifyHTML(src) }},
		{cssFiles, MinifyCSS},
	}

	count := 0
	for _, kind := range kinds {
		files, err := utils.FindFiles(pkg.SourceRoot, kind.matcher, skip...)
		if err != nil {
			return err
		}
		for _, rel := range files {
			if err := ctx.Err(); err != nil {
				return err
			}
			if hidden(rel) {
				continue
			}
			path := filepath.Join(pkg.SourceRoot, rel)
			src, err := os.ReadFile(path)
			if err != nil {
				return types.FilesystemError("read", path, err)
			}
			minified, err := kind.minify(src, rel)
			if err != nil {
				return fmt.Errorf("failed to minify %s: %w", rel, err)
			}
			for _, root := range compiledRoots(pkg) {
				dest := filepath.Join(root, rel)
				if err := utils.WriteFile(dest, minified); err != nil {
					return types.FilesystemError("write", dest, err)
				}
			}
			count++
		}
	}

	log.Debug("Prepared component resources", logger.WithField("files", count))
	return nil
}

// compiledRoots returns the compiled root of each dialect
func compiledRoots(pkg *types.PackageDescriptor) []string {
	primary := types.NewEntryPoint(pkg, "", pkg.EntryFile)
	roots := make([]string, 0, len(types.Dialects))
	for _, d := range types.Dialects {
		roots = append(roots, primary.CompiledDir(d))
	}
	return roots
}

func hidden(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
