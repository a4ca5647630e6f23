package bundle

import (
	"context"
	"path/filepath"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/zuzpack/zuz/pkg/esbuildutil"
	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/types"
)

// EsbuildMinifier minifies universal bundles. Legal comments are kept at the
// end of the file.
type EsbuildMinifier struct {
	dialect types.Dialect
	log     logger.Logger
}

// NewEsbuildMinifier creates the esbuild minifier
func NewEsbuildMinifier(log logger.Logger) *EsbuildMinifier {
	if log == nil {
		log = logger.Discard()
	}
	return &EsbuildMinifier{dialect: types.DialectES5, log: log}
}

// WithDialect sets the dialect the minified output is emitted at
func (m *EsbuildMinifier) WithDialect(d types.Dialect) *EsbuildMinifier {
	m.dialect = d
	return m
}

// Minify implements Minifier
func (m *EsbuildMinifier) Minify(ctx context.Context, src, dest string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ret := api.Build(api.BuildOptions{
		EntryPoints:       []string{src},
		AbsWorkingDir:     filepath.Dir(src),
		Outfile:           dest,
		Bundle:            false,
		Write:             true,
		Target:            syntaxTarget(m.dialect),
		MinifyWhitespace:  true,
		MinifyIdentifiers: true,
		MinifySyntax:      true,
		LegalComments:     api.LegalCommentsEndOfFile,
		Sourcemap:         api.SourceMapLinked,
		SourcesContent:    api.SourcesContentInclude,
		LogLevel:          api.LogLevelSilent,
	})
	if len(ret.Errors) > 0 {
		return esbuildutil.MessagesError(ret.Errors)
	}

	m.log.Debug("Minified bundle", logger.WithField("file", filepath.Base(dest)))
	return nil
}
