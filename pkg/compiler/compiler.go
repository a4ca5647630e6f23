// Package compiler turns the authored sources of an entry point into ES
// modules of one dialect
package compiler

//go:generate mockgen -destination=../mocks/compiler.go -package=mocks github.com/zuzpack/zuz/pkg/compiler Compiler

import (
	"context"

	"github.com/evanw/esbuild/pkg/api"

	"github.com/zuzpack/zuz/pkg/types"
)

// Request describes one compilation of one entry point
type Request struct {
	Entry   *types.EntryPoint
	Dialect types.Dialect
	OutDir  string
	// Exclude lists directories below the entry point's source directory
	// that belong to other entry points.
	Exclude []string
}

// Compiler compiles an entry point. Implementations write a flat module
// index named index.js into the request's output directory.
type Compiler interface {
	Compile(ctx context.Context, req Request) error
}

// EsbuildTarget returns the syntax level the esbuild backend compiles a
// dialect at. esbuild does not lower class syntax to ES5, so the es5 dialect
// is compiled at ES2015 syntax.
func EsbuildTarget(d types.Dialect) api.Target {
	switch d {
	case types.DialectES5, types.DialectES2015:
		return api.ES2015
	default:
		return api.ESNext
	}
}

// dialectLimiter is implemented by compilers whose output for a dialect uses
// newer syntax than the dialect allows
type dialectLimiter interface {
	EmittedDialect(d types.Dialect) types.Dialect
}

// EmittedDialect returns the dialect whose syntax c really emits when asked
// for d. Bundles built from that output must not target anything older.
func EmittedDialect(c Compiler, d types.Dialect) types.Dialect {
	if l, ok := c.(dialectLimiter); ok {
		return l.EmittedDialect(d)
	}
	return d
}
