// Package globals maps external module IDs to the global names a universal
// bundle reads them from
package globals

import (
	"sort"

	"github.com/zuzpack/zuz/pkg/catalog"
	"github.com/zuzpack/zuz/pkg/types"
)

// HelpersModule is the runtime helpers module. It is always inlined into
// universal bundles.
const HelpersModule = "tslib"

// baseGlobals are the framework and reactive-extensions modules a library
// build expects to find as globals
var baseGlobals = map[string]string{
	HelpersModule: "tslib",

	"@angular/animations":                  "ng.animations",
	"@angular/core":                        "ng.core",
	"@angular/common":                      "ng.common",
	"@angular/forms":                       "ng.forms",
	"@angular/http":                        "ng.http",
	"@angular/platform-browser":            "ng.platformBrowser",
	"@angular/platform-browser-dynamic":    "ng.platformBrowserDynamic",
	"@angular/platform-browser/animations": "ng.platformBrowser.animations",

	"rxjs/BehaviorSubject":              "Rx",
	"rxjs/Observable":                   "Rx",
	"rxjs/Subject":                      "Rx",
	"rxjs/Subscription":                 "Rx",
	"rxjs/add/observable/combineLatest": "Rx.Observable",
	"rxjs/add/observable/forkJoin":      "Rx.Observable",
	"rxjs/add/observable/fromEvent":     "Rx.Observable",
	"rxjs/add/observable/merge":         "Rx.Observable",
	"rxjs/add/observable/of":            "Rx.Observable",
	"rxjs/add/observable/throw":         "Rx.Observable",
	"rxjs/add/operator/auditTime":       "Rx.Observable.prototype",
	"rxjs/add/operator/catch":           "Rx.Observable.prototype",
	"rxjs/add/operator/debounceTime":    "Rx.Observable.prototype",
	"rxjs/add/operator/do":              "Rx.Observable.prototype",
	"rxjs/add/operator/filter":          "Rx.Observable.prototype",
	"rxjs/add/operator/finally":         "Rx.Observable.prototype",
	"rxjs/add/operator/first":           "Rx.Observable.prototype",
	"rxjs/add/operator/let":             "Rx.Observable.prototype",
	"rxjs/add/operator/map":             "Rx.Observable.prototype",
	"rxjs/add/operator/share":           "Rx.Observable.prototype",
	"rxjs/add/operator/startWith":       "Rx.Observable.prototype",
	"rxjs/add/operator/switchMap":       "Rx.Observable.prototype",
	"rxjs/add/operator/takeUntil":       "Rx.Observable.prototype",
	"rxjs/add/operator/toPromise":       "Rx.Observable.prototype",
}

// Map is the read-only globals table of one build
type Map struct {
	pkg       *types.PackageDescriptor
	globals   map[string]string
	secondary []*types.EntryPoint
}

// Resolve builds the globals table from the base table, the package's own
// entry points and the configured extras. Extras win over everything else.
func Resolve(pkg *types.PackageDescriptor, cat *catalog.Catalog) *Map {
	m := &Map{
		pkg:       pkg,
		globals:   make(map[string]string, len(baseGlobals)+len(cat.Secondary)+len(pkg.ExtraGlobals)+1),
		secondary: cat.Secondary,
	}

	for id, global := range baseGlobals {
		m.globals[id] = global
	}

	m.globals[pkg.ImportPath("")] = pkg.ModuleName("")
	for _, ep := range cat.Secondary {
		m.globals[pkg.ImportPath(ep.ID)] = pkg.ModuleName(ep.ID)
	}

	for id, global := range pkg.ExtraGlobals {
		m.globals[id] = global
	}
	return m
}

// Global returns the global name of a module ID
func (m *Map) Global(id string) (string, bool) {
	g, ok := m.globals[id]
	return g, ok
}

// Len returns the number of module IDs in the table
func (m *Map) Len() int {
	return len(m.globals)
}

// ModuleExternals returns every module ID in the table, sorted. ES module
// bundles keep all of them external.
func (m *Map) ModuleExternals() []string {
	ids := make([]string, 0, len(m.globals))
	for id := range m.globals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Universal describes how a universal bundle treats imports
type Universal struct {
	// Globals maps each external module ID to its global name.
	Globals map[string]string
	// Aliases maps module IDs that are inlined to the file providing them.
	Aliases map[string]string
}

// UniversalExternals returns the externals of the universal bundle of ep.
// The helpers module is always inlined. When secondary entry points are
// re-exported at the root, the primary bundle inlines every secondary entry
// point from its ES5 bundle.
func (m *Map) UniversalExternals(ep *types.EntryPoint) Universal {
	u := Universal{
		Globals: make(map[string]string, len(m.globals)),
		Aliases: make(map[string]string),
	}
	for id, global := range m.globals {
		u.Globals[id] = global
	}
	delete(u.Globals, HelpersModule)

	if ep.IsPrimary() && m.pkg.ExportsSecondaryAtRoot {
		for _, sec := range m.secondary {
			id := m.pkg.ImportPath(sec.ID)
			delete(u.Globals, id)
			u.Aliases[id] = sec.Bundles.ES5
		}
	}
	return u
}

// SortedIDs returns the keys of a globals table in sorted order
func SortedIDs(globals map[string]string) []string {
	ids := make([]string, 0, len(globals))
	for id := range globals {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
