package bundle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var identifier = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$]*$`)

// umdWrapper wraps a CommonJS body so it loads under CommonJS, AMD or as a
// plain script reading its dependencies from globals
type umdWrapper struct {
	moduleName string
	deps       []string
	globals    map[string]string
}

func (w umdWrapper) header() string {
	requires := []string{"exports"}
	amd := []string{"'exports'"}
	globals := []string{namespaceExpr(w.moduleName)}
	params := []string{"exports"}
	table := make([]string, 0, len(w.deps))

	for i, dep := range w.deps {
		quoted := strconv.Quote(dep)
		param := fmt.Sprintf("__zuz_dep%d", i)

		requires = append(requires, "require("+quoted+")")
		amd = append(amd, quoted)
		globals = append(globals, accessPath("global", w.globals[dep]))
		params = append(params, param)
		table = append(table, quoted+": "+param)
	}

	var b strings.Builder
	b.WriteString("(function (global, factory) {\n")
	fmt.Fprintf(&b, "\ttypeof exports === 'object' && typeof module !== 'undefined' ? factory(%s) :\n", strings.Join(requires, ", "))
	fmt.Fprintf(&b, "\ttypeof define === 'function' && define.amd ? define([%s], factory) :\n", strings.Join(amd, ", "))
	fmt.Fprintf(&b, "\t(factory(%s));\n", strings.Join(globals, ", "))
	fmt.Fprintf(&b, "}(this, (function (%s) { 'use strict';\n", strings.Join(params, ", "))
	fmt.Fprintf(&b, "var __zuz_deps = {%s};\n", strings.Join(table, ", "))
	b.WriteString("var require = function (id) { return __zuz_deps[id]; };\n")
	b.WriteString("var module = { exports: {} };\n")
	return b.String()
}

func (w umdWrapper) footer() string {
	return "(function (source) {\n" +
		"\tfor (var key in source) {\n" +
		"\t\tif (Object.prototype.hasOwnProperty.call(source, key)) { exports[key] = source[key]; }\n" +
		"\t}\n" +
		"}(module.exports));\n" +
		"Object.defineProperty(exports, '__esModule', { value: true });\n" +
		"})));\n"
}

// namespaceExpr creates the nested global objects of a dotted module name
// and evaluates to the innermost one, e.g. for "ng.lib":
// (global.ng = global.ng || {}, global.ng.lib = {})
func namespaceExpr(name string) string {
	parts := strings.Split(name, ".")
	exprs := make([]string, 0, len(parts))
	path := "global"
	for i, part := range parts {
		path = accessPath(path, part)
		if i == len(parts)-1 {
			exprs = append(exprs, path+" = {}")
		} else {
			exprs = append(exprs, path+" = "+path+" || {}")
		}
	}
	return "(" + strings.Join(exprs, ", ") + ")"
}

// accessPath appends a dotted global name to base
func accessPath(base, name string) string {
	if name == "" {
		return base
	}
	var b strings.Builder
	b.WriteString(base)
	for _, part := range strings.Split(name, ".") {
		if identifier.MatchString(part) {
			b.WriteString("." + part)
		} else {
			b.WriteString("[" + strconv.Quote(part) + "]")
		}
	}
	return b.String()
}
