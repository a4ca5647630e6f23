package compiler_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"

	"github.com/zuzpack/zuz/pkg/compiler"
	"github.com/zuzpack/zuz/pkg/mocks"
	"github.com/zuzpack/zuz/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func newPackage(t *testing.T) *types.PackageDescriptor {
	t.Helper()
	root := t.TempDir()
	temp := filepath.Join(root, "dist", "temp")
	return &types.PackageDescriptor{
		Namespace:       "@zuz",
		Name:            "lib",
		Version:         "1.0.0",
		SourceRoot:      filepath.Join(root, "src"),
		EntryFile:       "public_api.ts",
		OutDir:          filepath.Join(root, "dist"),
		TempDir:         temp,
		PackagesTemp:    filepath.Join(temp, "packages"),
		BundlesTemp:     filepath.Join(temp, "bundles"),
		GlobalNamespace: "ng",
	}
}

func TestEsbuild_Compile(t *testing.T) {
	pkg := newPackage(t)
	src := pkg.SourceRoot
	writeFile(t, filepath.Join(src, "public_api.ts"), "export * from './foo';\n")
	writeFile(t, filepath.Join(src, "foo.ts"), "export class Foo {\n  name: string = 'foo';\n}\n")
	writeFile(t, filepath.Join(src, "foo.spec.ts"), "import { Foo } from './foo';\nnew Foo();\n")
	writeFile(t, filepath.Join(src, "globals.d.ts"), "declare const X: string;\n")
	writeFile(t, filepath.Join(src, "b", "public_api.ts"), "export const b = 1;\n")

	ep := types.NewEntryPoint(pkg, "", "public_api.ts")
	out := ep.CompiledDir(types.DialectES2015)

	err := compiler.NewEsbuild(nil).Compile(context.Background(), compiler.Request{
		Entry:   ep,
		Dialect: types.DialectES2015,
		OutDir:  out,
		Exclude: []string{filepath.Join(src, "b")},
	})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	for _, name := range []string{"public_api.js", "foo.js", "foo.js.map", "index.js"} {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}
	for _, name := range []string{"foo.spec.js", "globals.d.js", "b"} {
		if _, err := os.Stat(filepath.Join(out, name)); err == nil {
			t.Errorf("did not expect %s", name)
		}
	}

	index, _ := os.ReadFile(ep.CompiledEntry(types.DialectES2015))
	if string(index) != "export * from './public_api';\n" {
		t.Errorf("unexpected index %q", index)
	}

	foo, _ := os.ReadFile(filepath.Join(out, "foo.js"))
	if !strings.Contains(string(foo), "sourceMappingURL=foo.js.map") {
		t.Errorf("expected linked source map in %q", foo)
	}
}

func TestEsbuild_IndexEntry(t *testing.T) {
	pkg := newPackage(t)
	writeFile(t, filepath.Join(pkg.SourceRoot, "b", "index.ts"), "export const b = 1;\n")

	ep := types.NewEntryPoint(pkg, "b", "index.ts")
	out := ep.CompiledDir(types.DialectES5)
	err := compiler.NewEsbuild(nil).Compile(context.Background(), compiler.Request{Entry: ep, Dialect: types.DialectES5, OutDir: out})
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	index, err := os.ReadFile(filepath.Join(out, "index.js"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(index), "export * from") {
		t.Errorf("index.js should be the compiled entry module, got %q", index)
	}
}

func TestEsbuild_SyntaxError(t *testing.T) {
	pkg := newPackage(t)
	writeFile(t, filepath.Join(pkg.SourceRoot, "public_api.ts"), "export const = ;\n")

	ep := types.NewEntryPoint(pkg, "", "public_api.ts")
	err := compiler.NewEsbuild(nil).Compile(context.Background(), compiler.Request{
		Entry:   ep,
		Dialect: types.DialectES2015,
		OutDir:  ep.CompiledDir(types.DialectES2015),
	})
	if err == nil {
		t.Fatal("expected compile error")
	}
	if !strings.Contains(err.Error(), "public_api.ts") {
		t.Errorf("expected error to name the file, got %v", err)
	}
}

func TestEsbuildTarget(t *testing.T) {
	for _, d := range types.Dialects {
		if compiler.EsbuildTarget(d) == 0 {
			t.Errorf("no target for %s", d)
		}
	}
}

func TestEmittedDialect(t *testing.T) {
	ctrl := gomock.NewController(t)
	esbuild := compiler.NewEsbuild(nil)

	if got := compiler.EmittedDialect(esbuild, types.DialectES5); got != types.DialectES2015 {
		t.Errorf("esbuild backend should report es2015 syntax for es5, got %s", got)
	}
	if got := compiler.EmittedDialect(esbuild, types.DialectES2015); got != types.DialectES2015 {
		t.Errorf("unexpected dialect %s", got)
	}
	if got := compiler.EmittedDialect(mocks.NewMockCompiler(ctrl), types.DialectES5); got != types.DialectES5 {
		t.Errorf("compilers without limits should emit the requested dialect, got %s", got)
	}
}

func requireShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestExec_Compile(t *testing.T) {
	requireShell(t)
	pkg := newPackage(t)
	writeFile(t, filepath.Join(pkg.SourceRoot, "b", "public_api.ts"), "export const b = 1;\n")

	c, err := compiler.NewExec(pkg,
		"mkdir -p {{.OutDir}} && cp {{.Project}} {{.OutDir}}/tsconfig.json && echo compiled {{.Entry}} && touch {{.OutDir}}/index.js", nil)
	if err != nil {
		t.Fatal(err)
	}

	ep := types.NewEntryPoint(pkg, "b", "public_api.ts")
	out := ep.CompiledDir(types.DialectES5)
	if err := c.Compile(context.Background(), compiler.Request{Entry: ep, Dialect: types.DialectES5, OutDir: out}); err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(out, "tsconfig.json"))
	if err != nil {
		t.Fatal(err)
	}
	var cfg struct {
		CompilerOptions struct {
			Target  string              `json:"target"`
			OutDir  string              `json:"outDir"`
			RootDir string              `json:"rootDir"`
			Paths   map[string][]string `json:"paths"`
		} `json:"compilerOptions"`
		Files                  []string `json:"files"`
		AngularCompilerOptions struct {
			FlatModuleID      string `json:"flatModuleId"`
			FlatModuleOutFile string `json:"flatModuleOutFile"`
		} `json:"angularCompilerOptions"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		t.Fatal(err)
	}

	if cfg.CompilerOptions.Target != "es5" {
		t.Errorf("expected es5 target, got %q", cfg.CompilerOptions.Target)
	}
	if cfg.CompilerOptions.OutDir != out {
		t.Errorf("expected outDir %s, got %s", out, cfg.CompilerOptions.OutDir)
	}
	if cfg.CompilerOptions.RootDir != ep.SourceDir {
		t.Errorf("expected rootDir %s, got %s", ep.SourceDir, cfg.CompilerOptions.RootDir)
	}
	if got := cfg.CompilerOptions.Paths["@zuz/lib/*"]; len(got) != 1 || got[0] != filepath.Join(pkg.PackagesTemp, "*") {
		t.Errorf("unexpected paths %v", cfg.CompilerOptions.Paths)
	}
	if cfg.AngularCompilerOptions.FlatModuleID != "@zuz/lib/b" {
		t.Errorf("unexpected flatModuleId %q", cfg.AngularCompilerOptions.FlatModuleID)
	}
	if cfg.AngularCompilerOptions.FlatModuleOutFile != "index.js" {
		t.Errorf("unexpected flatModuleOutFile %q", cfg.AngularCompilerOptions.FlatModuleOutFile)
	}
	if len(cfg.Files) != 1 || cfg.Files[0] != filepath.Join(ep.SourceDir, "public_api.ts") {
		t.Errorf("unexpected files %v", cfg.Files)
	}

	log, err := os.ReadFile(filepath.Join(pkg.TempDir, "logs", "lib-b.es5.log"))
	if err != nil {
		t.Fatalf("expected compile log: %v", err)
	}
	if !strings.Contains(string(log), "compiled b") || !strings.Contains(string(log), "SUCCEEDED") {
		t.Errorf("unexpected log %q", log)
	}
}

func TestExec_Failures(t *testing.T) {
	requireShell(t)

	tests := []struct {
		name    string
		command string
		wantErr string
	}{
		{"command fails", "echo broken >&2; exit 3", "broken"},
		{"no index produced", "true", "did not produce"},
		{"unknown field", "echo {{.Nope}}", "Nope"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			pkg := newPackage(t)
			c, err := compiler.NewExec(pkg, tt.command, nil)
			if err != nil {
				t.Fatal(err)
			}

			ep := types.NewEntryPoint(pkg, "", "public_api.ts")
			err = c.Compile(context.Background(), compiler.Request{
				Entry:   ep,
				Dialect: types.DialectES2015,
				OutDir:  ep.CompiledDir(types.DialectES2015),
			})
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNewExec_InvalidTemplate(t *testing.T) {
	_, err := compiler.NewExec(newPackage(t), "ngc -p {{.Project", nil)
	if !errors.Is(err, types.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}
