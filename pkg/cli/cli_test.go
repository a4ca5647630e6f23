package cli_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/zuzpack/zuz/internal/state"
	"github.com/zuzpack/zuz/pkg/cli"
	"github.com/zuzpack/zuz/pkg/config"
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

// newProject writes a project file and sources and returns the project file path
func newProject(t *testing.T, sources map[string]string) string {
	t.Helper()
	root := t.TempDir()
	project := filepath.Join(root, "ng-library.json")
	writeFile(t, project, `{
  // comments are allowed
  "name": "@zuz/lib",
  "version": "1.2.3",
  "lib": {"entry": "src/public_api.ts"}
}`)
	for name, content := range sources {
		writeFile(t, filepath.Join(root, "src", name), content)
	}
	return project
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cfg := cli.NewConfig()
	cfg.Version = "1.2.3"
	err := cli.NewCLIWithOutput(cfg, &out, &errOut).Execute(args)
	return out.String(), err
}

// hasRow reports whether output holds a line consisting of the given fields
func hasRow(output string, fields ...string) bool {
	for _, line := range strings.Split(output, "\n") {
		if strings.Join(strings.Fields(line), " ") == strings.Join(fields, " ") {
			return true
		}
	}
	return false
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, cli.ExitOK},
		{"configuration", &config.Error{File: "ng-library.json", Msg: "bad"}, cli.ExitConfiguration},
		{"cycle", fmt.Errorf("plan: %w", types.ErrDependencyCycle), cli.ExitDependencies},
		{"compilation", types.ErrCompilation, cli.ExitFailure},
		{"other", errors.New("boom"), cli.ExitFailure},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := cli.ExitCode(tt.err); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "zuz v1.2.3") {
		t.Errorf("unexpected output %q", out)
	}
}

func TestConfigCommand(t *testing.T) {
	project := newProject(t, map[string]string{"public_api.ts": "export const a = 1;\n"})
	writeFile(t, filepath.Join(filepath.Dir(project), "zuz.yaml"), "concurrency: 3\nnotify: true\n")
	t.Setenv("ZUZ_KEEPTEMP", "true")

	out, err := run(t, "config", "-p", project, "--compiler", "exec")
	if err != nil {
		t.Fatal(err)
	}

	var got config.Settings
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("output is not settings YAML: %v\n%s", err, out)
	}
	if got.Concurrency != 3 || !got.Notify {
		t.Errorf("settings file not applied: %+v", got)
	}
	if !got.KeepTemp {
		t.Errorf("environment not applied: %+v", got)
	}
	if got.Compiler != config.CompilerExec || got.CompileCommand != config.DefaultCompileCommand {
		t.Errorf("flag not applied: %+v", got)
	}
}

func TestConfigCommand_ConcurrencyFlag(t *testing.T) {
	project := newProject(t, map[string]string{"public_api.ts": "export const a = 1;\n"})
	writeFile(t, filepath.Join(filepath.Dir(project), "zuz.yaml"), "concurrency: 3\n")

	out, err := run(t, "config", "-p", project, "--concurrency", "0")
	if err != nil {
		t.Fatal(err)
	}
	var got config.Settings
	if err := yaml.Unmarshal([]byte(out), &got); err != nil {
		t.Fatal(err)
	}
	if got.Concurrency != 0 {
		t.Errorf("expected flag to override the settings file, got %d", got.Concurrency)
	}
}

func TestConfigCommand_InvalidSettings(t *testing.T) {
	project := newProject(t, map[string]string{"public_api.ts": "export const a = 1;\n"})
	writeFile(t, filepath.Join(filepath.Dir(project), "zuz.yaml"), "compiler: gcc\n")

	_, err := run(t, "config", "-p", project)
	if cli.ExitCode(err) != cli.ExitConfiguration {
		t.Errorf("expected configuration exit code, got %v", err)
	}
}

func TestGraphCommand(t *testing.T) {
	project := newProject(t, map[string]string{
		"public_api.ts":   "export * from '@zuz/lib/b';\n",
		"a/public_api.ts": "export const a = 1;\n",
		"b/public_api.ts": "import { a } from '@zuz/lib/a';\nexport const b = a + 1;\n",
		"c/public_api.ts": "export const c = 3;\n",
	})

	out, err := run(t, "graph", "-p", project)
	if err != nil {
		t.Fatal(err)
	}
	for _, row := range [][]string{
		{"0", "a,", "c"},
		{"1", "b"},
		{"2", "<primary>"},
	} {
		if !hasRow(out, row...) {
			t.Errorf("missing row %v in:\n%s", row, out)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(project), "dist")); !os.IsNotExist(err) {
		t.Error("graph wrote output")
	}
}

func TestValidateCommand(t *testing.T) {
	tests := []struct {
		name     string
		sources  map[string]string
		wantCode int
	}{
		{
			name: "valid",
			sources: map[string]string{
				"public_api.ts":   "export * from '@zuz/lib/a';\n",
				"a/public_api.ts": "export const a = 1;\n",
			},
			wantCode: cli.ExitOK,
		},
		{
			name: "cycle",
			sources: map[string]string{
				"public_api.ts":   "export const root = 1;\n",
				"a/public_api.ts": "export * from '@zuz/lib/b';\n",
				"b/public_api.ts": "export * from '@zuz/lib/a';\n",
			},
			wantCode: cli.ExitDependencies,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			project := newProject(t, tt.sources)
			_, err := run(t, "validate", "-p", project)
			if got := cli.ExitCode(err); got != tt.wantCode {
				t.Errorf("expected exit code %d, got %d (%v)", tt.wantCode, got, err)
			}
		})
	}
}

func TestValidateCommand_MissingProject(t *testing.T) {
	_, err := run(t, "validate", "-p", filepath.Join(t.TempDir(), "ng-library.json"))
	if cli.ExitCode(err) != cli.ExitConfiguration {
		t.Errorf("expected configuration exit code, got %v", err)
	}
}

func saveState(t *testing.T, projectDir string, buildErr error) {
	t.Helper()
	pkg := &types.PackageDescriptor{Namespace: "@zuz", Name: "lib", ProjectDir: projectDir, SourceRoot: filepath.Join(projectDir, "src")}
	b := types.NewEntryPoint(pkg, "b", "public_api.ts")

	tr := state.NewTracker(pkg, "build_test", nil)
	tr.WaveStarted(0, []*types.EntryPoint{b})
	status := types.BuildStatusSucceeded
	if buildErr != nil {
		status = types.BuildStatusFailed
	}
	tr.EntryFinished(b, status, buildErr, 0)
	tr.Finish(buildErr)
	if err := tr.Save(); err != nil {
		t.Fatal(err)
	}
}

func TestStatusCommand(t *testing.T) {
	project := newProject(t, map[string]string{"public_api.ts": "export const a = 1;\n"})

	out, err := run(t, "status", "-p", project)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No build recorded") {
		t.Errorf("unexpected output %q", out)
	}

	saveState(t, filepath.Dir(project), errors.New("TS2304: cannot find name"))
	out, err = run(t, "status", "-p", project)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "@zuz/lib") || !strings.Contains(out, "TS2304") {
		t.Errorf("missing build summary in %q", out)
	}
	if !hasRow(out, "b", "0", "failed", "-") {
		t.Errorf("missing entry row in:\n%s", out)
	}
}

func TestWaitCommand(t *testing.T) {
	t.Run("succeeded", func(t *testing.T) {
		project := newProject(t, map[string]string{"public_api.ts": "export const a = 1;\n"})
		saveState(t, filepath.Dir(project), nil)
		out, err := run(t, "wait", "-p", project)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(out, "build_test") {
			t.Errorf("unexpected output %q", out)
		}
	})

	t.Run("failed", func(t *testing.T) {
		project := newProject(t, map[string]string{"public_api.ts": "export const a = 1;\n"})
		saveState(t, filepath.Dir(project), errors.New("boom"))
		_, err := run(t, "wait", "-p", project)
		if !errors.Is(err, cli.ErrBuildFailed) || cli.ExitCode(err) != cli.ExitFailure {
			t.Errorf("expected failed build, got %v", err)
		}
	})

	t.Run("interrupted", func(t *testing.T) {
		project := newProject(t, map[string]string{"public_api.ts": "export const a = 1;\n"})
		writeFile(t, filepath.Join(state.Dir(filepath.Dir(project)), state.FileName),
			`{"buildId": "build_dead", "package": "@zuz/lib", "processId": 1073741824, "status": "building"}`)
		_, err := run(t, "wait", "-p", project, "--poll-interval", "10ms")
		if !errors.Is(err, cli.ErrBuildFailed) || !strings.Contains(err.Error(), "exited") {
			t.Errorf("expected interrupted build, got %v", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		project := newProject(t, map[string]string{"public_api.ts": "export const a = 1;\n"})
		_, err := run(t, "wait", "-p", project, "--timeout", "50ms", "--poll-interval", "10ms")
		if err == nil || !strings.Contains(err.Error(), "timed out") {
			t.Errorf("expected timeout, got %v", err)
		}
	})
}

func TestInitCommand(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "package.json"), `{"name": "@zuz/widgets", "version": "0.3.0"}`)
	writeFile(t, filepath.Join(dir, "src", "public_api.ts"), "export const w = 1;\n")
	project := filepath.Join(dir, "ng-library.json")

	if _, err := run(t, "init", "-p", project); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	pkg, err := config.Load(project)
	if err != nil {
		t.Fatalf("generated project file does not load: %v", err)
	}
	if pkg.ImportName() != "@zuz/widgets" || pkg.Version != "0.3.0" || pkg.EntryFile != "public_api.ts" {
		t.Errorf("unexpected descriptor %+v", pkg)
	}
	if _, err := os.Stat(filepath.Join(dir, "zuz.yaml")); err != nil {
		t.Errorf("settings file not written: %v", err)
	}

	if _, err := run(t, "init", "-p", project); cli.ExitCode(err) != cli.ExitConfiguration {
		t.Errorf("expected existing project file to be kept, got %v", err)
	}
	if _, err := run(t, "init", "-p", project, "--force"); err != nil {
		t.Errorf("init --force failed: %v", err)
	}
}

func TestInitCommand_NoName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "index.ts"), "export const w = 1;\n")

	_, err := run(t, "init", "-p", filepath.Join(dir, "ng-library.json"))
	var cfgErr *config.Error
	if !errors.As(err, &cfgErr) || cfgErr.Field != "name" {
		t.Errorf("expected missing name error, got %v", err)
	}
}

func TestBuildCommand(t *testing.T) {
	project := newProject(t, map[string]string{
		"public_api.ts": "export const answer: number = 42;\n",
	})

	out, err := run(t, "-p", project)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}
	if !strings.Contains(out, "@zuz/lib 1.2.3: 1 entry point(s) in 1 wave(s)") {
		t.Errorf("unexpected output %q", out)
	}

	dist := filepath.Join(filepath.Dir(project), "dist")
	for _, rel := range []string{"bundles/lib.umd.js", "bundles/lib.umd.min.js", "esm5/lib.es5.js", "esm2015/lib.js", "package.json"} {
		if _, err := os.Stat(filepath.Join(dist, rel)); err != nil {
			t.Errorf("expected %s: %v", rel, err)
		}
	}

	out, err = run(t, "status", "-p", project)
	if err != nil {
		t.Fatal(err)
	}
	if row := findRow(out, "<primary>"); len(row) != 4 || row[1] != "0" || row[2] != "succeeded" {
		t.Errorf("missing primary row in:\n%s", out)
	}
}

// findRow returns the fields of the first line starting with first
func findRow(output, first string) []string {
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == first {
			return fields
		}
	}
	return nil
}
