package sourcemap_test

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/zuzpack/zuz/pkg/logger"
	"github.com/zuzpack/zuz/pkg/sourcemap"
)

func TestVLQ(t *testing.T) {
	tests := []struct {
		value int
		want  string
	}{
		{0, "A"},
		{1, "C"},
		{-1, "D"},
		{15, "e"},
		{16, "gB"},
		{-16, "hB"},
		{1000, "w+B"},
	}

	for _, tt := range tests {
		var b strings.Builder
		sourcemap.EncodeVLQ(&b, tt.value)
		if got := b.String(); got != tt.want {
			t.Errorf("EncodeVLQ(%d) = %q, want %q", tt.value, got, tt.want)
		}

		v, n, err := sourcemap.DecodeVLQ(tt.want)
		if err != nil || v != tt.value || n != len(tt.want) {
			t.Errorf("DecodeVLQ(%q) = %d, %d, %v", tt.want, v, n, err)
		}
	}

	if _, _, err := sourcemap.DecodeVLQ("g"); err == nil {
		t.Error("expected error for unterminated value")
	}
	if _, _, err := sourcemap.DecodeVLQ("!"); err == nil {
		t.Error("expected error for invalid character")
	}
}

func TestDecodeMappings(t *testing.T) {
	lines, err := sourcemap.DecodeMappings("AAAA,QACA;;EACEC")
	if err != nil {
		t.Fatalf("DecodeMappings failed: %v", err)
	}

	want := sourcemap.Lines{
		{
			{GenColumn: 0, Source: 0, Line: 0, Column: 0, Name: -1},
			{GenColumn: 8, Source: 0, Line: 1, Column: 0, Name: -1},
		},
		nil,
		{
			{GenColumn: 2, Source: 0, Line: 2, Column: 2, Name: 1},
		},
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	if got := sourcemap.EncodeMappings(lines); got != "AAAA,QACA;;EACEC" {
		t.Errorf("EncodeMappings = %q", got)
	}
}

func TestDecodeMappings_Unmapped(t *testing.T) {
	lines, err := sourcemap.DecodeMappings("A,CAAA")
	if err != nil {
		t.Fatal(err)
	}
	if lines[0][0].Mapped() {
		t.Error("single-field segment must be unmapped")
	}
	if !lines[0][1].Mapped() {
		t.Error("four-field segment must be mapped")
	}
	if _, err := sourcemap.DecodeMappings("AA"); err == nil {
		t.Error("expected error for two-field segment")
	}
}

func TestLookup(t *testing.T) {
	lines, _ := sourcemap.DecodeMappings("AAAA,QACA")

	if seg, ok := lines.Lookup(0, 5); !ok || seg.GenColumn != 0 {
		t.Errorf("Lookup(0,5) = %+v, %v", seg, ok)
	}
	if seg, ok := lines.Lookup(0, 20); !ok || seg.GenColumn != 8 {
		t.Errorf("Lookup(0,20) = %+v, %v", seg, ok)
	}
	if _, ok := lines.Lookup(3, 0); ok {
		t.Error("expected no segment past the last line")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readMap(t *testing.T, path string) *sourcemap.Map {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	m, err := sourcemap.Parse(data)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// writeChain lays out src/a.ts -> build/mid.js -> bundles/top.js
func writeChain(t *testing.T, dir string) string {
	t.Helper()
	writeFile(t, filepath.Join(dir, "src", "a.ts"), "const a = 1;\nconst b = 2;\n")

	writeFile(t, filepath.Join(dir, "build", "mid.js"), "var a=1;\nvar b=2;\n//# sourceMappingURL=mid.js.map\n")
	writeFile(t, filepath.Join(dir, "build", "mid.js.map"),
		`{"version":3,"sources":["../src/a.ts"],"names":[],"mappings":"AAAA;AACA"}`)

	top := filepath.Join(dir, "bundles", "top.js")
	writeFile(t, top, "var a=1,b=2;\n//# sourceMappingURL=top.js.map\n")
	writeFile(t, top+".map",
		`{"version":3,"file":"top.js","sources":["../build/mid.js"],"names":[],"mappings":"AAAA,QACA,KAKA"}`)
	return top
}

func TestRemap_Chain(t *testing.T) {
	dir := t.TempDir()
	top := writeChain(t, dir)

	if err := sourcemap.NewRemapper(nil).Remap(context.Background(), top); err != nil {
		t.Fatalf("Remap failed: %v", err)
	}

	m := readMap(t, top+".map")
	if diff := cmp.Diff([]string{"../src/a.ts"}, m.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}
	// the third segment points at a line mid.js does not map and is dropped
	if m.Mappings != "AAAA,QACA" {
		t.Errorf("unexpected mappings %q", m.Mappings)
	}
	if content, ok := m.Content(0); !ok || content != "const a = 1;\nconst b = 2;\n" {
		t.Errorf("unexpected sources content %q", content)
	}
	if m.File != "top.js" {
		t.Errorf("expected file to be kept, got %q", m.File)
	}
}

func TestRemap_Idempotent(t *testing.T) {
	dir := t.TempDir()
	top := writeChain(t, dir)
	r := sourcemap.NewRemapper(nil)

	if err := r.Remap(context.Background(), top); err != nil {
		t.Fatal(err)
	}
	first, _ := os.ReadFile(top + ".map")

	if err := r.Remap(context.Background(), top); err != nil {
		t.Fatal(err)
	}
	second, _ := os.ReadFile(top + ".map")

	if !bytes.Equal(first, second) {
		t.Errorf("remap is not idempotent:\n%s\n%s", first, second)
	}
}

func TestRemap_EmbeddedContent(t *testing.T) {
	dir := t.TempDir()
	top := filepath.Join(dir, "top.js")
	writeFile(t, top, "x\n")
	writeFile(t, top+".map",
		`{"version":3,"sources":["gone.ts"],"sourcesContent":["let x;"],"names":["x"],"mappings":"AAAAA"}`)

	if err := sourcemap.NewRemapper(nil).Remap(context.Background(), top); err != nil {
		t.Fatalf("Remap failed: %v", err)
	}

	m := readMap(t, top+".map")
	if content, ok := m.Content(0); !ok || content != "let x;" {
		t.Errorf("expected embedded content to survive, got %q", content)
	}
	if diff := cmp.Diff([]string{"x"}, m.Names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestRemap_InlineMap(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.ts"), "let a;\n")
	inline := base64.StdEncoding.EncodeToString([]byte(`{"version":3,"sources":["a.ts"],"names":[],"mappings":"AAAA"}`))
	top := filepath.Join(dir, "a.js")
	writeFile(t, top, "var a;\n//# sourceMappingURL=data:application/json;base64,"+inline+"\n")

	if err := sourcemap.NewRemapper(nil).Remap(context.Background(), top); err != nil {
		t.Fatalf("Remap failed: %v", err)
	}

	data, _ := os.ReadFile(top)
	match := regexp.MustCompile(`base64,(\S+)`).FindSubmatch(data)
	if match == nil {
		t.Fatalf("inline map missing from %q", data)
	}
	decoded, err := base64.StdEncoding.DecodeString(string(match[1]))
	if err != nil {
		t.Fatal(err)
	}
	m, err := sourcemap.Parse(decoded)
	if err != nil {
		t.Fatal(err)
	}
	if content, ok := m.Content(0); !ok || content != "let a;\n" {
		t.Errorf("expected source content to be inlined, got %q", content)
	}
	if !strings.HasPrefix(string(data), "var a;\n") {
		t.Error("code was modified")
	}
}

func TestRemap_LogsEveryMapKind(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, dir string) string
	}{
		{"linked", writeChain},
		{"inline", func(t *testing.T, dir string) string {
			writeFile(t, filepath.Join(dir, "a.ts"), "let a;\n")
			inline := base64.StdEncoding.EncodeToString([]byte(`{"version":3,"sources":["a.ts"],"names":[],"mappings":"AAAA"}`))
			top := filepath.Join(dir, "top.js")
			writeFile(t, top, "var a;\n//# sourceMappingURL=data:application/json;base64,"+inline+"\n")
			return top
		}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			top := tt.setup(t, t.TempDir())

			var buf bytes.Buffer
			r := sourcemap.NewRemapper(logger.CreateLoggerWithOutput("", "debug", &buf))
			if err := r.Remap(context.Background(), top); err != nil {
				t.Fatalf("Remap failed: %v", err)
			}

			out := buf.String()
			if !strings.Contains(out, "remapped source map") || !strings.Contains(out, "file=top.js") {
				t.Errorf("expected remap to be logged, got %q", out)
			}
		})
	}
}

func TestMap_Rebase(t *testing.T) {
	from := filepath.Join("/", "p", "dist", "temp", "bundles")
	to := filepath.Join("/", "p", "dist", "bundles")
	m := &sourcemap.Map{
		Version: 3,
		Sources: []string{"../../../src/greet.ts", "webpack://lib/x.ts", "/abs/y.ts"},
	}

	m.Rebase(from, to)

	want := []string{"../../src/greet.ts", "webpack://lib/x.ts", "../../../abs/y.ts"}
	if diff := cmp.Diff(want, m.Sources); diff != "" {
		t.Errorf("sources mismatch (-want +got):\n%s", diff)
	}

	rooted := &sourcemap.Map{Version: 3, SourceRoot: "../../../src/", Sources: []string{"greet.ts"}}
	rooted.Rebase(from, filepath.Join(from, "lib"))
	if diff := cmp.Diff([]string{"../../../../src/greet.ts"}, rooted.Sources); diff != "" || rooted.SourceRoot != "" {
		t.Errorf("unexpected rooted rebase %v (root %q)", rooted.Sources, rooted.SourceRoot)
	}
}

func TestRemap_NoMap(t *testing.T) {
	top := filepath.Join(t.TempDir(), "plain.js")
	writeFile(t, top, "var a;\n")

	if err := sourcemap.NewRemapper(nil).Remap(context.Background(), top); err == nil {
		t.Error("expected error for file without source map")
	}
}

func TestShiftLines(t *testing.T) {
	m := &sourcemap.Map{Version: 3, Mappings: "AAAA"}
	m.ShiftLines(2)
	if m.Mappings != ";;AAAA" {
		t.Errorf("unexpected mappings %q", m.Mappings)
	}
}
