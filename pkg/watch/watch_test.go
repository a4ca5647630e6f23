package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zuzpack/zuz/pkg/watch"
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

func startWatcher(t *testing.T, root string, skip ...string) <-chan []string {
	t.Helper()
	w, err := watch.New(root, skip, 50*time.Millisecond, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	batches := make(chan []string, 10)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx, func(_ context.Context, changed []string) {
			batches <- changed
		})
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return batches
}

func TestWatcher_SettledBatch(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b", "b.ts"), "export const b = 1;")
	batches := startWatcher(t, root)

	writeFile(t, filepath.Join(root, "a.ts"), "export const a = 1;")
	writeFile(t, filepath.Join(root, "b", "b.ts"), "export const b = 2;")

	seen := map[string]bool{}
	timeout := time.After(5 * time.Second)
	for !seen[filepath.Join(root, "a.ts")] || !seen[filepath.Join(root, "b", "b.ts")] {
		select {
		case batch := <-batches:
			for _, path := range batch {
				seen[path] = true
			}
		case <-timeout:
			t.Fatalf("timeout waiting for changes, saw %v", seen)
		}
	}
}

func TestWatcher_IgnoresExcludedPaths(t *testing.T) {
	root := t.TempDir()
	out := filepath.Join(root, "dist")
	for _, dir := range []string{out, filepath.Join(root, ".cache"), filepath.Join(root, "node_modules")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatal(err)
		}
	}
	batches := startWatcher(t, root, out)

	writeFile(t, filepath.Join(out, "lib.js"), "x")
	writeFile(t, filepath.Join(root, ".cache", "x"), "x")
	writeFile(t, filepath.Join(root, "node_modules", "x.js"), "x")
	writeFile(t, filepath.Join(root, "src.ts"), "x")

	select {
	case batch := <-batches:
		for _, path := range batch {
			if path != filepath.Join(root, "src.ts") {
				t.Errorf("unexpected change %s", path)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for changes")
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	root := t.TempDir()
	batches := startWatcher(t, root)

	dir := filepath.Join(root, "c")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatal(err)
	}
	// let the watcher pick up the new directory
	time.Sleep(200 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "c.ts"), "export const c = 1;")

	timeout := time.After(5 * time.Second)
	for {
		select {
		case batch := <-batches:
			for _, path := range batch {
				if path == filepath.Join(dir, "c.ts") {
					return
				}
			}
		case <-timeout:
			t.Fatal("timeout waiting for change in new directory")
		}
	}
}
