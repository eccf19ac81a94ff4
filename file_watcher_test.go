package beacon

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func readNext(t *testing.T, ch <-chan []byte, timeout time.Duration) ([]byte, bool) {
	t.Helper()
	select {
	case data, ok := <-ch:
		return data, ok
	case <-time.After(timeout):
		return nil, false
	}
}

func TestFileWatcher_EmitsInitialContents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depot.json")
	content := []byte(`{"marker": {"title": "Depot"}}`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	data, ok := readNext(t, ch, time.Second)
	if !ok {
		t.Fatal("timeout waiting for initial content")
	}
	if !bytes.Equal(data, content) {
		t.Errorf("expected %q, got %q", content, data)
	}
}

func TestFileWatcher_EmitsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depot.yaml")
	if err := os.WriteFile(path, []byte("marker: {title: a}"), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ch, err := NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if _, ok := readNext(t, ch, time.Second); !ok {
		t.Fatal("timeout waiting for initial content")
	}

	updated := []byte("marker: {title: b}")
	if err := os.WriteFile(path, updated, 0o600); err != nil {
		t.Fatalf("failed to update file: %v", err)
	}
	data, ok := readNext(t, ch, 2*time.Second)
	if !ok {
		t.Fatal("timeout waiting for change")
	}
	if !bytes.Equal(data, updated) {
		t.Errorf("expected %q, got %q", updated, data)
	}
}

func TestFileWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "depot.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ch, err := NewFileWatcher(path).Watch(ctx)
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	readNext(t, ch, time.Second)

	if err := os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{"x": 1}`), 0o600); err != nil {
		t.Fatalf("failed to write sibling: %v", err)
	}
	if data, ok := readNext(t, ch, 200*time.Millisecond); ok {
		t.Errorf("expected no emission for a sibling file, got %q", data)
	}
}

func TestFileWatcher_MissingDirectory(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := NewFileWatcher("/nonexistent/path/depot.json").Watch(ctx); err == nil {
		t.Error("expected error for a missing directory")
	}
}

func TestFileWatcher_Path(t *testing.T) {
	w := NewFileWatcher("markers/../markers/depot.json")
	if w.Path() != filepath.Join("markers", "depot.json") {
		t.Errorf("expected cleaned path, got %q", w.Path())
	}
}
