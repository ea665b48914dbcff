package persistence_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/zuriscript/signalstory-sub000/persistence"
)

func writeTestFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileStore_List_MissingRoot(t *testing.T) {
	s := persistence.NewFileStore(filepath.Join(t.TempDir(), "nonexistent"))

	keys, err := s.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("List() returned %d keys, want 0", len(keys))
	}
}

func TestFileStore_List_SkipsHiddenAndForeign(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, root, "visible.json", "{}")
	writeTestFile(t, root, "notes.txt", "not state")
	writeTestFile(t, root, ".hidden.json", "{}")
	writeTestFile(t, root, ".cache/inner.json", "{}")

	keys, err := persistence.NewFileStore(root).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "visible" {
		t.Errorf("List() = %v, want [visible]", keys)
	}
}

func TestFileStore_Save_Layout(t *testing.T) {
	root := t.TempDir()
	s := persistence.NewFileStore(root)

	err := s.Save(context.Background(), persistence.Entry{Key: "signalstory/counter", Value: []byte(`1`)})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(root, "signalstory", "counter.json"))
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "1" {
		t.Errorf("file content = %q, want 1", data)
	}

	entries, _ := os.ReadDir(filepath.Join(root, "signalstory"))
	if len(entries) != 1 {
		t.Errorf("directory holds %d files, want 1 (no temp files left)", len(entries))
	}
}

func TestFileStore_Delete_RemovesEmptyDirs(t *testing.T) {
	root := t.TempDir()
	s := persistence.NewFileStore(root)
	ctx := context.Background()

	s.Save(ctx, persistence.Entry{Key: "a/b/c", Value: []byte("x")})
	if err := s.Delete(ctx, "a/b/c"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := os.Stat(filepath.Join(root, "a")); !os.IsNotExist(err) {
		t.Errorf("empty parent directories were not removed: %v", err)
	}
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root was removed: %v", err)
	}
}
