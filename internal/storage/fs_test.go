package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func tempVault(t *testing.T) *FS {
	t.Helper()
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempVault(t)
	content := []byte("---\nread: false\nnext: true\n---\n# Sets\n")
	if err := s.Write("Sets.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("Sets.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWriteCreatesSubdirs(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("algebra/groups/Cosets.md", []byte("deep")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("algebra/groups/Cosets.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != "deep" {
		t.Errorf("content = %q", got)
	}
}

func TestWriteKeepsPermissions(t *testing.T) {
	s := tempVault(t)
	abs := filepath.Join(s.Root(), "perm.md")
	if err := os.WriteFile(abs, []byte("v1"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("perm.md", []byte("v2")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v, want 0600", info.Mode().Perm())
	}
}

func TestList(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))
	if err := os.WriteFile(filepath.Join(s.Root(), "readme.txt"), []byte("not md"), 0o644); err != nil {
		t.Fatal(err)
	}
	_ = s.Write(".obsidian/workspace.md", []byte("hidden"))

	items, err := s.List("")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	paths := map[string]bool{}
	for _, it := range items {
		paths[it.Path] = true
		if it.Checksum == "" {
			t.Errorf("missing checksum for %s", it.Path)
		}
	}
	if !paths["a.md"] || !paths["sub/b.md"] {
		t.Errorf("paths = %v", paths)
	}
}

func TestListSubdir(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("sub/b.md", []byte("b"))

	items, err := s.List("sub")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 1 || items[0].Path != "sub/b.md" {
		t.Errorf("items = %+v", items)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempVault(t)

	for _, p := range []string{"../../etc/passwd", "../outside.md", "/etc/shadow"} {
		if _, err := s.Read(p); err == nil {
			t.Errorf("expected error for path %q", p)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
	if err := s.Write("../outside.md", []byte("x")); !errors.Is(err, ErrOutsideVault) {
		t.Errorf("err = %v, want ErrOutsideVault", err)
	}
}

func TestWriteOnlyNotes(t *testing.T) {
	s := tempVault(t)
	if err := s.Write("image.png", []byte("x")); err == nil {
		t.Error("expected error for non-note write")
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "image.png")); !os.IsNotExist(err) {
		t.Errorf("non-note file was created: %v", err)
	}
}

func TestWriteUnchangedContentLeavesFile(t *testing.T) {
	s := tempVault(t)
	abs := filepath.Join(s.Root(), "Sets.md")
	if err := s.Write("Sets.md", []byte("same")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	if err := os.Chtimes(abs, old, old); err != nil {
		t.Fatal(err)
	}

	if err := s.Write("Sets.md", []byte("same")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		t.Fatal(err)
	}
	if !info.ModTime().Equal(old) {
		t.Errorf("unchanged write touched the file: mtime %v, want %v", info.ModTime(), old)
	}

	if err := s.Write("Sets.md", []byte("changed")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, _ := s.Read("Sets.md"); string(got) != "changed" {
		t.Errorf("content = %q", got)
	}
}

func TestAtomicWriteLeavesNoTempFiles(t *testing.T) {
	s := tempVault(t)
	_ = s.Write("atomic.md", []byte("original content"))
	if err := s.Write("atomic.md", []byte("updated content")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != "updated content" {
		t.Errorf("expected updated content, got %q", got)
	}
	matches, _ := filepath.Glob(filepath.Join(s.root, ".lagu-tmp-*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestChecksumStable(t *testing.T) {
	a := Checksum([]byte("same"))
	if a != Checksum([]byte("same")) {
		t.Error("checksum not deterministic")
	}
	if a == Checksum([]byte("other")) {
		t.Error("different content produced same checksum")
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for non-existent dir")
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(f, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(f); err == nil {
		t.Error("expected error when root is a file")
	}
}
