package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/lagu/internal/models"
)

const noteExt = ".md"

// ErrOutsideVault is returned for paths that are absolute or climb out of
// the vault root.
var ErrOutsideVault = errors.New("storage: path outside vault")

// FS implements Provider over a directory of Markdown notes.
type FS struct {
	root string // absolute
}

// NewFS returns an FS rooted at root, which must be an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute vault directory.
func (f *FS) Root() string {
	return f.root
}

// resolve maps a vault-relative path to an absolute one. The empty path is
// the root itself.
func (f *FS) resolve(rel string) (string, error) {
	if rel == "" || rel == "." {
		return f.root, nil
	}
	local := filepath.FromSlash(rel)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %s", ErrOutsideVault, rel)
	}
	return filepath.Join(f.root, local), nil
}

// List returns every note under dir with its checksum and modification
// time. Hidden directories such as .obsidian or .git are skipped.
func (f *FS) List(dir string) ([]models.NoteMetadata, error) {
	base, err := f.resolve(dir)
	if err != nil {
		return nil, err
	}
	var notes []models.NoteMetadata
	walk := func(p string, d fs.DirEntry, walkErr error) error {
		switch {
		case walkErr != nil:
			return walkErr
		case d.IsDir() && p != base && strings.HasPrefix(d.Name(), "."):
			return filepath.SkipDir
		case d.IsDir() || filepath.Ext(d.Name()) != noteExt:
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		sum, err := fileChecksum(p)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		notes = append(notes, models.NoteMetadata{
			Path:      filepath.ToSlash(rel),
			Checksum:  sum,
			UpdatedAt: info.ModTime(),
		})
		return nil
	}
	if err := filepath.WalkDir(base, walk); err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	return notes, nil
}

// Read returns the raw bytes of the note at path.
func (f *FS) Read(path string) ([]byte, error) {
	abs, err := f.resolve(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Write replaces the note at path with content. Only .md files can be
// written. Content equal to what is on disk leaves the file untouched;
// otherwise the file is swapped in atomically and keeps its permission bits.
func (f *FS) Write(path string, content []byte) error {
	if filepath.Ext(path) != noteExt {
		return fmt.Errorf("storage: not a note: %s", path)
	}
	abs, err := f.resolve(path)
	if err != nil {
		return err
	}

	perm := os.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		current, err := os.ReadFile(abs)
		if err == nil && bytes.Equal(current, content) {
			return nil
		}
		perm = info.Mode().Perm()
	} else if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("storage: mkdir for %s: %w", path, err)
	}

	if err := replaceFile(abs, content, perm); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// replaceFile writes content to a temp file beside abs, syncs it and renames
// it over abs.
func replaceFile(abs string, content []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(abs), ".lagu-tmp-*")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp.Name(), perm); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), abs)
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func fileChecksum(p string) (string, error) {
	file, err := os.Open(p)
	if err != nil {
		return "", err
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
