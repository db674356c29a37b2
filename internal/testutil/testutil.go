// Package testutil provides shared test helpers for setting up vaults,
// indexes and study services.
package testutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/storage"
	"github.com/starford/lagu/internal/study"
	"github.com/starford/lagu/internal/studyservice"
	"github.com/starford/lagu/internal/vault"
)

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestDB creates a temporary SQLite database that is closed on cleanup.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "lagu-test.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// WriteNotes writes notes keyed by vault-relative path under dir.
func WriteNotes(t *testing.T, dir string, notes map[string]string) {
	t.Helper()
	for rel, content := range notes {
		p := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// Env is a vault, its synced index and a study service over both.
type Env struct {
	Dir     string
	Store   storage.Provider
	DB      *index.DB
	Engine  *study.Engine
	Service *studyservice.Service
}

// NewEnv writes notes into a fresh vault, indexes it and wires an engine
// recording its history in the index.
func NewEnv(t *testing.T, notes map[string]string, cfg study.Config, opts ...study.Option) *Env {
	t.Helper()
	dir, store := TestVault(t)
	WriteNotes(t, dir, notes)
	db := TestDB(t)
	if err := index.Sync(db, store, Logger()); err != nil {
		t.Fatal(err)
	}

	opts = append([]study.Option{study.WithLogger(Logger()), study.WithRecorder(db)}, opts...)
	engine := study.New(vault.New(store), cfg, opts...)
	return &Env{
		Dir:     dir,
		Store:   store,
		DB:      db,
		Engine:  engine,
		Service: studyservice.New(db, engine, ""),
	}
}

// ReadFile returns the content of a vault file.
func (e *Env) ReadFile(t *testing.T, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(e.Dir, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
