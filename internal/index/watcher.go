package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/lagu/internal/storage"
)

// Vault change kinds passed to EventCallback.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
// kind is one of ChangeCreated, ChangeUpdated, ChangeDeleted.
type EventCallback func(kind string, path string)

// watcher carries the state shared by the event handlers of one Watch call.
type watcher struct {
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	cb     EventCallback
}

// Watch starts an fsnotify watcher on the vault root and keeps the index in
// step with .md file changes until ctx is cancelled. Hidden directories such
// as .git or .obsidian are not watched.
//
// New directories are added to the watch list as they appear. A rename
// schedules a debounced reconciliation pass that drops index entries whose
// files are gone and indexes files that are not yet known.
func Watch(ctx context.Context, db *DB, store storage.Provider, vaultRoot string, logger *slog.Logger, cb EventCallback) error {
	root, err := filepath.Abs(vaultRoot)
	if err != nil {
		return err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}

	w := &watcher{db: db, store: store, root: root, logger: logger, cb: cb}
	logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time
	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
			return
		}
		reconcileTimer.Reset(reconcileDelay)
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					w.watchNewDir(fw, ev.Name)
					continue
				}
			}
			rel, ok := w.notePath(ev.Name)
			if !ok {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Create|fsnotify.Write) != 0:
				kind := ChangeUpdated
				if ev.Op&fsnotify.Create != 0 {
					kind = ChangeCreated
				}
				w.index(rel, kind)
			case ev.Op&fsnotify.Remove != 0:
				w.remove(rel)
			case ev.Op&fsnotify.Rename != 0:
				// fsnotify reports the old path only; the new one arrives as
				// a Create if it stays inside a watched directory.
				w.remove(rel)
				scheduleReconcile()
			}

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// notePath maps an absolute event path to a vault-relative note path.
// ok is false for non-notes and anything under a hidden directory.
func (w *watcher) notePath(abs string) (string, bool) {
	if !strings.HasSuffix(abs, ".md") {
		return "", false
	}
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return "", false
		}
	}
	return rel, true
}

func (w *watcher) index(rel, kind string) {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	if err := indexFile(w.db, rel, data); err != nil {
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
	w.notify(kind, rel)
}

func (w *watcher) remove(rel string) {
	if err := w.db.DeleteNote(rel); err != nil {
		w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: deleted", slog.String("path", rel))
	w.notify(ChangeDeleted, rel)
}

func (w *watcher) notify(kind, rel string) {
	if w.cb != nil {
		w.cb(kind, rel)
	}
}

// watchNewDir adds a freshly created directory to the watch list and indexes
// any notes that landed in it before the watch was in place.
func (w *watcher) watchNewDir(fw *fsnotify.Watcher, dir string) {
	if strings.HasPrefix(filepath.Base(dir), ".") {
		return
	}
	if err := addDirsRecursive(fw, dir); err != nil {
		w.logger.Warn("watcher: add new dir failed", slog.String("path", dir), slog.String("error", err.Error()))
		return
	}
	w.logger.Debug("watcher: watching new dir", slog.String("path", dir))

	_ = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if rel, ok := w.notePath(p); ok {
			w.index(rel, ChangeCreated)
		}
		return nil
	})
}

// reconcile compares the index with the vault listing and fixes both sides.
func (w *watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			w.remove(p)
		}
	}
	for p, cs := range disk {
		if checksums[p] != cs {
			w.index(p, ChangeCreated)
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(p)
	})
}
