package index

import (
	"log/slog"
	"time"

	"github.com/starford/lagu/internal/parser"
	"github.com/starford/lagu/internal/storage"
)

// Sync walks the vault and brings the index up to date:
//   - new/changed files are parsed and upserted
//   - files removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	indexed := 0
	for _, m := range metas {
		disk[m.Path] = struct{}{}
		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := indexFile(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		indexed++
	}

	removed := 0
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := db.DeleteNote(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	logger.Info("sync: done",
		slog.Int("notes", len(metas)),
		slog.Int("indexed", indexed),
		slog.Int("removed", removed))
	return nil
}

// indexFile parses data and upserts it into the DB under path.
func indexFile(db *DB, path string, data []byte) error {
	res, err := parser.Parse(data)
	if err != nil {
		return err
	}
	return db.UpsertNote(NoteRow{
		Path:      path,
		ID:        parser.NoteID(path),
		Title:     res.Title,
		Checksum:  storage.Checksum(data),
		Tags:      res.Tags,
		UpdatedAt: time.Now(),
	}, res.Links)
}
