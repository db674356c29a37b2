package index

import (
	"context"

	"github.com/starford/lagu/internal/models"
)

// NoteIndex defines the index operations used outside this package.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with fakes.
type NoteIndex interface {
	UpsertNote(n NoteRow, links []string) error
	DeleteNote(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Backlinks(target string) ([]string, error)
	Scope(ctx context.Context, f ScopeFilter) ([]models.NoteRef, error)
	FindNote(ctx context.Context, id string) (models.NoteRef, error)
	GraphView(ctx context.Context, f ScopeFilter) ([]GraphNode, []GraphLink, error)
	RecordEvent(ctx context.Context, ev StudyEvent) error
	History(ctx context.Context, sessionID string, limit int) ([]StudyEvent, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
