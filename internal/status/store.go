// Package status keeps the read/next flags of a study session in memory and
// mirrors every change to the note's persisted header.
package status

import (
	"context"
	"fmt"
	"maps"

	"github.com/starford/lagu/internal/models"
)

// Writer persists the flags of one note.
type Writer interface {
	WriteStatus(ctx context.Context, note models.NoteRef, st models.Status) error
}

// Store is the authoritative flag table of a session. It is not safe for
// concurrent use; the owning session serialises access.
type Store struct {
	w     Writer
	order []string
	notes map[string]models.NoteRef
	flags map[string]models.Status
}

// NewStore returns an empty store writing through to w. A nil w keeps the
// store purely in memory.
func NewStore(w Writer) *Store {
	return &Store{
		w:     w,
		notes: make(map[string]models.NoteRef),
		flags: make(map[string]models.Status),
	}
}

// Set overwrites both flags of note and writes them through. The in-memory
// value is updated even when the write-through fails; that error is returned.
func (s *Store) Set(ctx context.Context, note models.NoteRef, read, next bool) error {
	if _, ok := s.flags[note.ID]; !ok {
		s.order = append(s.order, note.ID)
	}
	st := models.Status{Read: read, Next: next}
	s.notes[note.ID] = note
	s.flags[note.ID] = st

	if s.w == nil {
		return nil
	}
	if err := s.w.WriteStatus(ctx, note, st); err != nil {
		return fmt.Errorf("status: write %s: %w", note.Path, err)
	}
	return nil
}

// Get returns the flags of id. ok is false if id was never set; callers
// treat that as both flags false.
func (s *Store) Get(id string) (st models.Status, ok bool) {
	st, ok = s.flags[id]
	return st, ok
}

// Ref returns the note reference recorded for id.
func (s *Store) Ref(id string) (models.NoteRef, bool) {
	ref, ok := s.notes[id]
	return ref, ok
}

// Snapshot returns a copy of every recorded flag pair.
func (s *Store) Snapshot() map[string]models.Status {
	return maps.Clone(s.flags)
}

// Next returns the notes currently unlocked, in the order they were first set.
func (s *Store) Next() []string {
	var out []string
	for _, id := range s.order {
		if s.flags[id].Next {
			out = append(out, id)
		}
	}
	return out
}

// Len returns the number of notes recorded.
func (s *Store) Len() int {
	return len(s.flags)
}

// Reset forgets every note. Persisted headers are left as they are.
func (s *Store) Reset() {
	s.order = nil
	clear(s.notes)
	clear(s.flags)
}
