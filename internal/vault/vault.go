// Package vault adapts vault storage to the capabilities a study session
// consumes: reading note content and reading or writing the progress header.
package vault

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/starford/lagu/internal/apperr"
	"github.com/starford/lagu/internal/frontmatter"
	"github.com/starford/lagu/internal/models"
	"github.com/starford/lagu/internal/storage"
)

// Vault reads and updates notes through a storage.Provider.
type Vault struct {
	store storage.Provider
}

// New creates a Vault over store.
func New(store storage.Provider) *Vault {
	return &Vault{store: store}
}

// ReadContent returns the raw content of note.
func (v *Vault) ReadContent(ctx context.Context, note models.NoteRef) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := v.store.Read(note.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("vault: %s: %w", note.Path, apperr.ErrNotFound)
		}
		return nil, err
	}
	return data, nil
}

// ReadStatus returns the flags persisted in the note header. found is false
// when the note has never been written by a session.
func (v *Vault) ReadStatus(ctx context.Context, note models.NoteRef) (st models.Status, found bool, err error) {
	data, err := v.ReadContent(ctx, note)
	if err != nil {
		return models.Status{}, false, err
	}
	st, found, err = frontmatter.Read(data)
	if err != nil {
		return models.Status{}, false, fmt.Errorf("vault: %s: %w", note.Path, err)
	}
	return st, found, nil
}

// WriteStatus rewrites the note header with st. A malformed header aborts
// the write and leaves the file untouched.
func (v *Vault) WriteStatus(ctx context.Context, note models.NoteRef, st models.Status) error {
	data, err := v.ReadContent(ctx, note)
	if err != nil {
		return err
	}
	updated, err := frontmatter.Apply(data, st)
	if err != nil {
		return fmt.Errorf("vault: %s: %w", note.Path, err)
	}
	if bytes.Equal(updated, data) {
		return nil
	}
	return v.store.Write(note.Path, updated)
}
