package index

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/lagu/internal/apperr"
	"github.com/starford/lagu/internal/models"
)

// ScopeFilter bounds the notes of a graph view. Empty fields match everything.
type ScopeFilter struct {
	// Folder restricts the scope to notes under this vault-relative folder.
	Folder string `json:"folder,omitempty"`
	// Tag restricts the scope to notes carrying this tag.
	Tag string `json:"tag,omitempty"`
}

// GraphNode is a note in a graph view.
type GraphNode struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Title string `json:"title,omitempty"`
}

// GraphLink is an edge in a graph view: Source links to Target.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Scope returns the notes matched by f ordered by path.
func (db *DB) Scope(ctx context.Context, f ScopeFilter) ([]models.NoteRef, error) {
	nodes, err := db.scopeNodes(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]models.NoteRef, len(nodes))
	for i, n := range nodes {
		out[i] = models.NoteRef{ID: n.ID, Path: n.Path}
	}
	return out, nil
}

// GraphView returns the notes matched by f and the links between them.
func (db *DB) GraphView(ctx context.Context, f ScopeFilter) ([]GraphNode, []GraphLink, error) {
	nodes, err := db.scopeNodes(ctx, f)
	if err != nil {
		return nil, nil, err
	}

	byPath := make(map[string]string, len(nodes))
	ids := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		byPath[n.Path] = n.ID
		ids[n.ID] = struct{}{}
	}

	rows, err := db.conn.QueryContext(ctx, `SELECT source, target FROM links ORDER BY source, target`)
	if err != nil {
		return nil, nil, fmt.Errorf("index: graph links: %w", err)
	}
	defer rows.Close()

	links := []GraphLink{}
	for rows.Next() {
		var source, target string
		if err := rows.Scan(&source, &target); err != nil {
			return nil, nil, err
		}
		srcID, ok := byPath[source]
		if !ok {
			continue
		}
		if _, ok := ids[target]; !ok || target == srcID {
			continue
		}
		links = append(links, GraphLink{Source: srcID, Target: target})
	}
	return nodes, links, rows.Err()
}

func (db *DB) scopeNodes(ctx context.Context, f ScopeFilter) ([]GraphNode, error) {
	folder := strings.Trim(strings.ReplaceAll(f.Folder, "\\", "/"), "/")
	prefix := ""
	if folder != "" {
		prefix = folder + "/"
	}

	rows, err := db.conn.QueryContext(ctx, `
		SELECT path, note_id, title, tags
		FROM notes
		WHERE ? = '' OR substr(path, 1, length(?)) = ?
		ORDER BY path
	`, prefix, prefix, prefix)
	if err != nil {
		return nil, fmt.Errorf("index: scope: %w", err)
	}
	defer rows.Close()

	nodes := []GraphNode{}
	for rows.Next() {
		var n GraphNode
		var tagsJSON string
		if err := rows.Scan(&n.Path, &n.ID, &n.Title, &tagsJSON); err != nil {
			return nil, err
		}
		if f.Tag != "" {
			var tags []string
			if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
				return nil, fmt.Errorf("index: tags of %s: %w", n.Path, err)
			}
			if !slices.Contains(tags, f.Tag) {
				continue
			}
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

// FindNote resolves a note identity to its path. It returns
// apperr.ErrNotFound when no note has that name and apperr.ErrAmbiguousNote
// when several do.
func (db *DB) FindNote(ctx context.Context, id string) (models.NoteRef, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT path FROM notes WHERE note_id = ? ORDER BY path`, id)
	if err != nil {
		return models.NoteRef{}, fmt.Errorf("index: find note: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return models.NoteRef{}, err
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		return models.NoteRef{}, err
	}
	switch len(paths) {
	case 0:
		return models.NoteRef{}, fmt.Errorf("%w: note %q", apperr.ErrNotFound, id)
	case 1:
		return models.NoteRef{ID: id, Path: paths[0]}, nil
	default:
		return models.NoteRef{}, fmt.Errorf("%w: %s (%s)", apperr.ErrAmbiguousNote, id, strings.Join(paths, ", "))
	}
}
