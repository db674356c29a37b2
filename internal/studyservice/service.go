// Package studyservice resolves notes and scopes through the index and drives
// the study engine on behalf of the HTTP and MCP front ends.
package studyservice

import (
	"context"
	"fmt"

	"github.com/starford/lagu/internal/apperr"
	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/models"
	"github.com/starford/lagu/internal/study"
)

// NoteStatus is the study state of one note.
type NoteStatus struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	Read      bool   `json:"read"`
	Next      bool   `json:"next"`
	InSession bool   `json:"in_session"`
	// Prerequisites and Dependents are taken from the running session graph.
	Prerequisites []string `json:"prerequisites"`
	Dependents    []string `json:"dependents"`
	// Backlinks are the paths of every indexed note linking here.
	Backlinks []string `json:"backlinks"`
}

// GraphNode is a graph view node with its study flags.
type GraphNode struct {
	index.GraphNode
	Read bool `json:"read"`
	Next bool `json:"next"`
}

// GraphView is the note graph of a scope.
type GraphView struct {
	Nodes []GraphNode       `json:"nodes"`
	Links []index.GraphLink `json:"links"`
}

// Service coordinates the index and the study engine.
type Service struct {
	db            index.NoteIndex
	engine        *study.Engine
	defaultFolder string
}

// New creates a service. defaultFolder bounds a session started without any
// filter; empty means the whole vault.
func New(db index.NoteIndex, engine *study.Engine, defaultFolder string) *Service {
	return &Service{db: db, engine: engine, defaultFolder: defaultFolder}
}

// Start starts a session over the notes matched by f.
func (s *Service) Start(ctx context.Context, f index.ScopeFilter) (*study.StartResult, error) {
	if f.Folder == "" && f.Tag == "" {
		f.Folder = s.defaultFolder
	}
	if s.engine.Active() {
		return nil, apperr.ErrSessionActive
	}
	scope, err := s.db.Scope(ctx, f)
	if err != nil {
		return nil, err
	}
	if len(scope) == 0 {
		return nil, fmt.Errorf("%w: folder %q, tag %q", apperr.ErrEmptyScope, f.Folder, f.Tag)
	}
	return s.engine.Start(ctx, scope)
}

// Complete marks a note read.
func (s *Service) Complete(ctx context.Context, id string) (*study.CompleteResult, error) {
	return s.engine.Complete(ctx, id)
}

// Open switches the note being read.
func (s *Service) Open(ctx context.Context, id string) (*study.OpenResult, error) {
	return s.engine.Open(ctx, id)
}

// End ends the running session.
func (s *Service) End(ctx context.Context) error {
	return s.engine.End(ctx)
}

// Info returns the engine state.
func (s *Service) Info() study.Info {
	return s.engine.Info()
}

// Next returns the unlocked, unread notes.
func (s *Service) Next() ([]models.NoteRef, error) {
	return s.engine.NextNotes()
}

// Resolve returns the note named id.
func (s *Service) Resolve(ctx context.Context, id string) (models.NoteRef, error) {
	return s.db.FindNote(ctx, id)
}

// NoteStatus returns the study state of the note named id.
func (s *Service) NoteStatus(ctx context.Context, id string) (*NoteStatus, error) {
	ref, err := s.db.FindNote(ctx, id)
	if err != nil {
		return nil, err
	}
	st, err := s.engine.Status(ctx, ref)
	if err != nil {
		return nil, err
	}
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}

	out := &NoteStatus{
		ID:            ref.ID,
		Path:          ref.Path,
		Read:          st.Read,
		Next:          st.Next,
		Prerequisites: []string{},
		Dependents:    []string{},
		Backlinks:     nonNilSlice(bl),
	}
	if _, ok := s.engine.Info().Notes[id]; ok {
		if g, err := s.engine.Graph(); err == nil {
			out.InSession = true
			out.Prerequisites = nonNilSlice(g.Prerequisites(id))
			out.Dependents = nonNilSlice(g.Dependents(id))
		}
	}
	return out, nil
}

// Graph returns the graph of the notes matched by f. Notes in the running
// session carry their current flags.
func (s *Service) Graph(ctx context.Context, f index.ScopeFilter) (*GraphView, error) {
	nodes, links, err := s.db.GraphView(ctx, f)
	if err != nil {
		return nil, err
	}
	flags := s.engine.Info().Notes
	out := &GraphView{Nodes: make([]GraphNode, len(nodes)), Links: links}
	for i, n := range nodes {
		st := flags[n.ID]
		out.Nodes[i] = GraphNode{GraphNode: n, Read: st.Read, Next: st.Next}
	}
	return out, nil
}

// Backlinks returns the paths of the notes linking to id.
func (s *Service) Backlinks(_ context.Context, id string) ([]string, error) {
	bl, err := s.db.Backlinks(id)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(bl), nil
}

// History returns recorded study events, newest first: those of the running
// session, or of every session when none is running.
func (s *Service) History(ctx context.Context, limit int) ([]index.StudyEvent, error) {
	return s.db.History(ctx, s.engine.Info().SessionID, limit)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
