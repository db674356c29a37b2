// Package study runs link-gated study sessions over a bounded set of notes.
//
// A session starts by building the link graph of its scope and unlocking
// every note without prerequisites. Each completed note is marked read, and
// every note that links to it is unlocked once all of its own prerequisites
// are read. Two notes that link to each other may unlock one another without
// that ordering when bidirectional links are allowed.
//
// Engine methods are serialised: one event handler runs at a time, content
// reads and header writes included.
package study

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/lagu/internal/apperr"
	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/linkgraph"
	"github.com/starford/lagu/internal/models"
	"github.com/starford/lagu/internal/status"
)

// Event names handed to a Notifier.
const (
	EventSessionStarted = "session.started"
	EventNoteRead       = "note.read"
	EventNoteUnlocked   = "note.unlocked"
	EventSessionEnded   = "session.ended"
)

// Host is what a session needs from the note collection.
type Host interface {
	linkgraph.ContentSource
	status.Writer
	ReadStatus(ctx context.Context, note models.NoteRef) (models.Status, bool, error)
}

// Notifier receives session transitions, e.g. to push them to clients.
type Notifier interface {
	PublishStudyEvent(kind string, data any)
}

// Recorder persists session transitions.
type Recorder interface {
	RecordEvent(ctx context.Context, ev index.StudyEvent) error
}

// Config holds the engine settings.
type Config struct {
	// AllowBiLinks lets two notes that link to each other unlock one another
	// regardless of which was read first.
	AllowBiLinks bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithNotifier sets the receiver of session events.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// WithRecorder sets the study history sink.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// session is the state of one study session, from Start to End.
type session struct {
	id        string
	startedAt time.Time
	scope     []models.NoteRef
	refs      map[string]models.NoteRef
	graph     *linkgraph.Graph
	store     *status.Store
	active    string
}

// Engine drives study sessions. The zero value is not usable; call New.
type Engine struct {
	mu       sync.Mutex
	host     Host
	cfg      Config
	logger   *slog.Logger
	notifier Notifier
	recorder Recorder
	session  *session
}

// New creates an idle engine.
func New(host Host, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		host:   host,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// StartResult summarises a started session.
type StartResult struct {
	SessionID string   `json:"session_id"`
	Notes     int      `json:"notes"`
	Roots     []string `json:"roots"`
}

// CompleteResult reports the effect of completing a note.
type CompleteResult struct {
	Note     string   `json:"note"`
	Unlocked []string `json:"unlocked"`
}

// OpenResult reports the effect of switching the active note.
type OpenResult struct {
	Active    string          `json:"active"`
	Completed *CompleteResult `json:"completed,omitempty"`
}

// Info describes the engine state.
type Info struct {
	Active       bool                     `json:"active"`
	SessionID    string                   `json:"session_id,omitempty"`
	StartedAt    time.Time                `json:"started_at,omitzero"`
	ActiveNote   string                   `json:"active_note,omitempty"`
	AllowBiLinks bool                     `json:"allow_bi_links"`
	Notes        map[string]models.Status `json:"notes"`
}

// Start builds the link graph of scope, marks every note unread and unlocks
// the notes without prerequisites.
func (e *Engine) Start(ctx context.Context, scope []models.NoteRef) (*StartResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return nil, apperr.ErrSessionActive
	}
	scope, refs, err := uniqueScope(scope)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	g, err := linkgraph.Build(ctx, scope, e.host, e.logger)
	graphBuildDuration.Observe(time.Since(started).Seconds())
	if err != nil {
		return nil, fmt.Errorf("study: build graph: %w", err)
	}

	s := &session{
		id:        uuid.NewString(),
		startedAt: started,
		scope:     scope,
		refs:      refs,
		graph:     g,
		store:     status.NewStore(e.host),
	}
	for _, ref := range scope {
		e.set(ctx, s, ref, false, g.IsRoot(ref.ID))
	}
	e.session = s
	sessionsStarted.Inc()

	roots := g.Roots()
	e.logger.Info("study: session started",
		slog.String("session_id", s.id),
		slog.Int("notes", len(scope)),
		slog.Int("roots", len(roots)),
		slog.Bool("allow_bi_links", e.cfg.AllowBiLinks))
	e.emit(ctx, s, index.EventStarted, "", EventSessionStarted, map[string]any{
		"session_id": s.id,
		"notes":      len(scope),
		"roots":      roots,
	})

	return &StartResult{SessionID: s.id, Notes: len(scope), Roots: nonNil(roots)}, nil
}

// Complete marks id read and unlocks the notes depending on it whose
// prerequisites are now satisfied.
func (e *Engine) Complete(ctx context.Context, id string) (*CompleteResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return nil, apperr.ErrNoSession
	}
	return e.complete(ctx, s, id)
}

// Open records id as the note being read. The previously open note, if
// different, counts as finished and is completed.
func (e *Engine) Open(ctx context.Context, id string) (*OpenResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return nil, apperr.ErrNoSession
	}
	if _, ok := s.refs[id]; !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotInScope, id)
	}

	res := &OpenResult{Active: id}
	if prev := s.active; prev != "" && prev != id {
		done, err := e.complete(ctx, s, prev)
		if err != nil {
			return nil, err
		}
		res.Completed = done
	}
	s.active = id
	return res, nil
}

// End discards the session: its graph and every in-memory flag.
// Headers already written to notes are left in place.
func (e *Engine) End(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return apperr.ErrNoSession
	}
	read := 0
	for _, st := range s.store.Snapshot() {
		if st.Read {
			read++
		}
	}
	s.store.Reset()
	e.session = nil

	e.logger.Info("study: session ended",
		slog.String("session_id", s.id),
		slog.Int("read", read),
		slog.Duration("duration", time.Since(s.startedAt)))
	e.emit(ctx, s, index.EventEnded, "", EventSessionEnded, map[string]any{
		"session_id": s.id,
		"read":       read,
	})
	return nil
}

// Active reports whether a session is running.
func (e *Engine) Active() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil
}

// Info returns a snapshot of the engine state.
func (e *Engine) Info() Info {
	e.mu.Lock()
	defer e.mu.Unlock()

	info := Info{AllowBiLinks: e.cfg.AllowBiLinks, Notes: map[string]models.Status{}}
	if s := e.session; s != nil {
		info.Active = true
		info.SessionID = s.id
		info.StartedAt = s.startedAt
		info.ActiveNote = s.active
		info.Notes = s.store.Snapshot()
	}
	return info
}

// NextNotes returns the notes currently unlocked and unread.
func (e *Engine) NextNotes() ([]models.NoteRef, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if s == nil {
		return nil, apperr.ErrNoSession
	}
	out := []models.NoteRef{}
	for _, id := range s.store.Next() {
		out = append(out, s.refs[id])
	}
	return out, nil
}

// Status returns the flags of note: the session value when note is in the
// running session, otherwise the value persisted in its header.
func (e *Engine) Status(ctx context.Context, note models.NoteRef) (models.Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.session; s != nil {
		if _, ok := s.refs[note.ID]; ok {
			st, _ := s.store.Get(note.ID)
			return st, nil
		}
	}
	st, _, err := e.host.ReadStatus(ctx, note)
	return st, err
}

// Graph returns the link graph of the running session.
func (e *Engine) Graph() (*linkgraph.Graph, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, apperr.ErrNoSession
	}
	return e.session.graph, nil
}

func (e *Engine) complete(ctx context.Context, s *session, id string) (*CompleteResult, error) {
	ref, ok := s.refs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrNotInScope, id)
	}

	e.set(ctx, s, ref, true, false)
	notesCompleted.Inc()
	e.emit(ctx, s, index.EventRead, id, EventNoteRead, map[string]any{"note": id})

	res := &CompleteResult{Note: id, Unlocked: []string{}}
	for _, dep := range s.graph.Dependents(id) {
		st, _ := s.store.Get(dep)
		if st.Read || st.Next || !e.unlockable(s, dep) {
			continue
		}
		e.set(ctx, s, s.refs[dep], st.Read, true)
		notesUnlocked.Inc()
		res.Unlocked = append(res.Unlocked, dep)
		e.emit(ctx, s, index.EventUnlocked, dep, EventNoteUnlocked, map[string]any{"note": dep, "after": id})
	}

	e.logger.Debug("study: note completed",
		slog.String("note", id),
		slog.String("unlocked", strings.Join(res.Unlocked, ",")))
	return res, nil
}

// unlockable reports whether every prerequisite of id is read, counting a
// mutually linked prerequisite as satisfied when bidirectional links are allowed.
func (e *Engine) unlockable(s *session, id string) bool {
	for _, pre := range s.graph.Prerequisites(id) {
		if e.cfg.AllowBiLinks && s.graph.Mutual(pre, id) {
			continue
		}
		if st, _ := s.store.Get(pre); !st.Read {
			return false
		}
	}
	return true
}

// set updates the store; a failed header write is logged and the session
// carries on with the in-memory value.
func (e *Engine) set(ctx context.Context, s *session, ref models.NoteRef, read, next bool) {
	if err := s.store.Set(ctx, ref, read, next); err != nil {
		statusWriteErrors.Inc()
		e.logger.Warn("study: status write-through failed",
			slog.String("path", ref.Path),
			slog.String("error", err.Error()))
	}
}

func (e *Engine) emit(ctx context.Context, s *session, kind, note, event string, data map[string]any) {
	if e.recorder != nil {
		ev := index.StudyEvent{SessionID: s.id, Note: note, Kind: kind, At: time.Now()}
		if err := e.recorder.RecordEvent(ctx, ev); err != nil {
			e.logger.Warn("study: record event failed",
				slog.String("kind", kind),
				slog.String("error", err.Error()))
		}
	}
	if e.notifier != nil {
		e.notifier.PublishStudyEvent(event, data)
	}
}

// uniqueScope drops repeated entries and rejects two different notes
// sharing one name, since links address notes by name only.
func uniqueScope(scope []models.NoteRef) ([]models.NoteRef, map[string]models.NoteRef, error) {
	refs := make(map[string]models.NoteRef, len(scope))
	out := make([]models.NoteRef, 0, len(scope))
	var dups []string
	for _, ref := range scope {
		if ref.ID == "" {
			continue
		}
		if prev, ok := refs[ref.ID]; ok {
			if prev.Path != ref.Path {
				dups = append(dups, ref.ID)
			}
			continue
		}
		refs[ref.ID] = ref
		out = append(out, ref)
	}
	if len(dups) > 0 {
		slices.Sort(dups)
		return nil, nil, fmt.Errorf("%w: %s", apperr.ErrAmbiguousNote, strings.Join(slices.Compact(dups), ", "))
	}
	if len(out) == 0 {
		return nil, nil, apperr.ErrEmptyScope
	}
	return out, refs, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
