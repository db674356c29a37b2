package api

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/studyservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *studyservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *studyservice.Service) *Handler {
	return &Handler{svc: svc}
}

// noteID extracts the note name from the URL. Supports encoded names
// (e.g. Group%20Theory).
func noteID(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// Graph handles GET /api/graph.
//
//	@Summary		Get the note graph of a scope
//	@Tags			graph
//	@Produce		json
//	@Param			folder	query		string	false	"Folder prefix"
//	@Param			tag		query		string	false	"Tag"
//	@Success		200		{object}	GraphResponse
//	@Security		BearerAuth
//	@Router			/graph [get]
func (h *Handler) Graph(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	view, err := h.svc.Graph(r.Context(), index.ScopeFilter{Folder: q.Get("folder"), Tag: q.Get("tag")})
	if err != nil {
		writeError(w, "graph", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// StartSession handles POST /api/session.
//
//	@Summary		Start a study session
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		StartSessionRequest	false	"Scope filter"
//	@Success		201		{object}	StartSessionResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session [post]
func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.Start(r.Context(), req.Filter())
	if err != nil {
		writeError(w, "start session", err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// GetSession handles GET /api/session.
//
//	@Summary		Get the session state and every note's flags
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Info())
}

// EndSession handles DELETE /api/session.
//
//	@Summary		End the running session
//	@Tags			session
//	@Success		204	"Session ended"
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session [delete]
func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.End(r.Context()); err != nil {
		writeError(w, "end session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CompleteNote handles POST /api/session/complete.
//
//	@Summary		Mark a note read and unlock its dependents
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note to complete"
//	@Success		200		{object}	CompleteResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/complete [post]
func (h *Handler) CompleteNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.Complete(r.Context(), req.Note)
	if err != nil {
		writeError(w, "complete note", err)
		return
	}
	slog.Debug("note completed", slog.String("note", req.Note), slog.Int("unlocked", len(res.Unlocked)))
	writeJSON(w, http.StatusOK, res)
}

// OpenNote handles POST /api/session/open.
//
//	@Summary		Switch the note being read; the previous one is completed
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		NoteRequest	true	"Note being opened"
//	@Success		200		{object}	OpenResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/open [post]
func (h *Handler) OpenNote(w http.ResponseWriter, r *http.Request) {
	var req NoteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.Open(r.Context(), req.Note)
	if err != nil {
		writeError(w, "open note", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// NextNotes handles GET /api/session/next.
//
//	@Summary		List the notes unlocked and not yet read
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	NextResponse
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/next [get]
func (h *Handler) NextNotes(w http.ResponseWriter, _ *http.Request) {
	notes, err := h.svc.Next()
	if err != nil {
		writeError(w, "next notes", err)
		return
	}
	writeJSON(w, http.StatusOK, NextResponse{Notes: notes})
}

// History handles GET /api/session/history.
//
//	@Summary		List recorded study events, newest first
//	@Tags			session
//	@Produce		json
//	@Param			limit	query		int	false	"Max events"
//	@Success		200		{object}	HistoryResponse
//	@Security		BearerAuth
//	@Router			/session/history [get]
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.svc.History(r.Context(), limit)
	if err != nil {
		writeError(w, "history", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Events: events})
}

// NoteStatus handles GET /api/notes/{id}/status.
//
//	@Summary		Get the study state of one note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note name"
//	@Success		200	{object}	NoteStatusResponse
//	@Failure		400	{object}	errResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/status [get]
func (h *Handler) NoteStatus(w http.ResponseWriter, r *http.Request) {
	id := noteID(r)
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("note name is required"))
		return
	}
	st, err := h.svc.NoteStatus(r.Context(), id)
	if err != nil {
		writeError(w, "note status", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
