package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/lagu/internal/studyservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *studyservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/graph", h.Graph)

	r.Route("/session", func(r chi.Router) {
		r.Post("/", h.StartSession)
		r.Get("/", h.GetSession)
		r.Delete("/", h.EndSession)
		r.Post("/complete", h.CompleteNote)
		r.Post("/open", h.OpenNote)
		r.Get("/next", h.NextNotes)
		r.Get("/history", h.History)
	})

	r.Get("/notes/{id}/status", h.NoteStatus)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
