package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/lagu/internal/apperr"
	"github.com/starford/lagu/internal/frontmatter"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps domain errors to status codes. Anything unrecognised is
// logged and reported as an internal error.
func writeError(w http.ResponseWriter, op string, err error) {
	var perr *frontmatter.ParseError
	switch {
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrNotInScope):
		writeJSON(w, http.StatusNotFound, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNoSession), errors.Is(err, apperr.ErrSessionActive):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrEmptyScope), errors.Is(err, apperr.ErrAmbiguousNote):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.As(err, &perr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// decodeBody decodes an optional JSON body into v and validates it.
// An empty body leaves v at its zero value.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{ Validate() error }) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return false
	}
	return true
}
