package api

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/lagu/internal/index"
	"github.com/starford/lagu/internal/models"
	"github.com/starford/lagu/internal/study"
	"github.com/starford/lagu/internal/studyservice"
)

// StartSessionRequest selects the notes of a new session. Both fields empty
// selects the configured default folder.
type StartSessionRequest struct {
	Folder string `json:"folder" example:"algebra"`
	Tag    string `json:"tag" example:"math"`
}

// Validate validates the request.
func (r *StartSessionRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Folder, validation.Length(0, 512), validation.By(noParentRef)),
		validation.Field(&r.Tag, validation.Length(0, 128)),
	)
}

// Filter returns the scope filter of the request.
func (r *StartSessionRequest) Filter() index.ScopeFilter {
	return index.ScopeFilter{Folder: r.Folder, Tag: r.Tag}
}

// NoteRequest names one note of the running session.
type NoteRequest struct {
	Note string `json:"note" example:"Groups" validate:"required"`
}

// Validate validates the request.
func (r *NoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Note, validation.Required, validation.Length(1, 255)),
	)
}

func noParentRef(v any) error {
	s, _ := v.(string)
	for _, part := range strings.Split(strings.ReplaceAll(s, "\\", "/"), "/") {
		if part == ".." {
			return validation.NewError("validation_parent_ref", "must not contain '..'")
		}
	}
	return nil
}

// StartSessionResponse is returned by POST /session.
type StartSessionResponse = study.StartResult

// CompleteResponse is returned by POST /session/complete.
type CompleteResponse = study.CompleteResult

// OpenResponse is returned by POST /session/open.
type OpenResponse = study.OpenResult

// SessionResponse describes the engine state.
type SessionResponse = study.Info

// NextResponse lists the notes to read next.
type NextResponse struct {
	Notes []models.NoteRef `json:"notes" validate:"required"`
}

// HistoryResponse lists recorded study events, newest first.
type HistoryResponse struct {
	Events []index.StudyEvent `json:"events" validate:"required"`
}

// NoteStatusResponse is the study state of one note.
type NoteStatusResponse = studyservice.NoteStatus

// GraphResponse wraps the note graph.
type GraphResponse = studyservice.GraphView
