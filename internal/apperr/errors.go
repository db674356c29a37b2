// Package apperr holds the sentinel errors shared across packages.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrNoSession     = errors.New("no active study session")
	ErrSessionActive = errors.New("study session already active")
	ErrEmptyScope    = errors.New("study scope is empty")
	ErrNotInScope    = errors.New("note is not in the study scope")
	ErrAmbiguousNote = errors.New("ambiguous note name in scope")
)
