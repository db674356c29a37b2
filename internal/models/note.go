// Package models defines the domain types for Lagu.
package models

import "time"

// NoteRef identifies a note inside a study scope.
// ID is the basename without extension; Path is relative to the vault root.
type NoteRef struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Status is the pair of progress flags persisted in a note's header.
type Status struct {
	Read bool `json:"read"`
	Next bool `json:"next"`
}

// NoteMetadata is a lightweight representation returned by list operations.
type NoteMetadata struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Link represents a directed edge between two notes: Source depends on Target.
type Link struct {
	Source string `json:"source"`
	Target string `json:"target"`
}
