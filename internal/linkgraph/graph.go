// Package linkgraph builds the prerequisite graph of a study scope from the
// wikilinks in each note and answers dependency queries over it.
package linkgraph

import (
	"context"
	"log/slog"
	"slices"

	"github.com/starford/lagu/internal/models"
	"github.com/starford/lagu/internal/parser"
)

// ContentSource reads the raw content of a note.
type ContentSource interface {
	ReadContent(ctx context.Context, note models.NoteRef) ([]byte, error)
}

// Graph maps a note to the notes it links to. A linked note is a
// prerequisite: it has to be read first. Notes without in-scope links have
// no entry and are roots.
//
// A Graph is immutable once built.
type Graph struct {
	order []string
	deps  map[string][]string
}

// New returns a graph over the notes in order with the given prerequisite
// lists. Empty lists are dropped; keys missing from order are appended to it
// in sorted order.
func New(order []string, deps map[string][]string) *Graph {
	g := &Graph{
		order: slices.Clone(order),
		deps:  make(map[string][]string, len(deps)),
	}
	var extra []string
	for id, pre := range deps {
		if !slices.Contains(order, id) {
			extra = append(extra, id)
		}
		if len(pre) > 0 {
			g.deps[id] = slices.Clone(pre)
		}
	}
	slices.Sort(extra)
	g.order = append(g.order, extra...)
	return g
}

// Build reads every note in scope and records its in-scope links.
// Links are taken from the note body; frontmatter values are not links.
// A note whose content cannot be read is logged and treated as a root.
// Self-links are ignored. Only a cancelled ctx stops the build.
func Build(ctx context.Context, scope []models.NoteRef, src ContentSource, logger *slog.Logger) (*Graph, error) {
	ids := make(map[string]struct{}, len(scope))
	order := make([]string, 0, len(scope))
	for _, ref := range scope {
		ids[ref.ID] = struct{}{}
		order = append(order, ref.ID)
	}

	deps := make(map[string][]string)
	for _, ref := range scope {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := src.ReadContent(ctx, ref)
		if err != nil {
			logger.Warn("linkgraph: read failed, treating note as root",
				slog.String("path", ref.Path),
				slog.String("error", err.Error()))
			continue
		}
		links := slices.DeleteFunc(parser.ExtractLinks(parser.Body(data), ids), func(target string) bool {
			return target == ref.ID
		})
		if len(links) > 0 {
			deps[ref.ID] = links
		}
	}

	logger.Debug("linkgraph: built",
		slog.Int("notes", len(order)),
		slog.Int("with_prerequisites", len(deps)))
	return &Graph{order: order, deps: deps}, nil
}

// Prerequisites returns the notes id links to, in link order.
func (g *Graph) Prerequisites(id string) []string {
	return slices.Clone(g.deps[id])
}

// IsRoot reports whether id has no prerequisites.
func (g *Graph) IsRoot(id string) bool {
	return len(g.deps[id]) == 0
}

// Dependents returns every note that lists id as a prerequisite. This is a
// full scan; callers must not rely on the order.
func (g *Graph) Dependents(id string) []string {
	var out []string
	for _, src := range g.order {
		if slices.Contains(g.deps[src], id) {
			out = append(out, src)
		}
	}
	return out
}

// Mutual reports whether a and b link to each other.
func (g *Graph) Mutual(a, b string) bool {
	return slices.Contains(g.deps[a], b) && slices.Contains(g.deps[b], a)
}

// Nodes returns every note in the graph in scope order.
func (g *Graph) Nodes() []string {
	return slices.Clone(g.order)
}

// Roots returns the notes without prerequisites in scope order.
func (g *Graph) Roots() []string {
	var out []string
	for _, id := range g.order {
		if g.IsRoot(id) {
			out = append(out, id)
		}
	}
	return out
}

// Edges returns one link per prerequisite relation, Source depending on Target.
func (g *Graph) Edges() []models.Link {
	var out []models.Link
	for _, src := range g.order {
		for _, dst := range g.deps[src] {
			out = append(out, models.Link{Source: src, Target: dst})
		}
	}
	return out
}
