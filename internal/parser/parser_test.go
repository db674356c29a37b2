package parser

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\ntitle: Hello\ntags:\n  - go\n  - lagu\nread: false\n---\n# Hello\nSee [[World]].\n")
	r, err := Parse(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Title != "Hello" {
		t.Errorf("title = %q, want %q", r.Title, "Hello")
	}
	if len(r.Tags) != 2 || r.Tags[0] != "go" || r.Tags[1] != "lagu" {
		t.Errorf("tags = %v, want [go lagu]", r.Tags)
	}
	if r.Body != "# Hello\nSee [[World]].\n" {
		t.Errorf("body = %q", r.Body)
	}
	if len(r.Links) != 1 || r.Links[0] != "World" {
		t.Errorf("links = %v, want [World]", r.Links)
	}
}

func TestParse_NoFrontmatter(t *testing.T) {
	r, err := Parse([]byte("# Just a heading\nSome text.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Title != "Just a heading" {
		t.Errorf("title = %q, want %q", r.Title, "Just a heading")
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	r, err := Parse([]byte("---\n: invalid: yaml: {{{\n---\nBody\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
}

func TestParse_SingleStringTag(t *testing.T) {
	r, _ := Parse([]byte("---\ntags: algebra\n---\nText #algebra #proofs\n"))
	if len(r.Tags) != 2 || r.Tags[0] != "algebra" || r.Tags[1] != "proofs" {
		t.Errorf("tags = %v, want [algebra proofs]", r.Tags)
	}
}

func TestBody_SkipsFrontmatter(t *testing.T) {
	c := qt.New(t)
	in := []byte("---\nrelated: \"[[Other]]\"\n---\nSee [[World]].\n")
	c.Assert(Body(in), qt.Equals, "See [[World]].\n")
	c.Assert(Links(Body(in)), qt.DeepEquals, []string{"World"})

	r, err := Parse(in)
	c.Assert(err, qt.IsNil)
	c.Assert(r.Links, qt.DeepEquals, Links(Body(in)))
}

func TestNoteID(t *testing.T) {
	c := qt.New(t)

	cases := map[string]string{
		"Note.md":            "Note",
		"topics/Go Maps.md":  "Go Maps",
		`topics\win\Path.md`: "Path",
		"v1.2 release.md":    "v1.2 release",
		"plain":              "plain",
	}
	for in, want := range cases {
		c.Assert(NoteID(in), qt.Equals, want, qt.Commentf("path %q", in))
	}
}

func TestLinks_Normalisation(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name string
		text string
		want []string
	}{
		{"plain", "See [[Note A]].", []string{"Note A"}},
		{"alias", "See [[Note B|the b note]].", []string{"Note B"}},
		{"whitespace", "See [[  Note C  | c ]].", []string{"Note C"}},
		{"heading anchor", "See [[Note D#Intro]].", []string{"Note D"}},
		{"folder and extension", "See [[topics/Note E.md|e]].", []string{"Note E"}},
		{"dedup keeps first order", "[[B]] [[A]] [[B|again]]", []string{"B", "A"}},
		{"empty targets", "see [[ ]] and [[|alias]] and [[#only]]", nil},
		{"no markers", "nothing to see here", nil},
	}
	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			c.Assert(Links(tc.text), qt.DeepEquals, tc.want)
		})
	}
}

func TestExtractLinks_RestrictedToScope(t *testing.T) {
	c := qt.New(t)
	scope := map[string]struct{}{"A": {}, "B": {}}

	got := ExtractLinks("[[A]] [[Outside]] [[B|bee]] [[A]] [[outside|B]]", scope)
	c.Assert(got, qt.DeepEquals, []string{"A", "B"})
}

func TestExtractLinks_AliasStrippedBeforeMatching(t *testing.T) {
	c := qt.New(t)
	scope := map[string]struct{}{"Target": {}}

	// The alias text names a scope note but only the target counts.
	c.Assert(ExtractLinks("[[Elsewhere|Target]]", scope), qt.HasLen, 0)
	c.Assert(ExtractLinks("[[Target|Elsewhere]]", scope), qt.DeepEquals, []string{"Target"})
}

func TestExtractLinks_NilScope(t *testing.T) {
	if got := ExtractLinks("[[A]]", nil); got != nil {
		t.Errorf("expected nil for nil scope, got %v", got)
	}
}

func TestExtractTags_InlineAndFrontmatter(t *testing.T) {
	fm := map[string]any{"tags": []any{"alpha"}}
	tags := extractTags("Some text #beta and #alpha again.", fm)
	if len(tags) != 2 || tags[0] != "alpha" || tags[1] != "beta" {
		t.Errorf("tags = %v, want [alpha beta]", tags)
	}
}

func TestDeriveTitle_FrontmatterOverH1(t *testing.T) {
	title := deriveTitle(map[string]any{"title": "FM Title"}, "# H1 Title\ntext")
	if title != "FM Title" {
		t.Errorf("title = %q, want %q", title, "FM Title")
	}
}

func TestDeriveTitle_H1Fallback(t *testing.T) {
	title := deriveTitle(nil, "some text\n# My Heading\nmore")
	if title != "My Heading" {
		t.Errorf("title = %q, want %q", title, "My Heading")
	}
}
