package frontmatter_test

import (
	"errors"
	"strings"
	"testing"

	qt "github.com/frankban/quicktest"
	"gopkg.in/yaml.v3"

	"github.com/starford/lagu/internal/frontmatter"
	"github.com/starford/lagu/internal/models"
)

// ---------------------------------------------------------------------------
// Apply
// ---------------------------------------------------------------------------

func TestApply_NoHeaderPrependsFreshHeader(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name string
		st   models.Status
		want string
	}{
		{"root", models.Status{Read: false, Next: true}, "---\nread: false\nnext: true\n---\n# Body\n"},
		{"read", models.Status{Read: true, Next: false}, "---\nread: true\nnext: false\n---\n# Body\n"},
		{"locked", models.Status{}, "---\nread: false\nnext: false\n---\n# Body\n"},
	}
	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			got, err := frontmatter.Apply([]byte("# Body\n"), tc.st)
			c.Assert(err, qt.IsNil)
			c.Assert(string(got), qt.Equals, tc.want)
		})
	}
}

func TestApply_UpdatesExistingKeysInPlace(t *testing.T) {
	c := qt.New(t)

	in := "---\ntitle: Sets\nread: true\n---\nBody [[Groups]]\n"
	got, err := frontmatter.Apply([]byte(in), models.Status{Read: false, Next: true})
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "---\ntitle: Sets\nread: false\nnext: true\n---\nBody [[Groups]]\n")
}

func TestApply_PreservesOtherKeysAndOrder(t *testing.T) {
	c := qt.New(t)

	in := "---\ntitle: Rings\ntags:\n  - algebra\n  - rings\nnext: \"false\"\nauthor: me\n---\n\nBody line one\n---\nnot a header\n"
	got, err := frontmatter.Apply([]byte(in), models.Status{Read: true, Next: false})
	c.Assert(err, qt.IsNil)

	s := string(got)
	c.Assert(strings.HasSuffix(s, "---\n\nBody line one\n---\nnot a header\n"), qt.IsTrue, qt.Commentf("body changed: %q", s))

	header := strings.TrimPrefix(s, "---\n")
	header = header[:strings.Index(header, "\n---\n")]

	var m yaml.Node
	c.Assert(yaml.Unmarshal([]byte(header), &m), qt.IsNil)
	var keys []string
	for i := 0; i < len(m.Content[0].Content); i += 2 {
		keys = append(keys, m.Content[0].Content[i].Value)
	}
	c.Assert(keys, qt.DeepEquals, []string{"title", "tags", "next", "author", "read"})

	var decoded map[string]any
	c.Assert(yaml.Unmarshal([]byte(header), &decoded), qt.IsNil)
	c.Assert(decoded["tags"], qt.DeepEquals, []any{"algebra", "rings"})
	c.Assert(decoded["author"], qt.Equals, "me")
	c.Assert(decoded["read"], qt.Equals, true)
	c.Assert(decoded["next"], qt.Equals, false)
}

func TestApply_EmptyHeader(t *testing.T) {
	c := qt.New(t)

	got, err := frontmatter.Apply([]byte("---\n---\nBody\n"), models.Status{Next: true})
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "---\nread: false\nnext: true\n---\nBody\n")
}

func TestApply_RepeatedKeysCollapse(t *testing.T) {
	c := qt.New(t)

	in := "---\nread: false\ntitle: T\nread: false\nnext: true\nnext: false\n---\nbody\n"
	st := models.Status{Read: true, Next: true}
	got, err := frontmatter.Apply([]byte(in), st)
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "---\nread: true\ntitle: T\nnext: true\n---\nbody\n")

	back, found, err := frontmatter.Read(got)
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.IsTrue)
	c.Assert(back, qt.Equals, st)
}

func TestApply_CommentOnlyHeaderKept(t *testing.T) {
	c := qt.New(t)

	got, err := frontmatter.Apply([]byte("---\n# only a comment\n---\nbody\n"), models.Status{Read: true, Next: true})
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "---\n# only a comment\nread: true\nnext: true\n---\nbody\n")
}

func TestApply_KeepsCRLF(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "mapping header",
			in:   "---\r\ntitle: T\r\n---\r\nbody\r\n",
			want: "---\r\ntitle: T\r\nread: true\r\nnext: false\r\n---\r\nbody\r\n",
		},
		{
			name: "comment header",
			in:   "---\r\n# note\r\n---\r\nbody\r\n",
			want: "---\r\n# note\r\nread: true\r\nnext: false\r\n---\r\nbody\r\n",
		},
	}
	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			got, err := frontmatter.Apply([]byte(tc.in), models.Status{Read: true})
			c.Assert(err, qt.IsNil)
			c.Assert(string(got), qt.Equals, tc.want)

			st, found, err := frontmatter.Read(got)
			c.Assert(err, qt.IsNil)
			c.Assert(found, qt.IsTrue)
			c.Assert(st, qt.Equals, models.Status{Read: true})
		})
	}
}

func TestApply_Idempotent(t *testing.T) {
	c := qt.New(t)

	st := models.Status{Read: true, Next: false}
	once, err := frontmatter.Apply([]byte("---\ntitle: X\n---\nBody\n"), st)
	c.Assert(err, qt.IsNil)
	twice, err := frontmatter.Apply(once, st)
	c.Assert(err, qt.IsNil)
	c.Assert(string(twice), qt.Equals, string(once))
}

func TestApply_MalformedHeader(t *testing.T) {
	c := qt.New(t)

	cases := []struct {
		name    string
		content string
	}{
		{"missing closing delimiter", "---\ntitle: Open\nBody without end\n"},
		{"delimiter only", "---"},
		{"invalid yaml", "---\n: invalid: yaml: {{{\n---\nBody\n"},
		{"sequence header", "---\n- a\n- b\n---\nBody\n"},
	}
	for _, tc := range cases {
		c.Run(tc.name, func(c *qt.C) {
			_, err := frontmatter.Apply([]byte(tc.content), models.Status{Read: true})
			var pe *frontmatter.ParseError
			c.Assert(errors.As(err, &pe), qt.IsTrue, qt.Commentf("err = %v", err))
		})
	}
}

func TestApply_ThematicBreakIsNotAHeader(t *testing.T) {
	c := qt.New(t)

	got, err := frontmatter.Apply([]byte("----\nBody\n"), models.Status{Next: true})
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, "---\nread: false\nnext: true\n---\n----\nBody\n")
}

// ---------------------------------------------------------------------------
// Read
// ---------------------------------------------------------------------------

func TestRead_RoundTrip(t *testing.T) {
	c := qt.New(t)

	inputs := []string{
		"plain body\n",
		"---\ntitle: T\n---\nbody\n",
		"---\nread: true\nnext: true\nkeep: 1\n---\nbody\n",
	}
	statuses := []models.Status{{}, {Read: true}, {Next: true}, {Read: true, Next: true}}

	for _, in := range inputs {
		for _, st := range statuses {
			out, err := frontmatter.Apply([]byte(in), st)
			c.Assert(err, qt.IsNil)
			got, found, err := frontmatter.Read(out)
			c.Assert(err, qt.IsNil)
			c.Assert(found, qt.IsTrue)
			c.Assert(got, qt.Equals, st, qt.Commentf("input %q", in))
		}
	}
}

func TestRead_NoFlags(t *testing.T) {
	c := qt.New(t)

	for _, in := range []string{"no header\n", "---\ntitle: T\n---\nbody\n"} {
		st, found, err := frontmatter.Read([]byte(in))
		c.Assert(err, qt.IsNil)
		c.Assert(found, qt.IsFalse)
		c.Assert(st, qt.Equals, models.Status{})
	}
}

func TestRead_StringValues(t *testing.T) {
	c := qt.New(t)

	st, found, err := frontmatter.Read([]byte("---\nread: \"TRUE\"\nnext: 'false'\n---\n"))
	c.Assert(err, qt.IsNil)
	c.Assert(found, qt.IsTrue)
	c.Assert(st, qt.Equals, models.Status{Read: true, Next: false})
}

func TestRead_BadValue(t *testing.T) {
	c := qt.New(t)

	_, _, err := frontmatter.Read([]byte("---\nread: maybe\n---\n"))
	var pe *frontmatter.ParseError
	c.Assert(errors.As(err, &pe), qt.IsTrue)
	c.Assert(err, qt.ErrorMatches, `frontmatter: key "read" is not true or false`)
}
