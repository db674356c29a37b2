// Package parser extracts frontmatter, wikilinks, and tags from Markdown content
// and resolves wikilink targets to note identities.
package parser

import (
	"bytes"
	"path"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	wikilinkRe = regexp.MustCompile(`\[\[(.*?)\]\]`)
	tagRe      = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)
)

const noteExt = ".md"

// Result holds the output of parsing a Markdown file.
type Result struct {
	Frontmatter map[string]any
	Body        string
	Links       []string
	Tags        []string
	Title       string
}

// Parse extracts frontmatter, body, wikilink targets, and tags from raw Markdown bytes.
func Parse(data []byte) (*Result, error) {
	fm, body := splitFrontmatter(data)

	return &Result{
		Frontmatter: fm,
		Body:        body,
		Links:       Links(body),
		Tags:        extractTags(body, fm),
		Title:       deriveTitle(fm, body),
	}, nil
}

// Body returns the Markdown after the frontmatter block. Links inside the
// frontmatter are not part of the body and are never followed.
func Body(data []byte) string {
	_, body := splitFrontmatter(data)
	return body
}

// NoteID returns the identity of the note stored at p: its basename without
// the .md extension.
func NoteID(p string) string {
	base := path.Base(strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimSuffix(base, noteExt)
}

// Links returns the distinct wikilink targets in text, normalised to note
// identities, in order of first occurrence.
func Links(text string) []string {
	return collectLinks(text, nil)
}

// ExtractLinks returns the distinct wikilink targets in text that name a note
// in scope, in order of first occurrence. Targets outside scope are ignored.
func ExtractLinks(text string, scope map[string]struct{}) []string {
	if scope == nil {
		return nil
	}
	return collectLinks(text, scope)
}

func collectLinks(text string, scope map[string]struct{}) []string {
	matches := wikilinkRe.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var out []string
	for _, m := range matches {
		target := normalizeTarget(m[1])
		if target == "" {
			continue
		}
		if scope != nil {
			if _, ok := scope[target]; !ok {
				continue
			}
		}
		if _, dup := seen[target]; dup {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}

// normalizeTarget turns the inside of [[...]] into a note identity:
// "folder/Note.md#Heading|alias" becomes "Note".
func normalizeTarget(raw string) string {
	target, _, _ := strings.Cut(raw, "|")
	target, _, _ = strings.Cut(target, "#")
	target = strings.TrimSpace(target)
	if target == "" {
		return ""
	}
	if strings.Contains(target, "/") {
		target = path.Base(target)
	}
	return strings.TrimSpace(strings.TrimSuffix(target, noteExt))
}

// splitFrontmatter separates YAML frontmatter (between leading --- delimiters)
// from the Markdown body. Missing or invalid frontmatter leaves the whole
// content as body.
func splitFrontmatter(data []byte) (map[string]any, string) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\n\r")

	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data)
	}

	rest := trimmed[len(delim):]
	idx := bytes.Index(rest, []byte("\n"+delim))
	if idx < 0 {
		return nil, string(data)
	}

	var fm map[string]any
	if err := yaml.Unmarshal(rest[:idx], &fm); err != nil {
		return nil, string(data)
	}

	body := strings.TrimLeft(string(rest[idx+1+len(delim):]), "\n\r")
	return fm, body
}

// extractTags collects tags from the frontmatter "tags" field (list or single
// string) followed by inline #tags from the body.
func extractTags(body string, fm map[string]any) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(t string) {
		t = strings.TrimSpace(t)
		if t == "" {
			return
		}
		if _, dup := seen[t]; dup {
			return
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}

	switch v := fm["tags"].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok {
				add(s)
			}
		}
	case string:
		add(v)
	}

	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		add(m[1])
	}
	return out
}

// deriveTitle returns the frontmatter "title" if present, otherwise the first
// H1 heading, otherwise empty string.
func deriveTitle(fm map[string]any, body string) string {
	if s, ok := fm["title"].(string); ok && s != "" {
		return s
	}
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if title, ok := strings.CutPrefix(trimmed, "# "); ok {
			return strings.TrimSpace(title)
		}
	}
	return ""
}
