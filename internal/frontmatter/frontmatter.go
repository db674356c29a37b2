// Package frontmatter reads and rewrites the read/next progress flags kept in
// a note's leading header block.
//
// A header is the text between a first line of exactly "---" and the next
// "---" line. Keys other than read and next are carried through a rewrite in
// their original order; the body after the closing delimiter is never touched.
// A header holding only comments or blank lines keeps its text verbatim, and
// a header opened with a CRLF delimiter is written back with CRLF endings.
//
// A flag repeated in the header is collapsed to a single key on rewrite.
package frontmatter

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/starford/lagu/internal/models"
)

const (
	delim   = "---"
	keyRead = "read"
	keyNext = "next"
)

// ParseError reports a header that is present but cannot be interpreted.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("frontmatter: %s: %v", e.Reason, e.Err)
	}
	return "frontmatter: " + e.Reason
}

func (e *ParseError) Unwrap() error { return e.Err }

// Read returns the progress flags stored in content. found is false when the
// content has no header or the header carries neither flag.
func Read(content []byte) (st models.Status, found bool, err error) {
	header, _, ok, err := split(content)
	if err != nil || !ok {
		return models.Status{}, false, err
	}
	m, err := parseHeader(header)
	if err != nil {
		return models.Status{}, false, err
	}

	for i := 0; i+1 < len(m.Content); i += 2 {
		var dst *bool
		switch m.Content[i].Value {
		case keyRead:
			dst = &st.Read
		case keyNext:
			dst = &st.Next
		default:
			continue
		}
		v, err := parseBool(m.Content[i].Value, m.Content[i+1])
		if err != nil {
			return models.Status{}, false, err
		}
		*dst = v
		found = true
	}
	return st, found, nil
}

// Apply returns content with the read and next flags set to st.
//
// An existing header is rewritten in place: both keys are updated where they
// already appear or appended otherwise. Content without a header gets a fresh
// two-key header prepended.
func Apply(content []byte, st models.Status) ([]byte, error) {
	header, body, ok, err := split(content)
	if err != nil {
		return nil, err
	}
	if !ok {
		fresh := fmt.Sprintf("%s\n%s: %t\n%s: %t\n%s\n", delim, keyRead, st.Read, keyNext, st.Next, delim)
		return append([]byte(fresh), content...), nil
	}

	m, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	nl := "\n"
	if bytes.HasPrefix(content, []byte(delim+"\r\n")) {
		nl = "\r\n"
	}

	var buf bytes.Buffer
	buf.WriteString(delim + nl)
	if len(m.Content) == 0 {
		buf.Write(header)
		fmt.Fprintf(&buf, "%s: %t%s%s: %t%s", keyRead, st.Read, nl, keyNext, st.Next, nl)
	} else {
		setBool(m, keyRead, st.Read)
		setBool(m, keyNext, st.Next)
		encoded, err := encode(m)
		if err != nil {
			return nil, err
		}
		if nl != "\n" {
			encoded = bytes.ReplaceAll(encoded, []byte("\n"), []byte(nl))
		}
		buf.Write(encoded)
	}
	buf.WriteString(delim + nl)
	buf.Write(body)
	return buf.Bytes(), nil
}

func encode(m *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("frontmatter: encode header: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("frontmatter: encode header: %w", err)
	}
	return buf.Bytes(), nil
}

// split separates the header text from the remainder of the document.
// ok is false when content does not open with a delimiter line.
func split(content []byte) (header, body []byte, ok bool, err error) {
	if !bytes.HasPrefix(content, []byte(delim)) {
		return nil, content, false, nil
	}

	line, pos := nextLine(content, 0)
	if !isDelim(line) {
		return nil, content, false, nil
	}
	start := pos
	for pos < len(content) {
		line, next := nextLine(content, pos)
		if isDelim(line) {
			return content[start:pos], content[next:], true, nil
		}
		pos = next
	}
	return nil, nil, true, &ParseError{Reason: "missing closing delimiter"}
}

// nextLine returns the line starting at pos without its terminator and the
// offset just past the terminator.
func nextLine(content []byte, pos int) ([]byte, int) {
	end := bytes.IndexByte(content[pos:], '\n')
	if end < 0 {
		return content[pos:], len(content)
	}
	return content[pos : pos+end], pos + end + 1
}

func isDelim(line []byte) bool {
	return strings.TrimRight(string(line), " \t\r") == delim
}

func parseHeader(header []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(header, &doc); err != nil {
		return nil, &ParseError{Reason: "invalid header", Err: err}
	}
	if doc.Kind == 0 || (doc.Kind == yaml.DocumentNode && len(doc.Content) == 0) {
		return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}, nil
	}
	if doc.Kind != yaml.DocumentNode || doc.Content[0].Kind != yaml.MappingNode {
		return nil, &ParseError{Reason: "header is not a key/value block"}
	}
	return doc.Content[0], nil
}

func parseBool(key string, n *yaml.Node) (bool, error) {
	if n.Kind == yaml.ScalarNode {
		switch strings.ToLower(strings.TrimSpace(n.Value)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return false, &ParseError{Reason: fmt.Sprintf("key %q is not true or false", key)}
}

// setBool sets key to v in place, or appends it when missing. Later copies
// of a repeated key are removed.
func setBool(m *yaml.Node, key string, v bool) {
	value := strconv.FormatBool(v)
	found := false
	kept := m.Content[:0]
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, n := m.Content[i], m.Content[i+1]
		if k.Value == key {
			if found {
				continue
			}
			found = true
			n.Kind = yaml.ScalarNode
			n.Tag = "!!bool"
			n.Value = value
			n.Style = 0
			n.Content = nil
		}
		kept = append(kept, k, n)
	}
	m.Content = kept
	if !found {
		m.Content = append(m.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: value},
		)
	}
}
