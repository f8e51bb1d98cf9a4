package wiki

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// TableOfContents is a nested outline of section headings in document order.
// A section without subsections maps to an empty outline.
type TableOfContents struct {
	keys     []string
	children map[string]*TableOfContents
}

func newTableOfContents() *TableOfContents {
	return &TableOfContents{children: make(map[string]*TableOfContents)}
}

// Keys returns the headings at this level in document order
func (t *TableOfContents) Keys() []string {
	if t == nil {
		return nil
	}
	return append([]string(nil), t.keys...)
}

// Get returns the outline nested under a heading
func (t *TableOfContents) Get(title string) (*TableOfContents, bool) {
	if t == nil {
		return nil, false
	}
	child, ok := t.children[title]
	return child, ok
}

// Len returns the number of headings at this level
func (t *TableOfContents) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// reset stores an empty outline under title. A title that already exists keeps
// its position but loses its previous subsections.
func (t *TableOfContents) reset(title string) {
	if _, ok := t.children[title]; !ok {
		t.keys = append(t.keys, title)
	}
	t.children[title] = newTableOfContents()
}

// MarshalJSON renders the outline as nested objects preserving heading order
func (t *TableOfContents) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if t != nil {
		for i, k := range t.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(k)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			child, err := t.children[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(child)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// headingPattern matches "== Title ==" lines; the marker counts are compared separately
var headingPattern = regexp.MustCompile(`(?m)^(=+) (.+?) (=+)[ \t\r]*$`)

// parseSections extracts the flat heading list and nested outline from page text.
//
// Depth is the marker count on one side minus two, so "== A ==" is depth 0.
// A heading at depth 0 starts a new top-level entry. A deeper heading is pushed
// under the current path. A heading at the same or a shallower depth pops one
// level per step of decrease plus one more, then is pushed. Duplicate titles
// under the same parent overwrite each other.
func parseSections(text string) ([]string, *TableOfContents) {
	titles := []string{}
	toc := newTableOfContents()

	var path []string
	lastDepth := 0

	for _, m := range headingPattern.FindAllStringSubmatch(text, -1) {
		if len(m[1]) != len(m[3]) {
			continue
		}
		title := strings.TrimSpace(m[2])
		if title == "" {
			continue
		}
		titles = append(titles, title)

		depth := len(m[1]) - 2
		if depth < 0 {
			depth = 0
		}

		switch {
		case depth == 0:
			lastDepth = 0
			path = []string{title}
		case depth > lastDepth:
			lastDepth = depth
			path = append(path, title)
		case depth < lastDepth:
			for lastDepth > depth {
				path = pop(path)
				lastDepth--
			}
			path = append(pop(path), title)
		default:
			path = append(pop(path), title)
		}

		insertSection(toc, path)
	}

	return titles, toc
}

// insertSection walks path[:len-1] from the root and resets the final element
func insertSection(toc *TableOfContents, path []string) {
	node := toc
	for _, elem := range path[:len(path)-1] {
		child, ok := node.children[elem]
		if !ok {
			node.reset(elem)
			child = node.children[elem]
		}
		node = child
	}
	node.reset(path[len(path)-1])
}

func pop(path []string) []string {
	if len(path) == 0 {
		return path
	}
	return path[:len(path)-1]
}

// sectionText returns the body of the section titled title from plain-text page
// content, or false when no such section exists. An empty title returns the
// text before the first heading.
func sectionText(content, title string) (string, bool) {
	if title == "" {
		if idx := strings.Index(content, "=="); idx >= 0 {
			return strings.TrimSpace(content[:idx]), true
		}
		return strings.TrimSpace(content), true
	}

	marker := "== " + title + " =="
	idx := strings.Index(content, marker)
	if idx < 0 {
		return "", false
	}
	idx += len(marker)
	// consume the rest of a deeper heading's closing markers
	for idx < len(content) && content[idx] == '=' {
		idx++
	}

	end := len(content)
	if next := strings.Index(content[idx:], "=="); next >= 0 {
		end = idx + next
	}
	return strings.TrimSpace(strings.TrimLeft(content[idx:end], "=")), true
}
