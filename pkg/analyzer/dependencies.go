package analyzer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sambabib/sustainable-electron/pkg/document"
)

var errNotObject = errors.New("manifest is not a JSON object")

// DependencyEntry is one package declared in a manifest dependency block,
// with the span of its name (without quotes) for placing findings.
type DependencyEntry struct {
	Name        string
	Declared    string // version range, empty when not a string
	Block       string // "dependencies" or "devDependencies"
	Line        int
	StartColumn int // UTF-16 code units
	EndColumn   int
}

// ExtractDependencies walks the top-level blocks named in blocks and returns
// their entries in document order. Only the first occurrence of a block key
// is used, and values other than objects yield no entries.
func ExtractDependencies(text string, blocks ...string) ([]DependencyEntry, error) {
	want := make(map[string]bool, len(blocks))
	for _, b := range blocks {
		want[b] = true
	}

	dec := json.NewDecoder(strings.NewReader(text))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("invalid manifest: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	idx := newLineIndex(text)
	seen := map[string]bool{}
	entries := []DependencyEntry{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid manifest: %w", err)
		}
		key, _ := tok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("invalid manifest value for %q: %w", key, err)
		}
		if !want[key] || seen[key] {
			continue
		}
		seen[key] = true

		base := int(dec.InputOffset()) - len(raw)
		block, err := walkBlock(raw, base, key, text, idx)
		if err != nil {
			return nil, err
		}
		entries = append(entries, block...)
	}
	return entries, nil
}

// walkBlock reads the keys of the object in raw, which starts at byte offset
// base of text.
func walkBlock(raw json.RawMessage, base int, block, text string, idx lineIndex) ([]DependencyEntry, error) {
	if len(raw) == 0 || raw[0] != '{' {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("invalid %s block: %w", block, err)
	}

	var entries []DependencyEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("invalid %s block: %w", block, err)
		}
		name, _ := tok.(string)
		// the offset sits right after the closing quote of the key
		closing := base + int(dec.InputOffset()) - 1
		opening := openingQuote(text, closing)

		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("invalid %s entry %q: %w", block, name, err)
		}
		var declared string
		_ = json.Unmarshal(value, &declared)

		line, start, end := idx.span(opening+1, closing)
		entries = append(entries, DependencyEntry{
			Name:        name,
			Declared:    declared,
			Block:       block,
			Line:        line,
			StartColumn: start,
			EndColumn:   end,
		})
	}
	return entries, nil
}

// openingQuote finds the unescaped quote that opens the string closed at closing.
func openingQuote(text string, closing int) int {
	for i := closing - 1; i >= 0; i-- {
		if text[i] != '"' {
			continue
		}
		backslashes := 0
		for j := i - 1; j >= 0 && text[j] == '\\'; j-- {
			backslashes++
		}
		if backslashes%2 == 0 {
			return i
		}
	}
	return 0
}

// lineIndex maps byte offsets of a text to line and UTF-16 column.
type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{text: text, starts: starts}
}

// span converts the byte range [from, to) on a single line.
func (l lineIndex) span(from, to int) (line, start, end int) {
	line = sort.Search(len(l.starts), func(i int) bool { return l.starts[i] > from }) - 1
	lineStart := l.starts[line]
	lineEnd := len(l.text)
	if line+1 < len(l.starts) {
		lineEnd = l.starts[line+1]
	}
	lineText := l.text[lineStart:lineEnd]
	return line, document.UTF16Column(lineText, from-lineStart), document.UTF16Column(lineText, to-lineStart)
}
