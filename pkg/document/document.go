// Package document holds the read-only text snapshots the analyzers scan.
package document

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf16"

	"go.lsp.dev/uri"
)

var lineBreak = regexp.MustCompile(`\r\n|\n`)

var scriptExtensions = map[string]bool{
	".js":   true,
	".jsx":  true,
	".mjs":  true,
	".cjs":  true,
	".ts":   true,
	".tsx":  true,
	".html": true,
	".htm":  true,
}

// Snapshot is the full text of one document at one version.
type Snapshot struct {
	URI     string
	Version int32
	Text    string
	Lines   []string
}

// New splits text into lines and returns a snapshot of it.
func New(uri string, version int32, text string) *Snapshot {
	return &Snapshot{
		URI:     uri,
		Version: version,
		Text:    text,
		Lines:   lineBreak.Split(text, -1),
	}
}

// FromFile reads the file at filePath into a snapshot addressed by its file:// URI.
func FromFile(filePath string, version int32) (*Snapshot, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return New(FileURI(filePath), version, string(data)), nil
}

// FileURI returns the file:// URI of a local path.
func FileURI(filePath string) string {
	if abs, err := filepath.Abs(filePath); err == nil {
		filePath = abs
	}
	return string(uri.File(filePath))
}

// Tracked reports whether a file at filePath is a manifest or a script, the
// documents the file-based hosts pick up.
func Tracked(filePath string) bool {
	base := filepath.Base(filePath)
	return base == "package.json" || scriptExtensions[strings.ToLower(filepath.Ext(base))]
}

// Base returns the last path element of the document URI.
func (s *Snapshot) Base() string {
	u := s.URI
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	return path.Base(u)
}

// IsManifest reports whether the document is an npm package.json.
func (s *Snapshot) IsManifest() bool {
	return s.Base() == "package.json"
}

// IsScript reports whether the document is JavaScript, TypeScript or HTML.
func (s *Snapshot) IsScript() bool {
	return scriptExtensions[strings.ToLower(path.Ext(s.Base()))]
}

// UTF16Column converts a byte offset within line into UTF-16 code units.
func UTF16Column(line string, byteOffset int) int {
	if byteOffset > len(line) {
		byteOffset = len(line)
	}
	col := 0
	for _, r := range line[:byteOffset] {
		col += utf16.RuneLen(r)
	}
	return col
}
