// Package output renders scan findings for the terminal and for other tools.
package output

import (
	"os"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/sambabib/sustainable-electron/pkg/finding"
)

// FileResult holds the findings of one scanned file.
type FileResult struct {
	Path     string            `json:"path"`
	Findings []finding.Finding `json:"findings"`
}

var (
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF5555"))

	warningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFB86C"))

	infoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#8BE9FD"))

	filePathStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#BD93F9"))

	mutedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6272A4"))
)

// Styled reports whether output is decorated. Tests and pipes get plain text.
var Styled = isatty.IsTerminal(os.Stdout.Fd())

func applyStyle(style lipgloss.Style, text string) string {
	if Styled {
		return style.Render(text)
	}
	return text
}

func severityStyle(s finding.Severity) lipgloss.Style {
	switch s {
	case finding.Error:
		return errorStyle
	case finding.Warning:
		return warningStyle
	default:
		return infoStyle
	}
}

// Sorted orders results by path and drops files without findings.
func Sorted(results []FileResult) []FileResult {
	out := make([]FileResult, 0, len(results))
	for _, r := range results {
		if len(r.Findings) > 0 {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Count returns the number of findings across results.
func Count(results []FileResult) int {
	n := 0
	for _, r := range results {
		n += len(r.Findings)
	}
	return n
}
