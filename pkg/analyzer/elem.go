package analyzer

import (
	"context"
	"strings"

	"github.com/sambabib/sustainable-electron/pkg/document"
	"github.com/sambabib/sustainable-electron/pkg/finding"
)

// DefaultMarker is the DOM lookup call the elem analyzer looks for.
const DefaultMarker = ".getElementById"

const elemMentionMessage = "When you use 'getElementById', in JavaScript it may be possible to replace it with modern CSS"

// ElemAnalyzer flags lines mentioning a literal marker, by default .getElementById
type ElemAnalyzer struct {
	Marker       string
	AllDocuments bool // scan every document instead of scripts only
}

// NewElemAnalyzer creates a new ElemAnalyzer
func NewElemAnalyzer(marker string) *ElemAnalyzer {
	if marker == "" {
		marker = DefaultMarker
	}
	return &ElemAnalyzer{Marker: marker}
}

func (a *ElemAnalyzer) Name() string { return a.Marker }

func (a *ElemAnalyzer) Applies(doc *document.Snapshot) bool {
	return a.AllDocuments || doc.IsScript()
}

// Scan reports the first occurrence of the marker on every line containing it.
func (a *ElemAnalyzer) Scan(_ context.Context, doc *document.Snapshot) ([]finding.Finding, error) {
	findings := []finding.Finding{}
	for lineIndex, line := range doc.Lines {
		index := strings.Index(line, a.Marker)
		if index < 0 {
			continue
		}
		start := document.UTF16Column(line, index)
		end := document.UTF16Column(line, index+len(a.Marker))
		findings = append(findings, finding.Finding{
			Location: finding.Location{Line: lineIndex, StartColumn: start, EndColumn: end},
			Message:  elemMentionMessage,
			Severity: finding.Information,
			Code:     finding.CodeElemMention,
			Source:   finding.Source,
		})
	}
	return findings, nil
}
