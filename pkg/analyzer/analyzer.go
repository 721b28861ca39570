package analyzer

import (
	"context"

	"github.com/sambabib/sustainable-electron/pkg/document"
	"github.com/sambabib/sustainable-electron/pkg/finding"
)

// Analyzer defines the interface for document analyzers (marker lines, package manifests)
type Analyzer interface {
	// Name identifies the analyzer in logs and reports
	Name() string
	// Applies reports whether the analyzer wants to see doc at all
	Applies(doc *document.Snapshot) bool
	// Scan returns the complete set of findings for doc. Only a cancelled
	// context makes it return an error.
	Scan(ctx context.Context, doc *document.Snapshot) ([]finding.Finding, error)
}
