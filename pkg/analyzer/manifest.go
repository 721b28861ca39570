package analyzer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sambabib/sustainable-electron/pkg/document"
	"github.com/sambabib/sustainable-electron/pkg/finding"
	"github.com/sambabib/sustainable-electron/pkg/logger"
	"github.com/sambabib/sustainable-electron/pkg/registry"
)

// DefaultThreshold is the dependency count from which a package is flagged.
const DefaultThreshold = 10

const highDependencyCountMessage = "This module is known to have a high dependency count - if possible consider replacing it with a leaner alternative."

// ManifestAnalyzer flags dependencies of a package.json that pull in many
// dependencies of their own
type ManifestAnalyzer struct {
	Oracle        registry.Oracle
	Threshold     int
	HelpLink      string
	ReportUnknown bool // emit an info finding when a lookup fails
	DevDeps       bool // also walk devDependencies
	Ignore        func(name string) bool
}

// NewManifestAnalyzer creates a new ManifestAnalyzer
func NewManifestAnalyzer(oracle registry.Oracle) *ManifestAnalyzer {
	return &ManifestAnalyzer{Oracle: oracle, Threshold: DefaultThreshold}
}

// ShouldMark reports whether count reaches threshold.
func ShouldMark(count, threshold int) bool {
	return count >= threshold
}

func (a *ManifestAnalyzer) Name() string { return "connected-dependencies" }

func (a *ManifestAnalyzer) Applies(doc *document.Snapshot) bool {
	return doc.IsManifest()
}

// Scan looks every declared dependency up, one at a time in document order.
// Malformed manifests produce no findings and no error.
func (a *ManifestAnalyzer) Scan(ctx context.Context, doc *document.Snapshot) ([]finding.Finding, error) {
	findings := []finding.Finding{}

	var pkg map[string]json.RawMessage
	if err := json.Unmarshal([]byte(doc.Text), &pkg); err != nil {
		logger.Debugf("Manifest: %s is not valid JSON, skipping: %v", doc.URI, err)
		return findings, nil
	}

	blocks := []string{"dependencies"}
	if a.DevDeps {
		blocks = append(blocks, "devDependencies")
	}
	entries, err := ExtractDependencies(doc.Text, blocks...)
	if err != nil {
		logger.Debugf("Manifest: %s: %v", doc.URI, err)
		return findings, nil
	}

	threshold := a.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if a.Ignore != nil && a.Ignore(entry.Name) {
			logger.Debugf("Manifest: ignoring %s", entry.Name)
			continue
		}

		count, err := a.Oracle.DependencyCount(ctx, entry.Name, entry.Declared)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Errorf("Manifest: lookup of %s failed (%s): %v", entry.Name, registry.Kind(err), err)
			if a.ReportUnknown {
				findings = append(findings, a.unknown(entry, err))
			}
			continue
		}
		logger.Debugf("Manifest: %s declares %d dependencies", entry.Name, count)

		if ShouldMark(count, threshold) {
			findings = append(findings, finding.Finding{
				Location: entryLocation(entry),
				Message:  highDependencyCountMessage,
				Severity: finding.Warning,
				Code:     finding.CodeHighDependencyCount,
				HelpLink: a.HelpLink,
				Source:   finding.Source,
			})
		}
	}
	return findings, nil
}

func (a *ManifestAnalyzer) unknown(entry DependencyEntry, err error) finding.Finding {
	return finding.Finding{
		Location: entryLocation(entry),
		Message:  fmt.Sprintf("Could not determine the dependency count of %s (%s).", entry.Name, registry.Kind(err)),
		Severity: finding.Information,
		Code:     finding.CodeDependencyCountUnknown,
		HelpLink: a.HelpLink,
		Source:   finding.Source,
	}
}

func entryLocation(entry DependencyEntry) finding.Location {
	return finding.Location{Line: entry.Line, StartColumn: entry.StartColumn, EndColumn: entry.EndColumn}
}
