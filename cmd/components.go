package cmd

import (
	"fmt"

	"github.com/sambabib/sustainable-electron/pkg/analyzer"
	"github.com/sambabib/sustainable-electron/pkg/config"
	"github.com/sambabib/sustainable-electron/pkg/help"
	"github.com/sambabib/sustainable-electron/pkg/registry"
)

// newOracle builds the registry lookup chain: npm, then retries under a
// timeout, then an LRU cache in front.
func newOracle(c *config.Config) (registry.Oracle, error) {
	npm := registry.NewNpmOracle(c.Registry)
	npm.Client = registry.DefaultClient(c.Timeouts.Lookup)

	var oracle registry.Oracle = registry.NewResilientOracle(npm, c.Retry.Attempts, c.Retry.InitialDelay, c.Timeouts.Lookup)
	if c.Cache.Size > 0 {
		cached, err := registry.NewCachingOracle(oracle, c.Cache.Size)
		if err != nil {
			return nil, fmt.Errorf("failed to create lookup cache: %w", err)
		}
		oracle = cached
	}
	return oracle, nil
}

// newAnalyzers returns the marker and manifest analyzers configured from c.
func newAnalyzers(c *config.Config) ([]analyzer.Analyzer, error) {
	oracle, err := newOracle(c)
	if err != nil {
		return nil, err
	}

	elem := analyzer.NewElemAnalyzer(c.Marker)
	elem.AllDocuments = c.LineScanAllDocuments

	manifest := analyzer.NewManifestAnalyzer(oracle)
	manifest.Threshold = c.Threshold
	manifest.ReportUnknown = c.ReportUnknown
	manifest.DevDeps = c.ScanDevDependencies
	manifest.Ignore = c.IsPackageIgnored
	if c.HelpPath != "" {
		manifest.HelpLink = (&help.Opener{Path: c.HelpPath}).URL()
	}

	return []analyzer.Analyzer{elem, manifest}, nil
}
