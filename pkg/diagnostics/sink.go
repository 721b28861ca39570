// Package diagnostics routes document events to the analyzers and publishes
// their findings to a sink, one complete set per document.
package diagnostics

import (
	"context"
	"sort"
	"sync"

	"github.com/sambabib/sustainable-electron/pkg/finding"
)

// Sink stores the current findings of each document. Set replaces whatever
// was stored for uri before.
type Sink interface {
	Set(ctx context.Context, uri string, version int32, findings []finding.Finding) error
	Clear(ctx context.Context, uri string) error
}

// MemorySink keeps findings in memory. Batch scans and tests use it.
type MemorySink struct {
	mu       sync.RWMutex
	findings map[string][]finding.Finding
	versions map[string]int32
}

// NewMemorySink creates an empty MemorySink
func NewMemorySink() *MemorySink {
	return &MemorySink{
		findings: make(map[string][]finding.Finding),
		versions: make(map[string]int32),
	}
}

func (s *MemorySink) Set(_ context.Context, uri string, version int32, findings []finding.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findings[uri] = append([]finding.Finding(nil), findings...)
	s.versions[uri] = version
	return nil
}

func (s *MemorySink) Clear(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.findings, uri)
	delete(s.versions, uri)
	return nil
}

// Get returns the findings stored for uri and whether there is an entry.
func (s *MemorySink) Get(uri string) ([]finding.Finding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.findings[uri]
	return f, ok
}

// Version returns the document version the stored findings were computed for.
func (s *MemorySink) Version(uri string) int32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.versions[uri]
}

// URIs lists documents with an entry, sorted.
func (s *MemorySink) URIs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uris := make([]string, 0, len(s.findings))
	for uri := range s.findings {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	return uris
}
