package output

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/sambabib/sustainable-electron/pkg/finding"
)

// StreamSink prints each replacement finding set as it is published. The
// watch command uses it as its diagnostics sink.
type StreamSink struct {
	mu   sync.Mutex
	w    io.Writer
	name func(uri string) string
}

// NewStreamSink writes to w. name turns document URIs into display paths;
// nil prints URIs as they are.
func NewStreamSink(w io.Writer, name func(uri string) string) *StreamSink {
	if name == nil {
		name = func(uri string) string { return uri }
	}
	return &StreamSink{w: w, name: name}
}

func (s *StreamSink) Set(_ context.Context, uri string, version int32, findings []finding.Finding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	header := fmt.Sprintf("%s (v%d): %d findings", s.name(uri), version, len(findings))
	if _, err := fmt.Fprintln(s.w, applyStyle(filePathStyle, header)); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(s.w, 0, 0, 2, ' ', 0)
	for _, f := range findings {
		writeRow(tw, f)
	}
	return tw.Flush()
}

func (s *StreamSink) Clear(_ context.Context, uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := fmt.Fprintln(s.w, applyStyle(mutedStyle, s.name(uri)+": cleared"))
	return err
}
