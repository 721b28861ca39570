package diagnostics

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sambabib/sustainable-electron/pkg/analyzer"
	"github.com/sambabib/sustainable-electron/pkg/document"
	"github.com/sambabib/sustainable-electron/pkg/finding"
	"github.com/sambabib/sustainable-electron/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAnalyzer struct {
	name string
	scan func(ctx context.Context, doc *document.Snapshot) ([]finding.Finding, error)
}

func (s *stubAnalyzer) Name() string                       { return s.name }
func (s *stubAnalyzer) Applies(doc *document.Snapshot) bool { return true }
func (s *stubAnalyzer) Scan(ctx context.Context, doc *document.Snapshot) ([]finding.Finding, error) {
	return s.scan(ctx, doc)
}

func messageFinding(msg string) finding.Finding {
	return finding.Finding{Message: msg, Code: "stub", Source: finding.Source}
}

func echoAnalyzer() *stubAnalyzer {
	return &stubAnalyzer{name: "echo", scan: func(ctx context.Context, doc *document.Snapshot) ([]finding.Finding, error) {
		return []finding.Finding{messageFinding(doc.Text)}, nil
	}}
}

func TestDispatcher_OpenChangeClose(t *testing.T) {
	sink := NewMemorySink()
	d := NewDispatcher(sink, 0, echoAnalyzer())
	defer d.Shutdown()

	d.Open(document.New("file:///a.js", 1, "one"))
	d.Wait()
	got, ok := sink.Get("file:///a.js")
	require.True(t, ok)
	assert.Equal(t, []finding.Finding{messageFinding("one")}, got)

	d.Change(document.New("file:///a.js", 2, "two"))
	d.Wait()
	got, _ = sink.Get("file:///a.js")
	assert.Equal(t, []finding.Finding{messageFinding("two")}, got, "rescan replaces the previous set")
	assert.Equal(t, int32(2), sink.Version("file:///a.js"))

	require.NoError(t, d.Close(context.Background(), "file:///a.js"))
	_, ok = sink.Get("file:///a.js")
	assert.False(t, ok)
	assert.Empty(t, sink.URIs())
}

func TestDispatcher_LatestScanWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := &stubAnalyzer{name: "slow", scan: func(ctx context.Context, doc *document.Snapshot) ([]finding.Finding, error) {
		if doc.Version == 1 {
			close(started)
			<-release // ignores cancellation on purpose
		}
		return []finding.Finding{messageFinding(doc.Text)}, nil
	}}

	sink := NewMemorySink()
	d := NewDispatcher(sink, 0, slow)
	defer d.Shutdown()

	d.Open(document.New("file:///package.json", 1, "old"))
	<-started
	d.Change(document.New("file:///package.json", 2, "new"))

	require.Eventually(t, func() bool {
		got, ok := sink.Get("file:///package.json")
		return ok && len(got) == 1 && got[0].Message == "new"
	}, time.Second, 5*time.Millisecond)

	close(release)
	d.Wait()

	got, _ := sink.Get("file:///package.json")
	assert.Equal(t, []finding.Finding{messageFinding("new")}, got)
	assert.Equal(t, int32(2), sink.Version("file:///package.json"))
}

func TestDispatcher_NewEventCancelsInFlightScan(t *testing.T) {
	cancelled := make(chan error, 1)
	blocking := &stubAnalyzer{name: "blocking", scan: func(ctx context.Context, doc *document.Snapshot) ([]finding.Finding, error) {
		if doc.Version == 1 {
			<-ctx.Done()
			cancelled <- ctx.Err()
			return nil, ctx.Err()
		}
		return nil, nil
	}}

	d := NewDispatcher(NewMemorySink(), 0, blocking)
	defer d.Shutdown()

	d.Open(document.New("file:///a.js", 1, ""))
	d.Change(document.New("file:///a.js", 2, ""))

	select {
	case err := <-cancelled:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("stale scan was not cancelled")
	}
}

func TestDispatcher_CloseDuringScanLeavesNoEntry(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	slow := &stubAnalyzer{name: "slow", scan: func(ctx context.Context, doc *document.Snapshot) ([]finding.Finding, error) {
		close(started)
		<-release
		return []finding.Finding{messageFinding("late")}, nil
	}}

	sink := NewMemorySink()
	d := NewDispatcher(sink, 0, slow)
	defer d.Shutdown()

	d.Open(document.New("file:///a.js", 1, ""))
	<-started
	require.NoError(t, d.Close(context.Background(), "file:///a.js"))
	close(release)
	d.Wait()

	_, ok := sink.Get("file:///a.js")
	assert.False(t, ok)
}

func TestDispatcher_ScanTimeout(t *testing.T) {
	hang := &stubAnalyzer{name: "hang", scan: func(ctx context.Context, doc *document.Snapshot) ([]finding.Finding, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	sink := NewMemorySink()
	d := NewDispatcher(sink, 20*time.Millisecond, hang)
	defer d.Shutdown()

	d.Open(document.New("file:///a.js", 1, ""))
	d.Wait()
	_, ok := sink.Get("file:///a.js")
	assert.False(t, ok)
}

func TestDispatcher_DocumentsAreIndependent(t *testing.T) {
	sink := NewMemorySink()
	d := NewDispatcher(sink, 0, echoAnalyzer())
	defer d.Shutdown()

	d.Open(document.New("file:///a.js", 1, "a"))
	d.Open(document.New("file:///b.js", 1, "b"))
	d.Activate(document.New("file:///c.js", 1, "c"))
	d.Wait()

	assert.Equal(t, []string{"file:///a.js", "file:///b.js", "file:///c.js"}, sink.URIs())
	require.NoError(t, d.Close(context.Background(), "file:///b.js"))
	assert.Equal(t, []string{"file:///a.js", "file:///c.js"}, sink.URIs())
}

func TestDispatcher_ShutdownIgnoresEvents(t *testing.T) {
	sink := NewMemorySink()
	d := NewDispatcher(sink, 0, echoAnalyzer())
	d.Shutdown()

	d.Open(document.New("file:///a.js", 1, "a"))
	d.Wait()
	assert.Empty(t, sink.URIs())
}

func TestScan_CombinesAnalyzersAndSurvivesFailures(t *testing.T) {
	broken := &stubAnalyzer{name: "broken", scan: func(ctx context.Context, doc *document.Snapshot) ([]finding.Finding, error) {
		return nil, errors.New("boom")
	}}
	oracle := registry.OracleFunc(func(ctx context.Context, name, declared string) (int, error) {
		return map[string]int{"a": 15, "b": 3, "c": 12}[name], nil
	})

	elem := analyzer.NewElemAnalyzer("")
	elem.AllDocuments = true
	manifest := analyzer.NewManifestAnalyzer(oracle)

	text := strings.Join([]string{
		`{`,
		`  "description": "uses .getElementById",`,
		`  "dependencies": {"a": "1", "b": "1", "c": "1"}`,
		`}`,
	}, "\n")
	doc := document.New("file:///p/package.json", 3, text)

	findings, err := Scan(context.Background(), doc, elem, broken, manifest)
	require.NoError(t, err)
	require.Len(t, findings, 3)
	assert.Equal(t, finding.CodeElemMention, findings[0].Code)
	assert.Equal(t, finding.CodeHighDependencyCount, findings[1].Code)
	assert.Equal(t, finding.CodeHighDependencyCount, findings[2].Code)

	again, err := Scan(context.Background(), doc, elem, broken, manifest)
	require.NoError(t, err)
	assert.Equal(t, findings, again, "scanning an unchanged document is idempotent")
}
