package diagnostics

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sambabib/sustainable-electron/pkg/analyzer"
	"github.com/sambabib/sustainable-electron/pkg/document"
	"github.com/sambabib/sustainable-electron/pkg/finding"
	"github.com/sambabib/sustainable-electron/pkg/logger"
)

// docState tracks the newest scan started for one document.
type docState struct {
	seq    uint64
	cancel context.CancelFunc
}

// Dispatcher rescans documents on open, change and activation and publishes
// the results. A newer event for a document cancels the scan in flight for
// it, and only the newest scan may publish.
type Dispatcher struct {
	analyzers []analyzer.Analyzer
	sink      Sink
	timeout   time.Duration

	base   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	docs   map[string]*docState
	seq    uint64
	closed bool
}

// NewDispatcher creates a Dispatcher publishing to sink. A zero scanTimeout
// means scans are bounded only by cancellation.
func NewDispatcher(sink Sink, scanTimeout time.Duration, analyzers ...analyzer.Analyzer) *Dispatcher {
	base, stop := context.WithCancel(context.Background())
	return &Dispatcher{
		analyzers: analyzers,
		sink:      sink,
		timeout:   scanTimeout,
		base:      base,
		stop:      stop,
		docs:      make(map[string]*docState),
	}
}

// Open handles a document-opened event.
func (d *Dispatcher) Open(doc *document.Snapshot) { d.schedule(doc, "open") }

// Change handles a document-changed event.
func (d *Dispatcher) Change(doc *document.Snapshot) { d.schedule(doc, "change") }

// Activate handles the active editor switching to doc.
func (d *Dispatcher) Activate(doc *document.Snapshot) { d.schedule(doc, "activate") }

// Close cancels any scan of uri and clears its findings from the sink.
func (d *Dispatcher) Close(ctx context.Context, uri string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.docs[uri]; ok {
		st.cancel()
		delete(d.docs, uri)
	}
	return d.sink.Clear(ctx, uri)
}

// Wait blocks until every scan started so far has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown cancels all scans, waits for them and refuses further events.
func (d *Dispatcher) Shutdown() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.stop()
	d.wg.Wait()
}

func (d *Dispatcher) schedule(doc *document.Snapshot, event string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if st, ok := d.docs[doc.URI]; ok {
		st.cancel()
	}
	d.seq++
	seq := d.seq

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if d.timeout > 0 {
		ctx, cancel = context.WithTimeout(d.base, d.timeout)
	} else {
		ctx, cancel = context.WithCancel(d.base)
	}
	d.docs[doc.URI] = &docState{seq: seq, cancel: cancel}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer cancel()
		d.run(ctx, doc, seq, event)
	}()
}

func (d *Dispatcher) run(ctx context.Context, doc *document.Snapshot, seq uint64, event string) {
	runID := uuid.NewString()
	logger.Debugf("Scan %s: %s %s v%d", runID, event, doc.URI, doc.Version)

	findings, err := Scan(ctx, doc, d.analyzers...)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warnf("Scan %s: %s timed out after %s", runID, doc.URI, d.timeout)
		} else {
			logger.Debugf("Scan %s: %s superseded", runID, doc.URI)
		}
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	st, ok := d.docs[doc.URI]
	if !ok || st.seq != seq {
		logger.Debugf("Scan %s: dropping stale result for %s", runID, doc.URI)
		return
	}
	if err := d.sink.Set(ctx, doc.URI, doc.Version, findings); err != nil {
		logger.Errorf("Scan %s: failed to publish findings for %s: %v", runID, doc.URI, err)
		return
	}
	logger.Debugf("Scan %s: published %d findings for %s", runID, len(findings), doc.URI)
}

// Scan runs every applicable analyzer over doc and returns the combined
// findings. It fails only when ctx ends first.
func Scan(ctx context.Context, doc *document.Snapshot, analyzers ...analyzer.Analyzer) ([]finding.Finding, error) {
	findings := []finding.Finding{}
	for _, a := range analyzers {
		if !a.Applies(doc) {
			continue
		}
		found, err := a.Scan(ctx, doc)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Errorf("Analyzer %s failed on %s: %v", a.Name(), doc.URI, err)
			continue
		}
		findings = append(findings, found...)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return findings, nil
}
