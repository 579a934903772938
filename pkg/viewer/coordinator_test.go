package viewer

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/graphpad/graphpad/pkg/engine"
)

// stubSVG is shaped like Graphviz SVG output: 62x116pt with a matching
// viewBox, so the fit view is scale 1.
const stubSVG = `<?xml version="1.0"?>
<svg width="62pt" height="116pt" viewBox="0.00 0.00 62.00 116.00" xmlns="http://www.w3.org/2000/svg">
<g id="graph0" class="graph" transform="scale(1 1) rotate(0) translate(4 112)">
<ellipse fill="none" stroke="black" cx="27" cy="-90" rx="27" ry="18"/>
</g>
</svg>
`

// stubCall records one engine invocation.
type stubCall struct {
	source string
	layout engine.Layout
}

// stubRenderer is a controllable engine spy. With a gate, each Render call
// blocks until the test releases it; without one it completes immediately.
type stubRenderer struct {
	mu      sync.Mutex
	calls   []stubCall
	gate    chan error
	failAll bool
	closed  bool
}

func (s *stubRenderer) Render(ctx context.Context, source string, layout engine.Layout) ([]byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, stubCall{source: source, layout: layout})
	failAll := s.failAll
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		if err := <-gate; err != nil {
			return nil, err
		}
		return []byte(stubSVG), nil
	}
	if failAll {
		return nil, fmt.Errorf("syntax error in line 1 near '%s'", source)
	}
	return []byte(stubSVG), nil
}

func (s *stubRenderer) Version(ctx context.Context) (string, error) {
	return "graphviz 9.0.0 (test)", nil
}

func (s *stubRenderer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *stubRenderer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *stubRenderer) call(i int) stubCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[i]
}

// recorder collects notifications as comparable strings.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) InitializationComplete()        { r.add("init") }
func (r *recorder) RenderError(diagnostic string)  { r.add("error:" + diagnostic) }
func (r *recorder) RenderingStateChanged(on bool)  { r.add(fmt.Sprintf("rendering:%v", on)) }
func (r *recorder) LoadedStateChanged(loaded bool) { r.add(fmt.Sprintf("loaded:%v", loaded)) }
func (r *recorder) ZoomLevelChanged(level float64) { r.add(fmt.Sprintf("zoom:%g", level)) }

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) count(prefix string) int {
	n := 0
	for _, e := range r.list() {
		if len(e) >= len(prefix) && e[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (r *recorder) contains(want string) bool {
	for _, e := range r.list() {
		if e == want {
			return true
		}
	}
	return false
}

// waitFor polls until cond holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// newTestCoordinator builds a coordinator with immediate zooms.
func newTestCoordinator(t *testing.T, stub *stubRenderer, rec *recorder) *Coordinator {
	t.Helper()
	c := New(context.Background(), stub, Options{Events: rec})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// sync flushes the coordinator loop by running a no-op query.
func (c *Coordinator) sync() {
	c.query(func() {})
}

func TestRenderLifecycle(t *testing.T) {
	stub := &stubRenderer{}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetData("digraph { a -> b }", engine.Dot)
	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })
	c.sync()

	if got := stub.callCount(); got != 1 {
		t.Errorf("engine invoked %d times, want 1", got)
	}
	if call := stub.call(0); call.source != "digraph { a -> b }" || call.layout != engine.Dot {
		t.Errorf("engine received %+v", call)
	}

	want := []string{"init", "rendering:true", "rendering:false", "loaded:true", "zoom:1"}
	got := rec.list()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}

	if level := c.ZoomLevel(); level != 1 {
		t.Errorf("ZoomLevel = %v, want 1", level)
	}
}

func TestCoalescingLastWriteWins(t *testing.T) {
	stub := &stubRenderer{gate: make(chan error)}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetData("A", engine.Dot)
	waitFor(t, "first invocation", func() bool { return stub.callCount() == 1 })

	// Both arrive while the first render is in flight; only the newest
	// survives.
	c.SetData("AB", engine.Dot)
	c.SetData("ABC", engine.Dot)
	c.sync()

	stub.gate <- nil // release first render; its result is stale
	waitFor(t, "second invocation", func() bool { return stub.callCount() == 2 })
	stub.gate <- nil

	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })
	c.sync()

	if got := stub.callCount(); got != 2 {
		t.Errorf("engine invoked %d times, want 2", got)
	}
	if call := stub.call(1); call.source != "ABC" {
		t.Errorf("second invocation rendered %q, want %q", call.source, "ABC")
	}
	// The stale first result must not have surfaced.
	if got := rec.count("loaded:"); got != 1 {
		t.Errorf("loaded notifications = %d, want 1", got)
	}
}

func TestNoOpResubmission(t *testing.T) {
	stub := &stubRenderer{}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetData("digraph {}", engine.Dot)
	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })
	c.sync()
	before := len(rec.list())

	// Identical to the last executed request: no engine call, no events.
	c.SetData("digraph {}", engine.Dot)
	c.sync()

	if got := stub.callCount(); got != 1 {
		t.Errorf("engine invoked %d times, want 1", got)
	}
	if got := len(rec.list()); got != before {
		t.Errorf("resubmission emitted %d new events", got-before)
	}

	// A different engine with the same source is not a no-op.
	c.SetData("digraph {}", engine.Neato)
	waitFor(t, "second render", func() bool { return stub.callCount() == 2 })
}

func TestEmptySource(t *testing.T) {
	stub := &stubRenderer{}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetData("", engine.Dot)
	c.sync()
	if stub.callCount() != 0 {
		t.Error("empty source must never reach the engine")
	}
	if !rec.contains("loaded:false") {
		t.Errorf("events = %v, want loaded:false", rec.list())
	}

	// Whitespace-only source counts as empty too.
	c.SetData("   \n\t", engine.Dot)
	c.sync()
	if stub.callCount() != 0 {
		t.Error("whitespace source must never reach the engine")
	}
}

func TestEmptySourceClearsLoadedVisual(t *testing.T) {
	stub := &stubRenderer{}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetData("digraph { a }", engine.Dot)
	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })
	c.ZoomBy(3)
	c.sync()

	c.SetData("", engine.Dot)
	c.sync()

	if !rec.contains("loaded:false") {
		t.Error("clearing should notify loaded:false")
	}
	if level := c.ZoomLevel(); level != 1 {
		t.Errorf("ZoomLevel after clear = %v, want 1", level)
	}
	if _, ok := c.ExportSnapshot(); ok {
		t.Error("export after clear should report nothing loaded")
	}

	// The same source renders again after a clear.
	c.SetData("digraph { a }", engine.Dot)
	waitFor(t, "re-render", func() bool { return stub.callCount() == 2 })
}

func TestEmptySupersedesInFlight(t *testing.T) {
	stub := &stubRenderer{gate: make(chan error)}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetData("graph { a -- b }", engine.Dot)
	waitFor(t, "invocation", func() bool { return stub.callCount() == 1 })
	c.SetData("", engine.Dot)
	c.sync()

	stub.gate <- nil // in-flight render succeeds, but is already stale
	waitFor(t, "cleared", func() bool { return rec.contains("loaded:false") })
	c.sync()

	if got := stub.callCount(); got != 1 {
		t.Errorf("engine invoked %d times, want 1", got)
	}
	if rec.contains("loaded:true") {
		t.Error("superseded result must not surface as loaded")
	}
	if level := c.ZoomLevel(); level != 1 {
		t.Errorf("ZoomLevel = %v, want 1", level)
	}
}

func TestRenderErrorSurfacesDiagnostic(t *testing.T) {
	stub := &stubRenderer{failAll: true}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetData("bad syntax", engine.Dot)
	waitFor(t, "error", func() bool { return rec.count("error:") == 1 })
	c.sync()

	events := rec.list()
	for _, e := range events {
		if e == "loaded:true" || e == "loaded:false" {
			t.Errorf("no loaded notification expected, got %v", events)
		}
	}
	if !rec.contains("error:syntax error in line 1 near 'bad syntax'") {
		t.Errorf("diagnostic not forwarded verbatim: %v", events)
	}

	// The coordinator stays usable after a failure.
	stub.mu.Lock()
	stub.failAll = false
	stub.mu.Unlock()
	c.SetData("digraph {}", engine.Dot)
	waitFor(t, "recovery", func() bool { return rec.contains("loaded:true") })
}

func TestPendingRunsAfterFailure(t *testing.T) {
	stub := &stubRenderer{gate: make(chan error)}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetData("bad", engine.Dot)
	waitFor(t, "invocation", func() bool { return stub.callCount() == 1 })
	c.SetData("digraph {}", engine.Dot)
	c.sync()

	stub.gate <- fmt.Errorf("syntax error in line 1 near 'bad'")
	waitFor(t, "second invocation", func() bool { return stub.callCount() == 2 })
	stub.gate <- nil

	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })
	if rec.count("error:") != 1 {
		t.Errorf("error notifications = %d, want 1", rec.count("error:"))
	}
	if call := stub.call(1); call.source != "digraph {}" {
		t.Errorf("pending request rendered %q", call.source)
	}
}

func TestResubmittingInFlightRequestDropsPending(t *testing.T) {
	stub := &stubRenderer{gate: make(chan error)}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetData("A", engine.Dot)
	waitFor(t, "invocation", func() bool { return stub.callCount() == 1 })
	c.SetData("B", engine.Dot)
	// The user typed back to exactly what is being rendered; the queued
	// "B" is obsolete and the in-flight result may stand.
	c.SetData("A", engine.Dot)
	c.sync()

	stub.gate <- nil
	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })
	c.sync()

	if got := stub.callCount(); got != 1 {
		t.Errorf("engine invoked %d times, want 1", got)
	}
}

func TestZoomOperations(t *testing.T) {
	stub := &stubRenderer{}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	// Zoom without a visual is a harmless no-op.
	c.ZoomBy(2)
	c.ResetZoom()
	c.sync()
	if rec.count("zoom:") != 0 {
		t.Errorf("zoom on empty coordinator emitted %v", rec.list())
	}

	c.SetData("digraph {}", engine.Dot)
	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })

	c.ZoomBy(2)
	waitFor(t, "zoomed", func() bool { return rec.contains("zoom:2") })
	if level := c.ZoomLevel(); level != 2 {
		t.Errorf("ZoomLevel = %v, want 2", level)
	}

	c.ZoomBy(2)
	waitFor(t, "zoomed again", func() bool { return rec.contains("zoom:4") })

	c.ResetZoom()
	waitFor(t, "reset", func() bool { return rec.count("zoom:1") >= 2 })
	if level := c.ZoomLevel(); level != 1 {
		t.Errorf("ZoomLevel after reset = %v, want 1", level)
	}
}

func TestZoomScaleExtent(t *testing.T) {
	stub := &stubRenderer{}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetZoomScaleExtent(0.5, 4)
	c.SetData("digraph {}", engine.Dot)
	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })

	c.ZoomBy(100)
	waitFor(t, "clamped high", func() bool { return rec.contains("zoom:4") })

	c.ZoomBy(0.0001)
	waitFor(t, "clamped low", func() bool { return rec.contains("zoom:0.5") })
}

func TestZoomScaleExtentNormalizesInvertedBounds(t *testing.T) {
	stub := &stubRenderer{}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	// Swapped arguments still yield the [0.5, 4] extent.
	c.SetZoomScaleExtent(4, 0.5)
	c.SetData("digraph {}", engine.Dot)
	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })

	c.ZoomBy(100)
	waitFor(t, "clamped high", func() bool { return rec.contains("zoom:4") })

	c.ZoomBy(0.0001)
	waitFor(t, "clamped low", func() bool { return rec.contains("zoom:0.5") })
}

func TestResetZoomUsesViewport(t *testing.T) {
	stub := &stubRenderer{}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	c.SetData("digraph {}", engine.Dot)
	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })

	// The stub visual is 62x116; a doubled viewport fits at scale 2.
	c.Resize(124, 232)
	c.ResetZoom()
	waitFor(t, "fit to viewport", func() bool { return rec.contains("zoom:2") })
	if level := c.ZoomLevel(); level != 2 {
		t.Errorf("ZoomLevel = %v, want 2", level)
	}
}

func TestExportSnapshotStableAcrossZoom(t *testing.T) {
	stub := &stubRenderer{}
	rec := &recorder{}
	c := newTestCoordinator(t, stub, rec)

	if _, ok := c.ExportSnapshot(); ok {
		t.Error("export with nothing loaded should report ok=false")
	}

	c.SetData("digraph { a -> b }", engine.Dot)
	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })

	before, ok := c.ExportSnapshot()
	if !ok {
		t.Fatal("export after render should succeed")
	}

	c.ZoomBy(2.5)
	waitFor(t, "zoomed", func() bool { return rec.contains("zoom:2.5") })
	c.ResetZoom()
	waitFor(t, "reset", func() bool { return rec.count("zoom:1") >= 2 })

	after, ok := c.ExportSnapshot()
	if !ok {
		t.Fatal("export after zoom should succeed")
	}
	if before != after {
		t.Error("exports across pure zoom changes should be byte-identical")
	}
}

func TestZoomAnimationSettles(t *testing.T) {
	stub := &stubRenderer{}
	rec := &recorder{}
	c := New(context.Background(), stub, Options{
		Events:        rec,
		ZoomAnimation: 20 * time.Millisecond,
	})
	t.Cleanup(func() { _ = c.Close() })

	c.SetData("digraph {}", engine.Dot)
	waitFor(t, "loaded", func() bool { return rec.contains("loaded:true") })

	// A newer zoom supersedes the unsettled one; only the final level is
	// ever notified.
	c.ZoomBy(2)
	c.ZoomBy(4)
	waitFor(t, "settled", func() bool { return rec.contains("zoom:4") })
	c.sync()

	if rec.contains("zoom:2") {
		t.Errorf("superseded zoom should not notify, events = %v", rec.list())
	}
	if level := c.ZoomLevel(); level != 4 {
		t.Errorf("ZoomLevel = %v, want 4", level)
	}
}

func TestEngineVersion(t *testing.T) {
	stub := &stubRenderer{}
	c := newTestCoordinator(t, stub, &recorder{})
	if got := c.EngineVersion(); got != "graphviz 9.0.0 (test)" {
		t.Errorf("EngineVersion = %q", got)
	}
}

func TestCloseClosesRenderer(t *testing.T) {
	stub := &stubRenderer{}
	c := New(context.Background(), stub, Options{})
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	stub.mu.Lock()
	closed := stub.closed
	stub.mu.Unlock()
	if !closed {
		t.Error("Close should close the renderer")
	}

	// Close is idempotent and late calls are harmless.
	if err := c.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	c.SetData("digraph {}", engine.Dot)
	if level := c.ZoomLevel(); level != 1 {
		t.Errorf("ZoomLevel after close = %v, want 1", level)
	}
}
