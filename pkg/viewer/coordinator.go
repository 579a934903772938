// Package viewer coordinates live rendering of graph descriptions.
//
// A Coordinator owns one layout engine instance and the most recent rendered
// visual for one open document. It turns a stream of rapid, overlapping
// render requests into a strictly sequential series of engine invocations:
// at most one render is in flight, and requests arriving meanwhile collapse
// into the single newest one (last-write-wins). Layout is expensive relative
// to keystroke frequency; only the newest source state is ever worth
// showing, so intermediate requests are dropped, never queued.
//
// All state lives on a single loop goroutine. Public methods post commands
// onto that loop and return; results are observed through the Events
// notifications. Engine invocations run on their own goroutine so the loop
// stays responsive, with completion delivered back as a posted command —
// the pending request is then re-submitted as a tail call rather than a
// nested callback.
package viewer

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/graphpad/graphpad/pkg/engine"
	"github.com/graphpad/graphpad/pkg/observability"
	"github.com/graphpad/graphpad/pkg/visual"
)

// DefaultZoomAnimation is how long a zoom operation takes to settle.
const DefaultZoomAnimation = 250 * time.Millisecond

// Default zoom scale extent, matching typical interactive viewers.
const (
	DefaultMinZoom = 0.1
	DefaultMaxZoom = 10
)

// renderState tracks the coordinator's position in the render cycle.
type renderState int

const (
	// stateIdle: no engine invocation in flight.
	stateIdle renderState = iota
	// stateRendering: one invocation in flight, nothing queued behind it.
	stateRendering
	// stateRenderingPending: one invocation in flight plus the single
	// newest superseding request, executed when the in-flight one ends.
	stateRenderingPending
)

// request is a submitted (source, layout) pair.
type request struct {
	source string
	layout engine.Layout
}

// Options configures a Coordinator.
type Options struct {
	// Events receives outbound notifications. Nil means discard.
	Events Events

	// Logger for debug output. Nil disables logging.
	Logger *log.Logger

	// ZoomAnimation is the settle delay for zoom operations.
	// Zero applies zooms immediately; negative values are treated as zero.
	ZoomAnimation time.Duration

	// MinZoom and MaxZoom bound the zoom scale. Zero values fall back to
	// the defaults.
	MinZoom float64
	MaxZoom float64
}

// Coordinator serializes render requests against one layout engine instance
// and tracks the resulting visual, its load state, and its zoom transform.
type Coordinator struct {
	renderer  engine.Renderer
	events    Events
	logger    *log.Logger
	version   string
	renderCtx context.Context

	cmds      chan func()
	closed    chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
	inflight  sync.WaitGroup

	// Everything below is owned by the loop goroutine.
	state     renderState
	pending   *request
	last      request
	haveLast  bool
	vis       *visual.Visual
	zoomAnim  time.Duration
	minZoom   float64
	maxZoom   float64
	viewportW float64
	viewportH float64
	animSeq   uint64
}

// New creates a Coordinator around the given renderer and starts its loop.
// The renderer is probed once so the engine version is known and the wasm
// instance is warm; InitializationComplete fires after the probe. The
// coordinator takes ownership of the renderer and closes it on Close.
//
// ctx governs engine invocations issued by this coordinator, not the
// coordinator's lifetime; cancel it and outstanding renders fail like any
// other engine error.
func New(ctx context.Context, renderer engine.Renderer, opts Options) *Coordinator {
	if opts.Events == nil {
		opts.Events = NoopEvents{}
	}
	if opts.MinZoom == 0 {
		opts.MinZoom = DefaultMinZoom
	}
	if opts.MaxZoom == 0 {
		opts.MaxZoom = DefaultMaxZoom
	}
	if opts.ZoomAnimation < 0 {
		opts.ZoomAnimation = 0
	}

	if ctx == nil {
		ctx = context.Background()
	}

	c := &Coordinator{
		renderer:  renderer,
		events:    opts.Events,
		logger:    opts.Logger,
		renderCtx: ctx,
		cmds:      make(chan func(), 64),
		closed:    make(chan struct{}),
		stopped:   make(chan struct{}),
		zoomAnim:  opts.ZoomAnimation,
		minZoom:   opts.MinZoom,
		maxZoom:   opts.MaxZoom,
	}

	version, err := renderer.Version(ctx)
	if err != nil {
		c.debugf("engine version probe failed", "err", err)
		version = "unavailable"
	}
	c.version = version

	go c.run()
	return c
}

// run executes posted commands until the coordinator closes. This is the
// single logical control thread: every state transition happens here.
func (c *Coordinator) run() {
	defer close(c.stopped)

	c.events.InitializationComplete()

	for {
		select {
		case <-c.closed:
			return
		case fn := <-c.cmds:
			fn()
		}
	}
}

// post schedules fn on the loop. Returns false once the coordinator closed.
func (c *Coordinator) post(fn func()) bool {
	select {
	case <-c.closed:
		return false
	case c.cmds <- fn:
		return true
	}
}

// Close stops the loop, waits for any in-flight engine call to return, and
// closes the renderer. A hung engine call stalls Close the same way it
// stalls the state machine; no timeout is imposed here.
func (c *Coordinator) Close() error {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
	<-c.stopped
	c.inflight.Wait()
	return c.renderer.Close()
}

// =============================================================================
// Inbound commands
// =============================================================================

// SetData submits source text for rendering with the given layout engine.
// It returns immediately; progress is reported through Events. Depending on
// coordinator state the request starts now, supersedes a queued one, or is
// dropped as redundant.
func (c *Coordinator) SetData(source string, layout engine.Layout) {
	c.post(func() { c.submit(c.renderCtx, source, layout) })
}

// ZoomBy multiplies the current zoom scale by factor (> 0). No-op without a
// rendered visual. The new level is reported once the zoom settles.
func (c *Coordinator) ZoomBy(factor float64) {
	c.post(func() {
		if c.vis == nil || factor <= 0 {
			return
		}
		t := c.vis.LiveTransform().ScaledBy(factor, c.minZoom, c.maxZoom)
		c.animateTo(t)
	})
}

// ResetZoom restores the fit view: the content bounding box centered within
// the viewport. No-op without a rendered visual.
func (c *Coordinator) ResetZoom() {
	c.post(func() {
		if c.vis == nil {
			return
		}
		c.animateTo(c.fitTransform())
	})
}

// SetZoomScaleExtent clamps all future zoom operations to [min, max].
// Bounds are normalized before use: negative bounds are treated as
// unbounded, and an inverted pair is swapped so clamping stays
// well-ordered regardless of argument order.
func (c *Coordinator) SetZoomScaleExtent(min, max float64) {
	c.post(func() {
		if min < 0 {
			min = 0
		}
		if max < 0 {
			max = 0
		}
		if max > 0 && min > max {
			min, max = max, min
		}
		c.minZoom = min
		c.maxZoom = max
	})
}

// Resize informs the coordinator of the host viewport size, used for fit
// computations. Without a resize the visual's own dimensions are the
// viewport.
func (c *Coordinator) Resize(width, height float64) {
	c.post(func() {
		c.viewportW = width
		c.viewportH = height
	})
}

// =============================================================================
// Queries
// =============================================================================

// ZoomLevel returns the current zoom scale, or 1 without a rendered visual.
func (c *Coordinator) ZoomLevel() float64 {
	level := 1.0
	c.query(func() {
		if c.vis != nil {
			level = c.vis.LiveTransform().Scale
		}
	})
	return level
}

// ExportSnapshot returns self-contained markup of the last rendered visual
// with its pre-interaction geometry restored, or ok=false when nothing is
// loaded. Snapshots are value copies: a later render does not alter markup
// already returned.
func (c *Coordinator) ExportSnapshot() (markup string, ok bool) {
	c.query(func() {
		if c.vis == nil {
			return
		}
		markup = c.vis.Snapshot()
		ok = true
		observability.Render().OnExport(context.Background(), len(markup))
	})
	return markup, ok
}

// EngineVersion returns the layout engine's version string.
func (c *Coordinator) EngineVersion() string {
	return c.version
}

// query runs fn on the loop and waits for it. Returns without running fn
// once the coordinator closed.
func (c *Coordinator) query(fn func()) {
	done := make(chan struct{})
	if !c.post(func() {
		fn()
		close(done)
	}) {
		return
	}
	select {
	case <-done:
	case <-c.stopped:
	}
}

// =============================================================================
// State machine (loop goroutine only)
// =============================================================================

// submit is the single entry point for render requests, both fresh ones and
// the tail re-entry of a coalesced pending request.
func (c *Coordinator) submit(ctx context.Context, source string, layout engine.Layout) {
	switch c.state {
	case stateIdle:
		c.execute(ctx, source, layout)

	case stateRendering, stateRenderingPending:
		if c.haveLast && c.last.source == source && c.last.layout == layout {
			// Matches the in-flight request: drop any queued superseder
			// and let the in-flight result stand.
			if c.pending != nil {
				observability.Render().OnCoalesced(ctx, c.pending.layout.String())
				c.pending = nil
			}
			c.state = stateRendering
			return
		}
		if c.pending != nil {
			observability.Render().OnCoalesced(ctx, c.pending.layout.String())
		}
		c.pending = &request{source: source, layout: layout}
		c.state = stateRenderingPending
		c.debugf("request queued behind in-flight render", "layout", layout)
	}
}

// execute starts an engine invocation from the idle state, after the empty
// and no-op short circuits.
func (c *Coordinator) execute(ctx context.Context, source string, layout engine.Layout) {
	if strings.TrimSpace(source) == "" {
		// Never sent to the engine: an empty document is an explicit
		// "nothing to render" state.
		c.last = request{source: source, layout: layout}
		c.haveLast = true
		c.clearVisual()
		return
	}

	if c.haveLast && c.last.source == source && c.last.layout == layout {
		// Identical to the last executed request: redundant layout work.
		return
	}

	c.last = request{source: source, layout: layout}
	c.haveLast = true
	c.state = stateRendering
	c.events.RenderingStateChanged(true)
	observability.Render().OnRenderStart(ctx, layout.String(), len(source))
	c.debugf("render started", "layout", layout, "bytes", len(source))

	started := time.Now()
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		svg, err := c.renderer.Render(ctx, source, layout)
		elapsed := time.Since(started)
		c.post(func() { c.finish(ctx, svg, err, layout, elapsed) })
	}()
}

// finish handles an engine completion on the loop. If a superseding request
// arrived meanwhile, the finished result is discarded and the pending
// request re-enters submit as a tail call.
func (c *Coordinator) finish(ctx context.Context, svg []byte, err error, layout engine.Layout, elapsed time.Duration) {
	observability.Render().OnRenderComplete(ctx, layout.String(), elapsed, err)

	pending := c.pending
	superseded := c.state == stateRenderingPending
	c.pending = nil
	c.state = stateIdle
	c.events.RenderingStateChanged(false)

	switch {
	case err != nil:
		// No partial visual is preserved; the coordinator stays usable.
		c.debugf("render failed", "layout", layout, "err", err)
		c.events.RenderError(err.Error())

	case superseded:
		// A newer request exists, so this result is already stale.
		c.debugf("render superseded", "layout", layout, "elapsed", elapsed)

	default:
		v, perr := visual.Parse(svg)
		if perr != nil {
			c.events.RenderError(perr.Error())
			break
		}
		c.setVisual(v)
		c.debugf("render finished", "layout", layout, "elapsed", elapsed)
	}

	if superseded && pending != nil {
		c.submit(ctx, pending.source, pending.layout)
	}
}

// setVisual installs a freshly rendered visual: geometry was captured at
// parse time, the zoom resets to the engine's fit view, and the host learns
// about the load state and the new zoom level.
func (c *Coordinator) setVisual(v *visual.Visual) {
	c.vis = v
	c.animSeq++ // outstanding zoom settles target the old visual

	fit := c.fitTransform()
	c.vis.SetTransform(fit)

	c.events.LoadedStateChanged(true)
	c.events.ZoomLevelChanged(fit.Scale)
}

// clearVisual drops the current visual and returns to idle.
func (c *Coordinator) clearVisual() {
	c.vis = nil
	c.animSeq++
	c.state = stateIdle
	c.events.LoadedStateChanged(false)
}

// =============================================================================
// Zoom (loop goroutine only)
// =============================================================================

// fitTransform computes the fit view for the current visual against the
// host viewport, falling back to the visual's own dimensions.
func (c *Coordinator) fitTransform() visual.Transform {
	g := c.vis.Original()
	vw, vh := c.viewportW, c.viewportH
	if vw <= 0 || vh <= 0 {
		vw, vh = g.Width, g.Height
	}
	return visual.Fit(g, vw, vh)
}

// animateTo moves the live transform to target after the configured settle
// delay. A newer zoom, a new render, or a cleared visual supersedes the
// outstanding settle; only the settled level is notified.
func (c *Coordinator) animateTo(target visual.Transform) {
	c.animSeq++
	seq := c.animSeq

	if c.zoomAnim <= 0 {
		c.settleZoom(seq, target)
		return
	}
	time.AfterFunc(c.zoomAnim, func() {
		c.post(func() { c.settleZoom(seq, target) })
	})
}

func (c *Coordinator) settleZoom(seq uint64, target visual.Transform) {
	if seq != c.animSeq || c.vis == nil {
		return
	}
	c.vis.SetTransform(target)
	c.events.ZoomLevelChanged(target.Scale)
}

// =============================================================================
// Helpers
// =============================================================================

func (c *Coordinator) debugf(msg string, keyvals ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, keyvals...)
	}
}
