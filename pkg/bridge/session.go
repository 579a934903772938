package bridge

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/graphpad/graphpad/pkg/engine"
	pkgerrors "github.com/graphpad/graphpad/pkg/errors"
	"github.com/graphpad/graphpad/pkg/observability"
)

// outboundBuffer bounds the per-session send queue. A host that stops
// reading loses notifications rather than wedging the coordinator loop.
const outboundBuffer = 32

// controller is the slice of the render coordinator a session drives.
type controller interface {
	SetData(source string, layout engine.Layout)
	ZoomBy(factor float64)
	ResetZoom()
	SetZoomScaleExtent(min, max float64)
	Resize(width, height float64)
	ExportSnapshot() (string, bool)
	EngineVersion() string
	Close() error
}

// Session binds one host connection to one coordinator. Handle is called
// from the connection's read loop; outbound messages are queued on Out and
// drained by the connection's write loop.
type Session struct {
	id       string
	coord    controller
	logger   *log.Logger
	debounce time.Duration
	openedAt time.Time

	// Out carries notifications and replies to the connection writer.
	// The channel closes when the session closes.
	Out chan Outbound

	mu      sync.Mutex
	layout  engine.Layout
	pending string
	timer   *time.Timer
	closed  bool
}

// NewSession creates a session. The layout is used for debounced
// sourceChanged renders until a setData message selects another. Attach the
// coordinator before feeding messages to Handle; the two-step construction
// exists because the coordinator needs the session's Events sink first.
func NewSession(layout engine.Layout, debounce time.Duration, logger *log.Logger) *Session {
	s := &Session{
		id:       uuid.NewString(),
		logger:   logger,
		debounce: debounce,
		openedAt: time.Now(),
		Out:      make(chan Outbound, outboundBuffer),
		layout:   layout,
	}
	observability.Bridge().OnSessionOpen(context.Background(), s.id)
	return s
}

// Attach binds the coordinator driven by this session.
func (s *Session) Attach(coord controller) {
	s.coord = coord
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Events returns the coordinator notification sink for this session.
// Pass it as viewer.Options.Events when constructing the coordinator.
func (s *Session) Events() SessionEvents {
	return SessionEvents{s: s}
}

// Handle dispatches one inbound message. Unknown or malformed messages get
// a protocolError reply; the session stays open.
func (s *Session) Handle(msg Inbound) {
	observability.Bridge().OnMessage(context.Background(), s.id, msg.Type)

	switch msg.Type {
	case TypeSetData:
		s.setData(msg.Source, msg.Engine)

	case TypeSourceChanged:
		s.sourceChanged(msg.Source)

	case TypeZoomBy:
		if msg.Factor <= 0 {
			s.send(protocolError(string(pkgerrors.ErrCodeBadMessage),
				fmt.Sprintf("zoomBy factor must be positive, got %g", msg.Factor)))
			return
		}
		s.coord.ZoomBy(msg.Factor)

	case TypeResetZoom:
		s.coord.ResetZoom()

	case TypeSetZoomScaleExtent:
		if msg.Min <= 0 || msg.Max <= 0 || msg.Min > msg.Max {
			s.send(protocolError(string(pkgerrors.ErrCodeBadMessage),
				fmt.Sprintf("zoom extent [%g, %g] is not a valid range", msg.Min, msg.Max)))
			return
		}
		s.coord.SetZoomScaleExtent(msg.Min, msg.Max)

	case TypeResize:
		s.coord.Resize(msg.Width, msg.Height)

	case TypeExportSnapshot:
		markup, ok := s.coord.ExportSnapshot()
		s.send(snapshot(markup, ok))

	case TypeEngineVersionInfo:
		s.send(engineVersion(s.coord.EngineVersion()))

	default:
		s.send(protocolError(string(pkgerrors.ErrCodeBadMessage),
			fmt.Sprintf("unknown message type %q", msg.Type)))
	}
}

// setData renders immediately, cancelling any debounced edit, and makes the
// chosen engine the session default for subsequent sourceChanged messages.
func (s *Session) setData(source, engineName string) {
	layout, err := engine.ParseLayout(engineName)
	if err != nil {
		// Unknown engines surface on the render error channel, like any
		// other failed render.
		line, hasLine := pkgerrors.SyntaxErrorLine(err.Error())
		s.send(renderError(err.Error(), line, hasLine))
		return
	}

	s.mu.Lock()
	s.layout = layout
	s.pending = ""
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.coord.SetData(source, layout)
}

// sourceChanged holds the newest source and (re)arms the debounce timer; a
// quiet period of s.debounce flushes it into one render. A zero debounce
// renders every change immediately.
func (s *Session) sourceChanged(source string) {
	s.mu.Lock()
	layout := s.layout
	if s.debounce <= 0 {
		s.mu.Unlock()
		s.coord.SetData(source, layout)
		return
	}
	s.pending = source
	if s.timer == nil {
		s.timer = time.AfterFunc(s.debounce, s.flushPending)
	} else {
		s.timer.Reset(s.debounce)
	}
	s.mu.Unlock()
}

// flushPending runs on the debounce timer goroutine.
func (s *Session) flushPending() {
	s.mu.Lock()
	if s.closed || s.timer == nil {
		s.mu.Unlock()
		return
	}
	source, layout := s.pending, s.layout
	s.pending = ""
	s.timer = nil
	s.mu.Unlock()

	s.coord.SetData(source, layout)
}

// Close stops the debounce timer, closes the coordinator, and closes Out.
// Safe to call once the read loop ends; not safe to call twice.
func (s *Session) Close() error {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	err := s.coord.Close()
	close(s.Out)
	observability.Bridge().OnSessionClose(context.Background(), s.id, time.Since(s.openedAt))
	return err
}

// send queues an outbound message, dropping it when the host has fallen
// more than outboundBuffer messages behind.
func (s *Session) send(msg Outbound) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return
	}
	select {
	case s.Out <- msg:
	default:
		if s.logger != nil {
			s.logger.Warn("outbound queue full, dropping message", "session", s.id, "type", msg.Type)
		}
	}
}

// SessionEvents forwards coordinator notifications onto the session's
// outbound queue. Render diagnostics are scanned for a source line number
// so editors can mark the offending line.
type SessionEvents struct {
	s *Session
}

func (e SessionEvents) InitializationComplete() {
	e.s.send(initializationComplete())
}

func (e SessionEvents) RenderError(diagnostic string) {
	line, hasLine := pkgerrors.SyntaxErrorLine(diagnostic)
	e.s.send(renderError(diagnostic, line, hasLine))
}

func (e SessionEvents) RenderingStateChanged(isRendering bool) {
	e.s.send(renderingStateChanged(isRendering))
}

func (e SessionEvents) LoadedStateChanged(isLoaded bool) {
	e.s.send(loadedStateChanged(isLoaded))
}

func (e SessionEvents) ZoomLevelChanged(level float64) {
	e.s.send(zoomLevelChanged(level))
}
