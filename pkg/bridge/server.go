package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/graphpad/graphpad/pkg/buildinfo"
	"github.com/graphpad/graphpad/pkg/engine"
	"github.com/graphpad/graphpad/pkg/viewer"
)

// shutdownTimeout bounds graceful shutdown once the serve context ends.
const shutdownTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The bridge binds to loopback for local editor frontends; the
	// frontend may load from a file:// or app-scheme origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServerConfig configures a bridge Server.
type ServerConfig struct {
	// Addr is the listen address, e.g. "127.0.0.1:8745".
	Addr string

	// DefaultLayout seeds each session's engine selection.
	DefaultLayout engine.Layout

	// Debounce is the per-session hold time for sourceChanged messages.
	Debounce time.Duration

	// ZoomAnimation, MinZoom and MaxZoom configure each coordinator.
	ZoomAnimation time.Duration
	MinZoom       float64
	MaxZoom       float64

	// NewRenderer builds the layout engine for one session. Each session
	// gets its own instance so documents never contend for an engine.
	NewRenderer func(ctx context.Context) (engine.Renderer, error)

	// Logger for connection lifecycle events. Nil disables logging.
	Logger *log.Logger
}

// Server hosts editor sessions over WebSocket.
type Server struct {
	cfg    ServerConfig
	router chi.Router
	http   *http.Server
}

// NewServer creates a bridge server. NewRenderer must be set.
func NewServer(cfg ServerConfig) *Server {
	if cfg.DefaultLayout == "" {
		cfg.DefaultLayout = engine.Dot
	}

	s := &Server{cfg: cfg}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Get("/session", s.handleSession)
	s.router = r

	s.http = &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}
	return s
}

// Handler returns the router, for tests and for embedding under another mux.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.http.ListenAndServe()
	}()

	s.logf("bridge listening", "addr", s.cfg.Addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}

// handleSession upgrades the connection and runs one editor session on it:
// a dedicated engine, coordinator, write pump, and read loop.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logf("websocket upgrade failed", "err", err)
		return
	}

	// The renderer outlives the HTTP request; its lifetime is the
	// session's, not the upgrade request's.
	renderer, err := s.cfg.NewRenderer(context.Background())
	if err != nil {
		s.logf("engine construction failed", "err", err)
		_ = conn.WriteJSON(protocolError("ENGINE_UNAVAILABLE", err.Error()))
		_ = conn.Close()
		return
	}

	sess := NewSession(s.cfg.DefaultLayout, s.cfg.Debounce, s.cfg.Logger)
	coord := viewer.New(context.Background(), renderer, viewer.Options{
		Events:        sess.Events(),
		Logger:        s.cfg.Logger,
		ZoomAnimation: s.cfg.ZoomAnimation,
		MinZoom:       s.cfg.MinZoom,
		MaxZoom:       s.cfg.MaxZoom,
	})
	sess.Attach(coord)

	s.logf("session opened", "session", sess.ID(), "remote", r.RemoteAddr)

	// Write pump: gorilla connections allow one concurrent writer, so all
	// sends funnel through the session queue.
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		for msg := range sess.Out {
			if err := conn.WriteJSON(msg); err != nil {
				s.logf("write failed", "session", sess.ID(), "err", err)
				// Keep draining so Close can complete.
				for range sess.Out {
				}
				return
			}
		}
	}()

	for {
		var msg Inbound
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logf("read failed", "session", sess.ID(), "err", err)
			}
			break
		}
		sess.Handle(msg)
	}

	if err := sess.Close(); err != nil {
		s.logf("session close failed", "session", sess.ID(), "err", err)
	}
	<-writeDone
	_ = conn.Close()
	s.logf("session closed", "session", sess.ID())
}

func (s *Server) logf(msg string, keyvals ...any) {
	if s.cfg.Logger != nil {
		s.cfg.Logger.Info(msg, keyvals...)
	}
}
