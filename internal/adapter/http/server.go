package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/clock-sync-engine/internal/domain"
	"github.com/couchcryptid/clock-sync-engine/internal/engine"
)

const (
	maxEventBytes  = 64 << 10
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxClientFrame = 512
)

// Engine is the clock engine surface the HTTP API exposes.
type Engine interface {
	Snapshot() domain.DisplayState
	SubscribeDisplay(fn engine.Listener) (cancel func())
	Dispatch(ctx context.Context, env domain.Envelope) error
}

// Server exposes health, readiness, metrics and the clock display API.
type Server struct {
	httpServer *http.Server
	engine     Engine
	upgrader   websocket.Upgrader
	logger     *slog.Logger

	closing   chan struct{}
	closeOnce sync.Once
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /v1 display routes.
func NewServer(addr string, eng Engine, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		engine: eng,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		closing: make(chan struct{}),
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /v1/display", s.handleDisplay)
	mux.HandleFunc("GET /v1/display/stream", s.handleStream)
	mux.HandleFunc("POST /v1/events", s.handleEvent)
	mux.HandleFunc("GET /v1/zodiac", s.handleZodiac)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
// Open display streams are told to close.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.closing) })
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleDisplay(w http.ResponseWriter, _ *http.Request) {
	sharedobs.WriteJSON(w, http.StatusOK, s.engine.Snapshot())
}

func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxEventBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	env, err := domain.ParseEnvelope(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if err := s.engine.Dispatch(r.Context(), env); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	sharedobs.WriteJSON(w, http.StatusAccepted, s.engine.Snapshot())
}

// handleZodiac resolves the sign for ?date=YYYY-MM-DD, or the sign currently
// on display when no date is given.
func (s *Server) handleZodiac(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("date")
	if q == "" {
		sign := s.engine.Snapshot().Constellation
		if sign == nil {
			writeError(w, http.StatusServiceUnavailable, errors.New("no constellation computed yet"))
			return
		}
		sharedobs.WriteJSON(w, http.StatusOK, sign)
		return
	}

	d, err := time.Parse(time.DateOnly, q)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("date must be YYYY-MM-DD: %w", err))
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.ZodiacOf(d))
}

// handleStream upgrades to a websocket that receives the current display
// state and then every published update. Slow clients only see the newest
// state.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	updates := make(chan domain.DisplayState, 1)
	cancel := s.engine.SubscribeDisplay(func(st domain.DisplayState) {
		for {
			select {
			case updates <- st:
				return
			default:
			}
			select {
			case <-updates:
			default:
			}
		}
	})
	defer cancel()

	s.logger.Debug("display stream opened", "remote", r.RemoteAddr)
	defer s.logger.Debug("display stream closed", "remote", r.RemoteAddr)

	gone := make(chan struct{})
	go readPump(conn, gone)
	s.writePump(conn, s.engine.Snapshot(), updates, gone)
}

// readPump discards client frames and keeps the read deadline alive on pongs.
func readPump(conn *websocket.Conn, gone chan<- struct{}) {
	defer close(gone)
	conn.SetReadLimit(maxClientFrame)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(conn *websocket.Conn, initial domain.DisplayState, updates <-chan domain.DisplayState, gone <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := writeState(conn, initial); err != nil {
		return
	}
	lastSeq := initial.Seq
	for {
		select {
		case st := <-updates:
			if st.Seq <= lastSeq {
				continue
			}
			if err := writeState(conn, st); err != nil {
				s.logger.Debug("display stream write failed", "error", err)
				return
			}
			lastSeq = st.Seq
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-gone:
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

func writeState(conn *websocket.Conn, st domain.DisplayState) error {
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal display state: %w", err)
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}
