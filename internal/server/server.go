// Package server exposes the teleprompter session over HTTP so a browser
// or a phone can act as display or remote. State changes are pushed to
// every WebSocket subscriber as JSON snapshots.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
	"github.com/hammamikhairi/pocketprompter/internal/session"
	"github.com/hammamikhairi/pocketprompter/internal/writer"
)

const maxBodyBytes = 1 << 20

// ContractWriter drafts contracts. *writer.Writer satisfies it.
type ContractWriter interface {
	GenerateContract(ctx context.Context, req writer.ContractRequest) (string, error)
}

// Server serves the REST API and the WebSocket state stream.
type Server struct {
	ctrl     *session.Controller
	contract ContractWriter
	log      *logger.Logger
	upgrader websocket.Upgrader
	router   *mux.Router

	connsMu sync.Mutex
	conns   map[*wsConnection]struct{}

	rewriteMu   sync.Mutex
	lastRewrite *rewriteView
}

// New builds the server and its routes. contract may be nil, in which
// case the contract endpoint reports ErrNotConfigured.
func New(ctrl *session.Controller, contract ContractWriter, log *logger.Logger) *Server {
	s := &Server{
		ctrl:     ctrl,
		contract: contract,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		conns: make(map[*wsConnection]struct{}),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", s.handleState).Methods(http.MethodGet)
	api.HandleFunc("/script", s.handleEditScript).Methods(http.MethodPut)
	api.HandleFunc("/playback/start", s.handleStart).Methods(http.MethodPost)
	api.HandleFunc("/playback/stop", s.handleStop).Methods(http.MethodPost)
	api.HandleFunc("/playback", s.handleSettings).Methods(http.MethodPatch)
	api.HandleFunc("/interact", s.handleInteract).Methods(http.MethodPost)
	api.HandleFunc("/rewrite", s.handleRewrite).Methods(http.MethodPost)
	api.HandleFunc("/contract", s.handleContract).Methods(http.MethodPost)

	r.HandleFunc("/ws/{clientID}", s.handleWebSocket)
	return r
}

// Start fans controller changes out to WebSocket subscribers until ctx
// is cancelled. Non-blocking.
func (s *Server) Start(ctx context.Context) {
	changes, unsubscribe := s.ctrl.Subscribe()
	go func() {
		defer unsubscribe()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				s.broadcastState()
			}
		}
	}()
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.Start(ctx)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.closeConnections()
	return srv.Shutdown(shutdownCtx)
}

// ── Views ────────────────────────────────────────────────────────

type playbackView struct {
	Active       bool    `json:"active"`
	ScrollOffset float64 `json:"scrollOffset"`
	Speed        int     `json:"speed"`
	FontSize     int     `json:"fontSize"`
	Mirrored     bool    `json:"mirrored"`
}

type controlsView struct {
	Visible      bool       `json:"visible"`
	IdleDeadline *time.Time `json:"idleDeadline,omitempty"`
}

type rewriteView struct {
	Tone         string `json:"tone"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type stateView struct {
	Mode        string       `json:"mode"`
	Script      string       `json:"script"`
	Playback    playbackView `json:"playback"`
	Controls    controlsView `json:"controls"`
	Rewriting   bool         `json:"rewriting"`
	RewriteTone string       `json:"rewriteTone,omitempty"`
	LastRewrite *rewriteView `json:"lastRewrite,omitempty"`
}

func (s *Server) state() stateView {
	snap := s.ctrl.Snapshot()
	v := stateView{
		Mode:   snap.Mode.String(),
		Script: snap.Script,
		Playback: playbackView{
			Active:       snap.Playback.Active,
			ScrollOffset: snap.Playback.ScrollOffset,
			Speed:        snap.Playback.Speed,
			FontSize:     snap.Playback.FontSizePx,
			Mirrored:     snap.Playback.Mirrored,
		},
		Controls:  controlsView{Visible: snap.Controls.Visible},
		Rewriting: snap.Rewriting,
	}
	if !snap.Controls.IdleDeadline.IsZero() {
		d := snap.Controls.IdleDeadline
		v.Controls.IdleDeadline = &d
	}
	if snap.Rewriting {
		v.RewriteTone = snap.RewriteTone.String()
	}

	s.rewriteMu.Lock()
	v.LastRewrite = s.lastRewrite
	s.rewriteMu.Unlock()
	return v
}

// ── Helpers ──────────────────────────────────────────────────────

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyScript), errors.Is(err, domain.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrWrongMode), errors.Is(err, domain.ErrRewriteBusy):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error("server: %v", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON body: " + err.Error()})
		return false
	}
	return true
}
