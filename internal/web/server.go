// Package web provides the HTTP control and status server for the torchd
// daemon. Control requests are forwarded to the run loop over a command
// channel; the handlers never touch the coordinator directly.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/sweeney/torchd/internal/logic"
	"github.com/sweeney/torchd/internal/status"
)

// CommandKind identifies a control request from the web API.
type CommandKind int

const (
	CmdToggleTorch CommandKind = iota
	CmdStrobe
	CmdSOS
	CmdShake
	CmdIntensity
	CmdAcquireTorch
)

// Command is a control request sent to the run loop. The run loop applies
// it and answers on Reply, which must be buffered.
type Command struct {
	Kind   CommandKind
	Active bool    // CmdStrobe: start or stop; CmdShake: enable or disable
	Value  float64 // CmdIntensity
	Reply  chan error
}

// commandTimeout bounds how long a handler waits for the run loop.
const commandTimeout = 2 * time.Second

var errLoopBusy = errors.New("control loop not responding")

// Server serves the control API and status pages over HTTP.
type Server struct {
	httpServer *http.Server
	tracker    *status.Tracker
	commands   chan<- Command
	hub        *Hub
}

// New creates a Server. Commands are forwarded to the given channel; the
// hub receives live state and motion frames for WebSocket clients.
func New(addr string, tracker *status.Tracker, commands chan<- Command, hub *Hub) *Server {
	s := &Server{tracker: tracker, commands: commands, hub: hub}

	r := mux.NewRouter()
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.html", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/index.json", s.handleJSON).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/torch", s.handleTorch).Methods(http.MethodPost)
	api.HandleFunc("/torch/acquire", s.handleAcquire).Methods(http.MethodPost)
	api.HandleFunc("/strobe", s.handleStrobe).Methods(http.MethodPost)
	api.HandleFunc("/sos", s.handleSOS).Methods(http.MethodPost)
	api.HandleFunc("/shake", s.handleShake).Methods(http.MethodPost)
	api.HandleFunc("/intensity", s.handleIntensity).Methods(http.MethodPost)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	return s
}

// ListenAndServe starts listening. It blocks until the server is shut down.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Serve accepts connections on the given listener. Useful for tests.
func (s *Server) Serve(ln net.Listener) error {
	return s.httpServer.Serve(ln)
}

// Shutdown gracefully shuts down the server and disconnects WS clients.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		s.hub.Close()
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	renderHTML(w, snap)
}

func (s *Server) handleJSON(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.Write(status.FormatJSON(snap))
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.hub == nil {
		http.Error(w, "websocket not enabled", http.StatusNotFound)
		return
	}
	s.hub.serve(w, r, StateFrame(s.tracker.Snapshot()))
}

func (s *Server) handleTorch(w http.ResponseWriter, r *http.Request) {
	err := s.dispatch(Command{Kind: CmdToggleTorch})
	s.writeResult(w, err)
}

func (s *Server) handleAcquire(w http.ResponseWriter, r *http.Request) {
	err := s.dispatch(Command{Kind: CmdAcquireTorch})
	s.writeResult(w, err)
}

func (s *Server) handleStrobe(w http.ResponseWriter, r *http.Request) {
	var req strobeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Active == nil {
		http.Error(w, `{"ok":false,"error":"body must be {\"active\": true|false}"}`, http.StatusBadRequest)
		return
	}
	err := s.dispatch(Command{Kind: CmdStrobe, Active: *req.Active})
	s.writeResult(w, err)
}

func (s *Server) handleSOS(w http.ResponseWriter, r *http.Request) {
	err := s.dispatch(Command{Kind: CmdSOS})
	s.writeResult(w, err)
}

func (s *Server) handleShake(w http.ResponseWriter, r *http.Request) {
	var req shakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
		http.Error(w, `{"ok":false,"error":"body must be {\"enabled\": true|false}"}`, http.StatusBadRequest)
		return
	}
	err := s.dispatch(Command{Kind: CmdShake, Active: *req.Enabled})
	s.writeResult(w, err)
}

func (s *Server) handleIntensity(w http.ResponseWriter, r *http.Request) {
	var req intensityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Intensity == nil {
		http.Error(w, `{"ok":false,"error":"body must be {\"intensity\": 0.1..1.0}"}`, http.StatusBadRequest)
		return
	}
	err := s.dispatch(Command{Kind: CmdIntensity, Value: *req.Intensity})
	s.writeResult(w, err)
}

// dispatch sends a command to the run loop and waits for the result.
func (s *Server) dispatch(cmd Command) error {
	cmd.Reply = make(chan error, 1)
	select {
	case s.commands <- cmd:
	case <-time.After(commandTimeout):
		return errLoopBusy
	}
	select {
	case err := <-cmd.Reply:
		return err
	case <-time.After(commandTimeout):
		return errLoopBusy
	}
}

func statusForError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, logic.ErrIntensityRange):
		return http.StatusBadRequest
	case errors.Is(err, logic.ErrModeActive), errors.Is(err, logic.ErrStrobeNotActive):
		return http.StatusConflict
	case errors.Is(err, logic.ErrTorchUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeResult(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusForError(err))
	w.Write(formatCommandResponse(s.tracker.Snapshot(), err))
}
