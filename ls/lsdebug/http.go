package lsdebug

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"

	"github.com/gordian-engine/lockstep/ls/lsengine"
	"github.com/gorilla/mux"
)

// StatusSource is the subset of [lsengine.Role] the server reads.
type StatusSource interface {
	Status() lsengine.Status
}

// HTTPServer serves the debug routes until its context is canceled.
type HTTPServer struct {
	done chan struct{}
}

type HTTPServerConfig struct {
	Listener net.Listener

	Roles   []StatusSource
	History *History
}

// StatusEntry is one role's state, as served on /status.
type StatusEntry struct {
	Participant string `json:"participant"`
	State       string `json:"state"`
	Round       uint64 `json:"round"`
}

func NewHTTPServer(ctx context.Context, log *slog.Logger, cfg HTTPServerConfig) *HTTPServer {
	srv := &http.Server{
		Handler: newMux(log, cfg),

		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	h := &HTTPServer{
		done: make(chan struct{}),
	}
	go h.serve(log, cfg.Listener, srv)
	go h.waitForShutdown(ctx, srv)

	return h
}

// Wait blocks until the server has stopped.
func (h *HTTPServer) Wait() {
	<-h.done
}

func (h *HTTPServer) waitForShutdown(ctx context.Context, srv *http.Server) {
	select {
	case <-h.done:
		return
	case <-ctx.Done():
		_ = srv.Close()
	}
}

func (h *HTTPServer) serve(log *slog.Logger, ln net.Listener, srv *http.Server) {
	defer close(h.done)

	if err := srv.Serve(ln); err != nil {
		if errors.Is(err, net.ErrClosed) || errors.Is(err, http.ErrServerClosed) {
			log.Info("Debug HTTP server shutting down")
		} else {
			log.Info("Debug HTTP server shutting down due to error", "err", err)
		}
	}
}

func newMux(log *slog.Logger, cfg HTTPServerConfig) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/status", handleStatus(log, cfg)).Methods("GET")
	r.HandleFunc("/rounds", handleRounds(log, cfg)).Methods("GET")

	return r
}

func handleStatus(log *slog.Logger, cfg HTTPServerConfig) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		out := make([]StatusEntry, len(cfg.Roles))
		for i, r := range cfg.Roles {
			s := r.Status()
			out[i] = StatusEntry{
				Participant: s.Participant.String(),
				State:       s.State.String(),
				Round:       s.Round.Number,
			}
		}

		writeJSON(log, w, out)
	}
}

func handleRounds(log *slog.Logger, cfg HTTPServerConfig) func(w http.ResponseWriter, req *http.Request) {
	return func(w http.ResponseWriter, req *http.Request) {
		if cfg.History == nil {
			http.Error(w, "round history not enabled", http.StatusNotFound)
			return
		}

		writeJSON(log, w, cfg.History.Entries())
	}
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("Failed to encode response", "err", err)
	}
}
