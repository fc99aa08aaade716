// internal/control/server.go
package control

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/user/klaxon/internal/client"
	"github.com/user/klaxon/internal/history"
	"github.com/user/klaxon/internal/protocol"
	"github.com/user/klaxon/internal/registry"
)

// Confirmer acknowledges a pending alert on behalf of the local user.
type Confirmer interface {
	Confirm(ctx context.Context, id protocol.AlertID) error
}

// Server is a lightweight HTTP handler for the local control endpoints.
// It binds to loopback only; there is no authentication.
type Server struct {
	registry  *registry.Registry
	confirmer Confirmer
	history   *history.Store
	status    func() client.Status
	mux       *http.ServeMux
}

// NewServer creates a control Server over the given registry, confirmer,
// history store, and connection status source.
func NewServer(reg *registry.Registry, confirmer Confirmer, hist *history.Store, status func() client.Status) *Server {
	s := &Server{
		registry:  reg,
		confirmer: confirmer,
		history:   hist,
		status:    status,
		mux:       http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/pending", s.handlePending)
	s.mux.HandleFunc("POST /api/confirm/", s.handleConfirm)
	s.mux.HandleFunc("GET /api/history", s.handleHistory)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

type statusResponse struct {
	client.Status
	Pending int `json:"pending"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.status == nil {
		http.Error(w, `{"error":"status not configured"}`, http.StatusServiceUnavailable)
		return
	}
	resp := statusResponse{
		Status:  s.status(),
		Pending: s.registry.Count(),
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func (s *Server) handlePending(w http.ResponseWriter, r *http.Request) {
	pending := s.registry.Pending()
	if pending == nil {
		pending = []registry.PendingAlert{}
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(pending)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/confirm/")
	if id == "" {
		http.Error(w, `{"error":"alert id required"}`, http.StatusBadRequest)
		return
	}

	err := s.confirmer.Confirm(r.Context(), protocol.AlertID(id))
	if err != nil {
		if errors.Is(err, registry.ErrNotPending) {
			http.Error(w, `{"error":"alert not pending"}`, http.StatusNotFound)
			return
		}
		slog.Error("confirm via control api failed", "alert_id", id, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "confirmed", "alert_id": id})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		http.Error(w, `{"error":"history not configured"}`, http.StatusServiceUnavailable)
		return
	}

	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil && n > 0 {
			limit = n
		}
	}

	records, err := s.history.Tail(limit)
	if err != nil {
		slog.Error("tail history failed", "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []history.Record{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(records)
}
