// Package gateway exposes the hierarchy engine over HTTP: tree reads,
// member mutations, classification, and a level-triggered SSE change feed.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/uplinehq/upline/internal/config"
	"github.com/uplinehq/upline/internal/hierarchy"
)

// Server serves the hierarchy HTTP API for one tenant.
type Server struct {
	cfg config.GatewayConfig
	svc *hierarchy.Service
}

// New creates a gateway over a hierarchy service.
func New(cfg config.GatewayConfig, svc *hierarchy.Service) *Server {
	return &Server{cfg: cfg, svc: svc}
}

// Handler builds the API mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", s.handleStatus)
	mux.HandleFunc("GET /api/v1/tree", s.auth(s.handleTree))
	mux.HandleFunc("POST /api/v1/members", s.auth(s.handleAddMember))
	mux.HandleFunc("POST /api/v1/members/{owner}/move", s.auth(s.handleMoveMember))
	mux.HandleFunc("PATCH /api/v1/members/{owner}", s.auth(s.handleUpdateMember))
	mux.HandleFunc("GET /api/v1/members/{owner}/zone", s.auth(s.handleZone))
	mux.HandleFunc("GET /api/v1/events", s.auth(s.handleEvents))
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) auth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.AuthToken != "" {
			token := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
			if token != s.cfg.AuthToken {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"tenant_id": s.svc.TenantID(),
		"status":    "ok",
	})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.svc.ListTree(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": nodes})
}

type addMemberRequest struct {
	OwnerID       string               `json:"owner_id"`
	ParentOwnerID string               `json:"parent_owner_id,omitempty"`
	Attrs         hierarchy.Attributes `json:"attrs"`
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	n, err := s.svc.AddMember(r.Context(), req.OwnerID, req.ParentOwnerID, req.Attrs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

type moveMemberRequest struct {
	NewParentOwnerID string `json:"new_parent_owner_id"`
}

func (s *Server) handleMoveMember(w http.ResponseWriter, r *http.Request) {
	var req moveMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.svc.MoveMember(r.Context(), r.PathValue("owner"), req.NewParentOwnerID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"moved": true})
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	var upd hierarchy.AttributeUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	n, err := s.svc.UpdateMemberAttributes(r.Context(), r.PathValue("owner"), upd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleZone(w http.ResponseWriter, r *http.Request) {
	at := time.Now()
	if raw := r.URL.Query().Get("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid at timestamp", http.StatusBadRequest)
			return
		}
		at = parsed
	}
	zone, err := s.svc.ClassifyMember(r.Context(), r.PathValue("owner"), at)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner_id": r.PathValue("owner"),
		"zone":     zone,
		"at":       at,
	})
}

// handleEvents streams change events as SSE. The stream carries only
// "something changed" pings; clients refetch the tree on each one.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := make(chan hierarchy.ChangeEvent, 16)
	handle := s.svc.Notifier().Subscribe(func(ev hierarchy.ChangeEvent) {
		select {
		case events <- ev:
		default:
			// Slow client: drop, the next event re-triggers the refetch.
		}
	})
	defer s.svc.Notifier().Unsubscribe(handle)

	keepalive := time.NewTicker(15 * time.Second)
	defer keepalive.Stop()

	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			fmt.Fprint(w, ": keepalive\n\n")
			flusher.Flush()
		case ev := <-events:
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload)
			flusher.Flush()
		}
	}
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError maps engine errors to stable HTTP statuses and JSON codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, hierarchy.ErrInvalidSegment),
		errors.Is(err, hierarchy.ErrSelfParent),
		errors.Is(err, hierarchy.ErrDescendantCycle):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, hierarchy.ErrDuplicateOwner):
		status = http.StatusConflict
	case errors.Is(err, hierarchy.ErrNotFound), errors.Is(err, hierarchy.ErrParentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, hierarchy.ErrBusy):
		status = http.StatusConflict
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("Gateway internal error", "error", err)
		msg = "internal error"
	}
	writeJSON(w, status, map[string]any{"error": apiError{
		Code:    hierarchy.ErrorCode(err),
		Message: msg,
	}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
