package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/morezero/snapkit-bridge/pkg/bridge"
)

// HealthOutput is the /health body.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
	Uptime    string       `json:"uptime"`
}

// HealthChecks lists individual component checks. Database is omitted when the ledger is disabled.
type HealthChecks struct {
	Comms    bool  `json:"comms"`
	Channel  bool  `json:"channel"`
	Database *bool `json:"database,omitempty"`
}

// StateOutput is the /state body.
type StateOutput struct {
	State      string                `json:"state"`
	HostID     string                `json:"hostId,omitempty"`
	Platform   string                `json:"platform,omitempty"`
	Generation uint64                `json:"generation"`
	SDKGate    string                `json:"sdkConstraint"`
	InFlight   []bridge.InFlightCall `json:"inFlight"`
}

// MethodsOutput is the /methods body.
type MethodsOutput struct {
	Channel string   `json:"channel"`
	Subject string   `json:"subject"`
	Methods []string `json:"methods"`
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/methods", s.handleMethods)
	r.Get("/state", s.handleState)
	if s.ledger != nil {
		r.Get("/shares", s.handleShares)
		r.Get("/shares/{hostId}", s.handleShares)
	}
	return r
}

// Health checks COMMS, the bridge channel and, when enabled, the database.
func (s *Server) Health(ctx context.Context) *HealthOutput {
	h := &HealthOutput{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Truncate(time.Second).String(),
	}
	h.Checks.Comms = s.nc != nil && s.nc.IsConnected()
	h.Checks.Channel = s.channel != nil && s.channel.IsOpen()
	healthy := h.Checks.Comms && h.Checks.Channel

	if s.pool != nil {
		ok := s.pool.Ping(ctx) == nil
		h.Checks.Database = &ok
		healthy = healthy && ok
	}
	if !healthy {
		h.Status = "unhealthy"
	}
	return h
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()
	h := s.Health(ctx)
	status := http.StatusOK
	if h.Status != "healthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}

func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.channel.IsOpen() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "closed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleMethods(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, &MethodsOutput{
		Channel: s.channel.Name(),
		Subject: s.channel.Subject(),
		Methods: s.disp.Methods(),
	})
}

func (s *Server) handleState(w http.ResponseWriter, _ *http.Request) {
	out := &StateOutput{
		State:      s.binder.State().String(),
		Generation: s.binder.Generation(),
		SDKGate:    s.gate.String(),
		InFlight:   s.channel.InFlight(),
	}
	if host, ok := s.binder.Current(); ok {
		out.HostID = host.ID()
		out.Platform = host.Platform()
	}
	writeJSON(w, http.StatusOK, out)
}

// handleShares lists recorded shares, newest first, optionally for one host.
func (s *Server) handleShares(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
	defer cancel()

	shares, err := s.ledger.ListShares(ctx, chi.URLParam(r, "hostId"), limit)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - list shares: %v", logPrefix, err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list shares"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"shares": shares})
}

const (
	defaultShareLimit = 50
	maxShareLimit     = 500
)

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultShareLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("limit must be a positive integer")
	}
	if n > maxShareLimit {
		n = maxShareLimit
	}
	return n, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - encode response: %v", logPrefix, err))
	}
}
