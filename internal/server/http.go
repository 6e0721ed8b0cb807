package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/model"
	"github.com/alfredjeanlab/suicounter/internal/panel"
	"github.com/alfredjeanlab/suicounter/internal/ratelimit"
	"github.com/alfredjeanlab/suicounter/internal/store"
)

const (
	// SessionHeader carries the wallet session id on API requests.
	SessionHeader = "X-Wallet-Session"

	// sessionCookie carries the wallet session id for the dashboard.
	sessionCookie = "counter_wallet"
)

// OperationResponse is the body of POST /v1/panels/{id}/{op}.
type OperationResponse struct {
	Panel        panel.Snapshot     `json:"panel"`
	Notification model.Notification `json:"notification"`
}

// NewHTTPHandler returns an http.Handler with all routes registered.
// When authToken is non-empty, /v1 API requests (except GET /v1/health) must
// include a valid Authorization: Bearer <token> header. The dashboard routes
// are served without it.
func (s *CounterServer) NewHTTPHandler(authToken string) http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("POST /v1/panels", s.handleMountPanel)
	api.HandleFunc("GET /v1/panels", s.handleListPanels)
	api.HandleFunc("GET /v1/panels/{id}", s.handleGetPanel)
	api.HandleFunc("POST /v1/panels/{id}/{op}", s.rateLimited(s.handleRunOperation))
	api.HandleFunc("GET /v1/panels/{id}/events", s.handleGetEvents)
	api.HandleFunc("POST /v1/wallet/connect", s.rateLimited(s.handleConnectWallet))
	api.HandleFunc("GET /v1/wallet", s.handleGetWallet)
	api.HandleFunc("DELETE /v1/wallet", s.handleDisconnectWallet)
	api.HandleFunc("GET /v1/networks", s.handleListNetworks)
	api.HandleFunc("GET /v1/events/stream", s.handleEventStream)
	api.HandleFunc("GET /v1/health", s.handleHealth)

	mux := http.NewServeMux()
	mux.Handle("/v1/", AuthMiddleware(authToken, api))
	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /panels/{id}", s.handleShowPanel)
	mux.HandleFunc("GET /panels/{id}/stream", s.handlePanelStream)
	mux.HandleFunc("POST /panels/{id}/ops/{op}", s.rateLimited(s.handleFormOperation))
	mux.HandleFunc("POST /wallet/connect", s.rateLimited(s.handleFormConnect))
	mux.HandleFunc("POST /wallet/disconnect", s.handleFormDisconnect)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return mux
}

// handleHealth handles GET /v1/health.
func (s *CounterServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"panels":      s.Panels.Len(),
		"sse_clients": s.sseHub.clientCount(),
	})
}

// handleMountPanel handles POST /v1/panels?network=.
func (s *CounterServer) handleMountPanel(w http.ResponseWriter, r *http.Request) {
	p, err := s.MountPanel(r.Context(), r.URL.Query())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to mount panel")
		return
	}
	writeJSON(w, http.StatusCreated, p.Snapshot())
}

// handleListPanels handles GET /v1/panels.
func (s *CounterServer) handleListPanels(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"panels": s.Panels.List()})
}

// handleGetPanel handles GET /v1/panels/{id}.
func (s *CounterServer) handleGetPanel(w http.ResponseWriter, r *http.Request) {
	p, err := s.Panels.Get(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, p.Snapshot())
}

// handleRunOperation handles POST /v1/panels/{id}/{op}. Operation outcomes,
// including warnings and failures, are 200 responses carrying the
// notification.
func (s *CounterServer) handleRunOperation(w http.ResponseWriter, r *http.Request) {
	snap, n, err := s.RunOperation(r.Context(), r.PathValue("id"), requestSessionID(r), model.Operation(r.PathValue("op")))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OperationResponse{Panel: snap, Notification: n})
}

// handleGetEvents handles GET /v1/panels/{id}/events?topic=&since=&limit=.
func (s *CounterServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.EventFilter{
		PanelID: r.PathValue("id"),
		Topic:   q.Get("topic"),
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since: expected RFC 3339 time")
			return
		}
		filter.Since = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = n
	}

	evts, err := s.store.ListEvents(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get events")
		return
	}
	if evts == nil {
		evts = []*model.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": evts})
}

// handleConnectWallet handles POST /v1/wallet/connect.
func (s *CounterServer) handleConnectWallet(w http.ResponseWriter, r *http.Request) {
	sess, err := s.ConnectWallet(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to connect wallet")
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// handleGetWallet handles GET /v1/wallet.
func (s *CounterServer) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	sess := s.session(requestSessionID(r))
	if sess == nil {
		writeError(w, http.StatusNotFound, "wallet not connected")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// handleDisconnectWallet handles DELETE /v1/wallet.
func (s *CounterServer) handleDisconnectWallet(w http.ResponseWriter, r *http.Request) {
	if err := s.DisconnectWallet(r.Context(), requestSessionID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListNetworks handles GET /v1/networks.
func (s *CounterServer) handleListNetworks(w http.ResponseWriter, _ *http.Request) {
	type networkEntry struct {
		Network   model.Network `json:"network"`
		PackageID string        `json:"package_id"`
	}
	ids := s.Networks()
	out := make([]networkEntry, 0, len(model.Networks))
	for _, n := range model.Networks {
		out = append(out, networkEntry{Network: n, PackageID: ids[n]})
	}
	writeJSON(w, http.StatusOK, map[string]any{"networks": out, "default": model.NetworkDevnet})
}

// rateLimited rejects requests over the per-client limit with 429.
func (s *CounterServer) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(s.limitKey(r), time.Now()) {
			s.metrics.RateLimited()
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

// limitKey names the rate limit bucket for r: the wallet session when r
// presents a live one, else the client address. Ids that name no session
// share the address bucket.
func (s *CounterServer) limitKey(r *http.Request) string {
	if sess := s.session(requestSessionID(r)); sess != nil {
		return "wallet:" + sess.ID
	}
	return "addr:" + ratelimit.ClientKey(r)
}

// requestSessionID returns the wallet session id from the X-Wallet-Session
// header, falling back to the dashboard cookie.
func requestSessionID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(SessionHeader)); v != "" {
		return v
	}
	if c, err := r.Cookie(sessionCookie); err == nil {
		return c.Value
	}
	return ""
}

// writeServiceError maps CounterServer errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var ie inputError
	switch {
	case errors.As(err, &ie):
		writeError(w, http.StatusBadRequest, err.Error())
	case isNotFound(err):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
