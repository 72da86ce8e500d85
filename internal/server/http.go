// Package server exposes the pairing facade over a small JSON HTTP API.
// Terminal taxonomy errors map to structured error responses; everything else
// is a 500 with a generic message.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	auditdomain "pairing-control-plane/internal/audit/domain"
	"pairing-control-plane/internal/pairing/domain"
	"pairing-control-plane/internal/pairing/service"
	"pairing-control-plane/internal/protocol"
)

// HealthCheck reports readiness of a downstream dependency.
type HealthCheck func() error

// AuditHistory reads the persisted audit trail for a session, newest first.
// Implemented by the audit logger.
type AuditHistory interface {
	History(ctx context.Context, sessionID string, limit, offset int32) ([]*auditdomain.AuditLog, error)
}

// Server routes HTTP requests to the pairing facade.
type Server struct {
	svc      *service.Service
	health   HealthCheck
	protocol protocol.Client
	trail    AuditHistory
}

// New returns the HTTP server surface. health, proto, and trail may be nil; a
// nil proto disables the connect endpoint and a nil trail the audit endpoint.
func New(svc *service.Service, health HealthCheck, proto protocol.Client, trail AuditHistory) *Server {
	return &Server{svc: svc, health: health, protocol: proto, trail: trail}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/pairing/code", s.handleRequestCode)
	mux.HandleFunc("POST /v1/pairing/verify", s.handleSubmitCode)
	mux.HandleFunc("POST /v1/pairing/connect", s.handleConnect)
	mux.HandleFunc("GET /v1/pairing/channels", s.handleChannels)
	mux.HandleFunc("GET /v1/pairing/audit", s.handleAudit)
	mux.HandleFunc("GET /v1/pairing/stats", s.handleStats)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

type requestCodeRequest struct {
	Phone     string `json:"phone"`
	SessionID string `json:"session_id"`
	Channel   string `json:"channel"`
}

type requestCodeResponse struct {
	SessionID      string     `json:"session_id"`
	Channel        string     `json:"channel"`
	Code           string     `json:"code,omitempty"`
	Formatted      string     `json:"formatted,omitempty"`
	Instructions   []string   `json:"instructions,omitempty"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	Fallback       bool       `json:"fallback"`
	OriginalMethod string     `json:"original_method,omitempty"`
	TicketID       string     `json:"ticket_id,omitempty"`
	RetryAt        *time.Time `json:"retry_at,omitempty"`
	Message        string     `json:"message,omitempty"`
}

func (s *Server) handleRequestCode(w http.ResponseWriter, r *http.Request) {
	var req requestCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}
	if req.Phone == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "phone and session_id are required", nil)
		return
	}
	ch := domain.Channel(req.Channel)
	if req.Channel == "" {
		ch = domain.ChannelPrimary
	}

	res, err := s.svc.RequestCode(r.Context(), req.Phone, req.SessionID, ch)
	if err != nil {
		writePairingError(w, err)
		return
	}
	out := requestCodeResponse{
		SessionID:    res.SessionID,
		Channel:      string(res.Channel),
		Code:         res.Code,
		Formatted:    res.Formatted,
		Instructions: res.Instructions,
		Fallback:     res.Fallback,
		TicketID:     res.TicketID,
		Message:      res.Message,
	}
	if res.Fallback {
		out.OriginalMethod = string(res.OriginalMethod)
	}
	if !res.ExpiresAt.IsZero() {
		out.ExpiresAt = &res.ExpiresAt
	}
	if !res.RetryAt.IsZero() {
		out.RetryAt = &res.RetryAt
	}
	writeJSON(w, http.StatusOK, out)
}

type submitCodeRequest struct {
	SessionID string `json:"session_id"`
	Channel   string `json:"channel"`
	Code      string `json:"code"`
}

type submitCodeResponse struct {
	Matched           bool   `json:"matched"`
	RemainingAttempts int    `json:"remaining_attempts"`
	PairingToken      string `json:"pairing_token,omitempty"`
}

func (s *Server) handleSubmitCode(w http.ResponseWriter, r *http.Request) {
	var req submitCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}
	if req.SessionID == "" || req.Code == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "session_id and code are required", nil)
		return
	}

	res, err := s.svc.SubmitCode(r.Context(), req.SessionID, domain.Channel(req.Channel), req.Code)
	if err != nil {
		writePairingError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, submitCodeResponse{
		Matched:           res.Matched,
		RemainingAttempts: res.RemainingAttempts,
		PairingToken:      res.PairingToken,
	})
}

type connectRequest struct {
	SessionID    string `json:"session_id"`
	Phone        string `json:"phone"`
	PairingToken string `json:"pairing_token"`
}

// handleConnect performs the messaging protocol handshake with a freshly
// minted pairing token. The handle is closed immediately; the control plane
// brokers the handshake, the device keeps its own connection.
func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	if s.protocol == nil {
		writeError(w, http.StatusServiceUnavailable, "protocol_unavailable", "messaging protocol endpoint is not configured", nil)
		return
	}
	var req connectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body", nil)
		return
	}
	if req.SessionID == "" || req.PairingToken == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "session_id and pairing_token are required", nil)
		return
	}

	handle, err := s.protocol.Connect(r.Context(), req.SessionID, req.Phone, req.PairingToken)
	if err != nil {
		writeError(w, http.StatusBadGateway, "connect_failed", err.Error(), nil)
		return
	}
	sessionID := handle.SessionID()
	if err := handle.Close(); err != nil {
		log.Printf("server: closing protocol handle for session %s: %v", sessionID, err)
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "accepted",
		"session_id": sessionID,
	})
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	channels := s.svc.AvailableChannels()
	out := make([]string, len(channels))
	for i, ch := range channels {
		out[i] = string(ch)
	}
	writeJSON(w, http.StatusOK, map[string][]string{"channels": out})
}

type auditEntry struct {
	Action    string    `json:"action"`
	Channel   string    `json:"channel"`
	Outcome   string    `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.trail == nil {
		writeError(w, http.StatusServiceUnavailable, "audit_unavailable", "audit trail is not configured", nil)
		return
	}
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "session_id is required", nil)
		return
	}
	limit := queryInt32(r, "limit", 50)
	offset := queryInt32(r, "offset", 0)

	logs, err := s.trail.History(r.Context(), sessionID, limit, offset)
	if err != nil {
		log.Printf("server: audit history for session %s: %v", sessionID, err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
		return
	}
	entries := make([]auditEntry, len(logs))
	for i, l := range logs {
		entries[i] = auditEntry{
			Action:    l.Action,
			Channel:   l.Channel,
			Outcome:   l.Outcome,
			CreatedAt: l.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"entries":    entries,
	})
}

func queryInt32(r *http.Request, name string, def int32) int32 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || n < 0 {
		return def
	}
	return int32(n)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Statistics())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health(); err != nil {
			writeError(w, http.StatusServiceUnavailable, "unhealthy", err.Error(), nil)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writePairingError maps the terminal taxonomy to HTTP statuses.
func writePairingError(w http.ResponseWriter, err error) {
	var rl *domain.RateLimitedError
	if errors.As(err, &rl) {
		writeError(w, http.StatusTooManyRequests, "rate_limited", err.Error(), map[string]interface{}{
			"retry_after_seconds": int(rl.RetryAfter.Seconds()),
		})
		return
	}
	var cf *domain.CriticalFailureError
	if errors.As(err, &cf) {
		writeError(w, http.StatusInternalServerError, "critical_failure", err.Error(), map[string]interface{}{
			"support_contact": cf.SupportContact,
		})
		return
	}
	switch {
	case errors.Is(err, domain.ErrUnknownChannel):
		writeError(w, http.StatusBadRequest, "unknown_channel", err.Error(), nil)
	case errors.Is(err, domain.ErrCredentialExpired):
		writeError(w, http.StatusGone, "credential_expired", err.Error(), nil)
	case errors.Is(err, domain.ErrAllMethodsFailed), errors.Is(err, domain.ErrNoFallbackAvailable):
		writeError(w, http.StatusServiceUnavailable, "all_methods_failed", err.Error(), nil)
	default:
		log.Printf("server: internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("server: encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string, details map[string]interface{}) {
	body := map[string]interface{}{
		"error":   code,
		"message": message,
	}
	for k, v := range details {
		body[k] = v
	}
	writeJSON(w, status, body)
}
