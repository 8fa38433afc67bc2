// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the default port for the development server.
	DefaultPort = 8000

	// MaxRequestBodySize caps request bodies at 1MB.
	MaxRequestBodySize = 1 * 1024 * 1024

	// MaxMessageLength caps a single chat message.
	MaxMessageLength = 4000

	// MaxHistoryCount caps the number of history entries per request.
	MaxHistoryCount = 100

	// Version is the stub server version.
	Version = "0.1.0"
)

// validRoles is the accepted set of history message roles.
var validRoles = map[string]bool{
	"user":      true,
	"assistant": true,
}

// ============================================================================
// WIRE TYPES
// ============================================================================

// HistoryMessage is one prior conversation turn.
type HistoryMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/v1/chat.
type ChatRequest struct {
	Message   string           `json:"message"`
	SessionID string           `json:"session_id,omitempty"`
	History   []HistoryMessage `json:"conversation_history,omitempty"`
}

// ChatReply is the data payload of a successful chat response.
type ChatReply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
	Timestamp string `json:"timestamp"`
}

// Envelope wraps every chat response.
type Envelope struct {
	Success bool       `json:"success"`
	Data    *ChatReply `json:"data,omitempty"`
	Error   string     `json:"error,omitempty"`
}

// clearRequest is the body of POST /api/v1/session/clear.
type clearRequest struct {
	SessionID string `json:"session_id"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Version  string `json:"version"`
	Sessions int    `json:"sessions"`
}

// ============================================================================
// SERVER
// ============================================================================

// Server is a development stand-in for the Dr. Salus AI service. It speaks
// the same wire contract as the real backend but answers from a rule-based
// responder, so the TUI can be exercised without the Python service running.
type Server struct {
	port      int
	router    *http.ServeMux
	server    *http.Server
	responder *Responder

	// sessions tracks turn counts per session id.
	mu       sync.Mutex
	sessions map[string]int
}

// NewServer creates a stub server on the given port (0 means DefaultPort).
func NewServer(port int) *Server {
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		port:      port,
		router:    http.NewServeMux(),
		responder: NewResponder(),
		sessions:  make(map[string]int),
	}

	s.router.HandleFunc("POST /api/v1/chat", s.handleChat)
	s.router.HandleFunc("POST /api/v1/session/clear", s.handleSessionClear)
	s.router.HandleFunc("GET /health", s.handleHealth)
	return s
}

// Port returns the configured port.
func (s *Server) Port() int {
	return s.port
}

// Handler returns the fully wrapped HTTP handler (used by tests).
func (s *Server) Handler() http.Handler {
	return Chain(
		RecoveryMiddleware(),
		SecurityHeadersMiddleware(),
		CORSMiddleware(DefaultCORSConfig()),
		LoggingMiddleware(log.Default()),
		RateLimitMiddleware(DefaultRateLimiter()),
	)(s.router)
}

// ============================================================================
// CHAT HANDLER
// ============================================================================

// handleChat answers POST /api/v1/chat with the envelope contract the
// TUI client expects.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", MaxRequestBodySize))
			return
		}
		log.Printf("CHAT_BAD_BODY | error=%v", err)
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	if strings.TrimSpace(req.Message) == "" {
		s.writeError(w, http.StatusBadRequest, "message must not be empty")
		return
	}
	if len([]rune(req.Message)) > MaxMessageLength {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("message exceeds maximum length of %d", MaxMessageLength))
		return
	}
	if len(req.History) > MaxHistoryCount {
		s.writeError(w, http.StatusBadRequest,
			fmt.Sprintf("too many history entries: maximum is %d", MaxHistoryCount))
		return
	}
	for i, msg := range req.History {
		if !validRoles[msg.Role] {
			log.Printf("CHAT_BAD_ROLE | index=%d role=%q", i, msg.Role)
			s.writeError(w, http.StatusBadRequest,
				"history roles must be user or assistant")
			return
		}
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	s.mu.Lock()
	s.sessions[sessionID]++
	turns := s.sessions[sessionID]
	s.mu.Unlock()

	reply := s.responder.Respond(req.Message)
	log.Printf("CHAT_REPLY | session=%s turns=%d emergency=%t",
		sessionID, turns, s.responder.IsEmergency(req.Message))

	s.writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data: &ChatReply{
			Response:  reply,
			SessionID: sessionID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleSessionClear drops server-side state for a session. Clearing an
// unknown session succeeds; the endpoint is best effort by contract.
func (s *Server) handleSessionClear(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)

	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request format")
		return
	}

	s.mu.Lock()
	delete(s.sessions, req.SessionID)
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleHealth answers GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	count := len(s.sessions)
	s.mu.Unlock()

	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Service:  "Dr. Salus AI (dev stub)",
		Version:  Version,
		Sessions: count,
	})
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start runs the server until Shutdown or a listen error. Binds localhost
// only; the stub has no authentication.
func (s *Server) Start() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("SERVER_START | addr=%s version=%s", addr, Version)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Printf("SERVER_SHUTDOWN | sessions=%d", len(s.sessions))
	return s.server.Shutdown(ctx)
}

// ============================================================================
// HELPERS
// ============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, Envelope{Success: false, Error: message})
}
