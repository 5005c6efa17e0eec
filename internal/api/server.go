// Package api exposes the REST surface: the widget-facing chat endpoint
// plus authenticated operator endpoints for tickets, conversations, the
// knowledge base and diagnostics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/autobot-io/autobot/internal/engine"
	"github.com/autobot-io/autobot/internal/knowledge"
	"github.com/autobot-io/autobot/internal/logbuf"
	"github.com/autobot-io/autobot/internal/ticket"
	"github.com/autobot-io/autobot/pkg/protocol"
)

// ChatService is the interface the API server needs from the chat layer.
type ChatService interface {
	Turn(ctx context.Context, sessionID, channel string, req engine.TurnRequest) (*engine.TurnResponse, string, error)
}

// LogQuerier abstracts log entry querying to avoid coupling to logbuf
// directly.
type LogQuerier interface {
	Query(since time.Time, minLevel slog.Level, component string, limit int) []logbuf.Entry
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // API key for Bearer auth on operator endpoints
}

// Server is the autobot REST API server.
type Server struct {
	chat    ChatService
	tickets ticket.Store
	kb      *knowledge.Base
	cfg     Config
	logger  *slog.Logger
	logs    LogQuerier
	srv     *http.Server
}

// Option configures optional server surfaces.
type Option func(*Server, *http.ServeMux)

// WithLogs exposes GET /api/logs backed by q.
func WithLogs(q LogQuerier) Option {
	return func(s *Server, _ *http.ServeMux) { s.logs = q }
}

// WithMetricsHandler mounts a metrics handler at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(_ *Server, mux *http.ServeMux) { mux.Handle("GET /metrics", h) }
}

// WithWebhook mounts a connector handler under /webhook/.
func WithWebhook(h http.Handler) Option {
	return func(_ *Server, mux *http.ServeMux) { mux.Handle("/webhook/", h) }
}

// NewServer creates the API server.
func NewServer(chat ChatService, tickets ticket.Store, kb *knowledge.Base, cfg Config, logger *slog.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		chat:    chat,
		tickets: tickets,
		kb:      kb,
		cfg:     cfg,
		logger:  logger.With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /api/tickets", s.requireAuth(s.handleListTickets))
	mux.HandleFunc("GET /api/tickets/{id}", s.requireAuth(s.handleGetTicket))
	mux.HandleFunc("PATCH /api/tickets/{id}", s.requireAuth(s.handleUpdateTicket))
	mux.HandleFunc("GET /api/stats", s.requireAuth(s.handleStats))
	mux.HandleFunc("GET /api/conversations", s.requireAuth(s.handleListConversations))
	mux.HandleFunc("GET /api/knowledge", s.requireAuth(s.handleSearchKnowledge))
	mux.HandleFunc("GET /api/knowledge/{id}", s.requireAuth(s.handleGetArticle))
	mux.HandleFunc("POST /api/knowledge", s.requireAuth(s.handleIngestArticle))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))

	for _, opt := range opts {
		opt(s, mux)
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	// The chat endpoint is called from customer sites via the embed
	// widget, so CORS is wide open.
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	SessionID string               `json:"session_id,omitempty"`
	Message   string               `json:"message"`
	History   []protocol.Message   `json:"history,omitempty"`
	Draft     protocol.TicketDraft `json:"draft"`
}

type chatResponse struct {
	SessionID string               `json:"session_id"`
	Reply     string               `json:"reply"`
	Intent    protocol.Intent      `json:"intent"`
	Action    *protocol.Action     `json:"action,omitempty"`
	Draft     protocol.TicketDraft `json:"draft"`
}

// handleChat processes one stateless chat turn. The caller holds the
// conversation: history and draft from the previous response must be sent
// back with the next message.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	resp, sessionID, err := s.chat.Turn(r.Context(), req.SessionID, "web", engine.TurnRequest{
		Message: req.Message,
		History: req.History,
		Draft:   req.Draft,
	})
	if err != nil {
		if errors.Is(err, engine.ErrEmptyMessage) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "message is required"})
			return
		}
		s.logger.Error("chat turn failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: sessionID,
		Reply:     resp.Reply,
		Intent:    resp.Intent,
		Action:    resp.Action,
		Draft:     resp.Draft,
	})
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	filter := ticket.Filter{}
	if status := r.URL.Query().Get("status"); status != "" {
		ts := protocol.TicketStatus(status)
		filter.Status = &ts
	}
	filter.Email = r.URL.Query().Get("email")
	filter.Plan = r.URL.Query().Get("plan")
	filter.Query = r.URL.Query().Get("q")
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = n
		}
	}

	tickets, err := s.tickets.List(r.Context(), filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if tickets == nil {
		tickets = []*protocol.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.tickets.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type updateTicketRequest struct {
	Status protocol.TicketStatus `json:"status"`
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	var req updateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	switch req.Status {
	case protocol.TicketOpen, protocol.TicketInProgress, protocol.TicketResolved, protocol.TicketClosed:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid status %q", req.Status)})
		return
	}

	id := r.PathValue("id")
	if err := s.tickets.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": string(req.Status)})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts := make(map[string]int)
	total := 0
	for _, st := range []protocol.TicketStatus{
		protocol.TicketOpen, protocol.TicketInProgress, protocol.TicketResolved, protocol.TicketClosed,
	} {
		st := st
		n, err := s.tickets.Count(r.Context(), ticket.Filter{Status: &st})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		counts[string(st)] = n
		total += n
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": total, "by_status": counts})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	convos, err := s.tickets.ListConversations(r.Context(), r.URL.Query().Get("session_id"), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if convos == nil {
		convos = []*protocol.Conversation{}
	}
	writeJSON(w, http.StatusOK, convos)
}

func (s *Server) handleSearchKnowledge(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil {
			limit = n
		}
	}

	var articles []knowledge.Article
	if q := r.URL.Query().Get("q"); q != "" {
		articles = s.kb.Search(q, limit)
	} else {
		articles = s.kb.List()
	}
	if articles == nil {
		articles = []knowledge.Article{}
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	a, ok := s.kb.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "article not found"})
		return
	}
	writeJSON(w, http.StatusOK, a)
}

type ingestRequest struct {
	URL string `json:"url"`
}

func (s *Server) handleIngestArticle(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	a, err := s.kb.IngestURL(r.Context(), req.URL)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		minLevel = logbuf.ParseLevel(strings.ToUpper(lvl))
	}

	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.UnixMilli(ms)
		}
	}

	entries := s.logs.Query(since, minLevel, r.URL.Query().Get("component"), limit)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
