package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/autobot-io/autobot/internal/chat"
	"github.com/autobot-io/autobot/internal/engine"
	"github.com/autobot-io/autobot/internal/knowledge"
	"github.com/autobot-io/autobot/internal/logbuf"
	"github.com/autobot-io/autobot/internal/session"
	"github.com/autobot-io/autobot/internal/ticket"
	"github.com/autobot-io/autobot/pkg/protocol"
)

func newTestServer(t *testing.T, key string, opts ...Option) (*Server, *ticket.SQLiteStore) {
	t.Helper()
	store, err := ticket.NewSQLiteStore(t.TempDir() + "/test.db")
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(store, logger)
	sessions := session.NewManager(0, 0, logger)
	svc := chat.NewService(eng, sessions, store, nil, logger)
	kb := knowledge.NewBase(logger)

	srv := NewServer(svc, store, kb, Config{Host: "127.0.0.1", Port: 0, Key: key}, logger, opts...)
	return srv, store
}

func doJSON(t *testing.T, h http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := doJSON(t, srv.Handler(), "GET", "/api/health", "", nil)

	if w.Code != http.StatusOK {
		t.Errorf("status = %d", w.Code)
	}
	var body map[string]string
	json.NewDecoder(w.Body).Decode(&body)
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestChat_SingleTurn(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := doJSON(t, srv.Handler(), "POST", "/api/chat", `{"message":"what plans do you offer?"}`, nil)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp chatResponse
	json.NewDecoder(w.Body).Decode(&resp)
	if resp.SessionID == "" {
		t.Error("expected generated session_id")
	}
	if resp.Intent != protocol.IntentPlanInfo {
		t.Errorf("intent = %s", resp.Intent)
	}
	if resp.Reply == "" {
		t.Error("expected a reply")
	}
}

// The widget round-trips history and draft; the serialized exchange must
// carry the flow across stateless requests.
func TestChat_RoundTripsConversationState(t *testing.T) {
	srv, store := newTestServer(t, "")

	var resp chatResponse
	var history []protocol.Message

	turn := func(msg string) {
		t.Helper()
		reqBody := chatRequest{
			SessionID: resp.SessionID,
			Message:   msg,
			History:   history,
			Draft:     resp.Draft,
		}
		b, _ := json.Marshal(reqBody)
		w := doJSON(t, srv.Handler(), "POST", "/api/chat", string(b), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("turn %q: status = %d: %s", msg, w.Code, w.Body.String())
		}
		resp = chatResponse{}
		json.NewDecoder(w.Body).Decode(&resp)
		history = append(history,
			protocol.Message{Role: protocol.RoleUser, Content: msg},
			protocol.Message{Role: protocol.RoleAssistant, Content: resp.Reply},
		)
	}

	turn("I need to submit a support ticket")
	turn("My name is Priya")
	if resp.Draft.Name != "Priya" {
		t.Fatalf("draft after name turn = %+v", resp.Draft)
	}
	turn("priya@example.com")
	turn("basic")
	turn("exports never finish")

	if resp.Action == nil || resp.Action.Type != protocol.ActionTicketCreated {
		t.Fatalf("expected ticket_created action, got %+v", resp.Action)
	}

	stored, err := store.Get(t.Context(), resp.Action.TicketID)
	if err != nil {
		t.Fatalf("ticket not stored: %v", err)
	}
	if stored.Email != "priya@example.com" {
		t.Errorf("stored ticket = %+v", stored)
	}
}

func TestChat_EmptyMessage(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := doJSON(t, srv.Handler(), "POST", "/api/chat", `{"message":"  "}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestListTickets(t *testing.T) {
	srv, store := newTestServer(t, "")
	store.Create(t.Context(), &protocol.Ticket{
		ID: "TKT-1", Name: "Dana", Email: "d@e.co", Plan: "basic",
		Subject: "Support Request - Basic Plan", Message: "broken",
		Status: protocol.TicketOpen, Priority: protocol.PriorityMedium,
		CreatedAt: time.Now(),
	})

	w := doJSON(t, srv.Handler(), "GET", "/api/tickets?status=open&limit=10", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var tickets []*protocol.Ticket
	json.NewDecoder(w.Body).Decode(&tickets)
	if len(tickets) != 1 || tickets[0].ID != "TKT-1" {
		t.Errorf("tickets = %v", tickets)
	}

	w = doJSON(t, srv.Handler(), "GET", "/api/tickets?status=closed", "", nil)
	json.NewDecoder(w.Body).Decode(&tickets)
	if len(tickets) != 0 {
		t.Errorf("expected empty list, got %v", tickets)
	}
}

func TestGetTicket_NotFound(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := doJSON(t, srv.Handler(), "GET", "/api/tickets/nope", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateTicketStatus(t *testing.T) {
	srv, store := newTestServer(t, "")
	store.Create(t.Context(), &protocol.Ticket{
		ID: "TKT-1", Name: "Dana", Email: "d@e.co", Plan: "basic",
		Subject: "s", Message: "m",
		Status: protocol.TicketOpen, Priority: protocol.PriorityMedium,
		CreatedAt: time.Now(),
	})

	w := doJSON(t, srv.Handler(), "PATCH", "/api/tickets/TKT-1", `{"status":"resolved"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	got, _ := store.Get(t.Context(), "TKT-1")
	if got.Status != protocol.TicketResolved {
		t.Errorf("stored status = %s", got.Status)
	}

	w = doJSON(t, srv.Handler(), "PATCH", "/api/tickets/TKT-1", `{"status":"bogus"}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid status: code = %d, want 400", w.Code)
	}

	w = doJSON(t, srv.Handler(), "PATCH", "/api/tickets/ghost", `{"status":"closed"}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing ticket: code = %d, want 404", w.Code)
	}
}

func TestStats(t *testing.T) {
	srv, store := newTestServer(t, "")
	for i, st := range []protocol.TicketStatus{protocol.TicketOpen, protocol.TicketOpen, protocol.TicketClosed} {
		store.Create(t.Context(), &protocol.Ticket{
			ID: fmt.Sprintf("TKT-%d", i), Name: "n", Email: "e@x.co", Plan: "basic",
			Subject: "s", Message: "m", Status: st, Priority: protocol.PriorityMedium,
			CreatedAt: time.Now(),
		})
	}

	w := doJSON(t, srv.Handler(), "GET", "/api/stats", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var stats struct {
		Total    int            `json:"total"`
		ByStatus map[string]int `json:"by_status"`
	}
	json.NewDecoder(w.Body).Decode(&stats)
	if stats.Total != 3 || stats.ByStatus["open"] != 2 || stats.ByStatus["closed"] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestListConversations(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := doJSON(t, srv.Handler(), "POST", "/api/chat", `{"message":"hello"}`, nil)
	var resp chatResponse
	json.NewDecoder(w.Body).Decode(&resp)

	w = doJSON(t, srv.Handler(), "GET", "/api/conversations?session_id="+resp.SessionID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var convos []*protocol.Conversation
	json.NewDecoder(w.Body).Decode(&convos)
	if len(convos) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(convos))
	}
	if convos[0].UserMessage != "hello" {
		t.Errorf("conversation = %+v", convos[0])
	}
}

func TestKnowledgeSearchAndGet(t *testing.T) {
	srv, _ := newTestServer(t, "")

	w := doJSON(t, srv.Handler(), "GET", "/api/knowledge?q=pricing", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var articles []knowledge.Article
	json.NewDecoder(w.Body).Decode(&articles)
	if len(articles) == 0 {
		t.Fatal("expected search hits")
	}

	w = doJSON(t, srv.Handler(), "GET", "/api/knowledge/"+articles[0].ID, "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("get article: status = %d", w.Code)
	}

	w = doJSON(t, srv.Handler(), "GET", "/api/knowledge/ghost", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing article: status = %d", w.Code)
	}
}

func TestIngestArticle_BadRequest(t *testing.T) {
	srv, _ := newTestServer(t, "")
	w := doJSON(t, srv.Handler(), "POST", "/api/knowledge", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetLogs(t *testing.T) {
	buf := logbuf.New(10)
	buf.Write(logbuf.Entry{Time: time.Now(), Level: "INFO", Component: "engine", Message: "turn processed"})
	buf.Write(logbuf.Entry{Time: time.Now(), Level: "ERROR", Component: "api", Message: "boom"})

	srv, _ := newTestServer(t, "", WithLogs(buf))

	w := doJSON(t, srv.Handler(), "GET", "/api/logs", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var entries []logbuf.Entry
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	w = doJSON(t, srv.Handler(), "GET", "/api/logs?level=error", "", nil)
	entries = nil
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].Message != "boom" {
		t.Errorf("level filter: %v", entries)
	}

	w = doJSON(t, srv.Handler(), "GET", "/api/logs?component=engine", "", nil)
	entries = nil
	json.NewDecoder(w.Body).Decode(&entries)
	if len(entries) != 1 || entries[0].Component != "engine" {
		t.Errorf("component filter: %v", entries)
	}
}

func TestAuth_Required(t *testing.T) {
	srv, _ := newTestServer(t, "secret-key")

	w := doJSON(t, srv.Handler(), "GET", "/api/tickets", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no auth: status = %d, want 401", w.Code)
	}

	w = doJSON(t, srv.Handler(), "GET", "/api/tickets", "", map[string]string{"Authorization": "Bearer wrong-key"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong key: status = %d, want 401", w.Code)
	}

	w = doJSON(t, srv.Handler(), "GET", "/api/tickets", "", map[string]string{"Authorization": "Bearer secret-key"})
	if w.Code != http.StatusOK {
		t.Errorf("correct key: status = %d, want 200", w.Code)
	}
}

func TestChatAndHealth_NoAuth(t *testing.T) {
	srv, _ := newTestServer(t, "secret-key")

	w := doJSON(t, srv.Handler(), "GET", "/api/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("health should not require auth, status = %d", w.Code)
	}

	// The widget has no API key; chat stays open.
	w = doJSON(t, srv.Handler(), "POST", "/api/chat", `{"message":"hi"}`, nil)
	if w.Code != http.StatusOK {
		t.Errorf("chat should not require auth, status = %d", w.Code)
	}
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t, "")
	req := httptest.NewRequest("OPTIONS", "/api/chat", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin = %q", got)
	}
}
