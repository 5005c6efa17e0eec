package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/autobot-io/autobot/internal/connector"
)

type mockHandler struct {
	reply  string
	err    error
	resets []string
	calls  []string
}

func (m *mockHandler) HandleMessage(_ context.Context, channel, chatID, text string) (string, error) {
	m.calls = append(m.calls, channel+"/"+chatID+"/"+text)
	return m.reply, m.err
}

func (m *mockHandler) Reset(channel, chatID string) {
	m.resets = append(m.resets, channel+"/"+chatID)
}

var _ connector.Handler = (*mockHandler)(nil)

func post(t *testing.T, h http.Handler, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/", bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServeHTTP_RepliesSynchronously(t *testing.T) {
	handler := &mockHandler{reply: "Hello! How can I help?"}
	h := New(Config{}, handler, nil)

	body := []byte(`{"chat_id":"widget-42","message":"hello"}`)
	rec := post(t, h, body, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var reply Reply
	if err := json.Unmarshal(rec.Body.Bytes(), &reply); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if reply.ChatID != "widget-42" {
		t.Errorf("chat_id = %q, want widget-42", reply.ChatID)
	}
	if reply.Reply != "Hello! How can I help?" {
		t.Errorf("reply = %q", reply.Reply)
	}

	if len(handler.calls) != 1 || handler.calls[0] != "webhook/widget-42/hello" {
		t.Errorf("handler calls = %v", handler.calls)
	}
}

func TestServeHTTP_Reset(t *testing.T) {
	handler := &mockHandler{reply: "unused"}
	h := New(Config{}, handler, nil)

	rec := post(t, h, []byte(`{"chat_id":"widget-42","reset":true}`), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(handler.resets) != 1 || handler.resets[0] != "webhook/widget-42" {
		t.Errorf("resets = %v", handler.resets)
	}
	if len(handler.calls) != 0 {
		t.Errorf("reset should not invoke HandleMessage, got %v", handler.calls)
	}
}

func TestServeHTTP_Validation(t *testing.T) {
	h := New(Config{}, &mockHandler{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing chat_id", `{"message":"hi"}`},
		{"missing message", `{"chat_id":"c1"}`},
		{"bad json", `{not json`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, []byte(tt.body), nil)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestServeHTTP_MethodNotAllowed(t *testing.T) {
	h := New(Config{}, &mockHandler{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/webhook/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestServeHTTP_HandlerError(t *testing.T) {
	h := New(Config{}, &mockHandler{err: errors.New("store down")}, nil)

	rec := post(t, h, []byte(`{"chat_id":"c1","message":"hi"}`), nil)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestServeHTTP_SignatureVerification(t *testing.T) {
	const secret = "whsec_test123"
	h := New(Config{Secret: secret}, &mockHandler{reply: "ok"}, nil)

	body := []byte(`{"chat_id":"c1","message":"hi"}`)

	t.Run("valid signature", func(t *testing.T) {
		rec := post(t, h, body, map[string]string{
			"X-Hub-Signature-256": ComputeSignature(body, secret),
		})
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("alternate header", func(t *testing.T) {
		rec := post(t, h, body, map[string]string{
			"X-Signature-256": ComputeSignature(body, secret),
		})
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("missing signature", func(t *testing.T) {
		rec := post(t, h, body, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		rec := post(t, h, body, map[string]string{
			"X-Hub-Signature-256": ComputeSignature(body, "other"),
		})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		sig := ComputeSignature(body, secret)
		tampered := []byte(strings.Replace(string(body), "hi", "ho", 1))
		rec := post(t, h, tampered, map[string]string{"X-Hub-Signature-256": sig})
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rec.Code)
		}
	})
}

func TestComputeSignature_RoundTrip(t *testing.T) {
	body := []byte(`{"chat_id":"c1","message":"hello"}`)
	sig := ComputeSignature(body, "secret")
	if !strings.HasPrefix(sig, "sha256=") {
		t.Errorf("signature missing prefix: %q", sig)
	}
	if !verifyHMAC(body, "secret", sig) {
		t.Error("verifyHMAC rejected its own signature")
	}
}
