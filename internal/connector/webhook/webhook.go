// Package webhook exposes an HTTP endpoint for embedded chat widgets and
// other systems that want to talk to the bot over plain JSON.
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/autobot-io/autobot/internal/connector"
)

// Config holds webhook connector configuration.
type Config struct {
	// Secret for HMAC-SHA256 signature verification (X-Hub-Signature-256
	// header). If empty, requests are accepted unauthenticated.
	Secret string `json:"secret,omitempty"`
}

// Payload is the expected JSON body for webhook requests.
type Payload struct {
	ChatID  string `json:"chat_id"`
	Message string `json:"message"`
	Reset   bool   `json:"reset,omitempty"`
}

// Reply is the JSON response body.
type Reply struct {
	ChatID string `json:"chat_id"`
	Reply  string `json:"reply"`
}

const maxBodySize = 1 << 20 // 1MB

// Webhook handles inbound HTTP chat requests synchronously.
type Webhook struct {
	config  Config
	handler connector.Handler
	logger  *slog.Logger
}

// New creates a new webhook connector.
func New(cfg Config, handler connector.Handler, logger *slog.Logger) *Webhook {
	if logger == nil {
		logger = slog.Default()
	}
	return &Webhook{
		config:  cfg,
		handler: handler,
		logger:  logger.With("component", "webhook"),
	}
}

// ServeHTTP handles a chat turn posted as JSON and writes the bot's reply.
func (h *Webhook) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	if !h.authenticate(r, body) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid JSON payload", http.StatusBadRequest)
		return
	}
	if payload.ChatID == "" {
		http.Error(w, "chat_id is required", http.StatusBadRequest)
		return
	}

	if payload.Reset {
		h.handler.Reset("webhook", payload.ChatID)
		writeReply(w, Reply{ChatID: payload.ChatID, Reply: "Conversation reset."})
		return
	}

	if payload.Message == "" {
		http.Error(w, "message is required", http.StatusBadRequest)
		return
	}

	reply, err := h.handler.HandleMessage(r.Context(), "webhook", payload.ChatID, payload.Message)
	if err != nil {
		h.logger.Error("webhook handler error", "chat_id", payload.ChatID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeReply(w, Reply{ChatID: payload.ChatID, Reply: reply})
}

func writeReply(w http.ResponseWriter, reply Reply) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(reply)
}

func (h *Webhook) authenticate(r *http.Request, body []byte) bool {
	if h.config.Secret == "" {
		return true
	}
	sig := r.Header.Get("X-Hub-Signature-256")
	if sig == "" {
		sig = r.Header.Get("X-Signature-256")
	}
	return verifyHMAC(body, h.config.Secret, sig)
}

// verifyHMAC checks an HMAC-SHA256 signature.
// Signature format: "sha256=<hex>"
func verifyHMAC(body []byte, secret, signature string) bool {
	if signature == "" {
		return false
	}

	sig := strings.TrimPrefix(signature, "sha256=")
	expectedMAC, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), expectedMAC)
}

// ComputeSignature generates an HMAC-SHA256 signature for callers and tests.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}
