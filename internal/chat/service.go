// Package chat coordinates a conversation turn end to end: session state
// for stateful channels, the intent engine, the conversation log, and
// channel metrics.
package chat

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/autobot-io/autobot/internal/engine"
	"github.com/autobot-io/autobot/internal/metrics"
	"github.com/autobot-io/autobot/internal/session"
	"github.com/autobot-io/autobot/internal/ticket"
	"github.com/autobot-io/autobot/pkg/protocol"
)

// Service processes chat turns for every channel. Stateless callers (the
// HTTP API) round-trip conversation state themselves via Turn; stateful
// channels (Telegram, Slack, webhooks) use HandleMessage, which keeps
// state in the session manager.
type Service struct {
	engine   *engine.Engine
	sessions *session.Manager
	store    ticket.Store
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// NewService creates a Service. metrics may be nil.
func NewService(eng *engine.Engine, sessions *session.Manager, store ticket.Store, m *metrics.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		engine:   eng,
		sessions: sessions,
		store:    store,
		metrics:  m,
		logger:   logger.With("component", "chat"),
	}
}

// Turn processes one stateless turn. sessionID identifies the caller's
// conversation in the log; if empty, a new one is generated and returned.
func (s *Service) Turn(ctx context.Context, sessionID, channel string, req engine.TurnRequest) (*engine.TurnResponse, string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	resp, err := s.engine.ProcessTurn(ctx, req)
	if err != nil {
		return nil, sessionID, err
	}

	s.record(ctx, sessionID, channel, req.Message, resp)
	return resp, sessionID, nil
}

// HandleMessage processes one turn for a stateful channel and returns the
// reply text. Conversation state lives in the session manager.
func (s *Service) HandleMessage(ctx context.Context, channel, chatID, text string) (string, error) {
	sess := s.sessions.Snapshot(channel, chatID)

	resp, err := s.engine.ProcessTurn(ctx, engine.TurnRequest{
		Message: text,
		History: sess.History,
		Draft:   sess.Draft,
	})
	if err != nil {
		return "", err
	}

	s.sessions.Commit(channel, chatID, text, resp.Reply, resp.Draft)
	s.record(ctx, sess.ID, channel, text, resp)
	return resp.Reply, nil
}

// Reset drops a stateful channel's conversation so the next message
// starts fresh.
func (s *Service) Reset(channel, chatID string) {
	s.sessions.Reset(channel, chatID)
}

func (s *Service) record(ctx context.Context, sessionID, channel, userMessage string, resp *engine.TurnResponse) {
	if s.metrics != nil {
		s.metrics.InboundMessages.WithLabelValues(channel).Inc()
		if s.sessions != nil {
			s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
		}
	}

	// The conversation log is best-effort: a logging failure must not
	// fail the turn.
	err := s.store.LogConversation(ctx, &protocol.Conversation{
		SessionID:   sessionID,
		Channel:     channel,
		UserMessage: userMessage,
		BotReply:    resp.Reply,
		Intent:      resp.Intent,
		CreatedAt:   time.Now(),
	})
	if err != nil {
		s.logger.Warn("conversation log failed", "session", sessionID, "error", err)
	}
}
