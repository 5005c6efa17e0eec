// Package session tracks server-side conversation state for channels that
// cannot round-trip it themselves (Telegram, Slack, webhook chats). The
// HTTP chat API is stateless; connectors go through a Manager instead.
package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/autobot-io/autobot/pkg/protocol"
)

const (
	// DefaultTTL is how long an idle session survives before the sweeper
	// removes it.
	DefaultTTL = 30 * time.Minute
	// DefaultMaxHistory bounds the messages kept per session. Only the
	// last assistant message matters for flow detection, so the bound is
	// about memory, not correctness.
	DefaultMaxHistory = 40
)

// Session is one live conversation on an external channel.
type Session struct {
	ID         string
	Channel    string
	ChatID     string
	History    []protocol.Message
	Draft      protocol.TicketDraft
	LastActive time.Time
}

// Manager tracks sessions keyed by channel and chat ID. Safe for
// concurrent use.
type Manager struct {
	ttl        time.Duration
	maxHistory int
	logger     *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. Zero ttl and maxHistory take the defaults.
func NewManager(ttl time.Duration, maxHistory int, logger *slog.Logger) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		ttl:        ttl,
		maxHistory: maxHistory,
		logger:     logger.With("component", "session"),
		sessions:   make(map[string]*Session),
	}
}

func key(channel, chatID string) string { return channel + ":" + chatID }

// Snapshot returns a copy of the session's conversation state, creating
// the session if it does not exist. The copy can be read without holding
// any lock.
func (m *Manager) Snapshot(channel, chatID string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key(channel, chatID)]
	if !ok {
		s = &Session{
			ID:      uuid.NewString(),
			Channel: channel,
			ChatID:  chatID,
		}
		m.sessions[key(channel, chatID)] = s
		m.logger.Info("session created", "session", s.ID, "channel", channel, "chat_id", chatID)
	}
	s.LastActive = time.Now()

	copied := *s
	copied.History = append([]protocol.Message(nil), s.History...)
	return copied
}

// Commit records a completed turn: the user's message, the reply, and the
// draft to carry forward. History is trimmed from the front when it
// exceeds the bound.
func (m *Manager) Commit(channel, chatID, userMessage, reply string, draft protocol.TicketDraft) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[key(channel, chatID)]
	if !ok {
		return
	}
	s.History = append(s.History,
		protocol.Message{Role: protocol.RoleUser, Content: userMessage},
		protocol.Message{Role: protocol.RoleAssistant, Content: reply},
	)
	if n := len(s.History); n > m.maxHistory {
		s.History = append([]protocol.Message(nil), s.History[n-m.maxHistory:]...)
	}
	s.Draft = draft
	s.LastActive = time.Now()
}

// Reset removes a session so the next message starts a fresh conversation.
func (m *Manager) Reset(channel, chatID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, key(channel, chatID))
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep removes sessions idle longer than the TTL and returns how many
// were removed. Meant to run on a schedule.
func (m *Manager) Sweep() int {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for k, s := range m.sessions {
		if s.LastActive.Before(cutoff) {
			delete(m.sessions, k)
			removed++
		}
	}
	if removed > 0 {
		m.logger.Info("sessions swept", "removed", removed, "remaining", len(m.sessions))
	}
	return removed
}
