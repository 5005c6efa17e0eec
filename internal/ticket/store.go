package ticket

import (
	"context"
	"errors"

	"github.com/autobot-io/autobot/pkg/protocol"
)

// ErrNotFound is returned when a ticket ID does not exist.
var ErrNotFound = errors.New("ticket: not found")

// Store is the persistence interface for support tickets and the
// conversation log.
type Store interface {
	// Create inserts a new ticket. The ID must be unique.
	Create(ctx context.Context, t *protocol.Ticket) error
	// Get retrieves a ticket by ID. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*protocol.Ticket, error)
	// List returns tickets matching the filter, newest first.
	List(ctx context.Context, filter Filter) ([]*protocol.Ticket, error)
	// Count returns the number of tickets matching the filter.
	Count(ctx context.Context, filter Filter) (int, error)
	// UpdateStatus changes a ticket's status. Returns ErrNotFound for
	// unknown IDs.
	UpdateStatus(ctx context.Context, id string, status protocol.TicketStatus) error
	// LogConversation records one chat exchange.
	LogConversation(ctx context.Context, c *protocol.Conversation) error
	// ListConversations returns logged exchanges, newest first. An empty
	// sessionID matches all sessions.
	ListConversations(ctx context.Context, sessionID string, limit int) ([]*protocol.Conversation, error)
}

// Filter constrains ticket list queries.
type Filter struct {
	Status *protocol.TicketStatus
	Email  string // exact match
	Plan   string // exact match
	Query  string // text search on name, subject and message
	Limit  int    // 0 = no limit
}
