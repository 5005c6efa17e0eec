package protocol

import "time"

// TicketStatus represents the lifecycle state of a support ticket.
type TicketStatus string

const (
	TicketOpen       TicketStatus = "open"
	TicketInProgress TicketStatus = "in_progress"
	TicketResolved   TicketStatus = "resolved"
	TicketClosed     TicketStatus = "closed"
)

// TicketPriority represents how urgently a ticket should be handled.
type TicketPriority string

const (
	PriorityLow    TicketPriority = "low"
	PriorityMedium TicketPriority = "medium"
	PriorityHigh   TicketPriority = "high"
)

// TicketDraft is the accumulating state of an in-progress ticket-collection
// dialogue. The caller holds it and round-trips it every turn; the engine is
// otherwise stateless between invocations. A draft is complete when Name,
// Email and Problem are all non-empty — Plan is optional and defaults when
// the ticket is finalized.
type TicketDraft struct {
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Plan    string `json:"plan,omitempty"`
	Problem string `json:"problem,omitempty"`
}

// Complete reports whether the draft has everything a ticket needs.
func (d TicketDraft) Complete() bool {
	return d.Name != "" && d.Email != "" && d.Problem != ""
}

// Empty reports whether no field is set.
func (d TicketDraft) Empty() bool {
	return d == TicketDraft{}
}

// Ticket is a finalized support ticket. Created exactly once when a draft
// becomes complete, persisted by the store, and never mutated by the engine
// again.
type Ticket struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Plan      string         `json:"plan"`
	Subject   string         `json:"subject"`
	Message   string         `json:"message"`
	Status    TicketStatus   `json:"status"`
	Priority  TicketPriority `json:"priority"`
	CreatedAt time.Time      `json:"created_at"`
}

// ActionTicketCreated is the only action type the engine emits.
const ActionTicketCreated = "ticket_created"

// Action describes a side effect the engine performed this turn. Nil on
// turns without one.
type Action struct {
	Type       string      `json:"type"`
	TicketID   string      `json:"ticket_id"`
	TicketData TicketDraft `json:"ticket_data"`
}
