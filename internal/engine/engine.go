// Package engine implements the conversational intent and ticket-flow
// engine behind the in-app support chatbot. The engine is a pure function
// of (message, history, draft): all conversation memory is supplied by the
// caller on every call and returned for the caller to resubmit next turn,
// so any instance can serve any turn of any conversation. The one side
// effect — persisting a finalized ticket — goes through the TicketCreator
// collaborator.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/autobot-io/autobot/internal/metrics"
	"github.com/autobot-io/autobot/pkg/protocol"
)

// DefaultFallbackContact is offered to users when ticket persistence fails.
const DefaultFallbackContact = "support@autobotstudio.io"

// ErrEmptyMessage is returned when a turn carries no message text.
var ErrEmptyMessage = errors.New("engine: message is required")

// TicketCreator persists finalized tickets. Failures are recovered inside
// the engine: the user gets an apologetic reply and the draft survives for
// a retry.
type TicketCreator interface {
	Create(ctx context.Context, t *protocol.Ticket) error
}

// TurnRequest is one inbound turn: the new message plus the caller-held
// conversation state.
type TurnRequest struct {
	Message string               `json:"message"`
	History []protocol.Message   `json:"history"`
	Draft   protocol.TicketDraft `json:"draft"`
}

// TurnResponse is everything a turn produces. Draft must be round-tripped
// by the caller into the next TurnRequest.
type TurnResponse struct {
	Reply  string               `json:"reply"`
	Intent protocol.Intent      `json:"intent"`
	Action *protocol.Action     `json:"action,omitempty"`
	Draft  protocol.TicketDraft `json:"draft"`
}

// Engine processes chat turns. Safe for concurrent use: it holds no
// per-conversation state.
type Engine struct {
	tickets         TicketCreator
	metrics         *metrics.Metrics
	logger          *slog.Logger
	fallbackContact string
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics attaches Prometheus instruments to the engine.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithFallbackContact overrides the support address offered when ticket
// persistence fails.
func WithFallbackContact(contact string) Option {
	return func(e *Engine) { e.fallbackContact = contact }
}

// New creates an Engine. tickets must not be nil.
func New(tickets TicketCreator, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		tickets:         tickets,
		logger:          logger.With("component", "engine"),
		fallbackContact: DefaultFallbackContact,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessTurn handles one message synchronously and returns the reply, the
// detected intent, an optional action descriptor, and the updated draft.
// The only error it returns is ErrEmptyMessage; everything else degrades to
// informational reply text.
func (e *Engine) ProcessTurn(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	intent, entities := Classify(req.Message, req.History)
	draft := mergeDraft(intent, entities, req.Draft)
	reply := Respond(intent, entities, draft)

	var action *protocol.Action
	if draftReady(intent, draft) {
		ticket := finalizeTicket(draft)
		if err := e.tickets.Create(ctx, ticket); err != nil {
			e.logger.Error("ticket creation failed", "ticket", ticket.ID, "error", err)
			reply = failureReply(e.fallbackContact)
			if e.metrics != nil {
				e.metrics.TicketFailures.Inc()
			}
		} else {
			e.logger.Info("ticket created", "ticket", ticket.ID, "plan", ticket.Plan)
			reply = successReply(ticket)
			action = &protocol.Action{
				Type:       protocol.ActionTicketCreated,
				TicketID:   ticket.ID,
				TicketData: draft,
			}
			// A fresh flow must not inherit stale fields.
			draft = protocol.TicketDraft{}
			if e.metrics != nil {
				e.metrics.TicketsCreated.Inc()
			}
		}
	}

	if e.metrics != nil {
		e.metrics.Turns.WithLabelValues(string(intent)).Inc()
	}
	e.logger.Debug("turn processed", "intent", intent, "action", action != nil)

	return &TurnResponse{
		Reply:  reply,
		Intent: intent,
		Action: action,
		Draft:  draft,
	}, nil
}
