package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/autobot-io/autobot/pkg/protocol"
)

// mergeDraft applies this turn's entity deltas to the carried draft and
// returns the result. Flow intents overwrite their single field with the
// user's (trimmed) answer; the general support intent merges whatever the
// extractor found without blanking fields that are already set.
func mergeDraft(intent protocol.Intent, entities protocol.Entities, draft protocol.TicketDraft) protocol.TicketDraft {
	switch intent {
	case protocol.IntentSupportFlowName:
		draft.Name = strings.TrimSpace(entities.Name)
	case protocol.IntentSupportFlowEmail:
		draft.Email = strings.TrimSpace(entities.Email)
	case protocol.IntentSupportFlowPlan:
		draft.Plan = strings.TrimSpace(entities.Plan)
	case protocol.IntentSupportFlowProblem:
		draft.Problem = strings.TrimSpace(entities.Problem)
	case protocol.IntentCreateSupportTicket:
		if entities.Name != "" {
			draft.Name = entities.Name
		}
		if entities.Email != "" {
			draft.Email = entities.Email
		}
		if entities.Problem != "" {
			draft.Problem = entities.Problem
		}
	}
	return draft
}

// draftReady reports whether this turn should finalize a ticket. Readiness
// is only checked on the two intents that can legitimately end a collection
// flow — checking it on intermediate turns would create tickets mid-flow.
func draftReady(intent protocol.Intent, draft protocol.TicketDraft) bool {
	switch intent {
	case protocol.IntentSupportFlowProblem, protocol.IntentCreateSupportTicket:
		return draft.Complete()
	}
	return false
}

// finalizeTicket builds the Ticket a complete draft becomes. The plan is
// normalized to lower case and defaults to "basic" when the user never
// named one.
func finalizeTicket(draft protocol.TicketDraft) *protocol.Ticket {
	plan := strings.ToLower(strings.TrimSpace(draft.Plan))
	if plan == "" {
		plan = "basic"
	}
	subjectPlan := draft.Plan
	if subjectPlan == "" {
		subjectPlan = "General"
	}
	return &protocol.Ticket{
		ID:        newTicketID(),
		Name:      draft.Name,
		Email:     draft.Email,
		Plan:      plan,
		Subject:   fmt.Sprintf("Support Request - %s Plan", subjectPlan),
		Message:   draft.Problem,
		Status:    protocol.TicketOpen,
		Priority:  protocol.PriorityMedium,
		CreatedAt: time.Now(),
	}
}

// newTicketID generates a unique, human-referenceable ticket identifier:
// millisecond timestamp plus a short random suffix.
func newTicketID() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("TKT-%d-%s", time.Now().UnixMilli(), suffix)
}
