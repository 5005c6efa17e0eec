package engine

import (
	"strings"

	"github.com/autobot-io/autobot/pkg/protocol"
)

// Classify decides which intent applies to a message given the conversation
// so far, and returns the entities that go with it.
//
// Flow-state checks run first: if the assistant's last message was one of
// the collection prompts, the reply is routed to that flow step no matter
// what keywords it contains. This keeps a multi-turn collection dialogue
// "in flow" without any server-side state — the state is inferred from what
// the assistant last asked, which also makes classification idempotent
// across retried turns.
//
// Keyword intents are checked most-specific first, so a message about a
// broken agent lands on troubleshooting rather than the generic support
// intent even though it contains "problem" or "help".
func Classify(message string, history []protocol.Message) (protocol.Intent, protocol.Entities) {
	lastPrompt := lastAssistantMessage(history)

	switch {
	case strings.Contains(lastPrompt, detectAskName):
		// The whole message is the answer, but "My name is Priya" should
		// yield "Priya" — run the name patterns first, fall back to the
		// verbatim text.
		return protocol.IntentSupportFlowName, protocol.Entities{Name: refineName(message)}
	case strings.Contains(lastPrompt, detectAskEmail):
		return protocol.IntentSupportFlowEmail, protocol.Entities{Email: refineEmail(message)}
	case strings.Contains(lastPrompt, detectAskPlan):
		return protocol.IntentSupportFlowPlan, protocol.Entities{Plan: strings.TrimSpace(message)}
	case strings.Contains(lastPrompt, detectAskProblem):
		return protocol.IntentSupportFlowProblem, protocol.Entities{Problem: strings.TrimSpace(message)}
	}

	lower := strings.ToLower(message)
	agentish := containsAny(lower, "agent", "bot", "chatbot")

	switch {
	case strings.Contains(lower, "create") && agentish:
		return protocol.IntentGuideAgentCreation, protocol.Entities{}
	case agentish && containsAny(lower, "not working", "problem", "issue", "error"):
		return protocol.IntentTroubleshootAgent, protocol.Entities{}
	case containsAny(lower, "support", "ticket", "problem", "issue", "help", "form"):
		return protocol.IntentCreateSupportTicket, Extract(message)
	case containsAny(lower, "plan", "price", "pricing", "cost", "upgrade"):
		return protocol.IntentPlanInfo, protocol.Entities{}
	case containsAny(lower, "login", "signin", "password", "account"):
		return protocol.IntentLoginHelp, protocol.Entities{}
	}

	return protocol.IntentGeneralQuestion, protocol.Entities{}
}

// lastAssistantMessage returns the content of the most recent assistant
// message in the history, or "" if there is none.
func lastAssistantMessage(history []protocol.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == protocol.RoleAssistant {
			return history[i].Content
		}
	}
	return ""
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
