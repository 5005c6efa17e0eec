package engine

import (
	"fmt"
	"strings"

	"github.com/autobot-io/autobot/pkg/protocol"
)

// The collection prompts and the substrings the classifier keys on. Both
// sides of the dialogue state machine live in this file so the prompt
// wording and its detection can never drift apart: every template that asks
// for a field embeds the corresponding detect* constant verbatim.
const (
	detectAskName    = "What is your name?"
	detectAskEmail   = "What is your email address?"
	detectAskPlan    = "Which plan are you currently using?"
	detectAskProblem = "describe your problem"
)

// Respond maps an intent plus this turn's data to a reply string. Pure
// mapping — the only branching beyond the intent switch is the
// ticket-readiness check on the merged draft. Replies use simple Markdown
// the presentation layer interprets.
func Respond(intent protocol.Intent, entities protocol.Entities, draft protocol.TicketDraft) string {
	switch intent {
	case protocol.IntentSupportFlowName:
		return fmt.Sprintf("Nice to meet you, %s!\n\n%s", strings.TrimSpace(entities.Name), detectAskEmail)

	case protocol.IntentSupportFlowEmail:
		return fmt.Sprintf("Got it! Email: %s\n\n%s\n- Basic (Free)\n- Medium ($29/month)\n- Premium ($99/month)",
			strings.TrimSpace(entities.Email), detectAskPlan)

	case protocol.IntentSupportFlowPlan:
		return fmt.Sprintf("Perfect! You're on the **%s** plan.\n\nNow, please %s or issue in detail:",
			strings.TrimSpace(entities.Plan), detectAskProblem)

	case protocol.IntentSupportFlowProblem:
		return "Thank you for the details!\n\n**Creating your support ticket...**\n\nPlease wait a moment..."

	case protocol.IntentCreateSupportTicket:
		switch {
		case draft.Complete():
			return fmt.Sprintf("I'll help you create a support ticket!\n\n**Details I captured:**\n- Name: %s\n- Email: %s\n- Problem: %s\n\nI'm creating your support ticket now...",
				draft.Name, draft.Email, draft.Problem)
		case draft.Name != "" && draft.Email != "":
			return fmt.Sprintf("Great! I have your details:\n- Name: %s\n- Email: %s\n\nNow, please %s or issue in detail:",
				draft.Name, draft.Email, detectAskProblem)
		default:
			return fmt.Sprintf("I'll help you submit a support ticket!\n\nLet's start:\n\n**%s**", detectAskName)
		}

	case protocol.IntentGuideAgentCreation:
		return strings.Join([]string{
			"**How to Create an AI Agent:**",
			"",
			"1. **Login** to your dashboard",
			"2. Click **\"Create New Agent\"**",
			"3. Fill in the details: name, description, and tone",
			"4. Click **\"Create Agent\"**",
			"5. Copy the **embed code** and place it on your website",
			"",
			"Tip: make sure you haven't reached your plan limit.",
			"",
			"Need help with anything else?",
		}, "\n")

	case protocol.IntentTroubleshootAgent:
		return strings.Join([]string{
			"**Agent Troubleshooting:**",
			"",
			"1. **Check agent status** — Dashboard → Your Agents, make sure it is \"Active\"",
			"2. **Verify the embed code** — copy the latest code and check its placement",
			"3. **Check plan limits** — Basic: 1 agent / 1,000 msgs, Medium: 5 agents / 10,000 msgs, Premium: unlimited",
			"4. **Clear your browser cache** — hard refresh with Ctrl+Shift+R",
			"",
			"Still stuck? I can open a support ticket for you — just tell me your email, name, and the specific issue.",
		}, "\n")

	case protocol.IntentPlanInfo:
		return strings.Join([]string{
			"**AutoBot Studio Plans:**",
			"",
			"**Basic** (Free)",
			"- 1 agent, 1,000 messages/month",
			"- Basic customization, email support",
			"",
			"**Medium** ($29/month)",
			"- 5 agents, 10,000 messages/month",
			"- Advanced customization, priority support, knowledge base integration",
			"",
			"**Premium** ($99/month)",
			"- Unlimited agents and messages",
			"- Full customization, 24/7 support, webhooks, white-label, API access",
			"",
			"Ready to upgrade? Go to Dashboard → Pricing.",
		}, "\n")

	case protocol.IntentLoginHelp:
		return strings.Join([]string{
			"**Login Help:**",
			"",
			"**Forgot your password?** Use \"Forgot Password\" on the login page and check your inbox for the reset link.",
			"**Can't sign in?** Check the address for typos, make sure caps lock is off, and try clearing cookies.",
			"**New user?** Click \"Sign Up\" to create an account.",
			"",
			"Still locked out? I can open a support ticket — just give me your email, name, and the specific issue.",
		}, "\n")

	default: // IntentGeneralQuestion and anything unrecognized
		return strings.Join([]string{
			"**Welcome to AutoBot Studio!**",
			"",
			"I can help you with:",
			"- **Creating agents** — step-by-step guidance",
			"- **Plans & pricing** — what each subscription includes",
			"- **Troubleshooting** — fixing agent issues",
			"- **Support tickets** — submitting a request to our team",
			"- **Account help** — login and access issues",
			"",
			"Try \"create an agent\", \"plan info\", or \"I have a problem\".",
		}, "\n")
	}
}

// successReply announces a finalized ticket.
func successReply(t *protocol.Ticket) string {
	return fmt.Sprintf(strings.Join([]string{
		"**Support Ticket Created Successfully!**",
		"",
		"**Ticket details:**",
		"- Ticket ID: #%s",
		"- Name: %s",
		"- Email: %s",
		"- Plan: %s",
		"- Status: Open",
		"- Priority: Medium",
		"",
		"Our support team will review your ticket and respond within 24 hours to **%s**.",
		"You can track its status in the Support section of your dashboard.",
		"",
		"Is there anything else I can help you with?",
	}, "\n"), t.ID, t.Name, t.Email, t.Plan, t.Email)
}

// failureReply is substituted when the store rejects a finalization. The
// draft is kept so the user can retry; the fallback address gives them a
// manual path.
func failureReply(contact string) string {
	return fmt.Sprintf("There was an issue creating your ticket. Please try again in a moment, or submit it manually from the support page.\n\nYou can also reach us directly at **%s**.", contact)
}
