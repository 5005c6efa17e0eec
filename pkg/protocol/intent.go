package protocol

// Intent is the discourse purpose detected for a user message, drawn from a
// closed set. Adding a new intent means adding a constant here and a case to
// every switch over Intent — the compiler surfaces the spots to update.
type Intent string

const (
	// Flow intents — the assistant's previous prompt determines these,
	// regardless of the message's own keywords.
	IntentSupportFlowName    Intent = "support_flow_name"
	IntentSupportFlowEmail   Intent = "support_flow_email"
	IntentSupportFlowPlan    Intent = "support_flow_plan"
	IntentSupportFlowProblem Intent = "support_flow_problem"

	// Keyword intents.
	IntentCreateSupportTicket Intent = "create_support_ticket"
	IntentGuideAgentCreation  Intent = "guide_agent_creation"
	IntentTroubleshootAgent   Intent = "troubleshoot_agent"
	IntentPlanInfo            Intent = "plan_info"
	IntentLoginHelp           Intent = "login_help"

	// Fallback when nothing else matches. Classification is total: every
	// message resolves to some intent, never an error.
	IntentGeneralQuestion Intent = "general_question"
)

// Intents lists every member of the closed intent set.
var Intents = []Intent{
	IntentSupportFlowName,
	IntentSupportFlowEmail,
	IntentSupportFlowPlan,
	IntentSupportFlowProblem,
	IntentCreateSupportTicket,
	IntentGuideAgentCreation,
	IntentTroubleshootAgent,
	IntentPlanInfo,
	IntentLoginHelp,
	IntentGeneralQuestion,
}

// Entities are the structured values pulled out of a single free-text
// message. Any subset may be present; an empty string means absent.
type Entities struct {
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Problem string `json:"problem,omitempty"`
	Plan    string `json:"plan,omitempty"`
}
