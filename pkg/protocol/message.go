package protocol

// Role identifies who produced a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single turn of a conversation. Messages are immutable once
// produced; an ordered slice of them forms the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
