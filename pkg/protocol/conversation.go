package protocol

import "time"

// Conversation is one logged chat exchange: the user's message and the
// reply it produced, tagged with the detected intent for later analysis.
type Conversation struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Channel     string    `json:"channel"`
	UserMessage string    `json:"user_message"`
	BotReply    string    `json:"bot_reply"`
	Intent      Intent    `json:"intent"`
	CreatedAt   time.Time `json:"created_at"`
}
