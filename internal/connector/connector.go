// Package connector defines the contract between the chat service and the
// external messaging channels (Telegram, Slack, webhooks).
package connector

import "context"

// Handler processes inbound messages. The chat service implements it;
// connectors call it synchronously and deliver the returned reply.
type Handler interface {
	// HandleMessage processes one message and returns the reply text
	// (Markdown).
	HandleMessage(ctx context.Context, channel, chatID, text string) (string, error)
	// Reset drops the conversation for a chat so the next message starts
	// fresh.
	Reset(channel, chatID string)
}

// Connector is a long-running channel listener.
type Connector interface {
	// Name returns the channel name (e.g., "telegram", "slack").
	Name() string
	// Start begins listening for inbound messages. Blocks until the
	// context is cancelled.
	Start(ctx context.Context) error
	// Stop gracefully shuts down the connector.
	Stop() error
}
