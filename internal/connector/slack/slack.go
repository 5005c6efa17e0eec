// Package slackconn runs the support chatbot in Slack via Socket Mode.
package slackconn

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/autobot-io/autobot/internal/connector"
)

// Config holds Slack connector configuration.
type Config struct {
	BotToken string   // xoxb-... Bot User OAuth Token
	AppToken string   // xapp-... App-Level Token (for Socket Mode)
	Channels []string // Optional: only respond in these channels (empty = all)
}

// Connector implements connector.Connector for Slack via Socket Mode.
type Connector struct {
	api     *slack.Client
	socket  *socketmode.Client
	config  Config
	handler connector.Handler
	logger  *slog.Logger
	cancel  context.CancelFunc
	botID   string
}

// New creates a Slack connector.
func New(cfg Config, handler connector.Handler, logger *slog.Logger) (*Connector, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("slack: bot_token is required")
	}
	if cfg.AppToken == "" {
		return nil, fmt.Errorf("slack: app_token is required (Socket Mode)")
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "slack")

	api := slack.New(cfg.BotToken, slack.OptionAppLevelToken(cfg.AppToken))

	authResp, err := api.AuthTest()
	if err != nil {
		return nil, fmt.Errorf("slack: auth test: %w", err)
	}
	logger.Info("slack bot authorized", "user", authResp.User, "team", authResp.Team)

	return &Connector{
		api:     api,
		socket:  socketmode.New(api),
		config:  cfg,
		handler: handler,
		logger:  logger,
		botID:   authResp.UserID,
	}, nil
}

func (c *Connector) Name() string { return "slack" }

// Start begins listening for events via Socket Mode. Blocks until context
// is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	go c.handleEvents(ctx)

	c.logger.Info("slack connector started (socket mode)")
	return c.socket.RunContext(ctx)
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *Connector) handleEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-c.socket.Events:
			switch event.Type {
			case socketmode.EventTypeEventsAPI:
				c.handleEventsAPI(ctx, event)
			case socketmode.EventTypeSlashCommand:
				c.handleSlashCommand(ctx, event)
			}
		}
	}
}

func (c *Connector) handleEventsAPI(ctx context.Context, event socketmode.Event) {
	eventsAPIEvent, ok := event.Data.(slackevents.EventsAPIEvent)
	if !ok {
		return
	}

	c.socket.Ack(*event.Request)

	switch ev := eventsAPIEvent.InnerEvent.Data.(type) {
	case *slackevents.MessageEvent:
		c.handleMessage(ctx, ev)
	case *slackevents.AppMentionEvent:
		c.handleMention(ctx, ev)
	}
}

func (c *Connector) handleMessage(ctx context.Context, ev *slackevents.MessageEvent) {
	// Ignore bot messages (including our own)
	if ev.BotID != "" || ev.User == "" || ev.User == c.botID {
		return
	}
	// Ignore message subtypes (edits, deletes, etc.)
	if ev.SubType != "" {
		return
	}
	if !c.isAllowedChannel(ev.Channel) {
		return
	}
	if ev.Text == "" {
		return
	}

	c.respond(ctx, ev.Channel, ev.ThreadTimeStamp, ev.Text)
}

func (c *Connector) handleMention(ctx context.Context, ev *slackevents.AppMentionEvent) {
	if ev.User == c.botID {
		return
	}

	text := StripMention(ev.Text, c.botID)
	if text == "" {
		return
	}

	c.respond(ctx, ev.Channel, ev.ThreadTimeStamp, text)
}

func (c *Connector) handleSlashCommand(ctx context.Context, event socketmode.Event) {
	cmd, ok := event.Data.(slack.SlashCommand)
	if !ok {
		return
	}

	c.socket.Ack(*event.Request)

	if strings.TrimSpace(cmd.Text) == "reset" {
		c.handler.Reset(c.Name(), chatKey(cmd.ChannelID, ""))
		c.post(cmd.ChannelID, "", "Started a new conversation. How can I help?")
		return
	}

	text := cmd.Text
	if text == "" {
		text = "hello"
	}
	c.respond(ctx, cmd.ChannelID, "", text)
}

// respond runs one turn through the chat handler and posts the reply,
// staying in the thread when the message came from one.
func (c *Connector) respond(ctx context.Context, channel, threadTS, text string) {
	reply, err := c.handler.HandleMessage(ctx, c.Name(), chatKey(channel, threadTS), text)
	if err != nil {
		c.logger.Error("message handling failed", "channel", channel, "error", err)
		return
	}
	if err := c.post(channel, threadTS, reply); err != nil {
		c.logger.Error("send failed", "channel", channel, "error", err)
	}
}

func (c *Connector) post(channel, threadTS, content string) error {
	opts := []slack.MsgOption{
		slack.MsgOptionText(MarkdownToMrkdwn(content), false),
	}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, _, err := c.api.PostMessage(channel, opts...)
	if err != nil {
		return fmt.Errorf("slack: send message: %w", err)
	}
	return nil
}

// chatKey groups thread replies into one conversation; channel-level
// messages share the channel conversation.
func chatKey(channel, threadTS string) string {
	if threadTS != "" {
		return channel + ":" + threadTS
	}
	return channel
}

func (c *Connector) isAllowedChannel(channel string) bool {
	if len(c.config.Channels) == 0 {
		return true
	}
	for _, ch := range c.config.Channels {
		if ch == channel {
			return true
		}
	}
	return false
}

// StripMention removes the <@BOTID> mention from message text.
func StripMention(text, botID string) string {
	mention := fmt.Sprintf("<@%s>", botID)
	text = strings.Replace(text, mention, "", 1)
	return strings.TrimSpace(text)
}
