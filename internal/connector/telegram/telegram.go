// Package telegram runs the support chatbot as a Telegram bot using
// long polling.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/autobot-io/autobot/internal/connector"
)

// Config holds Telegram connector configuration.
type Config struct {
	Token     string  // Bot token from @BotFather
	AllowFrom []int64 // Allowed Telegram user IDs (empty = allow all)
}

// Connector implements connector.Connector for Telegram.
type Connector struct {
	bot     *tgbotapi.BotAPI
	config  Config
	handler connector.Handler
	logger  *slog.Logger
	cancel  context.CancelFunc
}

// New creates a Telegram connector.
func New(cfg Config, handler connector.Handler, logger *slog.Logger) (*Connector, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram: init bot: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "telegram")
	logger.Info("telegram bot authorized", "username", bot.Self.UserName)

	return &Connector{
		bot:     bot,
		config:  cfg,
		handler: handler,
		logger:  logger,
	}, nil
}

func (c *Connector) Name() string { return "telegram" }

// Start begins long-polling for updates. Blocks until context is cancelled.
func (c *Connector) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := c.bot.GetUpdatesChan(u)

	c.logger.Info("telegram connector started", "bot", c.bot.Self.UserName)

	for {
		select {
		case update := <-updates:
			if update.Message == nil {
				continue
			}
			c.handleUpdate(ctx, update.Message)

		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("telegram connector stopped")
			return ctx.Err()
		}
	}
}

// Stop gracefully shuts down the connector.
func (c *Connector) Stop() error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *Connector) handleUpdate(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	// Access control
	if len(c.config.AllowFrom) > 0 && !allowed(c.config.AllowFrom, userID) {
		c.logger.Warn("unauthorized user", "user_id", userID, "username", msg.From.UserName)
		return
	}

	if msg.IsCommand() {
		c.handleCommand(ctx, msg)
		return
	}

	text := msg.Text
	if text == "" && msg.Caption != "" {
		text = msg.Caption
	}
	if text == "" {
		return
	}

	typing := tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)
	c.bot.Send(typing)

	reply, err := c.handler.HandleMessage(ctx, c.Name(), chatID, text)
	if err != nil {
		c.logger.Error("message handling failed", "chat_id", chatID, "error", err)
		return
	}
	if err := c.reply(msg.Chat.ID, reply); err != nil {
		c.logger.Error("send failed", "chat_id", chatID, "error", err)
	}
}

func (c *Connector) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	switch msg.Command() {
	case "start":
		reply, err := c.handler.HandleMessage(ctx, c.Name(), chatID, "hello")
		if err != nil {
			c.logger.Error("start command failed", "chat_id", chatID, "error", err)
			return
		}
		c.reply(msg.Chat.ID, reply)

	case "new":
		c.handler.Reset(c.Name(), chatID)
		c.reply(msg.Chat.ID, "Started a new conversation. How can I help?")

	case "help":
		help := strings.Join([]string{
			"Available commands:",
			"/start — Start the bot",
			"/new — Start a new conversation",
			"/help — Show this help message",
			"",
			"Just send me a message to chat!",
		}, "\n")
		c.reply(msg.Chat.ID, help)

	default:
		c.reply(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

// reply delivers Markdown text as Telegram HTML, falling back to plain
// text if Telegram rejects the markup.
func (c *Connector) reply(chatID int64, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}

	tgMsg := tgbotapi.NewMessage(chatID, MarkdownToTelegramHTML(content))
	tgMsg.ParseMode = "HTML"
	tgMsg.DisableWebPagePreview = true

	_, err := c.bot.Send(tgMsg)
	if err != nil {
		c.logger.Warn("HTML send failed, falling back to plain text", "chat_id", chatID, "error", err)
		tgMsg.Text = StripMarkdown(content)
		tgMsg.ParseMode = ""
		_, err = c.bot.Send(tgMsg)
	}
	return err
}

func allowed(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
