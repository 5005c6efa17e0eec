package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the top-level autobot configuration.
type Config struct {
	Bot        BotConfig       `json:"bot"`
	Connectors ConnectorConfig `json:"connectors"`
	Knowledge  KnowledgeConfig `json:"knowledge"`
	API        APIConfig       `json:"api"`
}

// BotConfig holds bot-level settings.
type BotConfig struct {
	Name            string `json:"name"`
	DataDir         string `json:"data_dir"`
	FallbackContact string `json:"fallback_contact,omitempty"`
	SessionTTLMin   int    `json:"session_ttl_minutes,omitempty"` // default 30
	MaxHistory      int    `json:"max_history,omitempty"`         // messages per session, default 40
	LogLevel        string `json:"log_level,omitempty"`           // debug, info, warn, error
}

// ConnectorConfig holds settings for external chat connectors.
type ConnectorConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty"`
	Webhook  *WebhookConfig  `json:"webhook,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string  `json:"token"`
	AllowFrom []int64 `json:"allow_from,omitempty"`
}

// SlackConfig holds Slack Socket Mode settings.
type SlackConfig struct {
	AppToken string `json:"app_token"`
	BotToken string `json:"bot_token"`
}

// WebhookConfig holds settings for the embedded-widget webhook channel.
type WebhookConfig struct {
	Secret string `json:"secret,omitempty"` // HMAC signing secret; empty disables verification
}

// KnowledgeConfig lists help-center articles to ingest at startup.
type KnowledgeConfig struct {
	Articles []string `json:"articles,omitempty"` // URLs
}

// APIConfig holds REST API server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key"`
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from environment variables with the
// AUTOBOT_ prefix. Used when no config file is given.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Bot: BotConfig{
			Name:            getenv("AUTOBOT_BOT_NAME", "autobot"),
			DataDir:         getenv("AUTOBOT_DATA_DIR", "/data"),
			FallbackContact: os.Getenv("AUTOBOT_FALLBACK_CONTACT"),
			SessionTTLMin:   getenvInt("AUTOBOT_SESSION_TTL_MINUTES", 0),
			MaxHistory:      getenvInt("AUTOBOT_MAX_HISTORY", 0),
			LogLevel:        getenv("AUTOBOT_LOG_LEVEL", "info"),
		},
		API: APIConfig{
			Host: getenv("AUTOBOT_API_HOST", "0.0.0.0"),
			Port: getenvInt("AUTOBOT_API_PORT", 8080),
			Key:  os.Getenv("AUTOBOT_API_KEY"),
		},
	}

	if token := os.Getenv("AUTOBOT_TELEGRAM_TOKEN"); token != "" {
		cfg.Connectors.Telegram = &TelegramConfig{Token: token}
		if ids := os.Getenv("AUTOBOT_TELEGRAM_ALLOW_FROM"); ids != "" {
			parsed, err := parseInt64List(ids)
			if err != nil {
				return nil, fmt.Errorf("config: AUTOBOT_TELEGRAM_ALLOW_FROM: %w", err)
			}
			cfg.Connectors.Telegram.AllowFrom = parsed
		}
	}

	if appToken := os.Getenv("AUTOBOT_SLACK_APP_TOKEN"); appToken != "" {
		cfg.Connectors.Slack = &SlackConfig{
			AppToken: appToken,
			BotToken: os.Getenv("AUTOBOT_SLACK_BOT_TOKEN"),
		}
	}

	if secret, ok := os.LookupEnv("AUTOBOT_WEBHOOK_SECRET"); ok {
		cfg.Connectors.Webhook = &WebhookConfig{Secret: secret}
	}

	if urls := os.Getenv("AUTOBOT_KNOWLEDGE_ARTICLES"); urls != "" {
		for _, u := range strings.Split(urls, ",") {
			if u = strings.TrimSpace(u); u != "" {
				cfg.Knowledge.Articles = append(cfg.Knowledge.Articles, u)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for required fields.
func (c *Config) Validate() error {
	var errs []string

	if c.Bot.Name == "" {
		errs = append(errs, "bot.name is required")
	}
	if c.Bot.DataDir == "" {
		errs = append(errs, "bot.data_dir is required")
	}
	switch c.Bot.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("bot.log_level %q is not one of debug, info, warn, error", c.Bot.LogLevel))
	}

	if c.Connectors.Telegram != nil && c.Connectors.Telegram.Token == "" {
		errs = append(errs, "connectors.telegram.token is required")
	}
	if c.Connectors.Slack != nil {
		if c.Connectors.Slack.AppToken == "" {
			errs = append(errs, "connectors.slack.app_token is required")
		}
		if c.Connectors.Slack.BotToken == "" {
			errs = append(errs, "connectors.slack.bot_token is required")
		}
	}

	for i, u := range c.Knowledge.Articles {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			errs = append(errs, fmt.Sprintf("knowledge.articles[%d] %q is not an http(s) URL", i, u))
		}
	}

	if c.API.Port < 0 || c.API.Port > 65535 {
		errs = append(errs, fmt.Sprintf("api.port %d is out of range", c.API.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseInt64List(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	result := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		result = append(result, n)
	}
	return result, nil
}
