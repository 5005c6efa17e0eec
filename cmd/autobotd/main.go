package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	apiPkg "github.com/autobot-io/autobot/internal/api"
	"github.com/autobot-io/autobot/internal/chat"
	"github.com/autobot-io/autobot/internal/config"
	"github.com/autobot-io/autobot/internal/connector"
	slackconn "github.com/autobot-io/autobot/internal/connector/slack"
	"github.com/autobot-io/autobot/internal/connector/telegram"
	"github.com/autobot-io/autobot/internal/connector/webhook"
	"github.com/autobot-io/autobot/internal/engine"
	"github.com/autobot-io/autobot/internal/knowledge"
	"github.com/autobot-io/autobot/internal/logbuf"
	"github.com/autobot-io/autobot/internal/metrics"
	"github.com/autobot-io/autobot/internal/scheduler"
	"github.com/autobot-io/autobot/internal/session"
	"github.com/autobot-io/autobot/internal/ticket"
	"github.com/autobot-io/autobot/pkg/protocol"
)

func main() {
	_ = godotenv.Load()

	configPath := flag.String("config", "", "Path to config JSON file")
	platformURL := flag.String("platform-url", os.Getenv("AUTOBOT_PLATFORM_URL"), "AutoBot Studio dashboard URL")
	botID := flag.String("bot-id", os.Getenv("AUTOBOT_BOT_ID"), "Bot ID for platform mode")
	platformKey := flag.String("platform-key", os.Getenv("AUTOBOT_PLATFORM_KEY"), "API key for platform auth")
	verbose := flag.Bool("v", false, "Verbose logging")
	flag.Parse()

	// Load config (3 modes: file, platform, env)
	var cfg *config.Config
	var err error
	switch {
	case *configPath != "":
		cfg, err = config.Load(*configPath)
	case *platformURL != "":
		cfg, err = config.LoadFromPlatform(config.PlatformOptions{
			PlatformURL: *platformURL,
			BotID:       *botID,
			APIKey:      *platformKey,
		})
	default:
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Set up logging
	logLevel := logbuf.ParseLevel(strings.ToUpper(cfg.Bot.LogLevel))
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logBuf := logbuf.New(2000)
	jsonHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger := slog.New(logbuf.NewHandler(jsonHandler, logBuf))

	logger.Info("autobotd starting", "bot", cfg.Bot.Name)

	// 1. Ticket store
	os.MkdirAll(cfg.Bot.DataDir, 0o755)
	dbPath := cfg.Bot.DataDir + "/autobot.db"
	store, err := ticket.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Error("failed to open ticket store", "path", dbPath, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Engine, sessions, chat service
	m := metrics.New()

	engOpts := []engine.Option{engine.WithMetrics(m)}
	if cfg.Bot.FallbackContact != "" {
		engOpts = append(engOpts, engine.WithFallbackContact(cfg.Bot.FallbackContact))
	}
	eng := engine.New(store, logger, engOpts...)

	ttl := time.Duration(cfg.Bot.SessionTTLMin) * time.Minute
	sessions := session.NewManager(ttl, cfg.Bot.MaxHistory, logger)

	svc := chat.NewService(eng, sessions, store, m, logger)

	// 3. Knowledge base
	kb := knowledge.NewBase(logger)
	for _, url := range cfg.Knowledge.Articles {
		ingestCtx, ingestCancel := context.WithTimeout(ctx, 30*time.Second)
		art, err := kb.IngestURL(ingestCtx, url)
		ingestCancel()
		if err != nil {
			logger.Warn("failed to ingest article", "url", url, "error", err)
			continue
		}
		logger.Info("article ingested", "url", url, "title", art.Title)
	}

	// 4. Scheduler: periodic session sweep
	sched := scheduler.New(logger)
	if err := sched.AddJob("session-sweep", "@every 5m", func() {
		if n := sessions.Sweep(); n > 0 {
			logger.Info("swept idle sessions", "count", n)
		}
		m.ActiveSessions.Set(float64(sessions.Len()))
	}); err != nil {
		logger.Error("failed to schedule session sweep", "error", err)
		os.Exit(1)
	}
	if err := sched.AddJob("open-ticket-report", "0 9 * * *", func() {
		reportCtx, reportCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer reportCancel()
		status := protocol.TicketOpen
		n, err := store.Count(reportCtx, ticket.Filter{Status: &status})
		if err != nil {
			logger.Warn("open ticket report failed", "error", err)
			return
		}
		logger.Info("open ticket report", "open_tickets", n)
	}); err != nil {
		logger.Error("failed to schedule ticket report", "error", err)
		os.Exit(1)
	}
	go safeGo(logger, "scheduler", func() { sched.Start(ctx) })

	// 5. Connectors
	var connectors []connector.Connector
	if cfg.Connectors.Telegram != nil {
		tg, err := telegram.New(telegram.Config{
			Token:     cfg.Connectors.Telegram.Token,
			AllowFrom: cfg.Connectors.Telegram.AllowFrom,
		}, svc, logger)
		if err != nil {
			logger.Error("failed to init telegram connector", "error", err)
			os.Exit(1)
		}
		connectors = append(connectors, tg)
	}
	if cfg.Connectors.Slack != nil {
		sl, err := slackconn.New(slackconn.Config{
			BotToken: cfg.Connectors.Slack.BotToken,
			AppToken: cfg.Connectors.Slack.AppToken,
		}, svc, logger)
		if err != nil {
			logger.Error("failed to init slack connector", "error", err)
			os.Exit(1)
		}
		connectors = append(connectors, sl)
	}
	for _, c := range connectors {
		c := c
		go safeGo(logger, c.Name(), func() {
			if err := c.Start(ctx); err != nil && ctx.Err() == nil {
				logger.Error("connector stopped", "connector", c.Name(), "error", err)
			}
		})
		logger.Info("connector started", "connector", c.Name())
	}

	// 6. API server
	apiOpts := []apiPkg.Option{
		apiPkg.WithLogs(logBuf),
		apiPkg.WithMetricsHandler(m.Handler()),
	}
	if cfg.Connectors.Webhook != nil {
		wh := webhook.New(webhook.Config{Secret: cfg.Connectors.Webhook.Secret}, svc, logger)
		apiOpts = append(apiOpts, apiPkg.WithWebhook(wh))
	}
	apiSrv := apiPkg.NewServer(svc, store, kb, apiPkg.Config{
		Host: cfg.API.Host,
		Port: cfg.API.Port,
		Key:  cfg.API.Key,
	}, logger, apiOpts...)

	go safeGo(logger, "api-server", func() { apiSrv.Start(ctx) })
	logger.Info("api server started", "port", cfg.API.Port)

	// 7. Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", "signal", sig)
	cancel()

	for _, c := range connectors {
		if err := c.Stop(); err != nil {
			logger.Warn("connector stop failed", "connector", c.Name(), "error", err)
		}
	}
	logger.Info("autobotd stopped")
}

// safeGo runs fn with panic recovery.
func safeGo(logger *slog.Logger, name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("goroutine panicked", "name", name, "panic", fmt.Sprintf("%v", r))
		}
	}()
	fn()
}
