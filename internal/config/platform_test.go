package config

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
)

const platformConfigJSON = `{
  "bot": {
    "name": "hosted-bot",
    "data_dir": "/ignored"
  },
  "connectors": {
    "webhook": {
      "secret": "remote-secret"
    }
  },
  "api": {
    "host": "0.0.0.0",
    "port": 8080
  }
}`

func TestLoadFromPlatform(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/bots/config" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if r.Header.Get("X-Bot-ID") != "bot-123" {
			http.Error(w, "missing bot id", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(platformConfigJSON))
	}))
	defer srv.Close()

	dataDir := t.TempDir() + "/data"
	cfg, err := LoadFromPlatform(PlatformOptions{
		PlatformURL: srv.URL,
		BotID:       "bot-123",
		APIKey:      "test-key",
		DataDir:     dataDir,
	})
	if err != nil {
		t.Fatalf("LoadFromPlatform: %v", err)
	}

	if cfg.Bot.Name != "hosted-bot" {
		t.Errorf("bot.name = %q", cfg.Bot.Name)
	}
	if cfg.Bot.DataDir != dataDir {
		t.Errorf("data_dir should be overridden to %q, got %q", dataDir, cfg.Bot.DataDir)
	}
	if cfg.Connectors.Webhook == nil || cfg.Connectors.Webhook.Secret != "remote-secret" {
		t.Errorf("webhook = %+v", cfg.Connectors.Webhook)
	}
	if _, err := os.Stat(dataDir); err != nil {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestLoadFromPlatform_Unauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := LoadFromPlatform(PlatformOptions{
		PlatformURL: srv.URL,
		BotID:       "x",
		APIKey:      "wrong",
		DataDir:     t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for unauthorized")
	}
}

func TestLoadFromPlatform_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer srv.Close()

	_, err := LoadFromPlatform(PlatformOptions{
		PlatformURL: srv.URL,
		BotID:       "x",
		APIKey:      "k",
		DataDir:     t.TempDir(),
	})
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
