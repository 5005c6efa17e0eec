// Package knowledge holds the help-center articles the chatbot can
// surface alongside its canned answers. The base set ships built in;
// operators can ingest additional articles from help-center URLs.
package knowledge

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
	"github.com/google/uuid"
)

const (
	maxArticleSize = 50 * 1024 // 50KB extracted text
	fetchTimeout   = 30 * time.Second
)

// Article is one knowledge-base entry.
type Article struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	URL     string    `json:"url,omitempty"`
	Content string    `json:"content"`
	AddedAt time.Time `json:"added_at"`
}

// Base is an in-memory article collection with naive term search. Safe
// for concurrent use.
type Base struct {
	client *http.Client
	logger *slog.Logger

	mu       sync.RWMutex
	articles []Article
}

// NewBase creates a Base seeded with the built-in articles.
func NewBase(logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{
		client:   &http.Client{Timeout: fetchTimeout},
		logger:   logger.With("component", "knowledge"),
		articles: builtinArticles(),
	}
}

// List returns all articles, newest first.
func (b *Base) List() []Article {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := append([]Article(nil), b.articles...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AddedAt.After(out[j].AddedAt) })
	return out
}

// Get returns an article by ID.
func (b *Base) Get(id string) (Article, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.articles {
		if a.ID == id {
			return a, true
		}
	}
	return Article{}, false
}

// Search returns up to limit articles ranked by how many query terms
// appear in their title and content. Title hits weigh more.
func (b *Base) Search(query string, limit int) []Article {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return nil
	}
	if limit <= 0 {
		limit = 5
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	type scored struct {
		article Article
		score   int
	}
	var hits []scored
	for _, a := range b.articles {
		title := strings.ToLower(a.Title)
		content := strings.ToLower(a.Content)
		score := 0
		for _, term := range terms {
			if strings.Contains(title, term) {
				score += 3
			}
			score += strings.Count(content, term)
		}
		if score > 0 {
			hits = append(hits, scored{a, score})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]Article, len(hits))
	for i, h := range hits {
		out[i] = h.article
	}
	return out
}

// IngestURL fetches a help-center page, extracts its readable content and
// adds it as an article.
func (b *Base) IngestURL(ctx context.Context, rawURL string) (*Article, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("knowledge: invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("knowledge: %w", err)
	}
	req.Header.Set("User-Agent", "autobot/1.0")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("knowledge: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("knowledge: fetch: HTTP %d", resp.StatusCode)
	}

	var title, text string
	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		article, err := readability.FromReader(resp.Body, parsedURL)
		if err != nil {
			return nil, fmt.Errorf("knowledge: parse: %w", err)
		}
		var buf bytes.Buffer
		if err := article.RenderText(&buf); err != nil {
			return nil, fmt.Errorf("knowledge: render: %w", err)
		}
		title, text = article.Title(), buf.String()
	} else {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxArticleSize))
		text = string(body)
	}

	if title == "" {
		title = rawURL
	}
	if len(text) > maxArticleSize {
		text = text[:maxArticleSize]
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("knowledge: %s: no readable content", rawURL)
	}

	a := Article{
		ID:      uuid.NewString(),
		Title:   title,
		URL:     rawURL,
		Content: text,
		AddedAt: time.Now(),
	}

	b.mu.Lock()
	b.articles = append(b.articles, a)
	b.mu.Unlock()

	b.logger.Info("article ingested", "title", title, "url", rawURL, "bytes", len(text))
	return &a, nil
}

func builtinArticles() []Article {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	return []Article{
		{
			ID:    "creating-agents",
			Title: "Creating your first AI agent",
			Content: "Log in to your dashboard and click Create New Agent. Give the agent a name, " +
				"a description of what it should help with, and a tone of voice. After saving, copy " +
				"the embed code into your website's HTML. Agents count against your plan limit: the " +
				"Basic plan includes one agent, Medium includes five, Premium is unlimited.",
			AddedAt: base,
		},
		{
			ID:    "plans-pricing",
			Title: "Plans and pricing",
			Content: "AutoBot Studio offers three plans. Basic is free with 1 agent and 1,000 messages " +
				"per month. Medium is $29/month with 5 agents, 10,000 messages, priority support and " +
				"knowledge base integration. Premium is $99/month with unlimited agents and messages, " +
				"webhooks, white-label options, API access and 24/7 support. Upgrade from Dashboard → Pricing.",
			AddedAt: base,
		},
		{
			ID:    "troubleshooting-agents",
			Title: "Troubleshooting an agent that is not responding",
			Content: "First check the agent's status in the dashboard; it must be Active. Then verify " +
				"the embed code on your site matches the latest one in the dashboard. If you have hit " +
				"your plan's message limit the agent stops replying until the next cycle. Finally, clear " +
				"your browser cache and hard refresh the page.",
			AddedAt: base,
		},
		{
			ID:    "login-issues",
			Title: "Login and account access",
			Content: "If you forgot your password, use the Forgot Password link on the login page and " +
				"follow the reset email. Check for typos in your email address and make sure caps lock " +
				"is off. New users can create an account with Sign Up. If you still cannot access your " +
				"account, open a support ticket.",
			AddedAt: base,
		},
	}
}
