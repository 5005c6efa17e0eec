package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/autobot-io/autobot/internal/config"
	"github.com/autobot-io/autobot/pkg/protocol"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "chat":
		cmdChat(os.Args[2:])
	case "health":
		cmdHealth()
	case "stats":
		cmdStats()
	case "tickets":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: autobotctl tickets <list|show|status>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdTicketsList(os.Args[3:])
		case "show":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: autobotctl tickets show <id>")
				os.Exit(1)
			}
			cmdTicketsShow(os.Args[3])
		case "status":
			if len(os.Args) < 5 {
				fmt.Fprintln(os.Stderr, "usage: autobotctl tickets status <id> <open|in_progress|resolved|closed>")
				os.Exit(1)
			}
			cmdTicketsStatus(os.Args[3], os.Args[4])
		default:
			fmt.Fprintf(os.Stderr, "unknown tickets subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "kb":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "usage: autobotctl kb <list|search|add>")
			os.Exit(1)
		}
		switch os.Args[2] {
		case "list":
			cmdKBList("")
		case "search":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: autobotctl kb search <query>")
				os.Exit(1)
			}
			cmdKBList(strings.Join(os.Args[3:], " "))
		case "add":
			if len(os.Args) < 4 {
				fmt.Fprintln(os.Stderr, "usage: autobotctl kb add <url>")
				os.Exit(1)
			}
			cmdKBAdd(os.Args[3])
		default:
			fmt.Fprintf(os.Stderr, "unknown kb subcommand: %s\n", os.Args[2])
			os.Exit(1)
		}
	case "logs":
		cmdLogs(os.Args[2:])
	case "config":
		if len(os.Args) < 4 || os.Args[2] != "validate" {
			fmt.Fprintln(os.Stderr, "usage: autobotctl config validate <path>")
			os.Exit(1)
		}
		cmdConfigValidate(os.Args[3])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// --- chat command ---

type chatRequest struct {
	SessionID string               `json:"session_id,omitempty"`
	Message   string               `json:"message"`
	History   []protocol.Message   `json:"history,omitempty"`
	Draft     protocol.TicketDraft `json:"draft"`
}

type chatResponse struct {
	SessionID string               `json:"session_id"`
	Reply     string               `json:"reply"`
	Intent    protocol.Intent      `json:"intent"`
	Action    *protocol.Action     `json:"action,omitempty"`
	Draft     protocol.TicketDraft `json:"draft"`
}

// cmdChat runs an interactive REPL against POST /api/chat. The endpoint is
// stateless, so the REPL keeps the session ID, history and ticket draft and
// sends them back with every message.
func cmdChat(args []string) {
	fs := flag.NewFlagSet("chat", flag.ExitOnError)
	message := fs.String("m", "", "Single message (omit for interactive)")
	showIntent := fs.Bool("intent", false, "Print the detected intent with each reply")
	fs.Parse(args)

	var (
		sessionID string
		history   []protocol.Message
		draft     protocol.TicketDraft
	)

	send := func(text string) error {
		body, err := apiPost("/api/chat", chatRequest{
			SessionID: sessionID,
			Message:   text,
			History:   history,
			Draft:     draft,
		})
		if err != nil {
			return err
		}
		var resp chatResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		sessionID = resp.SessionID
		draft = resp.Draft
		history = append(history,
			protocol.Message{Role: protocol.RoleUser, Content: text},
			protocol.Message{Role: protocol.RoleAssistant, Content: resp.Reply},
		)
		if *showIntent {
			fmt.Printf("[%s]\n", resp.Intent)
		}
		fmt.Println(resp.Reply)
		if resp.Action != nil && resp.Action.TicketID != "" {
			fmt.Printf("\n(ticket %s created)\n", resp.Action.TicketID)
		}
		return nil
	}

	if *message != "" {
		if err := send(*message); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	fmt.Println("autobotctl chat (type 'quit' to exit)")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := send(line); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println()
	}
}

// --- API client commands ---

func cmdHealth() {
	body, err := apiGet("/api/health")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(body))
}

func cmdStats() {
	body, err := apiGet("/api/stats")
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdTicketsList(args []string) {
	fs := flag.NewFlagSet("tickets list", flag.ExitOnError)
	status := fs.String("status", "", "Filter by status (open|in_progress|resolved|closed)")
	email := fs.String("email", "", "Filter by requester email")
	plan := fs.String("plan", "", "Filter by plan")
	limit := fs.Int("limit", 50, "Max results")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *status != "" {
		query += "&status=" + url.QueryEscape(*status)
	}
	if *email != "" {
		query += "&email=" + url.QueryEscape(*email)
	}
	if *plan != "" {
		query += "&plan=" + url.QueryEscape(*plan)
	}

	body, err := apiGet("/api/tickets" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var tickets []map[string]any
	json.Unmarshal(body, &tickets)
	for _, t := range tickets {
		fmt.Printf("%-28s %-12s %-10s %s\n", t["id"], t["status"], t["plan"], t["subject"])
	}
}

func cmdTicketsShow(id string) {
	body, err := apiGet("/api/tickets/" + id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdTicketsStatus(id, status string) {
	body, err := apiDo(http.MethodPatch, "/api/tickets/"+id, map[string]string{"status": status})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdKBList(query string) {
	path := "/api/knowledge"
	if query != "" {
		path += "?q=" + url.QueryEscape(query)
	}
	body, err := apiGet(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	var articles []map[string]any
	json.Unmarshal(body, &articles)
	for _, a := range articles {
		fmt.Printf("%-28s %s\n", a["id"], a["title"])
	}
}

func cmdKBAdd(articleURL string) {
	body, err := apiPost("/api/knowledge", map[string]string{"url": articleURL})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdLogs(args []string) {
	fs := flag.NewFlagSet("logs", flag.ExitOnError)
	level := fs.String("level", "", "Minimum level (debug|info|warn|error)")
	component := fs.String("component", "", "Filter by component")
	limit := fs.Int("limit", 100, "Max entries")
	fs.Parse(args)

	query := fmt.Sprintf("?limit=%d", *limit)
	if *level != "" {
		query += "&level=" + url.QueryEscape(*level)
	}
	if *component != "" {
		query += "&component=" + url.QueryEscape(*component)
	}

	body, err := apiGet("/api/logs" + query)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(prettyJSON(body))
}

func cmdConfigValidate(path string) {
	_, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("config is valid")
}

// --- Helpers ---

func apiGet(path string) ([]byte, error) {
	return apiDo(http.MethodGet, path, nil)
}

func apiPost(path string, payload any) ([]byte, error) {
	return apiDo(http.MethodPost, path, payload)
}

func apiDo(method, path string, payload any) ([]byte, error) {
	base := envOr("AUTOBOT_API_URL", "http://localhost:8080")

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, base+path, reqBody)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if key := os.Getenv("AUTOBOT_API_KEY"); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func prettyJSON(data []byte) string {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return string(data)
	}
	out, _ := json.MarshalIndent(v, "", "  ")
	return string(out)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Println("autobotctl — support bot management CLI")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  chat                       Chat with the bot (interactive, or -m <message>)")
	fmt.Println("  health                     Check daemon health")
	fmt.Println("  stats                      Show ticket counts by status")
	fmt.Println("  tickets list               List tickets (--status, --email, --plan, --limit)")
	fmt.Println("  tickets show <id>          Show ticket details")
	fmt.Println("  tickets status <id> <st>   Update a ticket's status")
	fmt.Println("  kb list                    List knowledge base articles")
	fmt.Println("  kb search <query>          Search the knowledge base")
	fmt.Println("  kb add <url>               Ingest a help article by URL")
	fmt.Println("  logs                       Show recent daemon logs (--level, --component, --limit)")
	fmt.Println("  config validate <path>     Validate a config file")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  AUTOBOT_API_URL   Daemon URL (default: http://localhost:8080)")
	fmt.Println("  AUTOBOT_API_KEY   API key for authentication")
}
