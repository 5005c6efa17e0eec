package ticket

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/autobot-io/autobot/pkg/protocol"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS support_tickets (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			email      TEXT NOT NULL,
			plan       TEXT NOT NULL DEFAULT 'basic',
			subject    TEXT NOT NULL,
			message    TEXT NOT NULL,
			status     TEXT NOT NULL DEFAULT 'open',
			priority   TEXT NOT NULL DEFAULT 'medium',
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS conversations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id   TEXT NOT NULL,
			channel      TEXT NOT NULL DEFAULT 'web',
			user_message TEXT NOT NULL,
			bot_reply    TEXT NOT NULL,
			intent       TEXT NOT NULL,
			created_at   TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_status ON support_tickets(status);
		CREATE INDEX IF NOT EXISTS idx_tickets_email ON support_tickets(email);
		CREATE INDEX IF NOT EXISTS idx_conversations_session ON conversations(session_id);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Create(ctx context.Context, t *protocol.Ticket) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO support_tickets (id, name, email, plan, subject, message, status, priority, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Name, t.Email, t.Plan, t.Subject, t.Message,
		string(t.Status), string(t.Priority), t.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ticket store: create: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*protocol.Ticket, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, email, plan, subject, message, status, priority, created_at FROM support_tickets WHERE id = ?`, id)

	t, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("ticket %q: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("ticket store: get: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]*protocol.Ticket, error) {
	query := "SELECT id, name, email, plan, subject, message, status, priority, created_at FROM support_tickets WHERE 1=1"
	query, args := applyFilter(query, filter)
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}
	defer rows.Close()

	var tickets []*protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket store: list scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context, filter Filter) (int, error) {
	query := "SELECT COUNT(*) FROM support_tickets WHERE 1=1"
	query, args := applyFilter(query, filter)

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("ticket store: count: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status protocol.TicketStatus) error {
	result, err := s.db.ExecContext(ctx, `UPDATE support_tickets SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("ticket store: update status: %w", err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("ticket %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) LogConversation(ctx context.Context, c *protocol.Conversation) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO conversations (session_id, channel, user_message, bot_reply, intent, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, c.SessionID, c.Channel, c.UserMessage, c.BotReply, string(c.Intent), c.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("ticket store: log conversation: %w", err)
	}
	c.ID, _ = result.LastInsertId()
	return nil
}

func (s *SQLiteStore) ListConversations(ctx context.Context, sessionID string, limit int) ([]*protocol.Conversation, error) {
	query := `SELECT id, session_id, channel, user_message, bot_reply, intent, created_at FROM conversations`
	var args []any
	if sessionID != "" {
		query += " WHERE session_id = ?"
		args = append(args, sessionID)
	}
	query += " ORDER BY id DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list conversations: %w", err)
	}
	defer rows.Close()

	var convos []*protocol.Conversation
	for rows.Next() {
		var c protocol.Conversation
		var intent, ts string
		if err := rows.Scan(&c.ID, &c.SessionID, &c.Channel, &c.UserMessage, &c.BotReply, &intent, &ts); err != nil {
			return nil, fmt.Errorf("ticket store: scan conversation: %w", err)
		}
		c.Intent = protocol.Intent(intent)
		c.CreatedAt, _ = time.Parse(time.RFC3339, ts)
		convos = append(convos, &c)
	}
	return convos, rows.Err()
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// --- helpers ---

func applyFilter(query string, filter Filter) (string, []any) {
	var args []any
	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.Email != "" {
		query += " AND email = ?"
		args = append(args, filter.Email)
	}
	if filter.Plan != "" {
		query += " AND plan = ?"
		args = append(args, filter.Plan)
	}
	if filter.Query != "" {
		query += " AND (name LIKE ? OR subject LIKE ? OR message LIKE ?)"
		pattern := fmt.Sprintf("%%%s%%", filter.Query)
		args = append(args, pattern, pattern, pattern)
	}
	return query, args
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTicket(row scannable) (*protocol.Ticket, error) {
	var t protocol.Ticket
	var status, priority, createdAt string

	err := row.Scan(&t.ID, &t.Name, &t.Email, &t.Plan, &t.Subject, &t.Message, &status, &priority, &createdAt)
	if err != nil {
		return nil, err
	}

	t.Status = protocol.TicketStatus(status)
	t.Priority = protocol.TicketPriority(priority)
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}
