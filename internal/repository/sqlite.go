package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shank50/supportbotai/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store. File databases default to WAL
// journaling with a busy timeout so writers from different sessions wait for
// each other instead of failing.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	dsn = withDefaultParams(dsn)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// In-memory databases exist per connection, and shared-cache connections
	// fail with SQLITE_LOCKED instead of waiting. Both need a single connection.
	if isMemoryDSN(dsn) || strings.Contains(dsn, "cache=shared") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_activity_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_created ON sessions(created_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			sender TEXT NOT NULL CHECK (sender IN ('user', 'bot')),
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			metadata TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS escalations (
			escalation_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			reason TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			resolved INTEGER NOT NULL DEFAULT 0,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_escalations_session ON escalations(session_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS turn_events (
			event_id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL,
			ts INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload TEXT,
			FOREIGN KEY (session_id) REFERENCES sessions(session_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turn_events_session ON turn_events(session_id, ts)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

func isMemoryDSN(dsn string) bool {
	return strings.HasPrefix(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// withDefaultParams adds busy timeout and journal mode parameters unless the
// DSN already sets them. Parameters are read by the driver and stripped from
// plain paths.
func withDefaultParams(dsn string) string {
	var params []string
	if !strings.Contains(dsn, "_timeout=") {
		params = append(params, "_busy_timeout=5000")
	}
	if !isMemoryDSN(dsn) && !strings.Contains(dsn, "_journal_mode=") && !strings.Contains(dsn, "_journal=") {
		params = append(params, "_journal_mode=WAL")
	}
	if len(params) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateSession creates a new session.
func (s *SQLiteStore) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, created_at, last_activity_at) VALUES (?, ?, ?)`,
		session.SessionID, session.CreatedAt.UTC(), session.LastActivityAt.UTC())
	return err
}

// GetSession retrieves a session by ID. It returns nil, nil when absent.
func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*domain.Session, error) {
	var session domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, created_at, last_activity_at FROM sessions WHERE session_id = ?`,
		sessionID).Scan(&session.SessionID, &session.CreatedAt, &session.LastActivityAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// TouchSession moves a session's last activity time forward. It never moves
// it backwards, so repeated or out-of-order calls are harmless.
func (s *SQLiteStore) TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	at = at.UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_activity_at = ? WHERE session_id = ? AND last_activity_at < ?`,
		at, sessionID, at)
	return err
}

// ListSessions lists sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]domain.Session, error) {
	query := `SELECT session_id, created_at, last_activity_at FROM sessions ORDER BY created_at DESC, rowid DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []domain.Session{}
	for rows.Next() {
		var session domain.Session
		if err := rows.Scan(&session.SessionID, &session.CreatedAt, &session.LastActivityAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}

// AppendMessage stores a new message.
func (s *SQLiteStore) AppendMessage(ctx context.Context, message *domain.Message) error {
	var metadata sql.NullString
	if message.Metadata != nil {
		data, err := json.Marshal(message.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		metadata = sql.NullString{String: string(data), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (message_id, session_id, sender, content, created_at, metadata) VALUES (?, ?, ?, ?, ?, ?)`,
		message.MessageID, message.SessionID, message.Sender, message.Content, message.CreatedAt.UTC(), metadata)
	return err
}

// ListMessages returns all messages of a session in ascending timestamp
// order. Messages with equal timestamps keep their insertion order.
func (s *SQLiteStore) ListMessages(ctx context.Context, sessionID string) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, session_id, sender, content, created_at, metadata
		 FROM messages WHERE session_id = ?
		 ORDER BY created_at ASC, rowid ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		var msg domain.Message
		var metadata sql.NullString
		if err := rows.Scan(&msg.MessageID, &msg.SessionID, &msg.Sender, &msg.Content, &msg.CreatedAt, &metadata); err != nil {
			return nil, err
		}
		if metadata.Valid && metadata.String != "" {
			var md domain.MessageMetadata
			if err := json.Unmarshal([]byte(metadata.String), &md); err != nil {
				return nil, fmt.Errorf("failed to decode metadata of %s: %w", msg.MessageID, err)
			}
			msg.Metadata = &md
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// AppendEscalation stores a new escalation.
func (s *SQLiteStore) AppendEscalation(ctx context.Context, escalation *domain.Escalation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO escalations (escalation_id, session_id, reason, created_at, resolved) VALUES (?, ?, ?, ?, ?)`,
		escalation.EscalationID, escalation.SessionID, nullString(escalation.Reason), escalation.CreatedAt.UTC(), escalation.Resolved)
	return err
}

// ListEscalations returns the escalations of a session in ascending
// timestamp order.
func (s *SQLiteStore) ListEscalations(ctx context.Context, sessionID string) ([]domain.Escalation, error) {
	return s.queryEscalations(ctx,
		`SELECT escalation_id, session_id, reason, created_at, resolved
		 FROM escalations WHERE session_id = ?
		 ORDER BY created_at ASC, rowid ASC`, sessionID)
}

// ListAllEscalations lists escalations across sessions, newest first.
func (s *SQLiteStore) ListAllEscalations(ctx context.Context, filter EscalationFilter) ([]domain.Escalation, error) {
	query := `SELECT escalation_id, session_id, reason, created_at, resolved FROM escalations`
	var args []interface{}
	if filter.Resolved != nil {
		query += ` WHERE resolved = ?`
		args = append(args, *filter.Resolved)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	return s.queryEscalations(ctx, query, args...)
}

func (s *SQLiteStore) queryEscalations(ctx context.Context, query string, args ...interface{}) ([]domain.Escalation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	escalations := []domain.Escalation{}
	for rows.Next() {
		var esc domain.Escalation
		var reason sql.NullString
		if err := rows.Scan(&esc.EscalationID, &esc.SessionID, &reason, &esc.CreatedAt, &esc.Resolved); err != nil {
			return nil, err
		}
		if reason.Valid {
			esc.Reason = reason.String
		}
		escalations = append(escalations, esc)
	}
	return escalations, rows.Err()
}

// CreateEvent creates a new turn event.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event *domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO turn_events (event_id, session_id, ts, type, payload) VALUES (?, ?, ?, ?, ?)`,
		event.EventID, event.SessionID, event.Ts, event.Type, nullStringBytes(event.Payload))
	return err
}

// GetEvents retrieves turn events for a session.
func (s *SQLiteStore) GetEvents(ctx context.Context, sessionID string, afterTs int64, types []string, limit int) ([]domain.Event, error) {
	query := `SELECT event_id, session_id, ts, type, payload FROM turn_events WHERE session_id = ?`
	args := []interface{}{sessionID}

	if afterTs > 0 {
		query += ` AND ts > ?`
		args = append(args, afterTs)
	}

	if len(types) > 0 {
		placeholders := make([]string, len(types))
		for i, t := range types {
			placeholders[i] = "?"
			args = append(args, t)
		}
		query += fmt.Sprintf(" AND type IN (%s)", strings.Join(placeholders, ","))
	}

	query += ` ORDER BY ts ASC, rowid ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var event domain.Event
		var payload sql.NullString
		if err := rows.Scan(&event.EventID, &event.SessionID, &event.Ts, &event.Type, &payload); err != nil {
			return nil, err
		}
		if payload.Valid {
			event.Payload = json.RawMessage(payload.String)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringBytes(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
