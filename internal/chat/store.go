package chat

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // cgo-free SQLite driver

	apperrors "github.com/insightx/upi-insight/internal/errors"
)

const sessionIDLength = 12

// Session is a persisted conversation thread.
type Session struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// StoredMessage is a persisted turn, optionally carrying the generated SQL
// and the full structured response payload.
type StoredMessage struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	SQLText   string `json:"sql_text,omitempty"`
	DataJSON  string `json:"data_json,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Store persists sessions and messages in a local SQLite database.
// Appends are atomic per message: the insert and the session timestamp
// bump happen in one transaction, so concurrent appends to the same
// session never lose updates.
type Store struct {
	db             *sql.DB
	titleMaxLength int
}

// NewStore opens (creating if needed) the chat history database.
func NewStore(path string, titleMaxLength int) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to create chat database directory")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to open chat database")
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			return nil, apperrors.Wrapf(err, apperrors.ErrTypePersistence, "failed to apply %s", pragma)
		}
	}

	if titleMaxLength <= 0 {
		titleMaxLength = 60
	}

	store := &Store{db: db, titleMaxLength: titleMaxLength}
	if err := store.initialize(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT 'New chat',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL DEFAULT '',
		sql_text   TEXT DEFAULT '',
		data_json  TEXT DEFAULT '',
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id);`

	if _, err := s.db.Exec(schema); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to create chat schema")
	}

	return nil
}

// CreateSession inserts a new session with a default title.
func (s *Store) CreateSession(ctx context.Context) (*Session, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:sessionIDLength]

	session := &Session{
		ID:        id,
		Title:     "New chat",
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)",
		session.ID, session.Title, session.CreatedAt, session.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to create session")
	}

	return session, nil
}

// ListSessions returns sessions newest-first, bounded by limit.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at, updated_at FROM sessions ORDER BY updated_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to list sessions")
	}
	defer func() { _ = rows.Close() }()

	sessions := []Session{}

	for rows.Next() {
		var session Session
		if err := rows.Scan(&session.ID, &session.Title, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to scan session")
		}

		sessions = append(sessions, session)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to iterate sessions")
	}

	return sessions, nil
}

// DeleteSession removes a session; messages cascade.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to delete session")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to check delete result")
	}

	if affected == 0 {
		return apperrors.Newf(apperrors.ErrTypeNotFound, "session %s not found", sessionID)
	}

	return nil
}

// AppendMessage persists one turn and bumps the session timestamp in the
// same transaction.
func (s *Store) AppendMessage(ctx context.Context, msg StoredMessage) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to begin append transaction")
	}

	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, sql_text, data_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.SessionID, msg.Role, msg.Content, msg.SQLText, msg.DataJSON, now,
	)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to insert message")
	}

	if _, err := tx.ExecContext(ctx,
		"UPDATE sessions SET updated_at = ? WHERE id = ?", now, msg.SessionID,
	); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to touch session")
	}

	if err := tx.Commit(); err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to commit message append")
	}

	id, _ := result.LastInsertId()

	return id, nil
}

// GetMessages returns all messages of a session in insertion order.
func (s *Store) GetMessages(ctx context.Context, sessionID string) ([]StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, sql_text, data_json, created_at
		 FROM messages WHERE session_id = ? ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to get messages")
	}
	defer func() { _ = rows.Close() }()

	messages := []StoredMessage{}

	for rows.Next() {
		var msg StoredMessage
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.SQLText, &msg.DataJSON, &msg.CreatedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to scan message")
		}

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to iterate messages")
	}

	return messages, nil
}

// MessageCount returns the number of messages in a session.
func (s *Store) MessageCount(ctx context.Context, sessionID string) (int, error) {
	var count int

	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM messages WHERE session_id = ?", sessionID,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to count messages")
	}

	return count, nil
}

// AutoTitle derives the session title from the first user question,
// truncated to the configured length.
func (s *Store) AutoTitle(ctx context.Context, sessionID, firstQuestion string) error {
	title := TruncateTitle(firstQuestion, s.titleMaxLength)
	now := time.Now().UTC().Format(time.RFC3339Nano)

	if _, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET title = ?, updated_at = ? WHERE id = ?",
		title, now, sessionID,
	); err != nil {
		return apperrors.Wrap(err, apperrors.ErrTypePersistence, "failed to update session title")
	}

	return nil
}

// TruncateTitle bounds a title to maxLen runes, appending an ellipsis
// when trimmed.
func TruncateTitle(title string, maxLen int) string {
	runes := []rune(strings.TrimSpace(title))
	if len(runes) <= maxLen {
		return string(runes)
	}

	return string(runes[:maxLen]) + "..."
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
