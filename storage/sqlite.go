// Package storage: SQLite conversation store.
//
// Information Hiding:
// - SQLite connection management hidden behind interface
// - Schema details encapsulated; rows always hold the current record shape
// - Thread-safe via sql.DB's built-in connection pooling
//
// This backend is for embedders who prefer a single database file over the
// JSON directory tree. It stores current-schema records only; the legacy
// format exists solely on the file layout, so no migration happens here.

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/convostore/record"
)

// SqliteStore implements ConversationStore using SQLite.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path.
// Creates parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			last_updated INTEGER NOT NULL,
			archived INTEGER NOT NULL DEFAULT 0,
			agent_mode TEXT,
			session_id TEXT,
			participating_agents TEXT,
			tags TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_updated
		ON conversations(last_updated DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			conversation_id TEXT NOT NULL,
			message_index INTEGER NOT NULL,
			role TEXT NOT NULL,
			text TEXT NOT NULL,
			metadata TEXT,
			UNIQUE(conversation_id, message_index)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(conversation_id, message_index);
	`

	_, err := s.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save persists a record, replacing any previous version wholesale.
func (s *SqliteStore) Save(ctx context.Context, rec *record.Record) error {
	if rec.ID == "" {
		return fmt.Errorf("cannot save conversation with empty id")
	}
	normalize(rec)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback after Commit is a no-op
	defer func() { _ = tx.Rollback() }()

	agents, err := encodeStringList(rec.Metadata.ParticipatingAgents)
	if err != nil {
		return fmt.Errorf("failed to encode participating agents: %w", err)
	}
	tags, err := encodeStringList(rec.Metadata.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode tags: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO conversations
		(id, title, created_at, last_updated, archived, agent_mode, session_id, participating_agents, tags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Title,
		rec.Timestamp,
		rec.LastUpdated,
		boolToInt(rec.Metadata.Archived),
		nullableString(rec.Metadata.AgentMode),
		nullableString(rec.SessionID),
		agents,
		tags,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", rec.ID)
	if err != nil {
		return fmt.Errorf("failed to clear old messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (conversation_id, message_index, role, text, metadata) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range rec.Messages {
		var meta any
		if msg.Metadata != nil {
			encoded, err := json.Marshal(msg.Metadata)
			if err != nil {
				return fmt.Errorf("failed to encode message metadata: %w", err)
			}
			meta = string(encoded)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, i, string(msg.Role), msg.Text, meta); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	rec.Migrated = false
	return nil
}

// Load retrieves a record by id. Returns nil if it doesn't exist.
func (s *SqliteStore) Load(ctx context.Context, id string) (*record.Record, error) {
	var (
		rec       record.Record
		archived  int
		agentMode sql.NullString
		sessionID sql.NullString
		agents    sql.NullString
		tags      sql.NullString
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, created_at, last_updated, archived, agent_mode, session_id, participating_agents, tags
		FROM conversations WHERE id = ?`,
		id).Scan(
		&rec.ID,
		&rec.Title,
		&rec.Timestamp,
		&rec.LastUpdated,
		&archived,
		&agentMode,
		&sessionID,
		&agents,
		&tags,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query conversation: %w", err)
	}

	rec.Version = record.CurrentVersion
	rec.Metadata.Archived = archived != 0
	if agentMode.Valid {
		rec.Metadata.AgentMode = agentMode.String
	}
	if sessionID.Valid {
		rec.SessionID = sessionID.String
	}
	if rec.Metadata.ParticipatingAgents, err = decodeStringList(agents); err != nil {
		return nil, fmt.Errorf("invalid participating agents for %q: %w", id, err)
	}
	if rec.Metadata.Tags, err = decodeStringList(tags); err != nil {
		return nil, fmt.Errorf("invalid tags for %q: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT role, text, metadata FROM messages WHERE conversation_id = ? ORDER BY message_index ASC",
		id)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	rec.Messages = []record.Message{} // Start with empty slice, not nil
	for rows.Next() {
		var (
			msg  record.Message
			role string
			meta sql.NullString
		)
		if err := rows.Scan(&role, &msg.Text, &meta); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.Role = record.Role(role)
		if meta.Valid && meta.String != "" {
			var mm record.MessageMetadata
			if err := json.Unmarshal([]byte(meta.String), &mm); err != nil {
				return nil, fmt.Errorf("invalid message metadata for %q: %w", id, err)
			}
			msg.Metadata = &mm
		}
		rec.Messages = append(rec.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}

	return &rec, nil
}

// Delete removes a conversation. Returns whether it existed.
func (s *SqliteStore) Delete(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete conversation: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE conversation_id = ?", id); err != nil {
		return false, fmt.Errorf("failed to delete messages: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected > 0, nil
}

// List returns metadata for every stored conversation, most recent first.
func (s *SqliteStore) List(ctx context.Context) ([]ConversationMeta, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.last_updated, c.archived, c.tags,
		       (SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.id)
		FROM conversations c
		ORDER BY c.last_updated DESC, c.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	metas := []ConversationMeta{} // Start with empty slice, not nil
	for rows.Next() {
		var (
			meta     ConversationMeta
			archived int
			tags     sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.Title, &meta.CreatedAt, &meta.LastUpdated, &archived, &tags, &meta.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		meta.Archived = archived != 0
		if meta.Tags, err = decodeStringList(tags); err != nil {
			return nil, fmt.Errorf("invalid tags for %q: %w", meta.ID, err)
		}
		metas = append(metas, meta)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return metas, nil
}

// Exists checks whether a conversation exists.
func (s *SqliteStore) Exists(ctx context.Context, id string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM conversations WHERE id = ?",
		id).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check conversation existence: %w", err)
	}
	return count > 0, nil
}

// Clear removes every stored conversation.
func (s *SqliteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages"); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM conversations"); err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// encodeStringList encodes a string list as JSON, or NULL when empty.
func encodeStringList(values []string) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// decodeStringList decodes a JSON string list column, treating NULL and
// empty as absent.
func decodeStringList(col sql.NullString) ([]string, error) {
	if !col.Valid || col.String == "" {
		return nil, nil
	}
	var values []string
	if err := json.Unmarshal([]byte(col.String), &values); err != nil {
		return nil, err
	}
	return values, nil
}

// nullableString converts empty strings to NULL for optional columns.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Verify SqliteStore implements ConversationStore
var _ ConversationStore = (*SqliteStore)(nil)
