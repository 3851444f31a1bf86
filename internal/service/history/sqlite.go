package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lunarhue/promptii/backend/internal/model/conversation"
	historymodel "github.com/lunarhue/promptii/backend/internal/model/history"
)

// SQLiteStore implements Store on a shared SQLite handle. Messages are stored
// as a JSON column; ordering comes from the updated_at column at query time.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore initializes the history schema on db and returns the store.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS history_items (
		scope TEXT NOT NULL,
		id TEXT NOT NULL,
		title TEXT NOT NULL,
		messages_json TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (scope, id)
	);
	CREATE INDEX IF NOT EXISTS idx_history_scope_updated ON history_items(scope, updated_at);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Upsert implements Store.
func (s *SQLiteStore) Upsert(ctx context.Context, scope historymodel.Scope, item historymodel.Item) error {
	messagesJSON, err := json.Marshal(item.Messages)
	if err != nil {
		return fmt.Errorf("failed to marshal messages: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO history_items (scope, id, title, messages_json, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (scope, id) DO UPDATE SET
			title = excluded.title,
			messages_json = excluded.messages_json,
			updated_at = excluded.updated_at`,
		string(scope), item.ID, item.Title, string(messagesJSON), item.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert history item: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, scope historymodel.Scope, id string) (historymodel.Item, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, title, messages_json, updated_at
		FROM history_items WHERE scope = ? AND id = ?`,
		string(scope), id)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return historymodel.Item{}, ErrNotFound
	}
	if err != nil {
		return historymodel.Item{}, fmt.Errorf("failed to load history item: %w", err)
	}
	return item, nil
}

// List implements Store.
func (s *SQLiteStore) List(ctx context.Context, scope historymodel.Scope) ([]historymodel.Item, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, messages_json, updated_at
		FROM history_items WHERE scope = ?
		ORDER BY updated_at DESC`,
		string(scope))
	if err != nil {
		return nil, fmt.Errorf("failed to list history items: %w", err)
	}
	defer rows.Close()

	var items []historymodel.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history items: %w", err)
	}
	return items, nil
}

// Clear implements Store.
func (s *SQLiteStore) Clear(ctx context.Context, scope historymodel.Scope) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history_items WHERE scope = ?`, string(scope)); err != nil {
		return fmt.Errorf("failed to clear history scope: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (historymodel.Item, error) {
	var item historymodel.Item
	var messagesJSON string
	if err := row.Scan(&item.ID, &item.Title, &messagesJSON, &item.UpdatedAt); err != nil {
		return historymodel.Item{}, err
	}
	var messages []conversation.Message
	if err := json.Unmarshal([]byte(messagesJSON), &messages); err != nil {
		return historymodel.Item{}, err
	}
	item.Messages = messages
	return item, nil
}
