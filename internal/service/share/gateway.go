package share

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means no published artifact exists under the id. This is a
	// normal branch of share resolution, not an internal failure.
	ErrNotFound = errors.New("shared prompt not found")
	// ErrGateway covers publish/resolve failures of the backing store.
	ErrGateway = errors.New("share gateway failure")
)

// Gateway publishes finished artifacts under fresh opaque ids and resolves
// them back to text. Published artifacts are immutable and readable by anyone
// holding the id; there is no access control and no expiry.
type Gateway interface {
	Publish(ctx context.Context, artifactText string) (string, error)
	Resolve(ctx context.Context, shareID string) (string, error)
}

// SQLiteGateway implements Gateway on a shared SQLite handle.
type SQLiteGateway struct {
	db *sql.DB
}

// NewSQLiteGateway initializes the shared-prompt schema on db.
func NewSQLiteGateway(db *sql.DB) (*SQLiteGateway, error) {
	schema := `
	CREATE TABLE IF NOT EXISTS shared_prompts (
		id TEXT PRIMARY KEY,
		prompt TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize share schema: %w", err)
	}
	return &SQLiteGateway{db: db}, nil
}

// Publish implements Gateway.
func (g *SQLiteGateway) Publish(ctx context.Context, artifactText string) (string, error) {
	id := uuid.NewString()
	_, err := g.db.ExecContext(ctx,
		`INSERT INTO shared_prompts (id, prompt, created_at) VALUES (?, ?, ?)`,
		id, artifactText, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return id, nil
}

// Resolve implements Gateway.
func (g *SQLiteGateway) Resolve(ctx context.Context, shareID string) (string, error) {
	var prompt string
	err := g.db.QueryRowContext(ctx,
		`SELECT prompt FROM shared_prompts WHERE id = ?`, shareID).Scan(&prompt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGateway, err)
	}
	return prompt, nil
}

// MemoryGateway implements Gateway with an in-memory map.
type MemoryGateway struct {
	mu      sync.RWMutex
	prompts map[string]string
}

// NewMemoryGateway returns an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{prompts: make(map[string]string)}
}

// Publish implements Gateway.
func (g *MemoryGateway) Publish(_ context.Context, artifactText string) (string, error) {
	id := uuid.NewString()
	g.mu.Lock()
	g.prompts[id] = artifactText
	g.mu.Unlock()
	return id, nil
}

// Resolve implements Gateway.
func (g *MemoryGateway) Resolve(_ context.Context, shareID string) (string, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	prompt, ok := g.prompts[shareID]
	if !ok {
		return "", ErrNotFound
	}
	return prompt, nil
}
