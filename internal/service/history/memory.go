package history

import (
	"context"
	"sort"
	"sync"

	historymodel "github.com/lunarhue/promptii/backend/internal/model/history"
)

// MemoryStore implements Store with mutex-guarded maps, used in tests and
// when no database path is configured.
type MemoryStore struct {
	mu     sync.RWMutex
	scopes map[historymodel.Scope]map[string]historymodel.Item
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{scopes: make(map[historymodel.Scope]map[string]historymodel.Item)}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, scope historymodel.Scope, item historymodel.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, ok := s.scopes[scope]
	if !ok {
		items = make(map[string]historymodel.Item)
		s.scopes[scope] = items
	}
	items[item.ID] = item.Clone()
	return nil
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, scope historymodel.Scope, id string) (historymodel.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.scopes[scope][id]
	if !ok {
		return historymodel.Item{}, ErrNotFound
	}
	return item.Clone(), nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, scope historymodel.Scope) ([]historymodel.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]historymodel.Item, 0, len(s.scopes[scope]))
	for _, it := range s.scopes[scope] {
		items = append(items, it.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	return items, nil
}

// Clear implements Store.
func (s *MemoryStore) Clear(_ context.Context, scope historymodel.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, scope)
	return nil
}
