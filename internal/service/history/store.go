package history

import (
	"context"
	"errors"

	historymodel "github.com/lunarhue/promptii/backend/internal/model/history"
)

// ErrNotFound reports a missing conversation id within a scope.
var ErrNotFound = errors.New("history item not found")

// Store is an append/update log of conversation snapshots, partitioned by
// scope. Listing order is derived from UpdatedAt at read time, so Upsert
// never reorders anything.
type Store interface {
	// Upsert replaces the item with the same id in the scope, or appends it.
	Upsert(ctx context.Context, scope historymodel.Scope, item historymodel.Item) error
	// Get returns the item with the given id, or ErrNotFound.
	Get(ctx context.Context, scope historymodel.Scope, id string) (historymodel.Item, error)
	// List returns all items of the scope, most recently updated first.
	List(ctx context.Context, scope historymodel.Scope) ([]historymodel.Item, error)
	// Clear removes every item of the scope.
	Clear(ctx context.Context, scope historymodel.Scope) error
}

// MergeScopes unions source into destination keyed by id. On collision the
// destination item wins; source items with new ids are appended. Pure and
// idempotent: merging the same source twice, or an empty source, changes
// nothing further.
func MergeScopes(source, destination []historymodel.Item) []historymodel.Item {
	merged := make([]historymodel.Item, 0, len(destination)+len(source))
	seen := make(map[string]bool, len(destination))
	for _, it := range destination {
		merged = append(merged, it)
		seen[it.ID] = true
	}
	for _, it := range source {
		if !seen[it.ID] {
			merged = append(merged, it)
			seen[it.ID] = true
		}
	}
	return merged
}

// MergeInto transplants the source scope into the destination scope through
// the store and clears the source afterwards. It is safe to call again after
// the source has been cleared: an empty source contributes nothing. Returns
// the number of items moved.
func MergeInto(ctx context.Context, store Store, source, destination historymodel.Scope) (int, error) {
	sourceItems, err := store.List(ctx, source)
	if err != nil {
		return 0, err
	}
	if len(sourceItems) == 0 {
		return 0, nil
	}

	destinationItems, err := store.List(ctx, destination)
	if err != nil {
		return 0, err
	}

	existing := make(map[string]bool, len(destinationItems))
	for _, it := range destinationItems {
		existing[it.ID] = true
	}

	moved := 0
	for _, it := range sourceItems {
		if existing[it.ID] {
			continue
		}
		if err := store.Upsert(ctx, destination, it); err != nil {
			return moved, err
		}
		moved++
	}

	if err := store.Clear(ctx, source); err != nil {
		return moved, err
	}
	return moved, nil
}
