package history_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lunarhue/promptii/backend/internal/model/conversation"
	historymodel "github.com/lunarhue/promptii/backend/internal/model/history"
	"github.com/lunarhue/promptii/backend/internal/service/history"
)

func item(id, title string, updated time.Time) historymodel.Item {
	return historymodel.Item{
		ID:    id,
		Title: title,
		Messages: []conversation.Message{
			{ID: id + "-m1", Sender: conversation.SenderUser, Kind: conversation.KindPlain, Text: title},
		},
		UpdatedAt: updated,
	}
}

func TestMemoryStoreUpsertAndGet(t *testing.T) {
	store := history.NewMemoryStore()
	ctx := context.Background()
	scope := historymodel.ScopeAnonymous

	first := item("c1", "first", time.Now().UTC())
	if err := store.Upsert(ctx, scope, first); err != nil {
		t.Fatalf("Upsert err: %v", err)
	}

	got, err := store.Get(ctx, scope, "c1")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Title != "first" {
		t.Fatalf("unexpected title: %q", got.Title)
	}

	// Upsert with the same id replaces, never duplicates.
	first.Title = "first updated"
	if err := store.Upsert(ctx, scope, first); err != nil {
		t.Fatalf("Upsert err: %v", err)
	}
	items, err := store.List(ctx, scope)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(items) != 1 || items[0].Title != "first updated" {
		t.Fatalf("expected single replaced item, got %v", items)
	}

	if _, err := store.Get(ctx, scope, "missing"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreListOrdersByUpdatedAtDesc(t *testing.T) {
	store := history.NewMemoryStore()
	ctx := context.Background()
	scope := historymodel.ScopeAnonymous
	base := time.Now().UTC()

	for _, it := range []historymodel.Item{
		item("old", "old", base.Add(-2*time.Hour)),
		item("new", "new", base),
		item("mid", "mid", base.Add(-time.Hour)),
	} {
		if err := store.Upsert(ctx, scope, it); err != nil {
			t.Fatalf("Upsert err: %v", err)
		}
	}

	items, err := store.List(ctx, scope)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	var ids []string
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	if len(ids) != 3 || ids[0] != "new" || ids[1] != "mid" || ids[2] != "old" {
		t.Fatalf("unexpected order: %v", ids)
	}
}

func TestMemoryStoreScopeIsolation(t *testing.T) {
	store := history.NewMemoryStore()
	ctx := context.Background()
	guest := historymodel.ScopeAnonymous
	user := historymodel.ScopeForSubject("u1")

	if err := store.Upsert(ctx, guest, item("g1", "guest item", time.Now().UTC())); err != nil {
		t.Fatalf("Upsert err: %v", err)
	}

	if _, err := store.Get(ctx, user, "g1"); !errors.Is(err, history.ErrNotFound) {
		t.Fatalf("item leaked across scopes: %v", err)
	}
	items, err := store.List(ctx, user)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("expected empty user scope, got %v", items)
	}
}

func TestMergeScopesDestinationWins(t *testing.T) {
	now := time.Now().UTC()
	source := []historymodel.Item{
		item("a", "guest a", now),
		item("b", "guest b", now),
	}
	destination := []historymodel.Item{
		item("b", "user b", now),
		item("c", "user c", now),
	}

	merged := history.MergeScopes(source, destination)

	byID := make(map[string]string, len(merged))
	for _, it := range merged {
		byID[it.ID] = it.Title
	}
	if len(merged) != 3 {
		t.Fatalf("expected 3 merged items, got %d", len(merged))
	}
	if byID["b"] != "user b" {
		t.Fatalf("destination must win on collision, got %q", byID["b"])
	}
	if byID["a"] != "guest a" || byID["c"] != "user c" {
		t.Fatalf("unexpected merge result: %v", byID)
	}
}

func TestMergeScopesIdempotent(t *testing.T) {
	now := time.Now().UTC()
	source := []historymodel.Item{item("a", "guest a", now)}
	destination := []historymodel.Item{item("b", "user b", now)}

	once := history.MergeScopes(source, destination)
	twice := history.MergeScopes(source, once)
	if len(twice) != len(once) {
		t.Fatalf("second merge grew the result: %d -> %d", len(once), len(twice))
	}
}

func TestMergeIntoMovesAndClearsSource(t *testing.T) {
	store := history.NewMemoryStore()
	ctx := context.Background()
	guest := historymodel.ScopeAnonymous
	user := historymodel.ScopeForSubject("u1")
	now := time.Now().UTC()

	for _, it := range []historymodel.Item{
		item("a", "guest a", now),
		item("b", "guest b", now),
	} {
		if err := store.Upsert(ctx, guest, it); err != nil {
			t.Fatalf("Upsert err: %v", err)
		}
	}
	if err := store.Upsert(ctx, user, item("b", "user b", now)); err != nil {
		t.Fatalf("Upsert err: %v", err)
	}

	moved, err := history.MergeInto(ctx, store, guest, user)
	if err != nil {
		t.Fatalf("MergeInto err: %v", err)
	}
	if moved != 1 {
		t.Fatalf("expected 1 moved item, got %d", moved)
	}

	got, err := store.Get(ctx, user, "b")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got.Title != "user b" {
		t.Fatalf("destination item overwritten: %q", got.Title)
	}
	if _, err := store.Get(ctx, user, "a"); err != nil {
		t.Fatalf("moved item missing from destination: %v", err)
	}

	guestItems, err := store.List(ctx, guest)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(guestItems) != 0 {
		t.Fatalf("source scope not cleared: %v", guestItems)
	}

	// Re-running against the now-empty source is a no-op.
	moved, err = history.MergeInto(ctx, store, guest, user)
	if err != nil {
		t.Fatalf("second MergeInto err: %v", err)
	}
	if moved != 0 {
		t.Fatalf("expected no-op on second merge, moved %d", moved)
	}
	userItems, err := store.List(ctx, user)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(userItems) != 2 {
		t.Fatalf("destination changed by no-op merge: %v", userItems)
	}
}

func TestMergeIntoEmptySourceLeavesDestinationAlone(t *testing.T) {
	store := history.NewMemoryStore()
	ctx := context.Background()
	guest := historymodel.ScopeAnonymous
	user := historymodel.ScopeForSubject("u1")

	if err := store.Upsert(ctx, user, item("a", "user a", time.Now().UTC())); err != nil {
		t.Fatalf("Upsert err: %v", err)
	}

	moved, err := history.MergeInto(ctx, store, guest, user)
	if err != nil {
		t.Fatalf("MergeInto err: %v", err)
	}
	if moved != 0 {
		t.Fatalf("expected 0 moved, got %d", moved)
	}
	items, err := store.List(ctx, user)
	if err != nil {
		t.Fatalf("List err: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("destination modified: %v", items)
	}
}
