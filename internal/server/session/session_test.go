package session

import (
	"testing"

	"github.com/clinigraph/backend/pkg/query"
)

func newTestStore() *Store {
	return NewStore(func() *query.ContextManager {
		return query.NewContextManager(query.ContextManagerParams{
			CountTokens: func(string) int { return 1 },
		})
	})
}

func TestGetCreatesOnFirstUse(t *testing.T) {
	store := newTestStore()

	first := store.Get("conv-1")
	if first == nil {
		t.Fatalf("got nil manager")
	}
	if store.Len() != 1 {
		t.Fatalf("got %d conversations, want 1", store.Len())
	}

	second := store.Get("conv-1")
	if first != second {
		t.Fatalf("same conversation returned different managers")
	}
}

func TestGetSeparatesConversations(t *testing.T) {
	store := newTestStore()
	if store.Get("a") == store.Get("b") {
		t.Fatalf("distinct conversations share a manager")
	}
	if store.Len() != 2 {
		t.Fatalf("got %d conversations, want 2", store.Len())
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore()
	store.Get("conv-1")
	store.Delete("conv-1")
	if store.Len() != 0 {
		t.Fatalf("got %d conversations after delete, want 0", store.Len())
	}
}
