package session

import (
	"sync"

	"github.com/clinigraph/backend/pkg/query"
)

// Store holds one conversation context manager per active conversation.
// Conversations live in memory; a restart clears them.
type Store struct {
	mu       sync.Mutex
	managers map[string]*query.ContextManager
	factory  func() *query.ContextManager
}

func NewStore(factory func() *query.ContextManager) *Store {
	return &Store{
		managers: make(map[string]*query.ContextManager),
		factory:  factory,
	}
}

// Get returns the conversation's context manager, creating one on first use.
func (s *Store) Get(id string) *query.ContextManager {
	s.mu.Lock()
	defer s.mu.Unlock()
	manager, ok := s.managers[id]
	if !ok {
		manager = s.factory()
		s.managers[id] = manager
	}
	return manager
}

// Delete drops a conversation and its history.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.managers, id)
}

// Len reports the number of active conversations.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.managers)
}
