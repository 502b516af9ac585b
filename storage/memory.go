// Package storage: in-memory conversation store.
//
// Information Hiding:
// - Map storage structure hidden from users
// - Thread-safe access via RWMutex hidden behind interface
// - Suitable for testing and ephemeral sessions

package storage

import (
	"context"
	"sync"

	"github.com/richinex/convostore/record"
)

// MemoryStore implements ConversationStore using an in-memory map.
// Data is lost when the process terminates.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]record.Record
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]record.Record),
	}
}

// Save persists a record, replacing any previous version.
func (s *MemoryStore) Save(ctx context.Context, rec *record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	normalize(rec)

	// Store a deep-enough copy to avoid external mutations
	stored := *rec
	stored.Messages = make([]record.Message, len(rec.Messages))
	copy(stored.Messages, rec.Messages)
	stored.Migrated = false

	s.conversations[rec.ID] = stored
	rec.Migrated = false
	return nil
}

// Load retrieves a record by id. Returns nil if it doesn't exist.
func (s *MemoryStore) Load(ctx context.Context, id string) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.conversations[id]
	if !ok {
		return nil, nil
	}

	// Return a copy to avoid external mutations
	out := stored
	out.Messages = make([]record.Message, len(stored.Messages))
	copy(out.Messages, stored.Messages)
	return &out, nil
}

// Delete removes a conversation. Returns whether it existed.
func (s *MemoryStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.conversations[id]
	delete(s.conversations, id)
	return ok, nil
}

// List returns metadata for every stored conversation, most recent first.
func (s *MemoryStore) List(ctx context.Context) ([]ConversationMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	metas := make([]ConversationMeta, 0, len(s.conversations))
	for id := range s.conversations {
		rec := s.conversations[id]
		metas = append(metas, MetaFor(&rec))
	}
	sortMetas(metas)
	return metas, nil
}

// Exists checks whether a conversation exists.
func (s *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.conversations[id]
	return ok, nil
}

// Clear removes every stored conversation.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[string]record.Record)
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Verify MemoryStore implements ConversationStore
var _ ConversationStore = (*MemoryStore)(nil)
