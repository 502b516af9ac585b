// Package storage provides conversation persistence.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory, filesystem, SQLite without API changes
// - Each backend encapsulates its own layout, schema and caching

package storage

import (
	"context"
	"fmt"

	"github.com/richinex/convostore/record"
)

// ConversationStore defines the interface for persisting conversation
// records.
type ConversationStore interface {
	// Save persists a record in the current schema, replacing any
	// previous version wholesale.
	Save(ctx context.Context, rec *record.Record) error

	// Load retrieves a record by id.
	// Returns nil (not an error) if the conversation doesn't exist.
	// Returns an error only for storage failures or malformed records.
	Load(ctx context.Context, id string) (*record.Record, error)

	// Delete removes a conversation. Returns whether it existed.
	Delete(ctx context.Context, id string) (bool, error)

	// List returns metadata for every stored conversation, sorted
	// descending by last update, without loading full content.
	List(ctx context.Context) ([]ConversationMeta, error)

	// Exists checks whether a conversation exists.
	Exists(ctx context.Context, id string) (bool, error)

	// Clear removes every stored conversation.
	Clear(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// ConversationMeta is the per-conversation index entry used for cheap
// enumeration. Exactly one entry exists per stored conversation, and
// MessageCount always equals the stored message list length at last write.
type ConversationMeta struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	CreatedAt    int64    `json:"createdAt"`   // epoch ms
	LastUpdated  int64    `json:"lastUpdated"` // epoch ms
	MessageCount int      `json:"messageCount"`
	Archived     bool     `json:"archived,omitempty"`
	Tags         []string `json:"tags,omitempty"`
}

// MetaFor derives the index entry for a record.
func MetaFor(rec *record.Record) ConversationMeta {
	var tags []string
	if len(rec.Metadata.Tags) > 0 {
		tags = make([]string, len(rec.Metadata.Tags))
		copy(tags, rec.Metadata.Tags)
	}
	return ConversationMeta{
		ID:           rec.ID,
		Title:        rec.Title,
		CreatedAt:    rec.Timestamp,
		LastUpdated:  rec.LastUpdated,
		MessageCount: len(rec.Messages),
		Archived:     rec.Metadata.Archived,
		Tags:         tags,
	}
}

// WriteError reports a failed content write. The previous on-disk version
// is left intact, the cache and index are untouched, and the target path
// and conversation id travel with the error.
type WriteError struct {
	ID   string
	Path string
	Err  error
}

// Error implements the error interface.
func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to write conversation %q at %s: %v", e.ID, e.Path, e.Err)
}

// Unwrap returns the underlying cause.
func (e *WriteError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a WriteError, for errors.Is checks.
func (e *WriteError) Is(target error) bool {
	_, ok := target.(*WriteError)
	return ok
}
