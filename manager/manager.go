// Package manager is the façade external collaborators talk to, and the
// home of the load-time migration decision.
//
// Information Hiding:
// - Backend choice hidden behind storage.ConversationStore
// - Write-back of migrated legacy records decided here, nowhere else
// - Title and id derivation rules for new conversations kept internal
package manager

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/richinex/convostore/record"
	"github.com/richinex/convostore/storage"
)

// maxTitleRunes caps derived conversation titles.
const maxTitleRunes = 50

// defaultTitle is used when no user message is available to derive from.
const defaultTitle = "New Conversation"

// LoadFailure records one conversation that could not be loaded during a
// bulk operation.
type LoadFailure struct {
	ID  string
	Err error
}

// BatchResult is the outcome of a bulk load: partial success is the
// normal shape, not an error.
type BatchResult struct {
	Successful []record.Record
	Failed     []LoadFailure
}

// Manager exposes conversation operations over a pluggable store.
type Manager struct {
	store storage.ConversationStore
}

// NewManager wraps a conversation store.
func NewManager(store storage.ConversationStore) *Manager {
	return &Manager{store: store}
}

// LoadAllConversations reads every stored conversation. Legacy records are
// migrated and persisted back before being returned, so the next load sees
// only current-schema data. A record that fails to parse or migrate lands
// in Failed with its id; it never aborts the rest of the batch.
func (m *Manager) LoadAllConversations(ctx context.Context) (BatchResult, error) {
	result := BatchResult{
		Successful: []record.Record{},
		Failed:     []LoadFailure{},
	}

	metas, err := m.store.List(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list conversations: %w", err)
	}

	for _, meta := range metas {
		rec, err := m.store.Load(ctx, meta.ID)
		if err != nil {
			result.Failed = append(result.Failed, LoadFailure{ID: meta.ID, Err: err})
			continue
		}
		if rec == nil {
			// Indexed but gone: a soft miss, not a failure.
			continue
		}

		if rec.Migrated {
			if err := m.store.Save(ctx, rec); err != nil {
				result.Failed = append(result.Failed, LoadFailure{ID: meta.ID, Err: err})
				continue
			}
		}

		result.Successful = append(result.Successful, *rec)
	}

	return result, nil
}

// LoadConversation loads a single conversation, applying the same
// migrate-and-write-back rule as the bulk load. Returns nil if the
// conversation does not exist.
func (m *Manager) LoadConversation(ctx context.Context, id string) (*record.Record, error) {
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	if rec.Migrated {
		if err := m.store.Save(ctx, rec); err != nil {
			return nil, fmt.Errorf("failed to persist migrated conversation %q: %w", id, err)
		}
	}

	return rec, nil
}

// SaveConversation writes a conversation in the current schema. A new id
// is minted when the caller passes none; on resave the creation timestamp,
// title and metadata of the existing record are preserved and lastUpdated
// is bumped.
func (m *Manager) SaveConversation(ctx context.Context, id string, messages []record.Message) (*record.Record, error) {
	if messages == nil {
		messages = []record.Message{}
	}
	if id == "" {
		id = uuid.NewString()
	}

	existing, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	var rec *record.Record
	if existing != nil {
		rec = existing
		rec.Messages = messages
		rec.Touch()
	} else {
		now := record.NowMillis()
		rec = &record.Record{
			Version:     record.CurrentVersion,
			ID:          id,
			Title:       deriveTitle(messages),
			Timestamp:   now,
			LastUpdated: now,
			Messages:    messages,
		}
	}

	if err := m.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// DeleteConversation removes a conversation. Returns whether it existed.
func (m *Manager) DeleteConversation(ctx context.Context, id string) (bool, error) {
	return m.store.Delete(ctx, id)
}

// ClearAllConversations removes every stored conversation.
func (m *Manager) ClearAllConversations(ctx context.Context) error {
	return m.store.Clear(ctx)
}

// ListConversations returns metadata for every stored conversation, most
// recently updated first.
func (m *Manager) ListConversations(ctx context.Context) ([]storage.ConversationMeta, error) {
	return m.store.List(ctx)
}

// SetArchived toggles the archive flag. Returns the updated record, or nil
// if the conversation does not exist.
func (m *Manager) SetArchived(ctx context.Context, id string, archived bool) (*record.Record, error) {
	rec, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, nil
	}

	rec.Metadata.Archived = archived
	rec.Touch()

	if err := m.store.Save(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// deriveTitle builds a title from the first user message, collapsing
// newlines and truncating to a display-friendly length.
func deriveTitle(messages []record.Message) string {
	for _, msg := range messages {
		if msg.Role != record.RoleUser {
			continue
		}
		title := strings.Join(strings.Fields(msg.Text), " ")
		if title == "" {
			break
		}
		runes := []rune(title)
		if len(runes) > maxTitleRunes {
			return string(runes[:maxTitleRunes]) + "..."
		}
		return title
	}
	return defaultTitle
}
