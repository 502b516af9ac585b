// Index store: the single authoritative listing used for enumeration.
//
// The index holds metadata only and stays small, so it is always persisted
// wholesale in one atomic write. A missing or unparseable index file loads
// as a fresh empty index; the per-conversation files remain the source of
// truth, and FileStore.RebuildIndex offers the explicit repair path.

package storage

import (
	"encoding/json"
	"sort"
	"sync"

	"github.com/richinex/convostore/internal/fsio"
	"github.com/richinex/convostore/internal/jsonx"
	"github.com/richinex/convostore/record"
)

// IndexVersion is the current index file format version.
const IndexVersion = 1

// ConversationIndex is the on-disk index payload.
type ConversationIndex struct {
	Version       int                `json:"version"`
	LastUpdated   int64              `json:"lastUpdated"` // epoch ms of last index write
	Conversations []ConversationMeta `json:"conversations"`
}

// IndexStore maintains the listing in memory and persists it on demand.
// All methods are safe for concurrent use.
type IndexStore struct {
	io   fsio.FileIO
	path string

	mu  sync.Mutex
	idx ConversationIndex
}

// NewIndexStore creates an index store persisted at path.
func NewIndexStore(io fsio.FileIO, path string) *IndexStore {
	return &IndexStore{
		io:   io,
		path: path,
		idx:  ConversationIndex{Version: IndexVersion, Conversations: []ConversationMeta{}},
	}
}

// Load reads the index file. An absent or unparseable file yields a fresh
// empty index; only real I/O failures are errors.
func (s *IndexStore) Load() error {
	raw, err := s.io.Read(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.idx = ConversationIndex{Version: IndexVersion, Conversations: []ConversationMeta{}}
	if raw == nil {
		return nil
	}

	var loaded ConversationIndex
	if err := json.Unmarshal(raw, &loaded); err != nil {
		// Soft corruption: treat as absent, content files stay authoritative.
		return nil
	}
	if loaded.Conversations == nil {
		loaded.Conversations = []ConversationMeta{}
	}
	loaded.Version = IndexVersion
	sortMetas(loaded.Conversations)
	s.idx = loaded
	return nil
}

// Upsert replaces the entry with a matching id or appends a new one, then
// re-sorts descending by last update.
func (s *IndexStore) Upsert(meta ConversationMeta) {
	s.mu.Lock()
	defer s.mu.Unlock()

	replaced := false
	for i := range s.idx.Conversations {
		if s.idx.Conversations[i].ID == meta.ID {
			s.idx.Conversations[i] = meta
			replaced = true
			break
		}
	}
	if !replaced {
		s.idx.Conversations = append(s.idx.Conversations, meta)
	}
	sortMetas(s.idx.Conversations)
}

// Remove deletes the entry with the given id. Returns whether it existed.
func (s *IndexStore) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.idx.Conversations {
		if s.idx.Conversations[i].ID == id {
			s.idx.Conversations = append(s.idx.Conversations[:i], s.idx.Conversations[i+1:]...)
			return true
		}
	}
	return false
}

// Save persists the whole index in one atomic write.
func (s *IndexStore) Save() error {
	s.mu.Lock()
	s.idx.LastUpdated = record.NowMillis()
	snapshot := s.idx
	snapshot.Conversations = make([]ConversationMeta, len(s.idx.Conversations))
	copy(snapshot.Conversations, s.idx.Conversations)
	s.mu.Unlock()

	data, err := jsonx.MarshalIndented(snapshot)
	if err != nil {
		return err
	}
	return s.io.Write(s.path, data)
}

// Snapshot returns a copy of all entries, sorted descending by last update.
func (s *IndexStore) Snapshot() []ConversationMeta {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ConversationMeta, len(s.idx.Conversations))
	copy(out, s.idx.Conversations)
	return out
}

// IDs returns the ids of all indexed conversations, most recent first.
func (s *IndexStore) IDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, len(s.idx.Conversations))
	for i, meta := range s.idx.Conversations {
		ids[i] = meta.ID
	}
	return ids
}

// Contains reports whether an id is indexed.
func (s *IndexStore) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.idx.Conversations {
		if s.idx.Conversations[i].ID == id {
			return true
		}
	}
	return false
}

// Len returns the number of indexed conversations.
func (s *IndexStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.idx.Conversations)
}

// Reset empties the in-memory index without persisting.
func (s *IndexStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idx = ConversationIndex{Version: IndexVersion, Conversations: []ConversationMeta{}}
}

// sortMetas orders entries descending by LastUpdated, ties broken by id so
// the order is stable across saves.
func sortMetas(metas []ConversationMeta) {
	sort.SliceStable(metas, func(i, j int) bool {
		if metas[i].LastUpdated != metas[j].LastUpdated {
			return metas[i].LastUpdated > metas[j].LastUpdated
		}
		return metas[i].ID < metas[j].ID
	})
}
