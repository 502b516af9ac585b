// File-backed conversation store: the only component that talks to the raw
// file primitive.
//
// Layout under the base directory:
//
//	conversations/index.json              the ConversationIndex
//	conversations/{id}/conversation.json  one full-content file per id
//
// Information Hiding:
// - Atomic-write discipline delegated to the fsio primitive
// - Index/content ordering (content first, index after) enforced here
// - Per-id write serialization via an internal lock table
// - In-memory index updates are synchronous with content writes; only the
//   disk persistence of the index is debounced

package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/richinex/convostore/internal/fsio"
	"github.com/richinex/convostore/internal/jsonx"
	"github.com/richinex/convostore/record"
)

const (
	conversationsDirName = "conversations"
	indexFileName        = "index.json"
	conversationFileName = "conversation.json"

	// ConversationListKey is the well-known cache key holding the full
	// conversation list ([]record.Record).
	ConversationListKey = "conversations"

	// indexDebounceKey is the debouncer key for index persistence.
	indexDebounceKey = "index"

	// DefaultIndexDebounce is the quiet period for batched index writes.
	DefaultIndexDebounce = 500 * time.Millisecond
)

// conversationFile is the on-disk shape of one conversation. Legacy files
// at the same path hold the untagged flat record instead and are detected
// by the absence of the version field.
type conversationFile struct {
	Version             int              `json:"version"`
	Metadata            ConversationMeta `json:"metadata"`
	Messages            []record.Message `json:"messages"`
	SessionID           string           `json:"sessionId,omitempty"`
	AgentMode           string           `json:"agentMode,omitempty"`
	ParticipatingAgents []string         `json:"participatingAgents,omitempty"`
}

// encodeFile converts a record to its on-disk shape.
func encodeFile(rec *record.Record) conversationFile {
	return conversationFile{
		Version:             record.CurrentVersion,
		Metadata:            MetaFor(rec),
		Messages:            rec.Messages,
		SessionID:           rec.SessionID,
		AgentMode:           rec.Metadata.AgentMode,
		ParticipatingAgents: rec.Metadata.ParticipatingAgents,
	}
}

// toRecord reconstructs the in-memory record from the on-disk shape.
func (f *conversationFile) toRecord() *record.Record {
	messages := f.Messages
	if messages == nil {
		messages = []record.Message{}
	}
	return &record.Record{
		Version:     record.CurrentVersion,
		ID:          f.Metadata.ID,
		Title:       f.Metadata.Title,
		Timestamp:   f.Metadata.CreatedAt,
		LastUpdated: f.Metadata.LastUpdated,
		Messages:    messages,
		Metadata: record.Metadata{
			AgentMode:           f.AgentMode,
			ParticipatingAgents: f.ParticipatingAgents,
			Tags:                f.Metadata.Tags,
			Archived:            f.Metadata.Archived,
		},
		SessionID: f.SessionID,
	}
}

// lockTable hands out one mutex per conversation id so concurrent saves of
// the same id never interleave their write-temp/rename sequences.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the id and returns the matching unlock.
func (l *lockTable) acquire(id string) func() {
	l.mu.Lock()
	m, ok := l.locks[id]
	if !ok {
		m = &sync.Mutex{}
		l.locks[id] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}

// FileStore implements ConversationStore on the file primitive, with a
// write-through cache and debounced index persistence.
type FileStore struct {
	baseDir  string
	io       fsio.FileIO
	cache    *Cache
	index    *IndexStore
	debounce *Debouncer
	locks    *lockTable

	mu       sync.Mutex        // guards hashes and indexErr
	hashes   map[string]uint64 // id -> hash of last written content
	indexErr error             // last deferred index-write failure
}

// NewFileStore creates a file store rooted at baseDir with the OS file
// primitive and the default index debounce.
func NewFileStore(baseDir string) (*FileStore, error) {
	return NewFileStoreWith(baseDir, fsio.NewOS(), DefaultIndexDebounce)
}

// NewFileStoreWith creates a file store with an explicit file primitive and
// index debounce interval. A non-positive interval persists the index
// synchronously with every mutation.
func NewFileStoreWith(baseDir string, io fsio.FileIO, indexDebounce time.Duration) (*FileStore, error) {
	convDir := filepath.Join(baseDir, conversationsDirName)
	if err := io.EnsureDirectory(convDir); err != nil {
		return nil, fmt.Errorf("failed to prepare storage directory: %w", err)
	}

	index := NewIndexStore(io, filepath.Join(convDir, indexFileName))
	if err := index.Load(); err != nil {
		return nil, fmt.Errorf("failed to load conversation index: %w", err)
	}

	return &FileStore{
		baseDir:  baseDir,
		io:       io,
		cache:    NewCache(),
		index:    index,
		debounce: NewDebouncer(indexDebounce),
		locks:    newLockTable(),
		hashes:   make(map[string]uint64),
	}, nil
}

// conversationDir returns the per-id storage directory.
func (s *FileStore) conversationDir(id string) string {
	return filepath.Join(s.baseDir, conversationsDirName, id)
}

// conversationPath returns the per-id content file path.
func (s *FileStore) conversationPath(id string) string {
	return filepath.Join(s.conversationDir(id), conversationFileName)
}

// normalize fills derived fields so every saved record is a well-formed
// current-schema record.
func normalize(rec *record.Record) {
	rec.Version = record.CurrentVersion
	if rec.Timestamp == 0 {
		rec.Timestamp = record.NowMillis()
	}
	if rec.LastUpdated == 0 {
		rec.LastUpdated = rec.Timestamp
	}
	if rec.Messages == nil {
		rec.Messages = []record.Message{}
	}
}

// contentHash hashes the canonical encoding of a normalized record, so
// unchanged content can be skipped during reconciliation.
func contentHash(rec *record.Record) (uint64, error) {
	data, err := jsonx.Canonical(encodeFile(rec))
	if err != nil {
		return 0, err
	}
	return xxhash.Sum64(data), nil
}

// Save persists a record: content file first (atomic), then the in-memory
// index, then the debounced index write. A failed content write leaves the
// previous version, the cache and the index untouched.
func (s *FileStore) Save(ctx context.Context, rec *record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("cannot save conversation with empty id")
	}

	unlock := s.locks.acquire(rec.ID)
	defer unlock()

	normalize(rec)

	file := encodeFile(rec)
	data, err := jsonx.MarshalIndented(file)
	if err != nil {
		return fmt.Errorf("failed to encode conversation %q: %w", rec.ID, err)
	}

	path := s.conversationPath(rec.ID)
	if err := s.io.Write(path, data); err != nil {
		return &WriteError{ID: rec.ID, Path: path, Err: err}
	}

	hash, err := contentHash(rec)
	if err == nil {
		s.mu.Lock()
		s.hashes[rec.ID] = hash
		s.mu.Unlock()
	}

	// Content is durable; now the index (content-before-index ordering).
	// The migrated flag is cleared first so the cached copy never claims
	// an already-persisted record is still legacy.
	rec.Migrated = false
	s.index.Upsert(file.Metadata)
	s.scheduleIndexSave()
	s.cacheUpsert(rec)

	return nil
}

// Load reads the per-id file and decodes it, migrating legacy content
// in memory. Returns nil (not an error) if the conversation is absent;
// readers using the index as a pre-filter treat that as a soft miss.
func (s *FileStore) Load(ctx context.Context, id string) (*record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := s.io.Read(s.conversationPath(id))
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}

	return decodeStored(id, raw)
}

// decodeStored turns raw file bytes into a typed record. Decode happens
// once, here at the storage boundary; everything downstream operates on
// the current shape only. The version tag is the whole discriminator:
// anything not explicitly current, stray version tags included, decodes
// as the legacy flat record.
func decodeStored(id string, raw []byte) (*record.Record, error) {
	if record.DetectVersion(raw) != record.VersionCurrent {
		return record.DecodeLegacy(raw)
	}

	var file conversationFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, &record.MalformedRecordError{ID: id, Reason: "invalid conversation file", Cause: err}
	}
	if file.Metadata.ID == "" {
		file.Metadata.ID = id
	}
	return file.toRecord(), nil
}

// Delete removes the per-id storage unit and the index entry. Returns
// whether a record existed.
func (s *FileStore) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	unlock := s.locks.acquire(id)
	defer unlock()

	existed, err := s.io.DeleteDirectory(s.conversationDir(id))
	if err != nil {
		return false, fmt.Errorf("failed to delete conversation %q: %w", id, err)
	}

	removed := s.index.Remove(id)
	if removed {
		s.scheduleIndexSave()
	}
	s.cacheRemove(id)

	s.mu.Lock()
	delete(s.hashes, id)
	s.mu.Unlock()

	return existed || removed, nil
}

// List returns the index entries, most recently updated first. It never
// touches disk: the in-memory index is kept current by every mutation.
func (s *FileStore) List(ctx context.Context) ([]ConversationMeta, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.index.Snapshot(), nil
}

// Exists checks for the per-id content file.
func (s *FileStore) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	info, err := s.io.Stat(s.conversationPath(id))
	if err != nil {
		return false, err
	}
	return info != nil, nil
}

// Clear removes every per-id storage unit and resets the index to empty in
// one logical operation.
func (s *FileStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	// Drop any pending index write before replacing the tree.
	s.debounce.Cancel(indexDebounceKey)

	convDir := filepath.Join(s.baseDir, conversationsDirName)
	if _, err := s.io.DeleteDirectory(convDir); err != nil {
		return fmt.Errorf("failed to clear conversations: %w", err)
	}
	if err := s.io.EnsureDirectory(convDir); err != nil {
		return fmt.Errorf("failed to recreate storage directory: %w", err)
	}

	s.index.Reset()
	if err := s.index.Save(); err != nil {
		return fmt.Errorf("failed to persist empty index: %w", err)
	}

	s.cache.Set(ConversationListKey, []record.Record{})

	s.mu.Lock()
	s.hashes = make(map[string]uint64)
	s.mu.Unlock()

	return nil
}

// PreloadCache loads every readable conversation into the cache so that
// synchronous Get calls can be trusted. Unreadable records are skipped
// here; the manager's bulk load is the place that reports them.
func (s *FileStore) PreloadCache(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := []record.Record{}
	for _, id := range s.index.IDs() {
		rec, err := s.Load(ctx, id)
		if err != nil || rec == nil {
			continue
		}
		records = append(records, *rec)
	}

	s.cache.Set(ConversationListKey, records)
	return nil
}

// Get returns the cached value for key, or def if the key was never
// populated. Get never touches disk.
func (s *FileStore) Get(key string, def any) any {
	if v, ok := s.cache.Get(key); ok {
		return v
	}
	return def
}

// Update is the generic write entry point. For ConversationListKey the
// value ([]record.Record) is reconciled against the index: records present
// are saved (skipping byte-identical content), previously indexed ids
// absent from the value are deleted. Other keys are persisted as
// standalone JSON documents under the base directory.
func (s *FileStore) Update(ctx context.Context, key string, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if key == ConversationListKey {
		records, ok := value.([]record.Record)
		if !ok {
			return fmt.Errorf("conversation list update requires []record.Record, got %T", value)
		}
		return s.reconcile(ctx, records)
	}

	data, err := jsonx.MarshalIndented(value)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", key, err)
	}
	path := filepath.Join(s.baseDir, key+".json")
	if err := s.io.Write(path, data); err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}

	s.cache.Set(key, value)
	return nil
}

// reconcile maps a whole-list replacement onto per-file granularity
// without rewriting every file on every save.
func (s *FileStore) reconcile(ctx context.Context, records []record.Record) error {
	incoming := make(map[string]bool, len(records))

	for i := range records {
		rec := records[i]
		if rec.ID == "" {
			return fmt.Errorf("conversation list update contains a record with empty id")
		}
		incoming[rec.ID] = true

		normalize(&rec)
		hash, hashErr := contentHash(&rec)

		if hashErr == nil {
			s.mu.Lock()
			previous, known := s.hashes[rec.ID]
			s.mu.Unlock()
			if known && previous == hash {
				continue // unchanged content, skip the write
			}
		}

		if err := s.Save(ctx, &rec); err != nil {
			return err
		}
		records[i] = rec
	}

	// Conversations previously indexed but absent from the value are gone.
	for _, id := range s.index.IDs() {
		if !incoming[id] {
			if _, err := s.Delete(ctx, id); err != nil {
				return err
			}
		}
	}

	cached := make([]record.Record, len(records))
	copy(cached, records)
	s.cache.Set(ConversationListKey, cached)
	return nil
}

// RebuildIndex reconstructs the index from a full scan of the content
// directories. This is the explicit repair path for a lost or corrupted
// index; it is never invoked automatically.
func (s *FileStore) RebuildIndex(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	convDir := filepath.Join(s.baseDir, conversationsDirName)
	names, err := s.io.ListDir(convDir)
	if err != nil {
		return fmt.Errorf("failed to scan conversations: %w", err)
	}

	s.debounce.Cancel(indexDebounceKey)
	s.index.Reset()

	for _, name := range names {
		if name == indexFileName {
			continue
		}
		rec, err := s.Load(ctx, name)
		if err != nil || rec == nil {
			// Unreadable content cannot be indexed; it stays on disk for
			// the bulk load to report.
			continue
		}
		s.index.Upsert(MetaFor(rec))
	}

	if err := s.index.Save(); err != nil {
		return fmt.Errorf("failed to persist rebuilt index: %w", err)
	}
	return nil
}

// scheduleIndexSave batches index persistence behind the quiet period. The
// in-memory index is already current; only the disk write lags.
func (s *FileStore) scheduleIndexSave() {
	s.debounce.Trigger(indexDebounceKey, func() {
		if err := s.index.Save(); err != nil {
			s.mu.Lock()
			s.indexErr = err
			s.mu.Unlock()
		}
	})
}

// cacheUpsert keeps the cached conversation list in sync with a save.
func (s *FileStore) cacheUpsert(rec *record.Record) {
	v, ok := s.cache.Get(ConversationListKey)
	if !ok {
		return // cache not preloaded yet
	}
	records, ok := v.([]record.Record)
	if !ok {
		return
	}

	updated := make([]record.Record, 0, len(records)+1)
	replaced := false
	for _, existing := range records {
		if existing.ID == rec.ID {
			updated = append(updated, *rec)
			replaced = true
		} else {
			updated = append(updated, existing)
		}
	}
	if !replaced {
		updated = append(updated, *rec)
	}
	s.cache.Set(ConversationListKey, updated)
}

// cacheRemove keeps the cached conversation list in sync with a delete.
func (s *FileStore) cacheRemove(id string) {
	v, ok := s.cache.Get(ConversationListKey)
	if !ok {
		return
	}
	records, ok := v.([]record.Record)
	if !ok {
		return
	}

	updated := make([]record.Record, 0, len(records))
	for _, existing := range records {
		if existing.ID != id {
			updated = append(updated, existing)
		}
	}
	s.cache.Set(ConversationListKey, updated)
}

// Flush forces any pending index write to disk and reports a deferred
// index-write failure, if one occurred.
func (s *FileStore) Flush() error {
	s.debounce.Flush()

	s.mu.Lock()
	err := s.indexErr
	s.indexErr = nil
	s.mu.Unlock()
	return err
}

// Close flushes pending writes and releases resources.
func (s *FileStore) Close() error {
	s.debounce.Close()

	s.mu.Lock()
	err := s.indexErr
	s.indexErr = nil
	s.mu.Unlock()
	return err
}

// Verify FileStore implements ConversationStore
var _ ConversationStore = (*FileStore)(nil)
