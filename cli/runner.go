// Command execution for CLI commands.
//
// Information Hiding:
// - Backend selection and store construction hidden
// - Id-prefix resolution hidden
// - Output formatting hidden

package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/richinex/convostore/config"
	"github.com/richinex/convostore/internal/dsa"
	"github.com/richinex/convostore/internal/fsio"
	"github.com/richinex/convostore/manager"
	"github.com/richinex/convostore/record"
	"github.com/richinex/convostore/storage"
)

// Options holds CLI execution options.
type Options struct {
	Backend string
	Verbose bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{}
}

// openStore builds the configured backend. The returned cleanup closes it.
func openStore(opts Options) (storage.ConversationStore, func(), error) {
	settings, err := config.New(opts.Backend)
	if err != nil {
		return nil, nil, err
	}

	switch settings.Backend {
	case "file":
		store, err := storage.NewFileStoreWith(settings.Storage.BaseDir, fsio.NewOS(), settings.Storage.IndexDebounce)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case "sqlite":
		store, err := storage.OpenSqlite(settings.Storage.SqlitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		return store, func() { _ = store.Close() }, nil
	case "memory":
		store := storage.NewMemoryStore()
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend: %q", settings.Backend)
	}
}

// resolveID expands an id prefix to a full conversation id, the way git
// resolves short hashes. An exact match always wins.
func resolveID(ctx context.Context, store storage.ConversationStore, prefix string) (string, error) {
	metas, err := store.List(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to list conversations: %w", err)
	}

	trie := dsa.NewTrie[string]()
	for _, meta := range metas {
		trie.Insert(meta.ID, meta.ID)
	}

	if trie.Contains(prefix) {
		return prefix, nil
	}

	matches := trie.StartsWith(prefix)
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no conversation matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		sort.Strings(matches)
		return "", fmt.Errorf("ambiguous id %q matches %d conversations: %s",
			prefix, len(matches), strings.Join(matches, ", "))
	}
}

// List prints the conversation index, most recently updated first.
func List(ctx context.Context, includeArchived bool, opts Options) error {
	store, cleanup, err := openStore(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	metas, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	shown := 0
	for _, meta := range metas {
		if meta.Archived && !includeArchived {
			continue
		}
		shown++

		marker := " "
		if meta.Archived {
			marker = "A"
		}
		fmt.Printf("%s %-36s  %-40s  %3d msgs  %s\n",
			marker, meta.ID, truncateString(meta.Title, 40), meta.MessageCount,
			formatMillis(meta.LastUpdated))
		if opts.Verbose && len(meta.Tags) > 0 {
			fmt.Printf("    tags: %s\n", strings.Join(meta.Tags, ", "))
		}
	}

	if shown == 0 {
		fmt.Println("No conversations found.")
	}
	return nil
}

// Show prints one conversation in full. Legacy records encountered here are
// migrated and written back, same as any other load.
func Show(ctx context.Context, idPrefix string, opts Options) error {
	store, cleanup, err := openStore(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := resolveID(ctx, store, idPrefix)
	if err != nil {
		return err
	}

	mgr := manager.NewManager(store)
	rec, err := mgr.LoadConversation(ctx, id)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("conversation %q not found", id)
	}

	printConversation(rec)
	return nil
}

// Search finds conversations whose message text contains the pattern,
// using an in-memory suffix array per conversation.
func Search(ctx context.Context, pattern string, opts Options) error {
	if pattern == "" {
		return fmt.Errorf("search pattern must not be empty")
	}

	store, cleanup, err := openStore(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	mgr := manager.NewManager(store)
	result, err := mgr.LoadAllConversations(ctx)
	if err != nil {
		return err
	}

	hits := 0
	for _, rec := range result.Successful {
		var sb strings.Builder
		for _, msg := range rec.Messages {
			sb.WriteString(msg.Text)
			sb.WriteByte('\n')
		}

		sa := dsa.BuildSuffixArray(sb.String())
		count := sa.Count(pattern)
		if count == 0 {
			continue
		}
		hits++
		fmt.Printf("%-36s  %-40s  %d match(es)\n", rec.ID, truncateString(rec.Title, 40), count)
	}

	for _, failure := range result.Failed {
		fmt.Fprintf(os.Stderr, "Warning: skipped unreadable conversation %s: %v\n", failure.ID, failure.Err)
	}

	if hits == 0 {
		fmt.Printf("No conversations match %q.\n", pattern)
	}
	return nil
}

// Migrate loads every conversation, forcing write-back of legacy records,
// and reports the outcome. With rebuildIndex the index is reconstructed
// from a full content scan first (file backend only).
func Migrate(ctx context.Context, rebuildIndex bool, opts Options) error {
	store, cleanup, err := openStore(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	if rebuildIndex {
		fileStore, ok := store.(*storage.FileStore)
		if !ok {
			return fmt.Errorf("--rebuild-index requires the file backend")
		}
		if err := fileStore.RebuildIndex(ctx); err != nil {
			return err
		}
		fmt.Println("Index rebuilt from content scan.")
	}

	mgr := manager.NewManager(store)
	result, err := mgr.LoadAllConversations(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Migrated/verified %d conversation(s).\n", len(result.Successful))
	for _, failure := range result.Failed {
		fmt.Fprintf(os.Stderr, "Failed: %s: %v\n", failure.ID, failure.Err)
	}
	if len(result.Failed) > 0 {
		return fmt.Errorf("%d conversation(s) could not be migrated", len(result.Failed))
	}
	return nil
}

// Delete removes one conversation.
func Delete(ctx context.Context, idPrefix string, opts Options) error {
	store, cleanup, err := openStore(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := resolveID(ctx, store, idPrefix)
	if err != nil {
		return err
	}

	mgr := manager.NewManager(store)
	existed, err := mgr.DeleteConversation(ctx, id)
	if err != nil {
		return err
	}
	if !existed {
		return fmt.Errorf("conversation %q not found", id)
	}

	fmt.Printf("Deleted %s.\n", id)
	return nil
}

// Clear removes every conversation after an explicit confirmation.
func Clear(ctx context.Context, force bool, opts Options) error {
	store, cleanup, err := openStore(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	if !force {
		return fmt.Errorf("refusing to clear without --force")
	}

	mgr := manager.NewManager(store)
	if err := mgr.ClearAllConversations(ctx); err != nil {
		return err
	}

	fmt.Println("All conversations removed.")
	return nil
}

// Archive toggles the archive flag on one conversation.
func Archive(ctx context.Context, idPrefix string, archived bool, opts Options) error {
	store, cleanup, err := openStore(opts)
	if err != nil {
		return err
	}
	defer cleanup()

	id, err := resolveID(ctx, store, idPrefix)
	if err != nil {
		return err
	}

	mgr := manager.NewManager(store)
	rec, err := mgr.SetArchived(ctx, id, archived)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("conversation %q not found", id)
	}

	if archived {
		fmt.Printf("Archived %s.\n", id)
	} else {
		fmt.Printf("Unarchived %s.\n", id)
	}
	return nil
}

// printConversation writes one conversation to stdout.
func printConversation(rec *record.Record) {
	fmt.Printf("%s\n", rec.Title)
	fmt.Printf("id: %s\n", rec.ID)
	fmt.Printf("created: %s  updated: %s\n", formatMillis(rec.Timestamp), formatMillis(rec.LastUpdated))
	if rec.Metadata.Archived {
		fmt.Println("archived: yes")
	}
	if len(rec.Metadata.Tags) > 0 {
		fmt.Printf("tags: %s\n", strings.Join(rec.Metadata.Tags, ", "))
	}
	fmt.Println()

	for _, msg := range rec.Messages {
		fmt.Printf("[%s] %s\n", msg.Role, msg.Text)
	}
}

// formatMillis renders an epoch-ms timestamp for display.
func formatMillis(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}

// truncateString truncates a string to maxLen runes, preserving UTF-8 boundaries.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
