package cli

import (
	"context"
	"strings"
	"testing"

	"github.com/richinex/convostore/record"
	"github.com/richinex/convostore/storage"
)

func seedStore(t *testing.T, ids ...string) storage.ConversationStore {
	t.Helper()
	store := storage.NewMemoryStore()
	ctx := context.Background()
	for _, id := range ids {
		rec := &record.Record{
			ID:       id,
			Title:    "Conversation " + id,
			Messages: []record.Message{{Role: record.RoleUser, Text: "hello from " + id}},
		}
		if err := store.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	return store
}

func TestResolveIDExactMatch(t *testing.T) {
	store := seedStore(t, "abc123", "abc999")

	id, err := resolveID(context.Background(), store, "abc123")
	if err != nil {
		t.Fatalf("resolveID failed: %v", err)
	}
	if id != "abc123" {
		t.Errorf("expected abc123, got %q", id)
	}
}

func TestResolveIDUniquePrefix(t *testing.T) {
	store := seedStore(t, "abc123", "def456")

	id, err := resolveID(context.Background(), store, "ab")
	if err != nil {
		t.Fatalf("resolveID failed: %v", err)
	}
	if id != "abc123" {
		t.Errorf("expected abc123, got %q", id)
	}
}

func TestResolveIDAmbiguous(t *testing.T) {
	store := seedStore(t, "abc123", "abc999")

	_, err := resolveID(context.Background(), store, "abc")
	if err == nil {
		t.Fatal("expected error for ambiguous prefix")
	}
	if !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguous error, got %v", err)
	}
}

func TestResolveIDNoMatch(t *testing.T) {
	store := seedStore(t, "abc123")

	_, err := resolveID(context.Background(), store, "zzz")
	if err == nil {
		t.Fatal("expected error for unmatched prefix")
	}
}

func TestRenderMarkdown(t *testing.T) {
	rec := &record.Record{
		ID:          "c1",
		Title:       "Greetings",
		Timestamp:   1700000000000,
		LastUpdated: 1700000000000,
		Messages: []record.Message{
			{Role: record.RoleUser, Text: "hi"},
			{Role: record.RoleModel, Text: "hello"},
		},
	}
	rec.Metadata.Tags = []string{"smalltalk"}

	md := renderMarkdown(rec)

	for _, want := range []string{"# Greetings", "`c1`", "## User", "## Model", "hi", "hello", "smalltalk"} {
		if !strings.Contains(md, want) {
			t.Errorf("markdown missing %q:\n%s", want, md)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello_world"},
		{"What's 2+2?", "whats_22"},
		{"", "untitled"},
		{"///", "untitled"},
		{strings.Repeat("a", 60), strings.Repeat("a", 40)},
	}

	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("short", 10); got != "short" {
		t.Errorf("expected unchanged string, got %q", got)
	}
	if got := truncateString("0123456789ab", 10); got != "0123456789..." {
		t.Errorf("expected truncated string, got %q", got)
	}
}
