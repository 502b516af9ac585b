package config

import (
	"os"
	"testing"
	"time"
)

func TestNewValidBackend(t *testing.T) {
	settings, err := New("file")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Backend != "file" {
		t.Errorf("expected backend 'file', got %q", settings.Backend)
	}
	if settings.Storage.BaseDir == "" {
		t.Error("expected a default base directory")
	}
}

func TestNewWithAlias(t *testing.T) {
	settings, err := New("mem")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Backend != "memory" {
		t.Errorf("expected backend 'memory' (normalized from 'mem'), got %q", settings.Backend)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New("unknown_backend")
	if err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestNewEmptyFallsBackToEnv(t *testing.T) {
	original := os.Getenv("CONVOSTORE_BACKEND")
	os.Setenv("CONVOSTORE_BACKEND", "sqlite")
	defer os.Setenv("CONVOSTORE_BACKEND", original)

	settings, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Backend != "sqlite" {
		t.Errorf("expected backend 'sqlite' from env, got %q", settings.Backend)
	}
	if settings.Storage.SqlitePath == "" {
		t.Error("expected a default sqlite path")
	}
}

func TestNewEmptyEverywhereUsesDefault(t *testing.T) {
	original := os.Getenv("CONVOSTORE_BACKEND")
	os.Unsetenv("CONVOSTORE_BACKEND")
	defer os.Setenv("CONVOSTORE_BACKEND", original)

	settings, err := New("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Backend != DefaultBackend {
		t.Errorf("expected default backend %q, got %q", DefaultBackend, settings.Backend)
	}
}

func TestNewDirOverride(t *testing.T) {
	original := os.Getenv("CONVOSTORE_DIR")
	os.Setenv("CONVOSTORE_DIR", "/tmp/custom")
	defer os.Setenv("CONVOSTORE_DIR", original)

	settings, err := New("file")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Storage.BaseDir != "/tmp/custom" {
		t.Errorf("expected overridden dir, got %q", settings.Storage.BaseDir)
	}
}

func TestNewDebounceOverride(t *testing.T) {
	original := os.Getenv("CONVOSTORE_INDEX_DEBOUNCE_MS")
	os.Setenv("CONVOSTORE_INDEX_DEBOUNCE_MS", "50")
	defer os.Setenv("CONVOSTORE_INDEX_DEBOUNCE_MS", original)

	settings, err := New("file")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if settings.Storage.IndexDebounce != 50*time.Millisecond {
		t.Errorf("expected 50ms debounce, got %v", settings.Storage.IndexDebounce)
	}
}

func TestNewWithInvalidEnvVar(t *testing.T) {
	original := os.Getenv("CONVOSTORE_INDEX_DEBOUNCE_MS")
	os.Setenv("CONVOSTORE_INDEX_DEBOUNCE_MS", "not-a-number")
	defer os.Setenv("CONVOSTORE_INDEX_DEBOUNCE_MS", original)

	_, err := New("file")
	if err == nil {
		t.Error("expected error for invalid CONVOSTORE_INDEX_DEBOUNCE_MS")
	}
}

func TestMustNewPanics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic for unknown backend")
		}
	}()
	MustNew("unknown_backend")
}

func TestSupportedBackends(t *testing.T) {
	names := SupportedBackends()
	if len(names) == 0 {
		t.Error("expected at least one supported backend")
	}
}
