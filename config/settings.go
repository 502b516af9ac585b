// Package config provides application settings loaded from environment variables.
//
// Settings are created via New() which handles:
// - Environment variable parsing with validation
// - Default value application
// - Backend-specific configuration lookup
//
// The core storage packages take all of these values as constructor
// parameters; only embedding applications (the CLI, the examples) read
// the environment through this package.

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Settings holds all application configuration.
type Settings struct {
	Backend string
	Storage StorageConfig
}

// StorageConfig holds storage backend configuration.
type StorageConfig struct {
	BaseDir       string
	SqlitePath    string
	IndexDebounce time.Duration
}

// backendInfo holds configuration for a specific storage backend.
type backendInfo struct {
	pathEnv     string
	defaultPath string
}

// Supported backends and their configuration.
var backends = map[string]backendInfo{
	"file":   {"CONVOSTORE_DIR", "./convostore-data"},
	"sqlite": {"CONVOSTORE_SQLITE_PATH", "./convostore-data/conversations.db"},
	"memory": {"", ""},
}

// Backend aliases map to canonical names.
var backendAliases = map[string]string{
	"fs":   "file",
	"db":   "sqlite",
	"mem":  "memory",
	"json": "file",
}

// DefaultBackend is used when no backend is specified anywhere.
const DefaultBackend = "file"

// New creates settings for the specified backend, loading values from
// environment variables. An empty backend falls back to CONVOSTORE_BACKEND,
// then to the default. Returns an error if the backend is unknown or
// environment variables contain invalid values.
func New(backend string) (Settings, error) {
	if backend == "" {
		backend = os.Getenv("CONVOSTORE_BACKEND")
	}
	if backend == "" {
		backend = DefaultBackend
	}
	backend = normalizeBackend(backend)

	info, err := getBackendInfo(backend)
	if err != nil {
		return Settings{}, err
	}

	debounceMs, err := getEnvInt("CONVOSTORE_INDEX_DEBOUNCE_MS", 500)
	if err != nil {
		return Settings{}, err
	}
	if debounceMs < 0 {
		debounceMs = 0
	}

	storage := StorageConfig{
		IndexDebounce: time.Duration(debounceMs) * time.Millisecond,
	}

	switch backend {
	case "file":
		storage.BaseDir = pathOrDefault(info)
	case "sqlite":
		storage.SqlitePath = pathOrDefault(info)
	}

	return Settings{
		Backend: backend,
		Storage: storage,
	}, nil
}

// MustNew creates settings for the specified backend.
// Panics if the backend is unknown or environment variables are invalid.
// Use this only when configuration errors should be fatal.
func MustNew(backend string) Settings {
	settings, err := New(backend)
	if err != nil {
		panic(fmt.Sprintf("config: %v", err))
	}
	return settings
}

// normalizeBackend converts backend aliases to canonical names.
func normalizeBackend(backend string) string {
	backend = strings.ToLower(backend)
	if canonical, ok := backendAliases[backend]; ok {
		return canonical
	}
	return backend
}

// getBackendInfo returns configuration for a backend.
func getBackendInfo(backend string) (backendInfo, error) {
	info, ok := backends[backend]
	if !ok {
		return backendInfo{}, fmt.Errorf("unknown backend: %q", backend)
	}
	return info, nil
}

// pathOrDefault reads the backend's path variable, falling back to its default.
func pathOrDefault(info backendInfo) string {
	if val := os.Getenv(info.pathEnv); val != "" {
		return val
	}
	return info.defaultPath
}

// SupportedBackends returns the list of supported backend names.
func SupportedBackends() []string {
	result := make([]string, 0, len(backends))
	for name := range backends {
		result = append(result, name)
	}
	return result
}

// Environment variable helpers with proper error handling

func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: %q: %w", key, val, err)
	}
	return i, nil
}
