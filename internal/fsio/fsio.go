// Package fsio provides the generic file-storage primitive consumed by the
// conversation store.
//
// Information Hiding:
// - Atomic write discipline (temp file + fsync + rename) encapsulated here
// - Callers never observe a partially-written file
// - "Not found" is a nil result, never an error
package fsio

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileInfo is the subset of file metadata the store cares about.
type FileInfo struct {
	Size int64
}

// FileIO is the storage primitive: single-value reads and writes keyed by
// path. Write must be atomic with respect to readers; everything else is a
// plain filesystem operation.
type FileIO interface {
	// Read returns the file contents, or nil (not an error) if the path
	// does not exist.
	Read(path string) ([]byte, error)

	// Write atomically replaces the file at path with data.
	Write(path string, data []byte) error

	// EnsureDirectory creates the directory and any missing parents.
	EnsureDirectory(path string) error

	// DeleteDirectory removes the directory tree. Returns whether it
	// existed.
	DeleteDirectory(path string) (bool, error)

	// Stat returns file metadata, or nil if the path does not exist.
	Stat(path string) (*FileInfo, error)

	// ListDir returns the entry names directly under path. It exists for
	// the index repair scan; normal operation never enumerates.
	ListDir(path string) ([]string, error)
}

// OS implements FileIO on the local filesystem.
type OS struct{}

// NewOS creates a filesystem-backed FileIO.
func NewOS() *OS {
	return &OS{}
}

// Read returns the file contents, or nil if the path does not exist.
func (o *OS) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// Write atomically replaces the file at path with data.
//
// The data is written to a uniquely-named temp file in the same directory
// (rename is only atomic within one filesystem), synced, then renamed over
// the final path. On any failure the temp file is removed and the previous
// file, if any, is left untouched.
func (o *OS) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tempPath := f.Name()

	success := false
	defer func() {
		if !success {
			f.Close()
			os.Remove(tempPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", tempPath, err)
	}

	// Sync before rename so a crash cannot surface an empty renamed file.
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to sync %s: %w", tempPath, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tempPath, err)
	}

	if err := os.Chmod(tempPath, 0644); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to set permissions on %s: %w", tempPath, err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename %s to %s: %w", tempPath, path, err)
	}

	success = true
	return nil
}

// EnsureDirectory creates the directory and any missing parents.
func (o *OS) EnsureDirectory(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// DeleteDirectory removes the directory tree. Returns whether it existed.
func (o *OS) DeleteDirectory(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if err := os.RemoveAll(path); err != nil {
		return false, fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return true, nil
}

// Stat returns file metadata, or nil if the path does not exist.
func (o *OS) Stat(path string) (*FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return &FileInfo{Size: info.Size()}, nil
}

// ListDir returns the entry names directly under path. An absent directory
// yields an empty list.
func (o *OS) ListDir(path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list %s: %w", path, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Verify OS implements FileIO
var _ FileIO = (*OS)(nil)
