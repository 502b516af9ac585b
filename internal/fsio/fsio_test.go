package fsio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReadMissingFileReturnsNil(t *testing.T) {
	io := NewOS()

	data, err := io.Read(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if data != nil {
		t.Errorf("expected nil for missing file, got %q", data)
	}
}

func TestWriteAndRead(t *testing.T) {
	io := NewOS()
	path := filepath.Join(t.TempDir(), "sub", "file.json")

	if err := io.Write(path, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, err := io.Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if string(data) != `{"a":1}` {
		t.Errorf("unexpected contents: %q", data)
	}
}

func TestWriteReplacesExisting(t *testing.T) {
	io := NewOS()
	path := filepath.Join(t.TempDir(), "file.json")

	if err := io.Write(path, []byte("old")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := io.Write(path, []byte("new")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	data, _ := io.Read(path)
	if string(data) != "new" {
		t.Errorf("expected 'new', got %q", data)
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	io := NewOS()
	dir := t.TempDir()

	if err := io.Write(filepath.Join(dir, "file.json"), []byte("data")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestDeleteDirectory(t *testing.T) {
	io := NewOS()
	dir := filepath.Join(t.TempDir(), "conv")

	existed, err := io.DeleteDirectory(dir)
	if err != nil {
		t.Fatalf("DeleteDirectory failed: %v", err)
	}
	if existed {
		t.Error("expected existed=false for missing directory")
	}

	if err := io.EnsureDirectory(dir); err != nil {
		t.Fatalf("EnsureDirectory failed: %v", err)
	}
	if err := io.Write(filepath.Join(dir, "f.json"), []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	existed, err = io.DeleteDirectory(dir)
	if err != nil {
		t.Fatalf("DeleteDirectory failed: %v", err)
	}
	if !existed {
		t.Error("expected existed=true")
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("expected directory to be gone")
	}
}

func TestListDir(t *testing.T) {
	io := NewOS()
	dir := t.TempDir()

	names, err := io.ListDir(filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("ListDir failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("expected empty list for missing dir, got %v", names)
	}

	if err := io.EnsureDirectory(filepath.Join(dir, "a")); err != nil {
		t.Fatalf("EnsureDirectory failed: %v", err)
	}
	if err := io.Write(filepath.Join(dir, "b.json"), []byte("x")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	names, err = io.ListDir(dir)
	if err != nil {
		t.Fatalf("ListDir failed: %v", err)
	}
	if len(names) != 2 {
		t.Errorf("expected 2 entries, got %v", names)
	}
}

func TestStat(t *testing.T) {
	io := NewOS()
	path := filepath.Join(t.TempDir(), "file.json")

	info, err := io.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info != nil {
		t.Error("expected nil info for missing file")
	}

	if err := io.Write(path, []byte("1234")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	info, err = io.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info == nil || info.Size != 4 {
		t.Errorf("expected size 4, got %+v", info)
	}
}
