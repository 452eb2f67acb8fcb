package fsutil

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_CreateAndRead(t *testing.T) {
	osfs := OSFileSystem{}
	dir := filepath.Join(t.TempDir(), "plots", "du1080")

	if err := osfs.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if !osfs.Exists(dir) {
		t.Fatalf("expected %s to exist", dir)
	}

	name := filepath.Join(dir, "spectrum.png")
	w, err := osfs.Create(name)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("png")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := osfs.ReadFile(name)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "png" {
		t.Errorf("expected %q, got %q", "png", data)
	}

	if osfs.Exists(filepath.Join(dir, "nonexistent.png")) {
		t.Error("expected nonexistent file to not exist")
	}
}

func TestMemoryFileSystem_CreateVisibleOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/chart.html")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	w.Write([]byte("<html>"))

	data, err := mfs.ReadFile("/out/chart.html")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != 0 {
		t.Errorf("expected empty file before Close, got %q", data)
	}

	w.Close()
	data, _ = mfs.ReadFile("/out/chart.html")
	if string(data) != "<html>" {
		t.Errorf("expected %q, got %q", "<html>", data)
	}

	if got := mfs.Files(); len(got) != 1 || got[0] != "/out/chart.html" {
		t.Errorf("Files() = %v", got)
	}
}

func TestMemoryFileSystem_ReadMissing(t *testing.T) {
	mfs := NewMemoryFileSystem()

	_, err := mfs.ReadFile("/missing.png")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
}

func TestMemoryFileSystem_MkdirAll(t *testing.T) {
	mfs := NewMemoryFileSystem()

	if err := mfs.MkdirAll("/a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, dir := range []string{"/a", "/a/b", "/a/b/c"} {
		if !mfs.Exists(dir) {
			t.Errorf("expected %s to exist", dir)
		}
	}
}
