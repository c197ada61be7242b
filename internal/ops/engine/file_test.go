package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/opsmesh/opsmesh/pkg/envelope"
)

func TestFileEngine_ListDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}

	eng := NewFileEngine(1024)
	listing, err := eng.ListDirectory(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing.TotalCount != 2 {
		t.Fatalf("expected 2 entries, got %d", listing.TotalCount)
	}
}

func TestFileEngine_ListDirectory_NotFound(t *testing.T) {
	eng := NewFileEngine(1024)
	_, err := eng.ListDirectory(filepath.Join(t.TempDir(), "missing"))
	if err == nil {
		t.Fatal("expected error for missing path")
	}
	opErr, ok := err.(*envelope.OpError)
	if !ok || opErr.Code != envelope.ErrPathNotFound {
		t.Fatalf("expected PATH_NOT_FOUND, got %v", err)
	}
}

func TestFileEngine_ListDirectory_NotADirectory(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(file, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := NewFileEngine(1024)
	_, err := eng.ListDirectory(file)
	opErr, ok := err.(*envelope.OpError)
	if !ok || opErr.Code != envelope.ErrNotADirectory {
		t.Fatalf("expected NOT_A_DIRECTORY, got %v", err)
	}
}

func TestFileEngine_ReadFile_RuneSizeNotByteSize(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "unicode.txt")
	// "café" is 4 runes but 5 bytes (é is 2 bytes in UTF-8).
	if err := os.WriteFile(file, []byte("café"), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := NewFileEngine(1024)
	content, err := eng.ReadFile(file)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if content.Size != 4 {
		t.Errorf("expected size 4 (rune count), got %d", content.Size)
	}
}

func TestFileEngine_ReadFile_Directory(t *testing.T) {
	dir := t.TempDir()
	eng := NewFileEngine(1024)
	_, err := eng.ReadFile(dir)
	opErr, ok := err.(*envelope.OpError)
	if !ok || opErr.Code != envelope.ErrNotAFile {
		t.Fatalf("expected NOT_A_FILE, got %v", err)
	}
}

func TestFileEngine_ReadFileChunks(t *testing.T) {
	eng := NewFileEngine(4)
	chunks := eng.ReadFileChunks("abcdefghij")
	want := []string{"abcd", "efgh", "ij"}
	if len(chunks) != len(want) {
		t.Fatalf("expected %d chunks, got %d", len(want), len(chunks))
	}
	for i, c := range want {
		if chunks[i] != c {
			t.Errorf("chunk %d: expected %q, got %q", i, c, chunks[i])
		}
	}
}

func TestFileEngine_ReadFileChunks_Empty(t *testing.T) {
	eng := NewFileEngine(4)
	if chunks := eng.ReadFileChunks(""); chunks != nil {
		t.Errorf("expected nil chunks for empty content, got %v", chunks)
	}
}

func TestFileEngine_CreateFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "new.txt")

	eng := NewFileEngine(1024)
	mod, err := eng.CreateFile(target, "hello world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mod.Success {
		t.Fatal("expected success")
	}

	got, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("file not created: %v", err)
	}
	if string(got) != "hello world" {
		t.Errorf("unexpected content: %q", got)
	}
}

func TestFileEngine_CreateFile_AlreadyExists(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "exists.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := NewFileEngine(1024)
	_, err := eng.CreateFile(target, "new content")
	opErr, ok := err.(*envelope.OpError)
	if !ok || opErr.Code != envelope.ErrFileExists {
		t.Fatalf("expected FILE_EXISTS, got %v", err)
	}
}

func TestFileEngine_EditFile_RequiresExisting(t *testing.T) {
	dir := t.TempDir()
	eng := NewFileEngine(1024)
	_, err := eng.EditFile(filepath.Join(dir, "missing.txt"), "content")
	opErr, ok := err.(*envelope.OpError)
	if !ok || opErr.Code != envelope.ErrPathNotFound {
		t.Fatalf("expected PATH_NOT_FOUND, got %v", err)
	}
}

func TestFileEngine_EditFile_Overwrites(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(target, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := NewFileEngine(1024)
	if _, err := eng.EditFile(target, "new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := os.ReadFile(target)
	if string(got) != "new" {
		t.Errorf("expected overwrite, got %q", got)
	}
}

func TestFileEngine_AppendFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(target, []byte("hello "), 0o644); err != nil {
		t.Fatal(err)
	}

	eng := NewFileEngine(1024)
	if _, err := eng.AppendFile(target, "world"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, _ := os.ReadFile(target)
	if string(got) != "hello world" {
		t.Errorf("expected appended content, got %q", got)
	}
}

func TestFileEngine_AppendFile_RequiresExisting(t *testing.T) {
	dir := t.TempDir()
	eng := NewFileEngine(1024)
	_, err := eng.AppendFile(filepath.Join(dir, "missing.txt"), "content")
	opErr, ok := err.(*envelope.OpError)
	if !ok || opErr.Code != envelope.ErrPathNotFound {
		t.Fatalf("expected PATH_NOT_FOUND, got %v", err)
	}
}
