// Package engine implements the operations service's typed primitives over
// the host operating system: directory listing, file read/write/append,
// regex search, and command execution.
package engine

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/opsmesh/opsmesh/pkg/envelope"
)

// FileDescriptor is one entry of a directory listing.
type FileDescriptor struct {
	Name        string    `json:"name"`
	Path        string    `json:"path"`
	Kind        string    `json:"kind"` // "file" or "directory"
	Size        int64     `json:"size"`
	ModTime     time.Time `json:"last_modified"`
	Permissions string    `json:"permissions"`
}

// DirectoryListing is the list_directory result payload.
type DirectoryListing struct {
	Path       string           `json:"path"`
	Files      []FileDescriptor `json:"files"`
	TotalCount int              `json:"total_count"`
}

// FileContent is the read_file result payload.
type FileContent struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	Size     int    `json:"size"` // rune count, not byte length
	Encoding string `json:"encoding"`
}

// FileModification is the result payload shared by create_file, edit_file, append_file.
type FileModification struct {
	Path         string `json:"path"`
	Operation    string `json:"operation"`
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	BytesWritten int64  `json:"bytes_written"`
}

// FileEngine implements directory listing and file read/write/append.
type FileEngine struct {
	// ChunkRunes is the window size used by streaming reads (default 1024).
	ChunkRunes int
}

// NewFileEngine constructs a FileEngine with the given streaming chunk size.
func NewFileEngine(chunkRunes int) *FileEngine {
	if chunkRunes <= 0 {
		chunkRunes = 1024
	}
	return &FileEngine{ChunkRunes: chunkRunes}
}

// canonicalize removes "." and ".." segments. Symlinks are resolved only
// for ListDirectory.
func canonicalize(path string, resolveSymlinks bool) (string, error) {
	if path == "" {
		path = "."
	}
	clean := filepath.Clean(path)
	if !resolveSymlinks {
		return clean, nil
	}
	resolved, err := filepath.EvalSymlinks(clean)
	if err != nil {
		// Fall back to the cleaned path; the subsequent stat will surface
		// PATH_NOT_FOUND if it genuinely doesn't exist.
		return clean, nil
	}
	return resolved, nil
}

// ListDirectory lists the immediate children of path. Ordering is
// undefined — callers must not depend on it.
func (e *FileEngine) ListDirectory(path string) (*DirectoryListing, error) {
	if path == "" {
		path = "."
	}
	clean, err := canonicalize(path, true)
	if err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, envelope.NewOpError(envelope.ErrPathNotFound, fmt.Sprintf("path not found: %s", path))
		}
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}
	if !info.IsDir() {
		return nil, envelope.NewOpError(envelope.ErrNotADirectory, fmt.Sprintf("not a directory: %s", path))
	}

	entries, err := os.ReadDir(clean)
	if err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	files := make([]FileDescriptor, 0, len(entries))
	for _, entry := range entries {
		fullPath := filepath.Join(clean, entry.Name())
		fi, err := entry.Info()
		if err != nil {
			continue
		}
		kind := "file"
		if fi.IsDir() {
			kind = "directory"
		}
		files = append(files, FileDescriptor{
			Name:        entry.Name(),
			Path:        fullPath,
			Kind:        kind,
			Size:        fi.Size(),
			ModTime:     fi.ModTime(),
			Permissions: permissionString(fullPath, fi),
		})
	}

	return &DirectoryListing{Path: clean, Files: files, TotalCount: len(files)}, nil
}

// ReadFile reads the whole file content as UTF-8 text.
func (e *FileEngine) ReadFile(path string) (*FileContent, error) {
	clean, err := canonicalize(path, false)
	if err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, envelope.NewOpError(envelope.ErrPathNotFound, fmt.Sprintf("file not found: %s", path))
		}
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}
	if info.IsDir() {
		return nil, envelope.NewOpError(envelope.ErrNotAFile, fmt.Sprintf("path is a directory, not a file: %s", path))
	}

	raw, err := os.ReadFile(clean)
	if err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}
	content := string(raw)
	return &FileContent{
		Path:     clean,
		Content:  content,
		Size:     len([]rune(content)),
		Encoding: "UTF-8",
	}, nil
}

// ReadFileChunks splits content into fixed-size rune windows for streaming
// reads. An empty file yields no chunks at all — the caller emits only the
// terminal sentinel.
func (e *FileEngine) ReadFileChunks(content string) []string {
	runes := []rune(content)
	if len(runes) == 0 {
		return nil
	}
	var chunks []string
	for i := 0; i < len(runes); i += e.ChunkRunes {
		end := i + e.ChunkRunes
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
	}
	return chunks
}

// CreateFile creates path with content, materializing missing parent
// directories. Fails with FILE_EXISTS if the target already exists.
func (e *FileEngine) CreateFile(path, content string) (*FileModification, error) {
	clean, err := canonicalize(path, false)
	if err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	if _, err := os.Stat(clean); err == nil {
		return nil, envelope.NewOpError(envelope.ErrFileExists, fmt.Sprintf("file already exists: %s", path))
	}

	if parent := filepath.Dir(clean); parent != "" {
		if err := os.MkdirAll(parent, 0o755); err != nil {
			return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
		}
	}

	if err := os.WriteFile(clean, []byte(content), 0o644); err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	return &FileModification{
		Path:         clean,
		Operation:    "create",
		Success:      true,
		Message:      "File created successfully",
		BytesWritten: int64(len(content)),
	}, nil
}

// EditFile overwrites an existing file's content. The target must already exist.
func (e *FileEngine) EditFile(path, content string) (*FileModification, error) {
	clean, info, opErr := e.requireExistingFile(path)
	if opErr != nil {
		return nil, opErr
	}
	_ = info

	if err := os.WriteFile(clean, []byte(content), 0o644); err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	return &FileModification{
		Path:         clean,
		Operation:    "edit",
		Success:      true,
		Message:      "File edited successfully",
		BytesWritten: int64(len(content)),
	}, nil
}

// AppendFile appends content to an existing file. The target must already exist.
func (e *FileEngine) AppendFile(path, content string) (*FileModification, error) {
	clean, _, opErr := e.requireExistingFile(path)
	if opErr != nil {
		return nil, opErr
	}

	f, err := os.OpenFile(clean, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}
	defer f.Close()

	if _, err := f.WriteString(content); err != nil {
		return nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	return &FileModification{
		Path:         clean,
		Operation:    "append",
		Success:      true,
		Message:      "Content appended successfully",
		BytesWritten: int64(len(content)),
	}, nil
}

func (e *FileEngine) requireExistingFile(path string) (string, fs.FileInfo, *envelope.OpError) {
	clean, err := canonicalize(path, false)
	if err != nil {
		return "", nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}

	info, err := os.Stat(clean)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil, envelope.NewOpError(envelope.ErrPathNotFound, fmt.Sprintf("file not found: %s", path))
		}
		return "", nil, envelope.NewOpError(envelope.ErrIOError, err.Error())
	}
	if info.IsDir() {
		return "", nil, envelope.NewOpError(envelope.ErrNotAFile, fmt.Sprintf("path is a directory, not a file: %s", path))
	}
	return clean, info, nil
}
