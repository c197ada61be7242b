package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opsmesh/opsmesh/internal/ops/engine"
	"github.com/opsmesh/opsmesh/pkg/envelope"
)

func newTestService() *Service {
	return New(
		engine.NewFileEngine(1024),
		engine.NewSearchEngine(10),
		engine.NewCommandEngine(5*time.Second),
	)
}

func TestService_Dispatch_ListDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := newTestService()
	result, err := svc.Dispatch(context.Background(), envelope.OpListDirectory, map[string]any{"path": dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	listing, ok := result.(*engine.DirectoryListing)
	if !ok || listing.TotalCount != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestService_Dispatch_MissingParameter(t *testing.T) {
	svc := newTestService()
	_, err := svc.Dispatch(context.Background(), envelope.OpReadFile, map[string]any{})
	opErr, ok := err.(*envelope.OpError)
	if !ok || opErr.Code != envelope.ErrMissingParameter {
		t.Fatalf("expected MISSING_PARAMETER, got %v", err)
	}
}

func TestService_Dispatch_ListDirectory_DefaultsPathToCurrentDirectory(t *testing.T) {
	svc := newTestService()
	_, err := svc.Dispatch(context.Background(), envelope.OpListDirectory, map[string]any{})
	if err != nil {
		t.Fatalf("expected path to default to \".\", got error: %v", err)
	}
}

func TestService_Dispatch_Grep_DefaultsPathToCurrentDirectory(t *testing.T) {
	svc := newTestService()
	_, err := svc.Dispatch(context.Background(), envelope.OpGrep, map[string]any{"pattern": "x"})
	if err != nil {
		t.Fatalf("expected path to default to \".\", got error: %v", err)
	}
}

func TestService_Dispatch_InvalidParameterType(t *testing.T) {
	svc := newTestService()
	_, err := svc.Dispatch(context.Background(), envelope.OpListDirectory, map[string]any{"path": 5})
	opErr, ok := err.(*envelope.OpError)
	if !ok || opErr.Code != envelope.ErrInvalidParameter {
		t.Fatalf("expected INVALID_PARAMETER, got %v", err)
	}
}

func TestService_Dispatch_UnknownOperation(t *testing.T) {
	svc := newTestService()
	_, err := svc.Dispatch(context.Background(), "does_not_exist", map[string]any{})
	opErr, ok := err.(*envelope.OpError)
	if !ok || opErr.Code != envelope.ErrUnknownOperation {
		t.Fatalf("expected UNKNOWN_OPERATION, got %v", err)
	}
}

func TestService_Dispatch_CreateReadEditAppendFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.Dispatch(ctx, envelope.OpCreateFile, map[string]any{"path": target, "content": "hello"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	result, err := svc.Dispatch(ctx, envelope.OpReadFile, map[string]any{"path": target})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	content := result.(*engine.FileContent)
	if content.Content != "hello" {
		t.Errorf("unexpected content: %q", content.Content)
	}

	if _, err := svc.Dispatch(ctx, envelope.OpAppendFile, map[string]any{"path": target, "content": " world"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	result, _ = svc.Dispatch(ctx, envelope.OpReadFile, map[string]any{"path": target})
	if result.(*engine.FileContent).Content != "hello world" {
		t.Errorf("unexpected content after append: %q", result.(*engine.FileContent).Content)
	}

	if _, err := svc.Dispatch(ctx, envelope.OpEditFile, map[string]any{"path": target, "content": "replaced"}); err != nil {
		t.Fatalf("edit: %v", err)
	}
	result, _ = svc.Dispatch(ctx, envelope.OpReadFile, map[string]any{"path": target})
	if result.(*engine.FileContent).Content != "replaced" {
		t.Errorf("unexpected content after edit: %q", result.(*engine.FileContent).Content)
	}
}

func TestService_Dispatch_Grep(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("needle\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := newTestService()
	result, err := svc.Dispatch(context.Background(), envelope.OpGrep, map[string]any{
		"path": dir, "pattern": "needle",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.(*engine.SearchResult).TotalMatches != 1 {
		t.Errorf("expected 1 match, got %+v", result)
	}
}

func TestService_Dispatch_ExecuteCommand(t *testing.T) {
	svc := newTestService()
	result, err := svc.Dispatch(context.Background(), envelope.OpExecuteCommand, map[string]any{
		"command": "echo hi",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cmdResult := result.(*engine.CommandResult)
	if cmdResult.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %+v", result)
	}
	if !cmdResult.Success {
		t.Error("expected success=true")
	}
}

func TestService_Dispatch_ExecuteCommand_WorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	svc := newTestService()
	result, err := svc.Dispatch(context.Background(), envelope.OpExecuteCommand, map[string]any{
		"command":           "pwd",
		"working_directory": dir,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.(*engine.CommandResult).Stdout, dir) {
		t.Errorf("expected command to run in %q, got stdout %q", dir, result.(*engine.CommandResult).Stdout)
	}
}

func TestService_Streamable(t *testing.T) {
	svc := newTestService()
	cases := map[string]bool{
		envelope.OpReadFile:       true,
		envelope.OpGrep:           true,
		envelope.OpExecuteCommand: true,
		envelope.OpListDirectory:  true,
		envelope.OpCreateFile:     false,
	}
	for op, want := range cases {
		if got := svc.Streamable(op); got != want {
			t.Errorf("Streamable(%s) = %v, want %v", op, got, want)
		}
	}
}

func TestService_DispatchStream_ListDirectory(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	svc := newTestService()
	chunks := make(chan any, 16)
	if err := svc.DispatchStream(context.Background(), envelope.OpListDirectory, map[string]any{"path": dir}, chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var descriptors []engine.FileDescriptor
	for c := range chunks {
		fd, ok := c.(engine.FileDescriptor)
		if !ok {
			t.Fatalf("expected each chunk to be a FileDescriptor, got %T", c)
		}
		descriptors = append(descriptors, fd)
	}
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 file descriptors, got %d", len(descriptors))
	}
}

func TestService_DispatchStream_ReadFile(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(target, []byte("abcdefgh"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := New(engine.NewFileEngine(4), engine.NewSearchEngine(10), engine.NewCommandEngine(5*time.Second))
	chunks := make(chan any, 16)
	if err := svc.DispatchStream(context.Background(), envelope.OpReadFile, map[string]any{"path": target}, chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var windows []string
	for c := range chunks {
		windows = append(windows, c.(string))
	}
	if len(windows) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %v", len(windows), windows)
	}
}

func TestService_DispatchStream_Grep(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.txt"), []byte("needle\nneedle again\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	svc := newTestService()
	chunks := make(chan any, 16)
	if err := svc.DispatchStream(context.Background(), envelope.OpGrep, map[string]any{
		"path": dir, "pattern": "needle",
	}, chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var count int
	for range chunks {
		count++
	}
	if count != 2 {
		t.Errorf("expected 2 streamed matches, got %d", count)
	}
}

func TestService_DispatchStream_ExecuteCommand(t *testing.T) {
	svc := newTestService()
	chunks := make(chan any, 16)
	if err := svc.DispatchStream(context.Background(), envelope.OpExecuteCommand, map[string]any{
		"command": "echo streamed",
	}, chunks); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var last string
	var count int
	for c := range chunks {
		count++
		line, ok := c.(string)
		if !ok {
			t.Fatalf("expected each chunk to be a plain string, got %T", c)
		}
		last = line
	}
	if count == 0 {
		t.Fatal("expected at least one chunk")
	}
	if last[:10] != "EXIT_CODE:" {
		t.Errorf("expected last chunk to be the exit code line, got %q", last)
	}
}
