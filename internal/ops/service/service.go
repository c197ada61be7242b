// Package service implements the Protocol Layer: it dispatches a decoded
// request envelope to the right engine call and shapes the result (or
// error) into the fields a transport needs to build a response envelope.
// No transport concern (HTTP, JSON framing, WebSocket multiplexing) lives
// here — that's internal/ops/transport's job.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/opsmesh/opsmesh/internal/ops/engine"
	"github.com/opsmesh/opsmesh/pkg/envelope"
)

// Service dispatches operations by name to the engine that implements them.
type Service struct {
	Files    *engine.FileEngine
	Search   *engine.SearchEngine
	Commands *engine.CommandEngine
}

// New constructs a Service wired to the three engines.
func New(files *engine.FileEngine, search *engine.SearchEngine, commands *engine.CommandEngine) *Service {
	return &Service{Files: files, Search: search, Commands: commands}
}

// Dispatch runs a non-streaming operation and returns its result payload.
func (s *Service) Dispatch(ctx context.Context, op string, params map[string]any) (any, error) {
	switch op {
	case envelope.OpListDirectory:
		if v, ok := params["path"]; ok && v != nil {
			if _, isString := v.(string); !isString {
				return nil, envelope.NewOpError(envelope.ErrInvalidParameter, "parameter path must be a string")
			}
		}
		path := optionalString(params, "path", ".")
		return s.Files.ListDirectory(path)

	case envelope.OpReadFile:
		path, err := requireString(params, "path")
		if err != nil {
			return nil, err
		}
		return s.Files.ReadFile(path)

	case envelope.OpCreateFile:
		path, err := requireString(params, "path")
		if err != nil {
			return nil, err
		}
		content := optionalString(params, "content", "")
		return s.Files.CreateFile(path, content)

	case envelope.OpEditFile:
		path, err := requireString(params, "path")
		if err != nil {
			return nil, err
		}
		content, err := requireString(params, "content")
		if err != nil {
			return nil, err
		}
		return s.Files.EditFile(path, content)

	case envelope.OpAppendFile:
		path, err := requireString(params, "path")
		if err != nil {
			return nil, err
		}
		content, err := requireString(params, "content")
		if err != nil {
			return nil, err
		}
		return s.Files.AppendFile(path, content)

	case envelope.OpGrep:
		pattern, err := requireString(params, "pattern")
		if err != nil {
			return nil, err
		}
		path := optionalString(params, "path", ".")
		caseSensitive := optionalBool(params, "case_sensitive", true)
		recursive := optionalBool(params, "recursive", false)
		return s.Search.Grep(path, pattern, caseSensitive, recursive)

	case envelope.OpExecuteCommand:
		command, err := requireString(params, "command")
		if err != nil {
			return nil, err
		}
		workingDir := optionalString(params, "working_directory", "")
		timeout := time.Duration(optionalInt(params, "timeout_seconds", 0)) * time.Second
		return s.Commands.Execute(ctx, command, workingDir, timeout)

	default:
		return nil, envelope.NewOpError(envelope.ErrUnknownOperation, fmt.Sprintf("unknown operation: %s", op))
	}
}

// Streamable reports whether op has a dedicated streaming implementation.
// Operations without one fall back to running Dispatch and delivering its
// single result as the one content chunk before the terminal sentinel.
func (s *Service) Streamable(op string) bool {
	switch op {
	case envelope.OpListDirectory, envelope.OpReadFile, envelope.OpGrep, envelope.OpExecuteCommand:
		return true
	default:
		return false
	}
}

// DispatchStream runs a streaming-capable operation, delivering chunk
// payloads on chunks. It closes chunks when the operation completes,
// whether or not an error occurred; a non-nil return value is the error to
// surface after the channel is drained.
func (s *Service) DispatchStream(ctx context.Context, op string, params map[string]any, chunks chan<- any) error {
	defer close(chunks)

	switch op {
	case envelope.OpListDirectory:
		path := optionalString(params, "path", ".")
		listing, err := s.Files.ListDirectory(path)
		if err != nil {
			return err
		}
		for _, file := range listing.Files {
			select {
			case chunks <- file:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil

	case envelope.OpReadFile:
		path, err := requireString(params, "path")
		if err != nil {
			return err
		}
		content, readErr := s.Files.ReadFile(path)
		if readErr != nil {
			return readErr
		}
		for _, window := range s.Files.ReadFileChunks(content.Content) {
			select {
			case chunks <- window:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil

	case envelope.OpGrep:
		pattern, err := requireString(params, "pattern")
		if err != nil {
			return err
		}
		path := optionalString(params, "path", ".")
		caseSensitive := optionalBool(params, "case_sensitive", true)
		recursive := optionalBool(params, "recursive", false)
		result, grepErr := s.Search.Grep(path, pattern, caseSensitive, recursive)
		if grepErr != nil {
			return grepErr
		}
		for _, match := range result.Matches {
			select {
			case chunks <- match:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil

	case envelope.OpExecuteCommand:
		command, err := requireString(params, "command")
		if err != nil {
			return err
		}
		workingDir := optionalString(params, "working_directory", "")
		includeStderr := optionalBool(params, "include_stderr", true)
		timeout := time.Duration(optionalInt(params, "timeout_seconds", 0)) * time.Second
		engineChunks := make(chan engine.CommandChunk)
		errCh := make(chan error, 1)
		go func() {
			errCh <- s.Commands.ExecuteStream(ctx, command, workingDir, timeout, includeStderr, engineChunks)
		}()
		for c := range engineChunks {
			select {
			case chunks <- c.Line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return <-errCh

	default:
		result, err := s.Dispatch(ctx, op, params)
		if err != nil {
			return err
		}
		select {
		case chunks <- result:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
}

func requireString(params map[string]any, key string) (string, *envelope.OpError) {
	v, ok := params[key]
	if !ok {
		return "", envelope.NewOpError(envelope.ErrMissingParameter, fmt.Sprintf("missing required parameter: %s", key))
	}
	s, ok := v.(string)
	if !ok {
		return "", envelope.NewOpError(envelope.ErrInvalidParameter, fmt.Sprintf("parameter %s must be a string", key))
	}
	return s, nil
}

func optionalString(params map[string]any, key, def string) string {
	if v, ok := params[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func optionalBool(params map[string]any, key string, def bool) bool {
	if v, ok := params[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

func optionalInt(params map[string]any, key string, def int) int {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}
