// Package toolclient calls the operations service's unary transport on
// behalf of the turn runner, normalizing a handful of macOS/Linux home
// directory path aliases the model is prone to emitting, and retrying
// transport-level failures with a fixed delay.
package toolclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opsmesh/opsmesh/pkg/envelope"
)

// opFailureError marks an error returned by the operations service itself
// — a well-formed error envelope — as distinct from a transport failure, so
// Call knows not to retry it.
type opFailureError struct {
	message string
}

func (e *opFailureError) Error() string { return e.message }

// Client calls the operations service's POST /api/mcp/request endpoint.
type Client struct {
	baseURL    string
	http       *http.Client
	maxRetries int
	retryDelay time.Duration
	homeDir    string
}

// New constructs a Client bound to baseURL.
func New(baseURL string, timeout time.Duration, maxRetries int, retryDelay time.Duration) *Client {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = "/root"
	}
	return &Client{
		baseURL:    baseURL,
		http:       &http.Client{Timeout: timeout},
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		homeDir:    homeDir,
	}
}

// Call invokes operation with params and returns the decoded envelope's
// result field, or a structured error if the operation itself failed.
// Transport failures (connection refused, timeout, malformed body) are
// retried up to maxRetries times with a fixed delay between attempts — a
// well-formed error envelope is never retried, since retrying wouldn't
// change the outcome.
func (c *Client) Call(ctx context.Context, operation string, params map[string]any) (any, error) {
	params = c.translateParams(params)

	req := envelope.NewRequest(operation, params, false)
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding tool request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.retryDelay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.do(ctx, body)
		if err != nil {
			if opErr, ok := err.(*opFailureError); ok {
				return nil, opErr
			}
			lastErr = err
			continue
		}
		return resp, nil
	}
	return nil, fmt.Errorf("tool call %q failed after %d attempts: %w", operation, c.maxRetries+1, lastErr)
}

func (c *Client) do(ctx context.Context, body []byte) (any, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/mcp/request", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building tool request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("calling operations service: %w", err)
	}
	defer resp.Body.Close()

	var env envelope.Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding tool response: %w", err)
	}

	switch env.Type {
	case envelope.TypeResponse:
		if env.Status == envelope.StatusError {
			return nil, &opFailureError{message: fmt.Sprintf("operation failed: %s", env.ErrorMessage)}
		}
		return env.Result, nil
	case envelope.TypeError:
		return nil, &opFailureError{message: fmt.Sprintf("operation failed: %s", env.ErrorMessage)}
	default:
		return nil, fmt.Errorf("unexpected response envelope type %q", env.Type)
	}
}

// translateParams rewrites a "path" parameter's home-directory aliases
// before forwarding to the operations service, leaving every other
// parameter untouched.
func (c *Client) translateParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	path, ok := params["path"].(string)
	if !ok {
		return params
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	out["path"] = c.translatePath(path)
	return out
}

// translatePath resolves "~", "/home", and "/home/<user>/..." aliases to
// the orchestrator process's real home directory.
func (c *Client) translatePath(path string) string {
	if path == "" {
		return "."
	}

	switch {
	case path == "/home" || path == "/home/":
		return c.homeDir
	case strings.HasPrefix(path, "/home/"):
		rest := path[len("/home/"):]
		if i := strings.Index(rest, "/"); i >= 0 {
			return c.homeDir + rest[i:]
		}
		return c.homeDir
	case path == "~" || path == "~/":
		return c.homeDir
	case strings.HasPrefix(path, "~/"):
		return c.homeDir + "/" + path[len("~/"):]
	default:
		return path
	}
}

// NewCallID returns a fresh opaque tool-call identifier.
func NewCallID() string {
	return uuid.NewString()
}

// HomeDir returns the home directory this client resolves "~" and "/home"
// aliases against, so callers that need to mention it (e.g. the turn
// runner's system prompt) stay consistent with what path translation does.
func (c *Client) HomeDir() string {
	return c.homeDir
}
