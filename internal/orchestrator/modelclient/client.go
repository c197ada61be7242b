// Package modelclient talks to the Ollama-shaped local model inference
// endpoint: POST /api/chat for chat-with-tools completion, GET /api/tags
// for model discovery and health.
package modelclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Message is one entry of an Ollama chat request/response. Role is one of
// "system", "user", "assistant", or "tool".
type Message struct {
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// ToolCall is a model-emitted function call, as returned in an assistant message.
type ToolCall struct {
	Function FunctionCall `json:"function"`
}

// FunctionCall names the tool and carries its arguments, which Ollama may
// return either as a JSON object or as a JSON-encoded string.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// Tool describes one callable function offered to the model.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

// ToolFunction is a tool's name, description, and JSON Schema parameters.
type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Options carries the sampling parameters Ollama accepts under "options".
type Options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict"`
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Tools    []Tool    `json:"tools,omitempty"`
	Stream   bool      `json:"stream"`
	Options  Options   `json:"options"`
}

// ChatResponse is Ollama's POST /api/chat response.
type ChatResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`
}

type tagsResponse struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// Client calls a running Ollama-compatible server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client bound to baseURL with the given per-call timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// ChatParams carries the caller-tunable bits of a Chat call. Temperature and
// MaxTokens are sent as given; Chat applies no defaults, so a zero value is
// sent to the model as zero.
type ChatParams struct {
	Model       string
	Temperature float64
	MaxTokens   int
}

// Chat sends messages (and, if non-empty, the tool catalog) to the model and
// returns its reply.
func (c *Client) Chat(ctx context.Context, messages []Message, tools []Tool, params ChatParams) (*ChatResponse, error) {
	reqBody := chatRequest{
		Model:    params.Model,
		Messages: messages,
		Tools:    tools,
		Stream:   false,
		Options: Options{
			Temperature: params.Temperature,
			NumPredict:  params.MaxTokens,
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model endpoint returned %s", resp.Status)
	}

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	return &chatResp, nil
}

// Healthy reports whether GET /api/tags succeeds and returns a models list.
func (c *Client) Healthy(ctx context.Context) bool {
	_, err := c.AvailableModels(ctx)
	return err == nil
}

// AvailableModels lists the model names the server currently has loaded.
func (c *Client) AvailableModels(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, fmt.Errorf("building tags request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model endpoint returned %s", resp.Status)
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, fmt.Errorf("decoding tags response: %w", err)
	}

	names := make([]string, len(tags.Models))
	for i, m := range tags.Models {
		names[i] = m.Name
	}
	return names, nil
}
