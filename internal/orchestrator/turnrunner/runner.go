// Package turnrunner implements the orchestrator's turn state machine:
// bind or create a conversation, append the user's message, ask the model
// for a response with the tool catalog attached, run any tool calls it
// requests, feed their results back, and ask once more for a final answer
// without the catalog attached.
package turnrunner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opsmesh/opsmesh/internal/orchestrator/catalog"
	"github.com/opsmesh/opsmesh/internal/orchestrator/config"
	"github.com/opsmesh/opsmesh/internal/orchestrator/modelclient"
	"github.com/opsmesh/opsmesh/internal/orchestrator/store"
	"github.com/opsmesh/opsmesh/internal/orchestrator/toolclient"
)

// Runner drives one turn of a conversation end to end.
type Runner struct {
	Store  *store.Store
	Model  *modelclient.Client
	Tools  *toolclient.Client
	Config config.Config
	Log    *slog.Logger
}

// New constructs a Runner.
func New(st *store.Store, model *modelclient.Client, tools *toolclient.Client, cfg config.Config, log *slog.Logger) *Runner {
	return &Runner{Store: st, Model: model, Tools: tools, Config: cfg, Log: log}
}

// Request is one caller-submitted turn.
type Request struct {
	ConversationID string
	Message        string
	Model          string
	EnableTools    bool
	Temperature    *float64
	MaxTokens      *int
}

// Result is the outcome of one turn.
type Result struct {
	ConversationID  string
	Assistant       store.Message
	ModelUsed       string
	ToolCallResults []store.ToolCallResult
	ElapsedMillis   int64
}

// Run executes one full turn.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.NewString()
	}

	if !r.Store.Exists(conversationID) {
		systemMsg := store.NewMessage("system", r.systemPrompt(), conversationID)
		r.Store.Append(systemMsg)
	}

	userMsg := store.NewMessage("user", req.Message, conversationID)
	r.Store.Append(userMsg)

	history := r.Store.History(conversationID)
	messages := r.buildModelMessages(history)

	var tools []modelclient.Tool
	if r.Config.ToolsEnabled && req.EnableTools {
		tools = catalog.Tools
	}

	params := modelclient.ChatParams{
		Model:       firstNonEmpty(req.Model, r.Config.DefaultModel),
		Temperature: firstNonZeroFloat(req.Temperature, r.Config.DefaultTemp),
		MaxTokens:   firstNonZeroInt(req.MaxTokens, r.Config.DefaultMaxTokens),
	}

	resp, err := r.Model.Chat(ctx, messages, tools, params)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	toolCalls := parseToolCalls(resp.Message)

	var results []store.ToolCallResult
	var assistantContent string
	modelUsed := resp.Model

	if len(toolCalls) == 0 {
		assistantContent = fallback(resp.Message.Content, "I wasn't able to generate a response.")
	} else {
		if len(toolCalls) > r.Config.MaxCallsPerTurn {
			r.Log.Warn("truncating tool calls for turn", "requested", len(toolCalls), "limit", r.Config.MaxCallsPerTurn)
			toolCalls = toolCalls[:r.Config.MaxCallsPerTurn]
		}

		results = r.runToolCalls(ctx, toolCalls)

		toolResultMsg := modelclient.Message{Role: "tool", Content: formatToolResults(results)}
		finalMessages := append(append([]modelclient.Message{}, messages...), toolResultMsg)

		finalResp, err := r.Model.Chat(ctx, finalMessages, nil, params)
		if err != nil {
			return nil, fmt.Errorf("generating final response: %w", err)
		}
		assistantContent = fallback(finalResp.Message.Content, "I wasn't able to process the tool results properly.")
		modelUsed = finalResp.Model
	}

	assistantMsg := store.NewMessage("assistant", assistantContent, conversationID)
	assistantMsg.ToolCallResults = results
	r.Store.Append(assistantMsg)

	return &Result{
		ConversationID:  conversationID,
		Assistant:       assistantMsg,
		ModelUsed:       modelUsed,
		ToolCallResults: results,
		ElapsedMillis:   time.Since(start).Milliseconds(),
	}, nil
}

// buildModelMessages converts stored history to Ollama-shaped messages. The
// system-context message is part of that history — Run persists it once, on
// a conversation's first turn — so this just maps straight across.
func (r *Runner) buildModelMessages(history []store.Message) []modelclient.Message {
	messages := make([]modelclient.Message, 0, len(history))
	for _, msg := range history {
		messages = append(messages, modelclient.Message{Role: msg.Role, Content: msg.Content})
	}
	return messages
}

func (r *Runner) systemPrompt() string {
	homeDir := r.Tools.HomeDir()
	return "You are an AI assistant with access to tools for file operations and system commands. " +
		"Important system context: " +
		"- The current user's home directory is " + homeDir + " " +
		"- Use absolute paths when possible " +
		"- When users ask for 'my home directory' or 'home directory', use " + homeDir + " " +
		"- Common paths: /tmp for temp files, " + homeDir + " for user home " +
		"Always use the available tools to help users with file operations, system commands, and information gathering."
}

// runToolCalls fans calls out across goroutines bounded by MaxCallsPerTurn
// concurrent in flight, using a manual semaphore channel plus
// sync.WaitGroup rather than an errgroup.
func (r *Runner) runToolCalls(ctx context.Context, calls []store.ToolCall) []store.ToolCallResult {
	results := make([]store.ToolCallResult, len(calls))
	sem := make(chan struct{}, r.Config.MaxCallsPerTurn)
	var wg sync.WaitGroup

	for i, call := range calls {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, call store.ToolCall) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = r.runOneToolCall(ctx, call)
		}(i, call)
	}

	wg.Wait()
	return results
}

func (r *Runner) runOneToolCall(ctx context.Context, call store.ToolCall) store.ToolCallResult {
	r.Log.Info("executing tool call", "name", call.Name, "id", call.ID)
	result, err := r.Tools.Call(ctx, call.Name, call.Parameters)
	if err != nil {
		r.Log.Error("tool call failed", "name", call.Name, "id", call.ID, "error", err)
		return store.ToolCallResult{ID: call.ID, Name: call.Name, Success: false, Error: err.Error()}
	}
	return store.ToolCallResult{ID: call.ID, Name: call.Name, Success: true, Result: result}
}

// parseToolCalls converts the model's tool_calls payload to the store's
// ToolCall shape, tolerating Ollama's two observed argument encodings: a
// JSON object, or a JSON-encoded string containing one.
func parseToolCalls(msg modelclient.Message) []store.ToolCall {
	if len(msg.ToolCalls) == 0 {
		return nil
	}

	calls := make([]store.ToolCall, 0, len(msg.ToolCalls))
	for _, tc := range msg.ToolCalls {
		params := map[string]any{}
		raw := tc.Function.Arguments
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &params); err != nil {
				var asString string
				if err := json.Unmarshal(raw, &asString); err == nil {
					_ = json.Unmarshal([]byte(asString), &params)
				}
			}
		}
		calls = append(calls, store.ToolCall{
			ID:         uuid.NewString(),
			Name:       tc.Function.Name,
			Parameters: params,
		})
	}
	return calls
}

func formatToolResults(results []store.ToolCallResult) string {
	var b strings.Builder
	b.WriteString("Tool execution results:\n")
	for _, res := range results {
		fmt.Fprintf(&b, "- %s: ", res.Name)
		if res.Success {
			b.WriteString("SUCCESS - ")
			if res.Result != nil {
				if encoded, err := json.Marshal(res.Result); err == nil {
					b.Write(encoded)
				}
			}
		} else {
			b.WriteString("ERROR - ")
			b.WriteString(res.Error)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func fallback(content, def string) string {
	if strings.TrimSpace(content) == "" {
		return def
	}
	return content
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func firstNonZeroFloat(a *float64, b float64) float64 {
	if a != nil {
		return *a
	}
	return b
}

func firstNonZeroInt(a *int, b int) int {
	if a != nil {
		return *a
	}
	return b
}
