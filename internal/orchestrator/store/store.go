// Package store holds conversation history in process memory. There is no
// persistence layer here by design — history is scoped to a single
// process's lifetime.
package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// ToolCall is a model-requested invocation of a tool, before it runs.
type ToolCall struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// ToolCallResult is the outcome of running a ToolCall.
type ToolCallResult struct {
	ID      string `json:"id"`
	Name    string `json:"tool_name"`
	Success bool   `json:"success"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Message is one turn of a conversation: a user prompt, a system message,
// an assistant reply, or a synthetic tool-result message.
type Message struct {
	ID              string           `json:"id"`
	Role            string           `json:"role"` // "system", "user", "assistant", "tool"
	Content         string           `json:"content"`
	ConversationID  string           `json:"conversation_id"`
	Timestamp       time.Time        `json:"timestamp"`
	ToolCalls       []ToolCall       `json:"tool_calls,omitempty"`
	ToolCallResults []ToolCallResult `json:"tool_call_results,omitempty"`
}

// NewMessage builds a Message with a fresh ID and timestamp.
func NewMessage(role, content, conversationID string) Message {
	return Message{
		ID:             uuid.NewString(),
		Role:           role,
		Content:        content,
		ConversationID: conversationID,
		Timestamp:      time.Now(),
	}
}

// conversation guards one conversation's message slice independently of
// every other conversation's — the store's top-level mutex only protects
// the map itself, never a message append.
type conversation struct {
	mu       sync.Mutex
	messages []Message
}

// Store holds every conversation's history in memory, keyed by conversation ID.
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
}

// New constructs an empty Store.
func New() *Store {
	return &Store{conversations: make(map[string]*conversation)}
}

func (s *Store) entry(conversationID string) *conversation {
	s.mu.RLock()
	c, ok := s.conversations[conversationID]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.conversations[conversationID]; ok {
		return c
	}
	c = &conversation{}
	s.conversations[conversationID] = c
	return c
}

// Append adds msg to its conversation's history, creating the conversation
// if this is its first message.
func (s *Store) Append(msg Message) {
	c := s.entry(msg.ConversationID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, msg)
}

// Exists reports whether conversationID has any recorded history yet. It
// performs no side effect, unlike the create-if-absent entry lookup Append
// uses internally.
func (s *Store) Exists(conversationID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conversations[conversationID]
	return ok
}

// History returns a copy of conversationID's messages in append order. An
// unknown conversation ID returns nil, not an error.
func (s *Store) History(conversationID string) []Message {
	s.mu.RLock()
	c, ok := s.conversations[conversationID]
	s.mu.RUnlock()
	if !ok {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Clear removes a conversation entirely.
func (s *Store) Clear(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, conversationID)
}

// ActiveConversations returns every known conversation ID.
func (s *Store) ActiveConversations() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.conversations))
	for id := range s.conversations {
		ids = append(ids, id)
	}
	return ids
}

// Count returns the number of known conversations.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}
