// Package api exposes the orchestrator's HTTP surface: send a chat
// message, fetch or clear a conversation's history, list active
// conversations, and report health/capabilities.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/opsmesh/opsmesh/internal/orchestrator/config"
	"github.com/opsmesh/opsmesh/internal/orchestrator/modelclient"
	"github.com/opsmesh/opsmesh/internal/orchestrator/store"
	"github.com/opsmesh/opsmesh/internal/orchestrator/toolclient"
	"github.com/opsmesh/opsmesh/internal/orchestrator/turnrunner"
)

// Server wires the turn runner onto chi's router.
type Server struct {
	runner *turnrunner.Runner
	store  *store.Store
	model  *modelclient.Client
	tools  *toolclient.Client
	cfg    config.Config
	log    *slog.Logger
}

// NewServer builds a Server ready to be handed to http.ListenAndServe.
func NewServer(runner *turnrunner.Runner, st *store.Store, model *modelclient.Client, tools *toolclient.Client, cfg config.Config, log *slog.Logger) *Server {
	return &Server{runner: runner, store: st, model: model, tools: tools, cfg: cfg, log: log}
}

// Handler returns the fully configured chi router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)

	r.Route("/api/chat", func(r chi.Router) {
		r.Post("/message", s.handleSendMessage)
		r.Get("/conversation/{conversationID}/history", s.handleGetHistory)
		r.Delete("/conversation/{conversationID}", s.handleClearConversation)
		r.Get("/conversations", s.handleListConversations)
		r.Get("/health", s.handleHealth)
		r.Get("/capabilities", s.handleCapabilities)
		r.Get("/ping", s.handlePing)
	})

	return r
}

// corsMiddleware allows any origin, for arbitrary frontend integration.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type sendMessageRequest struct {
	Message        string   `json:"message"`
	ConversationID string   `json:"conversation_id"`
	Model          string   `json:"model"`
	EnableTools    *bool    `json:"enable_tools"`
	Temperature    *float64 `json:"temperature"`
	MaxTokens      *int     `json:"max_tokens"`
}

type chatResponse struct {
	Message        store.Message          `json:"message"`
	ConversationID string                 `json:"conversation_id"`
	ModelUsed      string                 `json:"model_used"`
	ToolCallsMade  []store.ToolCallResult `json:"tool_calls_made"`
	ProcessingMs   int64                  `json:"processing_time_ms"`
	Timestamp      time.Time              `json:"timestamp"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message must not be blank")
		return
	}

	s.log.Info("received chat message", "chars", len(req.Message))

	enableTools := true
	if req.EnableTools != nil {
		enableTools = *req.EnableTools
	}

	result, err := s.runner.Run(r.Context(), turnrunner.Request{
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Model:          req.Model,
		EnableTools:    enableTools,
		Temperature:    req.Temperature,
		MaxTokens:      req.MaxTokens,
	})
	if err != nil {
		s.log.Error("failed to process chat message", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process chat message")
		return
	}

	s.log.Info("chat response sent", "conversation_id", result.ConversationID)
	writeJSON(w, http.StatusOK, chatResponse{
		Message:        result.Assistant,
		ConversationID: result.ConversationID,
		ModelUsed:      result.ModelUsed,
		ToolCallsMade:  result.ToolCallResults,
		ProcessingMs:   result.ElapsedMillis,
		Timestamp:      time.Now(),
	})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	writeJSON(w, http.StatusOK, s.store.History(conversationID))
}

func (s *Server) handleClearConversation(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	s.store.Clear(conversationID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message":         "Conversation cleared successfully",
		"conversation_id": conversationID,
	})
}

func (s *Server) handleListConversations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": s.store.ActiveConversations(),
		"count":         s.store.Count(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	modelHealthy := s.model.Healthy(ctx)
	toolsHealthy := s.checkToolsHealthy(ctx)
	overall := modelHealthy && toolsHealthy

	status := "healthy"
	code := http.StatusOK
	if !overall {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status": status,
		"services": map[string]any{
			"model": map[string]bool{"healthy": modelHealthy},
			"tools": map[string]bool{"healthy": toolsHealthy},
		},
		"tools_enabled": s.cfg.ToolsEnabled,
	})
}

func (s *Server) checkToolsHealthy(ctx context.Context) bool {
	_, err := s.tools.Call(ctx, "list_directory", map[string]any{"path": "."})
	return err == nil
}

func (s *Server) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	models, err := s.model.AvailableModels(ctx)
	if err != nil {
		models = nil
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"models":                  models,
		"tools_enabled":           s.cfg.ToolsEnabled,
		"max_tool_calls_per_turn": s.cfg.MaxCallsPerTurn,
	})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Chat service is running",
		"timestamp": time.Now().UnixMilli(),
		"service":   "opsmesh-orchestrator",
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
