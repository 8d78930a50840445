package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/chatdesk/internal/composer"
	"github.com/kalambet/chatdesk/internal/ingest"
	"github.com/kalambet/chatdesk/internal/session"
	"github.com/kalambet/chatdesk/internal/storage"
	"github.com/kalambet/chatdesk/internal/upstream"
)

const maxRequestBodySize = 1 << 20 // 1MB

const (
	historyTurns    = 10
	chunkCandidates = 20
)

const defaultInstructions = "You are a helpful FAQ assistant. Answer from the reference documents when they are relevant and say so when they are not."

// Completer produces an assistant reply for a composed request.
type Completer interface {
	Complete(ctx context.Context, req upstream.ChatRequest) (string, error)
}

// Deps holds dependencies for the stub backend.
type Deps struct {
	Store *storage.Store
	// LLM is optional; when nil, /chat echoes the message back.
	LLM              Completer
	Model            string
	AdminPassword    string
	MaxContextTokens int
	Logger           *slog.Logger
}

type server struct {
	deps     Deps
	ingester *ingest.Ingester
	composer *composer.Composer
	sessions *sessions
	logger   *slog.Logger
}

// NewHandler returns the stub chat backend. It seeds the Default persona
// if the store has none.
func NewHandler(deps Deps) (http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if err := deps.Store.EnsurePersona(storage.Persona{
		Name:         session.DefaultPersona,
		Instructions: defaultInstructions,
	}); err != nil {
		return nil, fmt.Errorf("seeding default persona: %w", err)
	}

	ing := ingest.NewIngester(deps.Store)
	ing.SetLogger(logger)

	s := &server{
		deps:     deps,
		ingester: ing,
		composer: composer.New(deps.MaxContextTokens),
		sessions: newSessions(sessionTTL),
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)
	r.Post("/chat", s.handleChat)

	r.Route("/admin", func(r chi.Router) {
		r.Post("/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.sessions.require)

			r.Get("/personas", s.handleListPersonas)
			r.Post("/personas", s.handleSavePersona)
			r.Delete("/personas/{name}", s.handleDeletePersona)

			r.Get("/faqs", s.handleListDocuments)
			r.Post("/faqs", s.handleUpload)
			r.Post("/upload", s.handleUpload)
			r.Delete("/faqs/{id}", s.handleDeleteDocument)

			r.Get("/history", s.handleHistory)
			r.Post("/clear", s.handleClear)
		})
	})

	return r, nil
}

// requestLogger logs one line per request through slog.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"msg": "Chatbot backend is alive"})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type chatRequest struct {
	Message     string   `json:"message"`
	Model       string   `json:"model"`
	Persona     string   `json:"persona"`
	Temperature *float64 `json:"temperature"`
}

// handleChat answers with {"answer"} or, for handled failures, {"error"}.
// Only a malformed or empty request gets a non-2xx status.
func (s *server) handleChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "empty message"})
		return
	}
	if req.Persona == "" {
		req.Persona = session.DefaultPersona
	}

	persona, err := s.deps.Store.GetPersona(req.Persona)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusOK, map[string]string{"error": fmt.Sprintf("unknown persona %q", req.Persona)})
		return
	}
	if err != nil {
		s.logger.Error("loading persona", "persona", req.Persona, "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"error": "could not load persona"})
		return
	}

	answer, err := s.answer(r.Context(), req, persona.Instructions)
	if err != nil {
		s.logger.Warn("chat turn failed", "persona", req.Persona, "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"error": err.Error()})
		return
	}

	s.record(req.Persona, "user", req.Message)
	s.record(req.Persona, "assistant", answer)
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

func (s *server) answer(ctx context.Context, req chatRequest, instructions string) (string, error) {
	if s.deps.LLM == nil {
		return fmt.Sprintf("Echo (%s): %s", req.Persona, req.Message), nil
	}

	chunks := s.matchChunks(req.Message)
	history := s.history()
	model := req.Model
	if model == "" {
		model = s.deps.Model
	}

	return s.deps.LLM.Complete(ctx, upstream.ChatRequest{
		Model:       model,
		Messages:    s.composer.Compose(req.Message, instructions, chunks, history),
		Temperature: req.Temperature,
	})
}

// matchChunks scores stored chunks by keyword overlap with message.
func (s *server) matchChunks(message string) []composer.ContextChunk {
	terms := composer.Terms(message)
	found, err := s.deps.Store.SearchChunks(terms, chunkCandidates)
	if err != nil {
		s.logger.Warn("searching chunks", "error", err)
		return nil
	}
	chunks := make([]composer.ContextChunk, len(found))
	for i, c := range found {
		chunks[i] = composer.ContextChunk{
			DocumentID: c.DocumentID,
			Text:       c.Content,
			Score:      composer.Score(terms, c.Content),
		}
	}
	return chunks
}

func (s *server) history() []upstream.Message {
	entries, err := s.deps.Store.RecentHistory(historyTurns)
	if err != nil {
		s.logger.Warn("loading history", "error", err)
		return nil
	}
	msgs := make([]upstream.Message, len(entries))
	for i, e := range entries {
		msgs[i] = upstream.Message{Role: e.Role, Content: e.Content}
	}
	return msgs
}

func (s *server) record(persona, role, content string) {
	if err := s.deps.Store.AppendHistory(storage.HistoryEntry{
		Role:    role,
		Content: content,
		Persona: persona,
	}); err != nil {
		s.logger.Warn("recording history", "role", role, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
