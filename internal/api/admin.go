package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/chatdesk/internal/ingest"
	"github.com/kalambet/chatdesk/internal/session"
	"github.com/kalambet/chatdesk/internal/storage"
)

const (
	maxUploadSize   = 32 << 20 // 32MB
	maxUploadMemory = 8 << 20  // 8MB
)

// --- Personas ---

func (s *server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	personas, err := s.deps.Store.ListPersonas()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to list personas: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, personas)
}

func (s *server) handleSavePersona(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer r.Body.Close()

	var req struct {
		Name         string `json:"name"`
		Instructions string `json:"instructions"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "name is required")
		return
	}

	if err := s.deps.Store.UpsertPersona(storage.Persona{Name: req.Name, Instructions: req.Instructions}); err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to save persona: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "saved"})
}

func (s *server) handleDeletePersona(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == session.DefaultPersona {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "the %s persona cannot be deleted", session.DefaultPersona)
		return
	}

	err := s.deps.Store.DeletePersona(name)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "persona not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to delete persona: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- Documents ---

type ingestionResponse struct {
	Chunks        int     `json:"chunks"`
	Skipped       int     `json:"skipped"`
	TokenEstimate int     `json:"token_estimate"`
	CostEstimate  float64 `json:"cost_estimate"`
}

type documentResponse struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	UploadedAt time.Time          `json:"uploaded_at"`
	Ingestion  *ingestionResponse `json:"ingestion,omitempty"`
}

func toDocumentResponses(docs []storage.Document) []documentResponse {
	out := make([]documentResponse, len(docs))
	for i, d := range docs {
		out[i] = documentResponse{ID: d.ID, Name: d.Name, UploadedAt: d.UploadedAt.UTC()}
		if in := d.Ingestion; in != nil {
			out[i].Ingestion = &ingestionResponse{
				Chunks:        in.Chunks,
				Skipped:       in.Skipped,
				TokenEstimate: in.TokenEstimate,
				CostEstimate:  in.CostEstimate,
			}
		}
	}
	return out
}

func (s *server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Store.ListDocuments()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, toDocumentResponses(docs))
}

// handleUpload ingests every "files" part (or a single "file" part) and
// answers with the created documents.
func (s *server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	defer r.Body.Close()

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid multipart body: %v", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	chunkSize, err := parseChunkSize(r)
	if err != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
		return
	}

	headers := append(r.MultipartForm.File["files"], r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "no files uploaded")
		return
	}

	files := make([]ingest.File, 0, len(headers))
	for _, fh := range headers {
		content, err := readPart(fh)
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "reading %s: %v", fh.Filename, err)
			return
		}
		files = append(files, ingest.File{Name: fh.Filename, Content: content})
	}

	docs, err := s.ingester.Batch(r.Context(), files, chunkSize)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to ingest documents: %v", err)
		return
	}
	s.logger.Info("documents uploaded", "count", len(docs), "chunk_size", chunkSize)
	writeJSON(w, http.StatusOK, toDocumentResponses(docs))
}

func readPart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// parseChunkSize reads X-Chunk-Size, then the chunk_size form field.
func parseChunkSize(r *http.Request) (int, error) {
	raw := r.Header.Get("X-Chunk-Size")
	if raw == "" {
		raw = r.FormValue("chunk_size")
	}
	if raw == "" {
		return ingest.DefaultChunkSize, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid chunk size %q", raw)
	}
	return n, nil
}

func (s *server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	err := s.deps.Store.DeleteDocument(id)
	if errors.Is(err, storage.ErrNotFound) {
		httpError(w, http.StatusNotFound, "not_found", "document not found")
		return
	}
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to delete document: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// --- History ---

type historyResponse struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Persona   string    `json:"persona"`
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := parseIntParam(r, "limit", 20, 100)

	entries, err := s.deps.Store.RecentHistory(limit)
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to list history: %v", err)
		return
	}
	out := make([]historyResponse, len(entries))
	for i, e := range entries {
		out[i] = historyResponse{ID: e.ID, CreatedAt: e.CreatedAt, Role: e.Role, Content: e.Content, Persona: e.Persona}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleClear drops the conversation history. Documents are untouched.
func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	n, err := s.deps.Store.ClearHistory()
	if err != nil {
		httpError(w, http.StatusInternalServerError, "api_error", "failed to clear history: %v", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "cleared", "removed": n})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
