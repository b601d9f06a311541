package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/amadis/amblue/internal/knowledge"
	"github.com/amadis/amblue/internal/log"
)

// KnowledgeStore is the document persistence the knowledge endpoints need.
// Implemented by knowledge.Store.
type KnowledgeStore interface {
	Add(ctx context.Context, doc knowledge.Document) (string, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type documentRequest struct {
	ID       string         `json:"id,omitempty"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type knowledgeHandler struct {
	store  KnowledgeStore
	logger log.Logger
}

// add handles POST /api/v1/documents: embeds and stores one document.
func (h *knowledgeHandler) add(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "content is required", h.logger)
		return
	}

	id, err := h.store.Add(r.Context(), knowledge.Document{
		ID:       req.ID,
		Content:  req.Content,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.logger.Error("storing document failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed", "storing document failed", h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"id": id}, h.logger)
}

// delete handles DELETE /api/v1/documents/{id}.
func (h *knowledgeHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "document does not exist", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// count handles GET /api/v1/documents/count.
func (h *knowledgeHandler) count(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.Count(r.Context())
	if err != nil {
		h.logger.Error("counting documents failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed", "counting documents failed", h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": n}, h.logger)
}
