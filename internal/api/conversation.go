package api

import (
	"context"
	"net/http"

	"github.com/amadis/amblue/internal/conversation"
	"github.com/amadis/amblue/internal/log"
)

// ConversationStore is the transcript access the conversation endpoints
// need. Implemented by conversation.Store.
type ConversationStore interface {
	Exists(ctx context.Context, conversationID string) (bool, error)
	Messages(ctx context.Context, conversationID string) ([]conversation.Message, error)
	Delete(ctx context.Context, conversationID string) error
}

type conversationHandler struct {
	store  ConversationStore
	logger log.Logger
}

// messages handles GET /api/v1/conversations/{id}/messages.
func (h *conversationHandler) messages(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	exists, err := h.store.Exists(r.Context(), id)
	if err != nil {
		h.logger.Error("checking conversation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed", "loading conversation failed", h.logger)
		return
	}
	if !exists {
		writeError(w, http.StatusNotFound, "not_found", "conversation does not exist", h.logger)
		return
	}

	messages, err := h.store.Messages(r.Context(), id)
	if err != nil {
		h.logger.Error("loading messages failed", "error", err)
		writeError(w, http.StatusInternalServerError, "storage_failed", "loading conversation failed", h.logger)
		return
	}
	if messages == nil {
		messages = []conversation.Message{}
	}
	writeJSON(w, http.StatusOK, messages, h.logger)
}

// delete handles DELETE /api/v1/conversations/{id}.
func (h *conversationHandler) delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "not_found", "conversation does not exist", h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
