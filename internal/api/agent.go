package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/amadis/amblue/internal/agent/react"
	"github.com/amadis/amblue/internal/log"
)

// defaultConversationID is used when a client omits the conversation id,
// matching the single implicit thread of simple clients.
const defaultConversationID = "default"

// Orchestrator is the turn-processing entry point the handlers call.
// Implemented by agent.Orchestrator.
type Orchestrator interface {
	ProcessTurn(ctx context.Context, userID, conversationID, question string) <-chan react.Event
}

// questionRequest is the body of both agent endpoints.
type questionRequest struct {
	UserID         string `json:"user_id"`
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question"`
}

// answerResponse is the body of the synchronous agent endpoint.
type answerResponse struct {
	ConversationID string `json:"conversation_id"`
	Answer         string `json:"answer"`
}

type agentHandler struct {
	orchestrator Orchestrator
	logger       log.Logger
}

func (h *agentHandler) parseRequest(w http.ResponseWriter, r *http.Request) (questionRequest, bool) {
	var req questionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return req, false
	}
	if strings.TrimSpace(req.Question) == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "question is required", h.logger)
		return req, false
	}
	if req.UserID == "" {
		req.UserID = defaultConversationID
	}
	if req.ConversationID == "" {
		req.ConversationID = defaultConversationID
	}
	return req, true
}

// ask handles POST /api/v1/agent: the full turn runs to completion and the
// final answer is returned as one JSON object.
func (h *agentHandler) ask(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	var (
		answer   strings.Builder
		lastTool string
		failed   string
	)
	for ev := range h.orchestrator.ProcessTurn(r.Context(), req.UserID, req.ConversationID, req.Question) {
		switch ev.Type {
		case react.EventAgentMessageDelta:
			answer.WriteString(ev.Delta)
		case react.EventToolMessage:
			// Deltas seen before a tool round are intermediate reasoning,
			// not part of the final answer.
			lastTool = ev.Content
			answer.Reset()
		case react.EventErrorMessage:
			failed = ev.Delta
		}
	}

	if failed != "" {
		writeError(w, http.StatusInternalServerError, "turn_failed", failed, h.logger)
		return
	}

	text := answer.String()
	if text == "" {
		// A terminal tool ended the turn; its output is the answer.
		text = lastTool
	}
	writeJSON(w, http.StatusOK, answerResponse{
		ConversationID: req.ConversationID,
		Answer:         text,
	}, h.logger)
}

// stream handles POST /api/v1/agent/stream: events are written as NDJSON,
// one frame per line, flushed as they are produced. The stream always ends
// with agent_message_complete or error_message.
func (h *agentHandler) stream(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseRequest(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		writeError(w, http.StatusInternalServerError, "streaming_unsupported", "response writer does not support streaming", h.logger)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	enc := json.NewEncoder(w)
	for ev := range h.orchestrator.ProcessTurn(r.Context(), req.UserID, req.ConversationID, req.Question) {
		if err := enc.Encode(ev); err != nil {
			// Client went away; the context cancellation stops the turn.
			h.logger.Debug("stream write failed", "error", err)
			return
		}
		flusher.Flush()
	}
}
