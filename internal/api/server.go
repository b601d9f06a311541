// Package api exposes the agent platform over HTTP: a synchronous question
// endpoint, an NDJSON streaming endpoint, knowledge-base management and
// conversation transcripts.
package api

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amadis/amblue/internal/log"
)

// ServerConfig contains the collaborators and limits of the API server.
type ServerConfig struct {
	Logger        log.Logger
	Orchestrator  Orchestrator      // Required
	Knowledge     KnowledgeStore    // Optional: nil disables document endpoints
	Conversations ConversationStore // Optional: nil disables transcript endpoints
	Pool          *pgxpool.Pool     // Optional: nil skips the database readiness check
	CORSOrigins   []string
	TrustProxy    bool
	RateLimitRPS  float64 // tokens per second per IP (0 = default 5)
	RateLimitMax  int     // burst per IP (0 = default 10)
}

// Server is the JSON/NDJSON HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Config{})
	}

	mux := http.NewServeMux()

	ah := &agentHandler{orchestrator: cfg.Orchestrator, logger: logger}
	mux.HandleFunc("POST /api/v1/agent", ah.ask)
	mux.HandleFunc("POST /api/v1/agent/stream", ah.stream)

	if cfg.Knowledge != nil {
		kh := &knowledgeHandler{store: cfg.Knowledge, logger: logger}
		mux.HandleFunc("POST /api/v1/documents", kh.add)
		mux.HandleFunc("GET /api/v1/documents/count", kh.count)
		mux.HandleFunc("DELETE /api/v1/documents/{id}", kh.delete)
	}

	if cfg.Conversations != nil {
		ch := &conversationHandler{store: cfg.Conversations, logger: logger}
		mux.HandleFunc("GET /api/v1/conversations/{id}/messages", ch.messages)
		mux.HandleFunc("DELETE /api/v1/conversations/{id}", ch.delete)
	}

	rps := cfg.RateLimitRPS
	if rps <= 0 {
		rps = 5.0
	}
	burst := cfg.RateLimitMax
	if burst <= 0 {
		burst = 10
	}
	rl := newRateLimiter(rps, burst)

	// Middleware stack, outermost first:
	//   Recovery -> Logging -> CORS -> RateLimit -> Routes
	// CORS runs before RateLimit so preflight OPTIONS carries CORS headers.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health(logger))
	topMux.Handle("GET /ready", readiness(cfg.Pool, logger))
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
