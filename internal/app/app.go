// Package app wires the application together: database pool, migrations,
// Genkit provider, embedder, stores, agents and the supervisor.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amadis/amblue/internal/agent"
	"github.com/amadis/amblue/internal/checkpoint"
	"github.com/amadis/amblue/internal/config"
	"github.com/amadis/amblue/internal/conversation"
	"github.com/amadis/amblue/internal/knowledge"
	"github.com/amadis/amblue/internal/log"
)

// App is the assembled application.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit   *genkit.Genkit
	Embedder ai.Embedder
	DBPool   *pgxpool.Pool

	Knowledge     *knowledge.Store
	Conversations *conversation.Store
	Checkpoints   *checkpoint.Saver
	Orchestrator  *agent.Orchestrator

	otelCleanup func()
	dbCleanup   func()
}

// Close releases all resources acquired during Setup. Safe to call on a
// partially initialized App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.Checkpoints != nil {
		a.Checkpoints.Close()
	}
	if a.dbCleanup != nil {
		a.dbCleanup()
	}
	if a.otelCleanup != nil {
		a.otelCleanup()
	}
	return nil
}
