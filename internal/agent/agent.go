package agent

import (
	"fmt"

	"github.com/amadis/amblue/internal/agent/react"
	"github.com/amadis/amblue/internal/log"
	"github.com/amadis/amblue/internal/tool"
)

// Agent names for checkpoint namespacing and routing.
const (
	NameSQL  = "sql"
	NameDocs = "docs"
)

// SQLSystemPrompt drives the cost-analytics agent.
const SQLSystemPrompt = `You are an expert FinOps analyst with direct access to the cloud cost and usage database. Your job is to answer questions about spend, usage and savings with accurate figures from the database.

Working with the database:
- Start with sql_db_list_tables to see which tables exist.
- Inspect the schema of candidate tables with sql_db_schema before writing any query.
- Run the final query with sql_db_query. Base it strictly on the retrieved schema, never on assumed column names.
- Enclose column names in double quotes to avoid clashes with reserved words.
- Select only the columns a question needs; never use SELECT *.
- Push aggregation into SQL (SUM, AVG, COUNT, GROUP BY) instead of fetching raw rows.
- Never issue INSERT, UPDATE, DELETE, DROP or any other statement that modifies data.

Answering:
- Summarize trends and anomalies, and quantify recommendations (estimated savings with supporting numbers).
- Prefer compact tables over prose for figures.
- Do not echo table names, schemas or raw SQL back to the user.
- If the database lacks the data needed, say what additional data the analysis would require. Never pass raw errors to the user.`

// DocsSystemPrompt drives the document-retrieval agent.
const DocsSystemPrompt = `You are a document retrieval assistant answering from a knowledge base.

For each question:
1. Identify the key concepts being asked about.
2. Call retrieve_document with precise search terms.
3. If the results are not relevant, reformulate and search again with alternative terms.
4. Answer from the retrieved documents, quoting the relevant parts.
5. If nothing relevant is found, say so clearly.

Base answers only on retrieved documents. Do not invent information, and make clear which statements are direct quotes and which are inferences. Greetings and small talk may be answered directly without retrieving anything.`

// Agent is a reasoning loop bound to a fixed prompt and tool set.
type Agent struct {
	Name   string
	Engine *react.Engine
	Tools  *tool.Registry
}

// Options carries the loop limits shared by all agents.
type Options struct {
	MaxSteps      int
	HistoryWindow int
}

// NewSQLAgent builds the cost-analytics agent: the ReAct loop armed with the
// SQL inspection and query tools.
func NewSQLAgent(model react.ModelCaller, db tool.Querier, saver react.Checkpointer, opts Options, logger log.Logger) (*Agent, error) {
	sqlTools, err := tool.NewSQLTools(db, logger)
	if err != nil {
		return nil, fmt.Errorf("sql tools: %w", err)
	}
	registry, err := tool.NewRegistry(sqlTools...)
	if err != nil {
		return nil, err
	}

	engine, err := react.New(react.Config{
		Name:          NameSQL,
		System:        SQLSystemPrompt,
		Model:         model,
		Tools:         registry,
		Saver:         saver,
		Logger:        logger,
		MaxSteps:      opts.MaxSteps,
		HistoryWindow: opts.HistoryWindow,
	})
	if err != nil {
		return nil, err
	}
	return &Agent{Name: NameSQL, Engine: engine, Tools: registry}, nil
}

// NewDocsAgent builds the document-retrieval agent.
func NewDocsAgent(model react.ModelCaller, searcher tool.Searcher, saver react.Checkpointer, opts Options, logger log.Logger) (*Agent, error) {
	retrieval, err := tool.NewRetrievalTool(searcher, logger)
	if err != nil {
		return nil, fmt.Errorf("retrieval tool: %w", err)
	}
	registry, err := tool.NewRegistry(retrieval)
	if err != nil {
		return nil, err
	}

	engine, err := react.New(react.Config{
		Name:          NameDocs,
		System:        DocsSystemPrompt,
		Model:         model,
		Tools:         registry,
		Saver:         saver,
		Logger:        logger,
		MaxSteps:      opts.MaxSteps,
		HistoryWindow: opts.HistoryWindow,
	})
	if err != nil {
		return nil, err
	}
	return &Agent{Name: NameDocs, Engine: engine, Tools: registry}, nil
}
