package tool

import (
	"context"
	"fmt"
	"strings"

	"github.com/amadis/amblue/internal/log"
)

// ToolRetrieveDocument is the name of the knowledge base retrieval tool.
const ToolRetrieveDocument = "retrieve_document"

// retrievalTopK is the number of documents fetched per search.
const retrievalTopK = 5

// NoDocumentsFound is returned when similarity search yields nothing, so the
// model can state the limitation instead of hallucinating.
const NoDocumentsFound = "No documents found."

// Searcher performs similarity search over the knowledge base.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type retrieveInput struct {
	Query string `json:"query" jsonschema:"The search query to find relevant documents" jsonschema_description:"The search query to find relevant documents"`
}

// NewRetrievalTool builds the document retrieval tool backed by s.
func NewRetrievalTool(s Searcher, logger log.Logger) (*Tool, error) {
	logger = logger.With("component", "retrieval_tool")

	return New(ToolRetrieveDocument,
		"Retrieve relevant documents from the knowledge base based on the query.",
		func(ctx context.Context, input retrieveInput) (string, error) {
			logger.Debug("retrieving documents", "query", input.Query)

			docs, err := s.Search(ctx, input.Query, retrievalTopK)
			if err != nil {
				return "", fmt.Errorf("searching documents: %w", err)
			}
			if len(docs) == 0 {
				logger.Debug("no documents found for query")
				return NoDocumentsFound, nil
			}

			logger.Debug("documents retrieved", "count", len(docs))
			sections := make([]string, len(docs))
			for i, doc := range docs {
				sections[i] = fmt.Sprintf("Document %d:\n%s", i+1, doc)
			}
			return strings.Join(sections, "\n\n"), nil
		})
}
