// Package agent assembles the specialized agents and the supervisor that
// routes each user turn to exactly one of them.
package agent

import (
	"context"
	"strings"

	"github.com/amadis/amblue/internal/agent/react"
	"github.com/amadis/amblue/internal/log"
)

// RouteDecision names the agent chosen for a turn.
type RouteDecision string

const (
	// RouteSQL sends the turn to the cost-analytics agent.
	RouteSQL RouteDecision = "sql"

	// RouteDocs sends the turn to the document-retrieval agent.
	RouteDocs RouteDecision = "docs"

	// RouteFinish means the model saw nothing left to do. The docs agent
	// still handles the turn so the user always gets an answer.
	RouteFinish RouteDecision = "FINISH"
)

// Router decides which agent handles a question.
type Router interface {
	Route(ctx context.Context, question string, history []react.Message) (RouteDecision, error)
}

// Classifier is the structured-output model call the ClassifierRouter
// delegates to. Implemented by model.Classifier.
type Classifier interface {
	Classify(ctx context.Context, question string, history []react.Message) (string, error)
}

// ClassifierSystemPrompt instructs the routing model. The output is
// constrained to the route enum by the structured output schema.
const ClassifierSystemPrompt = `You are a supervisor routing user questions to one of two agents.

Pick "sql" when the question needs specific figures, aggregations or
statistics from the cloud cost and usage database: spend, cost trends,
resource usage, billing breakdowns.

Pick "docs" when the question asks for general knowledge, explanations or
anything answerable from the document knowledge base, and for greetings or
small talk.

Pick "FINISH" only when the conversation shows the question has already been
fully answered.

Answer with exactly one of: sql, docs, FINISH.`

// ClassifierRouter routes by asking the model. Unknown or ambiguous answers
// fall back to the docs agent; classification errors propagate.
type ClassifierRouter struct {
	classifier Classifier
	logger     log.Logger
}

// NewClassifierRouter creates a model-backed router.
func NewClassifierRouter(classifier Classifier, logger log.Logger) *ClassifierRouter {
	return &ClassifierRouter{classifier: classifier, logger: logger}
}

// Route classifies the question. The decision is deterministic given the
// model's answer.
func (r *ClassifierRouter) Route(ctx context.Context, question string, history []react.Message) (RouteDecision, error) {
	answer, err := r.classifier.Classify(ctx, question, history)
	if err != nil {
		return "", err
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "sql":
		return RouteSQL, nil
	case "finish":
		return RouteFinish, nil
	case "docs":
		return RouteDocs, nil
	default:
		r.logger.Warn("unrecognized route, defaulting to docs", "answer", answer)
		return RouteDocs, nil
	}
}

// sqlKeywords mark questions that likely need the cost database.
var sqlKeywords = []string{
	"cost", "costs", "spend", "spent", "spending", "bill", "billing",
	"usage", "expense", "budget", "cheapest", "most expensive",
	"how much", "how many", "total", "average", "sum", "count",
}

// KeywordRouter is a deterministic fallback router that needs no model call.
type KeywordRouter struct{}

// NewKeywordRouter creates a keyword-based router.
func NewKeywordRouter() *KeywordRouter { return &KeywordRouter{} }

// Route scans the question for cost-analytics vocabulary and defaults to the
// docs agent otherwise.
func (r *KeywordRouter) Route(_ context.Context, question string, _ []react.Message) (RouteDecision, error) {
	q := strings.ToLower(question)
	for _, kw := range sqlKeywords {
		if strings.Contains(q, kw) {
			return RouteSQL, nil
		}
	}
	return RouteDocs, nil
}
