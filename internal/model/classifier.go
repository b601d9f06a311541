package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/amadis/amblue/internal/agent/react"
	"github.com/amadis/amblue/internal/log"
)

// routeChoice is the structured output the routing model is constrained to.
type routeChoice struct {
	Route string `json:"route" jsonschema_description:"The agent to handle the question: sql, docs, or FINISH"`
}

// Classifier decides which specialized agent handles a question by asking the
// model for a structured single-field answer.
type Classifier struct {
	g         *genkit.Genkit
	modelName string
	system    string
	logger    log.Logger
}

// NewClassifier creates a genkit-backed route classifier.
func NewClassifier(g *genkit.Genkit, modelName, system string, logger log.Logger) *Classifier {
	return &Classifier{g: g, modelName: modelName, system: system, logger: logger}
}

// Classify returns the route token the model chose for the question. Recent
// history gives the model context for follow-up questions.
func (c *Classifier) Classify(ctx context.Context, question string, history []react.Message) (string, error) {
	var sb strings.Builder
	for _, m := range history {
		if m.Role == react.RoleTool || m.Content == "" {
			continue
		}
		fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
	}
	fmt.Fprintf(&sb, "%s: %s\n", react.RoleHuman, question)

	resp, err := genkit.Generate(ctx, c.g,
		ai.WithModelName(c.modelName),
		ai.WithSystem(c.system),
		ai.WithMessages(ai.NewUserMessage(ai.NewTextPart(sb.String()))),
		ai.WithOutputType(routeChoice{}),
	)
	if err != nil {
		return "", fmt.Errorf("classify route: %w", err)
	}

	var choice routeChoice
	if err := resp.Output(&choice); err != nil {
		return "", fmt.Errorf("classify route: %w", err)
	}
	c.logger.Debug("route classified", "route", choice.Route)
	return choice.Route, nil
}
