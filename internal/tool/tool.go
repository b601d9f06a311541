// Package tool provides the tools amblue agents can call, plus the registry
// that dispatches model tool calls to them.
//
// Tools are declared with type-safe input structs; the JSON schema the model
// sees is derived from the struct via jsonschema.For. A tool marked
// return-direct ends the agent turn with its output instead of handing the
// result back to the model.
package tool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/jsonschema-go/jsonschema"

	"github.com/amadis/amblue/internal/agent/react"
)

// Handler is the type-erased execution function stored in a Tool.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// Tool couples the metadata the model sees with the execution logic.
type Tool struct {
	name         string
	description  string
	returnDirect bool
	schema       *jsonschema.Schema
	handler      Handler
	define       func(g *genkit.Genkit) ai.Tool
}

// Option configures a Tool at construction time.
type Option func(*Tool)

// WithReturnDirect marks the tool terminal: its output becomes the final
// answer of the turn without another model call.
func WithReturnDirect() Option {
	return func(t *Tool) { t.returnDirect = true }
}

// New creates a tool with type-safe input handling. The input schema is
// derived from In's struct tags, and arguments from the model are converted
// through JSON before the handler runs.
func New[In any](name, description string, handler func(ctx context.Context, input In) (string, error), opts ...Option) (*Tool, error) {
	schema, err := jsonschema.For[In](nil)
	if err != nil {
		return nil, fmt.Errorf("schema for tool %q: %w", name, err)
	}

	var zeroIn In
	erased := func(ctx context.Context, args map[string]any) (string, error) {
		jsonBytes, err := json.Marshal(args)
		if err != nil {
			return "", fmt.Errorf("marshaling arguments: %w", err)
		}

		var input In
		if err := json.Unmarshal(jsonBytes, &input); err != nil {
			return "", fmt.Errorf("invalid arguments: expected %T: %w", zeroIn, err)
		}
		return handler(ctx, input)
	}

	t := &Tool{
		name:        name,
		description: description,
		schema:      schema,
		handler:     erased,
	}
	// The typed input parameter survives here as a closure so the tool can be
	// registered with Genkit after the generic type is erased.
	t.define = func(g *genkit.Genkit) ai.Tool {
		return genkit.DefineTool(g, name, description,
			func(toolCtx *ai.ToolContext, input In) (string, error) {
				return handler(toolCtx.Context, input)
			})
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Name returns the tool's unique identifier.
func (t *Tool) Name() string { return t.name }

// Description returns the text the model uses to decide when to call the tool.
func (t *Tool) Description() string { return t.description }

// ReturnDirect reports whether the tool's output ends the turn.
func (t *Tool) ReturnDirect() bool { return t.returnDirect }

// Definition returns the tool description handed to the model.
func (t *Tool) Definition() react.ToolDefinition {
	return react.ToolDefinition{
		Name:        t.name,
		Description: t.description,
		InputSchema: t.schema,
	}
}

// Define registers the tool with a Genkit instance and returns the reference
// usable with ai.WithTools.
func (t *Tool) Define(g *genkit.Genkit) ai.Tool {
	return t.define(g)
}

// Execute runs the tool against raw arguments from the model.
func (t *Tool) Execute(ctx context.Context, args map[string]any) (string, error) {
	return t.handler(ctx, args)
}
