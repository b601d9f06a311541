package react

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
)

// ToolDefinition describes a tool to the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema *jsonschema.Schema
}

// ModelRequest is one model invocation: the system prompt, the visible
// history window and the tools the model may call.
type ModelRequest struct {
	System   string
	Messages []Message
	Tools    []ToolDefinition
}

// StreamFunc receives text chunks as the model produces them.
type StreamFunc func(delta string)

// ModelCaller invokes the underlying language model. The returned message has
// RoleAI and carries any tool calls the model requested. When stream is
// non-nil it is called for each text chunk before Generate returns.
type ModelCaller interface {
	Generate(ctx context.Context, req ModelRequest, stream StreamFunc) (Message, error)
}

// Toolbox executes tools on behalf of the engine.
//
// Execute returns the tool's textual output. ReturnDirect reports whether a
// tool's result ends the turn without another model call.
type Toolbox interface {
	Definitions() []ToolDefinition
	Execute(ctx context.Context, name string, args map[string]any) (string, error)
	ReturnDirect(name string) bool
}
