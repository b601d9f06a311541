// Package model bridges the agent engine to Genkit: a ModelCaller that
// translates engine messages into Genkit generate calls, and a classifier for
// routing questions with structured output.
package model

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/amadis/amblue/internal/agent/react"
	"github.com/amadis/amblue/internal/log"
)

// Caller implements react.ModelCaller on top of a Genkit instance. Tool
// requests are returned to the engine rather than executed by Genkit, so the
// engine keeps control of dispatch, budgeting and checkpointing.
type Caller struct {
	g         *genkit.Genkit
	modelName string
	logger    log.Logger
}

// NewCaller creates a genkit-backed model caller. modelName must be the fully
// qualified name, e.g. "googleai/gemini-2.5-flash".
func NewCaller(g *genkit.Genkit, modelName string, logger log.Logger) *Caller {
	return &Caller{g: g, modelName: modelName, logger: logger}
}

// Generate invokes the model once. Streaming deltas are forwarded to stream
// when it is non-nil. The returned message carries any tool requests the
// model made.
func (c *Caller) Generate(ctx context.Context, req react.ModelRequest, stream react.StreamFunc) (react.Message, error) {
	opts := []ai.GenerateOption{
		ai.WithModelName(c.modelName),
		ai.WithMessages(toGenkitMessages(req.Messages)...),
		ai.WithReturnToolRequests(true),
	}
	if req.System != "" {
		opts = append(opts, ai.WithSystem(req.System))
	}
	if refs := c.lookupTools(req.Tools); len(refs) > 0 {
		opts = append(opts, ai.WithTools(refs...))
	}
	if stream != nil {
		opts = append(opts, ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			if text := chunk.Text(); text != "" {
				stream(text)
			}
			return nil
		}))
	}

	resp, err := genkit.Generate(ctx, c.g, opts...)
	if err != nil {
		return react.Message{}, fmt.Errorf("model generate: %w", err)
	}
	return fromGenkitResponse(resp)
}

// lookupTools resolves requested tool definitions against the tools
// registered with Genkit. Unknown names are skipped.
func (c *Caller) lookupTools(defs []react.ToolDefinition) []ai.ToolRef {
	refs := make([]ai.ToolRef, 0, len(defs))
	for _, def := range defs {
		if t := genkit.LookupTool(c.g, def.Name); t != nil {
			refs = append(refs, t)
		} else {
			c.logger.Warn("tool not registered with genkit", "tool", def.Name)
		}
	}
	return refs
}

func toGenkitMessages(messages []react.Message) []*ai.Message {
	out := make([]*ai.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case react.RoleHuman:
			out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		case react.RoleAI:
			parts := make([]*ai.Part, 0, 1+len(m.ToolCalls))
			if m.Content != "" {
				parts = append(parts, ai.NewTextPart(m.Content))
			}
			for _, call := range m.ToolCalls {
				parts = append(parts, ai.NewToolRequestPart(&ai.ToolRequest{
					Name:  call.Name,
					Ref:   call.ID,
					Input: call.Args,
				}))
			}
			out = append(out, &ai.Message{Role: ai.RoleModel, Content: parts})
		case react.RoleTool:
			out = append(out, &ai.Message{
				Role: ai.RoleTool,
				Content: []*ai.Part{ai.NewToolResponsePart(&ai.ToolResponse{
					Name:   m.ToolName,
					Ref:    m.ToolCallID,
					Output: m.Content,
				})},
			})
		}
	}
	return out
}

func fromGenkitResponse(resp *ai.ModelResponse) (react.Message, error) {
	reply := react.NewAIMessage(resp.Text())
	for _, tr := range resp.ToolRequests() {
		args, err := toArgsMap(tr.Input)
		if err != nil {
			return react.Message{}, fmt.Errorf("tool request %q: %w", tr.Name, err)
		}
		id := tr.Ref
		if id == "" {
			id = uuid.NewString()
		}
		reply.ToolCalls = append(reply.ToolCalls, react.ToolCall{
			ID:   id,
			Name: tr.Name,
			Args: args,
		})
	}
	return reply, nil
}

// toArgsMap normalizes a tool request input to a string-keyed map. Providers
// deliver parsed JSON objects; anything else goes through a JSON round trip.
func toArgsMap(input any) (map[string]any, error) {
	switch v := input.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("marshaling input: %w", err)
		}
		var args map[string]any
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("input is not an object: %w", err)
		}
		return args, nil
	}
}
