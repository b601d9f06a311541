// Package react implements the reasoning loop shared by all amblue agents.
//
// An agent turn alternates between model calls and tool dispatch: the model
// proposes tool calls, the engine executes them in parallel, feeds the
// results back, and repeats until the model answers in plain text, a
// terminal tool runs, or the step budget is exhausted. Conversation state is
// checkpointed between steps so a turn can resume from durable storage.
package react

import (
	"github.com/google/uuid"
)

// Role identifies the author of a message.
type Role string

const (
	// RoleHuman marks messages written by the end user.
	RoleHuman Role = "human"

	// RoleAI marks messages produced by the model, including tool-call
	// requests.
	RoleAI Role = "ai"

	// RoleTool marks tool execution results fed back to the model.
	RoleTool Role = "tool"
)

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// Message is one entry in an agent's conversation state.
//
// Tool-result messages carry ToolCallID and ToolName so they can be
// correlated with the AI message that requested them.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// NewHumanMessage returns a user message with a fresh id.
func NewHumanMessage(content string) Message {
	return Message{ID: uuid.NewString(), Role: RoleHuman, Content: content}
}

// NewAIMessage returns a model message with a fresh id.
func NewAIMessage(content string, calls ...ToolCall) Message {
	return Message{ID: uuid.NewString(), Role: RoleAI, Content: content, ToolCalls: calls}
}

// NewToolMessage returns a tool-result message correlated to a tool call.
func NewToolMessage(toolCallID, toolName, content string) Message {
	return Message{
		ID:         uuid.NewString(),
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		ToolName:   toolName,
	}
}

// MergeMessages applies updates to history by message id: an update whose id
// matches an existing message replaces it in place, anything else is
// appended. Order of surviving messages is preserved.
func MergeMessages(history []Message, updates ...Message) []Message {
	if len(updates) == 0 {
		return history
	}

	index := make(map[string]int, len(history))
	for i, m := range history {
		index[m.ID] = i
	}

	merged := make([]Message, len(history), len(history)+len(updates))
	copy(merged, history)

	for _, u := range updates {
		if i, ok := index[u.ID]; ok {
			merged[i] = u
			continue
		}
		index[u.ID] = len(merged)
		merged = append(merged, u)
	}
	return merged
}
