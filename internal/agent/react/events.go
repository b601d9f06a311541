package react

// EventType identifies the kind of frame emitted while a turn streams.
type EventType string

const (
	// EventToolMessage carries a completed tool result.
	EventToolMessage EventType = "tool_message"

	// EventAgentMessageDelta carries one chunk of streamed model text.
	EventAgentMessageDelta EventType = "agent_message_delta"

	// EventAgentMessageComplete marks the successful end of a turn.
	EventAgentMessageComplete EventType = "agent_message_complete"

	// EventErrorMessage carries a fatal turn error. It is always the last
	// frame of a failed stream.
	EventErrorMessage EventType = "error_message"
)

// Event is one frame of an agent turn stream. It marshals directly to the
// wire format, one JSON object per line.
type Event struct {
	Type       EventType `json:"type"`
	Delta      string    `json:"delta,omitempty"`
	Content    string    `json:"content,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	ToolName   string    `json:"tool_name,omitempty"`
}

// ToolMessageEvent builds the stream frame for a tool-result message.
func ToolMessageEvent(m Message) Event {
	return Event{
		Type:       EventToolMessage,
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
		ToolName:   m.ToolName,
	}
}

// DeltaEvent builds a streamed text chunk frame.
func DeltaEvent(delta string) Event {
	return Event{Type: EventAgentMessageDelta, Delta: delta}
}

// CompleteEvent builds the terminal success frame.
func CompleteEvent() Event {
	return Event{Type: EventAgentMessageComplete}
}

// ErrorEvent builds the terminal failure frame.
func ErrorEvent(message string) Event {
	return Event{Type: EventErrorMessage, Delta: message}
}
