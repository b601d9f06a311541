package react

// State is the mutable conversation state of an agent turn.
type State struct {
	Messages []Message
}

// Merge folds updates into the state using the message-id reducer.
func (s *State) Merge(updates ...Message) {
	s.Messages = MergeMessages(s.Messages, updates...)
}

// TruncateHistory returns the window of at most the last n messages that the
// model should see. The window start is walked backwards past tool-result
// messages so the model never sees a tool result without the AI message that
// requested it.
func TruncateHistory(messages []Message, n int) []Message {
	if n <= 0 || len(messages) <= n {
		return messages
	}

	start := len(messages) - n
	for start > 0 && messages[start].Role == RoleTool {
		start--
	}
	return messages[start:]
}
