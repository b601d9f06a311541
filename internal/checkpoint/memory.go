package checkpoint

import (
	"context"
	"sync"

	"github.com/amadis/amblue/internal/agent/react"
)

// Memory is an in-process checkpointer for tests and single-run tooling.
// Safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	snaps map[string]react.Snapshot
}

// NewMemory creates an empty in-memory checkpointer.
func NewMemory() *Memory {
	return &Memory{snaps: make(map[string]react.Snapshot)}
}

func key(conversationID, agent string) string {
	return conversationID + "\x00" + agent
}

// Get implements react.Checkpointer.
func (m *Memory) Get(_ context.Context, conversationID, agent string) (react.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap, ok := m.snaps[key(conversationID, agent)]
	if !ok {
		return react.Snapshot{}, react.ErrNoCheckpoint
	}

	// Copy the message slice so callers cannot mutate stored state.
	messages := make([]react.Message, len(snap.Messages))
	copy(messages, snap.Messages)
	return react.Snapshot{Messages: messages, Step: snap.Step}, nil
}

// Put implements react.Checkpointer.
func (m *Memory) Put(_ context.Context, conversationID, agent string, snap react.Snapshot) error {
	messages := make([]react.Message, len(snap.Messages))
	copy(messages, snap.Messages)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[key(conversationID, agent)] = react.Snapshot{Messages: messages, Step: snap.Step}
	return nil
}
