package react

import (
	"context"
	"errors"
)

// ErrNoCheckpoint is returned by Checkpointer.Get when no snapshot exists for
// a conversation.
var ErrNoCheckpoint = errors.New("no checkpoint for conversation")

// Snapshot is a durable copy of an agent's state at a clean step boundary.
// Step increases monotonically across the lifetime of a conversation.
type Snapshot struct {
	Messages []Message `json:"messages"`
	Step     int64     `json:"step"`
}

// Checkpointer persists agent snapshots keyed by conversation and agent name.
//
// Implementations must be safe for concurrent use. Get returns
// ErrNoCheckpoint when nothing has been stored yet.
type Checkpointer interface {
	Get(ctx context.Context, conversationID, agent string) (Snapshot, error)
	Put(ctx context.Context, conversationID, agent string, snap Snapshot) error
}
